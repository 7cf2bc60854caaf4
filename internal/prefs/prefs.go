// Package prefs persists the mutable sync state: per-category watermarks, the
// installation reference value, the first-backup flag and per-category enable
// overrides. Everything lives in the local store's sync_state table.
package prefs

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/smsvault/smsvault/internal/category"
	"github.com/smsvault/smsvault/internal/config"
	"github.com/smsvault/smsvault/internal/localstore"
)

const (
	keyReference = "reference"
)

// Store reads and writes sync preferences. Static tuning comes from the
// config file; anything a run mutates goes through the sync_state table.
type Store struct {
	db  *localstore.DB
	cfg *config.Config
}

// New creates a preference store.
func New(db *localstore.DB, cfg *config.Config) *Store {
	return &Store{db: db, cfg: cfg}
}

// MaxSyncedDate returns the watermark for a category in epoch milliseconds,
// category.Unsynced when the category was never backed up. The multimedia
// store keeps timestamps in epoch seconds, so its persisted watermark is
// scaled up at this boundary.
func (s *Store) MaxSyncedDate(t category.Type) (int64, error) {
	v, ok, err := s.db.GetState(t.WatermarkKey())
	if err != nil {
		return category.Unsynced, err
	}
	if !ok {
		return category.Unsynced, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return category.Unsynced, fmt.Errorf("corrupt watermark %q: %w", v, err)
	}
	if t == category.Multimedia && n > 0 {
		return n * 1000, nil
	}
	return n, nil
}

// SetMaxSyncedDate persists the watermark for one category. The value is
// stored as produced by the conversion result: epoch milliseconds for every
// category except multimedia, which reports epoch seconds.
func (s *Store) SetMaxSyncedDate(t category.Type, max int64) error {
	return s.db.SetState(t.WatermarkKey(), strconv.FormatInt(max, 10))
}

// RawMaxSyncedDate returns the watermark exactly as persisted, without the
// multimedia scaling. The query builder needs the store-native value.
func (s *Store) RawMaxSyncedDate(t category.Type) (int64, error) {
	ms, err := s.MaxSyncedDate(t)
	if err != nil {
		return category.Unsynced, err
	}
	if t == category.Multimedia && ms > 0 {
		return ms / 1000, nil
	}
	return ms, nil
}

// IsFirstBackup reports whether a backup has ever completed: the text
// watermark key is written on every successful backup, including empty ones.
func (s *Store) IsFirstBackup() (bool, error) {
	_, ok, err := s.db.GetState(category.Text.WatermarkKey())
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// ClearSyncData removes all watermarks, forcing the next backup to start
// from scratch.
func (s *Store) ClearSyncData() error {
	for _, t := range category.All() {
		if err := s.db.DeleteState(t.WatermarkKey()); err != nil {
			return err
		}
	}
	return nil
}

// ReferenceValue returns the installation-wide random reference used for
// cross-reference headers, generating and persisting it on first use.
func (s *Store) ReferenceValue() (string, error) {
	v, ok, err := s.db.GetState(keyReference)
	if err != nil {
		return "", err
	}
	if ok {
		return v, nil
	}
	ref := uuid.NewString()
	if err := s.db.SetState(keyReference, ref); err != nil {
		return "", err
	}
	return ref, nil
}

// BackupEnabled reports whether a category is backed up: a persisted override
// wins, else the category default. A category with a minimum platform gate is
// disabled on older platforms.
func (s *Store) BackupEnabled(t category.Type) (bool, error) {
	if min := t.MinPlatform(); min > 0 && s.cfg.Platform > 0 && s.cfg.Platform < min {
		return false, nil
	}
	v, ok, err := s.db.GetState(t.BackupKey())
	if err != nil {
		return false, err
	}
	if !ok {
		return t.BackupEnabledByDefault(), nil
	}
	return v == "true", nil
}

// SetBackupEnabled persists a backup-enabled override.
func (s *Store) SetBackupEnabled(t category.Type, enabled bool) error {
	return s.db.SetState(t.BackupKey(), strconv.FormatBool(enabled))
}

// RestoreEnabled reports whether a category is restored. Backup-only
// categories always report false.
func (s *Store) RestoreEnabled(t category.Type) (bool, error) {
	if t.RestoreKey() == "" {
		return false, nil
	}
	v, ok, err := s.db.GetState(t.RestoreKey())
	if err != nil {
		return false, err
	}
	if !ok {
		return t.RestoreEnabledByDefault(), nil
	}
	return v == "true", nil
}

// EnabledBackupCategories returns the categories currently enabled for
// backup, in declaration order.
func (s *Store) EnabledBackupCategories() ([]category.Type, error) {
	var enabled []category.Type
	for _, t := range category.All() {
		ok, err := s.BackupEnabled(t)
		if err != nil {
			return nil, err
		}
		if ok {
			enabled = append(enabled, t)
		}
	}
	return enabled, nil
}

// Folder returns the remote folder for a category: config override first,
// category default otherwise.
func (s *Store) Folder(t category.Type) string {
	if f, ok := s.cfg.Folders[t.String()]; ok && f != "" {
		return f
	}
	return t.DefaultFolder()
}

// MostRecentSyncedDate returns the newest watermark across text, multimedia
// and call log.
func (s *Store) MostRecentSyncedDate() (int64, error) {
	max := category.Unsynced
	for _, t := range []category.Type{category.Text, category.Multimedia, category.CallLog} {
		v, err := s.MaxSyncedDate(t)
		if err != nil {
			return category.Unsynced, err
		}
		if v > max {
			max = v
		}
	}
	return max, nil
}
