package engine

import (
	"github.com/smsvault/smsvault/internal/category"
	"github.com/smsvault/smsvault/internal/contacts"
)

// BackupConfig is the immutable parameter set for one backup run.
type BackupConfig struct {
	CurrentTry int
	MaxItems   int
	Types      []category.Type
	Allowed    *contacts.GroupIDs
	Skip       bool
}

// Retry returns a copy with the retry counter advanced.
func (c BackupConfig) Retry() BackupConfig {
	c.CurrentTry++
	return c
}

// Validate checks the run preconditions.
func (c BackupConfig) Validate() error {
	if len(c.Types) == 0 {
		return &PreconditionError{Reason: "no categories enabled for backup"}
	}
	if c.CurrentTry < 0 {
		return &PreconditionError{Reason: "negative retry count"}
	}
	return nil
}

// RestoreConfig is the immutable parameter set for one restore run.
type RestoreConfig struct {
	CurrentTry  int
	MaxRestore  int
	Text        bool
	CallLog     bool
	StarredOnly bool
}

// Retry returns a copy with the retry counter advanced.
func (c RestoreConfig) Retry() RestoreConfig {
	c.CurrentTry++
	return c
}

// Validate checks the run preconditions.
func (c RestoreConfig) Validate() error {
	if !c.Text && !c.CallLog {
		return &PreconditionError{Reason: "no categories enabled for restore"}
	}
	if c.CurrentTry < 0 {
		return &PreconditionError{Reason: "negative retry count"}
	}
	return nil
}

// Categories returns the restorable categories selected by the config, in
// declaration order.
func (c RestoreConfig) Categories() []category.Type {
	var types []category.Type
	if c.Text {
		types = append(types, category.Text)
	}
	if c.CallLog {
		types = append(types, category.CallLog)
	}
	return types
}
