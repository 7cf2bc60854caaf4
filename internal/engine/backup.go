package engine

import (
	"context"
	"fmt"

	"github.com/smsvault/smsvault/internal/bus"
	"github.com/smsvault/smsvault/internal/category"
	"github.com/smsvault/smsvault/internal/imapx"
	"github.com/smsvault/smsvault/internal/mail"
	"github.com/smsvault/smsvault/internal/prefs"
	"go.uber.org/zap"
)

// ConnectFunc opens an authenticated remote store.
type ConnectFunc func(ctx context.Context) (*imapx.Store, error)

// BackupTask performs one backup run: fetch per-category batches, convert,
// append, advance watermarks. Watermarks only move after the append call for
// their batch returned successfully.
type BackupTask struct {
	fetcher   *Fetcher
	converter *mail.Converter
	prefs     *prefs.Store
	connect   ConnectFunc
	bus       *bus.Bus
	logger    *zap.Logger
}

// NewBackupTask wires a backup task.
func NewBackupTask(fetcher *Fetcher, converter *mail.Converter, p *prefs.Store, connect ConnectFunc, b *bus.Bus, logger *zap.Logger) *BackupTask {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupTask{
		fetcher:   fetcher,
		converter: converter,
		prefs:     p,
		connect:   connect,
		bus:       b,
		logger:    logger,
	}
}

// Run executes the task to a terminal state. It never panics across the run
// boundary; failures come back inside the state.
func (t *BackupTask) Run(ctx context.Context, cfg BackupConfig) State {
	if err := cfg.Validate(); err != nil {
		return errorState(err)
	}
	if cfg.Skip {
		return t.skip(cfg.Types)
	}

	batches := t.fetcher.FetchAll(cfg.Types, cfg.Allowed, cfg.MaxItems)
	total := 0
	for _, batch := range batches {
		total += len(batch)
	}
	if total == 0 {
		return t.finishEmpty()
	}

	t.publish(State{Phase: PhaseLogin, Total: total})
	store, err := t.connect(ctx)
	if err != nil {
		return errorState(err)
	}
	defer func() { _ = store.Close() }()
	t.publish(State{Phase: PhaseCalc, Total: total})

	done := 0
	for _, typ := range cfg.Types {
		batch := batches[typ]
		if len(batch) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			t.logger.Info("backup canceled", zap.Int("done", done))
			return State{Phase: PhaseCanceledBackup, Current: done, Total: total}
		}

		result, err := t.converter.ConvertRecords(batch, typ)
		if err != nil {
			return errorState(err)
		}
		if len(result.Messages) == 0 {
			total -= len(batch)
			continue
		}

		folder, err := store.Folder(typ, t.prefs.Folder(typ))
		if err != nil {
			return errorState(err)
		}
		if err := folder.Append(ctx, result.Messages); err != nil {
			if ctx.Err() != nil {
				return State{Phase: PhaseCanceledBackup, Current: done, Total: total}
			}
			return errorState(err)
		}
		if result.MaxDate != category.Unsynced {
			if err := t.prefs.SetMaxSyncedDate(typ, result.MaxDate); err != nil {
				return errorState(fmt.Errorf("persist watermark: %w", err))
			}
		}
		done += len(batch)
		t.logger.Info("batch backed up",
			zap.Stringer("category", typ),
			zap.Int("records", len(batch)),
			zap.Int("messages", len(result.Messages)),
			zap.Int64("watermark", result.MaxDate))
		t.publish(State{Phase: PhaseBackup, Current: done, Total: total, Category: typ})
	}
	return t.finish(State{Phase: PhaseFinishedBackup, Current: done, Total: total})
}

// skip sets every requested watermark from a most-recent probe without
// transferring anything.
func (t *BackupTask) skip(types []category.Type) State {
	for _, typ := range types {
		ts := t.fetcher.MostRecent(typ)
		if err := t.prefs.SetMaxSyncedDate(typ, ts); err != nil {
			return errorState(fmt.Errorf("persist watermark: %w", err))
		}
		t.logger.Info("watermark skipped forward", zap.Stringer("category", typ), zap.Int64("watermark", ts))
	}
	return t.finish(State{Phase: PhaseFinishedBackup})
}

// finishEmpty handles a run with nothing to send. A first-ever backup still
// persists sentinel watermarks so first-backup detection flips off.
func (t *BackupTask) finishEmpty() State {
	first, err := t.prefs.IsFirstBackup()
	if err != nil {
		return errorState(err)
	}
	if first {
		for _, typ := range []category.Type{category.Text, category.Multimedia} {
			if err := t.prefs.SetMaxSyncedDate(typ, category.Unsynced); err != nil {
				return errorState(fmt.Errorf("persist watermark: %w", err))
			}
		}
	}
	t.logger.Info("nothing to back up")
	return t.finish(State{Phase: PhaseFinishedBackup})
}

func (t *BackupTask) finish(s State) State {
	t.publish(s)
	return s
}

func (t *BackupTask) publish(s State) {
	publish(t.bus, EventBackupState, s)
}
