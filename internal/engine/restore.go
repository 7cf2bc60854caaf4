package engine

import (
	"context"
	"errors"
	"time"

	"github.com/smsvault/smsvault/internal/bus"
	"github.com/smsvault/smsvault/internal/category"
	"github.com/smsvault/smsvault/internal/localstore"
	"github.com/smsvault/smsvault/internal/mail"
	"github.com/smsvault/smsvault/internal/prefs"
	"github.com/smsvault/smsvault/internal/record"
	"go.uber.org/zap"
)

// cacheClearInterval bounds memory during long restores.
const cacheClearInterval = 50

// RestoreTask performs one restore run: fetch messages from the remote
// folders, reconstruct records and insert them idempotently.
type RestoreTask struct {
	db        *localstore.DB
	converter *mail.Converter
	lookup    *mail.PersonLookup
	prefs     *prefs.Store
	connect   ConnectFunc
	bus       *bus.Bus
	logger    *zap.Logger
}

// NewRestoreTask wires a restore task.
func NewRestoreTask(db *localstore.DB, converter *mail.Converter, lookup *mail.PersonLookup, p *prefs.Store, connect ConnectFunc, b *bus.Bus, logger *zap.Logger) *RestoreTask {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RestoreTask{
		db:        db,
		converter: converter,
		lookup:    lookup,
		prefs:     p,
		connect:   connect,
		bus:       b,
		logger:    logger,
	}
}

// Run executes the task to a terminal state.
func (t *RestoreTask) Run(ctx context.Context, cfg RestoreConfig) State {
	if err := cfg.Validate(); err != nil {
		return errorState(err)
	}

	t.publish(State{Phase: PhaseLogin})
	store, err := t.connect(ctx)
	if err != nil {
		return errorState(err)
	}
	defer func() { _ = store.Close() }()

	t.publish(State{Phase: PhaseCalc})
	var msgs []*mail.Message
	for _, typ := range cfg.Categories() {
		folder, err := store.Folder(typ, t.prefs.Folder(typ))
		if err != nil {
			return errorState(err)
		}
		batch, err := folder.Messages(ctx, cfg.MaxRestore, cfg.StarredOnly, time.Time{})
		if err != nil {
			if ctx.Err() != nil {
				return State{Phase: PhaseCanceledRestore}
			}
			return errorState(err)
		}
		msgs = append(msgs, batch...)
	}

	total := len(msgs)
	if cfg.MaxRestore > 0 && total > cfg.MaxRestore {
		total = cfg.MaxRestore
	}

	restored := 0
	smsInserted := false
	maxRestored := map[category.Type]int64{}
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return State{Phase: PhaseCanceledRestore, Current: restored, Total: total}
		}
		if i > 0 && i%cacheClearInterval == 0 {
			t.clearCaches()
		}

		inserted, typ, date, err := t.importMessage(msgs[i])
		if err != nil {
			return errorState(err)
		}
		if inserted {
			restored++
			if typ == category.Text {
				smsInserted = true
			}
			if date > maxRestored[typ] {
				maxRestored[typ] = date
			}
		}
		t.publish(State{Phase: PhaseRestore, Current: i + 1, Total: total})
	}

	if smsInserted {
		t.publish(State{Phase: PhaseUpdatingThreads, Current: restored, Total: total})
		if err := t.db.DeleteConversation(-1); err != nil {
			return errorState(err)
		}
	}
	if err := t.advanceWatermarks(maxRestored); err != nil {
		return errorState(err)
	}

	s := State{Phase: PhaseFinishedRestore, Current: restored, Total: total}
	t.publish(s)
	return s
}

// importMessage reconstructs and inserts one message. Unsupported categories
// and malformed messages are skipped, never fatal.
func (t *RestoreTask) importMessage(msg *mail.Message) (bool, category.Type, int64, error) {
	rec, typ, err := t.converter.MessageToRecord(msg)
	if err != nil {
		var unsupported *mail.UnsupportedRestoreError
		if errors.As(err, &unsupported) {
			t.logger.Debug("skipping unrestorable message", zap.Stringer("category", typ))
			return false, typ, 0, nil
		}
		t.logger.Warn("skipping malformed message", zap.Uint32("uid", msg.UID), zap.Error(err))
		return false, typ, 0, nil
	}

	switch typ {
	case category.Text:
		msgType := rec.Int(record.FieldType)
		if msgType != record.MessageTypeInbox && msgType != record.MessageTypeSent {
			return false, typ, 0, nil
		}
		exists, err := t.db.TextMessageExists(rec)
		if err != nil || exists {
			return false, typ, 0, err
		}
		if _, err := t.db.InsertTextMessage(rec); err != nil {
			return false, typ, 0, err
		}
	case category.CallLog:
		exists, err := t.db.CallExists(rec)
		if err != nil || exists {
			return false, typ, 0, err
		}
		if _, err := t.db.InsertCall(rec); err != nil {
			return false, typ, 0, err
		}
	default:
		return false, typ, 0, nil
	}
	return true, typ, rec.Int64(record.FieldDate), nil
}

// advanceWatermarks moves each restored category's watermark past the
// restored items so the next backup does not re-send them.
func (t *RestoreTask) advanceWatermarks(maxRestored map[category.Type]int64) error {
	for typ, date := range maxRestored {
		if date <= 0 {
			continue
		}
		current, err := t.prefs.MaxSyncedDate(typ)
		if err != nil {
			return err
		}
		if date > current {
			if err := t.prefs.SetMaxSyncedDate(typ, date); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *RestoreTask) clearCaches() {
	t.lookup.Clear()
	t.db.ClearCaches()
}

func (t *RestoreTask) publish(s State) {
	publish(t.bus, EventRestoreState, s)
}
