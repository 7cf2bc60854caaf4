package engine

import (
	"github.com/smsvault/smsvault/internal/category"
	"github.com/smsvault/smsvault/internal/contacts"
	"github.com/smsvault/smsvault/internal/localstore"
	"github.com/smsvault/smsvault/internal/record"
	"go.uber.org/zap"
)

// Fetcher executes query descriptors against the local store. Store-level
// read failures degrade to an empty result so one broken table cannot abort
// a whole run.
type Fetcher struct {
	db      *localstore.DB
	builder *QueryBuilder
	logger  *zap.Logger
}

// NewFetcher creates a fetcher.
func NewFetcher(db *localstore.DB, builder *QueryBuilder, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{db: db, builder: builder, logger: logger}
}

// FetchBatch returns the records of one category newer than its watermark,
// oldest first. Never fails; errors yield an empty batch.
func (f *Fetcher) FetchBatch(t category.Type, allowed *contacts.GroupIDs, limit int) []record.Record {
	q, err := f.builder.BuildQuery(t, allowed, limit)
	if err != nil {
		f.logger.Warn("could not build query", zap.Stringer("category", t), zap.Error(err))
		return nil
	}
	recs, err := f.db.QueryRecords(q)
	if err != nil {
		f.logger.Warn("local store read failed", zap.Stringer("category", t), zap.Error(err))
		return nil
	}
	return recs
}

// MostRecent probes the newest timestamp in a category's table, in the
// table's native unit. Returns the unsynced sentinel for an empty table.
func (f *Fetcher) MostRecent(t category.Type) int64 {
	ts, err := f.db.QueryTimestamp(f.builder.BuildMostRecentQuery(t), category.Unsynced)
	if err != nil {
		f.logger.Warn("most recent probe failed", zap.Stringer("category", t), zap.Error(err))
		return category.Unsynced
	}
	return ts
}

// FetchAll fetches one batch per category, splitting a positive item budget
// across categories in order: each category consumes part of the budget and
// later ones receive what remains.
func (f *Fetcher) FetchAll(types []category.Type, allowed *contacts.GroupIDs, max int) map[category.Type][]record.Record {
	batches := make(map[category.Type][]record.Record, len(types))
	remaining := max
	for _, t := range types {
		if max > 0 && remaining == 0 {
			batches[t] = nil
			continue
		}
		batch := f.FetchBatch(t, allowed, remaining)
		batches[t] = batch
		if max > 0 {
			remaining -= len(batch)
			if remaining < 0 {
				remaining = 0
			}
		}
	}
	return batches
}
