package engine

import (
	"fmt"
	"strings"

	"github.com/smsvault/smsvault/internal/category"
	"github.com/smsvault/smsvault/internal/config"
	"github.com/smsvault/smsvault/internal/contacts"
	"github.com/smsvault/smsvault/internal/localstore"
	"github.com/smsvault/smsvault/internal/prefs"
	"github.com/smsvault/smsvault/internal/record"
)

// deliveryReportType marks multimedia delivery reports, which are never
// backed up.
const deliveryReportType = 134

// QueryBuilder produces the incremental fetch queries for one run. The
// watermark predicate always compares in each table's native time unit.
type QueryBuilder struct {
	prefs *prefs.Store
	cfg   *config.Config
}

// NewQueryBuilder creates a builder over the current preferences.
func NewQueryBuilder(p *prefs.Store, cfg *config.Config) *QueryBuilder {
	return &QueryBuilder{prefs: p, cfg: cfg}
}

// BuildQuery returns the descriptor fetching records newer than the
// category's watermark, oldest first, capped at limit when positive.
func (b *QueryBuilder) BuildQuery(t category.Type, allowed *contacts.GroupIDs, limit int) (*localstore.Query, error) {
	watermark, err := b.prefs.RawMaxSyncedDate(t)
	if err != nil {
		return nil, err
	}

	q := &localstore.Query{
		Table:   tableFor(t),
		Where:   "date > ?",
		Args:    []any{watermark},
		OrderBy: "date",
	}
	switch t {
	case category.Text:
		q.Where += fmt.Sprintf(" AND type <> %d", record.MessageTypeDraft)
		if allowed != nil {
			q.Where += groupPredicate(allowed)
		}
		b.addIdentity(q)
	case category.Multimedia:
		q.Where += fmt.Sprintf(" AND m_type <> %d", deliveryReportType)
		b.addIdentity(q)
	}
	if limit > 0 {
		q.OrderBy = fmt.Sprintf("date LIMIT %d", limit)
	}
	return q, nil
}

// BuildMostRecentQuery returns the descriptor probing the newest timestamp
// in a category's table, used to seed the watermark on a skip run.
func (b *QueryBuilder) BuildMostRecentQuery(t category.Type) *localstore.Query {
	return &localstore.Query{
		Table:   tableFor(t),
		Columns: []string{"date"},
		OrderBy: "date DESC LIMIT 1",
	}
}

// groupPredicate restricts backup to whitelisted senders. Outgoing messages
// always pass since they have no sender contact.
func groupPredicate(allowed *contacts.GroupIDs) string {
	ids := allowed.Raw()
	if len(ids) == 0 {
		return fmt.Sprintf(" AND type = %d", record.MessageTypeSent)
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf(" AND (type = %d OR person IN (%s))",
		record.MessageTypeSent, strings.Join(parts, ","))
}

// addIdentity narrows the query to one device identity when several are
// registered. With a single identity the predicate is omitted entirely.
func (b *QueryBuilder) addIdentity(q *localstore.Query) {
	if len(b.cfg.Backup.Identities) > 1 && b.cfg.Backup.Identity != "" {
		q.Where += " AND sub_id = ?"
		q.Args = append(q.Args, b.cfg.Backup.Identity)
	}
}

func tableFor(t category.Type) string {
	switch t {
	case category.Multimedia:
		return "multimedia"
	case category.CallLog:
		return "calls"
	case category.Chat:
		return "chats"
	default:
		return "messages"
	}
}
