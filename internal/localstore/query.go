package localstore

import (
	"database/sql"
	"strings"

	"github.com/smsvault/smsvault/internal/record"
)

// Query is a backend-agnostic query descriptor: target table, optional column
// projection, filter predicate with positional args, and the full ordering
// clause (which may carry a LIMIT, matching how callers cap result sets).
type Query struct {
	Table   string
	Columns []string
	Where   string
	Args    []any
	OrderBy string
}

func (q *Query) sql() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(q.Columns, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(q.Table)
	if q.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(q.Where)
	}
	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.OrderBy)
	}
	return b.String()
}

// QueryRecords executes a descriptor and returns every row as a flat
// column-to-string map, the shape the codec consumes.
func (db *DB) QueryRecords(q *Query) ([]record.Record, error) {
	rows, err := db.Query(q.sql(), q.Args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []record.Record
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rec := make(record.Record, len(cols))
		for i, col := range cols {
			if values[i].Valid {
				rec[col] = values[i].String
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// QueryTimestamp executes a descriptor expected to yield a single timestamp
// column. Returns fallback when the result set is empty.
func (db *DB) QueryTimestamp(q *Query, fallback int64) (int64, error) {
	recs, err := db.QueryRecords(q)
	if err != nil {
		return fallback, err
	}
	if len(recs) == 0 || len(q.Columns) == 0 {
		return fallback, nil
	}
	return recs[0].Int64(q.Columns[0]), nil
}
