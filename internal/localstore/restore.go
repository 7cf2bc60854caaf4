package localstore

import (
	"fmt"

	"github.com/smsvault/smsvault/internal/record"
)

// TextMessageExists probes for a local text message matching on
// date + address + type. Restore uses it to stay idempotent.
func (db *DB) TextMessageExists(rec record.Record) (bool, error) {
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM messages
		WHERE date = ? AND address = ? AND type = ?`,
		rec.Get(record.FieldDate),
		rec.Get(record.FieldAddress),
		rec.Get(record.FieldType)).Scan(&n)
	return n > 0, err
}

// CallExists probes for a local call log entry matching on
// date + number + duration + type.
func (db *DB) CallExists(rec record.Record) (bool, error) {
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM calls
		WHERE date = ? AND number = ? AND duration = ? AND type = ?`,
		rec.Get(record.FieldDate),
		rec.Get(record.FieldNumber),
		rec.Get(record.FieldDuration),
		rec.Get(record.FieldType)).Scan(&n)
	return n > 0, err
}

// InsertTextMessage writes a reconstructed text record and returns its id.
func (db *DB) InsertTextMessage(rec record.Record) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO messages (thread_id, address, date, protocol, read, status, type, body, service_center)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Int64(record.FieldThread),
		rec.Get(record.FieldAddress),
		rec.Int64(record.FieldDate),
		nullable(rec, record.FieldProtocol),
		rec.Int(record.FieldRead),
		rec.Int(record.FieldStatus),
		rec.Int(record.FieldType),
		rec.Get(record.FieldBody),
		nullable(rec, record.FieldServiceCenter))
	if err != nil {
		return 0, fmt.Errorf("insert text message: %w", err)
	}
	return res.LastInsertId()
}

// InsertCall writes a reconstructed call log record and returns its id.
func (db *DB) InsertCall(rec record.Record) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO calls (number, date, duration, type, new, cached_name, cached_number_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Get(record.FieldNumber),
		rec.Int64(record.FieldDate),
		rec.Int64(record.FieldDuration),
		rec.Int(record.FieldType),
		rec.Int(record.FieldNew),
		nullable(rec, record.FieldCachedName),
		nullable(rec, "cached_number_type"))
	if err != nil {
		return 0, fmt.Errorf("insert call: %w", err)
	}
	return res.LastInsertId()
}

func nullable(rec record.Record, key string) any {
	if v, ok := rec[key]; ok {
		return v
	}
	return nil
}
