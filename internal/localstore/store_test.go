package localstore

import (
	"path/filepath"
	"testing"

	"github.com/smsvault/smsvault/internal/record"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insertText(t *testing.T, db *DB, address string, date int64, msgType int, body string) {
	t.Helper()
	if _, err := db.Exec(
		`INSERT INTO messages (address, date, type, body, read) VALUES (?, ?, ?, ?, 1)`,
		address, date, msgType, body); err != nil {
		t.Fatal(err)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second migrate reported changes")
	}
}

func TestStateRoundTrip(t *testing.T) {
	db := testDB(t)

	if _, ok, err := db.GetState("missing"); err != nil || ok {
		t.Fatalf("GetState(missing) = (%v, %v)", ok, err)
	}
	if err := db.SetState("k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetState("k", "v2"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := db.GetState("k")
	if err != nil || !ok || v != "v2" {
		t.Fatalf("GetState(k) = (%q, %v, %v), want v2", v, ok, err)
	}
	if err := db.DeleteState("k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := db.GetState("k"); ok {
		t.Error("key still present after delete")
	}
}

func TestQueryRecords(t *testing.T) {
	db := testDB(t)
	insertText(t, db, "+1555", 100, 1, "first")
	insertText(t, db, "+1555", 200, 2, "second")

	recs, err := db.QueryRecords(&Query{
		Table:   "messages",
		Where:   "date > ?",
		Args:    []any{50},
		OrderBy: "date",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Get(record.FieldBody) != "first" || recs[1].Get(record.FieldBody) != "second" {
		t.Errorf("unexpected order: %q then %q",
			recs[0].Get(record.FieldBody), recs[1].Get(record.FieldBody))
	}
	if recs[1].Int64(record.FieldDate) != 200 {
		t.Errorf("date = %d, want 200", recs[1].Int64(record.FieldDate))
	}
}

func TestQueryTimestamp(t *testing.T) {
	db := testDB(t)

	q := &Query{Table: "messages", Columns: []string{"date"}, OrderBy: "date DESC LIMIT 1"}
	ts, err := db.QueryTimestamp(q, -1)
	if err != nil || ts != -1 {
		t.Fatalf("empty table timestamp = (%d, %v), want fallback -1", ts, err)
	}

	insertText(t, db, "+1555", 100, 1, "a")
	insertText(t, db, "+1555", 300, 1, "b")
	ts, err = db.QueryTimestamp(q, -1)
	if err != nil || ts != 300 {
		t.Fatalf("timestamp = (%d, %v), want 300", ts, err)
	}
}

func TestContacts(t *testing.T) {
	db := testDB(t)

	c, err := db.LookupContact("+1555")
	if err != nil || c != nil {
		t.Fatalf("unknown lookup = (%v, %v), want (nil, nil)", c, err)
	}

	id, err := db.UpsertContact(&Contact{DisplayName: "Foo", Number: "+1555", Email: "foo@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	c, err = db.LookupContact("+1555")
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.ID != id || c.DisplayName != "Foo" {
		t.Fatalf("lookup = %+v", c)
	}

	// Same number again: the row is updated in place, not duplicated.
	id2, err := db.UpsertContact(&Contact{DisplayName: "Bar", Number: "+1555", Email: "bar@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if id2 != id {
		t.Errorf("upsert id = %d, want %d", id2, id)
	}
	c, err = db.LookupContact("+1555")
	if err != nil {
		t.Fatal(err)
	}
	if c.DisplayName != "Bar" || c.Email != "bar@example.com" {
		t.Errorf("updated contact = %+v", c)
	}
	var rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM contacts WHERE number = '+1555'`).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Errorf("contact rows = %d, want 1", rows)
	}
}

func TestGroupContactIDs(t *testing.T) {
	db := testDB(t)

	ids, err := db.GroupContactIDs("")
	if err != nil || ids != nil {
		t.Fatalf("empty group name = (%v, %v), want (nil, nil)", ids, err)
	}

	cid, err := db.UpsertContact(&Contact{DisplayName: "Foo", Number: "+1555"})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AddToGroup(cid, "friends"); err != nil {
		t.Fatal(err)
	}
	ids, err = db.GroupContactIDs("friends")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != cid {
		t.Errorf("ids = %v, want [%d]", ids, cid)
	}

	ids, err = db.GroupContactIDs("nobody")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("unknown group ids = %v, want empty", ids)
	}
}

func TestTextMessageExistsAndInsert(t *testing.T) {
	db := testDB(t)
	rec := record.Record{
		record.FieldAddress: "+1555",
		record.FieldDate:    "1000",
		record.FieldType:    "1",
		record.FieldBody:    "hello",
		record.FieldRead:    "1",
		record.FieldThread:  "1",
		record.FieldStatus:  "-1",
	}

	exists, err := db.TextMessageExists(rec)
	if err != nil || exists {
		t.Fatalf("exists before insert = (%v, %v)", exists, err)
	}
	if _, err := db.InsertTextMessage(rec); err != nil {
		t.Fatal(err)
	}
	exists, err = db.TextMessageExists(rec)
	if err != nil || !exists {
		t.Fatalf("exists after insert = (%v, %v)", exists, err)
	}
}

func TestCallExistsAndInsert(t *testing.T) {
	db := testDB(t)
	rec := record.Record{
		record.FieldNumber:   "+12121",
		record.FieldDate:     "1419163218194",
		record.FieldDuration: "44",
		record.FieldType:     "2",
		record.FieldNew:      "0",
	}

	exists, err := db.CallExists(rec)
	if err != nil || exists {
		t.Fatalf("exists before insert = (%v, %v)", exists, err)
	}
	if _, err := db.InsertCall(rec); err != nil {
		t.Fatal(err)
	}
	exists, err = db.CallExists(rec)
	if err != nil || !exists {
		t.Fatalf("exists after insert = (%v, %v)", exists, err)
	}
}

func TestThreadRecompute(t *testing.T) {
	db := testDB(t)
	insertText(t, db, "+1555", 100, 1, "a")
	insertText(t, db, "+1555", 200, 2, "b")
	insertText(t, db, "+1666", 300, 1, "c")

	// Negative id triggers the recompute sentinel.
	if err := db.DeleteConversation(-1); err != nil {
		t.Fatal(err)
	}

	id1, err := db.ThreadID("+1555")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := db.ThreadID("+1666")
	if err != nil {
		t.Fatal(err)
	}
	if id1 == id2 {
		t.Error("distinct addresses share a thread")
	}

	var count int
	var snippet string
	if err := db.QueryRow(
		`SELECT message_count, snippet FROM threads WHERE _id = ?`, id1).Scan(&count, &snippet); err != nil {
		t.Fatal(err)
	}
	if count != 2 || snippet != "b" {
		t.Errorf("thread aggregate = (%d, %q), want (2, b)", count, snippet)
	}

	var assigned int
	if err := db.QueryRow(
		`SELECT COUNT(*) FROM messages WHERE thread_id = ?`, id1).Scan(&assigned); err != nil {
		t.Fatal(err)
	}
	if assigned != 2 {
		t.Errorf("messages assigned to thread = %d, want 2", assigned)
	}
}

func TestMultimediaDetails(t *testing.T) {
	db := testDB(t)
	if _, err := db.Exec(
		`INSERT INTO multimedia (_id, date, msg_box, m_type) VALUES (1, 1419163218, 1, 132)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(
		`INSERT INTO multimedia_addresses (message_id, address, kind) VALUES (1, '+1555', ?), (1, 'me@example.com', ?)`,
		MultimediaAddrFrom, MultimediaAddrTo); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(
		`INSERT INTO multimedia_parts (message_id, seq, content_type, text) VALUES (1, 0, 'text/plain', 'part one'), (1, 1, 'text/plain', 'part two'), (1, 2, 'image/png', NULL)`); err != nil {
		t.Fatal(err)
	}

	d, err := db.MultimediaDetails(1, "me@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Inbound {
		t.Error("message with foreign sender should be inbound")
	}
	if d.Address != "+1555" {
		t.Errorf("address = %q, want +1555", d.Address)
	}
	if d.Body != "part one\npart two" {
		t.Errorf("body = %q", d.Body)
	}
}

func TestMultimediaDetailsOutbound(t *testing.T) {
	db := testDB(t)
	if _, err := db.Exec(
		`INSERT INTO multimedia (_id, date, msg_box, m_type) VALUES (2, 1419163218, 2, 128)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(
		`INSERT INTO multimedia_addresses (message_id, address, kind) VALUES (2, 'me@example.com', ?), (2, '+1555', ?), (2, '+1666', ?)`,
		MultimediaAddrFrom, MultimediaAddrTo, MultimediaAddrTo); err != nil {
		t.Fatal(err)
	}

	d, err := db.MultimediaDetails(2, "me@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if d.Inbound {
		t.Error("own sender should be outbound")
	}
	if d.Address != "+1555" {
		t.Errorf("address = %q, want first recipient", d.Address)
	}
	if len(d.Recipients) != 2 {
		t.Errorf("recipients = %v", d.Recipients)
	}
}
