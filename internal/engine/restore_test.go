package engine

import (
	"context"
	"strconv"
	"testing"

	"github.com/smsvault/smsvault/internal/category"
	"github.com/smsvault/smsvault/internal/record"
)

func newRestoreTask(e *testEnv, connect ConnectFunc) *RestoreTask {
	conv, lookup := e.codec()
	return NewRestoreTask(e.db, conv, lookup, e.prefs, connect, nil, nil)
}

// renderRecord runs a record through the codec and returns the rendered
// message, the same bytes a backup would have appended.
func renderRecord(t *testing.T, e *testEnv, rec record.Record, typ category.Type) []byte {
	t.Helper()
	conv, _ := e.codec()
	result, err := conv.ConvertRecords([]record.Record{rec}, typ)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(result.Messages))
	}
	raw, err := result.Messages[0].Render()
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func textMessageBytes(t *testing.T, e *testEnv, address string, date int64, msgType int, body string) []byte {
	t.Helper()
	return renderRecord(t, e, record.Record{
		record.FieldAddress: address,
		record.FieldBody:    body,
		record.FieldDate:    strconv.FormatInt(date, 10),
		record.FieldType:    strconv.Itoa(msgType),
		record.FieldRead:    "1",
	}, category.Text)
}

func callMessageBytes(t *testing.T, e *testEnv, number string, date, duration int64, callType int) []byte {
	t.Helper()
	return renderRecord(t, e, record.Record{
		record.FieldNumber:   number,
		record.FieldDate:     strconv.FormatInt(date, 10),
		record.FieldDuration: strconv.FormatInt(duration, 10),
		record.FieldType:     strconv.Itoa(callType),
	}, category.CallLog)
}

func TestRestoreTextRun(t *testing.T) {
	env := newTestEnv(t)
	session := newStubSession()
	session.addMessage(textMessageBytes(t, env, "+1555", 1419163218194, 1, "hello there"))

	task := newRestoreTask(env, connectTo(session))
	state := task.Run(context.Background(), RestoreConfig{Text: true})
	if state.Phase != PhaseFinishedRestore {
		t.Fatalf("phase = %v, err = %v", state.Phase, state.Err)
	}
	if state.Current != 1 || state.Total != 1 {
		t.Errorf("progress = %d/%d, want 1/1", state.Current, state.Total)
	}

	var count int
	if err := env.db.QueryRow(
		`SELECT COUNT(*) FROM messages WHERE address = '+1555' AND date = 1419163218194 AND body = 'hello there'`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("inserted rows = %d, want 1", count)
	}

	// An SMS insert triggers the conversation recompute.
	threads, err := env.db.ThreadCount()
	if err != nil {
		t.Fatal(err)
	}
	if threads != 1 {
		t.Errorf("threads = %d, want 1", threads)
	}

	wm, err := env.prefs.MaxSyncedDate(category.Text)
	if err != nil {
		t.Fatal(err)
	}
	if wm != 1419163218194 {
		t.Errorf("watermark = %d, want advanced past the restored item", wm)
	}
}

func TestRestoreIdempotent(t *testing.T) {
	env := newTestEnv(t)
	session := newStubSession()
	session.addMessage(callMessageBytes(t, env, "+12121", 1419163218194, 44, 2))

	state := newRestoreTask(env, connectTo(session)).Run(context.Background(), RestoreConfig{CallLog: true})
	if state.Phase != PhaseFinishedRestore || state.Current != 1 {
		t.Fatalf("first run = %v %d/%d, err = %v", state.Phase, state.Current, state.Total, state.Err)
	}

	state = newRestoreTask(env, connectTo(session)).Run(context.Background(), RestoreConfig{CallLog: true})
	if state.Phase != PhaseFinishedRestore {
		t.Fatalf("second run phase = %v, err = %v", state.Phase, state.Err)
	}
	if state.Current != 0 {
		t.Errorf("second run restored = %d, want 0", state.Current)
	}

	var count int
	if err := env.db.QueryRow(`SELECT COUNT(*) FROM calls`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("call rows = %d, want 1", count)
	}
}

func TestRestoreSkipsDrafts(t *testing.T) {
	env := newTestEnv(t)
	session := newStubSession()
	session.addMessage(textMessageBytes(t, env, "+1555", 2000, record.MessageTypeDraft, "unsent"))

	state := newRestoreTask(env, connectTo(session)).Run(context.Background(), RestoreConfig{Text: true})
	if state.Phase != PhaseFinishedRestore {
		t.Fatalf("phase = %v, err = %v", state.Phase, state.Err)
	}
	if state.Current != 0 {
		t.Errorf("restored = %d, want 0", state.Current)
	}

	var count int
	if err := env.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("message rows = %d, want 0", count)
	}

	// No insert, no thread recompute.
	threads, err := env.db.ThreadCount()
	if err != nil {
		t.Fatal(err)
	}
	if threads != 0 {
		t.Errorf("threads = %d, want 0", threads)
	}
}

func TestRestoreMaxRestoreCap(t *testing.T) {
	env := newTestEnv(t)
	session := newStubSession()
	for i := int64(1); i <= 3; i++ {
		session.addMessage(textMessageBytes(t, env, "+1555", i*1000, 1, "msg"))
	}

	state := newRestoreTask(env, connectTo(session)).Run(context.Background(), RestoreConfig{Text: true, MaxRestore: 2})
	if state.Phase != PhaseFinishedRestore {
		t.Fatalf("phase = %v, err = %v", state.Phase, state.Err)
	}
	if state.Total != 2 || state.Current != 2 {
		t.Errorf("progress = %d/%d, want 2/2", state.Current, state.Total)
	}
}

func TestRestoreCanceled(t *testing.T) {
	env := newTestEnv(t)
	session := newStubSession()
	session.addMessage(textMessageBytes(t, env, "+1555", 1000, 1, "msg"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state := newRestoreTask(env, connectTo(session)).Run(ctx, RestoreConfig{Text: true})
	if state.Phase != PhaseCanceledRestore {
		t.Fatalf("phase = %v, err = %v", state.Phase, state.Err)
	}

	var count int
	if err := env.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Error("canceled run must not insert")
	}
}

func TestRestoreValidate(t *testing.T) {
	env := newTestEnv(t)
	state := newRestoreTask(env, failConnect(t)).Run(context.Background(), RestoreConfig{})
	if state.Phase != PhaseError {
		t.Fatalf("phase = %v", state.Phase)
	}
}
