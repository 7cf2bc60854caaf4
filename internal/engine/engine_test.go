package engine

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/smsvault/smsvault/internal/config"
	"github.com/smsvault/smsvault/internal/imapx"
	"github.com/smsvault/smsvault/internal/localstore"
	"github.com/smsvault/smsvault/internal/mail"
	"github.com/smsvault/smsvault/internal/prefs"
)

type testEnv struct {
	t     *testing.T
	cfg   *config.Config
	db    *localstore.DB
	prefs *prefs.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{Owner: "owner@example.com", DataDir: dir}
	db, err := localstore.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &testEnv{t: t, cfg: cfg, db: db, prefs: prefs.New(db, cfg)}
}

func (e *testEnv) codec() (*mail.Converter, *mail.PersonLookup) {
	lookup := mail.NewPersonLookup(e.db, nil)
	headers := mail.NewHeaderGenerator("ref", "1.0.0")
	gen := mail.NewMessageGenerator(mail.GeneratorConfig{
		Owner:     &mail.Address{Name: e.cfg.Owner, Address: e.cfg.Owner},
		FolderFor: e.prefs.Folder,
	}, headers, lookup, e.db, nil)
	return mail.NewConverter(gen, lookup, e.db, mail.MarkMessageStatus, false, nil), lookup
}

func (e *testEnv) fetcher() *Fetcher {
	return NewFetcher(e.db, NewQueryBuilder(e.prefs, e.cfg), nil)
}

func (e *testEnv) insertText(address string, date int64, msgType int, body string) {
	e.t.Helper()
	if _, err := e.db.Exec(
		`INSERT INTO messages (address, date, type, body, read) VALUES (?, ?, ?, ?, 1)`,
		address, date, msgType, body); err != nil {
		e.t.Fatal(err)
	}
}

func (e *testEnv) insertCall(number string, date, duration int64, callType int) {
	e.t.Helper()
	if _, err := e.db.Exec(
		`INSERT INTO calls (number, date, duration, type) VALUES (?, ?, ?, ?)`,
		number, date, duration, callType); err != nil {
		e.t.Fatal(err)
	}
}

func (e *testEnv) insertContact(name, number string) {
	e.t.Helper()
	if _, err := e.db.UpsertContact(&localstore.Contact{DisplayName: name, Number: number}); err != nil {
		e.t.Fatal(err)
	}
}

type stubAppend struct {
	mbox string
	raw  []byte
}

// stubSession is an in-memory IMAP server with one flat message list, served
// to every folder regardless of search criteria.
type stubSession struct {
	folders map[string]bool
	uids    []uint32
	bodies  map[uint32][]byte
	appends []stubAppend
}

func newStubSession() *stubSession {
	return &stubSession{
		folders: make(map[string]bool),
		bodies:  make(map[uint32][]byte),
	}
}

func (s *stubSession) addMessage(raw []byte) {
	uid := uint32(len(s.uids) + 1)
	s.uids = append(s.uids, uid)
	s.bodies[uid] = raw
}

func (s *stubSession) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	s.folders[name] = true
	return &imap.MailboxStatus{Name: name}, nil
}

func (s *stubSession) Create(name string) error {
	s.folders[name] = true
	return nil
}

func (s *stubSession) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	return s.uids, nil
}

func (s *stubSession) UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	defer close(ch)
	for _, uid := range s.uids {
		if !seqset.Contains(uid) {
			continue
		}
		section := &imap.BodySectionName{}
		ch <- &imap.Message{
			Uid:  uid,
			Body: map[*imap.BodySectionName]imap.Literal{section: bytes.NewBuffer(s.bodies[uid])},
		}
	}
	return nil
}

func (s *stubSession) Append(mbox string, flags []string, date time.Time, msg imap.Literal) error {
	raw := make([]byte, msg.Len())
	if _, err := msg.Read(raw); err != nil {
		return err
	}
	s.appends = append(s.appends, stubAppend{mbox: mbox, raw: raw})
	return nil
}

func (s *stubSession) Logout() error { return nil }

func connectTo(session *stubSession) ConnectFunc {
	return func(ctx context.Context) (*imapx.Store, error) {
		return imapx.NewStore(session, nil), nil
	}
}

func failConnect(t *testing.T) ConnectFunc {
	return func(ctx context.Context) (*imapx.Store, error) {
		t.Fatal("unexpected connect")
		return nil, nil
	}
}
