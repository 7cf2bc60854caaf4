package imapx

import (
	"bytes"
	"context"
	"fmt"
	"net/textproto"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/smsvault/smsvault/internal/category"
	"github.com/smsvault/smsvault/internal/mail"
	"go.uber.org/zap"
)

const fetchChanSize = 10

// Folder is one remote mailbox bound to a category. It is created lazily on
// first use and cached by the store.
type Folder struct {
	store  *Store
	name   string
	t      category.Type
	logger *zap.Logger
}

// Name returns the remote mailbox name.
func (f *Folder) Name() string { return f.name }

// Append writes rendered messages to the mailbox, preserving their sent date
// and flags.
func (f *Folder) Append(ctx context.Context, msgs []*mail.Message) error {
	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := msg.Render()
		if err != nil {
			return fmt.Errorf("render message: %w", err)
		}
		var flags []string
		if msg.Seen {
			flags = append(flags, imap.SeenFlag)
		}
		if msg.Flagged {
			flags = append(flags, imap.FlaggedFlag)
		}
		date := msg.Date
		if date.IsZero() {
			date = time.Now()
		}
		if err := f.store.session.Append(f.name, flags, date, bytes.NewReader(raw)); err != nil {
			return fmt.Errorf("append to %s: %w", f.name, err)
		}
	}
	return nil
}

// Messages fetches the folder's messages for this category, oldest first.
// When more than max match, only the newest max are returned. A zero max
// means no limit, a zero since means no date filter.
func (f *Folder) Messages(ctx context.Context, max int, flaggedOnly bool, since time.Time) ([]*mail.Message, error) {
	if err := f.store.ensureSelected(f.name); err != nil {
		return nil, fmt.Errorf("select %s: %w", f.name, err)
	}
	uids, err := f.store.session.UidSearch(f.searchCriteria(flaggedOnly, since))
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", f.name, err)
	}
	f.logger.Debug("search finished", zap.String("folder", f.name), zap.Int("matches", len(uids)))
	if len(uids) == 0 {
		return nil, nil
	}

	if max > 0 && len(uids) > max {
		uids, err = f.newestUIDs(ctx, uids, max)
		if err != nil {
			return nil, err
		}
	}
	return f.fetchBodies(ctx, uids)
}

// searchCriteria builds the category filter. Text and multimedia messages
// predate the datatype header, so their queries carry a legacy branch:
// absence of the datatype header plus the old type signature (inbox/sent
// codes for text, the mms marker for multimedia).
func (f *Folder) searchCriteria(flaggedOnly bool, since time.Time) *imap.SearchCriteria {
	criteria := &imap.SearchCriteria{
		WithoutFlags: []string{imap.DeletedFlag},
	}
	if !since.IsZero() {
		criteria.SentSince = since
	}
	if flaggedOnly {
		criteria.WithFlags = []string{imap.FlaggedFlag}
	}

	datatype := textproto.CanonicalMIMEHeaderKey(mail.HdrDataType)
	typeHdr := textproto.CanonicalMIMEHeaderKey(mail.HdrType)
	tagged := &imap.SearchCriteria{
		Header: textproto.MIMEHeader{datatype: []string{f.t.WireName()}},
	}
	noDatatype := &imap.SearchCriteria{
		Header: textproto.MIMEHeader{datatype: []string{""}},
	}
	switch f.t {
	case category.Text:
		untagged := &imap.SearchCriteria{
			Not: []*imap.SearchCriteria{noDatatype},
			Or: [][2]*imap.SearchCriteria{{
				{Header: textproto.MIMEHeader{typeHdr: []string{"1"}}},
				{Header: textproto.MIMEHeader{typeHdr: []string{"2"}}},
			}},
		}
		criteria.Or = [][2]*imap.SearchCriteria{{tagged, untagged}}
	case category.Multimedia:
		legacy := &imap.SearchCriteria{
			Header: textproto.MIMEHeader{typeHdr: []string{"mms"}},
			Not:    []*imap.SearchCriteria{noDatatype},
		}
		criteria.Or = [][2]*imap.SearchCriteria{{tagged, legacy}}
	default:
		criteria.Header = textproto.MIMEHeader{datatype: []string{f.t.WireName()}}
	}
	return criteria
}

// newestUIDs fetches envelope dates for all matches and keeps the newest max,
// returned in ascending date order. Messages without a date sort oldest.
func (f *Folder) newestUIDs(ctx context.Context, uids []uint32, max int) ([]uint32, error) {
	type dated struct {
		uid  uint32
		date time.Time
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	ch := make(chan *imap.Message, fetchChanSize)
	done := make(chan error, 1)
	go func() {
		done <- f.store.session.UidFetch(seqset, []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope}, ch)
	}()

	all := make([]dated, 0, len(uids))
	for msg := range ch {
		d := dated{uid: msg.Uid, date: time.Unix(0, 0)}
		if msg.Envelope != nil && !msg.Envelope.Date.IsZero() {
			d.date = msg.Envelope.Date
		}
		all = append(all, d)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch envelopes in %s: %w", f.name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool { return all[i].date.After(all[j].date) })
	if len(all) > max {
		all = all[:max]
	}
	out := make([]uint32, len(all))
	for i, d := range all {
		out[len(all)-1-i] = d.uid
	}
	return out, nil
}

func (f *Folder) fetchBodies(ctx context.Context, uids []uint32) ([]*mail.Message, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchFlags, section.FetchItem()}

	ch := make(chan *imap.Message, fetchChanSize)
	done := make(chan error, 1)
	go func() {
		done <- f.store.session.UidFetch(seqset, items, ch)
	}()

	var out []*mail.Message
	for raw := range ch {
		body := raw.GetBody(section)
		if body == nil {
			f.logger.Warn("message without body section", zap.Uint32("uid", raw.Uid))
			continue
		}
		msg, err := mail.Parse(body)
		if err != nil {
			f.logger.Warn("skipping unparsable message", zap.Uint32("uid", raw.Uid), zap.Error(err))
			continue
		}
		msg.UID = raw.Uid
		for _, flag := range raw.Flags {
			switch flag {
			case imap.SeenFlag:
				msg.Seen = true
			case imap.FlaggedFlag:
				msg.Flagged = true
			}
		}
		out = append(out, msg)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch bodies in %s: %w", f.name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
