package mail

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	gomail "github.com/emersion/go-message/mail"
)

// Address is one mail participant.
type Address = gomail.Address

// Message is the protocol-level representation of one record: an ordinary
// mail message carrying the custom metadata headers. It renders to RFC 822
// bytes for append and is reconstructed from fetched bytes on restore.
type Message struct {
	Subject string
	From    *Address
	To      []*Address
	Date    time.Time
	Body    string

	// Flags applied on append.
	Seen    bool
	Flagged bool

	// UID of the message in its remote folder, set on fetch.
	UID uint32

	header map[string]string
}

// SetHeader sets a metadata header value.
func (m *Message) SetHeader(key, value string) {
	if m.header == nil {
		m.header = make(map[string]string)
	}
	m.header[strings.ToLower(key)] = value
}

// Header returns a metadata header value, "" when absent.
func (m *Message) Header(key string) string {
	return m.header[strings.ToLower(key)]
}

// knownHeaders is every metadata header carried across the wire.
var knownHeaders = []string{
	HdrID, HdrAddress, HdrDataType, HdrType, HdrDate, HdrThread, HdrRead,
	HdrStatus, HdrProtocol, HdrServiceCenter, HdrBackupTime, HdrVersion,
	HdrDuration, HdrReferences, HdrMessageID,
}

// Render produces the full RFC 822 form of the message.
func (m *Message) Render() ([]byte, error) {
	var h gomail.Header
	if !m.Date.IsZero() {
		h.SetDate(m.Date)
	}
	h.SetSubject(m.Subject)
	if m.From != nil {
		h.SetAddressList("From", []*Address{m.From})
	}
	if len(m.To) > 0 {
		h.SetAddressList("To", m.To)
	}
	for _, key := range knownHeaders {
		if v := m.Header(key); v != "" {
			h.Set(key, v)
		}
	}

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create writer: %w", err)
	}
	if _, err := io.WriteString(w, m.Body); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Parse reconstructs a Message from raw RFC 822 bytes.
func Parse(r io.Reader) (*Message, error) {
	mr, err := gomail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	defer func() { _ = mr.Close() }()

	m := &Message{}
	if subj, err := mr.Header.Subject(); err == nil {
		m.Subject = subj
	}
	if date, err := mr.Header.Date(); err == nil {
		m.Date = date
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		m.From = from[0]
	}
	if to, err := mr.Header.AddressList("To"); err == nil {
		m.To = to
	}
	for _, key := range knownHeaders {
		if v := mr.Header.Get(key); v != "" {
			m.SetHeader(key, v)
		}
	}

	var body strings.Builder
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse part: %w", err)
		}
		if _, ok := p.Header.(*gomail.InlineHeader); ok {
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return nil, fmt.Errorf("read body: %w", err)
			}
			body.Write(b)
		}
	}
	m.Body = body.String()
	return m, nil
}
