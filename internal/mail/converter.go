package mail

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smsvault/smsvault/internal/category"
	"github.com/smsvault/smsvault/internal/record"
	"go.uber.org/zap"
)

// MarkAsRead selects the seen flag policy for appended messages.
type MarkAsRead string

const (
	MarkRead          MarkAsRead = "read"
	MarkUnread        MarkAsRead = "unread"
	MarkMessageStatus MarkAsRead = "message_status"
)

// ParseMarkAsRead maps a config value to a policy, defaulting to the
// message's own read status.
func ParseMarkAsRead(s string) MarkAsRead {
	switch MarkAsRead(s) {
	case MarkRead, MarkUnread:
		return MarkAsRead(s)
	default:
		return MarkMessageStatus
	}
}

// UnsupportedRestoreError marks a message whose category cannot be written
// back to the local store.
type UnsupportedRestoreError struct {
	Type category.Type
}

func (e *UnsupportedRestoreError) Error() string {
	return fmt.Sprintf("restore of %s messages is not supported", e.Type)
}

// ThreadResolver assigns restored messages to conversation threads.
type ThreadResolver interface {
	ThreadID(address string) (int64, error)
}

// ConversionResult is one converted batch plus the largest source timestamp
// seen, in the category's native unit.
type ConversionResult struct {
	MaxDate  int64
	Messages []*Message
}

// Converter translates between local records and mail messages in both
// directions.
type Converter struct {
	gen               *MessageGenerator
	lookup            *PersonLookup
	threads           ThreadResolver
	markAsRead        MarkAsRead
	markReadOnRestore bool
	logger            *zap.Logger
}

// NewConverter wires a converter from its collaborators.
func NewConverter(gen *MessageGenerator, lookup *PersonLookup, threads ThreadResolver, markAsRead MarkAsRead, markReadOnRestore bool, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		gen:               gen,
		lookup:            lookup,
		threads:           threads,
		markAsRead:        markAsRead,
		markReadOnRestore: markReadOnRestore,
		logger:            logger,
	}
}

// ConvertRecords renders a batch of records. Skipped records do not appear in
// the result and do not advance MaxDate, so the watermark can only move past
// timestamps that were actually sent.
func (c *Converter) ConvertRecords(batch []record.Record, t category.Type) (*ConversionResult, error) {
	result := &ConversionResult{MaxDate: category.Unsynced}
	for _, rec := range batch {
		msg, err := c.gen.MessageFor(rec, t)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			continue
		}
		if date := rec.Int64(record.FieldDate); date > result.MaxDate {
			result.MaxDate = date
		}
		msg.Seen = c.seen(rec)
		result.Messages = append(result.Messages, msg)
	}
	return result, nil
}

func (c *Converter) seen(rec record.Record) bool {
	switch c.markAsRead {
	case MarkRead:
		return true
	case MarkUnread:
		return false
	default:
		return rec.Int(record.FieldRead) == 1
	}
}

// Classify determines the category a fetched message belongs to. Messages
// written before the datatype header existed carry a type marker instead.
func Classify(msg *Message) category.Type {
	if t, ok := category.ParseWire(msg.Header(HdrDataType)); ok {
		return t
	}
	if strings.EqualFold(msg.Header(HdrType), legacyMultimediaMarker) {
		return category.Multimedia
	}
	return category.Text
}

// MessageToRecord rebuilds the local record behind a fetched message.
// Categories that cannot be restored yield an UnsupportedRestoreError.
func (c *Converter) MessageToRecord(msg *Message) (record.Record, category.Type, error) {
	t := Classify(msg)
	switch t {
	case category.Text:
		rec, err := c.textRecord(msg)
		return rec, t, err
	case category.CallLog:
		rec, err := c.callRecord(msg)
		return rec, t, err
	default:
		return nil, t, &UnsupportedRestoreError{Type: t}
	}
}

func (c *Converter) textRecord(msg *Message) (record.Record, error) {
	if msg.Body == "" {
		return nil, fmt.Errorf("message %q has no body", msg.Header(HdrMessageID))
	}
	address := msg.Header(HdrAddress)
	threadID, err := c.threads.ThreadID(address)
	if err != nil {
		return nil, fmt.Errorf("resolve thread for %q: %w", address, err)
	}

	rec := record.Record{
		record.FieldBody:    msg.Body,
		record.FieldAddress: address,
		record.FieldType:    headerOr(msg, HdrType, "0"),
		record.FieldDate:    headerOr(msg, HdrDate, "0"),
		record.FieldStatus:  headerOr(msg, HdrStatus, "-1"),
		record.FieldThread:  strconv.FormatInt(threadID, 10),
	}
	if c.markReadOnRestore {
		rec[record.FieldRead] = "1"
	} else {
		rec[record.FieldRead] = headerOr(msg, HdrRead, "1")
	}
	if v := msg.Header(HdrProtocol); v != "" {
		rec[record.FieldProtocol] = v
	}
	if v := msg.Header(HdrServiceCenter); v != "" {
		rec[record.FieldServiceCenter] = v
	}
	return rec, nil
}

func (c *Converter) callRecord(msg *Message) (record.Record, error) {
	number := msg.Header(HdrAddress)
	rec := record.Record{
		record.FieldNumber:   number,
		record.FieldType:     headerOr(msg, HdrType, "0"),
		record.FieldDate:     headerOr(msg, HdrDate, "0"),
		record.FieldDuration: headerOr(msg, HdrDuration, "0"),
		record.FieldNew:      "0",
	}
	person := c.lookup.Lookup(number)
	if !person.Unknown() {
		rec[record.FieldCachedName] = person.Name()
		rec["cached_number_type"] = "-2"
	}
	return rec, nil
}

func headerOr(msg *Message, key, fallback string) string {
	if v := msg.Header(key); v != "" {
		return v
	}
	return fallback
}
