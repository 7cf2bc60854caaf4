package mail

import (
	"fmt"
	"strings"
	"time"

	"github.com/smsvault/smsvault/internal/category"
	"github.com/smsvault/smsvault/internal/contacts"
	"github.com/smsvault/smsvault/internal/localstore"
	"github.com/smsvault/smsvault/internal/record"
	"go.uber.org/zap"
)

// MultimediaLoader supplies the addresses and text parts of a multimedia
// message.
type MultimediaLoader interface {
	MultimediaDetails(id int64, owner string) (*localstore.MultimediaDetails, error)
}

// GeneratorConfig carries the per-run message rendering options.
type GeneratorConfig struct {
	// Owner is the mailbox owner; every message has them on one side.
	Owner *Address

	Style          AddressStyle
	PrefixSubjects bool

	// AllowedGroups restricts backup to contacts in a group. Nil means
	// everybody.
	AllowedGroups *contacts.GroupIDs

	// CallTypes restricts which call types are backed up ("incoming",
	// "outgoing", "missed"). Empty means all.
	CallTypes []string

	// FolderFor names the destination folder, used for subject prefixes.
	FolderFor func(category.Type) string
}

// MessageGenerator turns local records into mail messages. A nil message
// with a nil error means the record is intentionally skipped.
type MessageGenerator struct {
	cfg       GeneratorConfig
	headers   *HeaderGenerator
	lookup    *PersonLookup
	mms       MultimediaLoader
	callTypes map[int]bool
	format    CallFormatter
	logger    *zap.Logger
}

// NewMessageGenerator wires a generator from its collaborators.
func NewMessageGenerator(cfg GeneratorConfig, headers *HeaderGenerator, lookup *PersonLookup, mms MultimediaLoader, logger *zap.Logger) *MessageGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	var callTypes map[int]bool
	if len(cfg.CallTypes) > 0 {
		callTypes = make(map[int]bool, len(cfg.CallTypes))
		for _, name := range cfg.CallTypes {
			switch name {
			case "incoming":
				callTypes[record.CallIncoming] = true
			case "outgoing":
				callTypes[record.CallOutgoing] = true
			case "missed":
				callTypes[record.CallMissed] = true
			}
		}
	}
	return &MessageGenerator{
		cfg:       cfg,
		headers:   headers,
		lookup:    lookup,
		mms:       mms,
		callTypes: callTypes,
		logger:    logger,
	}
}

// MessageFor converts one record of the given category.
func (g *MessageGenerator) MessageFor(rec record.Record, t category.Type) (*Message, error) {
	switch t {
	case category.Text:
		return g.textMessage(rec)
	case category.Multimedia:
		return g.multimediaMessage(rec)
	case category.CallLog:
		return g.callLogMessage(rec)
	case category.Chat:
		return g.chatMessage(rec)
	default:
		return nil, fmt.Errorf("unknown category %v", t)
	}
}

func (g *MessageGenerator) textMessage(rec record.Record) (*Message, error) {
	address := strings.TrimSpace(rec.Get(record.FieldAddress))
	if address == "" {
		g.logger.Debug("skipping message without address", zap.String("id", rec.Get(record.FieldID)))
		return nil, nil
	}
	person := g.lookup.Lookup(address)
	if !g.included(person) {
		return nil, nil
	}

	inbound := rec.Int(record.FieldType) == record.MessageTypeInbox
	msg := &Message{
		Subject: g.subject(category.Text, person),
		Body:    rec.Get(record.FieldBody),
	}
	g.setParticipants(msg, person, inbound)

	sent := time.UnixMilli(rec.Int64(record.FieldDate))
	g.headers.SetHeaders(msg, rec, category.Text, address, person, sent, rec.Int(record.FieldType))
	return msg, nil
}

func (g *MessageGenerator) multimediaMessage(rec record.Record) (*Message, error) {
	details, err := g.mms.MultimediaDetails(rec.Int64(record.FieldID), g.cfg.Owner.Address)
	if err != nil {
		g.logger.Warn("skipping multimedia message",
			zap.String("id", rec.Get(record.FieldID)), zap.Error(err))
		return nil, nil
	}
	address := strings.TrimSpace(details.Address)
	if address == "" {
		return nil, nil
	}
	person := g.lookup.Lookup(address)
	if !g.included(person) {
		return nil, nil
	}

	msg := &Message{
		Subject: g.subject(category.Multimedia, person),
		Body:    details.Body,
	}
	if details.Inbound {
		msg.From = person.Address(g.cfg.Style)
		msg.To = []*Address{g.cfg.Owner}
	} else {
		msg.From = g.cfg.Owner
		for _, recipient := range details.Recipients {
			msg.To = append(msg.To, g.lookup.Lookup(recipient).Address(g.cfg.Style))
		}
	}

	// The multimedia table stores seconds.
	sent := time.Unix(rec.Int64(record.FieldDate), 0)
	g.headers.SetHeaders(msg, rec, category.Multimedia, address, person, sent, rec.Int(record.FieldMessageBox))
	return msg, nil
}

func (g *MessageGenerator) callLogMessage(rec record.Record) (*Message, error) {
	callType := rec.Int(record.FieldType)
	switch callType {
	case record.CallIncoming, record.CallOutgoing, record.CallMissed:
	default:
		g.logger.Debug("skipping call with unknown type", zap.Int("type", callType))
		return nil, nil
	}
	number := rec.Get(record.FieldNumber)
	person := g.lookup.Lookup(number)
	if g.callTypes != nil && !g.callTypes[callType] {
		g.logger.Debug("skipping filtered call",
			zap.String("call", CallTypeString(callType, person.Name())))
		return nil, nil
	}
	if !g.included(person) {
		return nil, nil
	}

	msg := &Message{
		Subject: g.subject(category.CallLog, person),
		Body:    g.format.Format(callType, person.Number(), rec.Int64(record.FieldDuration)),
	}
	g.setParticipants(msg, person, callType != record.CallOutgoing)

	sent := time.UnixMilli(rec.Int64(record.FieldDate))
	g.headers.SetHeaders(msg, rec, category.CallLog, number, person, sent, callType)
	return msg, nil
}

func (g *MessageGenerator) chatMessage(rec record.Record) (*Message, error) {
	if rec.Int("is_group") == 1 {
		return nil, nil
	}
	address := strings.TrimSpace(rec.Get(record.FieldAddress))
	if address == "" {
		return nil, nil
	}
	person := g.lookup.Lookup(address)
	if !g.included(person) {
		return nil, nil
	}

	inbound := rec.Int(record.FieldType) == record.MessageTypeInbox
	msg := &Message{
		Subject: g.subject(category.Chat, person),
		Body:    rec.Get(record.FieldBody),
	}
	g.setParticipants(msg, person, inbound)

	sent := time.UnixMilli(rec.Int64(record.FieldDate))
	g.headers.SetHeaders(msg, rec, category.Chat, address, person, sent, rec.Int(record.FieldType))
	return msg, nil
}

func (g *MessageGenerator) included(p *Person) bool {
	if g.cfg.AllowedGroups.Contains(p.ContactID()) {
		return true
	}
	g.logger.Debug("skipping message outside contact group", zap.String("person", p.String()))
	return false
}

func (g *MessageGenerator) setParticipants(msg *Message, person *Person, inbound bool) {
	if inbound {
		msg.From = person.Address(g.cfg.Style)
		msg.To = []*Address{g.cfg.Owner}
	} else {
		msg.From = g.cfg.Owner
		msg.To = []*Address{person.Address(g.cfg.Style)}
	}
}

func (g *MessageGenerator) subject(t category.Type, person *Person) string {
	if g.cfg.PrefixSubjects && g.cfg.FolderFor != nil {
		return fmt.Sprintf("[%s] %s", g.cfg.FolderFor(t), person.Name())
	}
	switch t {
	case category.CallLog:
		return fmt.Sprintf("Call with %s", person.Name())
	case category.Chat:
		return fmt.Sprintf("Chat with %s", person.Name())
	default:
		return fmt.Sprintf("SMS with %s", person.Name())
	}
}
