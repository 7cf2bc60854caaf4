package mail

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/smsvault/smsvault/internal/category"
	"github.com/smsvault/smsvault/internal/record"
)

// localDomain is the domain used for generated Message-Id and References
// values. It never resolves; it only has to be stable.
const localDomain = "smsvault.local"

// backupTimeLayout renders the backup timestamp the way every prior client
// generation did, so existing mailboxes stay uniform.
const backupTimeLayout = "2 Jan 2006 15:04:05 GMT"

// HeaderGenerator writes the metadata headers onto outgoing messages.
type HeaderGenerator struct {
	reference string
	version   string
	now       func() time.Time
}

// NewHeaderGenerator creates a generator. The reference value ties all
// messages of one installation together via the References header.
func NewHeaderGenerator(reference, version string) *HeaderGenerator {
	return &HeaderGenerator{reference: reference, version: version, now: time.Now}
}

// SetHeaders stamps the shared and per-category metadata headers. The sent
// date is always epoch milliseconds, status is the numeric message or call
// type.
func (g *HeaderGenerator) SetHeaders(msg *Message, rec record.Record, t category.Type, address string, person *Person, sent time.Time, status int) {
	msg.SetHeader(HdrAddress, Sanitize(address))
	msg.SetHeader(HdrDataType, t.WireName())
	msg.SetHeader(HdrBackupTime, g.now().UTC().Format(backupTimeLayout))
	msg.SetHeader(HdrVersion, g.version)
	msg.Date = sent

	switch t {
	case category.Text:
		g.setTextHeaders(msg, rec)
	case category.Multimedia:
		g.setMultimediaHeaders(msg, rec)
	case category.CallLog:
		g.setCallLogHeaders(msg, rec)
	case category.Chat:
		g.setChatHeaders(msg, rec, status)
	}

	msg.SetHeader(HdrMessageID, messageID(sent, address, status))
	if person != nil {
		msg.SetHeader(HdrReferences,
			fmt.Sprintf("<%s.%s@%s>", g.reference, person.RefID(), localDomain))
	}
}

func (g *HeaderGenerator) setTextHeaders(msg *Message, rec record.Record) {
	msg.SetHeader(HdrID, rec.Get(record.FieldID))
	msg.SetHeader(HdrType, rec.Get(record.FieldType))
	msg.SetHeader(HdrDate, rec.Get(record.FieldDate))
	msg.SetHeader(HdrThread, rec.Get(record.FieldThread))
	msg.SetHeader(HdrRead, rec.Get(record.FieldRead))
	msg.SetHeader(HdrStatus, rec.Get(record.FieldStatus))
	msg.SetHeader(HdrProtocol, rec.Get(record.FieldProtocol))
	msg.SetHeader(HdrServiceCenter, rec.Get(record.FieldServiceCenter))
}

func (g *HeaderGenerator) setMultimediaHeaders(msg *Message, rec record.Record) {
	msg.SetHeader(HdrID, rec.Get(record.FieldID))
	msg.SetHeader(HdrType, rec.Get(record.FieldMessageBox))
	msg.SetHeader(HdrDate, rec.Get(record.FieldDate))
	msg.SetHeader(HdrThread, rec.Get(record.FieldThread))
	msg.SetHeader(HdrRead, rec.Get(record.FieldRead))
}

func (g *HeaderGenerator) setCallLogHeaders(msg *Message, rec record.Record) {
	msg.SetHeader(HdrID, rec.Get(record.FieldID))
	msg.SetHeader(HdrType, rec.Get(record.FieldType))
	msg.SetHeader(HdrDate, rec.Get(record.FieldDate))
	msg.SetHeader(HdrDuration, rec.Get(record.FieldDuration))
}

func (g *HeaderGenerator) setChatHeaders(msg *Message, rec record.Record, status int) {
	msg.SetHeader(HdrDate, rec.Get(record.FieldDate))
	msg.SetHeader(HdrType, strconv.Itoa(status))
	msg.SetHeader(HdrStatus, strconv.Itoa(status))
}

// messageID derives a stable id from the sent time, address and type, so one
// source record always maps to the same Message-Id.
func messageID(sent time.Time, address string, status int) string {
	h := md5.New()
	h.Write([]byte(strconv.FormatInt(sent.UnixMilli(), 10)))
	h.Write([]byte(address))
	h.Write([]byte(strconv.Itoa(status)))
	return fmt.Sprintf("<%s@%s>", hex.EncodeToString(h.Sum(nil)), localDomain)
}
