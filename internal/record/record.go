// Package record defines the flat field-map representation of one local item
// and the field vocabulary shared by the local store, the query builder and
// the codec.
package record

import "strconv"

// Record is one native item as produced by the local store: a flat mapping of
// column name to string value.
type Record map[string]string

// Common fields.
const (
	FieldID       = "_id"
	FieldDate     = "date"
	FieldType     = "type"
	FieldIdentity = "sub_id"
)

// Text / multimedia message fields.
const (
	FieldAddress       = "address"
	FieldBody          = "body"
	FieldThread        = "thread_id"
	FieldRead          = "read"
	FieldStatus        = "status"
	FieldProtocol      = "protocol"
	FieldServiceCenter = "service_center"
	FieldMessageBox    = "msg_box"
	FieldPerson        = "person"
)

// Call log fields.
const (
	FieldNumber     = "number"
	FieldDuration   = "duration"
	FieldNew        = "new"
	FieldCachedName = "cached_name"
)

// Text message type codes, as stored in the "type" column.
const (
	MessageTypeInbox = 1
	MessageTypeSent  = 2
	MessageTypeDraft = 3
)

// Call type codes.
const (
	CallIncoming = 1
	CallOutgoing = 2
	CallMissed   = 3
)

// Get returns the value for key, or "" when absent.
func (r Record) Get(key string) string {
	return r[key]
}

// Int returns the value for key parsed as an integer, or -1 when absent or
// malformed.
func (r Record) Int(key string) int {
	n, err := strconv.Atoi(r[key])
	if err != nil {
		return -1
	}
	return n
}

// Int64 returns the value for key parsed as a 64-bit integer, or -1 when
// absent or malformed.
func (r Record) Int64(key string) int64 {
	n, err := strconv.ParseInt(r[key], 10, 64)
	if err != nil {
		return -1
	}
	return n
}
