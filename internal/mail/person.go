package mail

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/smsvault/smsvault/internal/localstore"
	"go.uber.org/zap"
)

const personCacheSize = 500

const unknownEmailDomain = "unknown.email"

// AddressStyle selects how a person is named in generated From/To headers.
type AddressStyle int

const (
	StyleName AddressStyle = iota
	StyleNumber
	StyleNameAndNumber
)

// ParseAddressStyle maps a config value to a style, defaulting to name.
func ParseAddressStyle(s string) AddressStyle {
	switch s {
	case "number":
		return StyleNumber
	case "name_and_number":
		return StyleNameAndNumber
	default:
		return StyleName
	}
}

// Person is the resolved identity behind an address or phone number.
type Person struct {
	id     int64
	name   string
	email  string
	number string
}

// NewPerson builds a resolved identity. An id of zero or less marks the
// person as unknown.
func NewPerson(id int64, name, email, number string) *Person {
	return &Person{
		id:     id,
		name:   Sanitize(name),
		email:  Sanitize(email),
		number: Sanitize(number),
	}
}

// Unknown reports whether the address could not be resolved to a contact.
func (p *Person) Unknown() bool { return p.id <= 0 }

// ContactID returns the opaque numeric identity.
func (p *Person) ContactID() int64 { return p.id }

// RefID is the stable identity used for threading references: the contact id
// when resolved, the raw number otherwise.
func (p *Person) RefID() string {
	if p.Unknown() {
		return p.number
	}
	return fmt.Sprintf("%d", p.id)
}

// Number returns the phone number, "Unknown" for unusable values.
func (p *Person) Number() string {
	if p.number == "" || p.number == "-1" || p.number == "-2" {
		return "Unknown"
	}
	return p.number
}

// Name returns the display name, falling back to the number.
func (p *Person) Name() string {
	if p.name != "" {
		return p.name
	}
	return p.Number()
}

// Email returns the real address when known, a synthesized one otherwise.
func (p *Person) Email() string {
	if p.email != "" {
		return p.email
	}
	local := encodeLocal(p.number)
	if local == "" {
		local = "unknown.number"
	}
	return local + "@" + unknownEmailDomain
}

// Address renders the person as a mail address using the given style.
func (p *Person) Address(style AddressStyle) *Address {
	var name string
	switch style {
	case StyleNumber:
		name = p.Number()
	case StyleNameAndNumber:
		name = p.nameWithNumber()
	case StyleName:
		name = p.Name()
	}
	return &Address{Name: name, Address: p.Email()}
}

func (p *Person) nameWithNumber() string {
	if p.name != "" {
		return fmt.Sprintf("%s (%s)", p.name, p.Number())
	}
	return p.Number()
}

func (p *Person) String() string {
	return fmt.Sprintf("[name=%s email=%s id=%d]", p.Name(), p.email, p.id)
}

// ContactResolver is the slice of the local store the lookup needs.
type ContactResolver interface {
	LookupContact(number string) (*localstore.Contact, error)
}

// PersonLookup resolves addresses to persons with a bounded LRU cache. The
// cache is scoped to one codec instance, i.e. one sync run.
type PersonLookup struct {
	resolver ContactResolver
	cache    *lru.Cache[string, *Person]
	logger   *zap.Logger
}

// NewPersonLookup creates a lookup backed by the given resolver.
func NewPersonLookup(resolver ContactResolver, logger *zap.Logger) *PersonLookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Capacity can only fail for non-positive sizes.
	cache, _ := lru.New[string, *Person](personCacheSize)
	return &PersonLookup{resolver: resolver, cache: cache, logger: logger}
}

// Lookup resolves an address. It never fails: lookup errors and unknown
// numbers both yield an unknown person.
func (l *PersonLookup) Lookup(address string) *Person {
	if address == "" {
		return NewPerson(0, "", "", "-1")
	}
	if p, ok := l.cache.Get(address); ok {
		return p
	}

	var person *Person
	c, err := l.resolver.LookupContact(address)
	switch {
	case err != nil:
		l.logger.Warn("contact lookup failed", zap.String("address", address), zap.Error(err))
		person = NewPerson(0, "", "", address)
	case c == nil:
		person = NewPerson(0, "", "", address)
	default:
		person = NewPerson(c.ID, c.DisplayName, c.Email, address)
	}
	l.cache.Add(address, person)
	return person
}

// Clear drops every cached person.
func (l *PersonLookup) Clear() {
	l.cache.Purge()
}
