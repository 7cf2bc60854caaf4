package mail

import (
	"errors"
	"testing"

	"github.com/smsvault/smsvault/internal/localstore"
)

type fakeResolver struct {
	contacts map[string]*localstore.Contact
	err      error
	calls    int
}

func (f *fakeResolver) LookupContact(number string) (*localstore.Contact, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.contacts[number], nil
}

func TestLookupResolved(t *testing.T) {
	r := &fakeResolver{contacts: map[string]*localstore.Contact{
		"+1555": {ID: 7, DisplayName: "Test Testor", Email: "test@example.com"},
	}}
	l := NewPersonLookup(r, nil)

	p := l.Lookup("+1555")
	if p.Unknown() {
		t.Fatal("resolved person reported unknown")
	}
	if p.Name() != "Test Testor" || p.Email() != "test@example.com" {
		t.Errorf("person = %v", p)
	}
	if p.RefID() != "7" {
		t.Errorf("RefID = %q, want 7", p.RefID())
	}
}

func TestLookupUnknown(t *testing.T) {
	l := NewPersonLookup(&fakeResolver{}, nil)
	p := l.Lookup("+1555")
	if !p.Unknown() {
		t.Fatal("unresolved person not reported unknown")
	}
	if p.Name() != "+1555" {
		t.Errorf("Name = %q, want number fallback", p.Name())
	}
	if p.Email() != "1555@unknown.email" {
		t.Errorf("Email = %q", p.Email())
	}
	if p.RefID() != "+1555" {
		t.Errorf("RefID = %q, want raw number", p.RefID())
	}
}

func TestLookupNeverFails(t *testing.T) {
	l := NewPersonLookup(&fakeResolver{err: errors.New("db gone")}, nil)
	p := l.Lookup("+1555")
	if p == nil || !p.Unknown() {
		t.Fatalf("lookup under error = %v, want unknown person", p)
	}
}

func TestLookupCaches(t *testing.T) {
	r := &fakeResolver{}
	l := NewPersonLookup(r, nil)

	l.Lookup("+1555")
	l.Lookup("+1555")
	if r.calls != 1 {
		t.Errorf("resolver calls = %d, want 1", r.calls)
	}

	l.Clear()
	l.Lookup("+1555")
	if r.calls != 2 {
		t.Errorf("resolver calls after clear = %d, want 2", r.calls)
	}
}

func TestNumberFallbacks(t *testing.T) {
	for _, n := range []string{"", "-1", "-2"} {
		p := NewPerson(0, "", "", n)
		if p.Number() != "Unknown" {
			t.Errorf("Number(%q) = %q, want Unknown", n, p.Number())
		}
	}
}

func TestAddressStyles(t *testing.T) {
	p := NewPerson(7, "Foo", "foo@example.com", "+1555")
	tests := []struct {
		style AddressStyle
		want  string
	}{
		{StyleName, "Foo"},
		{StyleNumber, "+1555"},
		{StyleNameAndNumber, "Foo (+1555)"},
	}
	for _, tc := range tests {
		addr := p.Address(tc.style)
		if addr.Name != tc.want {
			t.Errorf("style %v name = %q, want %q", tc.style, addr.Name, tc.want)
		}
		if addr.Address != "foo@example.com" {
			t.Errorf("style %v address = %q", tc.style, addr.Address)
		}
	}
}

func TestParseAddressStyle(t *testing.T) {
	if ParseAddressStyle("number") != StyleNumber {
		t.Error("number not parsed")
	}
	if ParseAddressStyle("name_and_number") != StyleNameAndNumber {
		t.Error("name_and_number not parsed")
	}
	if ParseAddressStyle("") != StyleName || ParseAddressStyle("bogus") != StyleName {
		t.Error("default style should be name")
	}
}
