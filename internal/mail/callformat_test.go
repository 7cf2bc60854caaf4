package mail

import (
	"testing"

	"github.com/smsvault/smsvault/internal/record"
)

func TestFormatIncoming(t *testing.T) {
	var f CallFormatter
	got := f.Format(record.CallIncoming, "Foo", 100)
	want := "100s (00:01:40)\nFoo (incoming call)"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestFormatOutgoing(t *testing.T) {
	var f CallFormatter
	got := f.Format(record.CallOutgoing, "Foo", 100)
	want := "100s (00:01:40)\nFoo (outgoing call)"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestFormatMissedHasNoDuration(t *testing.T) {
	var f CallFormatter
	got := f.Format(record.CallMissed, "Foo", 100)
	want := "Foo (missed call)"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00:00"},
		{100, "00:01:40"},
		{1242, "00:20:42"},
		{3661, "01:01:01"},
	}
	for _, tc := range tests {
		if got := FormatDuration(tc.seconds); got != tc.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestCallTypeString(t *testing.T) {
	tests := []struct {
		callType int
		name     string
		want     string
	}{
		{record.CallIncoming, "Foo", "Call from Foo"},
		{record.CallOutgoing, "Foo", "Called Foo"},
		{record.CallMissed, "Foo", "Missed call from Foo"},
		{record.CallIncoming, "", "incoming call"},
		{record.CallOutgoing, "", "outgoing call"},
		{record.CallMissed, "", "missed call"},
	}
	for _, tc := range tests {
		if got := CallTypeString(tc.callType, tc.name); got != tc.want {
			t.Errorf("CallTypeString(%d, %q) = %q, want %q", tc.callType, tc.name, got, tc.want)
		}
	}
}
