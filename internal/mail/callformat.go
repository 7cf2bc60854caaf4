package mail

import (
	"fmt"

	"github.com/smsvault/smsvault/internal/record"
)

// CallFormatter renders call log entries as human readable message bodies.
type CallFormatter struct{}

// Format renders the body for one call. Missed calls carry no duration line.
func (CallFormatter) Format(callType int, number string, duration int64) string {
	if callType == record.CallMissed {
		return fmt.Sprintf("%s (%s)", number, callTypeName(callType))
	}
	return fmt.Sprintf("%ds (%s)\n%s (%s)",
		duration, FormatDuration(duration), number, callTypeName(callType))
}

// FormatDuration renders seconds as HH:MM:SS.
func FormatDuration(seconds int64) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// CallTypeString describes a call for log output and subjects. With a name it
// reads "Call from Foo", without one it reads "incoming call".
func CallTypeString(callType int, name string) string {
	if name == "" {
		return callTypeName(callType)
	}
	switch callType {
	case record.CallOutgoing:
		return fmt.Sprintf("Called %s", name)
	case record.CallMissed:
		return fmt.Sprintf("Missed call from %s", name)
	default:
		return fmt.Sprintf("Call from %s", name)
	}
}

func callTypeName(callType int) string {
	switch callType {
	case record.CallOutgoing:
		return "outgoing call"
	case record.CallMissed:
		return "missed call"
	default:
		return "incoming call"
	}
}
