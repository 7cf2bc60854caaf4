package bus

import "time"

// Event represents a domain event published on the bus. Sync runs publish
// their state snapshots under the "backup." and "restore." namespaces.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
