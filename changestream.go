// Package changestream forwards content-collection change events from a
// golly application into a Redis Stream for downstream indexing.
//
// The plugin classifies committed mutations by collection name, derives a
// tenant and entity kind from configured suffixes, and appends one stream
// entry per affected record. It is failure-opaque toward the host: a
// downstream outage never fails the host operation that produced the event.
package changestream

// Action is the kind of mutation a notification describes. Creates and
// updates both map to ActionUpsert; the consumer treats them identically.
type Action string

const (
	ActionUpsert Action = "upsert"
	ActionDelete Action = "delete"
)

// Notification describes one committed content mutation in the host
// application. Notifications are ephemeral; they are never persisted.
type Notification struct {
	Action     Action
	Collection string
	IDs        []string
}
