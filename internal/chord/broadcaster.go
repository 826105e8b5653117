package chord

// Lookup event types
const (
	EventLookupIssued    = "lookup_issued"
	EventLookupForwarded = "lookup_forwarded"
	EventLookupReplied   = "lookup_replied"
	EventLookupCompleted = "lookup_completed"
	EventLocallyDone     = "locally_done"
	EventTerminated      = "terminated"
)

// EventBroadcaster is an interface for broadcasting lookup progress.
// This allows a NodeService to notify external systems (like WebSocket
// clients) without creating circular dependencies.
type EventBroadcaster interface {
	// BroadcastLookupEvent sends a lookup event notification.
	BroadcastLookupEvent(event LookupEvent) error
}

// LookupEvent is one observable step of the simulation.
type LookupEvent struct {
	Type      string   `json:"type"`
	NodeID    uint64   `json:"node_id"`           // participant that produced the event
	Address   int      `json:"address"`           // its rank
	Initiator uint64   `json:"initiator"`         // lookup initiator, when the event concerns a lookup
	Seq       int      `json:"seq"`               // lookup sequence number
	Key       uint64   `json:"key"`               // lookup key
	Next      int      `json:"next"`              // address the message was sent to
	Path      []uint64 `json:"path,omitempty"`    // path so far
	Timestamp int64    `json:"timestamp"`         // Unix nanoseconds
	Message   string   `json:"message,omitempty"` // human-readable summary
}
