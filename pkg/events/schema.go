package events

// EventType defines the type of event
type EventType string

const (
	// Item events (inbound from the surrounding application)
	EventTypeItemReported EventType = "item.reported"
	EventTypeItemUpdated  EventType = "item.updated"
	EventTypeItemDeleted  EventType = "item.deleted"

	// Match events (outbound)
	EventTypeMatchCreated EventType = "match.created"
	EventTypeMatchUpdated EventType = "match.updated"
	EventTypeMatchClaimed EventType = "match.claimed"
)
