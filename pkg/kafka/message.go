package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/reuniteio/reunite/pkg/models"
)

// Inbound event types published by the lost & found application.
const (
	EventItemReported = "item.reported"
	EventItemUpdated  = "item.updated"
	EventItemDeleted  = "item.deleted"
)

// ItemEvent is one item snapshot event from the surrounding application.
// The Item payload is the full snapshot; the matcher mirrors it rather than
// applying deltas.
type ItemEvent struct {
	EventType string       `json:"event_type"`
	ItemID    string       `json:"item_id"`
	Item      *models.Item `json:"item,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content
	ItemEvent *ItemEvent
}

// Parse decodes the message value into an ItemEvent. Two formats are
// accepted: the application's native event schema, and a Debezium CDC
// envelope over the application's items table (for deployments that stream
// the upstream database instead of emitting events directly).
func (m *IncomingMessage) Parse() error {
	if isDebeziumEnvelope(m.Value) {
		event, err := ParseDebeziumItemEvent(m.Value)
		if err != nil {
			return fmt.Errorf("debezium envelope: %w", err)
		}
		m.ItemEvent = event
		return nil
	}

	var event ItemEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return err
	}
	if event.EventType == "" {
		return fmt.Errorf("missing event_type")
	}
	if event.ItemID == "" && event.Item != nil {
		event.ItemID = event.Item.ID
	}
	if event.ItemID == "" {
		return fmt.Errorf("missing item_id")
	}
	m.ItemEvent = &event
	return nil
}

// IsDelete reports whether the parsed event is a tombstone.
func (m *IncomingMessage) IsDelete() bool {
	return m.ItemEvent != nil && m.ItemEvent.EventType == EventItemDeleted
}
