package kafka

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/reuniteio/reunite/pkg/models"
)

// DebeziumEnvelope is the standard Debezium CDC message format
type DebeziumEnvelope struct {
	Schema  json.RawMessage `json:"schema,omitempty"`
	Payload DebeziumPayload `json:"payload"`
}

// DebeziumPayload contains the before/after state of a row
type DebeziumPayload struct {
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
	Source DebeziumSource  `json:"source"`
	Op     string          `json:"op"` // c=create, u=update, d=delete, r=read (snapshot)
	TsMs   int64           `json:"ts_ms"`
}

// DebeziumSource contains metadata about the source of the change
type DebeziumSource struct {
	Version   string `json:"version"`
	Connector string `json:"connector"`
	Name      string `json:"name"`
	TsMs      int64  `json:"ts_ms"`
	Snapshot  string `json:"snapshot,omitempty"`
	Db        string `json:"db"`
	Schema    string `json:"schema"`
	Table     string `json:"table"`
}

// IsCreate returns true if this is a create operation
func (p *DebeziumPayload) IsCreate() bool {
	return p.Op == "c" || p.Op == "r"
}

// IsUpdate returns true if this is an update operation
func (p *DebeziumPayload) IsUpdate() bool {
	return p.Op == "u"
}

// IsDelete returns true if this is a delete operation
func (p *DebeziumPayload) IsDelete() bool {
	return p.Op == "d"
}

// itemRow is the upstream application's items table row as Debezium encodes
// it. Timestamps arrive as epoch microseconds; embedding and image hashes as
// JSON-encoded text columns.
type itemRow struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	OwnerID     string  `json:"owner_id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Category    string  `json:"category"`
	Subcategory *string `json:"subcategory"`
	Brand       *string `json:"brand"`
	Model       *string `json:"model"`
	Color       *string `json:"color"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	GeoCell     *string  `json:"geo_cell"`
	OccurredAt  *int64   `json:"occurred_at"`
	WindowStart *int64   `json:"window_start"`
	WindowEnd   *int64   `json:"window_end"`
	Embedding   *string  `json:"embedding"`
	ImageHashes *string  `json:"image_hashes"`
}

// isDebeziumEnvelope sniffs for the CDC payload wrapper without a full parse.
func isDebeziumEnvelope(value []byte) bool {
	return bytes.Contains(value, []byte(`"payload"`)) && bytes.Contains(value, []byte(`"op"`))
}

// ParseDebeziumItemEvent converts a CDC change on the upstream items table
// into the native ItemEvent the processor consumes.
func ParseDebeziumItemEvent(value []byte) (*ItemEvent, error) {
	var envelope DebeziumEnvelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return nil, err
	}
	payload := envelope.Payload

	if payload.IsDelete() {
		var before itemRow
		if len(payload.Before) == 0 {
			return nil, fmt.Errorf("delete event without before state")
		}
		if err := json.Unmarshal(payload.Before, &before); err != nil {
			return nil, err
		}
		return &ItemEvent{
			EventType: EventItemDeleted,
			ItemID:    before.ID,
			Timestamp: time.UnixMilli(payload.TsMs).UTC(),
		}, nil
	}

	if len(payload.After) == 0 {
		return nil, fmt.Errorf("%s event without after state", payload.Op)
	}
	var after itemRow
	if err := json.Unmarshal(payload.After, &after); err != nil {
		return nil, err
	}

	item, err := after.toModel()
	if err != nil {
		return nil, err
	}

	eventType := EventItemUpdated
	if payload.IsCreate() {
		eventType = EventItemReported
	}

	return &ItemEvent{
		EventType: eventType,
		ItemID:    item.ID,
		Item:      item,
		Timestamp: time.UnixMilli(payload.TsMs).UTC(),
	}, nil
}

func (r *itemRow) toModel() (*models.Item, error) {
	item := &models.Item{
		ID:          r.ID,
		Status:      models.ItemStatus(r.Status),
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Subcategory: r.Subcategory,
		Brand:       r.Brand,
		Model:       r.Model,
		Color:       r.Color,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		GeoCell:     r.GeoCell,
		OccurredAt:  epochMicrosToTime(r.OccurredAt),
		WindowStart: epochMicrosToTime(r.WindowStart),
		WindowEnd:   epochMicrosToTime(r.WindowEnd),
	}

	if r.Embedding != nil && *r.Embedding != "" {
		if err := json.Unmarshal([]byte(*r.Embedding), &item.Embedding); err != nil {
			return nil, fmt.Errorf("embedding column: %w", err)
		}
	}
	if r.ImageHashes != nil && *r.ImageHashes != "" {
		if err := json.Unmarshal([]byte(*r.ImageHashes), &item.ImageHashes); err != nil {
			return nil, fmt.Errorf("image_hashes column: %w", err)
		}
	}

	return item, nil
}

func epochMicrosToTime(micros *int64) *time.Time {
	if micros == nil {
		return nil
	}
	t := time.UnixMicro(*micros).UTC()
	return &t
}
