package models

import (
	"time"
)

// ItemStatus is the lifecycle state of a reported item
type ItemStatus string

const (
	ItemStatusLost    ItemStatus = "lost"
	ItemStatusFound   ItemStatus = "found"
	ItemStatusClaimed ItemStatus = "claimed"
	ItemStatusClosed  ItemStatus = "closed"
)

// Opposite returns the counterpart status for matching: lost pairs with found.
// Returns "" for statuses that are not matchable.
func (s ItemStatus) Opposite() ItemStatus {
	switch s {
	case ItemStatusLost:
		return ItemStatusFound
	case ItemStatusFound:
		return ItemStatusLost
	default:
		return ""
	}
}

// Matchable reports whether an item with this status can enter a ranking call.
func (s ItemStatus) Matchable() bool {
	return s == ItemStatusLost || s == ItemStatusFound
}

// ImageHash carries the perceptual hashes computed upstream for one media asset.
// Each hash is a hex-encoded 64-bit value; absent kinds are nil.
type ImageHash struct {
	MediaID string  `json:"media_id"`
	PHash   *string `json:"phash,omitempty"`
	DHash   *string `json:"dhash,omitempty"`
	AHash   *string `json:"ahash,omitempty"`
	WHash   *string `json:"whash,omitempty"`
}

// Item is the matcher's read model of a reported item. Rows are written by the
// ingestion pipeline and treated as immutable snapshots for the duration of a
// ranking call.
type Item struct {
	ID          string     `json:"id" db:"id"`
	Status      ItemStatus `json:"status" db:"status"`
	OwnerID     string     `json:"owner_id" db:"owner_id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	Category    string     `json:"category" db:"category"`
	Subcategory *string    `json:"subcategory,omitempty" db:"subcategory"`
	Brand       *string    `json:"brand,omitempty" db:"brand"`
	Model       *string    `json:"model,omitempty" db:"model"`
	Color       *string    `json:"color,omitempty" db:"color"`

	// Location is optional; GeoCell is precomputed upstream or derived at
	// ingestion when coordinates are present.
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`
	GeoCell   *string  `json:"geo_cell,omitempty" db:"geo_cell"`

	// OccurredAt is when the item was lost or found. WindowStart/WindowEnd
	// bound an explicit uncertainty window when the reporter gave one.
	OccurredAt  *time.Time `json:"occurred_at,omitempty" db:"occurred_at"`
	WindowStart *time.Time `json:"window_start,omitempty" db:"window_start"`
	WindowEnd   *time.Time `json:"window_end,omitempty" db:"window_end"`

	// Embedding and ImageHashes are attached by upstream providers; the
	// matcher never computes them.
	Embedding   []float64   `json:"embedding,omitempty" db:"-"`
	ImageHashes []ImageHash `json:"image_hashes,omitempty" db:"-"`

	Fingerprint string     `json:"fingerprint,omitempty" db:"fingerprint"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// EventTime returns the best-known time of the loss/find event, falling back
// to the report creation time. Used for recency ordering and sort tie-breaks.
func (i *Item) EventTime() time.Time {
	if i.OccurredAt != nil {
		return *i.OccurredAt
	}
	return i.CreatedAt
}

// HasCoordinates reports whether both latitude and longitude are present.
func (i *Item) HasCoordinates() bool {
	return i.Latitude != nil && i.Longitude != nil
}

// HasTimestamp reports whether the item carries any temporal information.
func (i *Item) HasTimestamp() bool {
	return i.OccurredAt != nil || (i.WindowStart != nil && i.WindowEnd != nil)
}

// ItemListResponse is the response for listing items
type ItemListResponse struct {
	Items      []Item `json:"items"`
	TotalCount int    `json:"total_count"`
}
