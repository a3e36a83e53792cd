package models

import (
	"time"
)

// MatchStatus is the review state of a persisted match
type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusViewed    MatchStatus = "viewed"
	MatchStatusDismissed MatchStatus = "dismissed"
	MatchStatusClaimed   MatchStatus = "claimed"
)

// ValidMatchStatus reports whether s is a known review state.
func ValidMatchStatus(s MatchStatus) bool {
	switch s {
	case MatchStatusPending, MatchStatusViewed, MatchStatusDismissed, MatchStatusClaimed:
		return true
	}
	return false
}

// Match is a persisted pairing of a lost item with a found item. The
// (lost_item_id, found_item_id) pair is unique; re-scoring updates score
// fields in place. Review status belongs to the surrounding claim workflow
// and is never reset by re-scoring.
type Match struct {
	ID            string             `json:"id" db:"id"`
	LostItemID    string             `json:"lost_item_id" db:"lost_item_id"`
	FoundItemID   string             `json:"found_item_id" db:"found_item_id"`
	Score         float64            `json:"score" db:"score"`
	Breakdown     map[string]float64 `json:"breakdown" db:"-"`
	DistanceKm    *float64           `json:"distance_km,omitempty" db:"distance_km"`
	TimeDiffHours *float64           `json:"time_diff_hours,omitempty" db:"time_diff_hours"`
	Explanation   string             `json:"explanation" db:"explanation"`
	Status        MatchStatus        `json:"status" db:"status"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" db:"updated_at"`
}

// MatchCandidate is one scored pairing produced by a ranking call. Transient:
// built, scored, and discarded within a single pass, never mutated after
// scoring.
type MatchCandidate struct {
	QueryItemID     string             `json:"query_item_id"`
	CandidateItemID string             `json:"candidate_item_id"`
	Candidate       *Item              `json:"-"`
	Score           float64            `json:"score"`
	Breakdown       map[string]float64 `json:"breakdown"`
	DistanceKm      *float64           `json:"distance_km,omitempty"`
	TimeDiffHours   *float64           `json:"time_diff_hours,omitempty"`
	Explanation     string             `json:"explanation"`
	Confidence      string             `json:"confidence"`
}

// MatchListResponse is the response for listing matches
type MatchListResponse struct {
	Matches    []Match `json:"matches"`
	TotalCount int     `json:"total_count"`
}

// RelatedItemsResponse lists items connected to an item in the graph
// projection, strongest edge first
type RelatedItemsResponse struct {
	ItemID         string   `json:"item_id"`
	RelatedItemIDs []string `json:"related_item_ids"`
}

// RankRequest is the request body for a preview ranking call
type RankRequest struct {
	ItemID  string `json:"item_id" validate:"required,uuid4"`
	TopK    *int   `json:"top_k,omitempty" validate:"omitempty,min=1,max=100"`
	Persist bool   `json:"persist"`
}

// RankResponse is the response for a ranking call
type RankResponse struct {
	QueryItemID string           `json:"query_item_id"`
	Results     []MatchCandidate `json:"results"`
	TotalScored int              `json:"total_scored"`
	Persisted   bool             `json:"persisted"`
}
