package models

import (
	"time"
)

// FeedbackSource identifies who judged the match
type FeedbackSource string

const (
	FeedbackSourceUser  FeedbackSource = "user"
	FeedbackSourceAdmin FeedbackSource = "admin"
)

// MatchFeedback is one accept/reject judgement on a persisted match. Recent
// rows feed the weight-tuning loop.
type MatchFeedback struct {
	ID        string         `json:"id" db:"id"`
	MatchID   string         `json:"match_id" db:"match_id"`
	Accepted  bool           `json:"accepted" db:"accepted"`
	Source    FeedbackSource `json:"source" db:"source"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// CreateFeedbackRequest is the request body for recording feedback
type CreateFeedbackRequest struct {
	MatchID  string         `json:"match_id" validate:"required,uuid4"`
	Accepted *bool          `json:"accepted" validate:"required"`
	Source   FeedbackSource `json:"source" validate:"omitempty,oneof=user admin"`
}
