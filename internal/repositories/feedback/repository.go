// Package feedback stores accept/reject judgements on persisted matches.
// Recent rows seed and drive the weight-tuning loop.
package feedback

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/reuniteio/reunite/pkg/database"
	"github.com/reuniteio/reunite/pkg/models"
	"github.com/reuniteio/reunite/pkg/tracing"
)

var feedbackColumns = []string{"id", "match_id", "accepted", "source", "created_at"}

// Repository handles match feedback persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new feedback repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create records one judgement.
func (r *Repository) Create(ctx context.Context, fb *models.MatchFeedback) (*models.MatchFeedback, error) {
	ctx, span := tracing.StartSpan(ctx, "feedback.Repository.Create")
	defer span.End()

	if fb.ID == "" {
		fb.ID = uuid.New().String()
	}
	if fb.Source == "" {
		fb.Source = models.FeedbackSourceUser
	}
	fb.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("match_feedback")
	sb.Cols(feedbackColumns...)
	sb.Values(fb.ID, fb.MatchID, fb.Accepted, fb.Source, fb.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"match_id": fb.MatchID}).Error("Failed to create feedback")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create feedback")
	}

	return fb, nil
}

// ListRecent returns the newest judgements, newest first, capped at limit.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]models.MatchFeedback, error) {
	ctx, span := tracing.StartSpan(ctx, "feedback.Repository.ListRecent")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(feedbackColumns...)
	sb.From("match_feedback")
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var rows []models.MatchFeedback
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list recent feedback")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list recent feedback")
	}

	return rows, nil
}
