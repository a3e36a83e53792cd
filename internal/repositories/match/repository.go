// Package match persists scored lost/found pairs with idempotent upsert
// semantics on the (lost_item_id, found_item_id) unique constraint.
package match

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
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

var matchColumns = []string{
	"id", "lost_item_id", "found_item_id", "score", "breakdown",
	"distance_km", "time_diff_hours", "explanation", "status",
	"created_at", "updated_at",
}

// Repository handles match persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type matchRow struct {
	models.Match
	BreakdownJSON database.JSONB[map[string]float64] `db:"breakdown"`
}

func (r *matchRow) toModel() *models.Match {
	m := r.Match
	m.Breakdown = r.BreakdownJSON.GetValue()
	return &m
}

// Upsert inserts a match or, when the pair already exists, overwrites its
// score fields in place. The database unique constraint serializes
// concurrent re-scoring of the same pair; review status is never reset.
func (r *Repository) Upsert(ctx context.Context, match *models.Match) (*models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.Upsert")
	defer span.End()

	if match.ID == "" {
		match.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	match.CreatedAt = now
	match.UpdatedAt = now
	if match.Status == "" {
		match.Status = models.MatchStatusPending
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto("matches")
	ib.Cols(matchColumns...)
	ib.Values(
		match.ID, match.LostItemID, match.FoundItemID, match.Score,
		database.JSONB[map[string]float64]{Data: match.Breakdown},
		match.DistanceKm, match.TimeDiffHours, match.Explanation, match.Status,
		match.CreatedAt, match.UpdatedAt,
	)
	ub := ib.OnConflict("lost_item_id", "found_item_id")
	ub.Set(
		ub.Assign("score", database.Excluded("score")),
		ub.Assign("breakdown", database.Excluded("breakdown")),
		ub.Assign("distance_km", database.Excluded("distance_km")),
		ub.Assign("time_diff_hours", database.Excluded("time_diff_hours")),
		ub.Assign("explanation", database.Excluded("explanation")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)
	query, args := ib.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"lost_item_id":  match.LostItemID,
			"found_item_id": match.FoundItemID,
		}).Error("Failed to upsert match")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert match")
	}

	// Re-read inside the transaction so a conflicting pair returns its
	// original id, status and created_at rather than the attempted insert's.
	sb := database.NewSelectBuilder()
	sb.Select(matchColumns...)
	sb.From("matches")
	sb.Where(
		sb.Equal("lost_item_id", match.LostItemID),
		sb.Equal("found_item_id", match.FoundItemID),
	)
	query, args = sb.Build()

	var row matchRow
	if err := tx.GetContext(ctx, &row, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to read back upserted match")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert match")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}

	return row.toModel(), nil
}

// Get retrieves a match by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(matchColumns...)
	sb.From("matches")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var row matchRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("match %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get match")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get match")
	}

	return row.toModel(), nil
}

// GetByPair retrieves the match for a lost/found pair, or nil when the pair
// has never been scored above the persistence threshold.
func (r *Repository) GetByPair(ctx context.Context, lostItemID, foundItemID string) (*models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.GetByPair")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(matchColumns...)
	sb.From("matches")
	sb.Where(
		sb.Equal("lost_item_id", lostItemID),
		sb.Equal("found_item_id", foundItemID),
	)

	query, args := sb.Build()
	var row matchRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get match by pair")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get match by pair")
	}

	return row.toModel(), nil
}

// ListByItem lists matches involving an item on either side, best first,
// optionally filtered by review status.
func (r *Repository) ListByItem(ctx context.Context, itemID string, status string, limit int) ([]models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.ListByItem")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(matchColumns...)
	sb.From("matches")

	conds := []string{
		sb.Or(
			sb.Equal("lost_item_id", itemID),
			sb.Equal("found_item_id", itemID),
		),
	}
	if status != "" {
		conds = append(conds, sb.Equal("status", status))
	}
	sb.Where(conds...)
	sb.OrderBy("score DESC", "updated_at DESC")
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	var rows []matchRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list matches")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list matches")
	}

	matches := make([]models.Match, 0, len(rows))
	for i := range rows {
		matches = append(matches, *rows[i].toModel())
	}
	return matches, nil
}

// UpdateStatus applies a review-state transition to a match. The update and
// the read-back share one transaction so the returned match reflects exactly
// the transition that was applied.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status models.MatchStatus) (*models.Match, error) {
	ctx, span := tracing.StartSpan(ctx, "match.Repository.UpdateStatus")
	defer span.End()

	if !models.ValidMatchStatus(status) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid match status %q", status))
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("matches")
	ub.Set(
		ub.Assign("status", status),
		ub.Assign("updated_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("id", id))
	query, args := ub.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"match_id": id}).Error("Failed to update match status")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update match status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("match %s not found", id))
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(matchColumns...)
	sb.From("matches")
	sb.Where(sb.Equal("id", id))
	query, args = sb.Build()

	var row matchRow
	if err := tx.GetContext(ctx, &row, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"match_id": id}).Error("Failed to read back match")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update match status")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit")
	}

	return row.toModel(), nil
}
