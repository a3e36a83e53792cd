// Package item is the Postgres read model of reported items. Rows are
// written by the ingestion pipeline and read by the ranking pipeline.
package item

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/reuniteio/reunite/pkg/database"
	"github.com/reuniteio/reunite/pkg/geo"
	"github.com/reuniteio/reunite/pkg/models"
	"github.com/reuniteio/reunite/pkg/tracing"
)

var itemColumns = []string{
	"id", "status", "owner_id", "title", "description",
	"category", "subcategory", "brand", "model", "color",
	"latitude", "longitude", "geo_cell",
	"occurred_at", "window_start", "window_end",
	"embedding", "image_hashes", "fingerprint",
	"created_at", "updated_at", "deleted_at",
}

// Repository handles item read-model persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new item repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// itemRow maps the JSONB columns sqlx cannot scan into the model directly.
type itemRow struct {
	models.Item
	EmbeddingJSON   []byte `db:"embedding"`
	ImageHashesJSON []byte `db:"image_hashes"`
}

func (r *itemRow) toModel() (*models.Item, error) {
	item := r.Item
	if len(r.EmbeddingJSON) > 0 {
		if err := json.Unmarshal(r.EmbeddingJSON, &item.Embedding); err != nil {
			return nil, err
		}
	}
	if len(r.ImageHashesJSON) > 0 {
		if err := json.Unmarshal(r.ImageHashesJSON, &item.ImageHashes); err != nil {
			return nil, err
		}
	}
	return &item, nil
}

func rowsToModels(rows []itemRow) ([]models.Item, error) {
	items := make([]models.Item, 0, len(rows))
	for i := range rows {
		item, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// Upsert inserts or replaces an item snapshot. The ingestion pipeline calls
// this for every item event; the row is replaced wholesale because upstream
// owns the item and we only mirror it.
func (r *Repository) Upsert(ctx context.Context, item *models.Item) (*models.Item, error) {
	ctx, span := tracing.StartSpan(ctx, "item.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	embedding, err := nullableJSON(item.Embedding, len(item.Embedding) > 0)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid embedding payload")
	}
	hashes, err := nullableJSON(item.ImageHashes, len(item.ImageHashes) > 0)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid image hash payload")
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("items")
	sb.Cols(itemColumns...)
	sb.Values(
		item.ID, item.Status, item.OwnerID, item.Title, item.Description,
		item.Category, item.Subcategory, item.Brand, item.Model, item.Color,
		item.Latitude, item.Longitude, item.GeoCell,
		item.OccurredAt, item.WindowStart, item.WindowEnd,
		embedding, hashes, item.Fingerprint,
		item.CreatedAt, item.UpdatedAt, item.DeletedAt,
	)

	query, args := sb.Build()
	query += ` ON CONFLICT (id) DO UPDATE SET
		status = EXCLUDED.status,
		owner_id = EXCLUDED.owner_id,
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		category = EXCLUDED.category,
		subcategory = EXCLUDED.subcategory,
		brand = EXCLUDED.brand,
		model = EXCLUDED.model,
		color = EXCLUDED.color,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		geo_cell = EXCLUDED.geo_cell,
		occurred_at = EXCLUDED.occurred_at,
		window_start = EXCLUDED.window_start,
		window_end = EXCLUDED.window_end,
		embedding = EXCLUDED.embedding,
		image_hashes = EXCLUDED.image_hashes,
		fingerprint = EXCLUDED.fingerprint,
		updated_at = EXCLUDED.updated_at,
		deleted_at = EXCLUDED.deleted_at`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"item_id": item.ID}).Error("Failed to upsert item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert item")
	}

	return item, nil
}

// Get retrieves an item by ID. Returns (nil, nil) when the item does not
// exist or has been tombstoned; the ranking service maps that to its own
// not-found error.
func (r *Repository) Get(ctx context.Context, id string) (*models.Item, error) {
	ctx, span := tracing.StartSpan(ctx, "item.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(itemColumns...)
	sb.From("items")
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var row itemRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"item_id": id}).Error("Failed to get item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get item")
	}

	item, err := row.toModel()
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"item_id": id}).Error("Failed to decode item row")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to decode item")
	}
	return item, nil
}

// GetFingerprint returns the stored snapshot fingerprint for an item, or ""
// when the item is unknown. Cheaper than Get for the ingestion skip check.
func (r *Repository) GetFingerprint(ctx context.Context, id string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "item.Repository.GetFingerprint")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("fingerprint")
	sb.From("items")
	sb.Where(sb.Equal("id", id), sb.IsNull("deleted_at"))

	query, args := sb.Build()
	var fp string
	if err := r.db.GetContext(ctx, &fp, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"item_id": id}).Error("Failed to get item fingerprint")
		return "", httperror.NewHTTPError(http.StatusInternalServerError, "failed to get item fingerprint")
	}
	return fp, nil
}

// Delete tombstones an item. The row is kept so persisted matches referencing
// it still resolve; retrieval queries exclude tombstoned rows.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "item.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("items")
	sb.Set(
		sb.Assign("deleted_at", time.Now().UTC()),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", id), sb.IsNull("deleted_at"))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"item_id": id}).Error("Failed to delete item")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete item")
	}
	return nil
}

// ListByCells fetches candidate items by spatial-cell blocking: opposite
// status, different owner, cell key in the neighbor set.
func (r *Repository) ListByCells(ctx context.Context, status models.ItemStatus, cells []string, excludeOwnerID, excludeItemID string) ([]models.Item, error) {
	ctx, span := tracing.StartSpan(ctx, "item.Repository.ListByCells")
	defer span.End()

	if len(cells) == 0 {
		return nil, nil
	}

	cellVals := make([]any, len(cells))
	for i, c := range cells {
		cellVals[i] = c
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(itemColumns...)
	sb.From("items")
	sb.Where(
		sb.Equal("status", status),
		sb.In("geo_cell", cellVals...),
		sb.NotEqual("owner_id", excludeOwnerID),
		sb.NotEqual("id", excludeItemID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list items by cells")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list items by cells")
	}

	items, err := rowsToModels(rows)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to decode item rows")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to decode items")
	}
	return items, nil
}

// ListInBoundingBox is the bounded-radius fallback for query items without a
// usable cell key. The box is a coarse SQL filter; the caller applies the
// precise geodesic cut afterwards.
func (r *Repository) ListInBoundingBox(ctx context.Context, status models.ItemStatus, box geo.BoundingBox, excludeOwnerID, excludeItemID string) ([]models.Item, error) {
	ctx, span := tracing.StartSpan(ctx, "item.Repository.ListInBoundingBox")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(itemColumns...)
	sb.From("items")

	conds := []string{
		sb.Equal("status", status),
		sb.NotEqual("owner_id", excludeOwnerID),
		sb.NotEqual("id", excludeItemID),
		sb.IsNull("deleted_at"),
		sb.Between("latitude", box.MinLat, box.MaxLat),
	}
	if box.Wraps() {
		conds = append(conds, sb.Or(
			sb.GreaterEqualThan("longitude", box.MinLon),
			sb.LessEqualThan("longitude", box.MaxLon),
		))
	} else {
		conds = append(conds, sb.Between("longitude", box.MinLon, box.MaxLon))
	}
	sb.Where(conds...)

	query, args := sb.Build()
	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list items in bounding box")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list items in bounding box")
	}

	items, err := rowsToModels(rows)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to decode item rows")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to decode items")
	}
	return items, nil
}

// ListRecent is the last-resort fallback for query items without any
// location: the most recent opposite-status reports, capped to bound cost.
func (r *Repository) ListRecent(ctx context.Context, status models.ItemStatus, excludeOwnerID, excludeItemID string, limit int) ([]models.Item, error) {
	ctx, span := tracing.StartSpan(ctx, "item.Repository.ListRecent")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(itemColumns...)
	sb.From("items")
	sb.Where(
		sb.Equal("status", status),
		sb.NotEqual("owner_id", excludeOwnerID),
		sb.NotEqual("id", excludeItemID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("COALESCE(occurred_at, created_at) DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list recent items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list recent items")
	}

	items, err := rowsToModels(rows)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to decode item rows")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to decode items")
	}
	return items, nil
}

// nullableJSON marshals a value for a JSONB column, writing NULL when the
// value is absent so the column stays queryable with IS NULL.
func nullableJSON(v any, present bool) (any, error) {
	if !present {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
