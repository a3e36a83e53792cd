package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/reuniteio/reunite/pkg/geo"
	"github.com/reuniteio/reunite/pkg/models"
)

// ItemStore is the read path into the item read model. Implemented by
// internal/repositories/item over Postgres; ranking tests supply fakes.
type ItemStore interface {
	Get(ctx context.Context, id string) (*models.Item, error)

	// ListByCells fetches items of the given status whose geo cell is in the
	// set, excluding one owner and one item ID.
	ListByCells(ctx context.Context, status models.ItemStatus, cells []string, excludeOwnerID, excludeItemID string) ([]models.Item, error)

	// ListInBoundingBox fetches items of the given status with coordinates
	// inside the box, excluding one owner and one item ID.
	ListInBoundingBox(ctx context.Context, status models.ItemStatus, box geo.BoundingBox, excludeOwnerID, excludeItemID string) ([]models.Item, error)

	// ListRecent fetches the most recently reported items of the given
	// status, excluding one owner and one item ID, capped at limit.
	ListRecent(ctx context.Context, status models.ItemStatus, excludeOwnerID, excludeItemID string, limit int) ([]models.Item, error)
}

// retrieve produces the spatially plausible candidate set for a query item.
// Preference order: cell-key blocking, bounded-radius geodesic fallback,
// recency-capped fallback. Invalid coordinates on the query item itself are
// recovered by dropping to the coarser path, never surfaced to the caller.
func (s *Service) retrieve(ctx context.Context, query *models.Item) ([]models.Item, error) {
	opposite := query.Status.Opposite()

	cell := ""
	if query.GeoCell != nil && *query.GeoCell != "" {
		cell = *query.GeoCell
	} else if query.HasCoordinates() {
		key, err := geo.CellKey(*query.Latitude, *query.Longitude, s.cfg.GeoCellPrecision)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"item_id": query.ID,
			}).Warn("Query item has invalid coordinates, falling back to recency retrieval")
		} else {
			cell = key
		}
	}

	if cell != "" {
		candidates, err := s.retrieveByCell(ctx, query, opposite, cell)
		if err == nil {
			return candidates, nil
		}
		var cellErr *invalidCellError
		if !errors.As(err, &cellErr) {
			return nil, err
		}
		// Bad precomputed cell key on the query item: recover on the
		// coarser path.
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"item_id":  query.ID,
			"geo_cell": cell,
		}).Warn("Query item has an invalid geo cell, falling back")
	}

	if query.HasCoordinates() {
		box, err := geo.BoundingBoxAround(*query.Latitude, *query.Longitude, s.cfg.MaxRadiusKm)
		if err == nil {
			candidates, err := s.items.ListInBoundingBox(ctx, opposite, box, query.OwnerID, query.ID)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
			}
			return s.preciseDistanceFilter(query, candidates), nil
		}
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"item_id": query.ID,
		}).Warn("Bounded-radius retrieval unavailable, falling back to recency")
	}

	candidates, err := s.items.ListRecent(ctx, opposite, query.OwnerID, query.ID, s.cfg.RecencyFallbackLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}
	return candidates, nil
}

func (s *Service) retrieveByCell(ctx context.Context, query *models.Item, opposite models.ItemStatus, cell string) ([]models.Item, error) {
	cells, err := geo.Neighbors(cell)
	if err != nil {
		return nil, &invalidCellError{cause: err}
	}

	candidates, err := s.items.ListByCells(ctx, opposite, cells, query.OwnerID, query.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	return s.preciseDistanceFilter(query, candidates), nil
}

// preciseDistanceFilter removes candidates with exact coordinates beyond the
// max search radius. Candidates without coordinates are spatially ambiguous
// and retained; the distance component scores them neutrally instead.
func (s *Service) preciseDistanceFilter(query *models.Item, candidates []models.Item) []models.Item {
	if !query.HasCoordinates() {
		return candidates
	}

	out := make([]models.Item, 0, len(candidates))
	for _, c := range candidates {
		if !c.HasCoordinates() {
			out = append(out, c)
			continue
		}
		km := geo.DistanceKm(*query.Latitude, *query.Longitude, *c.Latitude, *c.Longitude)
		if km <= s.cfg.MaxRadiusKm {
			out = append(out, c)
		}
	}
	return out
}

// invalidCellError marks a retrieval failure caused by the query item's own
// spatial key, which is recoverable, unlike a store failure.
type invalidCellError struct {
	cause error
}

func (e *invalidCellError) Error() string {
	return fmt.Sprintf("invalid geo cell: %v", e.cause)
}

func (e *invalidCellError) Unwrap() error {
	return e.cause
}
