package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/reuniteio/reunite/pkg/models"
	"github.com/reuniteio/reunite/pkg/tracing"
)

// ProjectionService mirrors items and their matches into the graph database
// so confirmed reunions can be explored as a network (shared locations,
// repeat reporters, rings of related claims). The Postgres read model stays
// authoritative; the projection is rebuildable from it.
type ProjectionService struct {
	client *Client
	logger ectologger.Logger
}

// NewProjectionService creates a new projection service
func NewProjectionService(client *Client, logger ectologger.Logger) *ProjectionService {
	return &ProjectionService{
		client: client,
		logger: logger,
	}
}

// ProjectMatch upserts both item nodes and the MATCHED_WITH relationship
// between them. The relationship is keyed by match id so repeat projections
// update score properties in place.
func (s *ProjectionService) ProjectMatch(ctx context.Context, match *models.Match, lost *models.Item, found *models.Item) error {
	ctx, span := tracing.StartSpan(ctx, "graph.ProjectionService.ProjectMatch")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"match_id":      match.ID,
		"lost_item_id":  match.LostItemID,
		"found_item_id": match.FoundItemID,
	})

	cypher := `
		MERGE (l:Item {id: $lost_id})
		SET l += $lost_props
		MERGE (f:Item {id: $found_id})
		SET f += $found_props
		MERGE (l)-[r:MATCHED_WITH {id: $match_id}]->(f)
		SET r += $match_props
		RETURN r
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"lost_id":     match.LostItemID,
			"found_id":    match.FoundItemID,
			"match_id":    match.ID,
			"lost_props":  itemProps(lost),
			"found_props": itemProps(found),
			"match_props": matchProps(match),
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		log.WithError(err).Error("Failed to project match into graph")
		return fmt.Errorf("failed to project match into graph: %w", err)
	}

	log.Debug("Projected match into graph")
	return nil
}

// RemoveItem detaches and deletes an item node, removing its match edges
// with it. Called when an item is deleted upstream.
func (s *ProjectionService) RemoveItem(ctx context.Context, itemID string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.ProjectionService.RemoveItem")
	defer span.End()

	cypher := `
		MATCH (i:Item {id: $id})
		DETACH DELETE i
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{"id": itemID})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		s.logger.WithContext(ctx).WithField("item_id", itemID).WithError(err).Error("Failed to remove item from graph")
		return fmt.Errorf("failed to remove item from graph: %w", err)
	}
	return nil
}

// MatchedItemIDs returns the ids of items connected to the given item by a
// MATCHED_WITH edge in either direction, strongest first.
func (s *ProjectionService) MatchedItemIDs(ctx context.Context, itemID string, limit int) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.ProjectionService.MatchedItemIDs")
	defer span.End()

	if limit <= 0 {
		limit = 25
	}

	cypher := `
		MATCH (i:Item {id: $id})-[r:MATCHED_WITH]-(other:Item)
		RETURN other.id AS id, r.score AS score
		ORDER BY r.score DESC
		LIMIT $limit
	`

	res, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":    itemID,
			"limit": limit,
		})
		if err != nil {
			return nil, err
		}

		var ids []string
		for result.Next(ctx) {
			record := result.Record()
			id, ok := record.Get("id")
			if !ok {
				continue
			}
			if str, ok := id.(string); ok {
				ids = append(ids, str)
			}
		}
		return ids, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read matched items from graph: %w", err)
	}
	if res == nil {
		return nil, nil
	}
	return res.([]string), nil
}

func itemProps(item *models.Item) map[string]any {
	if item == nil {
		return map[string]any{}
	}

	props := map[string]any{
		"status":   string(item.Status),
		"owner_id": item.OwnerID,
		"title":    item.Title,
		"category": item.Category,
	}
	if item.GeoCell != nil {
		props["geo_cell"] = *item.GeoCell
	}
	if item.HasTimestamp() {
		props["event_time"] = item.EventTime().UTC().Format(time.RFC3339)
	}
	return props
}

func matchProps(match *models.Match) map[string]any {
	props := map[string]any{
		"score":      match.Score,
		"status":     string(match.Status),
		"updated_at": match.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if match.Explanation != "" {
		props["explanation"] = match.Explanation
	}
	if match.DistanceKm != nil {
		props["distance_km"] = *match.DistanceKm
	}
	if match.TimeDiffHours != nil {
		props["time_diff_hours"] = *match.TimeDiffHours
	}
	return props
}
