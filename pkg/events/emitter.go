// Package events handles event emission for match lifecycle changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/reuniteio/reunite/pkg/kafka"
	"github.com/reuniteio/reunite/pkg/models"
	"github.com/reuniteio/reunite/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes match lifecycle events for downstream consumers
// (notification service, analytics).
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitMatchScored emits match.created for a first scoring and match.updated
// for a re-scoring of an existing pair.
func (e *Emitter) EmitMatchScored(ctx context.Context, match *models.Match, isNew bool) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMatchScored")
	defer span.End()

	eventType := string(EventTypeMatchUpdated)
	if isNew {
		eventType = string(EventTypeMatchCreated)
	}

	event := &kafka.MatchEvent{
		EventType:     eventType,
		MatchID:       match.ID,
		LostItemID:    match.LostItemID,
		FoundItemID:   match.FoundItemID,
		Score:         match.Score,
		Breakdown:     match.Breakdown,
		Explanation:   match.Explanation,
		DistanceKm:    match.DistanceKm,
		TimeDiffHours: match.TimeDiffHours,
	}

	if err := e.producer.PublishMatchEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit match scored event")
		return err
	}

	return nil
}

// EmitMatchClaimed emits match.claimed when a match is confirmed by its
// owner through the review workflow.
func (e *Emitter) EmitMatchClaimed(ctx context.Context, match *models.Match) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMatchClaimed")
	defer span.End()

	event := &kafka.MatchEvent{
		EventType:   string(EventTypeMatchClaimed),
		MatchID:     match.ID,
		LostItemID:  match.LostItemID,
		FoundItemID: match.FoundItemID,
		Score:       match.Score,
	}

	if err := e.producer.PublishMatchEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit match.claimed event")
		return err
	}

	return nil
}
