// Package processor is the ingestion layer: it mirrors item snapshot events
// into the Postgres read model and triggers ranking for each changed item.
package processor

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Gobusters/ectologger"

	"github.com/reuniteio/reunite/pkg/fingerprint"
	"github.com/reuniteio/reunite/pkg/geo"
	"github.com/reuniteio/reunite/pkg/kafka"
	"github.com/reuniteio/reunite/pkg/matching"
	"github.com/reuniteio/reunite/pkg/models"
	"github.com/reuniteio/reunite/pkg/normalizers"
	"github.com/reuniteio/reunite/pkg/tracing"
)

// snapshot fields excluded from the change fingerprint; they churn without
// the item itself changing.
var fingerprintExclusions = map[string]bool{
	"created_at":  true,
	"updated_at":  true,
	"fingerprint": true,
}

// ItemWriter is the write path into the item read model.
type ItemWriter interface {
	Upsert(ctx context.Context, item *models.Item) (*models.Item, error)
	Delete(ctx context.Context, id string) error
	GetFingerprint(ctx context.Context, id string) (string, error)
}

// Ranker runs the ranking pipeline with persistence for an ingested item.
type Ranker interface {
	RankAndPersist(ctx context.Context, itemID string, opts matching.RankOptions) (*matching.RankResult, error)
}

// MatchEmitter publishes match lifecycle events.
type MatchEmitter interface {
	EmitMatchScored(ctx context.Context, match *models.Match, isNew bool) error
}

// GraphProjector mirrors read-model tombstones into the graph projection.
type GraphProjector interface {
	RemoveItem(ctx context.Context, itemID string) error
}

// Processor handles item snapshot ingestion
type Processor struct {
	logger        ectologger.Logger
	items         ItemWriter
	ranker        Ranker
	emitter       MatchEmitter
	projector     GraphProjector
	cellPrecision int
}

// NewProcessor creates a new item ingestion processor. The emitter and
// projector may be nil when event emission or the graph projection is
// disabled.
func NewProcessor(logger ectologger.Logger, items ItemWriter, ranker Ranker, emitter MatchEmitter, projector GraphProjector, cellPrecision int) *Processor {
	if cellPrecision <= 0 {
		cellPrecision = geo.DefaultPrecision
	}
	return &Processor{
		logger:        logger,
		items:         items,
		ranker:        ranker,
		emitter:       emitter,
		projector:     projector,
		cellPrecision: cellPrecision,
	}
}

// HandleMessage is the Kafka consumer entry point. A returned error means
// the message is not committed and will be redelivered; permanently bad
// payloads are logged and dropped instead.
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.HandleMessage")
	defer span.End()

	event := msg.ItemEvent
	if event == nil {
		p.logger.WithContext(ctx).WithFields(map[string]any{
			"topic":  msg.Topic,
			"offset": msg.Offset,
		}).Error("Message reached processor without a parsed event, dropping")
		return nil
	}

	if msg.IsDelete() {
		return p.handleDelete(ctx, event.ItemID)
	}

	if event.Item == nil {
		p.logger.WithContext(ctx).WithFields(map[string]any{
			"item_id":    event.ItemID,
			"event_type": event.EventType,
		}).Error("Snapshot event without item payload, dropping")
		return nil
	}

	return p.handleSnapshot(ctx, event.Item)
}

func (p *Processor) handleDelete(ctx context.Context, itemID string) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.handleDelete")
	defer span.End()

	if err := p.items.Delete(ctx, itemID); err != nil {
		return err
	}

	// Best effort: the read-model tombstone is the source of truth, a
	// failed graph cleanup must not block the partition.
	if p.projector != nil {
		if err := p.projector.RemoveItem(ctx, itemID); err != nil {
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"item_id": itemID}).Warn("Failed to remove item from graph projection")
		}
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{"item_id": itemID}).Info("Tombstoned item")
	return nil
}

func (p *Processor) handleSnapshot(ctx context.Context, item *models.Item) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.handleSnapshot")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{"item_id": item.ID})

	normalizers.NormalizeItem(item)
	p.deriveGeoCell(ctx, item)

	fp, err := snapshotFingerprint(item)
	if err != nil {
		log.WithError(err).Error("Failed to fingerprint snapshot, dropping")
		return nil
	}
	item.Fingerprint = fp

	stored, err := p.items.GetFingerprint(ctx, item.ID)
	if err != nil {
		return err
	}
	if stored == fp {
		log.Debug("Snapshot unchanged, skipping re-rank")
		return nil
	}

	if _, err := p.items.Upsert(ctx, item); err != nil {
		return err
	}

	if !item.Status.Matchable() {
		log.WithFields(map[string]any{"status": item.Status}).Debug("Item not matchable, skipping ranking")
		return nil
	}

	result, err := p.ranker.RankAndPersist(ctx, item.ID, matching.RankOptions{})
	if err != nil {
		if errors.Is(err, matching.ErrPersistenceFailed) {
			// Redeliver so the stored matches catch up with the ranking.
			return err
		}
		if errors.Is(err, matching.ErrItemNotMatchable) || errors.Is(err, matching.ErrItemNotFound) {
			log.WithError(err).Warn("Ranking skipped for ingested item")
			return nil
		}
		return err
	}

	p.emitMatches(ctx, result.Matches)

	log.WithFields(map[string]any{
		"total_scored": result.TotalScored,
		"persisted":    len(result.Matches),
	}).Info("Ingested and ranked item")
	return nil
}

// deriveGeoCell fills the spatial key when upstream omitted it. Invalid
// coordinates are recovered by leaving the key empty; retrieval falls back
// to the coarser path.
func (p *Processor) deriveGeoCell(ctx context.Context, item *models.Item) {
	if item.GeoCell != nil && *item.GeoCell != "" {
		return
	}
	if !item.HasCoordinates() {
		return
	}

	key, err := geo.CellKey(*item.Latitude, *item.Longitude, p.cellPrecision)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"item_id": item.ID,
		}).Warn("Invalid coordinates on ingested item, no geo cell derived")
		return
	}
	item.GeoCell = &key
}

// emitMatches publishes lifecycle events for freshly persisted matches.
// Emission failures are logged, not returned: the matches are already
// stored and a redelivery would re-rank, not re-emit.
func (p *Processor) emitMatches(ctx context.Context, matches []models.Match) {
	if p.emitter == nil {
		return
	}
	for i := range matches {
		m := &matches[i]
		isNew := m.CreatedAt.Equal(m.UpdatedAt)
		if err := p.emitter.EmitMatchScored(ctx, m, isNew); err != nil {
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"match_id": m.ID,
			}).Error("Failed to emit match event")
		}
	}
}

// snapshotFingerprint hashes the canonicalized snapshot so unchanged
// redeliveries skip the ranking pipeline.
func snapshotFingerprint(item *models.Item) (string, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return "", err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", err
	}
	return fingerprint.Snapshot(data, fingerprintExclusions), nil
}
