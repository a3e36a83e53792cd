// Package matching implements the candidate-matching and explainable-scoring
// pipeline: spatial blocking, temporal and categorical filtering, weighted
// score fusion, and idempotent match persistence.
package matching

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/reuniteio/reunite/pkg/models"
	"github.com/reuniteio/reunite/pkg/tracing"
	"github.com/reuniteio/reunite/pkg/weights"
)

// MatchStore persists scored pairs. Implemented by internal/repositories/match
// over Postgres with ON CONFLICT upsert semantics on the item pair.
type MatchStore interface {
	Upsert(ctx context.Context, match *models.Match) (*models.Match, error)
}

// RankOptions are the per-call overrides of a ranking invocation.
type RankOptions struct {
	// TopK overrides the configured result truncation when positive.
	TopK int
}

// RankResult is the outcome of one ranking call: the sorted top-K candidates
// plus, when persistence ran, the stored match records.
type RankResult struct {
	QueryItem   *models.Item
	Results     []models.MatchCandidate
	TotalScored int
	Persisted   bool
	Matches     []models.Match
}

// Service is the ranking façade. One instance serves concurrent ranking
// calls; each call snapshots the fusion weights at start and is otherwise
// side-effect free until the optional persistence step.
type Service struct {
	logger  ectologger.Logger
	cfg     Config
	weights *weights.Store
	items   ItemStore
	matches MatchStore
	scorer  *Scorer
}

// NewService builds the façade and validates the configuration against the
// initial weight set.
func NewService(logger ectologger.Logger, cfg Config, store *weights.Store, items ItemStore, matches MatchStore) (*Service, error) {
	if err := cfg.Validate(store.Snapshot()); err != nil {
		return nil, err
	}
	return &Service{
		logger:  logger,
		cfg:     cfg,
		weights: store,
		items:   items,
		matches: matches,
		scorer:  NewScorer(logger, cfg),
	}, nil
}

// Config returns the service configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Rank runs the full pipeline for a query item and returns the sorted top-K
// candidates without persisting anything. The call either returns a
// (possibly empty) sorted list or fails with a typed error; it never returns
// a partial ranking.
func (s *Service) Rank(ctx context.Context, itemID string, opts RankOptions) (*RankResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.Rank")
	defer span.End()

	query, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}
	if query == nil {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	if !query.Status.Matchable() {
		return nil, fmt.Errorf("%w: %s is %s", ErrItemNotMatchable, itemID, query.Status)
	}

	// Snapshot once so a concurrent weight adjustment never changes the
	// fusion mid-call.
	w := s.weights.Snapshot()

	candidates, err := s.retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	if windowInvalid(query) {
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"item_id": query.ID,
		}).Warn("Query item has an inverted time window, treated as temporally ambiguous")
	}

	slack := time.Duration(s.cfg.TimeWindowDays) * 24 * time.Hour
	candidates = filterTemporal(query, candidates, slack)
	candidates = filterCategory(query, candidates)

	scored, err := s.scoreCandidates(ctx, query, candidates, w)
	if err != nil {
		return nil, err
	}

	sortCandidates(scored)

	topK := s.cfg.TopK
	if opts.TopK > 0 {
		topK = opts.TopK
	}
	total := len(scored)
	if len(scored) > topK {
		scored = scored[:topK]
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"item_id":      query.ID,
		"total_scored": total,
		"returned":     len(scored),
	}).Debug("Ranking completed")

	return &RankResult{
		QueryItem:   query,
		Results:     scored,
		TotalScored: total,
	}, nil
}

// RankAndPersist ranks and then upserts every result at or above the minimum
// match score. Persistence failure does not discard the ranking: the sorted
// results are returned alongside an error wrapping ErrPersistenceFailed so
// the caller knows the stored state is stale.
func (s *Service) RankAndPersist(ctx context.Context, itemID string, opts RankOptions) (*RankResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.RankAndPersist")
	defer span.End()

	result, err := s.Rank(ctx, itemID, opts)
	if err != nil {
		return nil, err
	}

	for i := range result.Results {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
		}

		cand := &result.Results[i]
		if cand.Score < s.cfg.MinMatchScore {
			// Results are sorted; everything after is weaker.
			break
		}

		match := matchFromCandidate(result.QueryItem, cand)
		stored, err := s.matches.Upsert(ctx, match)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"lost_item_id":  match.LostItemID,
				"found_item_id": match.FoundItemID,
			}).Error("Failed to persist match")
			return result, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
		}
		result.Matches = append(result.Matches, *stored)
	}

	result.Persisted = true
	return result, nil
}

// matchFromCandidate builds the persisted record for a scored pair. Matches
// are always stored lost-first so the unique (lost_item_id, found_item_id)
// constraint holds regardless of which side the ranking started from.
func matchFromCandidate(query *models.Item, cand *models.MatchCandidate) *models.Match {
	lostID, foundID := query.ID, cand.CandidateItemID
	if query.Status == models.ItemStatusFound {
		lostID, foundID = cand.CandidateItemID, query.ID
	}

	return &models.Match{
		LostItemID:    lostID,
		FoundItemID:   foundID,
		Score:         cand.Score,
		Breakdown:     cand.Breakdown,
		DistanceKm:    cand.DistanceKm,
		TimeDiffHours: cand.TimeDiffHours,
		Explanation:   cand.Explanation,
	}
}

// scoreCandidates fans the scoring map out over a bounded worker pool and
// merges the results. Order is not preserved here; the caller sorts.
func (s *Service) scoreCandidates(ctx context.Context, query *models.Item, candidates []models.Item, w weights.Weights) ([]models.MatchCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.scoreCandidates")
	defer span.End()

	if len(candidates) == 0 {
		return nil, nil
	}

	workers := s.cfg.ScoreWorkerCount
	if workers > len(candidates) {
		workers = len(candidates)
	}

	jobs := make(chan int)
	results := make([]*models.MatchCandidate, len(candidates))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if ctx.Err() != nil {
					return
				}
				results[idx] = s.scorer.Score(ctx, query, &candidates[idx], w)
			}
		}()
	}

feed:
	for i := range candidates {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scored := make([]models.MatchCandidate, 0, len(results))
	for _, r := range results {
		if r != nil {
			scored = append(scored, *r)
		}
	}
	return scored, nil
}

// sortCandidates orders best-first: strictly descending score, ties broken
// by the more recent candidate event time.
func sortCandidates(scored []models.MatchCandidate) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		var ti, tj time.Time
		if scored[i].Candidate != nil {
			ti = scored[i].Candidate.EventTime()
		}
		if scored[j].Candidate != nil {
			tj = scored[j].Candidate.EventTime()
		}
		return ti.After(tj)
	})
}
