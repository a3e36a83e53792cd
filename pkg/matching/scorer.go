package matching

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/reuniteio/reunite/pkg/fuzzy"
	"github.com/reuniteio/reunite/pkg/geo"
	"github.com/reuniteio/reunite/pkg/imagehash"
	"github.com/reuniteio/reunite/pkg/models"
	"github.com/reuniteio/reunite/pkg/weights"
)

// Breakdown component keys. These are the map keys serialized into
// persisted matches, so they are part of the wire contract.
const (
	ComponentCategory   = "category"
	ComponentDistance   = "distance"
	ComponentTime       = "time"
	ComponentAttributes = "attributes"
	ComponentText       = "text"
	ComponentImage      = "image"
)

// neutralScore is the sentinel used when a signal is unavailable for either
// side of a pair. Never zero: missing data must not read as disagreement.
const neutralScore = 0.5

// Scorer computes the per-pair component breakdown and fuses it into one
// final score. Stateless between calls; weights are passed per call so a
// ranking pass sees one consistent snapshot.
type Scorer struct {
	logger ectologger.Logger
	cfg    Config
	fuzzy  *fuzzy.Matcher
	decay  *PeakDecay
}

// NewScorer wires the scorer and its optional advanced layers from config.
func NewScorer(logger ectologger.Logger, cfg Config) *Scorer {
	s := &Scorer{
		logger: logger,
		cfg:    cfg,
	}
	if cfg.EnableFuzzyText {
		s.fuzzy = fuzzy.NewMatcher()
	}
	if cfg.EnablePeakDecay {
		s.decay = &PeakDecay{
			PeakHours:     cfg.PeakHours,
			HalfLifeHours: cfg.HalfLifeHours,
			Floor:         cfg.DecayFloor,
		}
	}
	return s
}

// Score builds the full scored candidate for a query/candidate pair. Optional
// signal failures degrade to the neutral sentinel and are logged, never
// returned as errors.
func (s *Scorer) Score(ctx context.Context, query, candidate *models.Item, w weights.Weights) *models.MatchCandidate {
	breakdown := make(map[string]float64, 6)

	breakdown[ComponentCategory] = s.categoryScore(query, candidate)

	distScore, distanceKm := s.distanceScore(query, candidate)
	breakdown[ComponentDistance] = distScore

	timeScore, timeDiffHours := s.timeScore(query, candidate)
	breakdown[ComponentTime] = timeScore

	breakdown[ComponentAttributes] = s.attributeScore(query, candidate)

	numerator := breakdown[ComponentCategory]*w.Category +
		distScore*w.Distance +
		timeScore*w.Time +
		breakdown[ComponentAttributes]*w.Attributes
	denominator := w.Category + w.Distance + w.Time + w.Attributes

	if s.cfg.EnableText {
		textScore := s.textScore(ctx, query, candidate)
		breakdown[ComponentText] = textScore
		numerator += textScore * w.Text
		denominator += w.Text
	}

	if s.cfg.EnableImage {
		imageScore := s.imageScore(ctx, query, candidate)
		breakdown[ComponentImage] = imageScore
		numerator += imageScore * w.Image
		denominator += w.Image
	}

	final := 0.0
	if denominator > 0 {
		final = numerator / denominator
	}

	explanation, confidence := explain(breakdown, final)

	return &models.MatchCandidate{
		QueryItemID:     query.ID,
		CandidateItemID: candidate.ID,
		Candidate:       candidate,
		Score:           final,
		Breakdown:       breakdown,
		DistanceKm:      distanceKm,
		TimeDiffHours:   timeDiffHours,
		Explanation:     explanation,
		Confidence:      confidence,
	}
}

// categoryScore: 1.0 when subcategories also agree, 0.8 on category alone,
// the configured penalty when both subcategories are present but differ,
// 0.0 on category mismatch, neutral when either category is absent.
func (s *Scorer) categoryScore(query, candidate *models.Item) float64 {
	if query.Category == "" || candidate.Category == "" {
		return neutralScore
	}
	if !strings.EqualFold(query.Category, candidate.Category) {
		return 0
	}

	qSub := deref(query.Subcategory)
	cSub := deref(candidate.Subcategory)
	switch {
	case qSub != "" && cSub != "" && strings.EqualFold(qSub, cSub):
		return 1.0
	case qSub != "" && cSub != "":
		return s.cfg.SubcategoryMismatchScore
	default:
		return 0.8
	}
}

// distanceScore decays exponentially with geodesic distance. The decay
// factor maxRadius/3 puts ~0.05 at the search boundary.
func (s *Scorer) distanceScore(query, candidate *models.Item) (float64, *float64) {
	if !query.HasCoordinates() || !candidate.HasCoordinates() {
		return neutralScore, nil
	}

	km := geo.DistanceKm(*query.Latitude, *query.Longitude, *candidate.Latitude, *candidate.Longitude)
	decayFactor := s.cfg.MaxRadiusKm / 3
	return math.Exp(-km / decayFactor), &km
}

// timeScore decays with the absolute delta between event times. With the
// plateau curve enabled, deltas inside the peak window score 1.0 and the
// tail is floored.
func (s *Scorer) timeScore(query, candidate *models.Item) (float64, *float64) {
	qt, ok := eventInstant(query)
	if !ok {
		return neutralScore, nil
	}
	ct, ok := eventInstant(candidate)
	if !ok {
		return neutralScore, nil
	}

	hours := math.Abs(qt.Sub(ct).Hours())

	if s.decay != nil {
		return s.decay.Score(hours), &hours
	}

	decayFactor := float64(s.cfg.TimeWindowDays) * 24 / 3
	return math.Exp(-hours / decayFactor), &hours
}

// attributeScore is the matched fraction of {brand, color, model}, counted
// only over attributes at least one side specifies. A one-sided attribute
// counts against the pair; a fully unspecified pair is neutral.
func (s *Scorer) attributeScore(query, candidate *models.Item) float64 {
	pairs := [][2]*string{
		{query.Brand, candidate.Brand},
		{query.Color, candidate.Color},
		{query.Model, candidate.Model},
	}

	considered, matched := 0, 0
	for _, p := range pairs {
		a, b := deref(p[0]), deref(p[1])
		if a == "" && b == "" {
			continue
		}
		considered++
		if a != "" && b != "" && strings.EqualFold(a, b) {
			matched++
		}
	}

	if considered == 0 {
		return neutralScore
	}
	return float64(matched) / float64(considered)
}

// textScore uses embedding cosine similarity rescaled to [0,1]. When either
// embedding is missing and the fuzzy layer is enabled, lexical similarity
// over title+description substitutes. Mismatched vector lengths degrade to
// neutral; zero-magnitude vectors score 0.
func (s *Scorer) textScore(ctx context.Context, query, candidate *models.Item) float64 {
	if len(query.Embedding) > 0 && len(candidate.Embedding) > 0 {
		if len(query.Embedding) != len(candidate.Embedding) {
			s.logger.WithContext(ctx).WithFields(map[string]any{
				"query_item_id":     query.ID,
				"candidate_item_id": candidate.ID,
				"query_dims":        len(query.Embedding),
				"candidate_dims":    len(candidate.Embedding),
			}).Warn("Embedding length mismatch, text signal degraded to neutral")
			return neutralScore
		}
		return cosineRescaled(query.Embedding, candidate.Embedding)
	}

	if s.fuzzy != nil {
		qText := itemText(query)
		cText := itemText(candidate)
		if qText != "" && cText != "" {
			return s.fuzzy.Similarity(qText, cText)
		}
	}

	return neutralScore
}

// imageScore is the best cross-pair hash similarity. No comparable hashes on
// either side is neutral; malformed hash strings are skipped and logged.
func (s *Scorer) imageScore(ctx context.Context, query, candidate *models.Item) float64 {
	res := imagehash.Compare(query.ImageHashes, candidate.ImageHashes)

	if res.Malformed > 0 {
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"query_item_id":     query.ID,
			"candidate_item_id": candidate.ID,
			"malformed_hashes":  res.Malformed,
		}).Warn("Malformed image hashes skipped, image signal may be degraded")
	}

	if res.Compared == 0 {
		return neutralScore
	}
	return res.Score
}

// cosineRescaled maps cosine similarity from [-1,1] to [0,1]. Zero-magnitude
// vectors carry no direction and score 0.
func cosineRescaled(a, b []float64) float64 {
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	// Guard float drift outside [-1,1].
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return (cos + 1) / 2
}

// eventInstant picks the instant used for time-delta scoring: the point
// timestamp when present, else the midpoint of an explicit window.
func eventInstant(i *models.Item) (t time.Time, ok bool) {
	if i.OccurredAt != nil {
		return *i.OccurredAt, true
	}
	if i.WindowStart != nil && i.WindowEnd != nil && !i.WindowStart.After(*i.WindowEnd) {
		mid := i.WindowStart.Add(i.WindowEnd.Sub(*i.WindowStart) / 2)
		return mid, true
	}
	return time.Time{}, false
}

func itemText(i *models.Item) string {
	if i.Description != nil && *i.Description != "" {
		return i.Title + " " + *i.Description
	}
	return i.Title
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
