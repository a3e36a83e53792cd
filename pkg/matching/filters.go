package matching

import (
	"strings"
	"time"

	"github.com/reuniteio/reunite/pkg/models"
)

// filterTemporal narrows candidates to those whose time window overlaps the
// query's. The query window is the explicit [start,end] when present, else
// the point timestamp widened by slack on both sides. Candidate windows are
// taken as-is, degenerating to [event,event] for point timestamps.
// Temporally ambiguous items (no usable window on either side) pass through.
func filterTemporal(query *models.Item, candidates []models.Item, slack time.Duration) []models.Item {
	qStart, qEnd, ok := itemWindow(query, slack)
	if !ok {
		return candidates
	}

	out := make([]models.Item, 0, len(candidates))
	for _, c := range candidates {
		cStart, cEnd, ok := itemWindow(&c, 0)
		if !ok {
			out = append(out, c)
			continue
		}
		// Interval overlap: candidate.start <= query.end AND
		// candidate.end >= query.start.
		if !cStart.After(qEnd) && !cEnd.Before(qStart) {
			out = append(out, c)
		}
	}
	return out
}

// itemWindow returns the effective time interval for an item. An explicit
// window wins over the point timestamp; a point timestamp is widened by
// slack. ok is false when the item carries no usable temporal information,
// including malformed windows (start after end), which callers treat as
// ambiguous after logging.
func itemWindow(i *models.Item, slack time.Duration) (time.Time, time.Time, bool) {
	if i.WindowStart != nil && i.WindowEnd != nil {
		if i.WindowStart.After(*i.WindowEnd) {
			return time.Time{}, time.Time{}, false
		}
		return *i.WindowStart, *i.WindowEnd, true
	}
	if i.OccurredAt != nil {
		return i.OccurredAt.Add(-slack), i.OccurredAt.Add(slack), true
	}
	return time.Time{}, time.Time{}, false
}

// windowInvalid reports a malformed explicit window. Recovered locally: the
// item is treated as temporally ambiguous and the caller logs a warning.
func windowInvalid(i *models.Item) bool {
	return i.WindowStart != nil && i.WindowEnd != nil && i.WindowStart.After(*i.WindowEnd)
}

// filterCategory applies the hard category gate. A query without a category
// passes everything through; subcategory differences never remove a
// candidate (they only inform scoring).
func filterCategory(query *models.Item, candidates []models.Item) []models.Item {
	if query.Category == "" {
		return candidates
	}

	out := make([]models.Item, 0, len(candidates))
	for _, c := range candidates {
		if c.Category == "" {
			// Candidate category missing: scored as neutral, not gated.
			out = append(out, c)
			continue
		}
		if strings.EqualFold(query.Category, c.Category) {
			out = append(out, c)
		}
	}
	return out
}
