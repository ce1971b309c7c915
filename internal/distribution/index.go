// Package distribution indexes candidate-pool distribution snapshots by date and
// estimates how many candidates sit at or above a score threshold.
//
// Bands are a discrete approximation of a continuous distribution, so a band that
// straddles the threshold contributes a proportional share of its count:
//
//	count * (bandHigh - threshold + 1) / (bandHigh - bandMin + 1)
//
// The result is an estimate, not an exact candidate count.
package distribution

import (
	"math"
	"sort"
	"time"

	"github.com/rewired-gh/drawcast/internal/models"
)

const (
	// ScoreCeiling is the assumed upper bound of the open-ended top band.
	ScoreCeiling = 1200
	// MaxStaleness is the furthest a snapshot may be from the requested date for
	// Nearest to return it.
	MaxStaleness = 30 * 24 * time.Hour
)

// Index holds deduplicated snapshots ordered by date ascending.
type Index struct {
	snapshots []models.DistributionSnapshot
}

// NewIndex deduplicates snapshots by calendar date, keeping the first occurrence in
// input order, and sorts the survivors by date.
func NewIndex(snapshots []models.DistributionSnapshot) *Index {
	seen := make(map[string]bool, len(snapshots))
	kept := make([]models.DistributionSnapshot, 0, len(snapshots))
	for _, s := range snapshots {
		key := models.FormatDate(s.AsOf)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, s)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].AsOf.Before(kept[j].AsOf)
	})
	return &Index{snapshots: kept}
}

// Len returns the number of indexed snapshots. A nil Index is empty.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.snapshots)
}

// Snapshots returns the indexed snapshots in date order.
func (idx *Index) Snapshots() []models.DistributionSnapshot {
	if idx == nil {
		return nil
	}
	return idx.snapshots
}

// Latest returns the most recent snapshot.
func (idx *Index) Latest() (models.DistributionSnapshot, bool) {
	if idx.Len() == 0 {
		return models.DistributionSnapshot{}, false
	}
	return idx.snapshots[len(idx.snapshots)-1], true
}

// Nearest returns the snapshot closest to date. Ties go to the earlier snapshot.
// It reports false when the closest snapshot is more than MaxStaleness away.
func (idx *Index) Nearest(date time.Time) (models.DistributionSnapshot, bool) {
	if idx.Len() == 0 {
		return models.DistributionSnapshot{}, false
	}

	best := -1
	var bestDist time.Duration
	for i, s := range idx.snapshots {
		dist := s.AsOf.Sub(date)
		if dist < 0 {
			dist = -dist
		}
		if best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}

	if bestDist > MaxStaleness {
		return models.DistributionSnapshot{}, false
	}
	return idx.snapshots[best], true
}

// CountAtOrAbove estimates the candidates scoring threshold or higher in snapshot.
// Bands are walked from the highest down; the walk stops at the first band that is
// not entirely above the threshold.
func CountAtOrAbove(snapshot models.DistributionSnapshot, threshold int) int {
	bands := make([]models.Band, len(snapshot.Bands))
	copy(bands, snapshot.Bands)
	sort.SliceStable(bands, func(i, j int) bool {
		return bands[i].Min > bands[j].Min
	})

	var total float64
	high := ScoreCeiling
	for _, b := range bands {
		if b.Min >= threshold {
			total += float64(b.Count)
			high = b.Min - 1
			continue
		}
		if high >= threshold {
			span := high - b.Min + 1
			total += math.Round(float64(b.Count) * float64(high-threshold+1) / float64(span))
		}
		break
	}
	return int(total)
}
