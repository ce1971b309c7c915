// Package poolmodel estimates when a target score becomes competitive by tracking
// the candidate pool rather than the raw cutoff trend.
//
// For each distribution snapshot it computes a competition ratio
//
//	ratio = candidates at or above target / median invitations of recent rounds
//
// fits the ratio series with the caller's projection mode, and searches weekly for
// the first date the fitted ratio falls to parity (1.0). Cutoffs can stall inside a
// dense score band for months while a plain score trend predicts a steady decline;
// the ratio follows the density instead.
package poolmodel

import (
	"sort"
	"time"

	"github.com/rewired-gh/drawcast/internal/distribution"
	"github.com/rewired-gh/drawcast/internal/models"
	"github.com/rewired-gh/drawcast/internal/projection"
	"github.com/rewired-gh/drawcast/internal/regression"
)

const (
	// MinSnapshots is the fewest indexed snapshots the model will work from.
	MinSnapshots = 3
	// RecentRounds is how many of the latest rounds feed the typical invitation volume.
	RecentRounds = 10
	// Parity is the competition ratio at which supply matches demand.
	Parity = 1.0
)

// Outcome tags the result of an estimate.
type Outcome int

const (
	// Unavailable means the model could not run; callers fall back to the score trend.
	Unavailable Outcome = iota
	// Competitive means the current ratio is already at or below parity.
	Competitive
	// Crossing means a future parity date was found within the search horizon.
	Crossing
	// NoCrossing means the fitted ratio stays above parity for the whole horizon.
	NoCrossing
)

func (o Outcome) String() string {
	switch o {
	case Competitive:
		return "competitive"
	case Crossing:
		return "crossing"
	case NoCrossing:
		return "no-crossing"
	default:
		return "unavailable"
	}
}

// Result is the outcome of Estimate with the figures that produced it.
type Result struct {
	Outcome           Outcome
	Date              time.Time // Parity date when Outcome is Crossing
	CurrentRatio      float64
	MedianInvitations float64
	Reason            string // Why the model was unavailable
}

// Estimate runs the pool-aware crossing model for one category series.
// The current ratio comes from the most recent snapshot. The model is unavailable
// when no snapshot lies within the index's freshness window of asOf.
func Estimate(series []models.Round, idx *distribution.Index, target int, mode projection.Mode, asOf time.Time) Result {
	if mode == projection.ModeOff {
		return Result{Outcome: Unavailable, Reason: "projection disabled"}
	}
	if idx.Len() < MinSnapshots {
		return Result{Outcome: Unavailable, Reason: "not enough distribution snapshots"}
	}

	median, ok := MedianInvitations(series)
	if !ok {
		return Result{Outcome: Unavailable, Reason: "no rounds with invitation counts"}
	}
	res := Result{MedianInvitations: median}

	snapshots := idx.Snapshots()
	ratios := make([]regression.Point, len(snapshots))
	for i, s := range snapshots {
		ratios[i] = regression.Point{
			X: regression.TimeX(s.AsOf),
			Y: float64(distribution.CountAtOrAbove(s, target)) / median,
		}
	}
	if _, fresh := idx.Nearest(asOf); !fresh {
		res.Reason = "no distribution snapshot near the evaluation date"
		return res
	}
	current, _ := idx.Latest()
	res.CurrentRatio = float64(distribution.CountAtOrAbove(current, target)) / median
	if res.CurrentRatio <= Parity {
		res.Outcome = Competitive
		return res
	}

	model, ok := projection.Fit(ratios, mode)
	if !ok {
		res.Reason = "competition ratio fit is degenerate"
		return res
	}

	lastDate := snapshots[len(snapshots)-1].AsOf
	date, ok := projection.FirstCrossing(model, lastDate, Parity)
	if !ok {
		res.Outcome = NoCrossing
		return res
	}
	res.Outcome = Crossing
	res.Date = date
	return res
}

// MedianInvitations returns the median invitation count over the most recent
// RecentRounds rounds that report a positive count.
func MedianInvitations(series []models.Round) (float64, bool) {
	var counts []float64
	for _, r := range models.SortRounds(series) {
		if r.Invitations > 0 {
			counts = append(counts, float64(r.Invitations))
		}
	}
	if len(counts) == 0 {
		return 0, false
	}
	if len(counts) > RecentRounds {
		counts = counts[len(counts)-RecentRounds:]
	}

	sort.Float64s(counts)
	mid := len(counts) / 2
	if len(counts)%2 == 1 {
		return counts[mid], true
	}
	return (counts[mid-1] + counts[mid]) / 2, true
}
