// Package eligibility decides, for one category and one target score, whether the
// holder is eligible now and, if not, when they may become eligible.
//
// Resolution runs an ordered list of attempts and stops at the first that yields a
// verdict:
//
//	eligible now → pool-aware crossing → score-trend crossing → last eligible → ineligible
//
// The chain is total: every request ends in exactly one verdict.
package eligibility

import (
	"fmt"
	"time"

	"github.com/rewired-gh/drawcast/internal/distribution"
	"github.com/rewired-gh/drawcast/internal/models"
	"github.com/rewired-gh/drawcast/internal/poolmodel"
	"github.com/rewired-gh/drawcast/internal/projection"
)

// Kind tags a Verdict.
type Kind int

const (
	Ineligible Kind = iota
	Eligible
	Projected
	LastEligible
)

func (k Kind) String() string {
	switch k {
	case Eligible:
		return "eligible"
	case Projected:
		return "projected"
	case LastEligible:
		return "last-eligible"
	default:
		return "ineligible"
	}
}

// Verdict is the eligibility answer for one category.
type Verdict struct {
	Kind           Kind      `json:"kind"`
	EligibleRounds int       `json:"eligible_rounds,omitempty"` // Rounds with score <= target
	Date           time.Time `json:"date,omitempty"`            // Projected or last-eligible date
	UsedPoolModel  bool      `json:"used_pool_model,omitempty"`
	Competitive    bool      `json:"competitive,omitempty"` // Pool already at parity
}

func (v Verdict) String() string {
	switch v.Kind {
	case Eligible:
		return fmt.Sprintf("eligible (%d past rounds)", v.EligibleRounds)
	case Projected:
		switch {
		case v.Competitive:
			return "projected: competitive now (pool model)"
		case v.UsedPoolModel:
			return fmt.Sprintf("projected %s (pool model)", models.FormatDate(v.Date))
		default:
			return fmt.Sprintf("projected %s (trend)", models.FormatDate(v.Date))
		}
	case LastEligible:
		return fmt.Sprintf("last eligible %s", models.FormatDate(v.Date))
	default:
		return "ineligible"
	}
}

// Request carries one category's already date-filtered series and the user's inputs.
// Pool may be nil. A zero AsOf means the date of the latest round.
type Request struct {
	Series []models.Round
	Pool   *distribution.Index
	Score  int
	Mode   projection.Mode
	AsOf   time.Time
}

// attempt returns a verdict and true when it can decide the request.
type attempt func(req *Request) (Verdict, bool)

var pipeline = []attempt{
	eligibleNow,
	poolCrossing,
	trendCrossing,
	lastEligible,
}

// Resolve returns the verdict for req.
func Resolve(req Request) Verdict {
	req.Series = models.SortRounds(req.Series)
	if req.AsOf.IsZero() && len(req.Series) > 0 {
		req.AsOf = req.Series[len(req.Series)-1].Date
	}

	for _, try := range pipeline {
		if v, ok := try(&req); ok {
			return v
		}
	}
	return Verdict{Kind: Ineligible}
}

func eligibleNow(req *Request) (Verdict, bool) {
	if len(req.Series) == 0 || req.Series[len(req.Series)-1].Score > req.Score {
		return Verdict{}, false
	}
	count := 0
	for _, r := range req.Series {
		if r.Score <= req.Score {
			count++
		}
	}
	return Verdict{Kind: Eligible, EligibleRounds: count}, true
}

func projectable(req *Request) bool {
	return req.Mode != projection.ModeOff && len(req.Series) >= 2
}

func poolCrossing(req *Request) (Verdict, bool) {
	if !projectable(req) || req.Pool.Len() < poolmodel.MinSnapshots {
		return Verdict{}, false
	}

	res := poolmodel.Estimate(req.Series, req.Pool, req.Score, req.Mode, req.AsOf)
	switch res.Outcome {
	case poolmodel.Crossing:
		return Verdict{Kind: Projected, Date: res.Date, UsedPoolModel: true}, true
	case poolmodel.Competitive:
		return Verdict{Kind: Projected, Date: req.AsOf, UsedPoolModel: true, Competitive: true}, true
	default:
		return Verdict{}, false
	}
}

func trendCrossing(req *Request) (Verdict, bool) {
	if !projectable(req) {
		return Verdict{}, false
	}

	model, ok := projection.Fit(projection.SeriesPoints(req.Series), req.Mode)
	if !ok {
		return Verdict{}, false
	}
	last := req.Series[len(req.Series)-1].Date
	date, ok := projection.FirstCrossing(model, last, float64(req.Score))
	if !ok {
		return Verdict{}, false
	}
	return Verdict{Kind: Projected, Date: date}, true
}

func lastEligible(req *Request) (Verdict, bool) {
	for i := len(req.Series) - 1; i >= 0; i-- {
		if req.Series[i].Score <= req.Score {
			return Verdict{Kind: LastEligible, Date: req.Series[i].Date}, true
		}
	}
	return Verdict{}, false
}
