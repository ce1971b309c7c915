// Package tracker evaluates a user profile against every category in the draw history.
//
// For each category the tracker trims the series to the profile's lookback window,
// builds the chart projection, and resolves the eligibility verdict against the
// shared pool distribution index. Results are collected into a Report.
//
// The tracker also remembers the last verdict sent per category so that repeated
// polls only notify when a category's verdict actually changes.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/drawcast/internal/distribution"
	"github.com/rewired-gh/drawcast/internal/eligibility"
	"github.com/rewired-gh/drawcast/internal/logger"
	"github.com/rewired-gh/drawcast/internal/models"
	"github.com/rewired-gh/drawcast/internal/projection"
	"github.com/rewired-gh/drawcast/internal/storage"
)

// ErrNoRounds is reported for a category with no rounds inside the lookback window.
var ErrNoRounds = errors.New("no rounds in window")

// Profile describes the user being evaluated
type Profile struct {
	Score      int
	Mode       projection.Mode
	Categories []string      // Empty means every category present
	Lookback   time.Duration // 0 keeps the full history
}

// CategoryResult is the evaluation of one category
type CategoryResult struct {
	Category   string              `json:"category"`
	Verdict    eligibility.Verdict `json:"verdict"`
	Latest     models.Round        `json:"latest"`
	Rounds     int                 `json:"rounds"`
	Projection []projection.Point  `json:"projection,omitempty"`
}

// Report is the outcome of one evaluation pass
type Report struct {
	ID      string           `json:"id"`
	AsOf    time.Time        `json:"as_of"`
	Score   int              `json:"score"`
	Mode    projection.Mode  `json:"mode"`
	Results []CategoryResult `json:"results"`
}

// CategoryError represents a per-category error during evaluation
type CategoryError struct {
	Category string
	Err      error
}

func (e CategoryError) Error() string {
	return fmt.Sprintf("evaluation error for category %s: %v", e.Category, e.Err)
}

func (e CategoryError) Unwrap() error {
	return e.Err
}

// notifiedRecord tracks the last verdict sent for a category.
type notifiedRecord struct {
	Verdict string
	SentAt  time.Time
}

// Tracker evaluates profiles and deduplicates notifications
type Tracker struct {
	storage  *storage.Storage
	notified map[string]notifiedRecord // key = category
}

// New creates a new Tracker. s may be nil when only Evaluate is used.
func New(s *storage.Storage) *Tracker {
	return &Tracker{
		storage:  s,
		notified: make(map[string]notifiedRecord),
	}
}

// EvaluateStored loads the stored history and evaluates it.
func (t *Tracker) EvaluateStored(ctx context.Context, profile Profile, asOf time.Time) (Report, []CategoryError, error) {
	if t.storage == nil {
		return Report{}, nil, errors.New("tracker has no storage")
	}
	rounds, err := t.storage.GetAllRounds(ctx)
	if err != nil {
		return Report{}, nil, fmt.Errorf("failed to load rounds: %w", err)
	}
	snapshots, err := t.storage.GetSnapshots(ctx)
	if err != nil {
		return Report{}, nil, fmt.Errorf("failed to load snapshots: %w", err)
	}
	report, catErrs := t.Evaluate(rounds, snapshots, profile, asOf)
	return report, catErrs, nil
}

// Evaluate resolves every selected category. A zero asOf means the date of the
// latest round across all categories; the lookback window is measured back from it.
// Categories that cannot be evaluated are returned as non-fatal errors.
func (t *Tracker) Evaluate(rounds []models.Round, snapshots []models.DistributionSnapshot, profile Profile, asOf time.Time) (Report, []CategoryError) {
	groups, order := models.GroupByCategory(rounds)
	if len(profile.Categories) > 0 {
		order = profile.Categories
	}

	if asOf.IsZero() {
		for _, r := range rounds {
			if r.Date.After(asOf) {
				asOf = r.Date
			}
		}
	}
	var since time.Time
	if profile.Lookback > 0 && !asOf.IsZero() {
		since = asOf.Add(-profile.Lookback)
	}

	pool := distribution.NewIndex(snapshots)

	report := Report{
		ID:      uuid.New().String(),
		AsOf:    models.Day(asOf),
		Score:   profile.Score,
		Mode:    profile.Mode,
		Results: []CategoryResult{},
	}
	var catErrs []CategoryError

	for _, cat := range order {
		series := models.FilterSince(groups[cat], since)
		if len(series) == 0 {
			catErrs = append(catErrs, CategoryError{Category: cat, Err: ErrNoRounds})
			continue
		}

		verdict := eligibility.Resolve(eligibility.Request{
			Series: series,
			Pool:   pool,
			Score:  profile.Score,
			Mode:   profile.Mode,
			AsOf:   asOf,
		})

		report.Results = append(report.Results, CategoryResult{
			Category:   cat,
			Verdict:    verdict,
			Latest:     series[len(series)-1],
			Rounds:     len(series),
			Projection: projection.Build(series, profile.Mode),
		})
		logger.Debug("Evaluate: category=%s rounds=%d verdict=%s", cat, len(series), verdict)
	}

	logger.Debug("Evaluate: %d categories, %d errors, %d snapshots", len(report.Results), len(catErrs), pool.Len())
	return report, catErrs
}

// FilterChanged returns the results whose verdict differs from the last one sent
// for that category. Returns a non-nil slice.
func (t *Tracker) FilterChanged(results []CategoryResult) []CategoryResult {
	changed := []CategoryResult{}
	for _, res := range results {
		rec, exists := t.notified[res.Category]
		if exists && rec.Verdict == res.Verdict.String() {
			continue
		}
		changed = append(changed, res)
	}
	return changed
}

// RecordNotified records the verdicts as sent at the current time.
// Call this after a successful Telegram send.
func (t *Tracker) RecordNotified(results []CategoryResult) {
	now := time.Now()
	for _, res := range results {
		t.notified[res.Category] = notifiedRecord{
			Verdict: res.Verdict.String(),
			SentAt:  now,
		}
	}
}
