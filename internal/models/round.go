// Package models defines the domain entities for the drawcast application.
// These models represent invitation rounds and candidate-pool distribution snapshots
// as delivered by the draw feed. All models include built-in validation so that
// malformed feed entries are rejected before they reach storage or the engine.
//
// Terminology:
//   - Round: one invitation event with a minimum qualifying score.
//   - Category: a program grouping whose rounds form one series.
//   - Snapshot: a point-in-time histogram of the candidate pool across score bands.
package models

import (
	"errors"
	"sort"
	"time"
)

// dateLayout is the calendar-date format used by the feed and storage.
const dateLayout = "2006-01-02"

// Round represents a single historical invitation round for a category.
type Round struct {
	ID          string    `json:"id,omitempty"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	Score       int       `json:"score"`       // Minimum qualifying score
	Invitations int       `json:"invitations"` // Invitations issued, 0 when unknown
}

// Validate checks that all round fields are valid.
func (r *Round) Validate() error {
	if r.Category == "" {
		return errors.New("round category must not be empty")
	}
	if r.Date.IsZero() {
		return errors.New("round date must be set")
	}
	if r.Score < 0 {
		return errors.New("round score must not be negative")
	}
	if r.Invitations < 0 {
		return errors.New("round invitations must not be negative")
	}
	return nil
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a feed calendar date (YYYY-MM-DD) as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// FormatDate renders t as a feed calendar date.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// SortRounds returns a copy of rounds ordered by date ascending.
// Rounds sharing a date keep their input order.
func SortRounds(rounds []Round) []Round {
	sorted := make([]Round, len(rounds))
	copy(sorted, rounds)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// GroupByCategory splits rounds into per-category series. Category order follows
// first appearance in the input; each series is sorted by date.
func GroupByCategory(rounds []Round) (map[string][]Round, []string) {
	groups := make(map[string][]Round)
	var order []string
	for _, r := range rounds {
		if _, exists := groups[r.Category]; !exists {
			order = append(order, r.Category)
		}
		groups[r.Category] = append(groups[r.Category], r)
	}
	for cat, series := range groups {
		groups[cat] = SortRounds(series)
	}
	return groups, order
}

// FilterSince returns the rounds dated on or after since. A zero since keeps everything.
func FilterSince(rounds []Round, since time.Time) []Round {
	if since.IsZero() {
		return rounds
	}
	var filtered []Round
	for _, r := range rounds {
		if !r.Date.Before(since) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
