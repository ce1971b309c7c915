package models

import (
	"errors"
	"fmt"
	"time"
)

// Band is one score range of a pool distribution. A band covers scores from Min up to
// (but excluding) the Min of the next higher band; the highest band is open-ended.
type Band struct {
	Min   int `json:"min"`
	Count int `json:"count"`
}

// DistributionSnapshot is a point-in-time histogram of the candidate pool.
// Snapshots are pool-wide and not tied to a category.
type DistributionSnapshot struct {
	AsOf  time.Time `json:"as_of"`
	Bands []Band    `json:"bands"` // Ordered by Min descending
	Total int       `json:"total"`
}

// Validate checks band ordering, coverage down to zero and the total.
func (s *DistributionSnapshot) Validate() error {
	if s.AsOf.IsZero() {
		return errors.New("snapshot date must be set")
	}
	if len(s.Bands) == 0 {
		return errors.New("snapshot must contain at least one band")
	}

	sum := 0
	for i, b := range s.Bands {
		if b.Count < 0 {
			return fmt.Errorf("band %d count must not be negative", b.Min)
		}
		if i > 0 && b.Min >= s.Bands[i-1].Min {
			return errors.New("bands must be ordered by min descending")
		}
		sum += b.Count
	}
	if s.Bands[len(s.Bands)-1].Min != 0 {
		return errors.New("lowest band must start at 0")
	}
	if sum != s.Total {
		return errors.New("snapshot total must equal the sum of band counts")
	}
	return nil
}
