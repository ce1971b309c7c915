package distribution

import (
	"testing"
	"time"

	"github.com/rewired-gh/drawcast/internal/models"
)

func day(s string) time.Time {
	t, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func snapshotAt(date string, bands ...models.Band) models.DistributionSnapshot {
	total := 0
	for _, b := range bands {
		total += b.Count
	}
	return models.DistributionSnapshot{AsOf: day(date), Bands: bands, Total: total}
}

func standardBands() []models.Band {
	return []models.Band{{Min: 601, Count: 100}, {Min: 501, Count: 200}, {Min: 0, Count: 9700}}
}

func TestCountAtOrAbove(t *testing.T) {
	snap := snapshotAt("2024-03-01", standardBands()...)

	tests := []struct {
		name      string
		threshold int
		want      int
	}{
		{name: "straddles middle band", threshold: 550, want: 202},
		{name: "exactly at band min", threshold: 501, want: 300},
		{name: "top band boundary", threshold: 601, want: 100},
		{name: "inside top band", threshold: 1100, want: 17},
		{name: "above ceiling", threshold: 1201, want: 0},
		{name: "zero counts everyone", threshold: 0, want: 10000},
		{name: "just below middle band", threshold: 500, want: 300 + 19},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountAtOrAbove(snap, tt.threshold); got != tt.want {
				t.Errorf("CountAtOrAbove(%d) = %d, want %d", tt.threshold, got, tt.want)
			}
		})
	}
}

func TestCountAtOrAboveStopsAtFirstStraddle(t *testing.T) {
	// A lower band listed first must not leak counts past the straddling band.
	snap := models.DistributionSnapshot{
		AsOf:  day("2024-03-01"),
		Bands: []models.Band{{Min: 0, Count: 9700}, {Min: 501, Count: 200}, {Min: 601, Count: 100}},
		Total: 10000,
	}
	if got := CountAtOrAbove(snap, 550); got != 202 {
		t.Errorf("CountAtOrAbove = %d, want 202", got)
	}
}

func TestNewIndexDedupesAndSorts(t *testing.T) {
	first := snapshotAt("2024-02-01", models.Band{Min: 0, Count: 10})
	dup := snapshotAt("2024-02-01", models.Band{Min: 0, Count: 99})
	earlier := snapshotAt("2024-01-01", models.Band{Min: 0, Count: 5})

	idx := NewIndex([]models.DistributionSnapshot{first, dup, earlier})
	if idx.Len() != 2 {
		t.Fatalf("Len = %d, want 2", idx.Len())
	}
	snaps := idx.Snapshots()
	if !snaps[0].AsOf.Equal(day("2024-01-01")) {
		t.Errorf("first snapshot = %v, want 2024-01-01", snaps[0].AsOf)
	}
	if snaps[1].Total != 10 {
		t.Errorf("duplicate date kept total %d, want first occurrence (10)", snaps[1].Total)
	}

	latest, ok := idx.Latest()
	if !ok || !latest.AsOf.Equal(day("2024-02-01")) {
		t.Errorf("Latest = %v, %v", latest.AsOf, ok)
	}
}

func TestNearest(t *testing.T) {
	idx := NewIndex([]models.DistributionSnapshot{
		snapshotAt("2024-01-01", models.Band{Min: 0, Count: 1}),
		snapshotAt("2024-02-01", models.Band{Min: 0, Count: 2}),
		snapshotAt("2024-03-01", models.Band{Min: 0, Count: 3}),
	})

	tests := []struct {
		name      string
		date      string
		wantTotal int
		wantOK    bool
	}{
		{name: "exact match", date: "2024-02-01", wantTotal: 2, wantOK: true},
		{name: "closer to later", date: "2024-02-25", wantTotal: 3, wantOK: true},
		{name: "within freshness window after last", date: "2024-03-31", wantTotal: 3, wantOK: true},
		{name: "stale after last", date: "2024-04-01", wantOK: false},
		{name: "stale before first", date: "2023-11-15", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := idx.Nearest(day(tt.date))
			if ok != tt.wantOK {
				t.Fatalf("Nearest ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Total != tt.wantTotal {
				t.Errorf("Nearest total = %d, want %d", got.Total, tt.wantTotal)
			}
		})
	}
}

func TestNilIndex(t *testing.T) {
	var idx *Index
	if idx.Len() != 0 {
		t.Error("nil index must be empty")
	}
	if _, ok := idx.Nearest(day("2024-01-01")); ok {
		t.Error("nil index must not return a snapshot")
	}
}
