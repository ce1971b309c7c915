package models

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRoundValidate(t *testing.T) {
	tests := []struct {
		name    string
		round   Round
		wantErr bool
	}{
		{
			name:    "valid round",
			round:   Round{Category: "general", Date: day("2024-01-01"), Score: 480, Invitations: 3000},
			wantErr: false,
		},
		{
			name:    "missing invitations is fine",
			round:   Round{Category: "general", Date: day("2024-01-01"), Score: 480},
			wantErr: false,
		},
		{
			name:    "empty category",
			round:   Round{Date: day("2024-01-01"), Score: 480},
			wantErr: true,
		},
		{
			name:    "zero date",
			round:   Round{Category: "general", Score: 480},
			wantErr: true,
		},
		{
			name:    "negative score",
			round:   Round{Category: "general", Date: day("2024-01-01"), Score: -1},
			wantErr: true,
		},
		{
			name:    "negative invitations",
			round:   Round{Category: "general", Date: day("2024-01-01"), Score: 480, Invitations: -5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.round.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Round.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSnapshotValidate(t *testing.T) {
	tests := []struct {
		name     string
		snapshot DistributionSnapshot
		wantErr  bool
	}{
		{
			name: "valid snapshot",
			snapshot: DistributionSnapshot{
				AsOf:  day("2024-03-01"),
				Bands: []Band{{Min: 601, Count: 100}, {Min: 501, Count: 200}, {Min: 0, Count: 9700}},
				Total: 10000,
			},
			wantErr: false,
		},
		{
			name:     "no bands",
			snapshot: DistributionSnapshot{AsOf: day("2024-03-01")},
			wantErr:  true,
		},
		{
			name: "ascending bands",
			snapshot: DistributionSnapshot{
				AsOf:  day("2024-03-01"),
				Bands: []Band{{Min: 0, Count: 9700}, {Min: 501, Count: 200}},
				Total: 9900,
			},
			wantErr: true,
		},
		{
			name: "gap at the bottom",
			snapshot: DistributionSnapshot{
				AsOf:  day("2024-03-01"),
				Bands: []Band{{Min: 601, Count: 100}, {Min: 501, Count: 200}},
				Total: 300,
			},
			wantErr: true,
		},
		{
			name: "total mismatch",
			snapshot: DistributionSnapshot{
				AsOf:  day("2024-03-01"),
				Bands: []Band{{Min: 501, Count: 200}, {Min: 0, Count: 9700}},
				Total: 1,
			},
			wantErr: true,
		},
		{
			name: "total off by one",
			snapshot: DistributionSnapshot{
				AsOf:  day("2024-03-01"),
				Bands: []Band{{Min: 501, Count: 200}, {Min: 0, Count: 9700}},
				Total: 9901,
			},
			wantErr: true,
		},
		{
			name: "large counts sum exactly",
			snapshot: DistributionSnapshot{
				AsOf:  day("2024-03-01"),
				Bands: []Band{{Min: 501, Count: 2_000_000_000}, {Min: 0, Count: 1}},
				Total: 2_000_000_001,
			},
			wantErr: false,
		},
		{
			name: "negative count",
			snapshot: DistributionSnapshot{
				AsOf:  day("2024-03-01"),
				Bands: []Band{{Min: 501, Count: -200}, {Min: 0, Count: 200}},
				Total: 0,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snapshot.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("DistributionSnapshot.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSortRoundsStable(t *testing.T) {
	rounds := []Round{
		{ID: "c", Category: "general", Date: day("2024-06-01"), Score: 460},
		{ID: "a", Category: "general", Date: day("2024-01-01"), Score: 480},
		{ID: "b1", Category: "general", Date: day("2024-03-01"), Score: 470},
		{ID: "b2", Category: "general", Date: day("2024-03-01"), Score: 475},
	}

	sorted := SortRounds(rounds)
	want := []string{"a", "b1", "b2", "c"}
	for i, id := range want {
		if sorted[i].ID != id {
			t.Errorf("sorted[%d].ID = %s, want %s", i, sorted[i].ID, id)
		}
	}
	if rounds[0].ID != "c" {
		t.Error("SortRounds must not reorder its input")
	}
}

func TestGroupByCategory(t *testing.T) {
	rounds := []Round{
		{Category: "pnp", Date: day("2024-02-01"), Score: 700},
		{Category: "general", Date: day("2024-06-01"), Score: 460},
		{Category: "general", Date: day("2024-01-01"), Score: 480},
	}

	groups, order := GroupByCategory(rounds)
	if len(order) != 2 || order[0] != "pnp" || order[1] != "general" {
		t.Fatalf("order = %v, want [pnp general]", order)
	}
	general := groups["general"]
	if len(general) != 2 || general[0].Score != 480 {
		t.Errorf("general series not sorted by date: %+v", general)
	}
}

func TestFilterSince(t *testing.T) {
	rounds := []Round{
		{Category: "general", Date: day("2024-01-01"), Score: 480},
		{Category: "general", Date: day("2024-06-01"), Score: 460},
	}
	if got := FilterSince(rounds, time.Time{}); len(got) != 2 {
		t.Errorf("zero since kept %d rounds, want 2", len(got))
	}
	if got := FilterSince(rounds, day("2024-06-01")); len(got) != 1 || got[0].Score != 460 {
		t.Errorf("FilterSince = %+v, want only the June round", got)
	}
}

func TestDay(t *testing.T) {
	in := time.Date(2024, 5, 17, 23, 30, 0, 0, time.UTC)
	if got := Day(in); !got.Equal(day("2024-05-17")) {
		t.Errorf("Day(%v) = %v", in, got)
	}
}
