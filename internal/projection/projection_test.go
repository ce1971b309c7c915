package projection

import (
	"reflect"
	"testing"
	"time"

	"github.com/rewired-gh/drawcast/internal/models"
	"github.com/rewired-gh/drawcast/internal/regression"
)

func day(s string) time.Time {
	t, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// monthlySeries builds one round per month starting 2024-01-01 with the given scores.
func monthlySeries(scores ...int) []models.Round {
	start := day("2024-01-01")
	series := make([]models.Round, len(scores))
	for i, s := range scores {
		series[i] = models.Round{
			Category:    "general",
			Date:        start.AddDate(0, i, 0),
			Score:       s,
			Invitations: 3000,
		}
	}
	return series
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"linear", ModeLinear, false},
		{" Polynomial ", ModePolynomial, false},
		{"moving-average", ModeMovingAverage, false},
		{"off", ModeOff, false},
		{"", ModeOff, false},
		{"cubic", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = (%q, %v), want (%q, err=%v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestBuildRequiresThreePoints(t *testing.T) {
	for _, mode := range []Mode{ModeLinear, ModePolynomial, ModeMovingAverage} {
		if got := Build(monthlySeries(480, 470), mode); got != nil {
			t.Errorf("Build(%s) with 2 points = %v, want nil", mode, got)
		}
	}
}

func TestBuildOffMode(t *testing.T) {
	if got := Build(monthlySeries(480, 470, 460), ModeOff); got != nil {
		t.Errorf("Build(off) = %v, want nil", got)
	}
}

func TestBuildLinear(t *testing.T) {
	series := monthlySeries(500, 495, 490, 485, 480)
	points := Build(series, ModeLinear)

	if len(points) != Steps+1 {
		t.Fatalf("len = %d, want %d", len(points), Steps+1)
	}
	first, last := series[0].Date, series[len(series)-1].Date
	if !points[0].Date.Equal(first) {
		t.Errorf("first point date = %v, want %v", points[0].Date, first)
	}
	if want := last.AddDate(0, HorizonMonths, 0); !points[Steps].Date.Equal(want) {
		t.Errorf("last point date = %v, want %v", points[Steps].Date, want)
	}
	for i, p := range points {
		if p.IsForecast != p.Date.After(last) {
			t.Errorf("point %d (%v) IsForecast = %v", i, p.Date, p.IsForecast)
		}
		if i > 0 && p.Value > points[i-1].Value {
			t.Errorf("declining series produced rising value at %d: %v > %v", i, p.Value, points[i-1].Value)
		}
	}
	if points[0].Value < 499 || points[0].Value > 501 {
		t.Errorf("first value = %v, want ~500", points[0].Value)
	}
}

func TestBuildClampsAtZero(t *testing.T) {
	series := monthlySeries(300, 150, 20)
	for _, p := range Build(series, ModeLinear) {
		if p.Value < 0 {
			t.Fatalf("value %v at %v is negative", p.Value, p.Date)
		}
	}
	points := Build(series, ModeLinear)
	if points[len(points)-1].Value != 0 {
		t.Errorf("steep decline should floor at 0, got %v", points[len(points)-1].Value)
	}
}

func TestBuildPolynomialFallsBackWithThreePoints(t *testing.T) {
	series := monthlySeries(480, 470, 465)
	if lin, poly := Build(series, ModeLinear), Build(series, ModePolynomial); !reflect.DeepEqual(lin, poly) {
		t.Error("polynomial over 3 points must match linear")
	}
}

func TestBuildMovingAverage(t *testing.T) {
	series := monthlySeries(470, 470, 470, 470, 470, 470, 470, 470)
	points := Build(series, ModeMovingAverage)

	overlay := len(series) - MovingAverageWindow + 1
	if len(points) != overlay+ForecastPoints {
		t.Fatalf("len = %d, want %d", len(points), overlay+ForecastPoints)
	}
	last := series[len(series)-1].Date
	for i, p := range points {
		if p.Value != 470 {
			t.Errorf("point %d value = %v, want 470", i, p.Value)
		}
		if wantForecast := i >= overlay; p.IsForecast != wantForecast {
			t.Errorf("point %d IsForecast = %v, want %v", i, p.IsForecast, wantForecast)
		}
	}
	if want := last.AddDate(0, HorizonMonths, 0); !points[len(points)-1].Date.Equal(want) {
		t.Errorf("final forecast date = %v, want %v", points[len(points)-1].Date, want)
	}
}

func TestBuildMovingAverageShortSeries(t *testing.T) {
	for n := MinSeriesPoints; n < MovingAverageWindow; n++ {
		values := make([]int, n)
		for i := range values {
			values[i] = 480 - 10*i
		}
		if got := Build(monthlySeries(values...), ModeMovingAverage); got != nil {
			t.Errorf("Build(moving-average) with %d points = %v, want nil", n, got)
		}
		if _, ok := Fit(SeriesPoints(monthlySeries(values...)), ModeMovingAverage); ok {
			t.Errorf("Fit(moving-average) with %d points reported a model", n)
		}
	}
}

func TestBuildMovingAverageFullWindow(t *testing.T) {
	// Exactly one window yields one smoothed point and no forecast.
	points := Build(monthlySeries(500, 490, 480, 470, 460, 450), ModeMovingAverage)
	if len(points) != 1 {
		t.Fatalf("len = %d, want 1", len(points))
	}
	if points[0].Value != 475 || points[0].IsForecast {
		t.Errorf("point = %+v, want historical 475", points[0])
	}
}

func TestBuildIdempotent(t *testing.T) {
	series := monthlySeries(510, 490, 495, 480, 470, 476, 468, 460)
	for _, mode := range []Mode{ModeLinear, ModePolynomial, ModeMovingAverage} {
		a, b := Build(series, mode), Build(series, mode)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("Build(%s) not idempotent", mode)
		}
	}
}

func TestBuildSortsInput(t *testing.T) {
	series := monthlySeries(500, 490, 480, 470)
	shuffled := []models.Round{series[2], series[0], series[3], series[1]}
	if !reflect.DeepEqual(Build(series, ModeLinear), Build(shuffled, ModeLinear)) {
		t.Error("Build must order rounds by date before fitting")
	}
}

func TestFitMovingAverageUsesTail(t *testing.T) {
	// The whole series trends down but the smoothed tail turns upward.
	points := SeriesPoints(monthlySeries(600, 550, 500, 450, 400, 400, 400, 400, 400, 460, 520, 580))

	ma, ok := Fit(points, ModeMovingAverage)
	if !ok {
		t.Fatal("Fit(moving-average) reported no model")
	}
	lin, ok := Fit(points, ModeLinear)
	if !ok {
		t.Fatal("Fit(linear) reported no model")
	}
	if ma.Slope() <= 0 {
		t.Errorf("moving-average tail slope = %v, want positive", ma.Slope())
	}
	if lin.Slope() >= 0 {
		t.Errorf("linear slope = %v, want negative", lin.Slope())
	}
}

func TestFitUnknownMode(t *testing.T) {
	if _, ok := Fit(SeriesPoints(monthlySeries(1, 2, 3)), ModeOff); ok {
		t.Error("Fit(off) must report no model")
	}
}

func TestFirstCrossing(t *testing.T) {
	from := day("2025-01-01")
	x0 := regression.TimeX(from)
	perWeek := float64(SearchStep.Milliseconds())

	falling, _ := regression.LinearFit([]regression.Point{{X: x0, Y: 460}, {X: x0 + perWeek, Y: 459}})
	got, ok := FirstCrossing(falling, from, 450.5)
	if !ok {
		t.Fatal("expected a crossing for a falling line")
	}
	if want := from.Add(10 * SearchStep); !got.Equal(want) {
		t.Errorf("crossing = %v, want %v", got, want)
	}

	rising, _ := regression.LinearFit([]regression.Point{{X: x0, Y: 460}, {X: x0 + perWeek, Y: 461}})
	if _, ok := FirstCrossing(rising, from, 450); ok {
		t.Error("rising line must not cross")
	}

	// 0.05 per week reaches 450 after 200 weeks, beyond the three-year horizon.
	slow, _ := regression.LinearFit([]regression.Point{{X: x0, Y: 460}, {X: x0 + perWeek, Y: 459.95}})
	if _, ok := FirstCrossing(slow, from, 450); ok {
		t.Error("crossing beyond the horizon must not be reported")
	}

	if _, ok := FirstCrossing(nil, from, 450); ok {
		t.Error("nil model must not cross")
	}
}
