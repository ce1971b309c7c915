// Package projection turns a category's round history into chart-ready trend points
// and hosts the fitting and crossing-search policy shared by the eligibility models.
//
// Modes:
//   - linear: least-squares line over the whole series
//   - polynomial: least-squares quadratic, falling back to linear
//   - moving-average: trailing mean over a fixed window of six rounds, extrapolated
//     by a line through its last three smoothed points; shorter series get no overlay
package projection

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rewired-gh/drawcast/internal/models"
	"github.com/rewired-gh/drawcast/internal/regression"
)

// Mode selects the trend model used for projections and crossing searches.
type Mode string

const (
	ModeOff           Mode = "off"
	ModeLinear        Mode = "linear"
	ModeMovingAverage Mode = "moving-average"
	ModePolynomial    Mode = "polynomial"
)

const (
	// Steps is the number of intervals between emitted linear/polynomial points.
	Steps = 40
	// HorizonMonths is how far past the last observation projections extend.
	HorizonMonths = 6
	// ForecastPoints is the number of forward points appended in moving-average mode.
	ForecastPoints = 12
	// MovingAverageWindow is the trailing window. Shorter series get no moving-average output.
	MovingAverageWindow = 6
	// MinSeriesPoints is the shortest series Build will project.
	MinSeriesPoints = 3

	// SearchStep and SearchHorizonYears bound every crossing search.
	SearchStep         = 7 * 24 * time.Hour
	SearchHorizonYears = 3

	tailPoints = 3
)

// Point is one projected value for charting.
type Point struct {
	Date       time.Time `json:"date"`
	Value      float64   `json:"value"`
	IsForecast bool      `json:"is_forecast"`
}

// ParseMode maps a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeOff, ModeLinear, ModeMovingAverage, ModePolynomial:
		return m, nil
	case "":
		return ModeOff, nil
	default:
		return "", fmt.Errorf("unknown projection mode: %s", s)
	}
}

// SeriesPoints converts rounds to (timestamp, score) regression points.
func SeriesPoints(series []models.Round) []regression.Point {
	points := make([]regression.Point, len(series))
	for i, r := range series {
		points[i] = regression.Point{X: regression.TimeX(r.Date), Y: float64(r.Score)}
	}
	return points
}

// Fit fits points with the regression selected by mode. Moving-average mode smooths
// first and fits a line through the last three smoothed points.
func Fit(points []regression.Point, mode Mode) (*regression.Model, bool) {
	switch mode {
	case ModeLinear:
		return regression.LinearFit(points)
	case ModePolynomial:
		return regression.QuadraticFit(points)
	case ModeMovingAverage:
		smoothed, ok := smooth(points)
		if !ok {
			return nil, false
		}
		return regression.LinearFit(tail(smoothed))
	default:
		return nil, false
	}
}

// FirstCrossing steps forward weekly from from, up to SearchHorizonYears, and returns
// the first date at which model evaluates to limit or below.
func FirstCrossing(model *regression.Model, from time.Time, limit float64) (time.Time, bool) {
	if model == nil {
		return time.Time{}, false
	}
	horizon := from.AddDate(SearchHorizonYears, 0, 0)
	for d := from.Add(SearchStep); !d.After(horizon); d = d.Add(SearchStep) {
		if model.Eval(regression.TimeX(d)) <= limit {
			return d, true
		}
	}
	return time.Time{}, false
}

// Build produces the trend overlay for a category series. It returns nil for series
// shorter than MinSeriesPoints, for ModeOff, and when the selected fit is degenerate.
func Build(series []models.Round, mode Mode) []Point {
	if len(series) < MinSeriesPoints {
		return nil
	}
	series = models.SortRounds(series)
	points := SeriesPoints(series)
	last := series[len(series)-1].Date

	switch mode {
	case ModeLinear, ModePolynomial:
		model, ok := Fit(points, mode)
		if !ok {
			return nil
		}
		return sweep(model, series[0].Date, last)
	case ModeMovingAverage:
		return movingAverageOverlay(points, last)
	default:
		return nil
	}
}

// sweep evaluates model at Steps+1 evenly spaced dates from start to HorizonMonths
// past last.
func sweep(model *regression.Model, start, last time.Time) []Point {
	startX := regression.TimeX(start)
	span := regression.TimeX(last.AddDate(0, HorizonMonths, 0)) - startX

	out := make([]Point, 0, Steps+1)
	for i := 0; i <= Steps; i++ {
		x := startX + span*float64(i)/float64(Steps)
		date := regression.XTime(x)
		out = append(out, Point{
			Date:       date,
			Value:      clampScore(model.Eval(x)),
			IsForecast: date.After(last),
		})
	}
	return out
}

func movingAverageOverlay(points []regression.Point, last time.Time) []Point {
	smoothed, ok := smooth(points)
	if !ok {
		return nil
	}

	out := make([]Point, 0, len(smoothed)+ForecastPoints)
	for _, p := range smoothed {
		date := regression.XTime(p.X)
		out = append(out, Point{Date: date, Value: p.Y, IsForecast: date.After(last)})
	}
	if len(smoothed) < 2 {
		return out
	}

	model, ok := regression.LinearFit(tail(smoothed))
	if !ok {
		return out
	}
	lastX := smoothed[len(smoothed)-1].X
	span := regression.TimeX(regression.XTime(lastX).AddDate(0, HorizonMonths, 0)) - lastX
	for i := 1; i <= ForecastPoints; i++ {
		x := lastX + span*float64(i)/float64(ForecastPoints)
		out = append(out, Point{
			Date:       regression.XTime(x),
			Value:      clampScore(model.Eval(x)),
			IsForecast: true,
		})
	}
	return out
}

func smooth(points []regression.Point) ([]regression.Point, bool) {
	return regression.MovingAverage(points, MovingAverageWindow)
}

func tail(points []regression.Point) []regression.Point {
	if len(points) <= tailPoints {
		return points
	}
	return points[len(points)-tailPoints:]
}

// clampScore rounds a projected score and floors it at zero.
func clampScore(v float64) float64 {
	return math.Max(0, math.Round(v))
}
