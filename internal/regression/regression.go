// Package regression provides the numeric fitting routines behind score forecasts:
// ordinary least-squares lines, normalized least-squares quadratics and trailing
// moving averages.
//
// X values are numeric timestamps (Unix milliseconds, see TimeX). Fits never panic on
// degenerate input; they report ok=false so callers can fall back explicitly.
//
//	linear:    y = slope*x + intercept
//	quadratic: y = a*t² + b*t + c,  t = (x - xMin) / (xMax - xMin)
package regression

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	// linearEpsilon is the smallest normal-equation determinant accepted by LinearFit.
	linearEpsilon = 1e-10
	// quadraticEpsilon is the smallest |determinant| accepted by QuadraticFit before
	// it falls back to a linear fit.
	quadraticEpsilon = 1e-20
	// minQuadraticPoints is the fewest points QuadraticFit will fit a curve through.
	minQuadraticPoints = 4
)

// Point is a single (x, y) observation.
type Point struct {
	X float64
	Y float64
}

// Kind identifies the shape of a fitted model.
type Kind int

const (
	Linear Kind = iota
	Quadratic
)

func (k Kind) String() string {
	if k == Quadratic {
		return "quadratic"
	}
	return "linear"
}

// Model is a fitted regression. Coefficients are stored in ascending power order of
// the model's internal variable u = (x - origin) / scale.
type Model struct {
	Kind         Kind
	Coefficients []float64
	origin       float64
	scale        float64
}

// Eval returns the fitted y at x.
func (m *Model) Eval(x float64) float64 {
	u := (x - m.origin) / m.scale
	var y, pow float64 = 0, 1
	for _, c := range m.Coefficients {
		y += c * pow
		pow *= u
	}
	return y
}

// Slope returns dy/dx of a linear model in raw x units. Quadratic models report the
// slope at their origin.
func (m *Model) Slope() float64 {
	if len(m.Coefficients) < 2 {
		return 0
	}
	return m.Coefficients[1] / m.scale
}

// Intercept returns y at x = 0 for a linear model.
func (m *Model) Intercept() float64 {
	return m.Eval(0)
}

// TimeX converts a timestamp to the numeric x used by the fits.
func TimeX(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// XTime converts a numeric x back to a UTC timestamp.
func XTime(x float64) time.Time {
	return time.UnixMilli(int64(math.Round(x))).UTC()
}

// LinearFit computes an ordinary least-squares line. It needs at least two points
// with distinct x values.
func LinearFit(points []Point) (*Model, bool) {
	if len(points) < 2 {
		return nil, false
	}

	xs := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
	}
	// Centre x so raw millisecond timestamps do not swamp the determinant.
	origin := stat.Mean(xs, nil)

	n := float64(len(points))
	var sumX, sumY, sumXY, sumX2 float64
	for _, p := range points {
		dx := p.X - origin
		sumX += dx
		sumY += p.Y
		sumXY += dx * p.Y
		sumX2 += dx * dx
	}

	det := n*sumX2 - sumX*sumX
	if det < linearEpsilon {
		return nil, false
	}

	slope := (n*sumXY - sumX*sumY) / det
	intercept := (sumY - slope*sumX) / n

	return &Model{
		Kind:         Linear,
		Coefficients: []float64{intercept, slope},
		origin:       origin,
		scale:        1,
	}, true
}

// QuadraticFit computes a least-squares parabola over x normalized to [0, 1] and
// solves the 3×3 normal equations with Cramer's rule. With fewer than four points,
// zero x span or a near-singular system it returns LinearFit(points) instead.
func QuadraticFit(points []Point) (*Model, bool) {
	if len(points) < minQuadraticPoints {
		return LinearFit(points)
	}

	xMin, xMax := points[0].X, points[0].X
	for _, p := range points[1:] {
		xMin = math.Min(xMin, p.X)
		xMax = math.Max(xMax, p.X)
	}
	span := xMax - xMin
	if span == 0 {
		return LinearFit(points)
	}

	var s [5]float64 // Σt^k, k = 0..4
	var r [3]float64 // Σt^k·y, k = 0..2
	for _, p := range points {
		t := (p.X - xMin) / span
		pow := 1.0
		for k := 0; k < 5; k++ {
			s[k] += pow
			if k < 3 {
				r[k] += pow * p.Y
			}
			pow *= t
		}
	}

	m := [3][3]float64{
		{s[0], s[1], s[2]},
		{s[1], s[2], s[3]},
		{s[2], s[3], s[4]},
	}
	det := det3(m)
	if math.Abs(det) < quadraticEpsilon {
		return LinearFit(points)
	}

	coeffs := make([]float64, 3)
	for col := 0; col < 3; col++ {
		mc := m
		for row := 0; row < 3; row++ {
			mc[row][col] = r[row]
		}
		coeffs[col] = det3(mc) / det
	}

	return &Model{
		Kind:         Quadratic,
		Coefficients: coeffs,
		origin:       xMin,
		scale:        span,
	}, true
}

func det3(m [3][3]float64) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// MovingAverage returns the trailing arithmetic mean of each run of window points,
// one output per input index from window-1 onward, stamped with that index's x.
// Points are ordered by x first. It reports false when fewer than window points exist.
func MovingAverage(points []Point, window int) ([]Point, bool) {
	if window < 1 || len(points) < window {
		return nil, false
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].X < sorted[j].X
	})

	ys := make([]float64, len(sorted))
	for i, p := range sorted {
		ys[i] = p.Y
	}

	smoothed := make([]Point, 0, len(sorted)-window+1)
	for i := window - 1; i < len(sorted); i++ {
		smoothed = append(smoothed, Point{
			X: sorted[i].X,
			Y: stat.Mean(ys[i-window+1:i+1], nil),
		})
	}
	return smoothed, true
}
