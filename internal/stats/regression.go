package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Point is one (x, y) coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Regression is an ordinary least squares fit y = Slope*x + Intercept.
// Line holds the fitted values at min(x) and max(x).
type Regression struct {
	Slope       float64  `json:"slope"`
	Intercept   float64  `json:"intercept"`
	Correlation float64  `json:"correlation"`
	RSquared    float64  `json:"rSquared"`
	Line        [2]Point `json:"line"`
}

// LinearRegression fits y on x. R² is the squared Pearson correlation.
//
// x must have non-zero variance: a constant x produces an infinite or NaN
// slope, which is passed through to the caller. Empty or mismatched inputs
// produce NaN coefficients.
func LinearRegression(x, y []float64) Regression {
	if len(x) != len(y) || len(x) == 0 {
		nan := math.NaN()
		return Regression{Slope: nan, Intercept: nan, Line: [2]Point{{nan, nan}, {nan, nan}}}
	}
	intercept, slope := stat.LinearRegression(x, y, nil, false)
	r := Correlation(x, y)
	reg := Regression{
		Slope:       slope,
		Intercept:   intercept,
		Correlation: r,
		RSquared:    r * r,
	}
	lo, hi := floats.Min(x), floats.Max(x)
	reg.Line = [2]Point{{X: lo, Y: reg.Predict(lo)}, {X: hi, Y: reg.Predict(hi)}}
	return reg
}

// Predict evaluates the fitted line at x.
func (r Regression) Predict(x float64) float64 {
	return r.Slope*x + r.Intercept
}
