package stats

import (
	"encoding/json"
	"math"
)

// The result types encode NaN and ±Inf as null; encoding/json rejects them.

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func (d DescriptiveStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Mean     *float64 `json:"mean"`
		Median   *float64 `json:"median"`
		StdDev   *float64 `json:"stdDev"`
		Min      *float64 `json:"min"`
		Max      *float64 `json:"max"`
		Skewness *float64 `json:"skewness"`
	}{finite(d.Mean), finite(d.Median), finite(d.StdDev), finite(d.Min), finite(d.Max), finite(d.Skewness)})
}

func (r TTestResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TStat            *float64 `json:"tStat"`
		PValue           float64  `json:"pValue"`
		Group1Mean       *float64 `json:"group1Mean"`
		Group2Mean       *float64 `json:"group2Mean"`
		Significant      bool     `json:"significant"`
		DegreesOfFreedom float64  `json:"degreesOfFreedom"`
		ExactPValue      *float64 `json:"exactPValue"`
	}{finite(r.TStat), r.PValue, finite(r.Group1Mean), finite(r.Group2Mean), r.Significant, r.DegreesOfFreedom, finite(r.ExactPValue)})
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}{finite(p.X), finite(p.Y)})
}

func (r Regression) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Slope       *float64 `json:"slope"`
		Intercept   *float64 `json:"intercept"`
		Correlation *float64 `json:"correlation"`
		RSquared    *float64 `json:"rSquared"`
		Line        [2]Point `json:"line"`
	}{finite(r.Slope), finite(r.Intercept), finite(r.Correlation), finite(r.RSquared), r.Line})
}
