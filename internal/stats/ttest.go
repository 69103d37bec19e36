package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// CriticalT is the two-sided 5% critical value of the normal
	// approximation, applied regardless of degrees of freedom.
	CriticalT = 1.96

	approxPSignificant    = 0.04
	approxPNotSignificant = 0.20
)

// TTestResult is the outcome of a pooled-variance two-sample t-test.
//
// PValue is a coarse two-tier placeholder (0.04 or 0.20) that mirrors the
// fixed critical-value decision. ExactPValue is the two-sided tail of a
// Student-t with DegreesOfFreedom and is reported alongside it.
type TTestResult struct {
	TStat            float64 `json:"tStat"`
	PValue           float64 `json:"pValue"`
	Group1Mean       float64 `json:"group1Mean"`
	Group2Mean       float64 `json:"group2Mean"`
	Significant      bool    `json:"significant"`
	DegreesOfFreedom float64 `json:"degreesOfFreedom"`
	ExactPValue      float64 `json:"exactPValue"`
}

// TTest compares the means of two independent groups assuming equal
// population variances.
func TTest(group1, group2 []float64) TTestResult {
	n1 := float64(len(group1))
	n2 := float64(len(group2))
	mean1 := Mean(group1)
	mean2 := Mean(group2)
	sd1 := StdDev(group1, mean1)
	sd2 := StdDev(group2, mean2)

	df := n1 + n2 - 2
	pooledVar := ((n1-1)*sd1*sd1 + (n2-1)*sd2*sd2) / df
	standardError := math.Sqrt(pooledVar * (1/n1 + 1/n2))
	tStat := (mean1 - mean2) / standardError

	significant := math.Abs(tStat) > CriticalT
	p := approxPNotSignificant
	if significant {
		p = approxPSignificant
	}

	return TTestResult{
		TStat:            tStat,
		PValue:           p,
		Group1Mean:       mean1,
		Group2Mean:       mean2,
		Significant:      significant,
		DegreesOfFreedom: df,
		ExactPValue:      exactTwoSidedP(tStat, df),
	}
}

func exactTwoSidedP(t, df float64) float64 {
	if df <= 0 || math.IsNaN(t) {
		return math.NaN()
	}
	if math.IsInf(t, 0) {
		return 0
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(t))
}
