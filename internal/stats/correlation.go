package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Correlation returns the Pearson correlation coefficient of x and y.
// Mismatched lengths, empty input and a constant sequence on either side all
// yield 0 rather than NaN.
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return 0
	}
	if constant(x) || constant(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// CorrMatrix is a symmetric Pearson correlation matrix.
type CorrMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// PairCorr is one off-diagonal entry of a CorrMatrix.
type PairCorr struct {
	A string  `json:"a"`
	B string  `json:"b"`
	R float64 `json:"r"`
}

// CorrelationMatrix correlates every pair of columns. names and columns are
// parallel slices.
func CorrelationMatrix(names []string, columns [][]float64) *CorrMatrix {
	n := len(columns)
	m := &CorrMatrix{Columns: append([]string(nil), names...), Values: make([][]float64, n)}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
		m.Values[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := Correlation(columns[i], columns[j])
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

// Pairs lists the upper triangle of the matrix in row-major order.
func (m *CorrMatrix) Pairs() []PairCorr {
	var out []PairCorr
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			out = append(out, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	return out
}

func constant(xs []float64) bool {
	return floats.Min(xs) == floats.Max(xs)
}
