package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/statlab-cli/internal/dataset"
	"github.com/KaramelBytes/statlab-cli/internal/stats"
)

// RegressionContext labels the narration request for a field regression.
const RegressionContext = "Simple Linear Regression"

// ErrZeroVariance is returned when the predictor has no spread.
var ErrZeroVariance = errors.New("predictor has zero variance")

// FieldRegression is an OLS fit of one record field on another.
type FieldRegression struct {
	X      dataset.Field    `json:"-"`
	Y      dataset.Field    `json:"-"`
	XName  string           `json:"x"`
	YName  string           `json:"y"`
	N      int              `json:"n"`
	Result stats.Regression `json:"result"`
}

// RegressFields fits y on x across records.
func RegressFields(records []dataset.Record, x, y dataset.Field) (*FieldRegression, error) {
	if len(records) < 2 {
		return nil, fmt.Errorf("regress %s on %s: need at least 2 records, have %d", y, x, len(records))
	}
	xs := dataset.Column(records, x)
	ys := dataset.Column(records, y)
	mean := stats.Mean(xs)
	if stats.StdDev(xs, mean) == 0 {
		return nil, fmt.Errorf("regress %s on %s: %w", y, x, ErrZeroVariance)
	}
	return &FieldRegression{
		X:      x,
		Y:      y,
		XName:  x.String(),
		YName:  y.String(),
		N:      len(records),
		Result: stats.LinearRegression(xs, ys),
	}, nil
}

// Equation prints the fitted line as "y = m·x + c".
func (f *FieldRegression) Equation() string {
	r := f.Result
	sign := "+"
	c := r.Intercept
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s = %s * %s %s %s", f.YName, FormatNumber(r.Slope, 2), f.XName, sign, FormatNumber(c, 2))
}

// Summary is the text handed to the narrator.
func (f *FieldRegression) Summary() string {
	r := f.Result
	lines := []string{
		fmt.Sprintf("Regressing %s on %s across %d employees.", f.YName, f.XName, f.N),
		fmt.Sprintf("Slope: %.2f.", r.Slope),
		fmt.Sprintf("Intercept: %.2f.", r.Intercept),
		fmt.Sprintf("Correlation (r): %.3f.", r.Correlation),
		fmt.Sprintf("R-Squared: %.3f.", r.RSquared),
	}
	return strings.Join(lines, "\n")
}

// Markdown renders the regression for terminal or report output.
func (f *FieldRegression) Markdown() string {
	r := f.Result
	var b strings.Builder
	fmt.Fprintf(&b, "## Regression: %s vs %s\n\n", f.Y.Label(), f.X.Label())
	fmt.Fprintf(&b, "- Equation: %s\n", f.Equation())
	fmt.Fprintf(&b, "- Correlation (r): %s\n", FormatNumber(r.Correlation, 3))
	fmt.Fprintf(&b, "- R²: %s (%s%% of variance explained)\n", FormatNumber(r.RSquared, 3), FormatNumber(r.RSquared*100, 1))
	fmt.Fprintf(&b, "- Line: (%s, %s) to (%s, %s)\n",
		FormatNumber(r.Line[0].X, 1), FormatNumber(r.Line[0].Y, 1),
		FormatNumber(r.Line[1].X, 1), FormatNumber(r.Line[1].Y, 1))
	return b.String()
}
