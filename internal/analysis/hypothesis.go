package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/statlab-cli/internal/dataset"
	"github.com/KaramelBytes/statlab-cli/internal/stats"
)

// TTestContext labels the narration request for a department comparison.
const TTestContext = "Independent Samples T-Test (Hypothesis Testing)"

// MinGroupSize is the smallest department sample CompareDepartments accepts.
const MinGroupSize = 2

var (
	ErrSameDepartment = errors.New("departments must differ")
	ErrGroupTooSmall  = errors.New("group too small for a t-test")
)

// Comparison is a two-department t-test on one numeric field.
type Comparison struct {
	Field  dataset.Field      `json:"-"`
	Metric string             `json:"metric"`
	Group1 dataset.Department `json:"group1"`
	Group2 dataset.Department `json:"group2"`
	N1     int                `json:"n1"`
	N2     int                `json:"n2"`
	Result stats.TTestResult  `json:"result"`
}

// CompareDepartments runs a pooled t-test of field between departments a and b.
func CompareDepartments(records []dataset.Record, field dataset.Field, a, b dataset.Department) (*Comparison, error) {
	if a == b {
		return nil, fmt.Errorf("compare %s: %w", a, ErrSameDepartment)
	}
	g1 := dataset.Column(dataset.FilterByDepartment(records, a), field)
	g2 := dataset.Column(dataset.FilterByDepartment(records, b), field)
	if len(g1) < MinGroupSize {
		return nil, fmt.Errorf("%s has %d records: %w", a, len(g1), ErrGroupTooSmall)
	}
	if len(g2) < MinGroupSize {
		return nil, fmt.Errorf("%s has %d records: %w", b, len(g2), ErrGroupTooSmall)
	}
	return &Comparison{
		Field:  field,
		Metric: field.String(),
		Group1: a,
		Group2: b,
		N1:     len(g1),
		N2:     len(g2),
		Result: stats.TTest(g1, g2),
	}, nil
}

// Summary is the text handed to the narrator.
func (c *Comparison) Summary() string {
	r := c.Result
	p := "> 0.05"
	if r.PValue < 0.05 {
		p = "< 0.05"
	}
	lines := []string{
		fmt.Sprintf("Comparing: %s vs %s on metric: %s.", c.Group1, c.Group2, c.Metric),
		fmt.Sprintf("Group 1 Mean: %.2f.", r.Group1Mean),
		fmt.Sprintf("Group 2 Mean: %.2f.", r.Group2Mean),
		fmt.Sprintf("T-Statistic: %.3f.", r.TStat),
		fmt.Sprintf("P-Value: %s.", p),
		fmt.Sprintf("Significant Difference: %t.", r.Significant),
	}
	return strings.Join(lines, "\n")
}

// Markdown renders the comparison for terminal or report output.
func (c *Comparison) Markdown() string {
	r := c.Result
	var b strings.Builder
	fmt.Fprintf(&b, "## T-Test: %s by Department\n\n", c.Field.Label())
	b.WriteString("| Group | n | Mean |\n| --- | --- | --- |\n")
	fmt.Fprintf(&b, "| %s | %d | %s |\n", c.Group1, c.N1, FormatNumber(r.Group1Mean, 2))
	fmt.Fprintf(&b, "| %s | %d | %s |\n\n", c.Group2, c.N2, FormatNumber(r.Group2Mean, 2))
	fmt.Fprintf(&b, "- t = %s (df = %s)\n", FormatNumber(r.TStat, 3), FormatNumber(r.DegreesOfFreedom, 0))
	fmt.Fprintf(&b, "- p ≈ %.2f (exact %s)\n", r.PValue, FormatNumber(r.ExactPValue, 4))
	if r.Significant {
		fmt.Fprintf(&b, "- Result: significant difference (|t| > %.2f)\n", stats.CriticalT)
	} else {
		fmt.Fprintf(&b, "- Result: no significant difference (|t| <= %.2f)\n", stats.CriticalT)
	}
	return b.String()
}
