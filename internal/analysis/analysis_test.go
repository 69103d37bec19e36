package analysis

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/statlab-cli/internal/dataset"
)

func rec(id int, d dataset.Department, exp float64, salary int, perf float64, churned bool) dataset.Record {
	return dataset.Record{
		ID:                 id,
		Age:                22 + int(exp),
		YearsExperience:    exp,
		Salary:             salary,
		PerformanceScore:   perf,
		HoursWorkedPerWeek: 40,
		Department:         d,
		Churned:            churned,
	}
}

func fixture() []dataset.Record {
	return []dataset.Record{
		rec(1, dataset.Engineering, 2, 90000, 70, false),
		rec(2, dataset.Engineering, 4, 100000, 72, false),
		rec(3, dataset.Engineering, 6, 110000, 75, true),
		rec(4, dataset.Sales, 1, 60000, 55, true),
		rec(5, dataset.Sales, 3, 70000, 60, false),
		rec(6, dataset.Sales, 5, 80000, 65, true),
	}
}

func TestNewOverview(t *testing.T) {
	o := NewOverview(fixture())
	if o.Total != 6 {
		t.Fatalf("total: got %d", o.Total)
	}
	if o.AvgSalary != 85000 {
		t.Fatalf("avg salary: got %v", o.AvgSalary)
	}
	if math.Abs(o.ChurnRate-50) > 1e-9 {
		t.Fatalf("churn rate: got %v", o.ChurnRate)
	}
	if o.MedianExperience != 3.5 {
		t.Fatalf("median experience: got %v", o.MedianExperience)
	}
	if !o.AboveChurnTarget() {
		t.Fatalf("50%% churn should be above target")
	}
}

func TestAnalyzeRecords(t *testing.T) {
	opt := DefaultOptions()
	opt.Correlations = true
	opt.SampleRows = 2
	rep := AnalyzeRecords("demo", fixture(), opt)

	if len(rep.Fields) != len(dataset.Fields) {
		t.Fatalf("fields: got %d", len(rep.Fields))
	}
	if rep.Fields[2].Name != "salary" || rep.Fields[2].Stats.Max != 110000 {
		t.Fatalf("salary summary: %+v", rep.Fields[2])
	}
	if len(rep.Groups) != 2 {
		t.Fatalf("groups: got %d", len(rep.Groups))
	}
	eng := rep.Groups[0]
	if eng.Department != dataset.Engineering || eng.Size != 3 || eng.Means["salary"] != 100000 {
		t.Fatalf("engineering group: %+v", eng)
	}
	if len(rep.Samples) != 2 || rep.Samples[1].ID != 2 {
		t.Fatalf("samples: %+v", rep.Samples)
	}
	if rep.Corr == nil || len(rep.Corr.Columns) != len(dataset.Fields) {
		t.Fatalf("expected correlation matrix")
	}

	var sawMissing, sawChurn bool
	for _, w := range rep.Warnings {
		sawMissing = sawMissing || strings.Contains(w, "only 2 of 5 departments")
		sawChurn = sawChurn || strings.Contains(w, "above the 15% target")
	}
	if !sawMissing || !sawChurn {
		t.Fatalf("warnings: %v", rep.Warnings)
	}
}

func TestAnalyzeRecordsEmpty(t *testing.T) {
	rep := AnalyzeRecords("", nil, DefaultOptions())
	if rep.Overview.Total != 0 || len(rep.Fields) != 0 {
		t.Fatalf("unexpected report for empty input: %+v", rep)
	}
	if len(rep.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", rep.Warnings)
	}
	md := rep.Markdown()
	if !strings.Contains(md, "Total employees: 0") || !strings.Contains(md, "## Notes") {
		t.Fatalf("markdown:\n%s", md)
	}
}

func TestTopPairsOrderedByMagnitude(t *testing.T) {
	opt := DefaultOptions()
	opt.Correlations = true
	opt.TopPairs = 3
	rep := AnalyzeRecords("demo", fixture(), opt)
	pairs := rep.TopPairs()
	if len(pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(pairs))
	}
	for i := 1; i < len(pairs); i++ {
		if math.Abs(pairs[i].R) > math.Abs(pairs[i-1].R) {
			t.Fatalf("pairs not sorted: %+v", pairs)
		}
	}

	rep.Corr = nil
	if rep.TopPairs() != nil {
		t.Fatalf("expected no pairs without a matrix")
	}
}

func TestReportMarkdownAndHTML(t *testing.T) {
	opt := DefaultOptions()
	opt.Correlations = true
	rep := AnalyzeRecords("demo", fixture(), opt)

	md := rep.Markdown()
	for _, want := range []string{
		"# Dataset Report",
		"Dataset: demo",
		"- Total employees: 6",
		"- Average salary: $85,000",
		"## Descriptive Statistics",
		"| Annual Salary ($) |",
		"## By Department",
		"- Engineering (n=3, churn 33.3%)",
		"## Correlations",
		"## Sample Rows",
		"| 1 | 24 | 2.0 | 90000 | 70.0 | 40.0 | Engineering | false |",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}

	out := string(rep.HTML())
	if !strings.Contains(out, "<title>") || !strings.Contains(out, "demo") {
		t.Fatalf("html missing title:\n%s", out)
	}
	if !strings.Contains(out, "<table>") || !strings.Contains(out, "Descriptive Statistics</h2>") {
		t.Fatalf("html missing rendered markdown:\n%s", out)
	}
}

func TestReportSummary(t *testing.T) {
	rep := AnalyzeRecords("demo", fixture(), DefaultOptions())
	s := rep.Summary()
	if !strings.HasPrefix(s, "Employees: 6. Average salary: 85,000") {
		t.Fatalf("summary: %s", s)
	}
	if !strings.Contains(s, "Churn rate: 50.0%") {
		t.Fatalf("summary: %s", s)
	}
}

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in   float64
		dec  int
		want string
	}{
		{1234567.891, 2, "1,234,567.89"},
		{-1234, 0, "-1,234"},
		{999, 0, "999"},
		{1000, 1, "1,000.0"},
		{0.5, 1, "0.5"},
		{math.NaN(), 2, "n/a"},
		{math.Inf(-1), 2, "n/a"},
	}
	for _, c := range cases {
		if got := FormatNumber(c.in, c.dec); got != c.want {
			t.Fatalf("FormatNumber(%v, %d) = %q, want %q", c.in, c.dec, got, c.want)
		}
	}
}

func TestCompareDepartments(t *testing.T) {
	cmp, err := CompareDepartments(fixture(), dataset.FieldSalary, dataset.Engineering, dataset.Sales)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if cmp.N1 != 3 || cmp.N2 != 3 {
		t.Fatalf("group sizes: %d, %d", cmp.N1, cmp.N2)
	}
	r := cmp.Result
	if r.Group1Mean != 100000 || r.Group2Mean != 70000 {
		t.Fatalf("means: %v %v", r.Group1Mean, r.Group2Mean)
	}
	// both groups have sd 10000: se = 10000*sqrt(2/3), t = 30000/se
	wantT := 30000 / (10000 * math.Sqrt(2.0/3.0))
	if math.Abs(r.TStat-wantT) > 1e-9 || !r.Significant {
		t.Fatalf("t: got %v want %v (significant=%v)", r.TStat, wantT, r.Significant)
	}

	summary := cmp.Summary()
	for _, want := range []string{
		"Comparing: Engineering vs Sales on metric: salary.",
		"Group 1 Mean: 100000.00.",
		"Group 2 Mean: 70000.00.",
		"T-Statistic: 3.674.",
		"P-Value: < 0.05.",
		"Significant Difference: true.",
	} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary missing %q:\n%s", want, summary)
		}
	}
	if !strings.Contains(cmp.Markdown(), "significant difference") {
		t.Fatalf("markdown: %s", cmp.Markdown())
	}
}

func TestCompareDepartmentsErrors(t *testing.T) {
	if _, err := CompareDepartments(fixture(), dataset.FieldAge, dataset.Sales, dataset.Sales); !errors.Is(err, ErrSameDepartment) {
		t.Fatalf("expected ErrSameDepartment, got %v", err)
	}
	if _, err := CompareDepartments(fixture(), dataset.FieldAge, dataset.Engineering, dataset.HR); !errors.Is(err, ErrGroupTooSmall) {
		t.Fatalf("expected ErrGroupTooSmall, got %v", err)
	}
}

func TestRegressFields(t *testing.T) {
	reg, err := RegressFields(fixture(), dataset.FieldYearsExperience, dataset.FieldPerformanceScore)
	if err != nil {
		t.Fatalf("regress: %v", err)
	}
	if reg.N != 6 || reg.XName != "yearsExperience" || reg.YName != "performanceScore" {
		t.Fatalf("unexpected regression: %+v", reg)
	}
	if reg.Result.Slope <= 0 {
		t.Fatalf("expected positive slope, got %v", reg.Result.Slope)
	}
	if math.Abs(reg.Result.RSquared-reg.Result.Correlation*reg.Result.Correlation) > 1e-12 {
		t.Fatalf("R² must be r²")
	}
	if !strings.Contains(reg.Summary(), "Regressing performanceScore on yearsExperience across 6 employees.") {
		t.Fatalf("summary: %s", reg.Summary())
	}
	if !strings.HasPrefix(reg.Equation(), "performanceScore = ") {
		t.Fatalf("equation: %s", reg.Equation())
	}
}

func TestRegressFieldsZeroVariance(t *testing.T) {
	if _, err := RegressFields(fixture(), dataset.FieldHoursWorked, dataset.FieldSalary); !errors.Is(err, ErrZeroVariance) {
		t.Fatalf("expected ErrZeroVariance, got %v", err)
	}
	if _, err := RegressFields(fixture()[:1], dataset.FieldAge, dataset.FieldSalary); err == nil {
		t.Fatalf("expected error for a single record")
	}
}

func TestDescribeFields(t *testing.T) {
	got := DescribeFields(fixture(), []dataset.Field{dataset.FieldSalary, dataset.FieldAge})
	if len(got) != 2 || got[0].Name != "salary" || got[1].Name != "age" {
		t.Fatalf("unexpected summaries: %+v", got)
	}
	if got[0].Stats.Mean != 85000 || got[0].Stats.Min != 60000 {
		t.Fatalf("salary stats: %+v", got[0].Stats)
	}
	s := got[0].Summary()
	if !strings.HasPrefix(s, "Metric: Annual Salary ($). Mean: 85000.00.") {
		t.Fatalf("summary: %s", s)
	}
}
