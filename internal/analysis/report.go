package analysis

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/KaramelBytes/statlab-cli/internal/dataset"
	"github.com/KaramelBytes/statlab-cli/internal/stats"
)

const (
	// ChurnTarget is the churn rate (percent) above which the overview flags the dataset.
	ChurnTarget = 15.0
	// OverviewContext labels narration requests about the dataset overview.
	OverviewContext = "Overall dataset statistics for a Tech Company"
	// DescribeContext labels narration requests about one field's distribution.
	DescribeContext = "Descriptive Statistics (Distribution of a Single Metric)"
)

// Options controls which sections AnalyzeRecords computes.
type Options struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// GroupByDepartment computes per-department summaries.
	GroupByDepartment bool
	// Correlations computes Pearson correlations among numeric fields.
	Correlations bool
	// TopPairs limits the correlation pairs listed in Markdown; 0 lists all.
	TopPairs int
}

// DefaultOptions returns reasonable defaults for dataset reports.
func DefaultOptions() Options {
	return Options{
		SampleRows:        5,
		GroupByDepartment: true,
		TopPairs:          10,
	}
}

// Report is a markdown-friendly analysis of an employee dataset.
type Report struct {
	Name     string            `json:"name"`
	Overview Overview          `json:"overview"`
	Fields   []FieldSummary    `json:"fields"`
	Groups   []GroupResult     `json:"groups,omitempty"`
	Corr     *stats.CorrMatrix `json:"correlations,omitempty"`
	Samples  []dataset.Record  `json:"samples,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
	opt      Options
}

// Overview holds the headline numbers of the dashboard.
type Overview struct {
	Total            int     `json:"total"`
	AvgSalary        float64 `json:"avgSalary"`
	SalaryStdDev     float64 `json:"salaryStdDev"`
	ChurnRate        float64 `json:"churnRate"`
	MedianExperience float64 `json:"medianExperience"`
}

// AboveChurnTarget reports whether churn exceeds ChurnTarget.
func (o Overview) AboveChurnTarget() bool { return o.ChurnRate > ChurnTarget }

// FieldSummary pairs a numeric field with its descriptive statistics.
type FieldSummary struct {
	Field dataset.Field          `json:"-"`
	Name  string                 `json:"name"`
	Label string                 `json:"label"`
	Stats stats.DescriptiveStats `json:"stats"`
}

// GroupResult captures aggregated metrics for one department.
type GroupResult struct {
	Department dataset.Department `json:"department"`
	Size       int                `json:"size"`
	ChurnRate  float64            `json:"churnRate"`
	Means      map[string]float64 `json:"means"`
}

// DescribeFields summarizes each of fields over records, in the given order.
func DescribeFields(records []dataset.Record, fields []dataset.Field) []FieldSummary {
	out := make([]FieldSummary, 0, len(fields))
	for _, f := range fields {
		out = append(out, FieldSummary{
			Field: f,
			Name:  f.String(),
			Label: f.Label(),
			Stats: stats.Describe(dataset.Column(records, f)),
		})
	}
	return out
}

// Summary is the narration text for one field.
func (f FieldSummary) Summary() string {
	s := f.Stats
	return fmt.Sprintf("Metric: %s. Mean: %.2f. Median: %.2f. Standard Deviation: %.2f. Min: %.2f. Max: %.2f. Skewness: %.3f.",
		f.Label, s.Mean, s.Median, s.StdDev, s.Min, s.Max, s.Skewness)
}

// NewOverview computes the headline numbers for records.
func NewOverview(records []dataset.Record) Overview {
	salaries := dataset.Column(records, dataset.FieldSalary)
	mean := stats.Mean(salaries)
	return Overview{
		Total:            len(records),
		AvgSalary:        mean,
		SalaryStdDev:     stats.StdDev(salaries, mean),
		ChurnRate:        dataset.ChurnRate(records),
		MedianExperience: stats.Median(dataset.Column(records, dataset.FieldYearsExperience)),
	}
}

// AnalyzeRecords builds a Report over records.
func AnalyzeRecords(name string, records []dataset.Record, opt Options) *Report {
	rep := &Report{Name: name, opt: opt}
	rep.Overview = NewOverview(records)
	if len(records) == 0 {
		rep.Warnings = append(rep.Warnings, "dataset is empty; statistics are not available")
		return rep
	}

	rep.Fields = DescribeFields(records, dataset.Fields)

	if opt.GroupByDepartment {
		for _, d := range dataset.Departments {
			group := dataset.FilterByDepartment(records, d)
			if len(group) == 0 {
				continue
			}
			g := GroupResult{
				Department: d,
				Size:       len(group),
				ChurnRate:  dataset.ChurnRate(group),
				Means:      make(map[string]float64, len(dataset.Fields)),
			}
			for _, f := range dataset.Fields {
				g.Means[f.String()] = stats.Mean(dataset.Column(group, f))
			}
			rep.Groups = append(rep.Groups, g)
		}
		if len(rep.Groups) < len(dataset.Departments) {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("only %d of %d departments present", len(rep.Groups), len(dataset.Departments)))
		}
	}

	if opt.Correlations {
		columns := make([][]float64, len(dataset.Fields))
		names := make([]string, len(dataset.Fields))
		for i, f := range dataset.Fields {
			columns[i] = dataset.Column(records, f)
			names[i] = f.String()
		}
		rep.Corr = stats.CorrelationMatrix(names, columns)
	}

	n := opt.SampleRows
	if n > len(records) {
		n = len(records)
	}
	if n > 0 {
		rep.Samples = append([]dataset.Record(nil), records[:n]...)
	}
	if rep.Overview.AboveChurnTarget() {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("churn rate %.1f%% is above the %.0f%% target", rep.Overview.ChurnRate, ChurnTarget))
	}
	return rep
}

// TopPairs returns correlation pairs sorted by |r| descending.
func (r *Report) TopPairs() []stats.PairCorr {
	if r.Corr == nil {
		return nil
	}
	pairs := r.Corr.Pairs()
	sort.SliceStable(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if lim := r.opt.TopPairs; lim > 0 && len(pairs) > lim {
		pairs = pairs[:lim]
	}
	return pairs
}

// Summary is the short text handed to the narrator for the overview.
func (r *Report) Summary() string {
	o := r.Overview
	return fmt.Sprintf("Employees: %d. Average salary: %s (SD %s). Churn rate: %.1f%% (target < %.0f%%). Median experience: %s years.",
		o.Total, FormatNumber(o.AvgSalary, 0), FormatNumber(o.SalaryStdDev, 0), o.ChurnRate, ChurnTarget, FormatNumber(o.MedianExperience, 1))
}

// Markdown renders a compact report suitable for prompts or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Dataset Report\n\n")
	if r.Name != "" {
		fmt.Fprintf(&b, "Dataset: %s\n\n", r.Name)
	}

	o := r.Overview
	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "- Total employees: %d\n", o.Total)
	fmt.Fprintf(&b, "- Average salary: $%s (SD $%s)\n", FormatNumber(o.AvgSalary, 0), FormatNumber(o.SalaryStdDev, 0))
	fmt.Fprintf(&b, "- Churn rate: %.1f%% (target < %.0f%%)\n", o.ChurnRate, ChurnTarget)
	fmt.Fprintf(&b, "- Median experience: %s years\n", FormatNumber(o.MedianExperience, 1))

	if len(r.Fields) > 0 {
		b.WriteString("\n## Descriptive Statistics\n\n")
		b.WriteString("| Field | Mean | Median | SD | Min | Max | Skew |\n")
		b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
		for _, f := range r.Fields {
			s := f.Stats
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n", f.Label,
				FormatNumber(s.Mean, 2), FormatNumber(s.Median, 2), FormatNumber(s.StdDev, 2),
				FormatNumber(s.Min, 1), FormatNumber(s.Max, 1), FormatNumber(s.Skewness, 3))
		}
	}

	if len(r.Groups) > 0 {
		b.WriteString("\n## By Department\n\n")
		for _, g := range r.Groups {
			fmt.Fprintf(&b, "- %s (n=%d, churn %.1f%%)\n", g.Department, g.Size, g.ChurnRate)
			for _, f := range dataset.Fields {
				fmt.Fprintf(&b, "  - %s: mean %s\n", f.String(), FormatNumber(g.Means[f.String()], 2))
			}
		}
	}

	if pairs := r.TopPairs(); len(pairs) > 0 {
		b.WriteString("\n## Correlations\n\n")
		for _, p := range pairs {
			fmt.Fprintf(&b, "- %s ~ %s: r=%s\n", p.A, p.B, FormatNumber(p.R, 3))
		}
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n## Sample Rows\n\n")
		b.WriteString("| " + strings.Join(dataset.Header, " | ") + " |\n")
		b.WriteString("|" + strings.Repeat(" --- |", len(dataset.Header)) + "\n")
		for _, s := range r.Samples {
			fmt.Fprintf(&b, "| %d | %d | %.1f | %d | %.1f | %.1f | %s | %t |\n",
				s.ID, s.Age, s.YearsExperience, s.Salary, s.PerformanceScore, s.HoursWorkedPerWeek, s.Department, s.Churned)
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// HTML renders the Markdown report as a standalone HTML document.
func (r *Report) HTML() []byte {
	title := "Dataset Report"
	if r.Name != "" {
		title += " - " + r.Name
	}
	return RenderHTML(title, r.Markdown())
}

// RenderHTML converts Markdown into a complete HTML page.
func RenderHTML(title, md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: title,
	})
	return bytes.TrimSpace(markdown.Render(doc, renderer))
}

// FormatNumber prints f with the given decimals and thousands separators.
// Non-finite values print as "n/a".
func FormatNumber(f float64, decimals int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "n/a"
	}
	s := fmt.Sprintf("%.*f", decimals, f)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return sign + intPart + frac
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return sign + b.String() + frac
}
