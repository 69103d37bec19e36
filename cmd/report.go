package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/statlab-cli/internal/ai"
	"github.com/KaramelBytes/statlab-cli/internal/analysis"
	"github.com/KaramelBytes/statlab-cli/internal/dataset"
	"github.com/KaramelBytes/statlab-cli/internal/utils"
)

var (
	repSource     sourceFlags
	repNarration  narrationFlags
	repOutputPath string
	repFormat     string
	repSampleRows int
	repCorr       bool
	repTopPairs   int
)

// fullReport is the JSON shape of the report command.
type fullReport struct {
	*analysis.Report
	Comparison *analysis.Comparison      `json:"ttest,omitempty"`
	Regression *analysis.FieldRegression `json:"regression,omitempty"`
	Insights   map[string]string         `json:"insights,omitempty"`
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Full dataset report: overview, statistics, t-test and regression",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(strings.TrimSpace(repFormat))
		switch format {
		case "", "md":
			format = "markdown"
		case "markdown", "html", "json":
		default:
			return fmt.Errorf("unsupported --format: %s (use markdown, html or json)", repFormat)
		}

		records, name, err := repSource.load()
		if err != nil {
			return err
		}
		opt := analysis.DefaultOptions()
		opt.SampleRows = repSampleRows
		opt.Correlations = repCorr
		opt.TopPairs = repTopPairs

		full := fullReport{Report: analysis.AnalyzeRecords(name, records, opt)}
		// A sparse dataset may lack a department or have no spread; the
		// remaining sections still render.
		if cmp, err := analysis.CompareDepartments(records, dataset.FieldSalary, dataset.Engineering, dataset.Sales); err == nil {
			full.Comparison = cmp
		} else {
			full.Warnings = append(full.Warnings, "t-test skipped: "+err.Error())
		}
		if reg, err := analysis.RegressFields(records, dataset.FieldYearsExperience, dataset.FieldSalary); err == nil {
			full.Regression = reg
		} else {
			full.Warnings = append(full.Warnings, "regression skipped: "+err.Error())
		}

		if repNarration.explain {
			nar, err := repNarration.narrator()
			if err != nil {
				return err
			}
			full.Insights = explainReport(cmd.Context(), nar, full)
		}

		var body []byte
		switch format {
		case "json":
			b, err := utils.PrettyJSON(full)
			if err != nil {
				return err
			}
			body = b
		case "html":
			title := "Dataset Report - " + name
			body = analysis.RenderHTML(title, full.markdown())
		default:
			body = []byte(full.markdown())
		}

		if repOutputPath != "" {
			if err := utils.SafeWriteFile(repOutputPath, body); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote report to %s\n", repOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(body))
		return nil
	},
}

// explainReport narrates every available section concurrently.
func explainReport(ctx context.Context, nar *ai.Narrator, full fullReport) map[string]string {
	reqs := []ai.Request{{Context: analysis.OverviewContext, Summary: full.Summary()}}
	if full.Comparison != nil {
		reqs = append(reqs, ai.Request{Context: analysis.TTestContext, Summary: full.Comparison.Summary()})
	}
	if full.Regression != nil {
		reqs = append(reqs, ai.Request{Context: analysis.RegressionContext, Summary: full.Regression.Summary()})
	}
	ctx, cancel := context.WithTimeout(ctx, narrationTimeout)
	defer cancel()
	texts := nar.ExplainBatch(ctx, reqs)
	out := make(map[string]string, len(reqs))
	for i, r := range reqs {
		out[r.Context] = texts[i]
	}
	return out
}

func (f fullReport) markdown() string {
	var b strings.Builder
	b.WriteString(f.Report.Markdown())
	if f.Comparison != nil {
		b.WriteString("\n")
		b.WriteString(f.Comparison.Markdown())
	}
	if f.Regression != nil {
		b.WriteString("\n")
		b.WriteString(f.Regression.Markdown())
	}
	if len(f.Insights) > 0 {
		b.WriteString("\n## AI Insights\n")
		for _, section := range []string{analysis.OverviewContext, analysis.TTestContext, analysis.RegressionContext} {
			text, ok := f.Insights[section]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "\n### %s\n\n%s\n", section, text)
		}
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(reportCmd)
	f := reportCmd.Flags()
	repSource.register(f)
	repNarration.register(f, true)
	f.StringVarP(&repOutputPath, "output", "o", "", "write the report to a file instead of stdout")
	f.StringVar(&repFormat, "format", "markdown", "output format: markdown, html or json")
	f.IntVar(&repSampleRows, "sample-rows", 5, "number of sample rows to include")
	f.BoolVar(&repCorr, "correlations", true, "include Pearson correlations among numeric fields")
	f.IntVar(&repTopPairs, "top-pairs", 10, "correlation pairs to list (0 = all)")
}
