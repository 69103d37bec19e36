package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/statlab-cli/internal/analysis"
	"github.com/KaramelBytes/statlab-cli/internal/dataset"
)

var (
	descSource     sourceFlags
	descNarration  narrationFlags
	descField      string
	descDepartment string
	descJSON       bool
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Descriptive statistics for one or all numeric fields",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fields := dataset.Fields
		if descField != "" {
			f, err := dataset.ParseField(descField)
			if err != nil {
				return err
			}
			fields = []dataset.Field{f}
		}
		records, name, err := descSource.load()
		if err != nil {
			return err
		}
		if descDepartment != "" {
			d, err := dataset.ParseDepartment(descDepartment)
			if err != nil {
				return err
			}
			records = dataset.FilterByDepartment(records, d)
			name = fmt.Sprintf("%s, %s", name, d)
		}
		summaries := analysis.DescribeFields(records, fields)

		out := cmd.OutOrStdout()
		if descJSON {
			return printJSON(out, map[string]any{"dataset": name, "n": len(records), "fields": summaries})
		}
		fmt.Fprintf(out, "Dataset: %s (n=%d)\n", name, len(records))
		for _, fs := range summaries {
			s := fs.Stats
			fmt.Fprintf(out, "\n%s\n", fs.Label)
			fmt.Fprintf(out, "  Mean:     %s\n", analysis.FormatNumber(s.Mean, 2))
			fmt.Fprintf(out, "  Median:   %s\n", analysis.FormatNumber(s.Median, 2))
			fmt.Fprintf(out, "  Std Dev:  %s\n", analysis.FormatNumber(s.StdDev, 2))
			fmt.Fprintf(out, "  Min:      %s\n", analysis.FormatNumber(s.Min, 2))
			fmt.Fprintf(out, "  Max:      %s\n", analysis.FormatNumber(s.Max, 2))
			fmt.Fprintf(out, "  Skewness: %s\n", analysis.FormatNumber(s.Skewness, 3))
		}
		if len(summaries) == 1 {
			return descNarration.explainTo(cmd, analysis.DescribeContext, summaries[0].Summary())
		}
		if descNarration.explain {
			return fmt.Errorf("--explain needs a single --field")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	f := describeCmd.Flags()
	descSource.register(f)
	descNarration.register(f, true)
	f.StringVarP(&descField, "field", "f", "", "numeric field (age, yearsExperience, salary, performanceScore, hoursWorkedPerWeek); all when empty")
	f.StringVar(&descDepartment, "department", "", "restrict to one department")
	f.BoolVar(&descJSON, "json", false, "print results as JSON")
}
