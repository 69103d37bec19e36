package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/statlab-cli/internal/analysis"
	"github.com/KaramelBytes/statlab-cli/internal/dataset"
)

var (
	ttSource    sourceFlags
	ttNarration narrationFlags
	ttField     string
	ttGroupA    string
	ttGroupB    string
	ttJSON      bool
)

var ttestCmd = &cobra.Command{
	Use:   "ttest",
	Short: "Independent samples t-test of a field between two departments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		field, err := dataset.ParseField(ttField)
		if err != nil {
			return err
		}
		a, err := dataset.ParseDepartment(ttGroupA)
		if err != nil {
			return err
		}
		b, err := dataset.ParseDepartment(ttGroupB)
		if err != nil {
			return err
		}
		records, name, err := ttSource.load()
		if err != nil {
			return err
		}
		cmp, err := analysis.CompareDepartments(records, field, a, b)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if ttJSON {
			return printJSON(out, cmp)
		}
		fmt.Fprintf(out, "Dataset: %s (n=%d)\n\n%s", name, len(records), cmp.Markdown())
		return ttNarration.explainTo(cmd, analysis.TTestContext, cmp.Summary())
	},
}

func init() {
	rootCmd.AddCommand(ttestCmd)
	f := ttestCmd.Flags()
	ttSource.register(f)
	ttNarration.register(f, true)
	f.StringVarP(&ttField, "field", "f", "salary", "numeric field to compare")
	f.StringVar(&ttGroupA, "a", string(dataset.Engineering), "first department")
	f.StringVar(&ttGroupB, "b", string(dataset.Sales), "second department")
	f.BoolVar(&ttJSON, "json", false, "print results as JSON")
}
