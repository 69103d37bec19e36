package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/statlab-cli/internal/analysis"
	"github.com/KaramelBytes/statlab-cli/internal/dataset"
)

var (
	regSource    sourceFlags
	regNarration narrationFlags
	regX         string
	regY         string
	regJSON      bool
)

var regressCmd = &cobra.Command{
	Use:   "regress",
	Short: "Simple linear regression of one field on another",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		x, err := dataset.ParseField(regX)
		if err != nil {
			return err
		}
		y, err := dataset.ParseField(regY)
		if err != nil {
			return err
		}
		records, name, err := regSource.load()
		if err != nil {
			return err
		}
		reg, err := analysis.RegressFields(records, x, y)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if regJSON {
			return printJSON(out, reg)
		}
		fmt.Fprintf(out, "Dataset: %s (n=%d)\n\n%s", name, len(records), reg.Markdown())
		return regNarration.explainTo(cmd, analysis.RegressionContext, reg.Summary())
	},
}

func init() {
	rootCmd.AddCommand(regressCmd)
	f := regressCmd.Flags()
	regSource.register(f)
	regNarration.register(f, true)
	f.StringVar(&regX, "x", "yearsExperience", "predictor field")
	f.StringVar(&regY, "y", "salary", "response field")
	f.BoolVar(&regJSON, "json", false, "print results as JSON")
}
