package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/statlab-cli/internal/dataset"
	"github.com/KaramelBytes/statlab-cli/internal/snapshot"
	"github.com/KaramelBytes/statlab-cli/internal/utils"
)

var (
	genSize        int
	genSeed        int64
	genOutputPath  string
	genName        string
	genDescription string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic employee dataset",
	Long: `Generate a synthetic employee dataset.

Without --output or --name the CSV is written to stdout. --output writes CSV,
or XLSX when the path ends in .xlsx. --name saves a snapshot under the
datasets directory so later commands can use --snapshot.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := resolveSeed(genSeed)
		records, err := dataset.NewGenerator(seed).Generate(resolveSize(genSize))
		if err != nil {
			return err
		}

		written := false
		if genOutputPath != "" {
			b, err := encodeRecords(genOutputPath, records)
			if err != nil {
				return err
			}
			if err := utils.SafeWriteFile(genOutputPath, b); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d records to %s\n", len(records), genOutputPath)
			written = true
		}
		if genName != "" {
			dir, err := datasetsDir()
			if err != nil {
				return err
			}
			snap, err := snapshot.Create(dir, genName, genDescription, seed, records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved snapshot '%s' (%d records, seed %d)\n", snap.Name, snap.Size, snap.Seed)
			written = true
		}
		if !written {
			return dataset.WriteCSV(cmd.OutOrStdout(), records)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().IntVarP(&genSize, "size", "n", 0, "number of employees (default from config)")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 0, "random seed (0 = config seed or clock)")
	generateCmd.Flags().StringVarP(&genOutputPath, "output", "o", "", "write to a .csv or .xlsx file")
	generateCmd.Flags().StringVar(&genName, "name", "", "save as a named snapshot")
	generateCmd.Flags().StringVarP(&genDescription, "description", "d", "", "snapshot description")
}
