package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/statlab-cli/internal/snapshot"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved dataset snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := datasetsDir()
		if err != nil {
			return err
		}
		snaps, err := snapshot.List(dir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if listJSON {
			if snaps == nil {
				snaps = []*snapshot.Snapshot{}
			}
			return printJSON(out, snaps)
		}
		if len(snaps) == 0 {
			fmt.Fprintln(out, "(no snapshots)")
			return nil
		}
		for _, s := range snaps {
			fmt.Fprintf(out, "- %s: %d records, seed %d, created %s", s.Name, s.Size, s.Seed, s.CreatedAt.Format("2006-01-02 15:04"))
			if s.Description != "" {
				fmt.Fprintf(out, " (%s)", s.Description)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print snapshots as JSON")
}
