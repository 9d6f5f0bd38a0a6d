package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe <corpus>",
	Short: "Merge exact and fuzzy duplicate records in a corpus",
	Long: `Dedupe groups records by normalized name, splits groups whose
members point at different website domains, and merges the rest with
the richest record's values winning. A backup is taken first.`,
	Example: `  corral dedupe aptos
  corral dedupe near --show-merges`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := application.Corral()
		if err != nil {
			return err
		}

		result, err := c.Deduplicate(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if err := renderTable(out,
			[]string{"Total", "Unique", "Exact Removed", "Fuzzy Removed"},
			[][]string{{itoa(result.Total), itoa(result.Unique), itoa(result.ExactRemoved), itoa(result.FuzzyRemoved)}},
		); err != nil {
			return err
		}

		showMerges, _ := cmd.Flags().GetBool("show-merges")
		if showMerges && len(result.Merges) > 0 {
			fmt.Fprintln(out)
			rows := make([][]string, 0, len(result.Merges))
			for _, m := range result.Merges {
				rows = append(rows, []string{
					string(m.Kind),
					strings.Join(m.Names, " + "),
					m.Domain,
					itoa(m.Removed),
				})
			}
			return renderTable(out, []string{"Kind", "Names", "Domain", "Removed"}, rows)
		}
		return nil
	},
}

func init() {
	dedupeCmd.Flags().Bool("show-merges", false, "list each merge performed")
	rootCmd.AddCommand(dedupeCmd)
}
