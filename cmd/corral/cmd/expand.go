package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var expandCmd = &cobra.Command{
	Use:   "expand <corpus>",
	Short: "Link unmatched records to the reference catalog",
	Long: `Expand runs the matching strategies (name similarity, website
domain, slug probing) over every record that has no reference link yet
and writes the resolved reference columns back to the corpus.

Requires a reference catalog endpoint (--catalog-url or catalog_url in
the config file).`,
	Example: `  corral expand aptos --catalog-url https://catalog.example/graphql`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := application.Corral()
		if err != nil {
			return err
		}

		result, err := c.Expand(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if err := renderTable(out,
			[]string{"Total", "Candidates", "Matched"},
			[][]string{{itoa(result.Total), itoa(result.Candidates), itoa(result.Matched)}},
		); err != nil {
			return err
		}

		if len(result.ByStrategy) > 0 {
			strategies := make([]string, 0, len(result.ByStrategy))
			for s := range result.ByStrategy {
				strategies = append(strategies, s)
			}
			sort.Strings(strategies)

			fmt.Fprintln(out)
			rows := make([][]string, 0, len(strategies))
			for _, s := range strategies {
				rows = append(rows, []string{s, itoa(result.ByStrategy[s])})
			}
			return renderTable(out, []string{"Strategy", "Matched"}, rows)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(expandCmd)
}
