package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/corralhq/corral/pkg/errors"
)

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "List the configured bucket definitions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := application.Corral()
		if err != nil {
			return err
		}

		set := c.Buckets()
		if set == nil {
			return errors.NewValidationError("buckets", nil, "no bucket definitions configured")
		}

		rows := make([][]string, 0, len(set.IDs()))
		for _, id := range set.IDs() {
			bucket, _ := set.Lookup(id)
			rows = append(rows, []string{bucket.ID, bucket.Name, strings.Join(bucket.Aliases, ", ")})
		}
		return renderTable(cmd.OutOrStdout(), []string{"ID", "Name", "Aliases"}, rows)
	},
}

func init() {
	rootCmd.AddCommand(bucketsCmd)
}
