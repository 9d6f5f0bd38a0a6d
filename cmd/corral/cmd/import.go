package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/corralhq/corral/pkg/errors"
	"github.com/corralhq/corral/pkg/reconcile"
	"github.com/corralhq/corral/pkg/records"
)

var importCmd = &cobra.Command{
	Use:   "import <corpus> <file>",
	Short: "Import fresh records into a corpus with duplicate review",
	Long: `Import parses a CSV or TSV export, maps its columns onto the
corpus schema, links incoming rows against existing records by name and
website, and previews what a merge would change. Nothing is written
unless --apply is given.`,
	Example: `  corral import aptos fresh-export.tsv
  corral import aptos fresh-export.tsv --bucket aptos --apply`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

func init() {
	importCmd.Flags().String("bucket", "", "bucket ID stamped onto appended records")
	importCmd.Flags().Float64("threshold", reconcile.DefaultThreshold, "fuzzy name-similarity floor for duplicate detection")
	importCmd.Flags().String("strategy", string(reconcile.StrategyAppend), "conflict strategy: append, keep_ours, keep_theirs, skip")
	importCmd.Flags().Bool("apply", false, "execute the merge instead of previewing it")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	corpusID, path := args[0], args[1]
	out := cmd.OutOrStdout()

	c, err := application.Corral()
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapIO("read", path, err)
	}

	headers, incoming, err := reconcile.ParseInput(string(content))
	if err != nil {
		return err
	}

	schema := c.Schema()
	mappings := reconcile.AutoMapColumns(headers, schema.Fields())

	rows := make([][]string, 0, len(mappings))
	mapping := make(map[string]string)
	for _, m := range mappings {
		rows = append(rows, []string{m.Incoming, m.MappedTo, string(m.Kind), m.Confidence})
		if m.Kind == reconcile.MappingMatched || m.Kind == reconcile.MappingSuggested {
			mapping[m.Incoming] = m.MappedTo
		}
	}
	if err := renderTable(out, []string{"Column", "Mapped To", "Kind", "Confidence"}, rows); err != nil {
		return err
	}

	mapped := reconcile.ApplyColumnMapping(incoming, mapping, nil)
	computed := reconcile.DetectComputedColumns(mapped)
	if len(computed) > 0 {
		fmt.Fprintf(out, "\nComputed columns (never merged): %v\n", computed)
	}

	if set := c.Buckets(); set != nil {
		_, unmatched := set.Split(mapped, records.FieldBucket)
		if len(unmatched) > 0 {
			sort.Strings(unmatched)
			fmt.Fprintf(out, "Unrecognized bucket values: %v\n", unmatched)
		}
	}

	existing, err := c.Records(corpusID)
	if err != nil {
		if !errors.IsNotFound(err) {
			return err
		}
		existing = nil
	}

	threshold, _ := cmd.Flags().GetFloat64("threshold")
	duplicates, fresh := reconcile.FindDuplicates(mapped, existing, threshold)

	strategy := reconcile.Strategy(mustString(cmd, "strategy"))
	strategies := map[string]reconcile.Strategy{"*": strategy}

	preview := reconcile.Preview(duplicates, fresh, strategies, computed)
	fmt.Fprintln(out)
	if err := renderTable(out,
		[]string{"New", "Merge", "Skip"},
		[][]string{{itoa(preview.NewCount), itoa(preview.MergeCount), itoa(preview.SkipCount)}},
	); err != nil {
		return err
	}

	for _, item := range preview.Items {
		fmt.Fprintf(out, "\n%s (%s %s):\n", item.Name, item.Method, ftoa(item.Score))
		for _, conflict := range item.Conflicts {
			fmt.Fprintf(out, "  %s: %q -> %q\n", conflict.Field, conflict.Ours, conflict.Resolved)
		}
	}

	apply, _ := cmd.Flags().GetBool("apply")
	if !apply {
		fmt.Fprintln(out, "\nPreview only; re-run with --apply to write the merge.")
		return nil
	}

	bucketID := mustString(cmd, "bucket")
	merged, outcome := reconcile.ExecuteMerge(existing, fresh, duplicates, strategies, computed, schema, bucketID)
	if err := c.SaveRecords(merged, corpusID); err != nil {
		return err
	}

	fmt.Fprintln(out)
	return renderTable(out,
		[]string{"Added", "Updated", "Skipped"},
		[][]string{{itoa(outcome.Added), itoa(outcome.Updated), itoa(outcome.Skipped)}},
	)
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
