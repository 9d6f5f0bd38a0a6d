package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/corralhq/corral"
	"github.com/corralhq/corral/internal/defillama"
	"github.com/corralhq/corral/pkg/errors"
	"github.com/corralhq/corral/pkg/pipeline"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline <corpus>",
	Short: "Run a multi-step enrichment pipeline over a corpus",
	Long: `Pipeline runs the named steps in order. The corpus is backed up
before the run and checkpointed before every step; a failing step can
roll the corpus back to its last good state.

Available steps: dedupe, expand, defillama, notes, sources.`,
	Example: `  corral pipeline aptos --steps dedupe,notes,sources
  corral pipeline aptos --steps dedupe,expand --halt --rollback`,
	Args: cobra.ExactArgs(1),
	RunE: runPipeline,
}

func init() {
	pipelineCmd.Flags().String("steps", "dedupe,notes,sources", "comma-separated step names")
	pipelineCmd.Flags().Bool("halt", true, "stop at the first failed step")
	pipelineCmd.Flags().Bool("rollback", true, "restore the corpus when a step fails")
	rootCmd.AddCommand(pipelineCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	c, err := application.Corral()
	if err != nil {
		return err
	}

	steps, err := buildSteps(mustString(cmd, "steps"))
	if err != nil {
		return err
	}

	halt, _ := cmd.Flags().GetBool("halt")
	rollback, _ := cmd.Flags().GetBool("rollback")

	id, err := c.RunPipeline(cmd.Context(), args[0], steps, pipeline.Options{
		HaltOnError: halt,
		Rollback:    rollback,
	})
	if err != nil {
		return err
	}

	job, err := waitForJob(c, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(job.Steps))
	for _, step := range job.Steps {
		detail := step.Error
		if detail == "" && step.Result != nil {
			detail = formatResult(step.Result)
		}
		rows = append(rows, []string{step.Name, string(step.Status), step.Elapsed.Round(time.Millisecond).String(), detail})
	}
	if err := renderTable(out, []string{"Step", "Status", "Elapsed", "Detail"}, rows); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nJob %s %s in %s\n", job.ID, job.Status, job.Elapsed.Round(time.Millisecond))
	if job.Status == pipeline.StatusFailed {
		return fmt.Errorf("pipeline failed: %s", job.Error)
	}
	return nil
}

func buildSteps(names string) ([]pipeline.Step, error) {
	var steps []pipeline.Step
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		switch name {
		case "":
		case "dedupe":
			steps = append(steps, &pipeline.DedupeStep{})
		case "expand":
			matcher, err := application.CatalogMatcher()
			if err != nil {
				return nil, err
			}
			steps = append(steps, &pipeline.ExpandStep{Matcher: matcher})
		case "defillama":
			steps = append(steps, &pipeline.EnrichStep{Provider: defillama.New()})
		case "notes":
			steps = append(steps, &pipeline.NotesCleanupStep{})
		case "sources":
			steps = append(steps, &pipeline.SourceFixupStep{})
		default:
			return nil, errors.NewValidationError("steps", name, "unknown step")
		}
	}
	if len(steps) == 0 {
		return nil, errors.NewValidationError("steps", names, "no steps given")
	}
	return steps, nil
}

// waitForJob polls until the background job leaves the running state.
func waitForJob(c corral.Corral, id string) (*pipeline.Job, error) {
	for {
		job, err := c.Job(id)
		if err != nil {
			return nil, err
		}
		if job.Status != pipeline.StatusRunning {
			return job, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func formatResult(result pipeline.Result) string {
	parts := make([]string, 0, len(result))
	for _, key := range sortedKeys(result) {
		parts = append(parts, fmt.Sprintf("%s=%v", key, result[key]))
	}
	return strings.Join(parts, " ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if keys[j] < keys[i] {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	return keys
}
