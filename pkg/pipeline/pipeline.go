// Package pipeline runs multi-step enrichment jobs over a corpus. Each step
// operates on the in-memory record set; the runner checkpoints the corpus
// before every step and persists after every successful one, so a failed
// step can roll the corpus back to its last good state.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/corralhq/corral/pkg/errors"
	"github.com/corralhq/corral/pkg/logging"
	"github.com/corralhq/corral/pkg/records"
	"github.com/corralhq/corral/pkg/store"
)

// Status is the lifecycle state of a job or a step.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Result carries step-specific counters for reporting (rows cleaned,
// matches found, and so on).
type Result map[string]any

// State is the mutable job state handed to each step. Steps edit Records
// in place or replace the slice; the runner persists whatever is left in
// Records after the step returns.
type State struct {
	CorpusID string
	Records  []*records.Record
}

// Step is a unit of pipeline work.
type Step interface {
	// Name is a short stable identifier ("dedupe", "notes").
	Name() string

	// Description is a one-line human summary for job listings.
	Description() string

	// Run executes the step against the state. A non-nil error marks the
	// step failed; the runner handles rollback.
	Run(ctx context.Context, st *State) (Result, error)
}

// StepRecord is the execution record of one step within a job.
type StepRecord struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      Status        `json:"status"`
	Result      Result        `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Job is a snapshot of a pipeline run.
type Job struct {
	ID          string        `json:"id"`
	CorpusID    string        `json:"corpus_id"`
	Status      Status        `json:"status"`
	Steps       []StepRecord  `json:"steps"`
	CurrentStep int           `json:"current_step"`
	StartedAt   time.Time     `json:"started_at"`
	Elapsed     time.Duration `json:"elapsed"`
	Error       string        `json:"error,omitempty"`
}

// Options tune a single run.
type Options struct {
	// HaltOnError stops the job at the first failed step and marks the
	// remaining steps skipped. When false the job continues past failures
	// and finishes completed if at least one step succeeded.
	HaltOnError bool

	// Rollback restores the corpus to its pre-step checkpoint when a step
	// fails. Without it the corpus keeps whatever the last successful step
	// persisted.
	Rollback bool
}

// Runner executes pipeline jobs one at a time against a store.
type Runner struct {
	store store.Store

	mu      sync.Mutex
	running bool
	jobs    map[string]*Job
}

// NewRunner returns a runner backed by the given store.
func NewRunner(s store.Store) *Runner {
	return &Runner{
		store: s,
		jobs:  make(map[string]*Job),
	}
}

// Start launches a job over corpusID running steps in order. Only one job
// may run at a time; a second Start returns ErrPipelineBusy. The job runs
// in the background; poll Job for progress.
func (r *Runner) Start(ctx context.Context, corpusID string, steps []Step, opts Options) (string, error) {
	if len(steps) == 0 {
		return "", errors.NewValidationError("steps", nil, "at least one step is required")
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return "", errors.ErrPipelineBusy
	}
	r.running = true

	job := &Job{
		ID:          strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		CorpusID:    corpusID,
		Status:      StatusRunning,
		CurrentStep: -1,
		StartedAt:   time.Now(),
	}
	for _, s := range steps {
		job.Steps = append(job.Steps, StepRecord{
			Name:        s.Name(),
			Description: s.Description(),
			Status:      StatusPending,
		})
	}
	r.jobs[job.ID] = job
	r.mu.Unlock()

	// The job outlives the caller's request context.
	go r.run(context.WithoutCancel(ctx), job.ID, corpusID, steps, opts)

	return job.ID, nil
}

// Job returns a snapshot of a job by ID.
func (r *Runner) Job(id string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.NewNotFoundError("job", id)
	}
	return snapshot(job), nil
}

// Jobs lists snapshots of every job the runner has seen, newest first.
func (r *Runner) Jobs() []*Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, snapshot(job))
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].StartedAt.After(out[i].StartedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func (r *Runner) run(ctx context.Context, jobID, corpusID string, steps []Step, opts Options) {
	ctx = logging.WithJobID(ctx, jobID)
	ctx = logging.WithCorpus(ctx, corpusID)
	log := logging.Ctx(ctx)

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	// A whole-run backup that is never discarded, covering operator error
	// beyond what per-step rollback handles.
	if _, err := r.store.Backup(corpusID, "pre-pipeline"); err != nil {
		log.Warn().Err(err).Msg("pre-pipeline backup failed, continuing")
	}

	recs, err := r.store.Load(corpusID)
	if err != nil {
		r.finish(jobID, StatusFailed, fmt.Sprintf("load corpus: %v", err))
		return
	}

	st := &State{CorpusID: corpusID, Records: recs}
	failed := 0

	for i, step := range steps {
		stepCtx := logging.WithStep(ctx, step.Name())

		r.updateJob(jobID, func(j *Job) {
			j.CurrentStep = i
			j.Steps[i].Status = StatusRunning
		})

		checkpoint, cpErr := r.store.Backup(corpusID, "pre-"+step.Name())
		if cpErr != nil {
			log.Warn().Err(cpErr).Str("step", step.Name()).Msg("checkpoint failed, rollback unavailable for this step")
		}

		started := time.Now()
		result, stepErr := runStep(stepCtx, step, st)
		elapsed := time.Since(started)

		if stepErr == nil {
			if saveErr := r.store.Save(st.Records, corpusID); saveErr != nil {
				stepErr = errors.NewStepError(step.Name(), saveErr)
			}
		}

		if stepErr != nil {
			failed++
			logging.Ctx(stepCtx).Error().Err(stepErr).Msg("step failed")
			r.updateJob(jobID, func(j *Job) {
				j.Steps[i].Status = StatusFailed
				j.Steps[i].Error = stepErr.Error()
				j.Steps[i].Elapsed = elapsed
			})

			if opts.Rollback && checkpoint != "" {
				if rbErr := r.store.Restore(checkpoint, corpusID); rbErr != nil {
					log.Error().Err(rbErr).Str("step", step.Name()).Msg("rollback failed")
				}
			}

			// The failed step may have mutated the loaded records before
			// erroring. The store still holds the last good state, restored
			// or last saved, so reload before any later step runs.
			if reloaded, loadErr := r.store.Load(corpusID); loadErr == nil {
				st.Records = reloaded
			} else {
				log.Error().Err(loadErr).Str("step", step.Name()).Msg("reload after failed step failed")
			}

			if opts.HaltOnError {
				r.updateJob(jobID, func(j *Job) {
					for k := i + 1; k < len(j.Steps); k++ {
						j.Steps[k].Status = StatusSkipped
					}
				})
				r.finish(jobID, StatusFailed, stepErr.Error())
				return
			}
			continue
		}

		if checkpoint != "" {
			if err := r.store.DiscardBackup(checkpoint); err != nil {
				log.Warn().Err(err).Str("step", step.Name()).Msg("discard checkpoint failed")
			}
		}

		logging.Ctx(stepCtx).Info().Dur("elapsed", elapsed).Msg("step completed")
		r.updateJob(jobID, func(j *Job) {
			j.Steps[i].Status = StatusCompleted
			j.Steps[i].Result = result
			j.Steps[i].Elapsed = elapsed
		})
	}

	if failed == len(steps) {
		r.finish(jobID, StatusFailed, "all steps failed")
		return
	}
	r.finish(jobID, StatusCompleted, "")
}

// runStep isolates a step invocation so a panicking step fails its job
// instead of crashing the process.
func runStep(ctx context.Context, step Step, st *State) (result Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.NewStepError(step.Name(), fmt.Errorf("panic: %v", rec))
		}
	}()
	result, err = step.Run(ctx, st)
	if err != nil {
		err = errors.NewStepError(step.Name(), err)
	}
	return result, err
}

func (r *Runner) updateJob(id string, fn func(*Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		fn(job)
	}
}

func (r *Runner) finish(id string, status Status, errMsg string) {
	r.updateJob(id, func(j *Job) {
		j.Status = status
		j.Error = errMsg
		j.Elapsed = time.Since(j.StartedAt)
	})
}

func snapshot(job *Job) *Job {
	cp := *job
	cp.Steps = make([]StepRecord, len(job.Steps))
	copy(cp.Steps, job.Steps)
	return &cp
}
