// Package corral reconciles project catalogs: it deduplicates record
// corpora, matches them against a reference catalog, stages imports of
// fresh data, and runs multi-step enrichment pipelines with rollback.
package corral

import (
	"context"
	"fmt"
	"sync"

	"github.com/corralhq/corral/pkg/buckets"
	"github.com/corralhq/corral/pkg/dedupe"
	"github.com/corralhq/corral/pkg/errors"
	"github.com/corralhq/corral/pkg/expand"
	"github.com/corralhq/corral/pkg/pipeline"
	"github.com/corralhq/corral/pkg/records"
	"github.com/corralhq/corral/pkg/session"
	"github.com/corralhq/corral/pkg/store"
)

// Corral is the top-level entry point. All corpus mutations go through the
// configured store so every destructive operation is preceded by a backup.
type Corral interface {
	// Records loads a corpus.
	Records(corpusID string) ([]*records.Record, error)

	// SaveRecords replaces a corpus.
	SaveRecords(recs []*records.Record, corpusID string) error

	// Deduplicate merges exact and fuzzy duplicates in a corpus and
	// persists the survivors.
	Deduplicate(corpusID string) (dedupe.Result, error)

	// Expand matches unlinked records against the reference catalog and
	// persists the match columns it resolves.
	Expand(ctx context.Context, corpusID string) (*expand.Result, error)

	// RunPipeline starts a background pipeline job over a corpus and
	// returns its job ID.
	RunPipeline(ctx context.Context, corpusID string, steps []pipeline.Step, opts pipeline.Options) (string, error)

	// Job returns a snapshot of a pipeline job.
	Job(id string) (*pipeline.Job, error)

	// Sessions exposes the staged-import session store.
	Sessions() *session.Store

	// Buckets returns the configured bucket definitions, or nil when none
	// were provided.
	Buckets() *buckets.Set

	// Schema returns the corpus schema in effect.
	Schema() *records.Schema
}

type corral struct {
	config *config

	mu     sync.Mutex
	runner *pipeline.Runner
}

// New creates a Corral instance with the given options.
func New(opts ...Option) (Corral, error) {
	c := &corral{config: newConfig()}

	for _, opt := range opts {
		if err := opt(c.config); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}

	if c.config.store == nil {
		c.config.store = store.NewMemory()
	}
	c.runner = pipeline.NewRunner(c.config.store)

	return c, nil
}

func (c *corral) Records(corpusID string) ([]*records.Record, error) {
	return c.config.store.Load(corpusID)
}

func (c *corral) SaveRecords(recs []*records.Record, corpusID string) error {
	return c.config.store.Save(recs, corpusID)
}

func (c *corral) Deduplicate(corpusID string) (dedupe.Result, error) {
	recs, err := c.config.store.Load(corpusID)
	if err != nil {
		return dedupe.Result{}, err
	}

	if _, err := c.config.store.Backup(corpusID, "pre-dedupe"); err != nil {
		return dedupe.Result{}, err
	}

	deduped, result := c.config.dedupe.Deduplicate(recs)
	if !result.Changed() {
		return result, nil
	}
	if err := c.config.store.Save(deduped, corpusID); err != nil {
		return dedupe.Result{}, err
	}
	return result, nil
}

func (c *corral) Expand(ctx context.Context, corpusID string) (*expand.Result, error) {
	if c.config.matcher == nil {
		return nil, errors.NewValidationError("catalog", nil, "no catalog source configured")
	}

	recs, err := c.config.store.Load(corpusID)
	if err != nil {
		return nil, err
	}

	result, err := c.config.matcher.Expand(ctx, recs)
	if err != nil {
		return nil, err
	}
	if result.Matched == 0 {
		return result, nil
	}

	if _, err := c.config.store.Backup(corpusID, "pre-expand"); err != nil {
		return nil, err
	}
	expand.Apply(recs, result.Matches)
	if err := c.config.store.Save(recs, corpusID); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *corral) RunPipeline(ctx context.Context, corpusID string, steps []pipeline.Step, opts pipeline.Options) (string, error) {
	return c.runner.Start(ctx, corpusID, steps, opts)
}

func (c *corral) Job(id string) (*pipeline.Job, error) {
	return c.runner.Job(id)
}

func (c *corral) Sessions() *session.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.config.sessions == nil {
		c.config.sessions = session.NewStore(c.config.sessionOpts...)
	}
	return c.config.sessions
}

func (c *corral) Buckets() *buckets.Set {
	return c.config.buckets
}

func (c *corral) Schema() *records.Schema {
	return c.config.schema
}
