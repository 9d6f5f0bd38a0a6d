package corral

import (
	"time"

	"github.com/corralhq/corral/pkg/buckets"
	"github.com/corralhq/corral/pkg/dedupe"
	"github.com/corralhq/corral/pkg/expand"
	"github.com/corralhq/corral/pkg/records"
	"github.com/corralhq/corral/pkg/session"
	"github.com/corralhq/corral/pkg/store"
)

// Option is a function that configures a Corral instance.
type Option func(*config) error

type config struct {
	store       store.Store
	schema      *records.Schema
	dedupe      *dedupe.Engine
	matcher     *expand.Matcher
	buckets     *buckets.Set
	sessions    *session.Store
	sessionOpts []session.StoreOption
}

func newConfig() *config {
	return &config{
		schema: records.Default(),
		dedupe: dedupe.New(),
	}
}

// WithStore configures corpus persistence. Defaults to an in-memory store.
func WithStore(s store.Store) Option {
	return func(c *config) error {
		c.store = s
		return nil
	}
}

// WithSchema configures the corpus schema used when projecting imported
// records. Defaults to the standard catalog schema.
func WithSchema(schema *records.Schema) Option {
	return func(c *config) error {
		c.schema = schema
		return nil
	}
}

// WithDedupeEngine configures the duplicate-merge engine.
func WithDedupeEngine(e *dedupe.Engine) Option {
	return func(c *config) error {
		c.dedupe = e
		return nil
	}
}

// WithCatalogSource configures the reference catalog used by Expand.
func WithCatalogSource(source expand.Source, opts ...expand.Option) Option {
	return func(c *config) error {
		c.matcher = expand.New(source, opts...)
		return nil
	}
}

// WithBuckets configures bucket definitions for import splitting.
func WithBuckets(set *buckets.Set) Option {
	return func(c *config) error {
		c.buckets = set
		return nil
	}
}

// WithSessionTTL configures how long staged-import sessions live between
// wizard steps.
func WithSessionTTL(ttl time.Duration) Option {
	return func(c *config) error {
		c.sessionOpts = append(c.sessionOpts, session.WithTTL(ttl))
		return nil
	}
}
