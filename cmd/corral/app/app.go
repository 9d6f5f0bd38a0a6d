// Package app provides the application context and dependency management
// for the corral CLI: configuration, logging, and the lazily built Corral
// instance shared by the commands.
package app

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/corralhq/corral"
	"github.com/corralhq/corral/internal/refcat"
	"github.com/corralhq/corral/pkg/buckets"
	"github.com/corralhq/corral/pkg/errors"
	"github.com/corralhq/corral/pkg/expand"
	"github.com/corralhq/corral/pkg/records"
	"github.com/corralhq/corral/pkg/store"
)

// App carries the corral CLI's dependencies.
type App struct {
	version string
	commit  string
	date    string

	config *Config
	logger *zerolog.Logger

	mu     sync.Mutex
	corral corral.Corral
}

// New creates an App with the given version information and loads its
// configuration.
func New(version, commit, date string) (*App, error) {
	a := &App{
		version: version,
		commit:  commit,
		date:    date,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapIO("load", "config", err)
	}
	a.config = config

	logger := NewLogger(config)
	a.logger = &logger

	return a, nil
}

// Version returns the version string.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// Corral returns the corral instance, building it on first use from the
// loaded configuration.
func (a *App) Corral() (corral.Corral, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.corral != nil {
		return a.corral, nil
	}

	opts := []corral.Option{
		corral.WithStore(store.NewCSV(a.config.DataDir, records.Default())),
	}

	if a.config.BucketsFile != "" {
		set, err := buckets.LoadFile(a.config.BucketsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, corral.WithBuckets(set))
	}

	if a.config.CatalogURL != "" {
		opts = append(opts, corral.WithCatalogSource(a.catalogSource()))
	}

	if a.config.SessionTTL > 0 {
		opts = append(opts, corral.WithSessionTTL(a.config.SessionTTL))
	}

	c, err := corral.New(opts...)
	if err != nil {
		return nil, err
	}
	a.corral = c
	return c, nil
}

// CatalogMatcher builds an expansion matcher from the configured catalog
// endpoint, for callers that assemble pipeline steps themselves.
func (a *App) CatalogMatcher() (*expand.Matcher, error) {
	if a.config.CatalogURL == "" {
		return nil, errors.NewValidationError("catalog_url", nil, "no reference catalog configured")
	}
	return expand.New(a.catalogSource()), nil
}

func (a *App) catalogSource() expand.Source {
	var clientOpts []refcat.Option
	if a.config.CatalogPageSize > 0 {
		clientOpts = append(clientOpts, refcat.WithPageSize(a.config.CatalogPageSize))
	}
	return refcat.NewSource(refcat.New(a.config.CatalogURL, clientOpts...))
}
