// Package app provides the application context and dependency management
// for the channelmap CLI. It centralizes configuration, logging, and engine
// construction so commands stay thin.
package app

import (
	"github.com/rs/zerolog"

	"github.com/hubmapconsortium/channelmap"
	"github.com/hubmapconsortium/channelmap/internal/appcontext"
	"github.com/hubmapconsortium/channelmap/pkg/annotations"
	"github.com/hubmapconsortium/channelmap/pkg/errors"
	"github.com/hubmapconsortium/channelmap/pkg/reconcile"
)

// Ensure App implements appcontext.Interface at compile time.
var _ appcontext.Interface = (*App)(nil)

// App represents the channelmap application with all its dependencies. It
// provides a centralized place for configuration, logging, and engine
// construction, following the dependency injection pattern.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, errors.WrapIO("load", "config", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Engine creates a reconciliation engine from the application defaults plus
// the given options. Command options come last, so they win over
// config-file and environment defaults.
func (a *App) Engine(opts ...channelmap.Option) (*channelmap.Engine, error) {
	base := a.engineOptions()
	return channelmap.New(append(base, opts...)...)
}

// engineOptions translates the app configuration into engine options.
func (a *App) engineOptions() []channelmap.Option {
	opts := []channelmap.Option{
		channelmap.WithLogger(a.logger),
	}

	if a.config.DataDir != "" {
		opts = append(opts, channelmap.WithDataDir(a.config.DataDir))
	}
	if a.config.AntibodiesPath != "" {
		opts = append(opts, channelmap.WithAntibodiesPath(a.config.AntibodiesPath))
	}
	if a.config.Style != "" {
		opts = append(opts, channelmap.WithStyle(annotations.Style(a.config.Style)))
	}
	if a.config.Strategy != "" {
		opts = append(opts, channelmap.WithStrategy(reconcile.Strategy(a.config.Strategy)))
	}
	if a.config.ChannelsPerCycle > 0 {
		opts = append(opts, channelmap.WithChannelsPerCycle(a.config.ChannelsPerCycle))
	}
	if a.config.Concurrency > 0 {
		opts = append(opts, channelmap.WithConcurrency(a.config.Concurrency))
	}
	if a.config.StrictDuplicates {
		opts = append(opts, channelmap.WithStrictDuplicates(true))
	}
	if a.config.AllowMissingImage {
		opts = append(opts, channelmap.WithAllowMissingImage(true))
	}

	return opts
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}
