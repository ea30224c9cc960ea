// Package appcontext provides the shared application context interface
// used by all commands. This eliminates interface duplication across
// command packages and provides a single source of truth for app
// dependencies.
package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/hubmapconsortium/channelmap"
)

// Interface defines the application context that commands need. The App
// struct from cmd/channelmap/app implements this interface, providing
// dependency injection for commands while maintaining testability.
//
// Commands should accept the narrow subset of this interface they actually
// use rather than the concrete App type, allowing for easier testing with
// mock implementations.
type Interface interface {
	// Engine creates a reconciliation engine configured from the
	// application defaults plus the given options. Options given here win
	// over config-file and environment defaults.
	Engine(opts ...channelmap.Option) (*channelmap.Engine, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json,
	// yaml, markdown, wide).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
