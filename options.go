package channelmap

import (
	"github.com/rs/zerolog"

	"github.com/hubmapconsortium/channelmap/pkg/annotations"
	"github.com/hubmapconsortium/channelmap/pkg/antibodies"
	"github.com/hubmapconsortium/channelmap/pkg/channels"
	"github.com/hubmapconsortium/channelmap/pkg/constants"
	"github.com/hubmapconsortium/channelmap/pkg/errors"
	"github.com/hubmapconsortium/channelmap/pkg/logging"
	"github.com/hubmapconsortium/channelmap/pkg/reconcile"
)

// Option is a function that configures an Engine instance.
type Option func(*config) error

// config holds the resolved engine configuration.
type config struct {
	dataDir        string
	antibodiesPath string
	table          *antibodies.Table

	source channels.Source

	imagePath string
	image     []byte

	style             annotations.Style
	strategy          reconcile.Strategy
	strictDuplicates  bool
	allowMissingImage bool
	channelsPerCycle  int
	concurrency       int

	logger *zerolog.Logger
}

func defaultConfig() *config {
	return &config{
		style:            annotations.StyleTemplate,
		strategy:         reconcile.StrategyChannelID,
		channelsPerCycle: constants.DefaultChannelsPerCycle,
		concurrency:      constants.MaxConcurrentTiles,
		logger:           logging.Default(),
	}
}

func (c *config) apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// WithDataDir sets the dataset directory scanned for the antibodies file.
func WithDataDir(dir string) Option {
	return func(c *config) error {
		c.dataDir = dir
		return nil
	}
}

// WithAntibodiesPath sets an explicit antibodies file path, bypassing
// discovery.
func WithAntibodiesPath(path string) Option {
	return func(c *config) error {
		c.antibodiesPath = path
		return nil
	}
}

// WithTable injects an already-parsed antibodies table. Takes precedence
// over WithAntibodiesPath and WithDataDir.
func WithTable(t *antibodies.Table) Option {
	return func(c *config) error {
		if t == nil {
			return &errors.ValidationError{
				Field:   "table",
				Message: "cannot be nil",
			}
		}
		c.table = t
		return nil
	}
}

// WithLabels sets the acquisition channel labels directly.
func WithLabels(labels ...string) Option {
	return WithSource(channels.Static(labels...))
}

// WithSource sets the acquisition label source.
func WithSource(src channels.Source) Option {
	return func(c *config) error {
		if src == nil {
			return &errors.ValidationError{
				Field:   "source",
				Message: "cannot be nil",
			}
		}
		if c.source != nil {
			return &errors.ValidationError{
				Field:   "source",
				Message: "label source already configured",
			}
		}
		c.source = src
		return nil
	}
}

// WithImagePath sets the path of the OME-XML document to annotate.
func WithImagePath(path string) Option {
	return func(c *config) error {
		if c.image != nil {
			return &errors.ValidationError{
				Field:   "image_path",
				Message: "image already configured with WithImage",
			}
		}
		c.imagePath = path
		return nil
	}
}

// WithImage sets the OME-XML document bytes to annotate.
func WithImage(doc []byte) Option {
	return func(c *config) error {
		if c.imagePath != "" {
			return &errors.ValidationError{
				Field:   "image",
				Message: "image already configured with WithImagePath",
			}
		}
		c.image = doc
		return nil
	}
}

// WithStyle selects the annotation emission style.
func WithStyle(style annotations.Style) Option {
	return func(c *config) error {
		parsed, err := annotations.ParseStyle(string(style))
		if err != nil {
			return err
		}
		c.style = parsed
		return nil
	}
}

// WithStrategy selects the antibody lookup strategy.
func WithStrategy(strategy reconcile.Strategy) Option {
	return func(c *config) error {
		parsed, err := reconcile.ParseStrategy(string(strategy))
		if err != nil {
			return err
		}
		c.strategy = parsed
		return nil
	}
}

// WithStrictDuplicates makes duplicate channel_id rows fail the run instead
// of resolving last-write-wins with a warning.
func WithStrictDuplicates(enabled bool) Option {
	return func(c *config) error {
		c.strictDuplicates = enabled
		return nil
	}
}

// WithAllowMissingImage degrades a document without an </Image> element from
// an error to a warning; the run returns the channel-updated but
// unannotated document.
func WithAllowMissingImage(enabled bool) Option {
	return func(c *config) error {
		c.allowMissingImage = enabled
		return nil
	}
}

// WithChannelsPerCycle sets the acquisition's positional numbering width.
// The engine cross-checks parsed label coordinates against their list
// position and warns on disagreement.
func WithChannelsPerCycle(n int) Option {
	return func(c *config) error {
		numbering, err := channels.NewNumbering(n)
		if err != nil {
			return err
		}
		c.channelsPerCycle = numbering.PerCycle
		return nil
	}
}

// WithConcurrency bounds the batch tile fan-out.
func WithConcurrency(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return &errors.ValidationError{
				Field:   "concurrency",
				Value:   n,
				Message: "must be at least 1",
			}
		}
		c.concurrency = n
		return nil
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return &errors.ValidationError{
				Field:   "logger",
				Message: "cannot be nil",
			}
		}
		c.logger = logger
		return nil
	}
}
