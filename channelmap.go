// Package channelmap reconciles acquired microscopy channel labels against
// an antibodies metadata table and annotates OME-XML documents with the
// per-channel antibody identity map.
//
// The engine runs three stages: normalize the acquisition labels and the
// antibodies table, map each channel to its antibody record, and emit the
// resolved names, identifiers, and structured annotations. Mapping is pure;
// unresolved channels degrade to placeholder records rather than failing
// the run.
//
// Example usage:
//
//	eng, err := channelmap.New(
//	    channelmap.WithDataDir("/data/codex-run-17"),
//	    channelmap.WithImagePath("/data/codex-run-17/expr.ome.xml"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := eng.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, res := range result.Resolutions {
//	    fmt.Printf("%s -> %s (%s)\n", res.Channel.Label, res.Name, res.AssignedID)
//	}
//	os.WriteFile("annotated.ome.xml", result.Annotated, 0o644)
package channelmap

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hubmapconsortium/channelmap/pkg/annotations"
	"github.com/hubmapconsortium/channelmap/pkg/antibodies"
	"github.com/hubmapconsortium/channelmap/pkg/channels"
	"github.com/hubmapconsortium/channelmap/pkg/errors"
	"github.com/hubmapconsortium/channelmap/pkg/logging"
	"github.com/hubmapconsortium/channelmap/pkg/omexml"
	"github.com/hubmapconsortium/channelmap/pkg/reconcile"
)

// Engine reconciles one dataset's channels per Run call. An Engine carries
// no mutable state; concurrent Runs of independent engines are safe.
type Engine struct {
	config *config
}

// New creates a new Engine instance with the given options.
func New(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	if err := cfg.apply(opts...); err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}
	return &Engine{config: cfg}, nil
}

// Run executes one reconciliation: load and index the antibodies table,
// resolve the acquisition labels against it, and, when an image is
// configured, rewrite its channel names/IDs and append the protein ID map
// annotation. A run either completes fully or returns the first error;
// unresolved channels are the designed degradation, not an error.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	doc, err := e.document()
	if err != nil {
		return nil, err
	}
	return e.run(ctx, doc)
}

// run is the reconciliation flow over explicit document bytes; doc may be
// nil for table-and-labels-only runs. Batch annotation calls it once per
// tile document.
func (e *Engine) run(ctx context.Context, doc []byte) (*Result, error) {
	runID := uuid.NewString()
	logger := e.config.logger.With().Str("run_id", runID).Logger()
	ctx = logging.WithLogger(logging.WithRunID(ctx, runID), &logger)

	result := &Result{RunID: runID}

	ix, err := e.index(&logger, result)
	if err != nil {
		return nil, err
	}

	labels, err := e.labels(ctx, doc)
	if err != nil {
		return nil, err
	}

	resolutions, err := reconcile.ReconcileLabels(labels, ix)
	if err != nil {
		return nil, err
	}
	e.checkNumbering(&logger, resolutions)

	result.Resolutions = resolutions
	result.Records = annotations.NewRecords(resolutions)
	result.Unresolved = len(reconcile.Unresolved(resolutions))

	if doc != nil {
		annotated, err := e.annotate(&logger, doc, resolutions, result.Records)
		if err != nil {
			return nil, err
		}
		result.Annotated = annotated
	}

	logger.Info().
		Int("channels", len(resolutions)).
		Int("matched", result.Matched()).
		Int("unresolved", result.Unresolved).
		Bool("annotated", result.Annotated != nil).
		Msg("Reconciliation complete")

	return result, nil
}

// index loads, sorts, and indexes the antibodies table. A missing table is
// not an error: the run proceeds with a nil index and every channel
// unresolved.
func (e *Engine) index(logger *zerolog.Logger, result *Result) (*reconcile.Index, error) {
	table, path, err := e.table(logger)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, nil
	}
	result.AntibodiesPath = path

	sorted, err := table.Sorted()
	if err != nil {
		return nil, err
	}

	ix, duplicates, err := reconcile.BuildIndex(sorted, e.config.strategy)
	if err != nil {
		return nil, err
	}
	result.Duplicates = duplicates

	if len(duplicates) > 0 {
		if e.config.strictDuplicates {
			return nil, fmt.Errorf("%d duplicate channel_id keys in %s: %w",
				len(duplicates), path, duplicates[0].Err())
		}
		for _, d := range duplicates {
			logger.Warn().
				Str("channel_id", d.Key).
				Ints("rows", d.Rows).
				Msg("Duplicate channel_id; keeping the last row")
		}
	}

	logger.Debug().
		Str("path", path).
		Int("records", ix.Len()).
		Str("strategy", string(e.config.strategy)).
		Msg("Antibodies table indexed")

	return ix, nil
}

// table resolves the antibodies source: injected table, explicit path, or
// discovery under the data directory.
func (e *Engine) table(logger *zerolog.Logger) (*antibodies.Table, string, error) {
	if e.config.table != nil {
		return e.config.table, e.config.table.Path(), nil
	}

	path := e.config.antibodiesPath
	if path == "" {
		if e.config.dataDir == "" {
			logger.Warn().Msg("No antibodies source configured; all channels will be unresolved")
			return nil, "", nil
		}
		found, err := antibodies.Discover(e.config.dataDir)
		if err != nil {
			if errors.Is(err, errors.ErrMetadataNotFound) {
				return nil, "", nil
			}
			return nil, "", err
		}
		path = found
	}

	table, err := antibodies.Load(path)
	if err != nil {
		return nil, "", err
	}
	return table, path, nil
}

// document returns the OME-XML bytes to annotate, or nil when the engine
// was not given an image.
func (e *Engine) document() ([]byte, error) {
	if e.config.image != nil {
		return e.config.image, nil
	}
	if e.config.imagePath == "" {
		return nil, nil
	}
	doc, err := os.ReadFile(e.config.imagePath)
	if err != nil {
		return nil, errors.WrapIO("read", e.config.imagePath, err)
	}
	return doc, nil
}

// labels returns the acquisition labels from the configured source, falling
// back to the document's own Channel Name attributes. Provider-written
// OME-XML carries the raw cyc…_ch…_orig… labels as channel names, so a
// document is its own label source.
func (e *Engine) labels(ctx context.Context, doc []byte) ([]string, error) {
	if e.config.source != nil {
		labels, err := e.config.source.Labels(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading channel labels: %w", err)
		}
		return labels, nil
	}

	if doc == nil {
		return nil, &errors.ValidationError{
			Field:   "labels",
			Message: "no label source configured and no image to read channel names from",
			Err:     errors.ErrInvalidInput,
		}
	}

	docChannels, err := omexml.Channels(doc)
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(docChannels))
	for i, ch := range docChannels {
		labels[i] = ch.Name
	}
	return labels, nil
}

// checkNumbering warns when a label's parsed coordinates disagree with its
// list position under the configured channels-per-cycle width. Segmentation
// mask channels carry no coordinates and end the positional sequence, so
// checking stops at the first one.
func (e *Engine) checkNumbering(logger *zerolog.Logger, resolutions []reconcile.Resolution) {
	numbering := channels.Numbering{PerCycle: e.config.channelsPerCycle}
	for i, res := range resolutions {
		if res.Segmentation {
			return
		}
		cycle, channel := numbering.Coordinates(i)
		if res.Channel.Cycle != cycle || res.Channel.Channel != channel {
			logger.Warn().
				Str("label", res.Channel.Label).
				Int("position", i).
				Str("expected", fmt.Sprintf("cyc%d_ch%d", cycle, channel)).
				Msg("Label coordinates disagree with list position")
		}
	}
}

// annotate rewrites the document's channel names/IDs from the resolutions
// and appends the protein ID map in the configured style.
func (e *Engine) annotate(logger *zerolog.Logger, doc []byte, resolutions []reconcile.Resolution, records []annotations.Record) ([]byte, error) {
	docChannels, err := omexml.Channels(doc)
	if err != nil {
		if errors.Is(err, errors.ErrMissingImageDelimiter) && e.config.allowMissingImage {
			logger.Warn().Msg("Document has no Image element; skipping channel update and annotation")
			return doc, nil
		}
		return nil, err
	}

	n := len(resolutions)
	if len(docChannels) != n {
		logger.Warn().
			Int("document_channels", len(docChannels)).
			Int("resolutions", n).
			Msg("Channel count mismatch between document and label source")
		if len(docChannels) < n {
			n = len(docChannels)
		}
	}

	updates := make([]omexml.ChannelUpdate, 0, n)
	for i := 0; i < n; i++ {
		updates = append(updates, omexml.ChannelUpdate{
			Index: i,
			ID:    resolutions[i].AssignedID,
			Name:  resolutions[i].Name,
		})
	}
	updated, err := omexml.UpdateChannels(doc, updates)
	if err != nil {
		return nil, err
	}

	emitter, err := annotations.NewEmitter(e.config.style)
	if err != nil {
		return nil, err
	}
	out, err := emitter.Emit(updated, records)
	if err != nil {
		if errors.Is(err, errors.ErrMissingImageDelimiter) && e.config.allowMissingImage {
			logger.Warn().Msg("Document has no </Image> delimiter; returning it without the protein ID map")
			return updated, nil
		}
		return nil, err
	}
	return out, nil
}
