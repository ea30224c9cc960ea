// Package annotate implements the channelmap annotate command, the CLI
// entry point for the full reconciliation pipeline.
package annotate

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hubmapconsortium/channelmap"
	"github.com/hubmapconsortium/channelmap/pkg/annotations"
	"github.com/hubmapconsortium/channelmap/pkg/channels"
	"github.com/hubmapconsortium/channelmap/pkg/constants"
	"github.com/hubmapconsortium/channelmap/pkg/errors"
	"github.com/hubmapconsortium/channelmap/pkg/reconcile"
)

// AppContext defines the interface that the annotate command needs from the
// app. This allows for better testability and decoupling from the full app.
type AppContext interface {
	Engine(opts ...channelmap.Option) (*channelmap.Engine, error)
	Logger() *zerolog.Logger
}

// NewCommand creates the annotate command with app dependencies.
func NewCommand(app AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "annotate [document...]",
		GroupID: "pipeline",
		Short:   "Reconcile channels and write annotated OME-XML",
		Long: `Annotate runs the full reconciliation pipeline over one or more OME-XML
documents: channel labels are resolved against the dataset's antibodies
table, channel names are rewritten to protein targets, and a ProteinIDMap
annotation block is appended to each document.

With a single document the annotated result goes to stdout or --out. With
several documents, or with --tiles, every input is annotated concurrently
into --out-dir under its original file name.`,
		Example: `  channelmap annotate expr.ome.xml --data-dir ./dataset            # to stdout
  channelmap annotate expr.ome.xml --antibodies ab.tsv --out out.xml
  channelmap annotate --tiles ./stitched --out-dir ./annotated     # R###_X###_Y### tiles
  channelmap annotate a.ome.xml b.ome.xml --out-dir ./annotated
  channelmap annotate expr.ome.xml --labels-file channels.txt --style object`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, args)
		},
	}

	cmd.Flags().String("data-dir", "", "dataset directory searched for the antibodies table")
	cmd.Flags().String("antibodies", "", "antibodies table path (skips discovery)")
	cmd.Flags().String("labels-file", "", "channel label list file (one label per line, or YAML)")
	cmd.Flags().String("tiff", "", "ImageJ TIFF stack whose metadata supplies the channel labels")
	cmd.Flags().String("out", "", "output path for a single annotated document (default stdout)")
	cmd.Flags().String("out-dir", "", "output directory for batch annotation")
	cmd.Flags().String("tiles", "", "directory scanned for R###_X###_Y###.ome.xml tiles")
	cmd.Flags().String("style", "", "annotation style: template or object")
	cmd.Flags().String("strategy", "", "antibody lookup strategy: channel-id or cycle-channel")
	cmd.Flags().Bool("strict-duplicates", false, "fail on duplicate channel_id rows instead of warning")
	cmd.Flags().Bool("allow-missing-image", false, "warn instead of failing when a document has no Image element")
	cmd.Flags().Int("channels-per-cycle", 0, "channels acquired per imaging cycle, for position checks")
	cmd.Flags().Int("concurrency", 0, "max tiles annotated concurrently")

	cmd.MarkFlagsMutuallyExclusive("labels-file", "tiff")
	cmd.MarkFlagsMutuallyExclusive("out", "out-dir")

	return cmd
}

func run(cmd *cobra.Command, app AppContext, args []string) error {
	opts, err := engineOptions(cmd)
	if err != nil {
		return err
	}

	tilesDir, _ := cmd.Flags().GetString("tiles")
	outPath, _ := cmd.Flags().GetString("out")
	outDir, _ := cmd.Flags().GetString("out-dir")

	paths := args
	if tilesDir != "" {
		if len(args) > 0 {
			return fmt.Errorf("--tiles cannot be combined with document arguments")
		}
		if outDir == "" {
			return fmt.Errorf("--out-dir is required with --tiles")
		}
		paths, err = channelmap.DiscoverTiles(tilesDir)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no OME-XML tiles found under %s", tilesDir)
		}
	}

	switch {
	case len(paths) == 0:
		return fmt.Errorf("expected an OME-XML document path or --tiles directory")
	case len(paths) == 1 && outDir == "":
		return annotateDocument(cmd, app, opts, paths[0], outPath)
	default:
		return annotateBatch(cmd, app, opts, paths, outDir)
	}
}

// annotateDocument runs the pipeline over one document and writes the
// result to outPath, or stdout when outPath is empty.
func annotateDocument(cmd *cobra.Command, app AppContext, opts []channelmap.Option, path, outPath string) error {
	eng, err := app.Engine(append(opts, channelmap.WithImagePath(path))...)
	if err != nil {
		return err
	}

	result, err := eng.Run(cmd.Context())
	if err != nil {
		return err
	}

	app.Logger().Info().
		Str("document", path).
		Int("channels", len(result.Records)).
		Int("matched", result.Matched()).
		Int("unresolved", result.Unresolved).
		Msg("Document annotated")

	if outPath == "" || outPath == "-" {
		_, err = cmd.OutOrStdout().Write(result.Annotated)
		return err
	}
	if err := os.WriteFile(outPath, result.Annotated, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", outPath, err)
	}
	return nil
}

// annotateBatch annotates every path into outDir. Per-tile failures are
// logged by the engine; the command fails afterwards so partial output on
// disk is still distinguishable from a clean run.
func annotateBatch(cmd *cobra.Command, app AppContext, opts []channelmap.Option, paths []string, outDir string) error {
	if outDir == "" {
		return fmt.Errorf("--out-dir is required when annotating multiple documents")
	}

	eng, err := app.Engine(opts...)
	if err != nil {
		return err
	}

	result, err := eng.AnnotateFiles(cmd.Context(), paths, outDir)
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d tiles failed", result.Failed, len(result.Tiles))
	}
	return nil
}

// engineOptions translates command flags into engine options. Flags the
// user did not set are omitted so configuration file values stay in effect.
func engineOptions(cmd *cobra.Command) ([]channelmap.Option, error) {
	flags := cmd.Flags()
	var opts []channelmap.Option

	if dir, _ := flags.GetString("data-dir"); dir != "" {
		opts = append(opts, channelmap.WithDataDir(dir))
	}
	if path, _ := flags.GetString("antibodies"); path != "" {
		opts = append(opts, channelmap.WithAntibodiesPath(path))
	}
	if path, _ := flags.GetString("labels-file"); path != "" {
		opts = append(opts, channelmap.WithSource(channels.FromFile(path)))
	}
	if path, _ := flags.GetString("tiff"); path != "" {
		opts = append(opts, channelmap.WithSource(channelmap.TIFFLabels(path)))
	}
	if flags.Changed("style") {
		style, _ := flags.GetString("style")
		opts = append(opts, channelmap.WithStyle(annotations.Style(style)))
	}
	if flags.Changed("strategy") {
		strategy, _ := flags.GetString("strategy")
		opts = append(opts, channelmap.WithStrategy(reconcile.Strategy(strategy)))
	}
	if flags.Changed("strict-duplicates") {
		strict, _ := flags.GetBool("strict-duplicates")
		opts = append(opts, channelmap.WithStrictDuplicates(strict))
	}
	if flags.Changed("allow-missing-image") {
		allow, _ := flags.GetBool("allow-missing-image")
		opts = append(opts, channelmap.WithAllowMissingImage(allow))
	}
	if flags.Changed("channels-per-cycle") {
		n, _ := flags.GetInt("channels-per-cycle")
		opts = append(opts, channelmap.WithChannelsPerCycle(n))
	}
	if flags.Changed("concurrency") {
		n, _ := flags.GetInt("concurrency")
		opts = append(opts, channelmap.WithConcurrency(n))
	}
	return opts, nil
}
