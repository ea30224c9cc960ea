// Package channels implements the channelmap channels command, a dry run
// of the reconciliation pipeline that reports the channel mapping without
// writing any document.
package channels

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hubmapconsortium/channelmap"
	"github.com/hubmapconsortium/channelmap/internal/cmd/output"
	"github.com/hubmapconsortium/channelmap/pkg/antibodies"
	channelspkg "github.com/hubmapconsortium/channelmap/pkg/channels"
	"github.com/hubmapconsortium/channelmap/pkg/reconcile"
)

// AppContext defines the interface that the channels command needs from the
// app. This allows for better testability and decoupling from the full app.
type AppContext interface {
	Engine(opts ...channelmap.Option) (*channelmap.Engine, error)
	Logger() *zerolog.Logger
	OutputFormat() string
}

// channelRow is one resolved channel in command output.
type channelRow struct {
	AssignedID      string `json:"assigned_id"`
	Label           string `json:"label"`
	Cycle           int    `json:"cycle,omitempty"`
	Channel         int    `json:"channel,omitempty"`
	Name            string `json:"name"`
	OriginalName    string `json:"original_name"`
	UniprotID       string `json:"uniprot_id"`
	RRID            string `json:"rr_id"`
	AntibodiesTsvID string `json:"antibodies_tsv_id"`
	Status          string `json:"status"`
}

// NewCommand creates the channels command with app dependencies.
func NewCommand(app AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "channels",
		GroupID: "pipeline",
		Aliases: []string{"channel"},
		Short:   "Resolve channels against the antibodies table and list the mapping",
		Long: `Channels resolves acquisition labels against the dataset's antibodies
table and prints the resulting mapping: assigned OME identifier, final
display name, and the antibody metadata each channel picked up. Nothing is
written; use annotate to produce documents.

Labels come from --labels-file or --tiff, or from the Channel elements of
the document given with --image.`,
		Example: `  channelmap channels --image expr.ome.xml --data-dir ./dataset
  channelmap channels --labels-file channels.txt --antibodies ab.tsv
  channelmap channels --tiff expr.ome.tiff --data-dir ./dataset -o json
  channelmap channels --image expr.ome.xml --data-dir ./dataset --correct-names`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app)
		},
	}

	cmd.Flags().String("data-dir", "", "dataset directory searched for the antibodies table")
	cmd.Flags().String("antibodies", "", "antibodies table path (skips discovery)")
	cmd.Flags().String("labels-file", "", "channel label list file (one label per line, or YAML)")
	cmd.Flags().String("tiff", "", "ImageJ TIFF stack whose metadata supplies the channel labels")
	cmd.Flags().String("image", "", "OME-XML document whose Channel elements supply the labels")
	cmd.Flags().String("strategy", "", "antibody lookup strategy: channel-id or cycle-channel")
	cmd.Flags().Bool("strict-duplicates", false, "fail on duplicate channel_id rows instead of warning")
	cmd.Flags().Int("channels-per-cycle", 0, "channels acquired per imaging cycle, for position checks")
	cmd.Flags().Bool("correct-names", false, "rename unresolved channels by prefix match against antibody targets")

	cmd.MarkFlagsMutuallyExclusive("labels-file", "tiff")

	return cmd
}

func run(cmd *cobra.Command, app AppContext) error {
	opts, err := engineOptions(cmd)
	if err != nil {
		return err
	}

	eng, err := app.Engine(opts...)
	if err != nil {
		return err
	}

	result, err := eng.Run(cmd.Context())
	if err != nil {
		return err
	}

	rows := buildRows(result)

	if correct, _ := cmd.Flags().GetBool("correct-names"); correct {
		if err := correctRows(cmd, rows); err != nil {
			return err
		}
	}

	format := output.DetectFormat(app.OutputFormat())
	formatter := output.NewFormatter(format)

	var data any
	switch format {
	case output.FormatTable, output.FormatWide, output.FormatMarkdown:
		data = tableData(rows, format == output.FormatWide)
	default:
		data = rows
	}
	return formatter.Format(cmd.OutOrStdout(), data)
}

// buildRows flattens the run result into display rows. Resolutions and
// Records are index-aligned, one of each per acquired channel.
func buildRows(result *channelmap.Result) []channelRow {
	rows := make([]channelRow, 0, len(result.Resolutions))
	for i, res := range result.Resolutions {
		rec := result.Records[i]
		row := channelRow{
			AssignedID:      res.AssignedID,
			Label:           res.Channel.Label,
			Cycle:           res.Channel.Cycle,
			Channel:         res.Channel.Channel,
			Name:            res.Name,
			OriginalName:    rec.OriginalName,
			UniprotID:       rec.UniprotID,
			RRID:            rec.RRID,
			AntibodiesTsvID: rec.AntibodiesTsvID,
		}
		switch {
		case res.Segmentation:
			row.Status = "segmentation"
		case res.Matched():
			row.Status = "matched"
		default:
			row.Status = "unresolved"
		}
		rows = append(rows, row)
	}
	return rows
}

// correctRows applies the coarse prefix-based name correction to channels
// the positional reconciliation left unresolved, the fallback for provider
// name lists that carry no cycle and channel coordinates.
func correctRows(cmd *cobra.Command, rows []channelRow) error {
	table, err := loadTable(cmd)
	if err != nil {
		return err
	}

	names := make([]string, len(rows))
	for i, row := range rows {
		names[i] = row.Name
	}
	corrected := reconcile.CorrectNames(names, table)

	for i := range rows {
		if rows[i].Status != "unresolved" || corrected[i] == rows[i].Name {
			continue
		}
		rows[i].OriginalName = rows[i].Name
		rows[i].Name = corrected[i]
		rows[i].Status = "corrected"
	}
	return nil
}

// loadTable resolves the antibodies table for name correction, by explicit
// path or dataset discovery.
func loadTable(cmd *cobra.Command) (*antibodies.Table, error) {
	path, _ := cmd.Flags().GetString("antibodies")
	if path == "" {
		dir, _ := cmd.Flags().GetString("data-dir")
		if dir == "" {
			return nil, fmt.Errorf("--correct-names requires --antibodies or --data-dir")
		}
		var err error
		path, err = antibodies.Discover(dir)
		if err != nil {
			return nil, err
		}
	}
	return antibodies.Load(path)
}

func tableData(rows []channelRow, wide bool) output.Data {
	headers := []string{"ID", "Label", "Cycle", "Ch", "Name", "Status"}
	if wide {
		headers = append(headers, "Original Name", "UniprotID", "RRID", "AntibodiesTsvID")
	}

	data := output.Data{Headers: headers}
	for _, row := range rows {
		cells := []string{
			row.AssignedID,
			row.Label,
			ordinal(row.Cycle),
			ordinal(row.Channel),
			row.Name,
			row.Status,
		}
		if wide {
			cells = append(cells, row.OriginalName, row.UniprotID, row.RRID, row.AntibodiesTsvID)
		}
		data.Rows = append(data.Rows, cells)
	}
	return data
}

// ordinal renders a 1-based coordinate, or a dash for channels that carry
// none, such as segmentation masks.
func ordinal(n int) string {
	if n < 1 {
		return "-"
	}
	return strconv.Itoa(n)
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
		opts = append(opts, channelmap.WithSource(channelspkg.FromFile(path)))
	}
	if path, _ := flags.GetString("tiff"); path != "" {
		opts = append(opts, channelmap.WithSource(channelmap.TIFFLabels(path)))
	}
	if path, _ := flags.GetString("image"); path != "" {
		opts = append(opts, channelmap.WithImagePath(path))
	}
	if flags.Changed("strategy") {
		strategy, _ := flags.GetString("strategy")
		opts = append(opts, channelmap.WithStrategy(reconcile.Strategy(strategy)))
	}
	if flags.Changed("strict-duplicates") {
		strict, _ := flags.GetBool("strict-duplicates")
		opts = append(opts, channelmap.WithStrictDuplicates(strict))
	}
	if flags.Changed("channels-per-cycle") {
		n, _ := flags.GetInt("channels-per-cycle")
		opts = append(opts, channelmap.WithChannelsPerCycle(n))
	}
	return opts, nil
}
