// Package validate implements the channelmap validate command, a read-only
// audit of dataset metadata.
package validate

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hubmapconsortium/channelmap/internal/cmd/output"
	"github.com/hubmapconsortium/channelmap/pkg/antibodies"
	"github.com/hubmapconsortium/channelmap/pkg/channels"
	"github.com/hubmapconsortium/channelmap/pkg/reconcile"
)

// AppContext defines the interface that the validate command needs from the
// app. This allows for better testability and decoupling from the full app.
type AppContext interface {
	Logger() *zerolog.Logger
	OutputFormat() string
}

// issue is one metadata problem found during validation.
type issue struct {
	Check    string `json:"check"`
	Location string `json:"location"`
	Problem  string `json:"problem"`
}

// NewCommand creates the validate command with app dependencies.
func NewCommand(app AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "validate",
		GroupID: "metadata",
		Short:   "Audit dataset metadata without writing anything",
		Long: `Validate audits the antibodies table, and optionally a channel label
list, for the problems that degrade a reconciliation run: unparseable
channel_id cells, duplicate channel_id rows that would silently shadow each
other, empty antibody names, and malformed acquisition labels.

The command writes nothing and exits non-zero when it finds any issue, so
it can gate a pipeline before the annotate step runs.`,
		Example: `  channelmap validate --data-dir ./dataset
  channelmap validate --antibodies ab.tsv --labels-file channels.txt
  channelmap validate --data-dir ./dataset --strategy cycle-channel -o json`,
		Args: cobra.NoArgs,
		// The root command silences cobra's error and usage echo for the
		// whole tree; mirror that here so standalone execution (as in the
		// tests) keeps the report stream clean too.
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app)
		},
	}

	cmd.Flags().String("data-dir", "", "dataset directory searched for the antibodies table")
	cmd.Flags().String("antibodies", "", "antibodies table path (skips discovery)")
	cmd.Flags().String("labels-file", "", "channel label list file to audit alongside the table")
	cmd.Flags().String("strategy", string(reconcile.StrategyChannelID), "duplicate detection strategy: channel-id or cycle-channel")

	return cmd
}

func run(cmd *cobra.Command, app AppContext) error {
	antibodiesPath, _ := cmd.Flags().GetString("antibodies")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	labelsPath, _ := cmd.Flags().GetString("labels-file")

	if antibodiesPath == "" && dataDir == "" && labelsPath == "" {
		return fmt.Errorf("nothing to validate: pass --antibodies, --data-dir, or --labels-file")
	}

	var issues []issue
	var table *antibodies.Table
	var tablePath string

	if antibodiesPath != "" || dataDir != "" {
		table, tablePath = loadTable(antibodiesPath, dataDir, &issues)
	}
	if table != nil {
		issues = append(issues, auditTable(cmd, table)...)
	}
	if labelsPath != "" {
		issues = append(issues, auditLabels(cmd, labelsPath)...)
	}

	if len(issues) == 0 {
		app.Logger().Info().
			Str("antibodies", tablePath).
			Int("channels", tableLen(table)).
			Msg("Dataset metadata is valid")
		return nil
	}

	if err := report(cmd, app, issues); err != nil {
		return err
	}
	return fmt.Errorf("%d validation issues found", len(issues))
}

// loadTable resolves and parses the antibodies table, reporting discovery
// and parse failures as issues rather than aborting, so a run over a broken
// dataset still audits whatever else it can.
func loadTable(antibodiesPath, dataDir string, issues *[]issue) (*antibodies.Table, string) {
	path := antibodiesPath
	if path == "" {
		var err error
		path, err = antibodies.Discover(dataDir)
		if err != nil {
			*issues = append(*issues, issue{
				Check:    "antibodies",
				Location: dataDir,
				Problem:  err.Error(),
			})
			return nil, ""
		}
	}

	table, err := antibodies.Load(path)
	if err != nil {
		*issues = append(*issues, issue{
			Check:    "antibodies",
			Location: path,
			Problem:  err.Error(),
		})
		return nil, path
	}
	return table, path
}

// auditTable checks every record and the table as a whole. Duplicate
// detection runs under the configured lookup strategy only when every
// channel_id parses, since index construction needs the coordinates.
func auditTable(cmd *cobra.Command, table *antibodies.Table) []issue {
	var issues []issue

	parseable := true
	for _, rec := range table.Records() {
		if _, _, err := rec.CycleChannel(); err != nil {
			parseable = false
			issues = append(issues, issue{
				Check:    "channel_id",
				Location: fmt.Sprintf("row %d", rec.Row()),
				Problem:  fmt.Sprintf("%q does not contain a cycle<N>_ch<M> pattern", rec.ChannelID),
			})
		}
		if rec.Name == "" {
			issues = append(issues, issue{
				Check:    "antibody_name",
				Location: fmt.Sprintf("row %d", rec.Row()),
				Problem:  "empty antibody_name leaves the channel without a display name",
			})
		}
	}

	strategyName, _ := cmd.Flags().GetString("strategy")
	strategy, err := reconcile.ParseStrategy(strategyName)
	if err != nil {
		return append(issues, issue{Check: "strategy", Problem: err.Error()})
	}
	if strategy == reconcile.StrategyCycleChannel && !parseable {
		return issues
	}

	_, duplicates, err := reconcile.BuildIndex(table, strategy)
	if err != nil {
		return append(issues, issue{
			Check:    "index",
			Location: table.Path(),
			Problem:  err.Error(),
		})
	}
	for _, dup := range duplicates {
		issues = append(issues, issue{
			Check:    "duplicate",
			Location: fmt.Sprintf("rows %v", dup.Rows),
			Problem:  fmt.Sprintf("channel_id %q occurs %d times; reconciliation keeps only the last row", dup.Key, len(dup.Rows)),
		})
	}
	return issues
}

// auditLabels checks an acquisition label list the way the pipeline would
// read it: segmentation mask names pass through, everything else must carry
// cycle and channel coordinates.
func auditLabels(cmd *cobra.Command, path string) []issue {
	labels, err := channels.FromFile(path).Labels(cmd.Context())
	if err != nil {
		return []issue{{Check: "labels", Location: path, Problem: err.Error()}}
	}

	var issues []issue
	for i, label := range labels {
		if channels.IsSegmentationChannel(label) {
			continue
		}
		if _, err := channels.ParseLabel(label); err != nil {
			issues = append(issues, issue{
				Check:    "label",
				Location: fmt.Sprintf("%s line %d", path, i+1),
				Problem:  fmt.Sprintf("%q does not contain a cyc<N>_ch<M>_orig<name> pattern", label),
			})
		}
	}
	return issues
}

func report(cmd *cobra.Command, app AppContext, issues []issue) error {
	format := output.DetectFormat(app.OutputFormat())
	formatter := output.NewFormatter(format)

	var data any
	switch format {
	case output.FormatTable, output.FormatWide, output.FormatMarkdown:
		tableData := output.Data{Headers: []string{"Check", "Location", "Problem"}}
		for _, is := range issues {
			tableData.Rows = append(tableData.Rows, []string{is.Check, is.Location, is.Problem})
		}
		data = tableData
	default:
		data = issues
	}
	return formatter.Format(cmd.OutOrStdout(), data)
}

func tableLen(table *antibodies.Table) int {
	if table == nil {
		return 0
	}
	return table.Len()
}
