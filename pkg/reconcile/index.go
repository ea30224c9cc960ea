// Package reconcile associates acquired channels with antibody metadata.
// The antibodies table is folded into an index keyed by channel identity,
// then each acquired channel is resolved against the index in acquisition
// order. Resolution is pure: the same table and channels always produce the
// same result, and nothing here performs I/O.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/hubmapconsortium/channelmap/pkg/antibodies"
	"github.com/hubmapconsortium/channelmap/pkg/channels"
	"github.com/hubmapconsortium/channelmap/pkg/errors"
)

// Strategy selects how channel identity is compared between the antibodies
// table and the acquired channels.
type Strategy string

const (
	// StrategyChannelID matches on the case-folded channel_id string. This
	// is the default and matches provider tables verbatim.
	StrategyChannelID Strategy = "channel-id"

	// StrategyCycleChannel matches on the parsed (cycle, channel) ordinal
	// pair, tolerating formatting variants such as zero-padded ordinals.
	StrategyCycleChannel Strategy = "cycle-channel"
)

// Strategies lists the supported lookup strategies.
var Strategies = []Strategy{StrategyChannelID, StrategyCycleChannel}

// ParseStrategy validates a strategy name from configuration.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyChannelID, StrategyCycleChannel:
		return Strategy(s), nil
	case "":
		return StrategyChannelID, nil
	}
	return "", &errors.ValidationError{
		Field:   "strategy",
		Value:   s,
		Message: fmt.Sprintf("unknown strategy, expected one of %v", Strategies),
		Err:     errors.ErrInvalidInput,
	}
}

// Duplicate reports antibody rows that collided on the same index key. The
// last row wins; the earlier rows are retained here for diagnostics.
type Duplicate struct {
	Key  string `json:"key"`  // colliding index key, e.g. "cycle1_ch2"
	Rows []int  `json:"rows"` // 1-based table rows sharing the key, in table order
}

// Err returns the duplicate as a typed error for strict-mode callers.
func (d Duplicate) Err() error {
	return errors.NewDuplicateError(d.Key, d.Rows)
}

type coord struct {
	cycle   int
	channel int
}

// Index is an immutable lookup from channel identity to antibody record.
// Build one per run with BuildIndex.
type Index struct {
	strategy Strategy
	byID     map[string]antibodies.Record
	byCoord  map[coord]antibodies.Record
}

// BuildIndex folds the table into an Index using the given strategy. Rows
// are folded in table order, so when two rows share a key the later row
// wins; every collision is reported in the returned duplicates, one entry
// per key. A nil table yields an index that matches nothing.
func BuildIndex(t *antibodies.Table, strategy Strategy) (*Index, []Duplicate, error) {
	ix := &Index{
		strategy: strategy,
		byID:     make(map[string]antibodies.Record),
		byCoord:  make(map[coord]antibodies.Record),
	}

	seen := make(map[string][]int)
	var order []string

	for _, rec := range t.Records() {
		var key string
		switch strategy {
		case StrategyCycleChannel:
			cycle, channel, err := rec.CycleChannel()
			if err != nil {
				return nil, nil, err
			}
			ix.byCoord[coord{cycle: cycle, channel: channel}] = rec
			key = fmt.Sprintf("cycle%d_ch%d", cycle, channel)
		case StrategyChannelID:
			key = rec.Key()
			ix.byID[key] = rec
		default:
			return nil, nil, &errors.ValidationError{
				Field:   "strategy",
				Value:   string(strategy),
				Message: "unknown strategy",
				Err:     errors.ErrInvalidInput,
			}
		}
		if len(seen[key]) == 0 {
			order = append(order, key)
		}
		seen[key] = append(seen[key], rec.Row())
	}

	var dups []Duplicate
	for _, key := range order {
		if rows := seen[key]; len(rows) > 1 {
			dups = append(dups, Duplicate{Key: key, Rows: rows})
		}
	}
	return ix, dups, nil
}

// Lookup resolves one acquired channel against the index.
func (ix *Index) Lookup(a channels.Acquired) (antibodies.Record, bool) {
	if ix == nil {
		return antibodies.Record{}, false
	}
	switch ix.strategy {
	case StrategyCycleChannel:
		rec, ok := ix.byCoord[coord{cycle: a.Cycle, channel: a.Channel}]
		return rec, ok
	default:
		rec, ok := ix.byID[strings.ToLower(a.ChannelID())]
		return rec, ok
	}
}

// Len reports the number of distinct keys in the index.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	if ix.strategy == StrategyCycleChannel {
		return len(ix.byCoord)
	}
	return len(ix.byID)
}
