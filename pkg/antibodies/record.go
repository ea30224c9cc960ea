// Package antibodies loads and validates the antibodies.tsv metadata table
// that accompanies a CODEX/PhenoCycler dataset. The table links each acquired
// channel to the antibody it imaged, along with the external identifiers
// (UniProt accession, RRID) needed for downstream provenance.
package antibodies

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hubmapconsortium/channelmap/pkg/errors"
)

// cycleChannelPattern extracts the cycle and channel ordinals from a
// channel_id value such as "cycle2_ch3". Matching is case-insensitive and
// positional, so provider variants like "Cycle2_CH3" parse identically.
var cycleChannelPattern = regexp.MustCompile(`(?i)cycle(\d+)_ch(\d+)`)

// Record is a single row of the antibodies table. String fields hold the
// raw cell values with surrounding whitespace trimmed; optional identifiers
// are empty when the cell was blank.
type Record struct {
	ChannelID string // acquisition slot, e.g. "cycle1_ch2"
	Name      string // antibody_name as written in the table
	UniprotID string // uniprot_accession_number, may be empty
	RRID      string // rr_id, may be empty

	row int // 1-based data row in the source table
}

// Row reports the record's 1-based data row in the source table, counting
// from the first row after the header.
func (r Record) Row() int { return r.row }

// Target returns the protein target derived from the antibody name. It is
// always recomputed from Name so the two can never drift apart.
func (r Record) Target() string { return DeriveTarget(r.Name) }

// Key returns the lowercased channel_id used for index lookups.
func (r Record) Key() string { return strings.ToLower(r.ChannelID) }

// CycleChannel parses the record's channel_id into its cycle and channel
// ordinals. Records whose channel_id does not contain a cycle<N>_ch<M>
// component fail with ErrMalformedChannelID.
func (r Record) CycleChannel() (cycle, channel int, err error) {
	m := cycleChannelPattern.FindStringSubmatch(r.ChannelID)
	if m == nil {
		return 0, 0, errors.NewChannelIDError(r.ChannelID, r.row, "expected cycle<N>_ch<M>")
	}
	cycle, err = strconv.Atoi(m[1])
	if err == nil {
		channel, err = strconv.Atoi(m[2])
	}
	if err != nil {
		return 0, 0, errors.NewChannelIDError(r.ChannelID, r.row, fmt.Sprintf("ordinal out of range: %v", err))
	}
	return cycle, channel, nil
}
