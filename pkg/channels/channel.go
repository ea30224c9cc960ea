// Package channels models the channels physically acquired by the imaging
// instrument. Acquisition software encodes each channel's position and
// working name into a label of the form cyc<N>_ch<M>_orig<name>; this
// package parses those labels into structured values and assigns the
// sequential OME identifiers used by everything downstream.
package channels

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/hubmapconsortium/channelmap/pkg/constants"
	"github.com/hubmapconsortium/channelmap/pkg/errors"
)

// labelPattern captures the cycle ordinal, channel ordinal, and original
// channel name from an acquisition label. The name capture is greedy to the
// end of the label, so names containing underscores survive intact.
var labelPattern = regexp.MustCompile(`cyc(\d+)_ch(\d+)_orig(.*)`)

// Acquired is one channel as acquired by the instrument, parsed from its
// acquisition label.
type Acquired struct {
	Label   string `json:"label"`   // raw acquisition label
	Cycle   int    `json:"cycle"`   // 1-based imaging cycle
	Channel int    `json:"channel"` // 1-based channel within the cycle
	Name    string `json:"name"`    // working name assigned at acquisition
}

// ParseLabel parses a single acquisition label. Labels that do not contain
// the cyc<N>_ch<M>_orig<name> pattern fail with ErrMalformedLabel.
func ParseLabel(label string) (Acquired, error) {
	m := labelPattern.FindStringSubmatch(label)
	if m == nil {
		return Acquired{}, errors.NewLabelError(label, "expected cyc<N>_ch<M>_orig<name>")
	}
	cycle, err := strconv.Atoi(m[1])
	if err == nil {
		var channel int
		channel, err = strconv.Atoi(m[2])
		if err == nil {
			return Acquired{Label: label, Cycle: cycle, Channel: channel, Name: m[3]}, nil
		}
	}
	return Acquired{}, errors.NewLabelError(label, fmt.Sprintf("ordinal out of range: %v", err))
}

// ParseLabels parses labels in order. Any malformed label aborts the whole
// parse; a dataset with even one unparseable label cannot be reconciled
// positionally.
func ParseLabels(labels []string) ([]Acquired, error) {
	acquired := make([]Acquired, 0, len(labels))
	for _, label := range labels {
		a, err := ParseLabel(label)
		if err != nil {
			return nil, err
		}
		acquired = append(acquired, a)
	}
	return acquired, nil
}

// ChannelID returns the canonical acquisition identifier for the channel,
// in the same cycle<N>_ch<M> form the antibodies table uses.
func (a Acquired) ChannelID() string {
	return fmt.Sprintf("cycle%d_ch%d", a.Cycle, a.Channel)
}

// AssignedID returns the synthetic OME channel identifier for the i-th
// channel of a dataset, counting from zero.
func AssignedID(i int) string {
	return fmt.Sprintf("%s%d", constants.ChannelIDPrefix, i)
}

// AssignIDs returns the synthetic OME channel identifiers for a dataset of
// n channels, in channel order.
func AssignIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = AssignedID(i)
	}
	return ids
}
