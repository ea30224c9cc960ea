package channels

import (
	"fmt"

	"github.com/hubmapconsortium/channelmap/pkg/constants"
	"github.com/hubmapconsortium/channelmap/pkg/errors"
)

// Numbering converts between flat channel positions and (cycle, channel)
// coordinates for instruments that acquire a fixed number of channels per
// cycle. Positions are 0-based; cycles and channels are 1-based.
type Numbering struct {
	PerCycle int
}

// DefaultNumbering reflects the standard CODEX acquisition of four channels
// per cycle.
var DefaultNumbering = Numbering{PerCycle: constants.DefaultChannelsPerCycle}

// NewNumbering validates and returns a Numbering for instruments acquiring
// perCycle channels per cycle.
func NewNumbering(perCycle int) (Numbering, error) {
	if perCycle < 1 {
		return Numbering{}, &errors.ValidationError{
			Field:   "channels_per_cycle",
			Value:   perCycle,
			Message: "must be at least 1",
			Err:     errors.ErrInvalidInput,
		}
	}
	return Numbering{PerCycle: perCycle}, nil
}

// Coordinates returns the cycle and channel ordinals of the channel at a
// flat 0-based position.
func (n Numbering) Coordinates(position int) (cycle, channel int) {
	return position/n.PerCycle + 1, position%n.PerCycle + 1
}

// Position returns the flat 0-based position of the channel at the given
// cycle and channel ordinals.
func (n Numbering) Position(cycle, channel int) int {
	return (cycle-1)*n.PerCycle + (channel - 1)
}

// Label synthesizes an acquisition label for the channel at a flat
// position, used when a source carries bare names without coordinates.
func (n Numbering) Label(position int, name string) string {
	cycle, channel := n.Coordinates(position)
	return fmt.Sprintf("cyc%d_ch%d_orig%s", cycle, channel, name)
}
