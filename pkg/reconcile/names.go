package reconcile

import (
	"strings"

	"github.com/hubmapconsortium/channelmap/pkg/antibodies"
)

// CorrectNames replaces provider channel names with the antibody targets
// they abbreviate. A provider name matches a target when it is a
// case-insensitive prefix of it, so "cd3" picks up "CD3e". Names matching
// no target pass through unchanged. This is a coarser fallback than
// positional reconciliation, for datasets that carry bare name lists
// without cycle and channel coordinates.
func CorrectNames(names []string, t *antibodies.Table) []string {
	records := t.Records()
	targets := make([]string, len(records))
	for i, rec := range records {
		targets[i] = rec.Target()
	}

	corrected := make([]string, len(names))
	for i, name := range names {
		corrected[i] = name
		lower := strings.ToLower(name)
		for _, target := range targets {
			if strings.HasPrefix(strings.ToLower(target), lower) {
				corrected[i] = target
				break
			}
		}
	}
	return corrected
}
