package reconcile

import (
	"github.com/hubmapconsortium/channelmap/pkg/antibodies"
	"github.com/hubmapconsortium/channelmap/pkg/channels"
)

// Resolution pairs one acquired channel with its antibody record, when the
// index holds one. Name is the final display name: the antibody's protein
// target on a match, the acquisition name otherwise.
type Resolution struct {
	Channel      channels.Acquired  `json:"channel"`
	AssignedID   string             `json:"assigned_id"` // e.g. "Channel:0:0"
	Name         string             `json:"name"`
	Record       *antibodies.Record `json:"record,omitempty"`
	Segmentation bool               `json:"segmentation,omitempty"`
}

// Matched reports whether the channel resolved to an antibody record.
func (r Resolution) Matched() bool { return r.Record != nil }

// Reconcile resolves acquired channels against the index in order. Every
// channel yields exactly one Resolution whether or not it matched, and the
// i-th resolution carries the i-th assigned identifier. A nil index leaves
// every channel unresolved.
func Reconcile(acquired []channels.Acquired, ix *Index) []Resolution {
	resolutions := make([]Resolution, 0, len(acquired))
	for i, a := range acquired {
		res := Resolution{
			Channel:    a,
			AssignedID: channels.AssignedID(i),
			Name:       a.Name,
		}
		if rec, ok := ix.Lookup(a); ok {
			rec := rec
			res.Record = &rec
			res.Name = rec.Target()
		}
		resolutions = append(resolutions, res)
	}
	return resolutions
}

// ReconcileLabels parses raw acquisition labels and resolves them. Labels
// naming a segmentation mask channel bypass parsing and lookup entirely,
// passing through with their own name; any other label that fails to parse
// aborts the run. Assigned identifiers still cover the full list, masks
// included.
func ReconcileLabels(labels []string, ix *Index) ([]Resolution, error) {
	resolutions := make([]Resolution, 0, len(labels))
	for i, label := range labels {
		if channels.IsSegmentationChannel(label) {
			resolutions = append(resolutions, Resolution{
				Channel:      channels.Acquired{Label: label, Name: label},
				AssignedID:   channels.AssignedID(i),
				Name:         label,
				Segmentation: true,
			})
			continue
		}
		a, err := channels.ParseLabel(label)
		if err != nil {
			return nil, err
		}
		res := Resolution{
			Channel:    a,
			AssignedID: channels.AssignedID(i),
			Name:       a.Name,
		}
		if rec, ok := ix.Lookup(a); ok {
			rec := rec
			res.Record = &rec
			res.Name = rec.Target()
		}
		resolutions = append(resolutions, res)
	}
	return resolutions, nil
}

// Unresolved returns the resolutions that did not match an antibody record,
// segmentation masks excluded.
func Unresolved(resolutions []Resolution) []Resolution {
	var out []Resolution
	for _, r := range resolutions {
		if !r.Matched() && !r.Segmentation {
			out = append(out, r)
		}
	}
	return out
}
