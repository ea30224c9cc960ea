package channelmap

import (
	"github.com/hubmapconsortium/channelmap/pkg/annotations"
	"github.com/hubmapconsortium/channelmap/pkg/reconcile"
)

// Result carries everything one Run produced: the per-channel resolutions,
// the annotation records derived from them, and, when an image was
// configured, the annotated document bytes.
type Result struct {
	RunID          string                 `json:"run_id"`
	AntibodiesPath string                 `json:"antibodies_path,omitempty"`
	Duplicates     []reconcile.Duplicate  `json:"duplicates,omitempty"`
	Resolutions    []reconcile.Resolution `json:"resolutions"`
	Records        []annotations.Record   `json:"records"`
	Unresolved     int                    `json:"unresolved"`
	Annotated      []byte                 `json:"-"`
}

// Matched counts resolutions carrying an antibody record.
func (r *Result) Matched() int {
	n := 0
	for _, res := range r.Resolutions {
		if res.Matched() {
			n++
		}
	}
	return n
}

// Names returns the final display names in channel order.
func (r *Result) Names() []string {
	names := make([]string, len(r.Resolutions))
	for i, res := range r.Resolutions {
		names[i] = res.Name
	}
	return names
}
