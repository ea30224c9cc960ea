package channels

// SegmentationChannelNames are the mask channels appended to expression
// images by the segmentation stage. They never correspond to an antibody
// and are excluded from reconciliation against the antibodies table.
var SegmentationChannelNames = []string{
	"cells",
	"nuclei",
	"cell_boundaries",
	"nucleus_boundaries",
}

var segmentationNames = func() map[string]struct{} {
	m := make(map[string]struct{}, len(SegmentationChannelNames))
	for _, name := range SegmentationChannelNames {
		m[name] = struct{}{}
	}
	return m
}()

// IsSegmentationChannel reports whether name is a segmentation mask channel
// rather than an acquired expression channel.
func IsSegmentationChannel(name string) bool {
	_, ok := segmentationNames[name]
	return ok
}
