package channelmap

import (
	"context"

	"github.com/hubmapconsortium/channelmap/internal/imagej"
	"github.com/hubmapconsortium/channelmap/pkg/channels"
)

// TIFFLabels returns a label source reading the ordered channel labels out
// of an ImageJ-flavored TIFF stack, the segmentation pipeline's expression
// image format. The stack's declared channel count bounds the label list
// and any proc_ prefixes are already stripped by the reader.
func TIFFLabels(path string) channels.Source {
	return tiffSource(path)
}

type tiffSource string

func (s tiffSource) Labels(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	meta, err := imagej.ReadFile(string(s))
	if err != nil {
		return nil, err
	}
	return meta.ChannelLabels(), nil
}
