package channels

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/hubmapconsortium/channelmap/pkg/errors"
)

// Source provides a dataset's acquisition labels in channel order. The
// labels typically come from TIFF page metadata, but sidecar files and
// fixed lists serve pipelines that extracted them earlier.
type Source interface {
	Labels(ctx context.Context) ([]string, error)
}

// Static returns a Source serving a fixed label list.
func Static(labels ...string) Source {
	return staticSource(labels)
}

type staticSource []string

func (s staticSource) Labels(context.Context) ([]string, error) {
	return []string(s), nil
}

// FromFile returns a Source reading labels from a sidecar file. Files with
// a .yaml or .yml extension must hold a YAML sequence of strings; anything
// else is read as one label per line, blank lines skipped. The file is read
// lazily on the first Labels call.
func FromFile(path string) Source {
	return &fileSource{path: path}
}

type fileSource struct {
	path string
}

func (s *fileSource) Labels(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.WrapIO("read", s.path, err)
	}
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml":
		var labels []string
		if err := yaml.Unmarshal(data, &labels); err != nil {
			return nil, errors.WrapParse("yaml", s.path, err)
		}
		return labels, nil
	default:
		var labels []string
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			labels = append(labels, line)
		}
		return labels, nil
	}
}
