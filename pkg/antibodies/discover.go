package antibodies

import (
	"io/fs"
	"regexp"

	"github.com/karrick/godirwalk"

	"github.com/hubmapconsortium/channelmap/pkg/errors"
	"github.com/hubmapconsortium/channelmap/pkg/logging"
)

// filenamePattern matches antibodies metadata files. Submissions prefix the
// canonical name with dataset identifiers ("HBM123-antibodies.tsv"), so any
// run of word characters, hyphens, and underscores may precede it.
var filenamePattern = regexp.MustCompile(`^[0-9A-Za-z\-_]*antibodies\.tsv$`)

// Discover walks the directory tree rooted at dir and returns the path of
// the first antibodies table found, in lexical traversal order. When the
// tree holds no matching file it logs a warning and returns
// ErrMetadataNotFound; callers decide whether the run continues without
// antibody metadata.
func Discover(dir string) (string, error) {
	var found []string
	err := godirwalk.Walk(dir, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			if filenamePattern.MatchString(de.Name()) {
				found = append(found, osPathname)
			}
			return nil
		},
	})
	if err != nil {
		return "", errors.WrapIO("walk", dir, err)
	}
	return pick(found, dir)
}

// DiscoverFS is Discover over an fs.FS, for callers holding an in-memory or
// embedded tree rather than an OS path.
func DiscoverFS(fsys fs.FS) (string, error) {
	var found []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filenamePattern.MatchString(d.Name()) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return "", errors.WrapIO("walk", ".", err)
	}
	return pick(found, ".")
}

func pick(found []string, dir string) (string, error) {
	if len(found) == 0 {
		logging.Warn().Str("dir", dir).Msg("No antibodies.tsv file found")
		return "", errors.ErrMetadataNotFound
	}
	if len(found) > 1 {
		logging.Debug().
			Str("dir", dir).
			Int("matches", len(found)).
			Str("selected", found[0]).
			Msg("Multiple antibodies tables found, using first")
	}
	return found[0], nil
}
