package annotations

import (
	"strings"

	"github.com/hubmapconsortium/channelmap/pkg/errors"
)

const imageEndTag = "</Image>"

// InsertAfterImage splices block into doc immediately after the first
// closing Image tag, leaving every surrounding byte untouched. A document
// with no closing Image tag is returned unchanged along with
// ErrMissingImageDelimiter, so callers can decide whether the run survives.
func InsertAfterImage(doc, block string) (string, error) {
	i := strings.Index(doc, imageEndTag)
	if i < 0 {
		return doc, errors.ErrMissingImageDelimiter
	}
	at := i + len(imageEndTag)
	return doc[:at] + block + doc[at:], nil
}
