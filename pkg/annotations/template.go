package annotations

import (
	"fmt"
	"strings"

	"github.com/hubmapconsortium/channelmap/pkg/constants"
)

// envelope is the exact annotation block layout consumers of ProteinIDMap
// already parse, channel fragments included where the %s sits. Do not
// reflow: downstream tooling string-matches this shape.
const envelope = `<StructuredAnnotations>
<XMLAnnotation ID="` + constants.AnnotationID + `">
    <Value>
        <OriginalMetadata>
            <Key>` + constants.ProteinIDMapKey + `</Key>
            <Value>
                %s
            </Value>
        </OriginalMetadata>
    </Value>
</XMLAnnotation>
</StructuredAnnotations>`

// RenderFragment renders one record as a Channel element line.
func RenderFragment(r Record) string {
	return fmt.Sprintf(`<Channel ID="%s" Name="%s" OriginalName="%s" UniprotID="%s" RRID="%s" AntibodiesTsvID="%s"/>`,
		escapeAttr(r.ChannelID), escapeAttr(r.Name), escapeAttr(r.OriginalName),
		escapeAttr(r.UniprotID), escapeAttr(r.RRID), escapeAttr(r.AntibodiesTsvID))
}

// RenderBlock renders the full annotation block for a dataset: one line per
// record, newline-joined, wrapped in the ProteinIDMap envelope.
func RenderBlock(records []Record) string {
	fragments := make([]string, len(records))
	for i, r := range records {
		fragments[i] = RenderFragment(r)
	}
	return fmt.Sprintf(envelope, strings.Join(fragments, "\n"))
}

// escapeAttr escapes a value for use inside a double-quoted XML attribute.
// Antibody names occasionally carry ampersands and angle brackets.
var escapeAttr = strings.NewReplacer(
	`&`, "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&#34;",
).Replace
