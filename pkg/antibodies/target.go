package antibodies

import "regexp"

// Antibody names in the wild carry reagent boilerplate around the protein
// target, e.g. "Anti-CD4 antibody". The target is what the channel actually
// imaged, so that is the name downstream consumers want.
var (
	antiPrefixPattern     = regexp.MustCompile(`Anti-`)
	antibodySuffixPattern = regexp.MustCompile(`\s+antibody`)
)

// DeriveTarget reduces an antibody name to its protein target by removing
// the "Anti-" prefix and the trailing " antibody" qualifier. Each removal is
// independent, so names carrying only one of the two still reduce correctly.
// Names carrying neither pass through unchanged.
func DeriveTarget(name string) string {
	target := antiPrefixPattern.ReplaceAllString(name, "")
	return antibodySuffixPattern.ReplaceAllString(target, "")
}
