// Package constants provides shared constants used throughout the channelmap
// codebase. This includes acquisition defaults, file permissions, and limits
// that should be consistent across the application.
package constants

import "time"

// Acquisition constants describe the imaging protocol defaults
const (
	// DefaultChannelsPerCycle is the number of fluorescence channels acquired
	// per imaging cycle when the dataset does not declare one. CODEX-style
	// runs image four channels per cycle; override per dataset with
	// channelmap.WithChannelsPerCycle.
	DefaultChannelsPerCycle = 4

	// ChannelIDPrefix is the prefix of assigned OME channel identifiers.
	// The i-th acquired channel becomes "Channel:0:<i>".
	ChannelIDPrefix = "Channel:0:"

	// AnnotationID is the identifier of the structured annotation block
	// carrying the protein ID map.
	AnnotationID = "Annotation:1"

	// ProteinIDMapKey is the OriginalMetadata key naming the per-channel
	// antibody identity map.
	ProteinIDMapKey = "ProteinIDMap"

	// UnresolvedValue is the literal placeholder serialized for annotation
	// fields with no antibody linkage. It exists only at the serialization
	// boundary; in-memory absence is a nil record.
	UnresolvedValue = "None"
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define various limits and capacities
const (
	// MaxConcurrentTiles is the default fan-out when annotating tiled
	// datasets; one worker per tile document up to this bound.
	MaxConcurrentTiles = 4

	// TileTimeout bounds one tile's parse, reconcile, and write.
	TileTimeout = 2 * time.Minute

	// MaxTableRows caps the antibodies table size; a metadata file larger
	// than this is almost certainly not an antibodies panel.
	MaxTableRows = 10000
)
