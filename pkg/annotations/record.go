// Package annotations renders reconciled channel metadata into the
// structured-annotation forms carried by OME-XML documents. Two emission
// styles produce the same information: a literal XML template matching the
// block historically written by the imaging pipeline, and native OME map
// annotations attached through the document model.
package annotations

import (
	"github.com/hubmapconsortium/channelmap/pkg/constants"
	"github.com/hubmapconsortium/channelmap/pkg/omexml"
	"github.com/hubmapconsortium/channelmap/pkg/reconcile"
)

// Record is the six-field annotation emitted for every acquired channel.
// Every field is always present; fields with nothing to say hold the
// literal placeholder "None" rather than being omitted, so consumers can
// parse records positionally.
type Record struct {
	ChannelID       string `json:"channel_id"`        // assigned OME identifier, e.g. "Channel:0:0"
	Name            string `json:"name"`              // final display name
	OriginalName    string `json:"original_name"`     // acquisition name replaced by Name
	UniprotID       string `json:"uniprot_id"`        // UniProt accession of the target
	RRID            string `json:"rr_id"`             // antibody RRID
	AntibodiesTsvID string `json:"antibodies_tsv_id"` // channel_id cell of the matched table row
}

// Keys lists the record's keys in serialization order.
var Keys = []string{"Channel ID", "Name", "Original Name", "UniprotID", "RRID", "AntibodiesTsvID"}

// NewRecord builds the annotation for one resolution. Matched channels
// carry the antibody's identifiers and keep their acquisition name in
// OriginalName; unmatched channels keep their acquisition name in Name and
// placeholder everything else.
func NewRecord(res reconcile.Resolution) Record {
	rec := Record{
		ChannelID:       res.AssignedID,
		Name:            res.Name,
		OriginalName:    constants.UnresolvedValue,
		UniprotID:       constants.UnresolvedValue,
		RRID:            constants.UnresolvedValue,
		AntibodiesTsvID: constants.UnresolvedValue,
	}
	if !res.Matched() {
		return rec
	}
	rec.OriginalName = res.Channel.Name
	rec.UniprotID = orNone(res.Record.UniprotID)
	rec.RRID = orNone(res.Record.RRID)
	rec.AntibodiesTsvID = orNone(res.Record.ChannelID)
	return rec
}

// NewRecords builds annotations for a full resolution list, in order.
func NewRecords(resolutions []reconcile.Resolution) []Record {
	records := make([]Record, len(resolutions))
	for i, res := range resolutions {
		records[i] = NewRecord(res)
	}
	return records
}

// Pairs returns the record as ordered key/value pairs for map-style
// emission, keyed per Keys.
func (r Record) Pairs() []omexml.MapPair {
	return []omexml.MapPair{
		{Key: Keys[0], Value: r.ChannelID},
		{Key: Keys[1], Value: r.Name},
		{Key: Keys[2], Value: r.OriginalName},
		{Key: Keys[3], Value: r.UniprotID},
		{Key: Keys[4], Value: r.RRID},
		{Key: Keys[5], Value: r.AntibodiesTsvID},
	}
}

// orNone substitutes the placeholder for blank table cells. Blank means the
// provider had nothing to report; the record still carries the key.
func orNone(s string) string {
	if s == "" {
		return constants.UnresolvedValue
	}
	return s
}
