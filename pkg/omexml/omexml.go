// Package omexml reads and rewrites the OME-XML metadata documents that
// accompany microscopy images. It deliberately avoids a full OME object
// model: documents are processed as token streams, so every element and
// attribute the caller does not touch survives a rewrite untouched. The
// package covers the two writes the annotation pipeline needs, renaming
// Pixels channels and appending structured annotations.
package omexml

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/hubmapconsortium/channelmap/pkg/errors"
)

// Channel is one Pixels channel as declared in the document.
type Channel struct {
	ID   string `xml:"ID,attr" json:"id"`
	Name string `xml:"Name,attr" json:"name"`
}

// MapAnnotation is a map-valued structured annotation, the native OME
// representation of a small key/value record.
type MapAnnotation struct {
	XMLName   xml.Name `xml:"MapAnnotation"`
	ID        string   `xml:"ID,attr"`
	Namespace string   `xml:"Namespace,attr,omitempty"`
	Value     MapValue `xml:"Value"`
}

// MapValue holds a MapAnnotation's ordered key/value pairs.
type MapValue struct {
	Pairs []MapPair `xml:"M"`
}

// MapPair is a single <M K="key">value</M> entry.
type MapPair struct {
	Key   string `xml:"K,attr"`
	Value string `xml:",chardata"`
}

// structuredAnnotations is the marshal shape for a fresh annotations block.
type structuredAnnotations struct {
	XMLName        xml.Name        `xml:"StructuredAnnotations"`
	MapAnnotations []MapAnnotation `xml:"MapAnnotation"`
}

// Channels lists the Pixels channels of the document's first Image, in
// document order. Channels of any additional Image elements are ignored,
// matching the rewrite operations which also address the first Image only.
func Channels(doc []byte) ([]Channel, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))

	var (
		out       []Channel
		stack     []string
		imageSeen bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewParseError("xml", "", err.Error(), err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			if t.Name.Local == "Image" {
				imageSeen = true
			}
			if t.Name.Local == "Channel" && inPixels(stack) {
				var ch Channel
				for _, a := range t.Attr {
					switch a.Name.Local {
					case "ID":
						ch.ID = a.Value
					case "Name":
						ch.Name = a.Value
					}
				}
				out = append(out, ch)
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if t.Name.Local == "Image" {
				return out, nil
			}
		}
	}
	if !imageSeen {
		return nil, errors.NewParseError("xml", "", "no Image element found", errors.ErrMissingImageDelimiter)
	}
	return out, nil
}

// inPixels reports whether the element stack ends in Image > Pixels > Channel.
func inPixels(stack []string) bool {
	n := len(stack)
	return n >= 3 && stack[n-1] == "Channel" && stack[n-2] == "Pixels" && stack[n-3] == "Image"
}
