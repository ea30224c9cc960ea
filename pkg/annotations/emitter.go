package annotations

import (
	"fmt"

	"github.com/hubmapconsortium/channelmap/pkg/errors"
	"github.com/hubmapconsortium/channelmap/pkg/omexml"
)

// Style selects how annotation records are written into a document.
type Style string

const (
	// StyleTemplate splices the literal ProteinIDMap block in after the
	// first Image element. This is the historical format and the default.
	StyleTemplate Style = "template"

	// StyleObject appends one OME MapAnnotation per channel through the
	// document model instead of splicing text.
	StyleObject Style = "object"
)

// Styles lists the supported emission styles.
var Styles = []Style{StyleTemplate, StyleObject}

// ParseStyle validates a style name from configuration.
func ParseStyle(s string) (Style, error) {
	switch Style(s) {
	case StyleTemplate, StyleObject:
		return Style(s), nil
	case "":
		return StyleTemplate, nil
	}
	return "", &errors.ValidationError{
		Field:   "style",
		Value:   s,
		Message: fmt.Sprintf("unknown style, expected one of %v", Styles),
		Err:     errors.ErrInvalidInput,
	}
}

// Emitter writes annotation records into a serialized OME-XML document.
// Emit never mutates doc; it returns the annotated copy.
type Emitter interface {
	Emit(doc []byte, records []Record) ([]byte, error)
}

// NewEmitter returns the emitter for a style.
func NewEmitter(style Style) (Emitter, error) {
	switch style {
	case StyleTemplate, "":
		return templateEmitter{}, nil
	case StyleObject:
		return objectEmitter{}, nil
	}
	return nil, &errors.ValidationError{
		Field:   "style",
		Value:   string(style),
		Message: "unknown style",
		Err:     errors.ErrInvalidInput,
	}
}

type templateEmitter struct{}

func (templateEmitter) Emit(doc []byte, records []Record) ([]byte, error) {
	out, err := InsertAfterImage(string(doc), RenderBlock(records))
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

type objectEmitter struct{}

func (objectEmitter) Emit(doc []byte, records []Record) ([]byte, error) {
	anns := make([]omexml.MapAnnotation, len(records))
	for i, r := range records {
		anns[i] = omexml.MapAnnotation{
			ID:    fmt.Sprintf("Annotation:%d", i+1),
			Value: omexml.MapValue{Pairs: r.Pairs()},
		}
	}
	return omexml.AppendMapAnnotations(doc, anns)
}
