package omexml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/hubmapconsortium/channelmap/pkg/errors"
)

// ChannelUpdate rewrites the identifying attributes of the channel at a
// 0-based position within the first Image. Empty fields are left untouched.
type ChannelUpdate struct {
	Index int
	ID    string
	Name  string
}

// UpdateChannels rewrites Channel elements of the document's first Image in
// place, returning a new document. Everything not named by an update is
// copied through verbatim, including elements the package knows nothing
// about. An update addressing a channel the document does not have is an
// error.
func UpdateChannels(doc []byte, updates []ChannelUpdate) ([]byte, error) {
	byIndex := make(map[int]ChannelUpdate, len(updates))
	for _, u := range updates {
		if u.Index < 0 {
			return nil, &errors.ValidationError{
				Field: "index", Value: u.Index,
				Message: "channel index must not be negative",
				Err:     errors.ErrInvalidInput,
			}
		}
		if _, dup := byIndex[u.Index]; dup {
			return nil, &errors.ValidationError{
				Field: "index", Value: u.Index,
				Message: "duplicate channel update",
				Err:     errors.ErrInvalidInput,
			}
		}
		byIndex[u.Index] = u
	}

	dec := xml.NewDecoder(bytes.NewReader(doc))
	w := newRawWriter()

	var (
		stack      []string
		inImage    bool
		imageDone  bool
		channelIdx int
	)
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewParseError("xml", "", err.Error(), err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			se := t.Copy()
			if se.Name.Local == "Image" && !inImage && !imageDone {
				inImage = true
			}
			if se.Name.Local == "Channel" && inImage && top(stack) == "Pixels" {
				if u, ok := byIndex[channelIdx]; ok {
					applyUpdate(&se, u)
					delete(byIndex, channelIdx)
				}
				channelIdx++
			}
			stack = append(stack, se.Name.Local)
			w.token(se)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if t.Name.Local == "Image" && inImage {
				inImage = false
				imageDone = true
			}
			w.token(t)
		default:
			w.token(tok)
		}
	}

	if len(byIndex) > 0 {
		return nil, &errors.ValidationError{
			Field:   "index",
			Message: fmt.Sprintf("%d channel updates address channels beyond the document's %d", len(byIndex), channelIdx),
			Err:     errors.ErrInvalidInput,
		}
	}
	return w.bytes(), nil
}

// AppendMapAnnotations appends map annotations to the document's
// StructuredAnnotations block, creating the block immediately before the
// closing OME tag when the document has none.
func AppendMapAnnotations(doc []byte, anns []MapAnnotation) ([]byte, error) {
	rendered, err := renderAnnotations(anns)
	if err != nil {
		return nil, err
	}

	dec := xml.NewDecoder(bytes.NewReader(doc))
	w := newRawWriter()

	injected := false
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewParseError("xml", "", err.Error(), err)
		}
		if ee, ok := tok.(xml.EndElement); ok && !injected {
			switch ee.Name.Local {
			case "StructuredAnnotations":
				w.raw(rendered)
				injected = true
			case "OME":
				block, err := xml.Marshal(structuredAnnotations{MapAnnotations: anns})
				if err != nil {
					return nil, errors.WrapParse("xml", "", err)
				}
				w.raw(block)
				injected = true
			}
		}
		w.token(tok)
	}

	if !injected {
		return nil, errors.NewParseError("xml", "", "no OME element to carry annotations", nil)
	}
	return w.bytes(), nil
}

func renderAnnotations(anns []MapAnnotation) ([]byte, error) {
	var buf bytes.Buffer
	for _, ann := range anns {
		b, err := xml.Marshal(ann)
		if err != nil {
			return nil, errors.WrapParse("xml", "", err)
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

func top(stack []string) string {
	if len(stack) == 0 {
		return ""
	}
	return stack[len(stack)-1]
}

func applyUpdate(se *xml.StartElement, u ChannelUpdate) {
	if u.ID != "" {
		setAttr(se, "ID", u.ID)
	}
	if u.Name != "" {
		setAttr(se, "Name", u.Name)
	}
}

func setAttr(se *xml.StartElement, local, value string) {
	for i, a := range se.Attr {
		if a.Name.Local == local {
			se.Attr[i].Value = value
			return
		}
	}
	se.Attr = append(se.Attr, xml.Attr{Name: xml.Name{Local: local}, Value: value})
}

// rawWriter serializes raw decoder tokens back to text, keeping namespace
// prefixes as written and collapsing empty elements to self-closing form.
type rawWriter struct {
	buf     bytes.Buffer
	pending *xml.StartElement
}

func newRawWriter() *rawWriter {
	return &rawWriter{}
}

func (w *rawWriter) token(tok xml.Token) {
	switch t := tok.(type) {
	case xml.StartElement:
		w.flush(false)
		se := t.Copy()
		w.pending = &se
	case xml.EndElement:
		if w.pending != nil && w.pending.Name == t.Name {
			w.flush(true)
			return
		}
		w.flush(false)
		w.buf.WriteString("</")
		w.writeName(t.Name)
		w.buf.WriteByte('>')
	case xml.CharData:
		w.flush(false)
		// xml.EscapeText would also escape newlines and tabs, destroying
		// the document's indentation. Text content only needs these three.
		w.escapeText(t)
	case xml.Comment:
		w.flush(false)
		w.buf.WriteString("<!--")
		w.buf.Write(t)
		w.buf.WriteString("-->")
	case xml.ProcInst:
		w.flush(false)
		w.buf.WriteString("<?")
		w.buf.WriteString(t.Target)
		if len(t.Inst) > 0 {
			w.buf.WriteByte(' ')
			w.buf.Write(t.Inst)
		}
		w.buf.WriteString("?>")
	case xml.Directive:
		w.flush(false)
		w.buf.WriteString("<!")
		w.buf.Write(t)
		w.buf.WriteByte('>')
	}
}

// raw splices pre-serialized XML into the stream at the current position.
func (w *rawWriter) raw(b []byte) {
	w.flush(false)
	w.buf.Write(b)
}

func (w *rawWriter) flush(selfClose bool) {
	if w.pending == nil {
		return
	}
	se := w.pending
	w.pending = nil
	w.buf.WriteByte('<')
	w.writeName(se.Name)
	for _, a := range se.Attr {
		w.buf.WriteByte(' ')
		w.writeName(a.Name)
		w.buf.WriteString(`="`)
		_ = xml.EscapeText(&w.buf, []byte(a.Value))
		w.buf.WriteByte('"')
	}
	if selfClose {
		w.buf.WriteString("/>")
	} else {
		w.buf.WriteByte('>')
	}
}

func (w *rawWriter) writeName(n xml.Name) {
	if n.Space != "" {
		w.buf.WriteString(n.Space)
		w.buf.WriteByte(':')
	}
	w.buf.WriteString(n.Local)
}

func (w *rawWriter) escapeText(s []byte) {
	last := 0
	for i, c := range s {
		var esc string
		switch c {
		case '&':
			esc = "&amp;"
		case '<':
			esc = "&lt;"
		case '>':
			esc = "&gt;"
		default:
			continue
		}
		w.buf.Write(s[last:i])
		w.buf.WriteString(esc)
		last = i + 1
	}
	w.buf.Write(s[last:])
}

func (w *rawWriter) bytes() []byte {
	w.flush(false)
	return w.buf.Bytes()
}
