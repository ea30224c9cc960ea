// Package imagej extracts acquisition metadata from ImageJ-flavored TIFF
// stacks. The stitched expression images written upstream are ImageJ
// hyperstacks: the channel count lives in the ImageDescription tag and the
// per-page channel labels live in ImageJ's private metadata tags. Only the
// first IFD is consulted; pixel data is never touched.
package imagej

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/hubmapconsortium/channelmap/pkg/errors"
)

const (
	tagImageDescription = 270
	tagIJMetadataCounts = 50838
	tagIJMetadata       = 50839

	typeByte  = 1
	typeASCII = 2
	typeShort = 3
	typeLong  = 4

	// ijMagic opens the IJMetadata blob; the byte order follows the file.
	ijMagic = 0x494a494a // "IJIJ"

	// ijTypeLabels marks slice-label entries in the IJMetadata header.
	ijTypeLabels = 0x6c61626c // "labl"

	// Corrupt files must not drive allocations; real metadata is tiny.
	maxIFDEntries   = 4096
	maxMetadataSize = 16 << 20
)

// procPrefix marks labels rewritten by intermediate processing stages. The
// suffix after it is the original acquisition label.
const procPrefix = "proc_"

// Metadata is the ImageJ acquisition metadata of one TIFF stack.
type Metadata struct {
	Channels int      // declared channel count, 0 when the description has none
	Labels   []string // per-page labels in page order, proc_ prefix stripped
}

// ChannelLabels returns the labels of the acquired channels: the first
// Channels page labels, or every label when the description declared no
// channel count. Hyperstack pages beyond the channel axis (z slices,
// frames) repeat the channel labels, so the prefix is the channel list.
func (m *Metadata) ChannelLabels() []string {
	if m.Channels > 0 && len(m.Labels) >= m.Channels {
		return m.Labels[:m.Channels]
	}
	return m.Labels
}

// ReadFile reads ImageJ metadata from the TIFF at path.
func ReadFile(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()

	m, err := Read(f)
	if err != nil {
		if perr, ok := err.(*errors.ParseError); ok && perr.File == "" {
			perr.File = path
		}
		return nil, err
	}
	return m, nil
}

// Read reads ImageJ metadata from an open TIFF.
func Read(r io.ReaderAt) (*Metadata, error) {
	header := make([]byte, 8)
	if _, err := r.ReadAt(header, 0); err != nil {
		return nil, parseErr("short TIFF header", err)
	}

	var order binary.ByteOrder
	switch {
	case header[0] == 'I' && header[1] == 'I':
		order = binary.LittleEndian
	case header[0] == 'M' && header[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, parseErr("not a TIFF file", nil)
	}
	switch magic := order.Uint16(header[2:4]); magic {
	case 42:
	case 43:
		return nil, parseErr("BigTIFF is not supported", nil)
	default:
		return nil, parseErr(fmt.Sprintf("bad TIFF magic %d", magic), nil)
	}

	ifdOffset := int64(order.Uint32(header[4:8]))
	countBuf := make([]byte, 2)
	if _, err := r.ReadAt(countBuf, ifdOffset); err != nil {
		return nil, parseErr("short IFD", err)
	}
	n := int(order.Uint16(countBuf))
	if n > maxIFDEntries {
		return nil, parseErr(fmt.Sprintf("IFD declares %d entries", n), nil)
	}

	entries := make([]byte, n*12)
	if _, err := r.ReadAt(entries, ifdOffset+2); err != nil {
		return nil, parseErr("short IFD", err)
	}

	var (
		description string
		byteCounts  []uint32
		blob        []byte
	)
	for i := 0; i < n; i++ {
		e := entries[i*12 : (i+1)*12]
		tag := order.Uint16(e[0:2])
		typ := order.Uint16(e[2:4])
		cnt := order.Uint32(e[4:8])

		switch tag {
		case tagImageDescription:
			if typ != typeASCII {
				continue
			}
			v, err := entryValue(r, order, e, cnt, 1)
			if err != nil {
				return nil, err
			}
			description = string(bytes.TrimRight(v, "\x00"))
		case tagIJMetadataCounts:
			if typ != typeLong && typ != typeShort {
				continue
			}
			size := uint32(4)
			if typ == typeShort {
				size = 2
			}
			v, err := entryValue(r, order, e, cnt, size)
			if err != nil {
				return nil, err
			}
			byteCounts = make([]uint32, cnt)
			for j := range byteCounts {
				if typ == typeShort {
					byteCounts[j] = uint32(order.Uint16(v[j*2:]))
				} else {
					byteCounts[j] = order.Uint32(v[j*4:])
				}
			}
		case tagIJMetadata:
			if typ != typeByte {
				continue
			}
			v, err := entryValue(r, order, e, cnt, 1)
			if err != nil {
				return nil, err
			}
			blob = v
		}
	}

	m := &Metadata{Channels: descriptionInt(description, "channels")}
	if len(blob) > 0 && len(byteCounts) > 0 {
		labels, err := parseLabels(order, blob, byteCounts)
		if err != nil {
			return nil, err
		}
		for i, label := range labels {
			labels[i] = strings.TrimPrefix(label, procPrefix)
		}
		m.Labels = labels
	}
	return m, nil
}

// entryValue returns an IFD entry's payload: inline when it fits the
// 4-byte value field, dereferenced otherwise.
func entryValue(r io.ReaderAt, order binary.ByteOrder, entry []byte, cnt, elemSize uint32) ([]byte, error) {
	size := int64(cnt) * int64(elemSize)
	if size > maxMetadataSize {
		return nil, parseErr(fmt.Sprintf("metadata entry of %d bytes", size), nil)
	}
	if size <= 4 {
		return entry[8 : 8+size], nil
	}
	v := make([]byte, size)
	if _, err := r.ReadAt(v, int64(order.Uint32(entry[8:12]))); err != nil {
		return nil, parseErr("short metadata entry", err)
	}
	return v, nil
}

// descriptionInt pulls an integer property from an ImageJ description,
// which is a run of key=value lines ("ImageJ=1.53c\nchannels=40\n...").
func descriptionInt(description, key string) int {
	for _, line := range strings.Split(description, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || k != key {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// parseLabels decodes slice labels from the IJMetadata blob. The blob opens
// with a header (magic, then one type code and entry count per metadata
// type); entry payloads follow in header order, with their sizes in
// byteCounts[1:]. Labels are UTF-16 in the file's byte order.
func parseLabels(order binary.ByteOrder, blob []byte, byteCounts []uint32) ([]string, error) {
	headerLen := int(byteCounts[0])
	if headerLen < 4 || headerLen > len(blob) {
		return nil, parseErr("bad ImageJ metadata header length", nil)
	}
	if order.Uint32(blob[0:4]) != ijMagic {
		return nil, parseErr("bad ImageJ metadata magic", nil)
	}

	type typedRun struct {
		code    uint32
		entries int
	}
	var runs []typedRun
	for at := 4; at+8 <= headerLen; at += 8 {
		runs = append(runs, typedRun{
			code:    order.Uint32(blob[at : at+4]),
			entries: int(order.Uint32(blob[at+4 : at+8])),
		})
	}

	var labels []string
	offset := headerLen
	countIdx := 1
	for _, run := range runs {
		for i := 0; i < run.entries; i++ {
			if countIdx >= len(byteCounts) {
				return nil, parseErr("ImageJ metadata byte counts are short", nil)
			}
			size := int(byteCounts[countIdx])
			countIdx++
			if offset+size > len(blob) {
				return nil, parseErr("ImageJ metadata blob is short", nil)
			}
			if run.code == ijTypeLabels {
				labels = append(labels, decodeUTF16(order, blob[offset:offset+size]))
			}
			offset += size
		}
	}
	return labels, nil
}

func decodeUTF16(order binary.ByteOrder, b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = order.Uint16(b[i*2:])
	}
	return string(utf16.Decode(units))
}

func parseErr(message string, err error) error {
	return errors.NewParseError("tiff", "", message, err)
}
