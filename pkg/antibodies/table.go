package antibodies

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hubmapconsortium/channelmap/pkg/constants"
	"github.com/hubmapconsortium/channelmap/pkg/errors"
)

// Column names the table must carry. Extra columns (lot numbers, dilutions,
// vendor catalog data) are permitted and ignored.
const (
	ColumnChannelID = "channel_id"
	ColumnName      = "antibody_name"
	ColumnUniprot   = "uniprot_accession_number"
	ColumnRRID      = "rr_id"
)

// RequiredColumns lists the columns every antibodies table must define.
var RequiredColumns = []string{ColumnChannelID, ColumnName, ColumnUniprot, ColumnRRID}

// Table is the parsed antibodies metadata table. Records preserve source
// order until explicitly sorted.
type Table struct {
	records []Record
	path    string
}

// Load reads and parses the antibodies table at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads a tab-separated antibodies table from r. The name is used in
// diagnostics only; pass the source path when known.
func Parse(r io.Reader, name string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	// Editors strip trailing tabs, so rows with blank optional cells often
	// arrive short. Short rows read as empty cells; see cell below.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewParseError("tsv", name, "empty table", err)
	}
	if err != nil {
		return nil, errors.WrapParse("tsv", name, err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range RequiredColumns {
		if _, ok := cols[required]; !ok {
			return nil, &errors.ValidationError{
				Field:   required,
				Message: fmt.Sprintf("required column missing from %s", name),
				Err:     errors.ErrMissingColumn,
			}
		}
	}

	t := &Table{path: name}
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewParseError("tsv", name, err.Error(), err)
		}
		if row > constants.MaxTableRows {
			return nil, errors.NewParseError("tsv", name,
				fmt.Sprintf("table exceeds %d rows", constants.MaxTableRows), nil)
		}
		t.records = append(t.records, Record{
			ChannelID: cell(fields, cols[ColumnChannelID]),
			Name:      cell(fields, cols[ColumnName]),
			UniprotID: cell(fields, cols[ColumnUniprot]),
			RRID:      cell(fields, cols[ColumnRRID]),
			row:       row,
		})
	}
	return t, nil
}

// cell returns the trimmed field at index i, or "" past the row's end.
func cell(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

// Records returns the table rows in their current order. The returned slice
// is owned by the table; callers must not modify it.
func (t *Table) Records() []Record {
	if t == nil {
		return nil
	}
	return t.records
}

// Len reports the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Path reports where the table was loaded from, when known.
func (t *Table) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}
