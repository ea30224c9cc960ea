package antibodies

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubmapconsortium/channelmap/pkg/errors"
)

func TestDeriveTarget(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "prefix and suffix", in: "Anti-CD3 antibody", want: "CD3"},
		{name: "prefix only", in: "Anti-CD4", want: "CD4"},
		{name: "suffix only", in: "CD45 antibody", want: "CD45"},
		{name: "neither", in: "DAPI", want: "DAPI"},
		{name: "multiple spaces before suffix", in: "Anti-Ki67   antibody", want: "Ki67"},
		{name: "prefix is case sensitive", in: "anti-CD8 antibody", want: "anti-CD8"},
		{name: "suffix requires leading space", in: "Anti-myantibody", want: "myantibody"},
		{name: "empty", in: "", want: ""},
		{name: "hyphenated target", in: "Anti-E-Cadherin antibody", want: "E-Cadherin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTarget(tt.in))
		})
	}
}

func TestRecordTarget(t *testing.T) {
	rec := Record{ChannelID: "cycle1_ch2", Name: "Anti-CD3 antibody"}
	assert.Equal(t, "CD3", rec.Target())

	// Target always follows the name.
	rec.Name = "Anti-CD8 antibody"
	assert.Equal(t, "CD8", rec.Target())
}

func TestRecordCycleChannel(t *testing.T) {
	tests := []struct {
		id          string
		wantCycle   int
		wantChannel int
		wantErr     bool
	}{
		{id: "cycle1_ch2", wantCycle: 1, wantChannel: 2},
		{id: "cycle12_ch34", wantCycle: 12, wantChannel: 34},
		{id: "Cycle3_CH1", wantCycle: 3, wantChannel: 1},
		{id: "cycle1-ch2", wantErr: true},
		{id: "ch2_cycle1", wantErr: true},
		{id: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			rec := Record{ChannelID: tt.id, row: 3}
			cycle, channel, err := rec.CycleChannel()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsMalformedChannelID(err))
				var cerr *errors.ChannelIDError
				require.ErrorAs(t, err, &cerr)
				assert.Equal(t, 3, cerr.Row)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCycle, cycle)
			assert.Equal(t, tt.wantChannel, channel)
		})
	}
}

// The DAPI row is deliberately short: editors strip trailing tabs when the
// optional cells are blank.
const sampleTable = `channel_id	antibody_name	uniprot_accession_number	rr_id	lot_number
cycle1_ch1	DAPI
cycle1_ch2	Anti-CD3 antibody	P04234	AB_1234	9000
cycle2_ch1	Anti-CD4 antibody	P01730	AB_5678	9001
`

func TestParse(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleTable), "antibodies.tsv")
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	recs := table.Records()
	assert.Equal(t, "cycle1_ch1", recs[0].ChannelID)
	assert.Equal(t, "DAPI", recs[0].Name)
	assert.Empty(t, recs[0].UniprotID)
	assert.Empty(t, recs[0].RRID)
	assert.Equal(t, 1, recs[0].Row())

	assert.Equal(t, "Anti-CD3 antibody", recs[1].Name)
	assert.Equal(t, "CD3", recs[1].Target())
	assert.Equal(t, "P04234", recs[1].UniprotID)
	assert.Equal(t, "AB_1234", recs[1].RRID)
	assert.Equal(t, 2, recs[1].Row())
}

func TestParseMissingColumn(t *testing.T) {
	in := "channel_id\tantibody_name\tuniprot_accession_number\ncycle1_ch1\tDAPI\t\n"
	_, err := Parse(strings.NewReader(in), "antibodies.tsv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingColumn))

	var verr *errors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "rr_id", verr.Field)
}

func TestParseEmptyTable(t *testing.T) {
	_, err := Parse(strings.NewReader(""), "antibodies.tsv")
	require.Error(t, err)
	var perr *errors.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestParseHeaderCaseInsensitive(t *testing.T) {
	in := "Channel_ID\tAntibody_Name\tUniprot_Accession_Number\tRR_ID\ncycle1_ch1\tDAPI\t\t\n"
	table, err := Parse(strings.NewReader(in), "antibodies.tsv")
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestSorted(t *testing.T) {
	in := strings.Join([]string{
		"channel_id\tantibody_name\tuniprot_accession_number\trr_id",
		"cycle2_ch1\tAnti-CD4 antibody\tP01730\tAB_5678",
		"Cycle1_CH2\tAnti-CD3 antibody\tP04234\tAB_1234",
		"cycle1_ch1\tDAPI\t\t",
		"cycle10_ch1\tAnti-Ki67 antibody\tP46013\tAB_9999",
	}, "\n") + "\n"

	table, err := Parse(strings.NewReader(in), "antibodies.tsv")
	require.NoError(t, err)

	sorted, err := table.Sorted()
	require.NoError(t, err)

	var ids []string
	for _, rec := range sorted.Records() {
		ids = append(ids, rec.ChannelID)
	}
	// Numeric ordering, so cycle10 follows cycle2.
	assert.Equal(t, []string{"cycle1_ch1", "Cycle1_CH2", "cycle2_ch1", "cycle10_ch1"}, ids)

	// The original table is left untouched.
	assert.Equal(t, "cycle2_ch1", table.Records()[0].ChannelID)
}

func TestSortedMalformedChannelID(t *testing.T) {
	in := "channel_id\tantibody_name\tuniprot_accession_number\trr_id\nnot_a_channel\tDAPI\t\t\n"
	table, err := Parse(strings.NewReader(in), "antibodies.tsv")
	require.NoError(t, err)

	_, err = table.Sorted()
	require.Error(t, err)
	assert.True(t, errors.IsMalformedChannelID(err))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "antibodies.tsv")
	require.NoError(t, os.WriteFile(path, []byte(sampleTable), 0o644))

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, path, table.Path())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.tsv"))
	require.Error(t, err)
	var ioerr *errors.IOError
	assert.ErrorAs(t, err, &ioerr)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "extras", "metadata")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	// Decoys that must not match.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "antibodies.tsv.bak"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "my antibodies.tsv"), []byte("x"), 0o644))

	want := filepath.Join(nested, "HBM123-antibodies.tsv")
	require.NoError(t, os.WriteFile(want, []byte(sampleTable), 0o644))

	got, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDiscoverNotFound(t *testing.T) {
	_, err := Discover(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.IsMetadataNotFound(err))
}

func TestDiscoverFS(t *testing.T) {
	fsys := fstest.MapFS{
		"raw/image.ome.tiff":              {Data: []byte("x")},
		"metadata/HBM42_antibodies.tsv":   {Data: []byte(sampleTable)},
		"metadata/extra/antibodies.tsvgz": {Data: []byte("x")},
	}
	got, err := DiscoverFS(fsys)
	require.NoError(t, err)
	assert.Equal(t, "metadata/HBM42_antibodies.tsv", got)
}

func TestDiscoverFSNotFound(t *testing.T) {
	_, err := DiscoverFS(fstest.MapFS{"readme.md": {Data: []byte("x")}})
	assert.True(t, errors.IsMetadataNotFound(err))
}
