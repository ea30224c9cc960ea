package annotations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubmapconsortium/channelmap/pkg/antibodies"
	"github.com/hubmapconsortium/channelmap/pkg/channels"
	"github.com/hubmapconsortium/channelmap/pkg/errors"
	"github.com/hubmapconsortium/channelmap/pkg/reconcile"
)

func resolvedCD3() reconcile.Resolution {
	rec := antibodies.Record{
		ChannelID: "cycle1_ch2",
		Name:      "Anti-CD3 antibody",
		UniprotID: "P04234",
		RRID:      "AB_1234",
	}
	return reconcile.Resolution{
		Channel:    channels.Acquired{Label: "cyc1_ch2_origCD3-FITC", Cycle: 1, Channel: 2, Name: "CD3-FITC"},
		AssignedID: "Channel:0:0",
		Name:       rec.Target(),
		Record:     &rec,
	}
}

func unresolvedBlank(i int) reconcile.Resolution {
	return reconcile.Resolution{
		Channel:    channels.Acquired{Label: "cyc9_ch9_origBlank", Cycle: 9, Channel: 9, Name: "Blank"},
		AssignedID: channels.AssignedID(i),
		Name:       "Blank",
	}
}

func TestNewRecordResolved(t *testing.T) {
	rec := NewRecord(resolvedCD3())
	assert.Equal(t, Record{
		ChannelID:       "Channel:0:0",
		Name:            "CD3",
		OriginalName:    "CD3-FITC",
		UniprotID:       "P04234",
		RRID:            "AB_1234",
		AntibodiesTsvID: "cycle1_ch2",
	}, rec)
}

func TestNewRecordUnresolved(t *testing.T) {
	rec := NewRecord(unresolvedBlank(1))
	assert.Equal(t, Record{
		ChannelID:       "Channel:0:1",
		Name:            "Blank",
		OriginalName:    "None",
		UniprotID:       "None",
		RRID:            "None",
		AntibodiesTsvID: "None",
	}, rec)
}

func TestNewRecordBlankIdentifiers(t *testing.T) {
	rec := antibodies.Record{ChannelID: "cycle1_ch1", Name: "DAPI"}
	res := reconcile.Resolution{
		Channel:    channels.Acquired{Name: "DAPI-hoechst", Cycle: 1, Channel: 1},
		AssignedID: "Channel:0:0",
		Name:       "DAPI",
		Record:     &rec,
	}
	got := NewRecord(res)
	assert.Equal(t, "None", got.UniprotID)
	assert.Equal(t, "None", got.RRID)
	assert.Equal(t, "cycle1_ch1", got.AntibodiesTsvID)
	assert.Equal(t, "DAPI-hoechst", got.OriginalName)
}

func TestRecordPairsOrder(t *testing.T) {
	pairs := NewRecord(resolvedCD3()).Pairs()
	require.Len(t, pairs, len(Keys))
	for i, p := range pairs {
		assert.Equal(t, Keys[i], p.Key)
	}
}

func TestRenderFragmentEscapes(t *testing.T) {
	frag := RenderFragment(Record{
		ChannelID:       "Channel:0:0",
		Name:            `R&D "special" <clone>`,
		OriginalName:    "None",
		UniprotID:       "None",
		RRID:            "None",
		AntibodiesTsvID: "None",
	})
	assert.Contains(t, frag, `Name="R&amp;D &#34;special&#34; &lt;clone&gt;"`)
}

func TestRenderBlockGolden(t *testing.T) {
	records := NewRecords([]reconcile.Resolution{resolvedCD3(), unresolvedBlank(1)})

	want := `<StructuredAnnotations>
<XMLAnnotation ID="Annotation:1">
    <Value>
        <OriginalMetadata>
            <Key>ProteinIDMap</Key>
            <Value>
                <Channel ID="Channel:0:0" Name="CD3" OriginalName="CD3-FITC" UniprotID="P04234" RRID="AB_1234" AntibodiesTsvID="cycle1_ch2"/>
<Channel ID="Channel:0:1" Name="Blank" OriginalName="None" UniprotID="None" RRID="None" AntibodiesTsvID="None"/>
            </Value>
        </OriginalMetadata>
    </Value>
</XMLAnnotation>
</StructuredAnnotations>`

	assert.Equal(t, want, RenderBlock(records))
}

const docWithImage = `<?xml version="1.0"?>
<OME>
  <Image ID="Image:0">
    <Pixels ID="Pixels:0">
      <Channel ID="Channel:0:0" Name="cyc1_ch2_origCD3-FITC"/>
    </Pixels>
  </Image>
  <Instrument ID="Instrument:0"/>
</OME>
`

func TestInsertAfterImage(t *testing.T) {
	out, err := InsertAfterImage(docWithImage, "<Block/>")
	require.NoError(t, err)

	at := strings.Index(docWithImage, "</Image>") + len("</Image>")
	assert.Equal(t, docWithImage[:at]+"<Block/>"+docWithImage[at:], out)

	// Surrounding bytes are untouched.
	assert.True(t, strings.HasPrefix(out, docWithImage[:at]))
	assert.True(t, strings.HasSuffix(out, docWithImage[at:]))
}

func TestInsertAfterImageFirstOnly(t *testing.T) {
	doc := "<OME><Image>a</Image><Image>b</Image></OME>"
	out, err := InsertAfterImage(doc, "<X/>")
	require.NoError(t, err)
	assert.Equal(t, "<OME><Image>a</Image><X/><Image>b</Image></OME>", out)
}

func TestInsertAfterImageMissingDelimiter(t *testing.T) {
	doc := "<OME><Instrument/></OME>"
	out, err := InsertAfterImage(doc, "<X/>")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingImageDelimiter)
	assert.Equal(t, doc, out)
}

func TestTemplateEmitter(t *testing.T) {
	em, err := NewEmitter(StyleTemplate)
	require.NoError(t, err)

	records := NewRecords([]reconcile.Resolution{resolvedCD3()})
	out, err := em.Emit([]byte(docWithImage), records)
	require.NoError(t, err)
	s := string(out)

	assert.Contains(t, s, "</Image><StructuredAnnotations>")
	assert.Contains(t, s, "<Key>ProteinIDMap</Key>")
	assert.Contains(t, s, `AntibodiesTsvID="cycle1_ch2"`)
}

func TestTemplateEmitterMissingImage(t *testing.T) {
	em, err := NewEmitter(StyleTemplate)
	require.NoError(t, err)

	_, err = em.Emit([]byte("<OME></OME>"), nil)
	assert.ErrorIs(t, err, errors.ErrMissingImageDelimiter)
}

func TestObjectEmitter(t *testing.T) {
	em, err := NewEmitter(StyleObject)
	require.NoError(t, err)

	records := NewRecords([]reconcile.Resolution{resolvedCD3(), unresolvedBlank(1)})
	out, err := em.Emit([]byte(docWithImage), records)
	require.NoError(t, err)
	s := string(out)

	assert.Contains(t, s, `<MapAnnotation ID="Annotation:1">`)
	assert.Contains(t, s, `<MapAnnotation ID="Annotation:2">`)
	assert.Contains(t, s, `<M K="Channel ID">Channel:0:0</M>`)
	assert.Contains(t, s, `<M K="Original Name">CD3-FITC</M>`)
	assert.Contains(t, s, `<M K="AntibodiesTsvID">None</M>`)
	assert.Less(t, strings.Index(s, "</Image>"), strings.Index(s, "<StructuredAnnotations>"))
}

func TestParseStyle(t *testing.T) {
	style, err := ParseStyle("")
	require.NoError(t, err)
	assert.Equal(t, StyleTemplate, style)

	style, err = ParseStyle("object")
	require.NoError(t, err)
	assert.Equal(t, StyleObject, style)

	_, err = ParseStyle("fancy")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
