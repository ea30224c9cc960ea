package channels

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubmapconsortium/channelmap/pkg/errors"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		want    Acquired
		wantErr bool
	}{
		{
			name:  "basic",
			label: "cyc1_ch2_origCD3-FITC",
			want:  Acquired{Label: "cyc1_ch2_origCD3-FITC", Cycle: 1, Channel: 2, Name: "CD3-FITC"},
		},
		{
			name:  "name with underscores",
			label: "cyc3_ch1_origKi67_AF647",
			want:  Acquired{Label: "cyc3_ch1_origKi67_AF647", Cycle: 3, Channel: 1, Name: "Ki67_AF647"},
		},
		{
			name:  "multi digit ordinals",
			label: "cyc12_ch10_origDAPI",
			want:  Acquired{Label: "cyc12_ch10_origDAPI", Cycle: 12, Channel: 10, Name: "DAPI"},
		},
		{
			name:  "empty name",
			label: "cyc1_ch1_orig",
			want:  Acquired{Label: "cyc1_ch1_orig", Cycle: 1, Channel: 1, Name: ""},
		},
		{
			name:  "embedded in prefixed label",
			label: "proc_cyc2_ch3_origCD8",
			want:  Acquired{Label: "proc_cyc2_ch3_origCD8", Cycle: 2, Channel: 3, Name: "CD8"},
		},
		{name: "bare name", label: "DAPI", wantErr: true},
		{name: "missing orig", label: "cyc1_ch2_CD3", wantErr: true},
		{name: "empty", label: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLabel(tt.label)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsMalformedLabel(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLabelsAbortsOnFirstMalformed(t *testing.T) {
	_, err := ParseLabels([]string{"cyc1_ch1_origDAPI", "cells", "cyc1_ch2_origCD3"})
	require.Error(t, err)

	var lerr *errors.LabelError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "cells", lerr.Label)
}

func TestChannelID(t *testing.T) {
	a, err := ParseLabel("cyc4_ch2_origCD45")
	require.NoError(t, err)
	assert.Equal(t, "cycle4_ch2", a.ChannelID())
}

func TestAssignIDs(t *testing.T) {
	assert.Equal(t, []string{"Channel:0:0", "Channel:0:1", "Channel:0:2"}, AssignIDs(3))
	assert.Empty(t, AssignIDs(0))
	assert.Equal(t, "Channel:0:7", AssignedID(7))
}

func TestNumbering(t *testing.T) {
	n, err := NewNumbering(4)
	require.NoError(t, err)

	cycle, channel := n.Coordinates(0)
	assert.Equal(t, 1, cycle)
	assert.Equal(t, 1, channel)

	cycle, channel = n.Coordinates(5)
	assert.Equal(t, 2, cycle)
	assert.Equal(t, 2, channel)

	assert.Equal(t, 5, n.Position(2, 2))
	assert.Equal(t, 0, n.Position(1, 1))

	assert.Equal(t, "cyc2_ch2_origCD3", n.Label(5, "CD3"))

	_, err = NewNumbering(0)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestNumberingRoundTrip(t *testing.T) {
	n := DefaultNumbering
	for position := 0; position < 40; position++ {
		cycle, channel := n.Coordinates(position)
		assert.Equal(t, position, n.Position(cycle, channel))
	}
}

func TestIsSegmentationChannel(t *testing.T) {
	for _, name := range SegmentationChannelNames {
		assert.True(t, IsSegmentationChannel(name), name)
	}
	assert.False(t, IsSegmentationChannel("CD3"))
	assert.False(t, IsSegmentationChannel("Cells"))
}

func TestStaticSource(t *testing.T) {
	src := Static("cyc1_ch1_origDAPI", "cyc1_ch2_origCD3")
	labels, err := src.Labels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"cyc1_ch1_origDAPI", "cyc1_ch2_origCD3"}, labels)
}

func TestFromFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.yaml")
	content := "- cyc1_ch1_origDAPI\n- cyc1_ch2_origCD3-FITC\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	labels, err := FromFile(path).Labels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"cyc1_ch1_origDAPI", "cyc1_ch2_origCD3-FITC"}, labels)
}

func TestFromFilePlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	content := "cyc1_ch1_origDAPI\n\ncyc1_ch2_origCD3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	labels, err := FromFile(path).Labels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"cyc1_ch1_origDAPI", "cyc1_ch2_origCD3"}, labels)
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "none.txt")).Labels(context.Background())
	require.Error(t, err)
	var ioerr *errors.IOError
	assert.ErrorAs(t, err, &ioerr)
}

func TestFromFileCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FromFile("labels.txt").Labels(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
