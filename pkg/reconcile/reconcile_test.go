package reconcile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubmapconsortium/channelmap/pkg/antibodies"
	"github.com/hubmapconsortium/channelmap/pkg/channels"
	"github.com/hubmapconsortium/channelmap/pkg/errors"
)

func loadTable(t *testing.T, rows ...string) *antibodies.Table {
	t.Helper()
	in := "channel_id\tantibody_name\tuniprot_accession_number\trr_id\n" +
		strings.Join(rows, "\n") + "\n"
	table, err := antibodies.Parse(strings.NewReader(in), "antibodies.tsv")
	require.NoError(t, err)
	return table
}

func TestReconcileMatchesTarget(t *testing.T) {
	table := loadTable(t,
		"cycle1_ch1\tDAPI\t\t",
		"cycle1_ch2\tAnti-CD3 antibody\tP04234\tAB_1234",
	)
	ix, dups, err := BuildIndex(table, StrategyChannelID)
	require.NoError(t, err)
	assert.Empty(t, dups)
	assert.Equal(t, 2, ix.Len())

	acquired, err := channels.ParseLabels([]string{"cyc1_ch2_origCD3-FITC"})
	require.NoError(t, err)

	resolutions := Reconcile(acquired, ix)
	require.Len(t, resolutions, 1)

	res := resolutions[0]
	assert.True(t, res.Matched())
	assert.Equal(t, "Channel:0:0", res.AssignedID)
	assert.Equal(t, "CD3", res.Name)
	assert.Equal(t, "CD3-FITC", res.Channel.Name)
	assert.Equal(t, "P04234", res.Record.UniprotID)
	assert.Equal(t, "AB_1234", res.Record.RRID)
}

func TestReconcileUnresolvedKeepsAcquisitionName(t *testing.T) {
	table := loadTable(t, "cycle1_ch1\tDAPI\t\t")
	ix, _, err := BuildIndex(table, StrategyChannelID)
	require.NoError(t, err)

	acquired, err := channels.ParseLabels([]string{"cyc9_ch9_origBlank"})
	require.NoError(t, err)

	resolutions := Reconcile(acquired, ix)
	require.Len(t, resolutions, 1)
	assert.False(t, resolutions[0].Matched())
	assert.Equal(t, "Blank", resolutions[0].Name)

	unresolved := Unresolved(resolutions)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "cyc9_ch9_origBlank", unresolved[0].Channel.Label)
}

func TestReconcileNilIndex(t *testing.T) {
	acquired, err := channels.ParseLabels([]string{"cyc1_ch1_origDAPI", "cyc1_ch2_origCD3"})
	require.NoError(t, err)

	resolutions := Reconcile(acquired, nil)
	require.Len(t, resolutions, 2)
	for i, res := range resolutions {
		assert.False(t, res.Matched())
		assert.Equal(t, channels.AssignedID(i), res.AssignedID)
	}
}

func TestReconcileCaseInsensitive(t *testing.T) {
	table := loadTable(t, "Cycle1_CH2\tAnti-CD3 antibody\tP04234\tAB_1234")
	ix, _, err := BuildIndex(table, StrategyChannelID)
	require.NoError(t, err)

	acquired, err := channels.ParseLabels([]string{"cyc1_ch2_origCD3-FITC"})
	require.NoError(t, err)

	resolutions := Reconcile(acquired, ix)
	assert.True(t, resolutions[0].Matched())
	assert.Equal(t, "CD3", resolutions[0].Name)
}

func TestBuildIndexDuplicatesLastWins(t *testing.T) {
	table := loadTable(t,
		"cycle1_ch1\tAnti-CD3 antibody\tP04234\tAB_1234",
		"cycle1_ch2\tDAPI\t\t",
		"CYCLE1_CH1\tAnti-CD4 antibody\tP01730\tAB_5678",
	)
	ix, dups, err := BuildIndex(table, StrategyChannelID)
	require.NoError(t, err)

	require.Len(t, dups, 1)
	assert.Equal(t, "cycle1_ch1", dups[0].Key)
	assert.Equal(t, []int{1, 3}, dups[0].Rows)
	assert.True(t, errors.IsDuplicateChannelID(dups[0].Err()))

	acquired, err := channels.ParseLabels([]string{"cyc1_ch1_origX"})
	require.NoError(t, err)

	resolutions := Reconcile(acquired, ix)
	require.True(t, resolutions[0].Matched())
	assert.Equal(t, "CD4", resolutions[0].Name)
}

func TestBuildIndexMalformedUnderCycleChannel(t *testing.T) {
	table := loadTable(t, "slot_7\tDAPI\t\t")
	_, _, err := BuildIndex(table, StrategyCycleChannel)
	require.Error(t, err)
	assert.True(t, errors.IsMalformedChannelID(err))
}

func TestStrategiesAgreeOnCanonicalTables(t *testing.T) {
	table := loadTable(t,
		"cycle1_ch1\tDAPI\t\t",
		"cycle1_ch2\tAnti-CD3 antibody\tP04234\tAB_1234",
		"cycle2_ch1\tAnti-CD4 antibody\tP01730\tAB_5678",
	)
	labels := []string{"cyc1_ch1_origDAPI", "cyc1_ch2_origCD3-FITC", "cyc2_ch1_origCD4-PE", "cyc9_ch9_origBlank"}
	acquired, err := channels.ParseLabels(labels)
	require.NoError(t, err)

	byID, _, err := BuildIndex(table, StrategyChannelID)
	require.NoError(t, err)
	byCoord, _, err := BuildIndex(table, StrategyCycleChannel)
	require.NoError(t, err)

	assert.Equal(t, Reconcile(acquired, byID), Reconcile(acquired, byCoord))
}

func TestCycleChannelStrategyToleratesZeroPadding(t *testing.T) {
	table := loadTable(t, "cycle01_ch02\tAnti-CD3 antibody\tP04234\tAB_1234")
	acquired, err := channels.ParseLabels([]string{"cyc1_ch2_origCD3-FITC"})
	require.NoError(t, err)

	byID, _, err := BuildIndex(table, StrategyChannelID)
	require.NoError(t, err)
	assert.False(t, Reconcile(acquired, byID)[0].Matched())

	byCoord, _, err := BuildIndex(table, StrategyCycleChannel)
	require.NoError(t, err)
	assert.True(t, Reconcile(acquired, byCoord)[0].Matched())
}

func TestReconcileIsDeterministic(t *testing.T) {
	table := loadTable(t,
		"cycle1_ch1\tDAPI\t\t",
		"cycle1_ch2\tAnti-CD3 antibody\tP04234\tAB_1234",
	)
	ix, _, err := BuildIndex(table, StrategyChannelID)
	require.NoError(t, err)

	acquired, err := channels.ParseLabels([]string{"cyc1_ch1_origDAPI", "cyc1_ch2_origCD3"})
	require.NoError(t, err)

	first := Reconcile(acquired, ix)
	second := Reconcile(acquired, ix)
	assert.Equal(t, first, second)
}

func TestReconcileLabelsSegmentationPassthrough(t *testing.T) {
	table := loadTable(t, "cycle1_ch1\tDAPI\t\t")
	ix, _, err := BuildIndex(table, StrategyChannelID)
	require.NoError(t, err)

	resolutions, err := ReconcileLabels([]string{"cyc1_ch1_origDAPI", "cells", "nuclei"}, ix)
	require.NoError(t, err)
	require.Len(t, resolutions, 3)

	assert.True(t, resolutions[0].Matched())
	assert.True(t, resolutions[1].Segmentation)
	assert.Equal(t, "cells", resolutions[1].Name)
	assert.Equal(t, "Channel:0:1", resolutions[1].AssignedID)
	assert.False(t, resolutions[1].Matched())
	assert.Equal(t, "Channel:0:2", resolutions[2].AssignedID)

	// Masks are not counted as unresolved.
	assert.Empty(t, Unresolved(resolutions))
}

func TestReconcileLabelsMalformedAborts(t *testing.T) {
	_, err := ReconcileLabels([]string{"cyc1_ch1_origDAPI", "garbage"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsMalformedLabel(err))
}

func TestCorrectNames(t *testing.T) {
	table := loadTable(t,
		"cycle1_ch1\tAnti-CD3e antibody\tP04234\tAB_1234",
		"cycle1_ch2\tAnti-Ki67 antibody\tP46013\tAB_9999",
	)
	got := CorrectNames([]string{"cd3", "KI67", "Blank"}, table)
	assert.Equal(t, []string{"CD3e", "Ki67", "Blank"}, got)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyChannelID, s)

	s, err = ParseStrategy("cycle-channel")
	require.NoError(t, err)
	assert.Equal(t, StrategyCycleChannel, s)

	_, err = ParseStrategy("fuzzy")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
