package peaktable

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

func table(rows ...string) string {
	header := "PeakID\tMZ\tRT\tRTLeft\tRTRight\tHeight\tArea\tCharge\tAdduct\tDriftTime\tDriftLeft\tDriftRight\tParentPeakID\tLinks\tMspID\tMspName\tMspScore"
	return "# exported peaks\n" + header + "\n" + strings.Join(rows, "\n") + "\n"
}

func TestReadAll(t *testing.T) {
	input := table(
		"0\t300.1\t5.0\t4.9\t5.1\t1000\t50\t1\t[M+H]+\t\t\t\t-1\tAdduct:1;Isotope:2\t7\tglucose\t0.85",
		"1\t322.1\t5.0\t4.9\t5.1\t400\t20\t1\t[M+Na]+\t\t\t\t\t\t\t\t",
		"10\t300.1\t5.0\t4.9\t5.1\t600\t30\t\t\t20.5\t20.1\t21.0\t0\t\t\t\t",
	)

	peaks, err := ReadAll(strings.NewReader(input), nil)
	require.NoError(t, err)
	require.Len(t, peaks, 2)

	p := peaks[0]
	assert.Equal(t, 0, p.PeakID)
	assert.Equal(t, 300.1, p.Mass)
	assert.Equal(t, core.NewRT(5.0).RT, p.ChromXsTop.RT)
	assert.Equal(t, core.ChromXTypeRT, p.ChromXsTop.MainType)
	assert.Equal(t, "[M+H]+", p.PeakCharacter.AdductName)
	assert.Equal(t, []core.LinkedPeakFeature{
		{LinkedPeakID: 1, Character: core.LinkAdduct},
		{LinkedPeakID: 2, Character: core.LinkIsotope},
	}, p.PeakCharacter.PeakLinks)
	assert.Equal(t, 7, p.MspID)
	require.NotNil(t, p.MspMatch)
	assert.Equal(t, "glucose", p.MspMatch.Name)
	assert.Equal(t, -1, p.TextDbID)

	assert.Equal(t, -1, peaks[1].MspID)
	assert.Nil(t, peaks[1].MspMatch)

	require.Len(t, p.DriftChromFeatures, 1)
	c := p.DriftChromFeatures[0]
	assert.Equal(t, core.ChromXTypeDrift, c.ChromXsTop.MainType)
	assert.Equal(t, 20.5, c.ChromXsTop.Value())
	assert.Equal(t, 20.1, c.ChromXsLeft.Value())
	assert.Equal(t, 5.0, c.ChromXsTop.RT)
	assert.Equal(t, 1, c.PeakCharacter.Charge)
}

func TestChargeFromAdduct(t *testing.T) {
	input := "PeakID\tMZ\tRT\tRTLeft\tRTRight\tHeight\tAdduct\n0\t150.5\t1\t0.9\t1.1\t10\t[M+2H]2+\n"
	peaks, err := ReadAll(strings.NewReader(input), core.DefaultAdductDatabase())
	require.NoError(t, err)
	require.Len(t, peaks, 1)
	assert.Equal(t, 2, peaks[0].PeakCharacter.Charge)
}

func TestReadAllErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"missing column", "PeakID\tMZ\tRT\n0\t1\t1\n", "missing required columns: RTLeft, RTRight, Height"},
		{"empty cell", table("0\t\t5\t4.9\t5.1\t1"), "empty MZ"},
		{"bad number", table("0\tabc\t5\t4.9\t5.1\t1"), "invalid MZ"},
		{"unknown adduct", table("0\t300\t5\t4.9\t5.1\t1\t\t1\t[M+Xx]+"), "unknown adduct"},
		{"bad link", table("0\t300\t5\t4.9\t5.1\t1\t\t\t\t\t\t\t\tAdduct-1"), "invalid link"},
		{"unknown link", table("0\t300\t5\t4.9\t5.1\t1\t\t\t\t\t\t\t\tFriend:1"), "unknown peak link feature"},
		{"top outside edges", table("0\t300\t5\t5.1\t5.2\t1"), "peak top must lie between"},
		{"duplicate", table("0\t300\t5\t4.9\t5.1\t1", "0\t301\t5\t4.9\t5.1\t1"), "duplicate peak id 0"},
		{"orphan child", table("3\t300\t5\t4.9\t5.1\t1\t\t\t\t20\t19\t21\t9"), "unknown parent 9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAll(strings.NewReader(tt.input), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAccessor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.tsv")
	require.NoError(t, os.WriteFile(path, []byte(table("0\t300\t5\t4.9\t5.1\t1")), 0o644))

	acc := NewAccessor(core.DefaultAdductDatabase())
	peaks, err := acc.GetPeaks(context.Background(), core.AnalysisFile{ID: 0, PeakListPath: path})
	require.NoError(t, err)
	assert.Len(t, peaks, 1)

	_, err = acc.GetPeaks(context.Background(), core.AnalysisFile{PeakListPath: filepath.Join(dir, "missing.tsv")})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = acc.GetPeaks(ctx, core.AnalysisFile{PeakListPath: path})
	assert.ErrorIs(t, err, context.Canceled)
}
