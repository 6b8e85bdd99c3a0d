package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultParameterIsValid(t *testing.T) {
	p := DefaultParameter()
	require.NoError(t, p.Validate())
	assert.Equal(t, core.IonModePositive, p.Mode())
	assert.True(t, p.IsForceInsertForGapFilling)
	assert.Greater(t, p.NumThreads, 0)
}

func TestLoadParameter_PartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "param.json", `{"ion_mode": "Negative", "rt_alignment_tolerance": 0.2, "peak_count_filter": 50}`)

	p, err := LoadParameter(path)
	require.NoError(t, err)

	assert.Equal(t, core.IonModeNegative, p.Mode())
	assert.Equal(t, 0.2, p.RetentionTimeAlignmentTolerance)
	assert.Equal(t, 50.0, p.PeakCountFilter)
	// Untouched fields retain defaults
	assert.Equal(t, 0.015, p.Ms1AlignmentTolerance)
	assert.Equal(t, SmoothingLinearWeightedMovingAverage, p.SmoothingMethod)
}

func TestLoadParameter_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		invalid bool
	}{
		{name: "wrong extension", file: "param.yaml", content: "{}"},
		{name: "bad json", file: "bad.json", content: "{"},
		{name: "bad ion mode", file: "mode.json", content: `{"ion_mode": "sideways"}`, invalid: true},
		{name: "bad tolerance", file: "tol.json", content: `{"ms1_alignment_tolerance": 0}`, invalid: true},
		{name: "bad smoothing", file: "smooth.json", content: `{"smoothing_method": "Magic"}`, invalid: true},
		{name: "percent out of range", file: "pct.json", content: `{"peak_count_filter": 120}`, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			_, err := LoadParameter(path)
			require.Error(t, err)
			assert.Equal(t, tt.invalid, errors.Is(err, ErrInvalidParameter))
		})
	}

	_, err := LoadParameter(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadProject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "")
	writeFile(t, dir, "a.tsv", "")
	path := writeFile(t, dir, "project.json", `{
		"name": "demo",
		"files": [
			{"id": 0, "name": "a", "class": "ctl", "type": "Sample", "spectra": "a.txt", "peaks": "a.tsv"},
			{"id": 1, "name": "qc", "class": "qc", "type": "QC", "spectra": "/abs/qc.txt", "peaks": "qc.tsv"},
			{"id": 2, "name": "blank", "type": "blank", "spectra": "b.txt", "peaks": "b.tsv"}
		]
	}`)

	p, err := LoadProject(path)
	require.NoError(t, err)
	require.Len(t, p.Files, 3)

	assert.Equal(t, filepath.Join(dir, "a.txt"), p.Files[0].SpectraPath)
	assert.Equal(t, "/abs/qc.txt", p.Files[1].SpectraPath)
	assert.Equal(t, core.FileTypeSample, p.Files[0].Type)
	assert.Equal(t, core.FileTypeQC, p.Files[1].Type)
	assert.Equal(t, core.FileTypeBlank, p.Files[2].Type)

	err = p.CheckFiles()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qc")
	assert.NotContains(t, err.Error(), "a.tsv")
}

func TestProjectValidate_DenseIDs(t *testing.T) {
	p := &Project{Files: []core.AnalysisFile{{ID: 0, Name: "a"}, {ID: 5, Name: "b"}}}
	err := p.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	empty := &Project{}
	assert.Error(t, empty.Validate())
}
