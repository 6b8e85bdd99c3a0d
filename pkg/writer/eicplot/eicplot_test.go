package eicplot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/msalign/pkg/core"
	"github.com/ChrisMcGann/msalign/pkg/writer/snippet"
)

func testSpot(id, parent int, axis core.ChromXType) snippet.ChromatogramSpotInfo {
	points := []snippet.Point{
		{Time: 4.9, Mz: 300.1, Intensity: 10},
		{Time: 5.0, Mz: 300.1, Intensity: 100},
		{Time: 5.1, Mz: 300.1, Intensity: 20},
	}
	return snippet.ChromatogramSpotInfo{
		AlignmentID:       id,
		ParentAlignmentID: parent,
		Axis:              axis,
		Peaks: []snippet.ChromatogramPeakInfo{
			{FileID: 0, Axis: axis, Top: 5.0, Left: 4.9, Right: 5.1, Points: points},
			{FileID: 1, Axis: axis},
		},
	}
}

func TestFindSpot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spots.eic")
	w, err := snippet.Create(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteSpot(testSpot(0, -1, core.ChromXTypeRT)))
	require.NoError(t, w.WriteSpot(testSpot(0, 0, core.ChromXTypeDrift)))
	require.NoError(t, w.WriteSpot(testSpot(1, -1, core.ChromXTypeRT)))
	require.NoError(t, w.Close())

	open := func() *snippet.Reader {
		r, err := snippet.Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { r.Close() })
		return r
	}

	s, err := FindSpot(open(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, core.ChromXTypeDrift, s.Axis)

	s, err = FindSpot(open(), 1, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, s.AlignmentID)

	_, err = FindSpot(open(), 7, -1)
	assert.ErrorIs(t, err, ErrSpotNotFound)
}

func TestNew(t *testing.T) {
	p, err := New(testSpot(3, -1, core.ChromXTypeRT), []string{"s1"})
	require.NoError(t, err)
	assert.Equal(t, "Spot 3", p.Title.Text)
	assert.Equal(t, "Retention time (min)", p.X.Label.Text)

	p, err = New(testSpot(2, 3, core.ChromXTypeDrift), nil)
	require.NoError(t, err)
	assert.Equal(t, "Spot 3, drift spot 2", p.Title.Text)
	assert.Equal(t, "Drift time (ms)", p.X.Label.Text)
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spot.png")
	require.NoError(t, Save(testSpot(0, -1, core.ChromXTypeRT), []string{"s1", "s2"}, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
