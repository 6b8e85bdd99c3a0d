package snippet

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

func TestWriteReadPeaks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stage.bin")
	w, err := Create(path)
	require.NoError(t, err)

	peaks := []ChromatogramPeakInfo{
		{FileID: 0, Axis: core.ChromXTypeRT, Top: 5, Left: 4.9, Right: 5.1,
			Points: []Point{{4.9, 300.1, 10}, {5.0, 300.1, 100}, {5.1, 300.1, 12}}},
		{FileID: 1, Axis: core.ChromXTypeDrift, Top: 0, Left: 0, Right: 0},
	}
	for _, p := range peaks {
		require.NoError(t, w.WritePeak(p))
	}
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	var got []ChromatogramPeakInfo
	for {
		p, err := r.ReadPeak()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, p)
	}

	want := peaks
	want[1].Points = []Point{}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("peaks mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteReadSpots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eic.bin")
	w, err := Create(path)
	require.NoError(t, err)

	parent := ChromatogramSpotInfo{AlignmentID: 0, ParentAlignmentID: -1, Axis: core.ChromXTypeRT,
		Peaks: []ChromatogramPeakInfo{
			{FileID: 0, Top: 1, Left: 0.9, Right: 1.1, Points: []Point{{1, 200, 5}}},
			{FileID: 1, Top: 1.01, Left: 0.9, Right: 1.2, Points: []Point{{1.01, 200, 7}}},
		}}
	child := ChromatogramSpotInfo{AlignmentID: 0, ParentAlignmentID: 0, Axis: core.ChromXTypeDrift,
		Peaks: []ChromatogramPeakInfo{{FileID: 0, Axis: core.ChromXTypeDrift, Top: 20, Points: []Point{{20, 200, 3}}}}}
	require.NoError(t, w.WriteSpot(parent))
	require.NoError(t, w.WriteSpot(child))
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.ReadSpot()
	require.NoError(t, err)
	assert.Equal(t, parent, got)
	got, err = r.ReadSpot()
	require.NoError(t, err)
	assert.Equal(t, child, got)
	_, err = r.ReadSpot()
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	require.NoError(t, os.WriteFile(path, []byte("NOT_A_SNIPPET_FILE"), 0o644))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrBadHeader)

	short := filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, os.WriteFile(short, []byte("MSA"), 0o644))
	_, err = Open(short)
	assert.ErrorIs(t, err, ErrBadHeader)
}

func TestTruncatedRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trunc.bin")
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.WritePeak(ChromatogramPeakInfo{Points: []Point{{1, 2, 3}, {4, 5, 6}}}))
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-8))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.ReadPeak()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestImplausibleCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.bin")
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, binary.Write(w.w, binary.LittleEndian, &peakHeader{NumPoints: math.MaxUint32}))
	require.NoError(t, binary.Write(w.w, binary.LittleEndian, []Point{{1, 2, 3}}))
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	_, err = r.ReadPeak()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.NoError(t, r.Close())

	w, err = Create(path)
	require.NoError(t, err)
	require.NoError(t, binary.Write(w.w, binary.LittleEndian, &spotHeader{NumPeaks: math.MaxUint32}))
	require.NoError(t, w.WritePeak(ChromatogramPeakInfo{FileID: 0}))
	require.NoError(t, w.Close())

	r, err = Open(path)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.ReadSpot()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestNewPeakInfo(t *testing.T) {
	slot := core.NewAbsentPeak(2, "f")
	slot.ChromXsTop = core.NewDrift(21)
	slot.ChromXsLeft = core.NewDrift(20)
	slot.ChromXsRight = core.NewDrift(22)
	peaks := []core.ChromatogramPeak{{ID: 0, Times: core.NewDrift(20.5), Mass: 400, Intensity: 9}}

	info := NewPeakInfo(2, core.ChromXTypeDrift, &slot, peaks)
	assert.Equal(t, 2, info.FileID)
	assert.Equal(t, 21.0, info.Top)
	assert.Equal(t, 20.0, info.Left)
	assert.Equal(t, 22.0, info.Right)
	assert.Equal(t, []Point{{20.5, 400, 9}}, info.Points)
}
