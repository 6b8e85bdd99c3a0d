package join

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

type fakeAccessor struct {
	peaks map[int][]*core.ChromatogramPeakFeature
	err   error
}

func (f *fakeAccessor) GetPeaks(_ context.Context, file core.AnalysisFile) ([]*core.ChromatogramPeakFeature, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.peaks[file.ID], nil
}

func peak(id int, mz, rt, height float64) *core.ChromatogramPeakFeature {
	return &core.ChromatogramPeakFeature{
		PeakID:        id,
		ParentPeakID:  -1,
		Mass:          mz,
		ChromXsTop:    core.NewRT(rt),
		ChromXsLeft:   core.NewRT(rt - 0.05),
		ChromXsRight:  core.NewRT(rt + 0.05),
		PeakHeightTop: height,
		PeakCharacter: core.NewPeakCharacter(),
		MspID:         -1,
		TextDbID:      -1,
	}
}

func files(n int) []core.AnalysisFile {
	out := make([]core.AnalysisFile, n)
	for i := range out {
		out[i] = core.AnalysisFile{ID: i, Name: string(rune('a' + i))}
	}
	return out
}

var lc = LcComparer{MzTol: 0.015, RtTol: 0.1}

func TestJoin_EmptyInputs(t *testing.T) {
	j := NewPeakJoiner(lc, false)

	spots, err := j.Join(context.Background(), nil, 0, &fakeAccessor{})
	require.NoError(t, err)
	assert.Empty(t, spots)

	spots, err = j.Join(context.Background(), files(2), 9, &fakeAccessor{})
	require.NoError(t, err)
	assert.Empty(t, spots, "unknown reference file yields no spots")
}

func TestJoin_AssignsOneSlotPerFile(t *testing.T) {
	acc := &fakeAccessor{peaks: map[int][]*core.ChromatogramPeakFeature{
		0: {peak(0, 100.0, 1.0, 10), peak(1, 200.0, 2.0, 20)},
		1: {peak(0, 100.002, 1.02, 11), peak(1, 200.001, 1.98, 21)},
		2: {peak(0, 200.003, 2.03, 22)},
	}}

	spots, err := NewPeakJoiner(lc, false).Join(context.Background(), files(3), 0, acc)
	require.NoError(t, err)
	require.Len(t, spots, 2)

	for i, s := range spots {
		assert.Equal(t, i, s.MasterAlignmentID)
		require.Len(t, s.AlignedPeakProperties, 3)
		for fid, p := range s.AlignedPeakProperties {
			assert.Equal(t, fid, p.FileID)
		}
	}

	assert.Equal(t, 2, spots[0].DetectedCount())
	assert.Equal(t, core.PeakIDAbsent, spots[0].AlignedPeakProperties[2].PeakID)
	assert.Equal(t, 3, spots[1].DetectedCount())
	assert.Equal(t, 0, spots[1].AlignedPeakProperties[2].PeakID)
	assert.Equal(t, 1, spots[1].AlignedPeakProperties[2].MasterPeakID)
}

func TestJoin_HigherScoreReplacesEarlierTarget(t *testing.T) {
	acc := &fakeAccessor{peaks: map[int][]*core.ChromatogramPeakFeature{
		0: {peak(0, 300.0, 5.0, 10)},
		1: {peak(7, 300.010, 5.08, 5), peak(8, 300.001, 5.01, 6)},
	}}

	spots, err := NewPeakJoiner(lc, false).Join(context.Background(), files(2), 0, acc)
	require.NoError(t, err)
	require.Len(t, spots, 1)
	assert.Equal(t, 8, spots[0].AlignedPeakProperties[1].PeakID, "closer target wins the slot")
}

func TestJoin_WorseLaterTargetDoesNotReplace(t *testing.T) {
	acc := &fakeAccessor{peaks: map[int][]*core.ChromatogramPeakFeature{
		0: {peak(0, 300.0, 5.0, 10)},
		1: {peak(8, 300.001, 5.01, 6), peak(7, 300.010, 5.08, 5)},
	}}

	spots, err := NewPeakJoiner(lc, false).Join(context.Background(), files(2), 0, acc)
	require.NoError(t, err)
	assert.Equal(t, 8, spots[0].AlignedPeakProperties[1].PeakID)
}

func TestJoin_UnmatchedTargetsDroppedOrMerged(t *testing.T) {
	acc := &fakeAccessor{peaks: map[int][]*core.ChromatogramPeakFeature{
		0: {peak(0, 100.0, 1.0, 10)},
		1: {peak(0, 100.0, 1.0, 10), peak(1, 500.0, 9.0, 50)},
	}}

	spots, err := NewPeakJoiner(lc, false).Join(context.Background(), files(2), 0, acc)
	require.NoError(t, err)
	assert.Len(t, spots, 1, "reference-only master drops novel peaks")

	spots, err = NewPeakJoiner(lc, true).Join(context.Background(), files(2), 0, acc)
	require.NoError(t, err)
	require.Len(t, spots, 2, "merged master keeps novel peaks")
	assert.Equal(t, 1, spots[1].AlignedPeakProperties[1].PeakID)
	assert.False(t, spots[1].AlignedPeakProperties[0].IsPresent())
}

func TestJoin_Deterministic(t *testing.T) {
	acc := &fakeAccessor{peaks: map[int][]*core.ChromatogramPeakFeature{
		0: {peak(0, 100.0, 1.0, 10), peak(1, 100.01, 1.05, 10), peak(2, 150, 3, 1)},
		1: {peak(0, 100.005, 1.03, 10), peak(1, 100.006, 1.02, 12), peak(2, 150.001, 3.0, 2)},
		2: {peak(0, 100.009, 1.04, 10), peak(1, 150.002, 2.95, 3)},
	}}

	j := NewPeakJoiner(lc, true)
	first, err := j.Join(context.Background(), files(3), 0, acc)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := j.Join(context.Background(), files(3), 0, acc)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("join not deterministic (-first +again):\n%s", diff)
		}
	}
}

func TestJoin_AccessorErrorPropagates(t *testing.T) {
	boom := errors.New("disk on fire")
	_, err := NewPeakJoiner(lc, false).Join(context.Background(), files(2), 0, &fakeAccessor{err: boom})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestJoin_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPeakJoiner(lc, false).Join(ctx, files(2), 0, &fakeAccessor{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImJoiner_JoinsDriftChildren(t *testing.T) {
	child := func(id int, mz, dt float64) *core.ChromatogramPeakFeature {
		c := peak(id, mz, 1.0, 5)
		c.ChromXsTop.Drift = dt
		return c
	}
	p0 := peak(0, 400.0, 4.0, 100)
	p0.DriftChromFeatures = []*core.ChromatogramPeakFeature{child(10, 400.0, 20.0), child(11, 400.0, 25.0)}
	p1 := peak(3, 400.001, 4.01, 90)
	p1.DriftChromFeatures = []*core.ChromatogramPeakFeature{child(30, 400.001, 25.01), child(31, 400.0, 40.0)}

	acc := &fakeAccessor{peaks: map[int][]*core.ChromatogramPeakFeature{0: {p0}, 1: {p1}}}

	j := NewImJoiner(lc, ImComparer{MzTol: 0.015, DriftTol: 0.05}, false)
	spots, err := j.Join(context.Background(), files(2), 0, acc)
	require.NoError(t, err)
	require.Len(t, spots, 1)

	drift := spots[0].AlignmentDriftSpotFeatures
	require.Len(t, drift, 2)
	for _, d := range drift {
		assert.Len(t, d.AlignedPeakProperties, 2)
	}
	assert.False(t, drift[0].AlignedPeakProperties[1].IsPresent())
	assert.Equal(t, 30, drift[1].AlignedPeakProperties[1].PeakID)

	merged, err := NewImJoiner(lc, ImComparer{MzTol: 0.015, DriftTol: 0.05}, true).Join(context.Background(), files(2), 0, acc)
	require.NoError(t, err)
	assert.Len(t, merged[0].AlignmentDriftSpotFeatures, 3, "merged drift master adds the 40 ms child")
}
