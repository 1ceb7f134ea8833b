package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeaDivRoundsTowardNearest(t *testing.T) {
	const reciprocal = 1 << 16 // identity scale factor

	assert.Equal(t, int32(10), seaDiv(10, reciprocal))
	assert.Equal(t, int32(-10), seaDiv(-10, reciprocal))
	assert.Equal(t, int32(0), seaDiv(0, reciprocal))
}

func TestClamp32(t *testing.T) {
	assert.Equal(t, int32(5), clamp32(5, -10, 10))
	assert.Equal(t, int32(-10), clamp32(-99, -10, 10))
	assert.Equal(t, int32(10), clamp32(99, -10, 10))
}

func TestDeinterleave(t *testing.T) {
	samples := []int16{1, 10, 2, 20, 3, 30}
	assert.Equal(t, []int16{1, 2, 3}, deinterleave(samples, 2, 0))
	assert.Equal(t, []int16{10, 20, 30}, deinterleave(samples, 2, 1))
}

func TestEvalChannelDoesNotMutateLiveState(t *testing.T) {
	base := NewEncoderBase(1, 4)
	before := base.LMS[0]
	beforeScaleFactor := base.prevScaleFactor[0]

	samples := []int16{100, 200, -150, 50, 0, 75}
	_, _, _, residuals := base.EvalChannel(0, samples, NewResidualSize(4))

	require.Len(t, residuals, len(samples))
	assert.Equal(t, before, base.LMS[0], "EvalChannel must not advance the live predictor")
	assert.Equal(t, beforeScaleFactor, base.prevScaleFactor[0], "EvalChannel must not advance the live scale factor")
}

func TestCommitChannelAdvancesLiveState(t *testing.T) {
	base := NewEncoderBase(1, 4)
	samples := []int16{100, 200, -150, 50, 0, 75}

	rank, scaleFactor, lms, _ := base.EvalChannel(0, samples, NewResidualSize(4))
	assert.NotZero(t, rank)

	base.CommitChannel(0, scaleFactor, lms)

	assert.Equal(t, lms, base.LMS[0])
	assert.Equal(t, scaleFactor, base.prevScaleFactor[0])
}

func TestSnapshotRestoreStateRoundTrip(t *testing.T) {
	base := NewEncoderBase(2, 4)
	samples := []int16{100, 200, -150, 50}

	prevScaleFactor, lmsSnapshot := base.SnapshotState()

	_, scaleFactor, lms, _ := base.EvalChannel(0, samples, NewResidualSize(4))
	base.CommitChannel(0, scaleFactor, lms)
	require.NotEqual(t, lmsSnapshot[0], base.LMS[0])

	base.RestoreState(prevScaleFactor, lmsSnapshot)

	assert.Equal(t, lmsSnapshot, base.LMS)
	assert.Equal(t, prevScaleFactor, base.prevScaleFactor)
}

func TestGetResidualsForChunkCommitsEveryChannel(t *testing.T) {
	base := NewEncoderBase(2, 4)
	samples := []int16{10, -10, 20, -20, 30, -30} // 3 frames, 2 channels, interleaved

	scaleFactors := make([]uint8, 2)
	residuals := make([]uint8, 6)
	ranks := make([]uint64, 2)

	before0 := base.LMS[0]
	before1 := base.LMS[1]

	base.GetResidualsForChunk(samples, []ResidualSize{NewResidualSize(4), NewResidualSize(4)}, scaleFactors, residuals, ranks)

	assert.NotEqual(t, before0, base.LMS[0])
	assert.NotEqual(t, before1, base.LMS[1])
}
