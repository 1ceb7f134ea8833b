package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizedVBRBitrateReducesForOverhead(t *testing.T) {
	got := normalizedVBRBitrate(4.0, 4, 20, 960)
	assert.Less(t, got, 4.0, "per-chunk overhead must reduce the effective target below the requested rate")
}

func TestInterpolateWeightsSumsToOne(t *testing.T) {
	weights := interpolateWeights(3.5)

	var sum float64
	for _, w := range weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	// weights[0] (base-1) blends targetResidualDistribution's entries 0 and
	// 1, which are both zero, so it is always zero too.
	assert.Zero(t, weights[0])
}

func TestBaseResidualWidthClampsToValidRange(t *testing.T) {
	assert.Equal(t, ResidualSize(2), baseResidualWidth(0.5))
	assert.Equal(t, ResidualSize(2), baseResidualWidth(1.9))
	assert.Equal(t, ResidualSize(4), baseResidualWidth(4.9))
	assert.Equal(t, ResidualSize(6), baseResidualWidth(9.0))
}

func TestChooseResidualSizesAssignsExactCounts(t *testing.T) {
	const n = 100
	ranks := make([]uint64, n)
	for i := range ranks {
		ranks[i] = uint64(i) // strictly increasing: index i has rank i
	}

	weights := [4]float64{0.10, 0.60, 0.25, 0.05}
	chosen := chooseResidualSizes(ranks, n, ResidualSize(4), weights)

	var counts [9]int
	for _, c := range chosen {
		counts[c]++
	}

	assert.Equal(t, 10, counts[3], "lowest-ranked 10%% should get base-1")
	assert.Equal(t, 5, counts[6], "highest-ranked 5%% should get base+2")
	assert.Equal(t, 25, counts[5], "next highest-ranked 25%% should get base+1")
	assert.Equal(t, 60, counts[4], "the remaining middle 60%% stays at base")
}

func TestChooseResidualSizesLeavesTrailingPartialSliceAtBase(t *testing.T) {
	const total = 10
	const sortable = 8 // last two groups belong to a trailing partial slice

	ranks := make([]uint64, total)
	for i := range ranks {
		ranks[i] = uint64(i)
	}

	weights := [4]float64{0.0, 0.0, 0.0, 0.5}
	chosen := chooseResidualSizes(ranks, sortable, ResidualSize(4), weights)

	assert.Equal(t, ResidualSize(4), chosen[sortable])
	assert.Equal(t, ResidualSize(4), chosen[sortable+1])
}
