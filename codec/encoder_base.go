package codec

// seaDiv computes a rounded signed division of v by a Q16 reciprocal,
// correcting the round-toward-zero bias that a naive rounded shift would
// otherwise introduce as a systematic DC offset.
func seaDiv(v int32, reciprocal int32) int32 {
	n := (int64(v)*int64(reciprocal) + (1 << 15)) >> 16

	sign := func(x int64) int64 {
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		default:
			return 0
		}
	}

	n += sign(int64(v)) - sign(n)
	return int32(n)
}

func clamp32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// EncoderBase runs the per-slice rate-distortion search shared by the CBR
// and VBR encoders: for each channel, try every scale factor and keep the
// one that minimizes the accumulated reconstruction error plus predictor
// weight penalty.
type EncoderBase struct {
	channels        int
	scaleFactorBits int

	currentResiduals []uint8
	prevScaleFactor  []int32
	bestResidualBits []uint8

	dequantTab *DequantTab
	quantTab   *QuantTab

	LMS []LMS
}

// NewEncoderBase constructs the shared search state for channels channels at
// scaleFactorBits scale-factor resolution.
func NewEncoderBase(channels, scaleFactorBits int) *EncoderBase {
	return &EncoderBase{
		channels:        channels,
		scaleFactorBits: scaleFactorBits,
		prevScaleFactor: make([]int32, channels),
		dequantTab:      NewDequantTab(scaleFactorBits),
		quantTab:        NewQuantTab(),
		LMS:             NewLMSVec(channels),
	}
}

// calculateResiduals runs the search for a single candidate scale factor
// over one channel's slice of samples, writing the resulting quantized
// residuals into currentResiduals and returning the accumulated rank. It
// bails out early once the running rank exceeds bestRank (branch and
// bound), which is the dominant cost saving in the inner loop.
func (e *EncoderBase) calculateResiduals(
	dqt []int32,
	samples []int16,
	scaleFactor int32,
	lms *LMS,
	bestRank uint64,
	residualSize ResidualSize,
	reciprocals []int32,
	currentResiduals []uint8,
) uint64 {
	var currentRank uint64

	clampLimit := residualSize.BinaryCombinations()
	quantTabOffset := clampLimit + int32(e.quantTab.Offsets[residualSize])

	for index := 0; index < len(samples); index++ {
		sample := int32(samples[index])
		predicted := lms.Predict()
		residual := sample - predicted
		scaled := seaDiv(residual, reciprocals[scaleFactor])
		clamped := clamp32(scaled, -clampLimit, clampLimit)
		quantized := e.quantTab.Table[quantTabOffset+clamped]

		dequantized := dqt[quantized]
		reconstructed := int32(ClampI16(predicted + dequantized))

		errVal := int64(sample) - int64(reconstructed)
		errSq := uint64(errVal * errVal)

		currentRank += errSq + lms.WeightsPenalty()
		if currentRank > bestRank {
			return currentRank
		}

		lms.Update(reconstructed, dequantized)
		currentResiduals[index] = quantized
	}

	return currentRank
}

// residualsWithBestScaleFactor searches every candidate scale factor
// (rotated from prevScaleFactor for locality) and returns the best rank, the
// LMS state after encoding with it, and the scale factor itself.
func (e *EncoderBase) residualsWithBestScaleFactor(
	dqt [][]int32,
	reciprocals []int32,
	samples []int16,
	prevScaleFactor int32,
	refLMS *LMS,
	residualSize ResidualSize,
	bestResidualBits []uint8,
	currentResiduals []uint8,
) (bestRank uint64, bestLMS LMS, bestScaleFactor int32) {
	bestRank = ^uint64(0)

	current := *refLMS
	scaleFactorEnd := int32(1) << uint(e.scaleFactorBits)

	for sfi := int32(0); sfi < scaleFactorEnd; sfi++ {
		scaleFactor := (sfi + prevScaleFactor) % scaleFactorEnd

		current = *refLMS

		rank := e.calculateResiduals(
			dqt[scaleFactor],
			samples,
			scaleFactor,
			&current,
			bestRank,
			residualSize,
			reciprocals,
			currentResiduals,
		)

		if rank < bestRank {
			bestRank = rank
			copy(bestResidualBits, currentResiduals[:len(bestResidualBits)])
			bestLMS = current
			bestScaleFactor = scaleFactor
		}
	}

	return bestRank, bestLMS, bestScaleFactor
}

// EvalChannel runs the scale-factor search for one channel's already
// deinterleaved slice of samples at a single candidate residualSize,
// without committing any state: the channel's live LMS and previous scale
// factor are left untouched, so a caller can evaluate several candidate
// widths and commit only the one it chooses (see CommitChannel).
func (e *EncoderBase) EvalChannel(ch int, channelSamples []int16, residualSize ResidualSize) (rank uint64, scaleFactor int32, lms LMS, residuals []uint8) {
	dqt := e.dequantTab.GetDQT(int(residualSize))
	reciprocals := e.dequantTab.GetScaleFactorReciprocals(int(residualSize))

	framesInSlice := len(channelSamples)
	bestResidualBits := make([]uint8, framesInSlice)
	currentResiduals := make([]uint8, framesInSlice)

	rank, lms, scaleFactor = e.residualsWithBestScaleFactor(
		dqt,
		reciprocals,
		channelSamples,
		e.prevScaleFactor[ch],
		&e.LMS[ch],
		residualSize,
		bestResidualBits,
		currentResiduals,
	)

	return rank, scaleFactor, lms, bestResidualBits
}

// CommitChannel advances channel ch's live predictor and previous
// scale-factor state to the result of a prior EvalChannel call.
func (e *EncoderBase) CommitChannel(ch int, scaleFactor int32, lms LMS) {
	e.prevScaleFactor[ch] = scaleFactor
	e.LMS[ch] = lms
}

// SnapshotState copies the live previous-scale-factor and LMS state for
// every channel, for a caller (VBREncoder's analysis pass) that needs to
// run a throwaway probe across a whole chunk and then roll back.
func (e *EncoderBase) SnapshotState() ([]int32, []LMS) {
	prevScaleFactor := append([]int32(nil), e.prevScaleFactor...)
	lms := append([]LMS(nil), e.LMS...)
	return prevScaleFactor, lms
}

// RestoreState overwrites the live state with a prior SnapshotState result.
func (e *EncoderBase) RestoreState(prevScaleFactor []int32, lms []LMS) {
	copy(e.prevScaleFactor, prevScaleFactor)
	copy(e.LMS, lms)
}

// GetResidualsForChunk runs the search for one slice across all channels,
// writing the chosen scale factors and interleaved residuals into
// scaleFactors/residuals and the per-channel best rank into ranks, and
// commits every channel's predictor state to the result.
//
// samples holds one slice, interleaved across channels (channel varies
// fastest); scaleFactors and residuals are the caller's output slices for
// this slice only, also per-channel; residualSize gives the width to search
// at for each channel (CBR uses one width for the whole chunk, VBR assigns a
// width per slice per channel by calling EvalChannel/CommitChannel directly
// instead of this method).
func (e *EncoderBase) GetResidualsForChunk(
	samples []int16,
	residualSize []ResidualSize,
	scaleFactors []uint8,
	residuals []uint8,
	ranks []uint64,
) {
	for ch := 0; ch < e.channels; ch++ {
		channelSamples := deinterleave(samples, e.channels, ch)

		rank, scaleFactor, lms, channelResiduals := e.EvalChannel(ch, channelSamples, residualSize[ch])
		e.CommitChannel(ch, scaleFactor, lms)

		scaleFactors[ch] = uint8(scaleFactor)
		ranks[ch] = rank

		for i := 0; i < len(channelResiduals); i++ {
			residuals[i*e.channels+ch] = channelResiduals[i]
		}
	}
}

// deinterleave extracts every channels-th sample starting at channel from an
// interleaved buffer.
func deinterleave(samples []int16, channels, channel int) []int16 {
	n := len(samples) / channels
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = samples[i*channels+channel]
	}
	return out
}
