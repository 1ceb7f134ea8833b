package codec

import (
	"math"
	"sort"

	"github.com/chanderlud/sea-codec/internal/bitpack"
)

// targetResidualDistribution assigns, to the four residual widths
// {target-1, target, target+1, target+2} around one chunk's baseline
// width, the fraction of slice/channel groups that should receive each.
// Indices 0 and 5 are the unused flanks of a 6-wide window (kept so the
// window can be interpolated against its neighbors); only indices 1-4
// carry weight. Pinned per format version so a decoder never needs to
// know the search heuristic, only the resulting per-slice widths actually
// written to the stream.
var targetResidualDistribution = [6]float64{0.00, 0.00, 0.95, 0.05, 0.00, 0.00}

// VBREncoder assigns, per chunk, an exact count of slice/channel groups to
// each width in a small window around a floating-point target, so a
// chunk's total byte length is a fixed function of its settings
// (frames_per_chunk, channels, scale_factor_frames, residual_bits) rather
// than of the sample content. Within that fixed allocation, the
// groups with the largest reconstruction error under a one-wider probe
// width receive the extra bits and the quietest receive fewer.
type VBREncoder struct {
	base     *EncoderBase
	channels int

	scaleFactorFrames int
	framesPerChunk    int

	targetBitrate float64

	distributionCounts map[uint8]int
}

// NewVBREncoder returns a VBR encoder targeting residualBits bits per
// residual on average (fractional; validated against [1.0, 7.0] by
// EncoderSettings.Validate before construction).
func NewVBREncoder(channels, scaleFactorBits, scaleFactorFrames, framesPerChunk int, residualBits float64) *VBREncoder {
	return &VBREncoder{
		base:               NewEncoderBase(channels, scaleFactorBits),
		channels:           channels,
		scaleFactorFrames:  scaleFactorFrames,
		framesPerChunk:     framesPerChunk,
		targetBitrate:      normalizedVBRBitrate(residualBits, scaleFactorBits, scaleFactorFrames, framesPerChunk),
		distributionCounts: make(map[uint8]int),
	}
}

// normalizedVBRBitrate reduces the user-requested residual_bits by the
// per-chunk overhead of the LMS snapshot, the scale-factor stream and the
// VBR width stream, and by the bias the target distribution introduces
// relative to floor(residual_bits), so the effective average output
// bitrate matches what the caller asked for (§4.7).
func normalizedVBRBitrate(residualBits float64, scaleFactorBits, scaleFactorFrames, framesPerChunk int) float64 {
	rate := residualBits
	rate -= (float64(LMSLen) * 16.0 * 2.0) / float64(framesPerChunk)
	rate -= float64(scaleFactorBits) / float64(scaleFactorFrames)
	rate -= 2.0 / float64(scaleFactorFrames)

	base := math.Floor(residualBits)
	shifted := targetResidualDistribution[1]*(base-1) +
		targetResidualDistribution[2]*base +
		targetResidualDistribution[3]*(base+1) +
		targetResidualDistribution[4]*(base+2)
	rate -= shifted - base

	return rate
}

// interpolateWeights returns, for the four widths {base-1, base, base+1,
// base+2} (base = floor(targetBitrate)), the fraction of groups that
// should land on each, sliding smoothly toward the next integer width as
// targetBitrate's fractional part grows.
func interpolateWeights(targetBitrate float64) [4]float64 {
	frac := targetBitrate - math.Floor(targetBitrate)
	var out [4]float64
	for i := 0; i < 4; i++ {
		out[i] = targetResidualDistribution[i]*frac + targetResidualDistribution[i+1]*(1-frac)
	}
	return out
}

// baseResidualWidth returns floor(targetBitrate) clamped so that
// base-1..base+2 all stay within the valid 1..8 residual width range.
func baseResidualWidth(targetBitrate float64) ResidualSize {
	base := int(math.Floor(targetBitrate))
	if base < 2 {
		base = 2
	}
	if base > 6 {
		base = 6
	}
	return ResidualSize(base)
}

// chooseResidualSizes assigns one ResidualSize per slice/channel group
// (ranks[:sortable]) by sorting ascending on probe-pass reconstruction
// error and handing the lowest-ranked groups baseWidth-1, the
// highest-ranked baseWidth+2 then baseWidth+1, in exact counts derived
// from weights; every group past sortable (a trailing partial slice) is
// left at baseWidth to preserve the chunk-size invariant.
func chooseResidualSizes(ranks []uint64, sortable int, baseWidth ResidualSize, weights [4]float64) []ResidualSize {
	out := make([]ResidualSize, len(ranks))
	for i := range out {
		out[i] = baseWidth
	}

	indices := make([]int, sortable)
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(a, b int) bool { return ranks[indices[a]] < ranks[indices[b]] })

	minusOne := int(float64(sortable) * weights[0])
	plusOne := int(float64(sortable) * weights[2])
	plusTwo := int(float64(sortable) * weights[3])

	for _, idx := range indices[:minusOne] {
		out[idx] = baseWidth - 1
	}
	for _, idx := range indices[sortable-plusTwo-plusOne : sortable-plusTwo] {
		out[idx] = baseWidth + 1
	}
	for _, idx := range indices[sortable-plusTwo:] {
		out[idx] = baseWidth + 2
	}
	return out
}

// EncodeChunk encodes one chunk's worth of interleaved samples (channel
// fastest), returning the packed scale-factor stream, the packed
// per-slice-per-channel residual-width stream (3 bits each, widths 1..8
// stored as width-1), and the packed residual stream.
//
// Two passes, matching §4.7: pass 1 probes every slice/channel at a fixed
// floor(targetBitrate)+1 width (kept within 1..8) to rank them by
// reconstruction error,
// without affecting the encoder's real predictor state; pass 2 assigns
// widths from that ranking and encodes for real, advancing the predictor.
func (e *VBREncoder) EncodeChunk(samples []int16) (scaleFactors []byte, residualSizes []byte, residuals []byte) {
	frameStride := e.scaleFactorFrames * e.channels
	numSlices := (len(samples) + frameStride - 1) / frameStride
	numGroups := numSlices * e.channels

	fullSlices := len(samples) / frameStride
	sortable := fullSlices * e.channels

	baseWidth := baseResidualWidth(e.targetBitrate)
	probeWidth := ResidualSize(int(math.Floor(e.targetBitrate)) + 1)
	if probeWidth < 1 {
		probeWidth = 1
	}
	if probeWidth > 8 {
		probeWidth = 8
	}

	prevScaleFactor, lmsSnapshot := e.base.SnapshotState()

	ranks := make([]uint64, numGroups)
	for sliceIdx := 0; sliceIdx < numSlices; sliceIdx++ {
		offset := sliceIdx * frameStride
		end := offset + frameStride
		if end > len(samples) {
			end = len(samples)
		}
		slice := samples[offset:end]

		for ch := 0; ch < e.channels; ch++ {
			channelSamples := deinterleave(slice, e.channels, ch)
			rank, scaleFactor, lms, _ := e.base.EvalChannel(ch, channelSamples, probeWidth)
			e.base.CommitChannel(ch, scaleFactor, lms)
			ranks[sliceIdx*e.channels+ch] = rank
		}
	}

	e.base.RestoreState(prevScaleFactor, lmsSnapshot)

	weights := interpolateWeights(e.targetBitrate)
	chosen := chooseResidualSizes(ranks, sortable, baseWidth, weights)

	sfPacker := bitpack.NewPacker()
	sizePacker := bitpack.NewPacker()
	resPacker := bitpack.NewPacker()

	for sliceIdx := 0; sliceIdx < numSlices; sliceIdx++ {
		offset := sliceIdx * frameStride
		end := offset + frameStride
		if end > len(samples) {
			end = len(samples)
		}
		slice := samples[offset:end]
		framesInSlice := len(slice) / e.channels

		for ch := 0; ch < e.channels; ch++ {
			channelSamples := deinterleave(slice, e.channels, ch)
			size := chosen[sliceIdx*e.channels+ch]

			rank, scaleFactor, lms, res := e.base.EvalChannel(ch, channelSamples, size)
			_ = rank
			e.base.CommitChannel(ch, scaleFactor, lms)
			e.distributionCounts[uint8(size)]++

			sfPacker.Push(uint32(scaleFactor), uint8(e.base.scaleFactorBits))
			sizePacker.Push(uint32(size-1), 3)

			for f := 0; f < framesInSlice; f++ {
				resPacker.Push(uint32(res[f]), uint8(size))
			}
		}
	}

	return sfPacker.Finish(), sizePacker.Finish(), resPacker.Finish()
}

// LastDistribution reports how many slice/channel residual-width choices
// this encoder made at each width since construction, keyed by width in
// 1..8. Diagnostic surface only: the wire format already carries the
// per-slice width explicitly, so a decoder never needs this.
func (e *VBREncoder) LastDistribution() map[uint8]int {
	out := make(map[uint8]int, len(e.distributionCounts))
	for k, v := range e.distributionCounts {
		out[k] = v
	}
	return out
}

// LMS exposes the encoder's current per-channel predictor state, used when
// serializing a chunk header snapshot for cross-chunk continuity.
func (e *VBREncoder) LMS() []LMS {
	return e.base.LMS
}
