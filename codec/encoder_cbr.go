package codec

import "github.com/chanderlud/sea-codec/internal/bitpack"

// CBREncoder encodes chunks at a single, fixed residual width for the
// lifetime of the stream. All slices and channels share residualSize, so the
// encoded chunk size is fully determined by frames_per_chunk and channels
// ahead of time.
type CBREncoder struct {
	base         *EncoderBase
	channels     int
	residualSize ResidualSize

	scaleFactorFrames int

	scratchScaleFactors []uint8
	scratchResiduals    []uint8
	scratchRanks        []uint64
	scratchSizes        []ResidualSize
}

// NewCBREncoder returns a CBR encoder for channels channels, scale factor
// resolution scaleFactorBits, a scale factor recomputed every
// scaleFactorFrames samples, and residual width residualSize for every
// slice.
func NewCBREncoder(channels, scaleFactorBits, scaleFactorFrames int, residualSize ResidualSize) *CBREncoder {
	sizes := make([]ResidualSize, channels)
	for i := range sizes {
		sizes[i] = residualSize
	}

	return &CBREncoder{
		base:                NewEncoderBase(channels, scaleFactorBits),
		channels:            channels,
		residualSize:        residualSize,
		scaleFactorFrames:   scaleFactorFrames,
		scratchScaleFactors: make([]uint8, channels),
		scratchResiduals:    make([]uint8, scaleFactorFrames*channels),
		scratchRanks:        make([]uint64, channels),
		scratchSizes:        sizes,
	}
}

// EncodeChunk encodes one chunk's worth of interleaved samples (channel
// fastest), returning the packed scale-factor stream and packed residual
// stream, in that wire order. samples must be a multiple of
// scaleFactorFrames*channels in length except possibly for a shorter final
// slice.
func (e *CBREncoder) EncodeChunk(samples []int16) (scaleFactors []byte, residuals []byte) {
	sfPacker := bitpack.NewPacker()
	resPacker := bitpack.NewPacker()

	frameStride := e.scaleFactorFrames * e.channels

	for offset := 0; offset < len(samples); offset += frameStride {
		end := offset + frameStride
		if end > len(samples) {
			end = len(samples)
		}
		slice := samples[offset:end]
		framesInSlice := len(slice) / e.channels

		if cap(e.scratchResiduals) < framesInSlice*e.channels {
			e.scratchResiduals = make([]uint8, framesInSlice*e.channels)
		}
		sliceResiduals := e.scratchResiduals[:framesInSlice*e.channels]

		e.base.GetResidualsForChunk(slice, e.scratchSizes, e.scratchScaleFactors, sliceResiduals, e.scratchRanks)

		for ch := 0; ch < e.channels; ch++ {
			sfPacker.Push(uint32(e.scratchScaleFactors[ch]), uint8(e.base.scaleFactorBits))
			for f := 0; f < framesInSlice; f++ {
				resPacker.Push(uint32(sliceResiduals[f*e.channels+ch]), uint8(e.residualSize))
			}
		}
	}

	return sfPacker.Finish(), resPacker.Finish()
}

// LMS exposes the encoder's current per-channel predictor state, used when
// serializing a chunk header snapshot for cross-chunk continuity.
func (e *CBREncoder) LMS() []LMS {
	return e.base.LMS
}
