package codec

import (
	"github.com/chanderlud/sea-codec/internal/bitpack"
	"github.com/chanderlud/sea-codec/internal/seaerr"
)

// Decoder reconstructs interleaved PCM from the packed per-channel state a
// CBREncoder or VBREncoder produced for one chunk. It keeps one LMS per
// channel and advances it exactly as the encoder's EncoderBase did, so
// reconstruction tracks the encoder's choices bit for bit given the same
// scale factors and residuals.
type Decoder struct {
	channels        int
	scaleFactorBits int

	dequantTab *DequantTab

	LMS []LMS
}

// NewDecoder returns a decoder for channels channels at scaleFactorBits
// scale-factor resolution, with every channel's predictor freshly seeded.
// Passing 0 defers table generation until the first chunk header's
// ScaleFactorBits is applied via DecodeChunk, which calls SetScaleFactorBits
// itself; DequantTab.SetScaleFactorBits is a no-op only when the new value
// equals the current one, so a genuine 1..6 value always triggers the build.
func NewDecoder(channels, scaleFactorBits int) *Decoder {
	return &Decoder{
		channels:        channels,
		scaleFactorBits: scaleFactorBits,
		dequantTab:      NewDequantTab(scaleFactorBits),
		LMS:             NewLMSVec(channels),
	}
}

// ResetLMS overwrites the decoder's predictor state, used when a chunk
// header carries a fresh snapshot for resynchronization (e.g. the first
// chunk after a seek, or the first chunk of the stream).
func (d *Decoder) ResetLMS(lms []LMS) {
	copy(d.LMS, lms)
}

// DecodeCBR reconstructs framesPerChunk frames of interleaved PCM from a
// fixed-width chunk: scaleFactors is one packed value per channel per
// scale-factor-frames group (scaleFactorBits wide), residuals is one packed
// value per channel per frame (residualSize wide).
func (d *Decoder) DecodeCBR(scaleFactors, residuals []byte, framesPerChunk, scaleFactorFrames int, residualSize ResidualSize) ([]int16, error) {
	out := make([]int16, framesPerChunk*d.channels)

	sfUnpacker := bitpack.NewConstUnpacker(scaleFactors, uint8(d.scaleFactorBits))
	resUnpacker := bitpack.NewConstUnpacker(residuals, uint8(residualSize))

	dqt := d.dequantTab.GetDQT(int(residualSize))

	for offset := 0; offset < framesPerChunk; offset += scaleFactorFrames {
		end := offset + scaleFactorFrames
		if end > framesPerChunk {
			end = framesPerChunk
		}

		for ch := 0; ch < d.channels; ch++ {
			scaleFactor, err := sfUnpacker.Next()
			if err != nil {
				return nil, seaerr.Wrap(seaerr.KindMalformed, err)
			}
			row := dqt[scaleFactor]
			lms := &d.LMS[ch]

			for f := offset; f < end; f++ {
				quantized, err := resUnpacker.Next()
				if err != nil {
					return nil, seaerr.Wrap(seaerr.KindMalformed, err)
				}

				predicted := lms.Predict()
				dequantized := row[quantized]
				reconstructed := int32(ClampI16(predicted + dequantized))

				lms.Update(reconstructed, dequantized)
				out[f*d.channels+ch] = int16(reconstructed)
			}
		}
	}

	return out, nil
}

// DecodeVBR reconstructs framesPerChunk frames of interleaved PCM from a
// variable-width chunk: residualSizes carries one 3-bit (width-1) code per
// channel per scale-factor-frames group, and residuals is packed at the
// per-group width each residualSizes entry names.
func (d *Decoder) DecodeVBR(scaleFactors, residualSizes, residuals []byte, framesPerChunk, scaleFactorFrames int) ([]int16, error) {
	out := make([]int16, framesPerChunk*d.channels)

	sfUnpacker := bitpack.NewConstUnpacker(scaleFactors, uint8(d.scaleFactorBits))
	sizeUnpacker := bitpack.NewConstUnpacker(residualSizes, 3)
	resUnpacker := bitpack.NewDynamicUnpacker(residuals)

	for offset := 0; offset < framesPerChunk; offset += scaleFactorFrames {
		end := offset + scaleFactorFrames
		if end > framesPerChunk {
			end = framesPerChunk
		}

		for ch := 0; ch < d.channels; ch++ {
			scaleFactor, err := sfUnpacker.Next()
			if err != nil {
				return nil, seaerr.Wrap(seaerr.KindMalformed, err)
			}

			sizeCode, err := sizeUnpacker.Next()
			if err != nil {
				return nil, seaerr.Wrap(seaerr.KindMalformed, err)
			}
			residualSize := ResidualSize(sizeCode + 1)

			dqt := d.dequantTab.GetDQT(int(residualSize))
			row := dqt[scaleFactor]
			lms := &d.LMS[ch]

			for f := offset; f < end; f++ {
				quantized, err := resUnpacker.NextWidth(uint8(residualSize))
				if err != nil {
					return nil, seaerr.Wrap(seaerr.KindMalformed, err)
				}

				predicted := lms.Predict()
				dequantized := row[quantized]
				reconstructed := int32(ClampI16(predicted + dequantized))

				lms.Update(reconstructed, dequantized)
				out[f*d.channels+ch] = int16(reconstructed)
			}
		}
	}

	return out, nil
}
