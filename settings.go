package sea

import "github.com/chanderlud/sea-codec/internal/seaerr"

// EncoderSettings configures an Encoder. The zero value is not valid; use
// DefaultEncoderSettings and override only the fields that need to change.
type EncoderSettings struct {
	// ScaleFactorBits is the bit-width of the scale-factor index, 1..6.
	ScaleFactorBits int
	// ScaleFactorFrames is the slice length a scale factor is held constant
	// over, >= 1.
	ScaleFactorFrames int
	// ResidualBits is the residual width, in [1.0, 8.0]. Fractional values
	// are only meaningful in VBR mode, where they select the target average
	// width; CBR truncates it to the integer width floor(ResidualBits).
	ResidualBits float64
	// FramesPerChunk is the number of frames carried by each chunk.
	FramesPerChunk int
	// VBR selects the VBR encoder over CBR.
	VBR bool
	// SampleRate is recorded in the file header; it has no effect on
	// encoding itself.
	SampleRate int
	// Channels is the number of interleaved channels.
	Channels int
}

// DefaultEncoderSettings returns the codec's default configuration, per
// §6.3: scale_factor_bits=4, scale_factor_frames=20, residual_bits=3.0,
// frames_per_chunk=5120, vbr=false.
func DefaultEncoderSettings(channels, sampleRate int) EncoderSettings {
	return EncoderSettings{
		ScaleFactorBits:   4,
		ScaleFactorFrames: 20,
		ResidualBits:      3.0,
		FramesPerChunk:    5120,
		VBR:               false,
		SampleRate:        sampleRate,
		Channels:          channels,
	}
}

// Validate checks every field against the ranges named in §6.3 and §9,
// including the VBR-specific ceiling: VBR rejects residual_bits above 7.0,
// since a width-8 residual leaves no headroom for the encoder to widen
// further when the target distribution's upper offset is reached.
func (s EncoderSettings) Validate() error {
	if s.ScaleFactorBits < 1 || s.ScaleFactorBits > 6 {
		return seaerr.New(seaerr.KindInvalidParameter, "scale_factor_bits must be in 1..6")
	}
	if s.ScaleFactorFrames < 1 {
		return seaerr.New(seaerr.KindInvalidParameter, "scale_factor_frames must be >= 1")
	}
	if s.ResidualBits < 1.0 || s.ResidualBits > 8.0 {
		return seaerr.New(seaerr.KindInvalidParameter, "residual_bits must be in [1.0, 8.0]")
	}
	if s.VBR && s.ResidualBits > 7.0 {
		return seaerr.New(seaerr.KindInvalidParameter, "residual_bits must be <= 7.0 in VBR mode")
	}
	if s.FramesPerChunk < 1 {
		return seaerr.New(seaerr.KindInvalidParameter, "frames_per_chunk must be >= 1")
	}
	if s.Channels < 1 {
		return seaerr.New(seaerr.KindInvalidParameter, "channels must be >= 1")
	}
	if s.SampleRate < 1 {
		return seaerr.New(seaerr.KindInvalidParameter, "sample_rate must be >= 1")
	}
	return nil
}
