package sea

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultEncoderSettingsValidates(t *testing.T) {
	s := DefaultEncoderSettings(2, 48000)
	assert.NoError(t, s.Validate())
}

func TestValidateRejectsOutOfRangeScaleFactorBits(t *testing.T) {
	s := DefaultEncoderSettings(1, 48000)
	s.ScaleFactorBits = 0
	assert.Error(t, s.Validate())

	s.ScaleFactorBits = 7
	assert.Error(t, s.Validate())
}

func TestValidateRejectsOutOfRangeResidualBits(t *testing.T) {
	s := DefaultEncoderSettings(1, 48000)
	s.ResidualBits = 0.5
	assert.Error(t, s.Validate())

	s.ResidualBits = 8.5
	assert.Error(t, s.Validate())
}

func TestValidateRejectsHighResidualBitsOnlyInVBR(t *testing.T) {
	s := DefaultEncoderSettings(1, 48000)
	s.ResidualBits = 7.5

	assert.NoError(t, s.Validate(), "7.5 residual_bits is valid in CBR mode")

	s.VBR = true
	assert.Error(t, s.Validate(), "7.5 residual_bits must be rejected in VBR mode")
}

func TestValidateRejectsNonPositiveFields(t *testing.T) {
	base := DefaultEncoderSettings(1, 48000)

	cases := []func(*EncoderSettings){
		func(s *EncoderSettings) { s.ScaleFactorFrames = 0 },
		func(s *EncoderSettings) { s.FramesPerChunk = 0 },
		func(s *EncoderSettings) { s.Channels = 0 },
		func(s *EncoderSettings) { s.SampleRate = 0 },
	}

	for _, mutate := range cases {
		s := base
		mutate(&s)
		assert.Error(t, s.Validate())
	}
}
