package sea

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineFrame(start int, amplitude float64) [FrameSize]int16 {
	var frame [FrameSize]int16
	for i := range frame {
		frame[i] = int16(amplitude * math.Sin(float64(start+i)*0.05))
	}
	return frame
}

// runEncoderDecoder drives an Encoder and a Decoder back to back over
// in-process channels, feeding numFrames Samples messages and collecting
// every Samples message the decoder emits in return.
func runEncoderDecoder(t *testing.T, settings EncoderSettings, numFrames int) []int16 {
	t.Helper()

	enc, err := NewEncoder(settings)
	require.NoError(t, err)
	dec := NewDecoder()

	toEncoder := make(chan Message, numFrames+1)
	encoded := make(chan Message, 64)
	decoded := make(chan Message, 64)

	for i := 0; i < numFrames; i++ {
		toEncoder <- SamplesMessage(sineFrame(i*FrameSize, 5000))
	}
	close(toEncoder)

	encErrCh := make(chan error, 1)
	go func() {
		encErrCh <- enc.Run(toEncoder, encoded)
		close(encoded)
	}()

	decErrCh := make(chan error, 1)
	go func() {
		decErrCh <- dec.Run(encoded, decoded)
		close(decoded)
	}()

	var out []int16
	for msg := range decoded {
		require.Equal(t, KindSamples, msg.Kind)
		out = append(out, msg.Samples[:]...)
	}

	require.NoError(t, <-encErrCh)
	require.NoError(t, <-decErrCh)

	return out
}

func TestEncoderDecoderRoundTripCBR(t *testing.T) {
	settings := DefaultEncoderSettings(1, 48000)
	settings.FramesPerChunk = 480 * 4 // multiple of FrameSize

	const numFrames = 8 // two chunks
	out := runEncoderDecoder(t, settings, numFrames)

	assert.Len(t, out, numFrames*FrameSize)
}

func TestEncoderDecoderRoundTripVBR(t *testing.T) {
	settings := DefaultEncoderSettings(2, 44100)
	settings.VBR = true
	settings.ResidualBits = 4.0
	settings.FramesPerChunk = 480 * 2

	const numFrames = 4
	out := runEncoderDecoder(t, settings, numFrames)

	assert.Len(t, out, numFrames*FrameSize)
}

func TestEncoderRejectsInvalidSettings(t *testing.T) {
	settings := DefaultEncoderSettings(1, 48000)
	settings.Channels = 0

	_, err := NewEncoder(settings)
	assert.Error(t, err)
}

func TestDecoderHeaderAvailableAfterFirstMessage(t *testing.T) {
	settings := DefaultEncoderSettings(1, 48000)
	settings.FramesPerChunk = 480

	enc, err := NewEncoder(settings)
	require.NoError(t, err)
	dec := NewDecoder()

	toEncoder := make(chan Message, 2)
	encoded := make(chan Message, 8)

	toEncoder <- SamplesMessage(sineFrame(0, 4000))
	close(toEncoder)

	require.NoError(t, enc.Run(toEncoder, encoded))
	close(encoded)

	_, ok := dec.Header()
	assert.False(t, ok, "header must not be populated before any message is handled")

	decoded := make(chan Message, 8)
	require.NoError(t, dec.Run(encoded, decoded))
	close(decoded)

	header, ok := dec.Header()
	require.True(t, ok)
	assert.Equal(t, uint8(1), header.Channels)
	assert.Equal(t, uint32(48000), header.SampleRate)
}
