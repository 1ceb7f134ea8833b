// Package sea implements the SEA codec: an LMS-predicted, quantized-residual
// lossy codec for 16-bit PCM, plus the channel-based message pipeline that
// drives it in a real-time setting.
package sea

// FrameSize is the fixed number of samples carried by one Samples message,
// pinned by the real-time pipeline this codec feeds.
const FrameSize = 480

// Message is one value travelling on an encoder or decoder's input or
// output channel. Exactly one of the Data, Samples or Silence forms is
// populated, selected by Kind.
type Message struct {
	Kind MessageKind

	// Data carries an opaque byte buffer: the file header (always first) or
	// one full chunk.
	Data []byte

	// Samples carries one PCM frame of FrameSize samples.
	Samples [FrameSize]int16

	// Silence carries no payload; it is a sentinel bypassing the codec.
}

// MessageKind discriminates the populated field of a Message.
type MessageKind uint8

const (
	KindData MessageKind = iota
	KindSamples
	KindSilence
)

// DataMessage returns a Message carrying data as an opaque Data payload.
func DataMessage(data []byte) Message {
	return Message{Kind: KindData, Data: data}
}

// SamplesMessage returns a Message carrying one PCM frame.
func SamplesMessage(samples [FrameSize]int16) Message {
	return Message{Kind: KindSamples, Samples: samples}
}

// SilenceMessage returns a sentinel Message bypassing the codec.
func SilenceMessage() Message {
	return Message{Kind: KindSilence}
}
