package sea

import (
	"github.com/chanderlud/sea-codec/codec"
	"github.com/chanderlud/sea-codec/internal/seaerr"
)

// Encoder is the encode-direction stream driver described in §4.10/§5: a
// single-threaded state machine that consumes Samples/Silence messages from
// one channel and produces Data/Silence messages on another, with no
// locking or shared state with any Decoder.
type Encoder struct {
	settings EncoderSettings

	cbr *codec.CBREncoder
	vbr *codec.VBREncoder

	buffer []int16

	chunkSize     uint16 // patched in after the first chunk; 0 until then
	headerEmitted bool
}

// NewEncoder validates settings and returns a ready Encoder.
func NewEncoder(settings EncoderSettings) (*Encoder, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	e := &Encoder{settings: settings}
	if settings.VBR {
		e.vbr = codec.NewVBREncoder(settings.Channels, settings.ScaleFactorBits, settings.ScaleFactorFrames, settings.FramesPerChunk, settings.ResidualBits)
	} else {
		residualSize := codec.NewResidualSize(int(settings.ResidualBits))
		e.cbr = codec.NewCBREncoder(settings.Channels, settings.ScaleFactorBits, settings.ScaleFactorFrames, residualSize)
	}
	return e, nil
}

func (e *Encoder) lms() []codec.LMS {
	if e.vbr != nil {
		return e.vbr.LMS()
	}
	return e.cbr.LMS()
}

func (e *Encoder) framesPerChunkSamples() int {
	return e.settings.FramesPerChunk * e.settings.Channels
}

// VBRDistribution reports how many slice/channel residual-width choices
// this encoder has made at each width so far, or nil if it is a CBR
// encoder. Diagnostic surface only (see codec.VBREncoder.LastDistribution).
func (e *Encoder) VBRDistribution() map[uint8]int {
	if e.vbr == nil {
		return nil
	}
	return e.vbr.LastDistribution()
}

// snapshotLMS returns a copy of the current per-channel predictor state, to
// be embedded in the next chunk's header before that chunk advances it.
func (e *Encoder) snapshotLMS() []codec.LMS {
	live := e.lms()
	out := make([]codec.LMS, len(live))
	copy(out, live)
	return out
}

func (e *Encoder) encodeOneChunk(samples []int16) []byte {
	before := e.snapshotLMS()
	if e.vbr != nil {
		return codec.EncodeVBRChunk(e.vbr, samples, before)
	}
	return codec.EncodeCBRChunk(e.cbr, samples, before)
}

// Run drives the encoder loop: it blocks reading in until in is closed,
// writing produced messages to out. It returns nil when in closes cleanly,
// or a malformed/invalid-parameter error if a produced chunk's length
// disagrees with the chunk_size committed by the first chunk (§4.9).
//
// Cancellation follows §5: closing out causes the next send to panic in the
// caller's runtime exactly as any blocked channel send would; callers that
// want clean cancellation should close in instead and let Run return.
func (e *Encoder) Run(in <-chan Message, out chan<- Message) error {
	for msg := range in {
		switch msg.Kind {
		case KindSamples:
			if err := e.handleSamples(msg.Samples, out); err != nil {
				return err
			}
		case KindSilence:
			out <- SilenceMessage()
		case KindData:
			return seaerr.New(seaerr.KindMalformed, "encoder input channel received a Data message")
		default:
			return seaerr.Newf(seaerr.KindMalformed, "unknown message kind %d", msg.Kind)
		}
	}
	return nil
}

func (e *Encoder) handleSamples(samples [FrameSize]int16, out chan<- Message) error {
	e.buffer = append(e.buffer, samples[:]...)

	stride := e.framesPerChunkSamples()
	for len(e.buffer) >= stride {
		chunk := e.buffer[:stride]
		body := e.encodeOneChunk(chunk)
		e.buffer = append([]int16(nil), e.buffer[stride:]...)

		if !e.headerEmitted {
			header := codec.FileHeader{
				Version:        codec.FormatVersion,
				Channels:       uint8(e.settings.Channels),
				ChunkSize:      uint16(len(body)),
				FramesPerChunk: uint16(e.settings.FramesPerChunk),
				SampleRate:     uint32(e.settings.SampleRate),
			}
			wire := header.Marshal()
			out <- DataMessage(append([]byte(nil), wire[:]...))
			e.chunkSize = uint16(len(body))
			e.headerEmitted = true
		} else if uint16(len(body)) != e.chunkSize {
			return seaerr.Newf(seaerr.KindInvalidParameter, "chunk size %d disagrees with committed chunk_size %d", len(body), e.chunkSize)
		}

		out <- DataMessage(body)
	}
	return nil
}
