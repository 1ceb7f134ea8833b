package sea

import (
	"github.com/chanderlud/sea-codec/codec"
	"github.com/chanderlud/sea-codec/internal/seaerr"
)

// Decoder is the decode-direction stream driver described in §4.10/§5: it
// expects a file header as its first Data message, treats every Data
// message after that as one chunk, and forwards Silence unchanged.
type Decoder struct {
	header  codec.FileHeader
	haveHdr bool

	dec *codec.Decoder
}

// NewDecoder returns a Decoder with no file header read yet; call Run to
// drive it.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Header returns the file header once it has been read, and whether it has
// been read yet.
func (d *Decoder) Header() (codec.FileHeader, bool) {
	return d.header, d.haveHdr
}

// Run drives the decoder loop until in closes, emitting one Samples message
// per decoded chunk frame-group and passing Silence through unchanged. Any
// malformed header, bad magic, unsupported version or unexpected message
// kind aborts the loop and returns a decode error, per §4.10.
func (d *Decoder) Run(in <-chan Message, out chan<- Message) error {
	for msg := range in {
		switch msg.Kind {
		case KindData:
			if err := d.handleData(msg.Data, out); err != nil {
				return err
			}
		case KindSilence:
			out <- SilenceMessage()
		case KindSamples:
			return seaerr.New(seaerr.KindMalformed, "decoder input channel received a Samples message")
		default:
			return seaerr.Newf(seaerr.KindMalformed, "unknown message kind %d", msg.Kind)
		}
	}
	return nil
}

func (d *Decoder) handleData(data []byte, out chan<- Message) error {
	if !d.haveHdr {
		header, err := codec.ParseFirstFileHeader(data)
		if err != nil {
			return err
		}
		d.header = header
		d.haveHdr = true
		d.dec = codec.NewDecoder(int(header.Channels), 0)
		return nil
	}

	if d.header.ChunkSize != 0 && int(d.header.ChunkSize) != len(data) {
		return seaerr.Newf(seaerr.KindInvalidParameter, "chunk length %d disagrees with committed chunk_size %d", len(data), d.header.ChunkSize)
	}

	samples, err := codec.DecodeChunk(d.dec, data, int(d.header.FramesPerChunk))
	if err != nil {
		return err
	}
	if len(samples) != int(d.header.FramesPerChunk)*int(d.header.Channels) {
		return seaerr.New(seaerr.KindMalformed, "decoded chunk length does not equal frames_per_chunk * channels")
	}

	stride := FrameSize
	for offset := 0; offset < len(samples); offset += stride {
		end := offset + stride
		var frame [FrameSize]int16
		if end > len(samples) {
			end = len(samples)
		}
		copy(frame[:], samples[offset:end])
		out <- SamplesMessage(frame)
	}
	return nil
}
