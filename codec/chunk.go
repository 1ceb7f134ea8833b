package codec

import (
	"github.com/chanderlud/sea-codec/internal/seaerr"
)

// ChunkType distinguishes a chunk's residual coding scheme.
type ChunkType uint8

const (
	ChunkCBR ChunkType = 0
	ChunkVBR ChunkType = 1
)

// ChunkHeader is the fixed-layout prefix of every chunk body, preceding the
// packed scale-factor/residual-width/residual streams.
//
// Wire layout (little-endian): type(1) sfb(1) sff(1) residual_size(1)
// LMS×channels(16 each), matching §4.9/§6.2.
type ChunkHeader struct {
	Type              ChunkType
	ScaleFactorBits   uint8
	ScaleFactorFrames uint8
	ResidualSize      uint8 // CBR only; 0 placeholder for VBR
	LMS               []LMS
}

func (h *ChunkHeader) encodedLen() int {
	return 4 + len(h.LMS)*SerializedLMSSize
}

// Marshal appends the chunk header's wire bytes to dst and returns the
// result.
func (h *ChunkHeader) Marshal(dst []byte) []byte {
	dst = append(dst, byte(h.Type), h.ScaleFactorBits, h.ScaleFactorFrames, h.ResidualSize)
	for i := range h.LMS {
		snapshot := h.LMS[i].Serialize()
		dst = append(dst, snapshot[:]...)
	}
	return dst
}

// ParseChunkHeader reads a ChunkHeader for channels channels from the front
// of data, returning the header and the number of bytes consumed.
func ParseChunkHeader(data []byte, channels int) (ChunkHeader, int, error) {
	want := 4 + channels*SerializedLMSSize
	if len(data) < want {
		return ChunkHeader{}, 0, seaerr.New(seaerr.KindMalformed, "chunk shorter than header")
	}

	h := ChunkHeader{
		Type:              ChunkType(data[0]),
		ScaleFactorBits:   data[1],
		ScaleFactorFrames: data[2],
		ResidualSize:      data[3],
		LMS:               make([]LMS, channels),
	}
	if h.Type != ChunkCBR && h.Type != ChunkVBR {
		return ChunkHeader{}, 0, seaerr.Newf(seaerr.KindMalformed, "unknown chunk type %d", h.Type)
	}

	offset := 4
	for i := 0; i < channels; i++ {
		var snap [SerializedLMSSize]byte
		copy(snap[:], data[offset:offset+SerializedLMSSize])
		h.LMS[i] = LMSFromBytes(snap)
		offset += SerializedLMSSize
	}

	return h, offset, nil
}

// EncodeCBRChunk assembles one full CBR chunk body: header, packed scale
// factors, then packed residuals. lmsBeforeChunk is the predictor state the
// chunk header snapshots (its value *before* this chunk advances it), so a
// decoder starting fresh at this chunk reproduces the same samples.
func EncodeCBRChunk(enc *CBREncoder, samples []int16, lmsBeforeChunk []LMS) []byte {
	scaleFactors, residuals := enc.EncodeChunk(samples)

	header := ChunkHeader{
		Type:              ChunkCBR,
		ScaleFactorBits:   uint8(enc.base.scaleFactorBits),
		ScaleFactorFrames: uint8(enc.scaleFactorFrames),
		ResidualSize:      uint8(enc.residualSize),
		LMS:               lmsBeforeChunk,
	}

	out := make([]byte, 0, header.encodedLen()+len(scaleFactors)+len(residuals))
	out = header.Marshal(out)
	out = append(out, scaleFactors...)
	out = append(out, residuals...)
	return out
}

// EncodeVBRChunk assembles one full VBR chunk body: header (residual_size
// field left at the 0 placeholder named in §6.2), packed scale factors,
// packed per-slice residual widths, then packed residuals.
func EncodeVBRChunk(enc *VBREncoder, samples []int16, lmsBeforeChunk []LMS) []byte {
	scaleFactors, residualSizes, residuals := enc.EncodeChunk(samples)

	header := ChunkHeader{
		Type:              ChunkVBR,
		ScaleFactorBits:   uint8(enc.base.scaleFactorBits),
		ScaleFactorFrames: uint8(enc.scaleFactorFrames),
		ResidualSize:      0,
		LMS:               lmsBeforeChunk,
	}

	out := make([]byte, 0, header.encodedLen()+len(scaleFactors)+len(residualSizes)+len(residuals))
	out = header.Marshal(out)
	out = append(out, scaleFactors...)
	out = append(out, residualSizes...)
	out = append(out, residuals...)
	return out
}

// DecodeChunk parses one chunk body and reconstructs its interleaved PCM.
// dec is reset to the chunk header's embedded LMS snapshot before decode, so
// it resynchronizes independent of any prior chunk.
func DecodeChunk(dec *Decoder, data []byte, framesPerChunk int) ([]int16, error) {
	header, offset, err := ParseChunkHeader(data, dec.channels)
	if err != nil {
		return nil, err
	}
	dec.ResetLMS(header.LMS)
	dec.dequantTab.SetScaleFactorBits(int(header.ScaleFactorBits))
	dec.scaleFactorBits = int(header.ScaleFactorBits)

	scaleFactorFrames := int(header.ScaleFactorFrames)
	groups := ceilDiv(framesPerChunk, scaleFactorFrames)
	scaleFactorSymbols := groups * dec.channels

	switch header.Type {
	case ChunkCBR:
		residualSize := ResidualSize(header.ResidualSize)

		sfBytes := bitLen(scaleFactorSymbols, int(header.ScaleFactorBits))
		if offset+sfBytes > len(data) {
			return nil, seaerr.New(seaerr.KindMalformed, "chunk truncated in scale factors")
		}
		scaleFactors := data[offset : offset+sfBytes]
		offset += sfBytes

		residualSymbols := framesPerChunk * dec.channels
		resBytes := bitLen(residualSymbols, int(residualSize))
		if offset+resBytes > len(data) {
			return nil, seaerr.New(seaerr.KindMalformed, "chunk truncated in residuals")
		}
		residuals := data[offset : offset+resBytes]

		return dec.DecodeCBR(scaleFactors, residuals, framesPerChunk, scaleFactorFrames, residualSize)

	case ChunkVBR:
		sfBytes := bitLen(scaleFactorSymbols, int(header.ScaleFactorBits))
		if offset+sfBytes > len(data) {
			return nil, seaerr.New(seaerr.KindMalformed, "chunk truncated in scale factors")
		}
		scaleFactors := data[offset : offset+sfBytes]
		offset += sfBytes

		sizeBytes := bitLen(scaleFactorSymbols, 3)
		if offset+sizeBytes > len(data) {
			return nil, seaerr.New(seaerr.KindMalformed, "chunk truncated in residual widths")
		}
		residualSizes := data[offset : offset+sizeBytes]
		offset += sizeBytes

		residuals := data[offset:]

		return dec.DecodeVBR(scaleFactors, residualSizes, residuals, framesPerChunk, scaleFactorFrames)

	default:
		return nil, seaerr.Newf(seaerr.KindMalformed, "unknown chunk type %d", header.Type)
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// bitLen returns the number of whole bytes needed to hold symbols values of
// bits width each, left-aligned padding included (matching
// bitpack.Packer.Finish's Align behaviour).
func bitLen(symbols, bits int) int {
	total := symbols * bits
	return (total + 7) / 8
}
