package codec

import (
	"encoding/binary"

	"github.com/chanderlud/sea-codec/internal/seaerr"
)

// Magic is the 4-byte big-endian file signature "seac".
var Magic = [4]byte{'s', 'e', 'a', 'c'}

// FormatVersion is the only wire version this implementation emits or
// accepts.
const FormatVersion = 1

// FileHeaderSize is the fixed wire size, in bytes, of FileHeader.
const FileHeaderSize = 14

// FileHeader is the 14-byte legacy v1 file header: magic, version, channels,
// chunk_size (patched in after the first chunk is produced), frames_per_chunk
// and sample_rate. It carries no metadata field, matching the legacy v1 wire
// form named in §9/§12: a later format revision that needs metadata must do
// so as a new version, not by growing this struct.
type FileHeader struct {
	Version        uint8
	Channels       uint8
	ChunkSize      uint16
	FramesPerChunk uint16
	SampleRate     uint32
}

// Marshal returns the 14-byte wire form of h.
func (h FileHeader) Marshal() [FileHeaderSize]byte {
	var out [FileHeaderSize]byte
	copy(out[0:4], Magic[:])
	out[4] = h.Version
	out[5] = h.Channels
	binary.LittleEndian.PutUint16(out[6:8], h.ChunkSize)
	binary.LittleEndian.PutUint16(out[8:10], h.FramesPerChunk)
	binary.LittleEndian.PutUint32(out[10:14], h.SampleRate)
	return out
}

// ParseFileHeader validates and decodes a 14-byte file header, per the
// checks named in §6.2: magic must be "seac", version must be 1, channels,
// frames_per_chunk and sample_rate must each be non-zero, and chunk_size
// must be at least 16. ParseFirstFileHeader skips the chunk_size check.
func ParseFileHeader(data []byte) (FileHeader, error) {
	h, err := parseFileHeaderRaw(data)
	if err != nil {
		return FileHeader{}, err
	}
	if h.ChunkSize < 16 {
		return FileHeader{}, seaerr.New(seaerr.KindMalformed, "chunk_size must be >= 16")
	}
	return h, nil
}

func parseFileHeaderRaw(data []byte) (FileHeader, error) {
	if len(data) < FileHeaderSize {
		return FileHeader{}, seaerr.New(seaerr.KindMalformed, "file header shorter than 14 bytes")
	}
	if data[0] != Magic[0] || data[1] != Magic[1] || data[2] != Magic[2] || data[3] != Magic[3] {
		return FileHeader{}, seaerr.New(seaerr.KindMalformed, "bad magic")
	}

	h := FileHeader{
		Version:        data[4],
		Channels:       data[5],
		ChunkSize:      binary.LittleEndian.Uint16(data[6:8]),
		FramesPerChunk: binary.LittleEndian.Uint16(data[8:10]),
		SampleRate:     binary.LittleEndian.Uint32(data[10:14]),
	}

	if h.Version != FormatVersion {
		return FileHeader{}, seaerr.Newf(seaerr.KindMalformed, "unsupported version %d", h.Version)
	}
	if h.Channels < 1 {
		return FileHeader{}, seaerr.New(seaerr.KindMalformed, "channels must be >= 1")
	}
	if h.FramesPerChunk < 1 {
		return FileHeader{}, seaerr.New(seaerr.KindMalformed, "frames_per_chunk must be >= 1")
	}
	if h.SampleRate < 1 {
		return FileHeader{}, seaerr.New(seaerr.KindMalformed, "sample_rate must be >= 1")
	}

	return h, nil
}

// ParseFirstFileHeader decodes the file header as it appears on the wire
// before the first chunk has patched chunk_size: chunk_size 0 is accepted
// here only, since the emitting encoder has not yet computed it.
func ParseFirstFileHeader(data []byte) (FileHeader, error) {
	return parseFileHeaderRaw(data)
}
