// Package bitpack implements the variable-width bit packer and unpacker used
// to serialize scale factors, VBR residual widths and quantized residuals
// onto the SEA wire format. It is a thin domain-specific layer over
// github.com/icza/bitio's MSB-first bit stream.
package bitpack

import (
	"bytes"
	"io"

	"github.com/icza/bitio"
)

// Packer accumulates values of up to 8 bits each, MSB-first, flushing full
// bytes as they fill and left-aligning any trailing partial byte on Finish.
type Packer struct {
	buf *bytes.Buffer
	bw  *bitio.Writer
}

// NewPacker returns an empty Packer.
func NewPacker() *Packer {
	buf := new(bytes.Buffer)
	return &Packer{buf: buf, bw: bitio.NewWriter(buf)}
}

// Push appends the low bits-width bits of value. It panics if bits exceeds 8
// or if value does not fit in bits, mirroring the debug assertions of the
// reference packer: a caller that fails this contract has a bug, not a
// recoverable runtime condition.
func (p *Packer) Push(value uint32, bits uint8) {
	if bits > 8 {
		panic("bitpack: Push bits must be <= 8")
	}
	if value >= uint32(1)<<bits {
		panic("bitpack: value does not fit in bits")
	}
	// Writing to a bytes.Buffer-backed bitio.Writer never errors.
	_ = p.bw.WriteBits(uint64(value), bits)
}

// Finish flushes any buffered bits (left-aligned in the final byte) and
// returns the packed bytes, resetting the Packer for reuse.
func (p *Packer) Finish() []byte {
	_, _ = p.bw.Align()
	out := make([]byte, p.buf.Len())
	copy(out, p.buf.Bytes())
	p.buf.Reset()
	p.bw = bitio.NewWriter(p.buf)
	return out
}

// Unpacker reads a stream of bit-packed symbols, either at one constant
// width (Const mode), at per-symbol widths drawn from a supplied vector
// (Var mode), or at a width the caller passes to each NextWidth call
// (Dynamic mode, used for VBR residual streams).
type Unpacker struct {
	br     *bitio.Reader
	widths []uint8 // nil in constant mode
	width  uint8   // used in constant mode
	index  int
}

// NewConstUnpacker returns an Unpacker that reads every symbol at a single
// fixed bit width.
func NewConstUnpacker(data []byte, width uint8) *Unpacker {
	return &Unpacker{br: bitio.NewReader(bytes.NewReader(data)), width: width}
}

// NewVarUnpacker returns an Unpacker that reads len(widths) symbols, one per
// entry of widths.
func NewVarUnpacker(data []byte, widths []uint8) *Unpacker {
	return &Unpacker{br: bitio.NewReader(bytes.NewReader(data)), widths: widths}
}

// Next returns the next unpacked symbol. In Var mode it returns io.EOF once
// every width in the vector has been consumed.
func (u *Unpacker) Next() (uint32, error) {
	width := u.width
	if u.widths != nil {
		if u.index >= len(u.widths) {
			return 0, io.EOF
		}
		width = u.widths[u.index]
	}

	v, err := u.br.ReadBits(width)
	if err != nil {
		return 0, err
	}
	u.index++
	return uint32(v), nil
}

// NewDynamicUnpacker returns an Unpacker whose per-symbol width is decided
// by the caller at each read via NextWidth, for streams (like VBR residuals)
// whose width sequence is only known once another stream has been decoded
// alongside it.
func NewDynamicUnpacker(data []byte) *Unpacker {
	return &Unpacker{br: bitio.NewReader(bytes.NewReader(data))}
}

// NextWidth reads the next symbol at an explicitly given width, ignoring
// the Unpacker's configured mode. Valid on any Unpacker, but intended for
// one created with NewDynamicUnpacker.
func (u *Unpacker) NextWidth(width uint8) (uint32, error) {
	v, err := u.br.ReadBits(width)
	if err != nil {
		return 0, err
	}
	u.index++
	return uint32(v), nil
}
