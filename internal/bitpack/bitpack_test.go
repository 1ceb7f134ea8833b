package bitpack

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPackerConstWidthRoundTrip(t *testing.T) {
	p := NewPacker()
	values := []uint32{0, 1, 2, 3, 0, 7}
	for _, v := range values {
		p.Push(v, 3)
	}
	data := p.Finish()

	u := NewConstUnpacker(data, 3)
	for _, want := range values {
		got, err := u.Next()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestPackerVarWidthRoundTrip(t *testing.T) {
	p := NewPacker()
	values := []uint32{1, 5, 255, 0}
	widths := []uint8{1, 3, 8, 2}
	for i, v := range values {
		p.Push(v, widths[i])
	}
	data := p.Finish()

	u := NewVarUnpacker(data, widths)
	for _, want := range values {
		got, err := u.Next()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := u.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPackerPushPanicsOnOversizedValue(t *testing.T) {
	p := NewPacker()
	assert.Panics(t, func() {
		p.Push(8, 3)
	})
}

func TestPackerPushPanicsOnOversizedWidth(t *testing.T) {
	p := NewPacker()
	assert.Panics(t, func() {
		p.Push(0, 9)
	})
}

func TestPackerReusableAfterFinish(t *testing.T) {
	p := NewPacker()
	p.Push(5, 3)
	first := p.Finish()

	p.Push(2, 3)
	second := p.Finish()

	assert.NotEqual(t, first, second)
}

func TestBitRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		width := uint8(rapid.IntRange(1, 8).Draw(rt, "width"))
		n := rapid.IntRange(0, 64).Draw(rt, "n")

		max := uint32(1)<<width - 1
		values := make([]uint32, n)
		for i := range values {
			values[i] = uint32(rapid.IntRange(0, int(max)).Draw(rt, "value"))
		}

		p := NewPacker()
		for _, v := range values {
			p.Push(v, width)
		}
		data := p.Finish()

		u := NewConstUnpacker(data, width)
		for _, want := range values {
			got, err := u.Next()
			if err != nil {
				rt.Fatalf("unexpected error: %v", err)
			}
			if got != want {
				rt.Fatalf("round trip mismatch: want %d got %d", want, got)
			}
		}
	})
}
