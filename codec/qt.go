package codec

// quantTabSize is the total length of the zig-zag quantization lookup table:
// one contiguous region of length (1<<shift)+1 for each shift in 2..=9.
const quantTabSize = 5 + 9 + 17 + 33 + 65 + 129 + 257 + 513

// QuantTab is the static residual-quantization lookup table, built once at
// startup and shared by every scale factor search. Offsets is indexed by
// residual-bit-width (1..8); Table holds the concatenated zig-zag regions.
type QuantTab struct {
	Offsets [9]int
	Table   [quantTabSize]uint8
}

// NewQuantTab builds the quantization table described in spec §4.2.
func NewQuantTab() *QuantTab {
	qt := &QuantTab{}

	offset := 0
	for shift := 2; shift <= 9; shift++ {
		qt.Offsets[shift-1] = offset

		items := (1 << shift) + 1
		fillZigZag(qt.Table[offset:offset+items], items)

		offset += items
	}

	return qt
}

// fillZigZag fills slice (of length items) with a pattern that interleaves
// positive and negative quantized magnitudes so that small deviations from
// zero map to the lowest indices.
func fillZigZag(slice []uint8, items int) {
	midpoint := items / 2

	x := int32(items/2 - 1)
	slice[0] = uint8(x)
	for i := 1; i < midpoint; i += 2 {
		slice[i] = uint8(x)
		slice[i+1] = uint8(x)
		x -= 2
	}

	x = 0
	for i := midpoint; i < items-1; i += 2 {
		slice[i] = uint8(x)
		slice[i+1] = uint8(x)
		x += 2
	}
	slice[items-1] = uint8(x - 2)

	// Special case when residual_size == 2 (table length 9).
	if items == 9 {
		slice[2] = 1
		slice[6] = 0
	}
}
