package codec

import "math"

// idealPowFactor gives, per residual bit-width (1-indexed), the exponent
// used to spread scale factors across the representable sample range. Found
// experimentally against a diverse audio corpus.
var idealPowFactor = [8]float64{12.0, 11.65, 11.20, 10.58, 9.64, 8.75, 7.66, 6.63}

// DequantTab memoizes, for a fixed scale_factor_bits, the dequantization
// curves and scale-factor reciprocals for every residual bit-width 1..=8.
//
// Built once per encoder/decoder instance and never mutated afterward;
// SetScaleFactorBits only rebuilds the cache when the parameter actually
// changes.
type DequantTab struct {
	scaleFactorBits int

	reciprocals [9][]int32
	dqt         [9][][]int32
}

// NewDequantTab builds a dequantization table for the given scale_factor_bits.
func NewDequantTab(scaleFactorBits int) *DequantTab {
	d := &DequantTab{}
	d.SetScaleFactorBits(scaleFactorBits)
	return d
}

// SetScaleFactorBits rebuilds the cached tables for a new scale_factor_bits,
// a no-op if the value is unchanged.
func (d *DequantTab) SetScaleFactorBits(scaleFactorBits int) {
	if d.scaleFactorBits == scaleFactorBits {
		return
	}
	d.scaleFactorBits = scaleFactorBits

	for residualBits := 1; residualBits <= 8; residualBits++ {
		d.reciprocals[residualBits] = generateReciprocals(scaleFactorBits, residualBits)
		d.dqt[residualBits] = generateDQT(scaleFactorBits, residualBits)
	}
}

func idealPowFactorFor(scaleFactorBits, residualBits int) float64 {
	return idealPowFactor[residualBits-1] / float64(scaleFactorBits)
}

func calculateScaleFactors(residualBits, scaleFactorBits int) []int32 {
	power := idealPowFactorFor(scaleFactorBits, residualBits)
	items := 1 << scaleFactorBits

	out := make([]int32, items)
	for i := 0; i < items; i++ {
		out[i] = int32(math.Pow(float64(i+1), power))
	}
	return out
}

func generateReciprocals(scaleFactorBits, residualBits int) []int32 {
	scaleFactors := calculateScaleFactors(residualBits, scaleFactorBits)
	out := make([]int32, len(scaleFactors))
	for i, sf := range scaleFactors {
		out[i] = int32(float64(int32(1)<<16) / float64(sf))
	}
	return out
}

// GetScaleFactorReciprocals returns the reciprocal table for residualBits.
func (d *DequantTab) GetScaleFactorReciprocals(residualBits int) []int32 {
	return d.reciprocals[residualBits]
}

// gen1DDQT builds the unscaled dequantization curve shared across all scale
// factors for a given residual bit-width.
func gen1DDQT(residualBits int) []float64 {
	switch residualBits {
	case 1:
		return []float64{2.0}
	case 2:
		return []float64{1.115, 4.0}
	}

	start := 0.75
	steps := 1 << (residualBits - 1)
	end := float64((1 << residualBits) - 1)
	step := (end - start) / float64(steps-1)
	stepFloor := math.Floor(step)

	curve := make([]float64, steps)
	for i := 1; i < steps; i++ {
		curve[i] = 0.5 + float64(i)*stepFloor
	}
	curve[0] = start
	curve[steps-1] = end
	return curve
}

func generateDQT(scaleFactorBits, residualBits int) [][]int32 {
	curve := gen1DDQT(residualBits)
	scaleFactorItems := 1 << scaleFactorBits
	dqtItems := 1 << (residualBits - 1)

	scaleFactors := calculateScaleFactors(residualBits, scaleFactorBits)

	out := make([][]int32, scaleFactorItems)
	for s := 0; s < scaleFactorItems; s++ {
		row := make([]int32, 0, len(curve)*2)
		for _, item := range curve[:dqtItems] {
			val := int32(math.Round(float64(scaleFactors[s]) * item))
			row = append(row, val, -val)
		}
		out[s] = row
	}
	return out
}

// GetDQT returns the dequantization table (indexed [scaleFactor][quantized])
// for residualBits.
func (d *DequantTab) GetDQT(residualBits int) [][]int32 {
	return d.dqt[residualBits]
}
