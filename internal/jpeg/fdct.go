package jpeg

import "math"

// dctBasis[u][x] is C(u)/2 * cos((2x+1)uπ/16), with C(0) = 1/√2 and C(u) = 1
// otherwise. Applying it along rows and then along columns yields the
// two-dimensional DCT of section A.3.3 of the JPEG standard.
var dctBasis [8][8]float64

func init() {
	for u := 0; u < 8; u++ {
		c := 0.5
		if u == 0 {
			c = 0.5 / math.Sqrt2
		}
		for x := 0; x < 8; x++ {
			dctBasis[u][x] = c * math.Cos(float64((2*x+1)*u)*math.Pi/16)
		}
	}
}

// fdct performs a forward DCT on an 8x8 block of samples, including the
// level shift from [0, 255] to [-128, 127]. The output coefficients are
// scaled up by 8, so callers quantize with a divisor of 8*q.
func fdct(b *block) {
	var rows [8][8]float64
	for y := 0; y < 8; y++ {
		for u := 0; u < 8; u++ {
			var sum float64
			for x := 0; x < 8; x++ {
				sum += dctBasis[u][x] * float64(b[8*y+x]-128)
			}
			rows[y][u] = sum
		}
	}
	for u := 0; u < 8; u++ {
		for v := 0; v < 8; v++ {
			var sum float64
			for y := 0; y < 8; y++ {
				sum += dctBasis[v][y] * rows[y][u]
			}
			b[8*v+u] = int32(math.Round(8 * sum))
		}
	}
}
