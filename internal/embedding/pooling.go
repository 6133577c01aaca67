package embedding

import "math"

// meanPool averages per-token vectors (row-major, dims wide) over positions where mask is 1.
func meanPool(tokens []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var n float32
	for pos, m := range mask {
		if m == 0 || (pos+1)*dims > len(tokens) {
			continue
		}
		row := tokens[pos*dims : (pos+1)*dims]
		for i, v := range row {
			out[i] += v
		}
		n++
	}
	if n > 0 {
		for i := range out {
			out[i] /= n
		}
	}
	return out
}

// normalizeInPlace scales x to unit L2 norm. A zero vector is left unchanged.
func normalizeInPlace(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(1 / math.Sqrt(sum))
	for i := range x {
		x[i] *= norm
	}
}
