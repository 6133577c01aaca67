package vector

import "math"

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// SquaredL2 returns the squared euclidean distance between two vectors.
func SquaredL2(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of x. A zero vector is returned unchanged (copied).
func Normalize(x []float32) []float32 {
	out := make([]float32, len(x))
	copy(out, x)
	norm := L2Norm(out)
	if norm == 0 {
		return out
	}
	inv := 1 / norm
	for i := range out {
		out[i] = float32(float64(out[i]) * inv)
	}
	return out
}

func score(m Metric, query, stored []float32) float64 {
	if m == MetricL2 {
		return SquaredL2(query, stored)
	}
	return InnerProduct(query, stored)
}
