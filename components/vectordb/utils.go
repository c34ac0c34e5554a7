package vectordb

import "math"

// Float32s converts a []float64 vector to []float32.
// Providers such as Cohere answer with float64 while the index stores float32.
func Float32s(v []float64) []float32 {
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = float32(val)
	}
	return result
}

func Float64s(v []float32) []float64 {
	result := make([]float64, len(v))
	for i, val := range v {
		result[i] = float64(val)
	}
	return result
}

// Cosine returns dot(a,b) / (|a|*|b|). It is 0 when either vector has no magnitude.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	return cosine(a, magnitude(a), b, magnitude(b)), nil
}

func cosine(a []float32, am float64, b []float32, bm float64) float64 {
	if am == 0 || bm == 0 {
		return 0
	}
	return dot(a, b) / (am * bm)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// finite returns the offset of the first NaN or infinite component, -1 when there is none.
func finite(v []float32) int {
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return i
		}
	}
	return -1
}

func magnitude(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
