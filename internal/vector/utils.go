package vector

import (
	"fmt"
	"math"
)

// normEpsilon floors the Euclidean norm during normalization so a degenerate
// zero vector passes through unchanged instead of dividing by zero.
const normEpsilon = 1e-12

// Normalize performs L2 normalization on v in place and returns it.
func Normalize(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}

	norm := math.Sqrt(sumSquares)
	if norm < normEpsilon {
		return v
	}

	scale := float32(1.0 / norm)
	for i := range v {
		v[i] *= scale
	}
	return v
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// The result is a value between -1 and 1, where 1 means the vectors are
// identical in direction, 0 means they are orthogonal, and -1 means they are
// opposite. Norms are computed here rather than assumed: reduced vectors are
// not unit length after projection.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same dimension: %d != %d", len(a), len(b))
	}

	var dotProduct float64
	var normA float64
	var normB float64

	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom < normEpsilon {
		return 0, fmt.Errorf("one or both vectors have zero magnitude")
	}

	return dotProduct / denom, nil
}
