// Package vecmath holds the numeric primitives used by embedding search.
package vecmath

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Normalize returns a copy of v scaled to unit L2 norm.
// A zero vector is returned unchanged.
func Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)

	norm := floats.Norm(out, 2)
	if norm == 0 {
		return out
	}
	floats.Scale(1/norm, out)
	return out
}

// CosineSimilarity computes dot(a,b) / (|a| * |b|).
// If either vector has zero norm the similarity is 0.
// Vectors of different length are a programming error and cause a panic.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("vecmath: length mismatch %d != %d", len(a), len(b)))
	}

	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := floats.Dot(a, b) / (normA * normB)

	// Clamp rounding noise so identical vectors never exceed 1
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// FromFloat32 widens a float32 vector as returned by most embedding APIs.
func FromFloat32(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
