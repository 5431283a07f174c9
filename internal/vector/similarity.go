// Package vector stores one embedding per job or profile in SQLite and
// answers cosine-similarity queries by linear scan.
package vector

import (
	"fmt"
	"math"

	"github.com/hyperjump/wantokmatch/internal/errs"
)

// CosineSimilarity returns the cosine of the angle between a and b,
// accumulated in float64. A zero-magnitude vector scores 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", errs.ErrDimensionMismatch, len(a), len(b))
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (na * nb), nil
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
