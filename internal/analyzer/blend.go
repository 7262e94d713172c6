package analyzer

import (
	"math"
)

// Fixed per-analyzer blend weights between the heuristic estimate and the
// bucketed estimate. The transaction-row standalone path skips blending.
const (
	WeightChat       = 0.6
	WeightMicrofraud = 0.6
	WeightImage      = 0.55
)

// Blend combines a heuristic trust estimate with a bucketed sample:
// floor(w*h + (1-w)*s), clamped to [0,100].
func Blend(heuristic, sample int, weight float64) int {
	t := math.Floor(weight*float64(heuristic) + (1-weight)*float64(sample))
	return clamp(int(t))
}
