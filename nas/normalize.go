package nas

import "math"

// degenerateNormalized is assigned to every finite score when the cohort's
// finite scores are all equal.
const degenerateNormalized = 0.5

// Normalize min-max scales raw scores over the cohort into [0,1].
// Only finite values take part in the range. Non-finite values (failed
// evaluations, degenerate -Inf) map to 0, the worst normalized score.
// All-equal finite values map to 0.5. The result never contains NaN.
func Normalize(raw []float64) []float64 {
	out := make([]float64, len(raw))
	minV, maxV := math.Inf(1), math.Inf(-1)
	finite := 0
	for _, v := range raw {
		if !isFinite(v) {
			continue
		}
		finite++
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	if finite == 0 {
		return out
	}
	span := maxV - minV
	for i, v := range raw {
		switch {
		case !isFinite(v):
			out[i] = 0
		case span == 0:
			out[i] = degenerateNormalized
		case math.IsInf(span, 1):
			// The range overflows float64; halve both ends first.
			out[i] = clamp01((v/2 - minV/2) / (maxV/2 - minV/2))
		default:
			out[i] = clamp01((v - minV) / span)
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
