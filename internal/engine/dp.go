package engine

import "math"

// laplaceSample draws one sample from a Laplace(0, b) distribution
// with b = 1/max(epsilon, 1e-9), per spec §4.10: draw U ~
// Uniform[-0.5, 0.5] from the session's RNG and return
// -b * sign(U) * ln(1 - 2*|U|).
func (s *Session) laplaceSample(epsilon float64) float64 {
	b := 1.0 / math.Max(epsilon, 1e-9)
	u := s.rng.Float64() - 0.5
	sign := 1.0
	if u < 0 {
		sign = -1.0
	}
	return -b * sign * math.Log(1-2*math.Abs(u))
}
