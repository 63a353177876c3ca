package sampler

// categorical draws a uniform u in [0,1) and returns the smallest index
// whose cumulative probability exceeds u. probs[:n] must already be a
// normalized distribution. On rounding shortfall (cumulative sum never
// exceeds u due to float error), returns the last index.
func (s *Sampler) categorical(probs []float32, n int) int {
	u := s.rng.Float32()
	var cdf float32
	for i := 0; i < n; i++ {
		cdf += probs[i]
		if cdf > u {
			return i
		}
	}
	return n - 1
}
