// Package sampler implements the three token samplers the generation
// loop chooses between by temperature and top-p: argmax, full-softmax
// categorical, and nucleus (top-p) sampling over a partially sorted
// candidate set.
package sampler

import (
	"math"
	"math/rand"
)

// Sampler draws a token id from a logits vector according to Temperature
// and TopP. Each Sampler owns its own random source and must not be
// shared across concurrent sessions, matching the single-session-owns-
// state rule the rest of the engine follows.
type Sampler struct {
	Temperature float32
	TopP        float32
	rng         *rand.Rand
}

// New builds a Sampler seeded from seed. A zero seed is a valid seed
// distinct from "unseeded"; callers that want nondeterministic sampling
// should pass a time-derived seed themselves.
func New(temperature, topP float32, seed int64) *Sampler {
	return &Sampler{
		Temperature: temperature,
		TopP:        topP,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Sample chooses an id from logits[:n], mutating logits in place (it is
// temperature-scaled and normalized into a probability distribution as a
// side effect, matching the teacher's in-place sampling buffers).
func (s *Sampler) Sample(logits []float32, n int) int {
	if s.Temperature == 0 {
		return Argmax(logits, n)
	}

	for i := 0; i < n; i++ {
		logits[i] /= s.Temperature
	}
	softmaxInPlace(logits, n)

	if s.TopP <= 0 || s.TopP >= 1 {
		return s.categorical(logits, n)
	}
	return s.topP(logits, n)
}

func softmaxInPlace(x []float32, n int) {
	maxV := x[0]
	for i := 1; i < n; i++ {
		if x[i] > maxV {
			maxV = x[i]
		}
	}
	var sum float32
	for i := 0; i < n; i++ {
		e := float32(math.Exp(float64(x[i] - maxV)))
		x[i] = e
		sum += e
	}
	inv := 1 / sum
	for i := 0; i < n; i++ {
		x[i] *= inv
	}
}
