package sampler

import "container/heap"

type candidate struct {
	idx  int
	prob float32
}

// maxHeap is a max-heap of candidates ordered by probability, used to
// pull out the highest-probability entries one at a time without fully
// sorting the vocabulary when only a short nucleus prefix is needed.
type maxHeap []candidate

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return h[i].prob > h[j].prob }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)         { *h = append(*h, x.(candidate)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// topP implements nucleus sampling: discard entries below the floor
// (1-p)/(n-1), pull candidates off a max-heap in descending probability
// order until the running sum exceeds TopP, then draw u*sum and return
// the first index whose cumulative probability exceeds it.
func (s *Sampler) topP(probs []float32, n int) int {
	floor := float32(0)
	if n > 1 {
		floor = (1 - s.TopP) / float32(n-1)
	}

	h := make(maxHeap, 0, n)
	for i := 0; i < n; i++ {
		if probs[i] >= floor {
			h = append(h, candidate{idx: i, prob: probs[i]})
		}
	}
	heap.Init(&h)

	var nucleus []candidate
	var sum float32
	for h.Len() > 0 && sum <= s.TopP {
		c := heap.Pop(&h).(candidate)
		nucleus = append(nucleus, c)
		sum += c.prob
	}
	if len(nucleus) == 0 {
		return Argmax(probs, n)
	}

	target := s.rng.Float32() * sum
	var cdf float32
	for _, c := range nucleus {
		cdf += c.prob
		if cdf > target {
			return c.idx
		}
	}
	return nucleus[0].idx
}
