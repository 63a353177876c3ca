// Package generate implements the autoregressive generation loop: prompt
// ingestion, forced-token replay, sampling, stop-token detection, and the
// chat-mode session state that carries a conversation across turns.
package generate

import (
	"github.com/google/uuid"

	"github.com/ariannamethod/yent/internal/model"
	"github.com/ariannamethod/yent/internal/sampler"
)

// Options configures one generation run.
type Options struct {
	MaxTokens int
	Sampler   *sampler.Sampler

	// RepetitionPenalty is applied before sampling to the logit of every
	// token this Session has sampled so far, across all of its Run calls:
	// a positive logit is divided by the factor, a non-positive one is
	// multiplied by it. Values of 1 or less (including the zero value)
	// disable it; values greater than 1 discourage repeats. This is
	// not part of the reference sampler design, offered as an opt-in
	// knob the generation loop applies before temperature scaling.
	RepetitionPenalty float32

	// OnToken is invoked once per emitted (non-forced, non-prompt) token
	// id, in order. May be nil.
	OnToken func(id int)
}

// Session carries generation state across chat turns: the transformer
// activation state and KV cache, the running position, and every token
// sampled so far. A Session is single-owner and must not be used from
// more than one goroutine at a time.
type Session struct {
	ID string

	Model *model.Model
	State *model.State // nil until the first Run call allocates it

	position  int
	history   []int
	seedToken int
}

// NewSession creates a session whose state is allocated lazily, on the
// first Run call, seeded with latestToken per §3 (normally the id of
// <|im_start|>).
func NewSession(m *model.Model, latestToken int) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Model:     m,
		seedToken: latestToken,
	}
}

// Run ingests promptTokens (forced, unsampled) and then samples new
// tokens, stopping early if a stop id is produced. opts.MaxTokens caps
// the number of forward steps this call runs, forced prompt steps
// included (a negative value, or one past the context end, is capped at
// the remaining context). Returns the generated (non-prompt) token ids,
// including the stop token if one terminated generation.
//
// promptTokens is the *new* segment to feed this turn, not the full
// conversation: on a fresh session (position 0) its first token seeds
// State.LatestToken and is consumed by the first forward pass rather
// than forced a second time, matching the reference discipline of
// forwarding prompt[0] at position 0 and forcing prompt[1:] afterward.
// On a session already carrying KV-cache history (position > 0),
// State.LatestToken already holds the token left over from the previous
// Run call, so every element of promptTokens is forced in order without
// disturbing the cache entries already written for earlier turns.
func (s *Session) Run(promptTokens []int, stop map[int]bool, opts Options) []int {
	if s.State == nil {
		s.State = model.NewState(s.Model.Config, s.seedToken)
	}

	limit := opts.MaxTokens
	if remaining := s.Model.Config.ContextLength - s.position; remaining < limit || limit < 0 {
		limit = remaining
	}

	var generated []int
	promptIdx := 0
	if s.position == 0 && len(promptTokens) > 0 {
		s.State.LatestToken = promptTokens[0]
		promptIdx = 1
	}

	for step := 0; step < limit; step++ {
		p := s.position
		if p >= s.Model.Config.ContextLength {
			break
		}

		model.Forward(s.Model, s.State, s.State.LatestToken, p)
		s.position++

		var next int
		if promptIdx < len(promptTokens) {
			next = promptTokens[promptIdx]
			promptIdx++
		} else {
			applyRepetitionPenalty(s.State.Logits, s.history, opts.RepetitionPenalty)
			next = opts.Sampler.Sample(s.State.Logits, s.Model.Config.VocabularySize)
			generated = append(generated, next)
			s.history = append(s.history, next)
			if opts.OnToken != nil {
				opts.OnToken(next)
			}
		}

		s.State.LatestToken = next
		if promptIdx >= len(promptTokens) && stop[next] {
			break
		}
	}

	return generated
}

// applyRepetitionPenalty divides the logit of every id in history by
// penalty. A penalty of 0 or 1 is a no-op.
func applyRepetitionPenalty(logits []float32, history []int, penalty float32) {
	if penalty <= 1 {
		return
	}
	for _, id := range history {
		if id < 0 || id >= len(logits) {
			continue
		}
		if logits[id] > 0 {
			logits[id] /= penalty
		} else {
			logits[id] *= penalty
		}
	}
}
