// Package tokenizer implements the byte-level BPE tokenizer compatible
// with Qwen2's vocabulary: the reversible byte-to-unicode remap, the
// Qwen2 regex pre-split, greedy priority-ordered pair merging, and the
// inverse decode. It also frames ChatML turns for the chat surface.
package tokenizer

import (
	"fmt"
	"strings"
)

// Tokenizer holds a Qwen2-style GPT-2 byte-level BPE vocabulary: tokens
// indexed by id, the reverse lookup, merge priorities, and the boundary
// past which every token is treated as a special control token.
type Tokenizer struct {
	tokens []string
	scores []float32
	types  []int32
	toID   map[string]int

	merges map[pairKey]mergeEntry

	specialBoundary int // first id at or after which tokens are special
	specialByName   map[string]int
}

// GGUF token_type codes (tokenizer.ggml.token_type), per the GPT-2
// vocabulary convention: 1 is a normal token, 6 is a raw byte-fallback
// token. Both print as-is; every other code (control, unknown, unused)
// is suppressed from streaming output.
const (
	tokenTypeNormal = 1
	tokenTypeByte   = 6
)

type pairKey struct {
	a, b string
}

type mergeEntry struct {
	priority int
	mergedID int
}

// ConfigError reports an unsupported or malformed tokenizer vocabulary:
// a model that isn't "gpt2", an empty token list, or a merge entry
// without a space separator. The lengths of the tokens, scores, and
// types arrays are not compared.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "tokenizer: " + e.Reason }

// New builds a Tokenizer from the GGUF-decoded vocabulary arrays.
// model must be "gpt2" (the only tokenizer family Qwen2 GGUF files use).
// merges are raw `"<a> <b>"` strings in priority order, lowest first.
func New(model string, tokens []string, scores []float32, merges []string, types []int32) (*Tokenizer, error) {
	if model != "gpt2" {
		return nil, &ConfigError{Reason: fmt.Sprintf("unsupported tokenizer.ggml.model %q, want \"gpt2\"", model)}
	}
	if len(tokens) == 0 {
		return nil, &ConfigError{Reason: "empty tokenizer.ggml.tokens"}
	}

	t := &Tokenizer{
		tokens:        tokens,
		scores:        scores,
		types:         types,
		toID:          make(map[string]int, len(tokens)),
		merges:        make(map[pairKey]mergeEntry, len(merges)),
		specialByName: make(map[string]int),
	}
	for id, tok := range tokens {
		t.toID[tok] = id
	}

	t.specialBoundary = len(tokens)
	if id, ok := t.toID["<|endoftext|>"]; ok {
		t.specialBoundary = id
	}
	for id := t.specialBoundary; id < len(tokens); id++ {
		t.specialByName[tokens[id]] = id
	}

	for priority, m := range merges {
		a, b, ok := strings.Cut(m, " ")
		if !ok {
			return nil, &ConfigError{Reason: fmt.Sprintf("malformed merge entry %q", m)}
		}
		mergedID, ok := t.toID[a+b]
		if !ok {
			continue // merge result not present in vocabulary; skip rather than fail the whole load
		}
		t.merges[pairKey{a, b}] = mergeEntry{priority: priority, mergedID: mergedID}
	}

	return t, nil
}

// VocabSize reports the number of tokens, including special tokens.
func (t *Tokenizer) VocabSize() int { return len(t.tokens) }

// IsSpecial reports whether id is a special/control token.
func (t *Tokenizer) IsSpecial(id int) bool { return id >= t.specialBoundary }

// TokenString returns the raw vocabulary string for id.
func (t *Tokenizer) TokenString(id int) string { return t.tokens[id] }

// FindSpecialToken returns the id of a named special token, or -1 if the
// vocabulary has no such entry.
func (t *Tokenizer) FindSpecialToken(name string) int {
	if id, ok := t.specialByName[name]; ok {
		return id
	}
	return -1
}

// IsPrintable reports whether id should be decoded and emitted during
// streaming output: GGUF token_type NORMAL or BYTE. Control, unknown, and
// unused token types are suppressed. When token_type metadata is absent,
// every non-special token is treated as printable.
func (t *Tokenizer) IsPrintable(id int) bool {
	if len(t.types) == 0 {
		return !t.IsSpecial(id)
	}
	if id < 0 || id >= len(t.types) {
		return false
	}
	switch t.types[id] {
	case tokenTypeNormal, tokenTypeByte:
		return true
	default:
		return false
	}
}
