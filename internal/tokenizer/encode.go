package tokenizer

import "strings"

// Encode converts s into a sequence of token ids. When allowSpecial is
// true, special-token literals appearing verbatim in s (e.g.
// "<|im_start|>") are split out and encoded directly as their ids rather
// than going through the BPE path.
func (t *Tokenizer) Encode(s string, allowSpecial bool) []int {
	var ids []int
	for _, chunk := range t.splitOnSpecialTokens(s, allowSpecial) {
		if chunk.special {
			ids = append(ids, chunk.id)
			continue
		}
		ids = append(ids, t.encodeOrdinary(chunk.text)...)
	}
	return ids
}

type chunk struct {
	text    string
	special bool
	id      int
}

// splitOnSpecialTokens scans s left to right, carving out any special
// token literal as its own chunk and leaving the rest as ordinary text.
func (t *Tokenizer) splitOnSpecialTokens(s string, allowSpecial bool) []chunk {
	if !allowSpecial || len(t.specialByName) == 0 {
		return []chunk{{text: s}}
	}

	var out []chunk
	rest := s
	for len(rest) > 0 {
		idx, name, id := -1, "", 0
		for special, sid := range t.specialByName {
			if i := strings.Index(rest, special); i != -1 && (idx == -1 || i < idx) {
				idx, name, id = i, special, sid
			}
		}
		if idx == -1 {
			out = append(out, chunk{text: rest})
			break
		}
		if idx > 0 {
			out = append(out, chunk{text: rest[:idx]})
		}
		out = append(out, chunk{special: true, id: id})
		rest = rest[idx+len(name):]
	}
	return out
}

// encodeOrdinary runs the byte-remap, pre-tokenize, and BPE-merge path
// over a chunk that contains no special tokens.
func (t *Tokenizer) encodeOrdinary(s string) []int {
	remapped := bytesToTokenString([]byte(s))
	var ids []int
	for _, piece := range preTokenize(remapped) {
		ids = append(ids, t.bpeMerge(piece)...)
	}
	return ids
}

// bpeMerge seeds one symbol per codepoint in piece, then repeatedly
// merges the adjacent pair with the lowest priority until no merge
// applies, per the greedy algorithm in the BPE tokenizer component.
func (t *Tokenizer) bpeMerge(piece string) []int {
	runes := []rune(piece)
	symbols := make([]string, len(runes))
	for i, r := range runes {
		symbols[i] = string(r)
	}

	for {
		bestIdx := -1
		bestPriority := -1
		for i := 0; i+1 < len(symbols); i++ {
			entry, ok := t.merges[pairKey{symbols[i], symbols[i+1]}]
			if !ok {
				continue
			}
			if bestIdx == -1 || entry.priority < bestPriority {
				bestIdx, bestPriority = i, entry.priority
			}
		}
		if bestIdx == -1 {
			break
		}
		merged := symbols[bestIdx] + symbols[bestIdx+1]
		symbols = append(symbols[:bestIdx], append([]string{merged}, symbols[bestIdx+2:]...)...)
	}

	ids := make([]int, 0, len(symbols))
	for _, sym := range symbols {
		if id, ok := t.toID[sym]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
