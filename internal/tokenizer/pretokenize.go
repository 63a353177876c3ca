package tokenizer

import "github.com/dlclark/regexp2"

// qwen2Pattern is the Qwen2/GPT-2-family pre-tokenization regex: English
// contractions, letter runs, digit runs, punctuation runs, and whitespace
// runs, matched in alternation order. The `\s+(?!\S)` alternative needs
// negative lookahead, which Go's RE2-based regexp cannot express; this
// package uses regexp2's backtracking engine instead, matching the
// original pattern literally rather than rewriting it.
const qwen2Pattern = `(?i:'s|'t|'re|'ve|'m|'ll|'d)|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+(?!\S)|\s+`

var qwen2Regex = regexp2.MustCompile(qwen2Pattern, regexp2.Unicode)

// preTokenize splits s into the chunks the BPE merge loop runs over
// independently, per the Qwen2 regex.
func preTokenize(s string) []string {
	var out []string
	m, err := qwen2Regex.FindStringMatch(s)
	for err == nil && m != nil {
		out = append(out, m.String())
		m, err = qwen2Regex.FindNextMatch(m)
	}
	return out
}
