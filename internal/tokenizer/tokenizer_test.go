package tokenizer

import "testing"

// newFixtureTokenizer builds a vocabulary with one token per byte value
// (no merges) plus three ChatML special tokens at the tail, enough to
// exercise round-trip encode/decode and special-token handling without
// a real GGUF vocabulary.
func newFixtureTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	tokens := make([]string, 256)
	for b := 0; b < 256; b++ {
		tokens[b] = bytesToTokenString([]byte{byte(b)})
	}
	tokens = append(tokens, "<|endoftext|>", "<|im_start|>", "<|im_end|>")

	tok, err := New("gpt2", tokens, nil, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tok
}

// TestRoundTrip checks property 2 and scenario B: decode(encode(s)) == s
// for strings containing no special-token literals.
func TestRoundTrip(t *testing.T) {
	tok := newFixtureTokenizer(t)
	cases := []string{
		"Hello, world!\n",
		"1 2 3 4",
		"",
		"multi word sentence with punctuation!? and\ttabs",
	}
	for _, s := range cases {
		ids := tok.Encode(s, false)
		got := tok.Decode(ids)
		if got != s {
			t.Errorf("round trip failed: Encode(%q) -> Decode = %q", s, got)
		}
	}
}

// TestSpecialTokenFidelity checks property 3 / scenario C setup: encoding
// a special-token literal with specials allowed yields its single id.
func TestSpecialTokenFidelity(t *testing.T) {
	tok := newFixtureTokenizer(t)
	ids := tok.Encode("<|im_start|>", true)
	if len(ids) != 1 {
		t.Fatalf("Encode(<|im_start|>) = %v, want single id", ids)
	}
	want := tok.FindSpecialToken("<|im_start|>")
	if ids[0] != want {
		t.Errorf("id = %d, want %d", ids[0], want)
	}
}

// TestSpecialTokenNotSplitWhenDisallowed checks that special-token
// literals are treated as ordinary text when allowSpecial is false.
func TestSpecialTokenNotSplitWhenDisallowed(t *testing.T) {
	tok := newFixtureTokenizer(t)
	ids := tok.Encode("<|im_start|>", false)
	if len(ids) == 1 {
		t.Errorf("expected literal text to be split into multiple byte tokens, got single id %d", ids[0])
	}
}

// TestChatMLFraming checks scenario C: a user turn begins with
// <|im_start|> and ends with <|im_end|>.
func TestChatMLFraming(t *testing.T) {
	tok := newFixtureTokenizer(t)
	ids := tok.EncodeTurn(Message{Role: RoleUser, Content: "Hi"})
	if len(ids) < 2 {
		t.Fatalf("turn too short: %v", ids)
	}
	imStart := tok.FindSpecialToken("<|im_start|>")
	imEnd := tok.FindSpecialToken("<|im_end|>")
	if ids[0] != imStart {
		t.Errorf("first id = %d, want <|im_start|> (%d)", ids[0], imStart)
	}
	if ids[len(ids)-1] != imEnd {
		t.Errorf("last id = %d, want <|im_end|> (%d)", ids[len(ids)-1], imEnd)
	}
}

// TestEncodeHeaderOmitsCloseToken checks the "header only" variant used
// to prime the assistant turn.
func TestEncodeHeaderOmitsCloseToken(t *testing.T) {
	tok := newFixtureTokenizer(t)
	ids := tok.EncodeHeader(RoleAssistant)
	imEnd := tok.FindSpecialToken("<|im_end|>")
	for _, id := range ids {
		if id == imEnd {
			t.Errorf("header unexpectedly contains <|im_end|>: %v", ids)
		}
	}
}

func TestIsSpecial(t *testing.T) {
	tok := newFixtureTokenizer(t)
	if !tok.IsSpecial(tok.FindSpecialToken("<|endoftext|>")) {
		t.Error("<|endoftext|> should be special")
	}
	if tok.IsSpecial(0) {
		t.Error("byte token 0 should not be special")
	}
}

func TestUnsupportedModelRejected(t *testing.T) {
	_, err := New("sentencepiece", []string{"a"}, nil, nil, nil)
	if err == nil {
		t.Fatal("expected ConfigError for non-gpt2 model")
	}
}
