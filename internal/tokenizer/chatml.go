package tokenizer

import "strings"

// Role identifies the speaker of a ChatML turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one ChatML turn.
type Message struct {
	Role    Role
	Content string
}

// EncodeTurn frames a message as <|im_start|> role "\n" content <|im_end|>
// and encodes it to ids. The role name and content are encoded as
// ordinary text; the framing tokens are looked up as specials.
func (t *Tokenizer) EncodeTurn(m Message) []int {
	return t.encodeFrame(m.Role, m.Content, true)
}

// EncodeHeader frames only <|im_start|> role "\n", omitting content and
// the trailing end token, to prime the assistant's turn.
func (t *Tokenizer) EncodeHeader(role Role) []int {
	return t.encodeFrame(role, "", false)
}

func (t *Tokenizer) encodeFrame(role Role, content string, closeTurn bool) []int {
	imStart := t.FindSpecialToken("<|im_start|>")
	imEnd := t.FindSpecialToken("<|im_end|>")

	ids := make([]int, 0, 8)
	if imStart >= 0 {
		ids = append(ids, imStart)
	}
	ids = append(ids, t.Encode(string(role), false)...)
	ids = append(ids, t.Encode("\n", false)...)
	if content != "" {
		ids = append(ids, t.Encode(strings.TrimSpace(content), false)...)
	}
	if closeTurn && imEnd >= 0 {
		ids = append(ids, imEnd)
	}
	return ids
}

// StopIDs returns the ids that terminate generation in chat/instruct
// mode: <|im_end|> and <|endoftext|>.
func (t *Tokenizer) StopIDs() map[int]bool {
	stop := make(map[int]bool, 2)
	if id := t.FindSpecialToken("<|im_end|>"); id >= 0 {
		stop[id] = true
	}
	if id := t.FindSpecialToken("<|endoftext|>"); id >= 0 {
		stop[id] = true
	}
	return stop
}
