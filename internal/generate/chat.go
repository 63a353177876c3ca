package generate

import "github.com/ariannamethod/yent/internal/tokenizer"

// BuildPrompt frames messages as ChatML turns followed by an assistant
// header to prime the reply, per the ChatML framer component.
func BuildPrompt(tok *tokenizer.Tokenizer, messages []tokenizer.Message) []int {
	var ids []int
	for _, m := range messages {
		ids = append(ids, tok.EncodeTurn(m)...)
	}
	ids = append(ids, tok.EncodeHeader(tokenizer.RoleAssistant)...)
	return ids
}
