package ai

import "context"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn of the conversation history passed to the
// completion provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Completer produces the assistant reply for one turn. The system prompt
// carries the full instruction set for the turn; history holds every prior
// message in order, and userText is the candidate's latest input.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, history []Message, userText string) (string, error)
}
