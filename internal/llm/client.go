package llm

import "context"

// Turn is one {role, content} element of the conversation history submitted
// to the provider.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Client produces one reply string from an ordered conversation history,
// isolating callers from the provider's wire format and failure modes.
type Client interface {
	GetCompletion(ctx context.Context, history []Turn) (string, error)
}
