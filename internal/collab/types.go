// Package collab defines the external collaborator capabilities the engine
// depends on: locating a snippet from a natural-language hint and rewriting
// a snippet from an instruction. Both are fallible, possibly slow, black-box
// calls. The engine never retries them itself: retrying is a reviewer action
// that goes through the clarification loop.
package collab

import "context"

// Message is a single chat message sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatClient is the transport a provider client implements.
type ChatClient interface {
	Chat(ctx context.Context, apiKey, model string, messages []Message) (string, error)
}

// Locator resolves a hint to a candidate snippet taken verbatim from the
// document. Returns ErrNotFound when no snippet can be identified.
type Locator interface {
	Locate(ctx context.Context, document, hint string) (string, error)
}

// Rewriter produces the proposed replacement for a snippet.
type Rewriter interface {
	Rewrite(ctx context.Context, snippet, instruction string) (string, error)
}
