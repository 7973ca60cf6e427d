package agent

import (
	"context"
	"fmt"
)

// Provider translates the neutral conversation shape into one backend wire
// protocol and back. Implementations keep no local state between calls beyond
// what the stateful variant's backend session handle requires.
type Provider interface {
	// Send transmits the conversation and returns the backend's reply as
	// either terminal text or a batch of tool calls.
	Send(ctx context.Context, request Request) (*Reply, error)

	// Name returns the provider variant name.
	Name() string
}

// ProviderOptions configures provider construction.
type ProviderOptions struct {
	APIKey  string
	BaseURL string
}

// NewProvider creates the provider variant for an API mode. Supported modes
// are "responses", "chat", and "anthropic".
func NewProvider(mode string, opts ProviderOptions) (Provider, error) {
	switch mode {
	case "responses":
		return NewResponsesProvider(opts), nil
	case "chat":
		return NewChatProvider(opts), nil
	case "anthropic":
		return NewAnthropicProvider(opts), nil
	default:
		return nil, fmt.Errorf("unsupported api mode: %s", mode)
	}
}
