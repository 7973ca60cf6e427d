package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	opts := ProviderOptions{APIKey: "test-key"}

	for _, mode := range []string{"responses", "chat", "anthropic"} {
		t.Run(mode, func(t *testing.T) {
			p, err := NewProvider(mode, opts)
			require.NoError(t, err)
			assert.Equal(t, mode, p.Name())
		})
	}

	_, err := NewProvider("grpc", opts)
	assert.Error(t, err)
}

func TestBuildInputItems(t *testing.T) {
	conversation := []Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "list the files"},
		{Role: "assistant", ToolCalls: []ToolCall{
			{ID: "call-1", Name: "list_files", Args: map[string]interface{}{}},
		}},
		{Role: "tool", ToolCallID: "call-1", Content: `{"ok":true}`},
	}

	full, err := buildInputItems(conversation, false)
	require.NoError(t, err)
	assert.Len(t, full, 4)

	// Incremental sends omit the function_call items the backend already
	// holds; only the outputs travel.
	incremental, err := buildInputItems(conversation[2:], true)
	require.NoError(t, err)
	assert.Len(t, incremental, 1)
	assert.NotNil(t, incremental[0].OfFunctionCallOutput)
}

func TestBuildInputItems_UnsupportedRole(t *testing.T) {
	_, err := buildInputItems([]Message{{Role: "developer", Content: "x"}}, false)
	assert.Error(t, err)
}
