package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// ResponsesProvider speaks the stateful responses protocol. The backend
// retains prior turns server-side, so after the first call only new messages
// are transmitted, chained with the previous response identifier.
type ResponsesProvider struct {
	client openai.Client

	mu             sync.Mutex
	lastResponseID string
	sent           int
	seen           []Message
}

// NewResponsesProvider creates a responses-style provider.
func NewResponsesProvider(opts ProviderOptions) *ResponsesProvider {
	clientOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &ResponsesProvider{client: openai.NewClient(clientOpts...)}
}

// Name returns the provider name.
func (p *ResponsesProvider) Name() string {
	return "responses"
}

// Reset drops the server-side session handle, so the next Send transmits the
// full conversation again.
func (p *ResponsesProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastResponseID = ""
	p.sent = 0
	p.seen = nil
}

// Send makes a responses API call.
func (p *ResponsesProvider) Send(ctx context.Context, request Request) (*Reply, error) {
	p.mu.Lock()
	lastID := p.lastResponseID
	sent := p.sent
	seen := p.seen
	p.mu.Unlock()

	// A conversation that does not extend the one already transmitted is a
	// fresh conversation, not an increment of the old one. Comparing content,
	// not length: a new conversation may coincidentally match the old size.
	if lastID != "" && !extendsConversation(seen, request.Messages) {
		lastID = ""
		sent = 0
	}

	pending := request.Messages
	if lastID != "" {
		pending = request.Messages[sent:]
	}

	items, err := buildInputItems(pending, lastID != "")
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		items = append(items, responses.ResponseInputItemParamOfMessage("Continue.", responses.EasyInputMessageRoleUser))
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(request.Model),
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: items},
	}
	if lastID != "" {
		params.PreviousResponseID = openai.String(lastID)
	}
	if request.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(request.MaxTokens))
	}
	if request.Temperature > 0 {
		params.Temperature = openai.Float(request.Temperature)
	}

	if len(request.Tools) > 0 {
		tools := []responses.ToolUnionParam{}
		for _, spec := range request.Tools {
			tools = append(tools, responses.ToolParamOfFunction(spec.Name, spec.Schema, false))
		}
		params.Tools = tools
	}

	response, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return nil, err
	}

	snapshot := make([]Message, len(request.Messages))
	copy(snapshot, request.Messages)

	p.mu.Lock()
	p.lastResponseID = response.ID
	p.sent = len(request.Messages)
	p.seen = snapshot
	p.mu.Unlock()

	usage := TokenUsage{
		InputTokens:  int(response.Usage.InputTokens),
		OutputTokens: int(response.Usage.OutputTokens),
	}

	toolCalls := []ToolCall{}
	for _, item := range response.Output {
		if item.Type != "function_call" {
			continue
		}

		var args map[string]interface{}
		if item.Arguments != "" {
			if err := json.Unmarshal([]byte(item.Arguments), &args); err != nil {
				return nil, &ProtocolError{
					Provider: p.Name(),
					Detail:   fmt.Sprintf("undecodable arguments for tool call %q", item.Name),
					Err:      err,
				}
			}
		}
		if args == nil {
			args = map[string]interface{}{}
		}

		id := item.CallID
		if id == "" {
			id, err = gonanoid.New()
			if err != nil {
				return nil, fmt.Errorf("failed to synthesize tool call id: %w", err)
			}
		}

		toolCalls = append(toolCalls, ToolCall{
			ID:   id,
			Name: item.Name,
			Args: args,
		})
	}

	if len(toolCalls) > 0 {
		return &Reply{Kind: ReplyToolCalls, ToolCalls: toolCalls, Usage: usage}, nil
	}

	return &Reply{Kind: ReplyText, Text: response.OutputText(), Usage: usage}, nil
}

// extendsConversation reports whether messages starts with the already
// transmitted prefix.
func extendsConversation(seen, messages []Message) bool {
	if len(messages) < len(seen) {
		return false
	}
	for i := range seen {
		if !sameMessage(seen[i], messages[i]) {
			return false
		}
	}
	return true
}

func sameMessage(a, b Message) bool {
	if a.Role != b.Role || a.Content != b.Content || a.ToolCallID != b.ToolCallID {
		return false
	}
	if len(a.ToolCalls) != len(b.ToolCalls) {
		return false
	}
	for i := range a.ToolCalls {
		if a.ToolCalls[i].ID != b.ToolCalls[i].ID || a.ToolCalls[i].Name != b.ToolCalls[i].Name {
			return false
		}
	}
	return true
}

// buildInputItems converts neutral messages into responses input items. Tool
// results become function_call_output items keyed by the backend's call id.
// In incremental mode the backend already holds the function_call items it
// produced, so assistant tool-call messages are not resent.
func buildInputItems(messages []Message, incremental bool) (responses.ResponseInputParam, error) {
	items := make(responses.ResponseInputParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			items = append(items, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleSystem))
		case "user":
			items = append(items, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleUser))
		case "assistant":
			if incremental && len(msg.ToolCalls) > 0 {
				continue
			}
			if msg.Content != "" {
				items = append(items, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleAssistant))
			}
			for _, tc := range msg.ToolCalls {
				argsJSON, err := json.Marshal(tc.Args)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal tool arguments: %w", err)
				}
				items = append(items, responses.ResponseInputItemParamOfFunctionCall(string(argsJSON), tc.ID, tc.Name))
			}
		case "tool":
			items = append(items, responses.ResponseInputItemParamOfFunctionCallOutput(msg.ToolCallID, msg.Content))
		default:
			return nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}

	return items, nil
}
