package agent

import (
	"context"
	"encoding/json"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ChatProvider speaks the stateless chat-completions protocol. The full
// message history is resent on every call.
type ChatProvider struct {
	client openai.Client
}

// NewChatProvider creates a chat-completions provider.
func NewChatProvider(opts ProviderOptions) *ChatProvider {
	clientOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &ChatProvider{client: openai.NewClient(clientOpts...)}
}

// Name returns the provider name.
func (p *ChatProvider) Name() string {
	return "chat"
}

// Send makes a chat-completions API call.
func (p *ChatProvider) Send(ctx context.Context, request Request) (*Reply, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}

	for _, msg := range request.Messages {
		switch msg.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(msg.Content))
		case "user":
			messages = append(messages, openai.UserMessage(msg.Content))
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				toolCalls := []openai.ChatCompletionMessageToolCall{}
				for _, tc := range msg.ToolCalls {
					argsJSON, err := json.Marshal(tc.Args)
					if err != nil {
						return nil, fmt.Errorf("failed to marshal tool arguments: %w", err)
					}
					toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCall{
						ID:   tc.ID,
						Type: "function",
						Function: openai.ChatCompletionMessageToolCallFunction{
							Name:      tc.Name,
							Arguments: string(argsJSON),
						},
					})
				}

				assistantMsg := openai.ChatCompletionMessage{
					Role:      "assistant",
					Content:   msg.Content,
					ToolCalls: toolCalls,
				}
				messages = append(messages, assistantMsg.ToParam())
			} else {
				messages = append(messages, openai.AssistantMessage(msg.Content))
			}
		case "tool":
			messages = append(messages, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(request.Model),
		Messages: messages,
	}

	if request.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(request.MaxTokens))
	}
	if request.Temperature > 0 {
		params.Temperature = openai.Float(request.Temperature)
	}

	if len(request.Tools) > 0 {
		tools := []openai.ChatCompletionToolParam{}
		for _, spec := range request.Tools {
			tools = append(tools, openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        spec.Name,
					Description: openai.String(spec.Description),
					Parameters:  openai.FunctionParameters(spec.Schema),
				},
			})
		}
		params.Tools = tools
	}

	response, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(response.Choices) == 0 {
		return nil, &ProtocolError{Provider: p.Name(), Detail: "no response choices returned"}
	}

	choice := response.Choices[0]
	usage := TokenUsage{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
	}

	if len(choice.Message.ToolCalls) == 0 {
		return &Reply{Kind: ReplyText, Text: choice.Message.Content, Usage: usage}, nil
	}

	toolCalls := []ToolCall{}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, &ProtocolError{
				Provider: p.Name(),
				Detail:   fmt.Sprintf("undecodable arguments for tool call %q", tc.Function.Name),
				Err:      err,
			}
		}

		id := tc.ID
		if id == "" {
			id, err = gonanoid.New()
			if err != nil {
				return nil, fmt.Errorf("failed to synthesize tool call id: %w", err)
			}
		}

		toolCalls = append(toolCalls, ToolCall{
			ID:   id,
			Name: tc.Function.Name,
			Args: args,
		})
	}

	return &Reply{Kind: ReplyToolCalls, Text: choice.Message.Content, ToolCalls: toolCalls, Usage: usage}, nil
}
