package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dhamhihahn/ai-agent/internal/observability"
	"github.com/dhamhihahn/ai-agent/pkg/lookup"
	"github.com/dhamhihahn/ai-agent/pkg/memory"
	"github.com/dhamhihahn/ai-agent/pkg/toolexec"
)

const (
	// DefaultMaxTurns caps the tool-call loop per run.
	DefaultMaxTurns = 12

	// DefaultMaxRetries bounds transport retries per provider call.
	DefaultMaxRetries = 3

	// iterationLimitAnswer is the terminal answer when the loop cap is hit.
	iterationLimitAnswer = "Stopped after too many tool iterations."

	// recentTurns is how many persisted turns are injected as context.
	recentTurns = 8
)

// DefaultSystemPrompt steers the model toward precise, tool-grounded edits.
const DefaultSystemPrompt = `You are a pragmatic coding agent.
Use tools when needed. Prefer precise, minimal edits.
Never claim to run commands you did not run.
Understand both Dutch and English user input, including casual greetings/slang.
If a user term is unclear, use web_lookup to infer meaning before answering.`

// Config configures a Runner.
type Config struct {
	Model        string
	SystemPrompt string
	Workspace    string
	Temperature  float64
	MaxTokens    int
	MaxTurns     int
	MaxRetries   int
}

// Runner drives the conversation: it sends neutral requests to the provider,
// dispatches tool calls strictly in the order received, folds results back
// into the conversation, and loops until a terminal answer or the turn cap.
type Runner struct {
	cfg      Config
	provider Provider
	executor *toolexec.Executor
	store    *memory.Store
	lookup   *lookup.Client
	logger   zerolog.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithMemory attaches a persistent memory store. Recent turns are injected
// as context and the user/assistant turns of each run are appended.
func WithMemory(store *memory.Store) Option {
	return func(r *Runner) { r.store = store }
}

// WithLookup enables web-context prefetch for unclear terms.
func WithLookup(client *lookup.Client) Option {
	return func(r *Runner) { r.lookup = client }
}

// WithLogger sets the runner's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a runner.
func NewRunner(cfg Config, provider Provider, executor *toolexec.Executor, opts ...Option) (*Runner, error) {
	observability.EnsureRegistered()

	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("tool executor is required")
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	r := &Runner{
		cfg:      cfg,
		provider: provider,
		executor: executor,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run turns one user prompt into a final answer, executing any tool calls the
// model requests along the way.
func (r *Runner) Run(ctx context.Context, userInput string) (RunResult, error) {
	start := time.Now()
	result := RunResult{RunID: uuid.NewString()}
	logger := r.logger.With().Str("run_id", result.RunID).Logger()

	userInput = strings.TrimSpace(userInput)
	if userInput == "" {
		result.Answer = ""
		result.Termination = TerminationFinal
		return result, nil
	}

	if r.store != nil {
		r.store.Append("user", userInput)
	}

	// Short greetings skip the provider entirely.
	if answer, ok := MaybeSmalltalk(userInput); ok {
		logger.Debug().Msg("Smalltalk fast path")
		result.Answer = answer
		result.Termination = TerminationFinal
		r.finish(ctx, result, start)
		return result, nil
	}

	messages := r.buildMessages(ctx, userInput, logger)
	tools := r.buildToolSpecs()

	for turn := 0; turn < r.cfg.MaxTurns; turn++ {
		result.Turns = turn + 1
		observability.RecordAgentTurn()

		reply, err := r.sendWithRetry(ctx, Request{
			Model:       r.cfg.Model,
			Messages:    messages,
			Tools:       tools,
			Temperature: r.cfg.Temperature,
			MaxTokens:   r.cfg.MaxTokens,
		}, logger)
		if err != nil {
			result.Answer = fmt.Sprintf("Provider request failed: %v", err)
			result.Termination = TerminationError
			r.finish(ctx, result, start)
			return result, err
		}
		result.Usage.Add(reply.Usage)

		if reply.Kind == ReplyText {
			result.Answer = strings.TrimSpace(reply.Text)
			result.Termination = TerminationFinal
			r.finish(ctx, result, start)
			return result, nil
		}

		// Tool calls run strictly in arrival order; a later call may depend
		// on an earlier one's file-system effect.
		messages = append(messages, Message{
			Role:      "assistant",
			Content:   reply.Text,
			ToolCalls: reply.ToolCalls,
		})

		for _, call := range reply.ToolCalls {
			logger.Debug().Str("tool", call.Name).Str("call_id", call.ID).Msg("Dispatching tool call")

			res := r.executor.Invoke(ctx, toolexec.Call{
				ID:   call.ID,
				Name: call.Name,
				Args: call.Args,
			})
			result.ToolCalls++

			messages = append(messages, Message{
				Role:       "tool",
				Content:    res.Text(),
				ToolCallID: call.ID,
			})
		}
	}

	result.Answer = iterationLimitAnswer
	result.Termination = TerminationIterationLimit
	r.finish(ctx, result, start)
	return result, nil
}

// buildMessages assembles the initial conversation: system prompt, workspace
// location, recent memory, optional web context, then the user message.
func (r *Runner) buildMessages(ctx context.Context, userInput string, logger zerolog.Logger) []Message {
	messages := []Message{
		{Role: "system", Content: r.cfg.SystemPrompt},
	}

	if r.cfg.Workspace != "" {
		messages = append(messages, Message{
			Role:    "system",
			Content: fmt.Sprintf("Workspace: %s", r.cfg.Workspace),
		})
	}

	if r.store != nil {
		lines := []string{}
		for _, turn := range r.store.Recent(recentTurns) {
			lines = append(lines, fmt.Sprintf("%s: %s", turn.Role, turn.Content))
		}
		if len(lines) > 0 {
			messages = append(messages, Message{
				Role:    "system",
				Content: "Recent memory:\n" + strings.Join(lines, "\n"),
			})
		}
	}

	if webContext := r.prefetchWebContext(ctx, userInput, logger); webContext != "" {
		messages = append(messages, Message{Role: "system", Content: webContext})
	}

	return append(messages, Message{Role: "user", Content: userInput})
}

// prefetchWebContext looks up a possibly unfamiliar term before the first
// provider call. A failed lookup is still reported so the model knows the
// attempt happened.
func (r *Runner) prefetchWebContext(ctx context.Context, userInput string, logger zerolog.Logger) string {
	if r.lookup == nil {
		return ""
	}

	query := ExtractLookupQuery(userInput)
	if query == "" {
		return ""
	}

	res, err := r.lookup.Lookup(ctx, query)
	if err != nil {
		logger.Debug().Err(err).Str("query", query).Msg("Web context prefetch failed")
		return fmt.Sprintf("Web lookup attempted for unclear term '%s', but failed: %v", query, err)
	}
	if res.Summary == "" {
		return ""
	}

	return fmt.Sprintf(
		"Web context for possibly unclear term:\n- query: %s\n- title: %s\n- source: %s\n- url: %s\n- summary: %s",
		query, res.Title, res.Source, res.URL, res.Summary,
	)
}

func (r *Runner) buildToolSpecs() []ToolSpec {
	defs := r.executor.List()
	specs := make([]ToolSpec, 0, len(defs))
	for _, def := range defs {
		specs = append(specs, ToolSpec{
			Name:        def.Name,
			Description: def.Description,
			Schema:      def.SchemaDocument(),
		})
	}
	return specs
}

// sendWithRetry calls the provider with bounded backoff. Only transient
// failures are retried; protocol errors surface immediately.
func (r *Runner) sendWithRetry(ctx context.Context, request Request, logger zerolog.Logger) (*Reply, error) {
	var lastErr error

	for attempt := 0; attempt < r.cfg.MaxRetries; attempt++ {
		callStart := time.Now()
		reply, err := r.provider.Send(ctx, request)
		observability.RecordProviderCall(r.provider.Name(), time.Since(callStart), err == nil)
		if err == nil {
			return reply, nil
		}

		lastErr = err
		if !IsTransient(err) {
			return nil, err
		}
		if attempt == r.cfg.MaxRetries-1 {
			break
		}

		delay := time.Duration(1<<attempt) * time.Second
		logger.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("Retrying provider call")
		observability.RecordProviderRetry(r.provider.Name())

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("provider failed after %d attempts: %w", r.cfg.MaxRetries, lastErr)
}

// finish records metrics and persists the assistant turn.
func (r *Runner) finish(ctx context.Context, result RunResult, start time.Time) {
	observability.RecordAgentRun(r.provider.Name(), string(result.Termination), time.Since(start))

	if r.store != nil && result.Answer != "" {
		r.store.Append("assistant", result.Answer)
	}
}
