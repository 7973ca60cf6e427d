package agent

// Message is one entry in the conversation owned by the runner. Roles are
// system, user, assistant, and tool; a tool message answers the assistant
// tool call identified by ToolCallID.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a structured request from the model to execute a local tool.
type ToolCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// ToolSpec declares a tool to the backend: a name, a description, and a JSON
// Schema for its arguments.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

// ReplyKind distinguishes a terminal text reply from a tool-call reply.
type ReplyKind string

const (
	ReplyText      ReplyKind = "text"
	ReplyToolCalls ReplyKind = "tool_calls"
)

// Reply is the neutral shape every provider variant translates into.
type Reply struct {
	Kind      ReplyKind
	Text      string
	ToolCalls []ToolCall
	Usage     TokenUsage
}

// Request carries one conversation snapshot to a provider.
type Request struct {
	Model       string
	Messages    []Message
	Tools       []ToolSpec
	Temperature float64
	MaxTokens   int
}

// TokenUsage tracks token consumption reported by the backend.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates another call's usage.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Termination explains why a run ended.
type Termination string

const (
	TerminationFinal          Termination = "final"
	TerminationIterationLimit Termination = "iteration_limit"
	TerminationError          Termination = "error"
)

// RunResult is the outcome of one Runner.Run.
type RunResult struct {
	RunID       string      `json:"run_id"`
	Answer      string      `json:"answer"`
	Termination Termination `json:"termination"`
	Turns       int         `json:"turns"`
	ToolCalls   int         `json:"tool_calls"`
	Usage       TokenUsage  `json:"usage"`
}
