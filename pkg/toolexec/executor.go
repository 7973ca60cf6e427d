// Package toolexec is the tool registry and sandbox boundary. Every tool
// invocation is validated against its parameter schema and the confinement
// rules before anything touches the file system or spawns a process; failures
// come back as structured results the model can react to.
package toolexec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/dhamhihahn/ai-agent/internal/observability"
	"github.com/dhamhihahn/ai-agent/pkg/sandbox"
	"github.com/dhamhihahn/ai-agent/pkg/workspace"
)

// Call is one tool invocation requested by the model.
type Call struct {
	// ID is the call identifier assigned by the backend, unique within a turn.
	ID string `json:"id"`

	// Name is the tool name.
	Name string `json:"name"`

	// Args is the argument mapping from the model's reply.
	Args map[string]interface{} `json:"args"`
}

// Status is the outcome of a tool invocation.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Result answers exactly one Call.
type Result struct {
	CallID    string        `json:"call_id"`
	Status    Status        `json:"status"`
	Reason    Reason        `json:"reason,omitempty"`
	Output    string        `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
	Duration  time.Duration `json:"-"`
}

// Text returns the result body fed back to the model: the JSON payload on
// success, a structured error line otherwise.
func (r Result) Text() string {
	if r.Status == StatusOK {
		return r.Output
	}
	if r.Reason != ReasonNone {
		return fmt.Sprintf(`{"ok":false,"reason":%q,"error":%q}`, string(r.Reason), r.Error)
	}
	return fmt.Sprintf(`{"ok":false,"error":%q}`, r.Error)
}

// Parameter describes one tool argument.
type Parameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// Outcome is what a handler produces on success.
type Outcome struct {
	Payload   map[string]interface{}
	Truncated bool
}

// Handler executes one tool call. It runs only after the schema and
// permission checks have passed.
type Handler func(ctx context.Context, args map[string]interface{}) (*Outcome, error)

// Definition describes a registered tool.
type Definition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Handler     Handler     `json:"-"`
}

// Executor validates and executes tool calls.
type Executor struct {
	tools   map[string]*Definition
	schemas map[string]*gojsonschema.Schema
	timeout time.Duration
	mu      sync.RWMutex
}

// New creates an empty executor. timeout bounds a single tool invocation.
func New(timeout time.Duration) *Executor {
	observability.EnsureRegistered()

	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	return &Executor{
		tools:   make(map[string]*Definition),
		schemas: make(map[string]*gojsonschema.Schema),
		timeout: timeout,
	}
}

// Register adds a tool definition.
func (e *Executor) Register(def Definition) error {
	if err := validateDefinition(def); err != nil {
		return fmt.Errorf("invalid tool definition: %w", err)
	}

	schema, err := compileSchema(def)
	if err != nil {
		return fmt.Errorf("failed to compile schema for %s: %w", def.Name, err)
	}

	e.mu.Lock()
	e.tools[def.Name] = &def
	e.schemas[def.Name] = schema
	e.mu.Unlock()

	log.Debug().Str("tool", def.Name).Msg("Tool registered")
	return nil
}

// Get returns a tool definition by name, or nil.
func (e *Executor) Get(name string) *Definition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tools[name]
}

// List returns all registered tool definitions, sorted by name.
func (e *Executor) List() []Definition {
	e.mu.RLock()
	defer e.mu.RUnlock()

	defs := make([]Definition, 0, len(e.tools))
	for _, def := range e.tools {
		defs = append(defs, *def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Invoke executes one call and always returns a Result carrying the call's
// identifier, so the caller can enforce 1:1 request/result pairing.
func (e *Executor) Invoke(ctx context.Context, call Call) Result {
	start := time.Now()

	e.mu.RLock()
	tool := e.tools[call.Name]
	schema := e.schemas[call.Name]
	e.mu.RUnlock()

	if tool == nil {
		log.Warn().Str("tool", call.Name).Msg("Unknown tool requested")
		return e.fail(call, start, ReasonUnknownTool, fmt.Sprintf("%v: %s", ErrUnknownTool, call.Name))
	}

	args := call.Args
	if args == nil {
		args = map[string]interface{}{}
	}

	if err := validateArgs(schema, args); err != nil {
		log.Warn().Str("tool", call.Name).Err(err).Msg("Tool argument validation failed")
		return e.fail(call, start, ReasonInvalidArgs, err.Error())
	}

	log.Debug().Str("tool", call.Name).Str("call_id", call.ID).Msg("Executing tool")

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	outcome, err := tool.Handler(execCtx, args)
	duration := time.Since(start)

	if err != nil {
		reason := classify(err, execCtx)
		log.Warn().
			Str("tool", call.Name).
			Str("reason", string(reason)).
			Dur("duration", duration).
			Err(err).
			Msg("Tool execution failed")
		observability.RecordToolExecution(call.Name, string(reason), duration)
		return Result{
			CallID:   call.ID,
			Status:   StatusError,
			Reason:   reason,
			Error:    err.Error(),
			Duration: duration,
		}
	}

	output, err := json.Marshal(outcome.Payload)
	if err != nil {
		observability.RecordToolExecution(call.Name, string(ReasonExecError), duration)
		return Result{
			CallID:   call.ID,
			Status:   StatusError,
			Reason:   ReasonExecError,
			Error:    fmt.Sprintf("failed to encode tool output: %v", err),
			Duration: duration,
		}
	}

	log.Debug().
		Str("tool", call.Name).
		Dur("duration", duration).
		Bool("truncated", outcome.Truncated).
		Msg("Tool execution completed")
	observability.RecordToolExecution(call.Name, string(StatusOK), duration)

	return Result{
		CallID:    call.ID,
		Status:    StatusOK,
		Output:    string(output),
		Truncated: outcome.Truncated,
		Duration:  duration,
	}
}

func (e *Executor) fail(call Call, start time.Time, reason Reason, msg string) Result {
	duration := time.Since(start)
	observability.RecordToolExecution(call.Name, string(reason), duration)
	return Result{
		CallID:   call.ID,
		Status:   StatusError,
		Reason:   reason,
		Error:    msg,
		Duration: duration,
	}
}

// classify maps a handler error to a reason code.
func classify(err error, ctx context.Context) Reason {
	switch {
	case errors.Is(err, workspace.ErrOutsideRoot):
		return ReasonPathViolation
	case errors.Is(err, ErrPermissionDenied):
		return ReasonPermissionDenied
	case errors.Is(err, sandbox.ErrExecutionTimeout),
		errors.Is(err, context.DeadlineExceeded),
		ctx.Err() == context.DeadlineExceeded:
		return ReasonTimeout
	default:
		return ReasonExecError
	}
}

func validateDefinition(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}

	validTypes := map[string]bool{
		"string": true, "number": true, "boolean": true,
		"object": true, "array": true, "integer": true,
	}
	for _, param := range def.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		if !validTypes[param.Type] {
			return fmt.Errorf("invalid parameter type %s for %s", param.Type, param.Name)
		}
	}

	return nil
}

// SchemaDocument renders the tool's parameters as a JSON Schema object, the
// shape providers expect for function declarations.
func (d *Definition) SchemaDocument() map[string]interface{} {
	properties := map[string]interface{}{}
	var required []string

	for _, param := range d.Parameters {
		prop := map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Default != nil {
			prop["default"] = param.Default
		}
		properties[param.Name] = prop
		if param.Required {
			required = append(required, param.Name)
		}
	}

	doc := map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

func compileSchema(def Definition) (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.SchemaDocument()))
}

func validateArgs(schema *gojsonschema.Schema, args map[string]interface{}) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("argument validation failed: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("invalid arguments: %v", msgs)
	}
	return nil
}
