package config

import (
	"fmt"
	"os"
	"strings"
)

// Config is the explicit configuration struct threaded into every
// constructor; there is no ambient process-wide state.
type Config struct {
	// Workspace is the directory tree all tool effects are confined to.
	Workspace string `json:"workspace" mapstructure:"workspace"`

	// Model is the model identifier sent to the backend.
	Model string `json:"model" mapstructure:"model"`

	// APIMode selects the wire protocol: auto, responses, chat, anthropic.
	APIMode string `json:"api_mode" mapstructure:"api_mode"`

	// BaseURL overrides the default remote endpoint.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// MetricsAddr optionally serves Prometheus metrics (e.g. ":9090").
	MetricsAddr string `json:"metrics_addr" mapstructure:"metrics_addr"`

	Agent   AgentConfig   `json:"agent" mapstructure:"agent"`
	Tools   ToolsConfig   `json:"tools" mapstructure:"tools"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// AgentConfig configures the orchestration loop.
type AgentConfig struct {
	SystemPrompt string  `json:"system_prompt" mapstructure:"system_prompt"`
	MaxTurns     int     `json:"max_turns" mapstructure:"max_turns"`
	MaxRetries   int     `json:"max_retries" mapstructure:"max_retries"`
	Temperature  float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens    int     `json:"max_tokens" mapstructure:"max_tokens"`
}

// ToolsConfig configures the tool registry and sandbox.
type ToolsConfig struct {
	AllowlistPath    string   `json:"allowlist_path" mapstructure:"allowlist_path"`
	ExtraAllow       []string `json:"extra_allow" mapstructure:"extra_allow"`
	ShellTimeoutSecs int      `json:"shell_timeout_secs" mapstructure:"shell_timeout_secs"`
	MaxShellOutput   int      `json:"max_shell_output" mapstructure:"max_shell_output"`
	MaxFileBytes     int      `json:"max_file_bytes" mapstructure:"max_file_bytes"`
	MaxListEntries   int      `json:"max_list_entries" mapstructure:"max_list_entries"`
	WebLookup        bool     `json:"web_lookup" mapstructure:"web_lookup"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns the defaults applied before file, environment, and
// flag overrides.
func DefaultConfig() *Config {
	return &Config{
		Workspace: ".",
		Model:     "gpt-4o-mini",
		APIMode:   "auto",
		Agent: AgentConfig{
			MaxTurns:   12,
			MaxRetries: 3,
		},
		Tools: ToolsConfig{
			ShellTimeoutSecs: 45,
			WebLookup:        true,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			Redaction: true,
		},
	}
}

// isLocalBaseURL reports whether the endpoint targets the local machine.
func isLocalBaseURL(baseURL string) bool {
	lower := strings.ToLower(baseURL)
	return strings.Contains(lower, "localhost") || strings.Contains(lower, "127.0.0.1")
}

// ChooseAPIMode resolves "auto" by the endpoint: local OpenAI-compatible
// servers usually only implement chat completions, remote ones get the
// responses protocol.
func ChooseAPIMode(mode, baseURL string) string {
	switch mode {
	case "responses", "chat", "anthropic":
		return mode
	}
	if baseURL == "" {
		return "responses"
	}
	if isLocalBaseURL(baseURL) {
		return "chat"
	}
	return "responses"
}

// ResolveAPIKey reads the key for the chosen API mode from the environment.
// A missing key is tolerated only for local endpoints, where a dummy key
// satisfies servers that ignore authentication.
func ResolveAPIKey(mode, baseURL string) (string, error) {
	envVar := "OPENAI_API_KEY"
	if mode == "anthropic" {
		envVar = "ANTHROPIC_API_KEY"
	}

	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}

	if baseURL != "" && isLocalBaseURL(baseURL) {
		return "lm-studio", nil
	}

	return "", fmt.Errorf("%s not set. Set it first and retry", envVar)
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() []error {
	var errs []error

	if c.Workspace == "" {
		errs = append(errs, fmt.Errorf("workspace cannot be empty"))
	}
	if c.Model == "" {
		errs = append(errs, fmt.Errorf("model cannot be empty"))
	}

	switch c.APIMode {
	case "auto", "responses", "chat", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("invalid api mode: %s (expected auto, responses, chat, or anthropic)", c.APIMode))
	}

	if c.Agent.Temperature < 0 || c.Agent.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be between 0 and 2"))
	}
	if c.Agent.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("max tokens cannot be negative"))
	}
	if c.Agent.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("max turns cannot be negative"))
	}
	if c.Agent.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries cannot be negative"))
	}
	if c.Tools.ShellTimeoutSecs < 0 {
		errs = append(errs, fmt.Errorf("shell timeout cannot be negative"))
	}

	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error", "fatal":
	default:
		errs = append(errs, fmt.Errorf("invalid log level: %s", c.Logging.Level))
	}

	return errs
}
