// Package sandbox runs shell commands on the host with a hard timeout and
// captured output. Permission decisions (allowlist, path confinement) are made
// by the caller before anything reaches this package.
package sandbox

import (
	"time"
)

// ExecuteRequest represents a command execution request.
type ExecuteRequest struct {
	// Command is the shell command line, run through the shell interpreter.
	Command string `json:"command"`

	// Env are extra environment variables layered over the minimal base env.
	Env map[string]string `json:"env,omitempty"`

	// WorkingDir is the working directory for the command.
	WorkingDir string `json:"working_dir"`

	// Stdin is the standard input.
	Stdin []byte `json:"stdin,omitempty"`

	// Timeout is the execution timeout. Zero uses the runner default.
	Timeout time.Duration `json:"timeout"`
}

// ExecuteResult represents a command execution result.
type ExecuteResult struct {
	// Stdout is the captured standard output.
	Stdout []byte `json:"stdout"`

	// Stderr is the captured standard error.
	Stderr []byte `json:"stderr"`

	// ExitCode is the process exit code, -1 on timeout.
	ExitCode int `json:"exit_code"`

	// Duration is the wall-clock execution time.
	Duration time.Duration `json:"duration"`
}

// Config configures a host runner.
type Config struct {
	// Shell is the interpreter used to run commands (default /bin/sh).
	Shell string `json:"shell"`

	// DefaultTimeout bounds commands that carry no explicit timeout.
	DefaultTimeout time.Duration `json:"default_timeout"`
}

// DefaultConfig returns the default runner configuration.
func DefaultConfig() Config {
	return Config{
		Shell:          "/bin/sh",
		DefaultTimeout: 45 * time.Second,
	}
}
