package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// HostRunner executes commands directly on the host through a shell
// interpreter, bounded by a timeout.
type HostRunner struct {
	config Config
}

// NewHostRunner creates a new host runner.
func NewHostRunner(config Config) *HostRunner {
	if config.Shell == "" {
		config.Shell = DefaultConfig().Shell
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = DefaultConfig().DefaultTimeout
	}

	return &HostRunner{config: config}
}

// Execute runs a command and captures its output. A timeout yields
// ErrExecutionTimeout alongside whatever output was produced.
func (h *HostRunner) Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, error) {
	if strings.TrimSpace(req.Command) == "" {
		return ExecuteResult{}, ErrEmptyCommand
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = h.config.DefaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, h.config.Shell, "-c", req.Command)

	if req.WorkingDir != "" {
		cmd.Dir = req.WorkingDir
	}

	cmd.Env = h.buildEnvironment(req.Env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if len(req.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(req.Stdin)
	}

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if execCtx.Err() == context.DeadlineExceeded {
		return ExecuteResult{
			Stdout:   stdout.Bytes(),
			Stderr:   stderr.Bytes(),
			ExitCode: -1,
			Duration: duration,
		}, ErrExecutionTimeout
	}

	exitCode := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return ExecuteResult{}, fmt.Errorf("failed to run command: %w", err)
		}
		exitCode = exitErr.ExitCode()
	}

	log.Debug().
		Str("command", req.Command).
		Int("exit_code", exitCode).
		Dur("duration", duration).
		Msg("Command executed")

	return ExecuteResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
		Duration: duration,
	}, nil
}

// buildEnvironment layers request variables over a minimal base environment.
func (h *HostRunner) buildEnvironment(env map[string]string) []string {
	result := []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"HOME=/tmp",
	}

	for key, value := range env {
		result = append(result, fmt.Sprintf("%s=%s", key, value))
	}

	return result
}
