package toolexec

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhamhihahn/ai-agent/pkg/lookup"
	"github.com/dhamhihahn/ai-agent/pkg/sandbox"
	"github.com/dhamhihahn/ai-agent/pkg/workspace"
)

const (
	// DefaultMaxShellOutput caps each captured shell stream, keeping the tail.
	DefaultMaxShellOutput = 8000

	// DefaultMaxFileBytes caps read_file content, keeping the tail.
	DefaultMaxFileBytes = 16000

	// DefaultMaxListEntries caps list_files results.
	DefaultMaxListEntries = 200
)

// CoreToolOptions configures the fixed tool set.
type CoreToolOptions struct {
	Root      *workspace.Root
	Runner    *sandbox.HostRunner
	Allowlist *Allowlist
	Lookup    *lookup.Client

	ShellTimeout   time.Duration
	MaxShellOutput int
	MaxFileBytes   int
	MaxListEntries int
}

func (o *CoreToolOptions) defaults() {
	if o.ShellTimeout <= 0 {
		o.ShellTimeout = 45 * time.Second
	}
	if o.MaxShellOutput <= 0 {
		o.MaxShellOutput = DefaultMaxShellOutput
	}
	if o.MaxFileBytes <= 0 {
		o.MaxFileBytes = DefaultMaxFileBytes
	}
	if o.MaxListEntries <= 0 {
		o.MaxListEntries = DefaultMaxListEntries
	}
}

// RegisterCoreTools registers the fixed tool set on the executor.
func RegisterCoreTools(e *Executor, opts CoreToolOptions) error {
	if e == nil {
		return errors.New("executor is required")
	}
	if opts.Root == nil {
		return errors.New("workspace root is required")
	}
	if opts.Runner == nil {
		return errors.New("host runner is required")
	}
	if opts.Allowlist == nil {
		return errors.New("allowlist is required")
	}
	opts.defaults()

	tools := []Definition{
		runShellTool(opts),
		readFileTool(opts),
		writeFileTool(opts),
		listFilesTool(opts),
	}
	if opts.Lookup != nil {
		tools = append(tools, webLookupTool(opts))
	}

	for _, tool := range tools {
		if err := e.Register(tool); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
		}
	}
	return nil
}

func runShellTool(opts CoreToolOptions) Definition {
	return Definition{
		Name:        "run_shell",
		Description: "Run a shell command in the workspace. Limited by a command allowlist.",
		Parameters: []Parameter{
			{Name: "command", Type: "string", Description: "Command to execute", Required: true},
			{Name: "cwd", Type: "string", Description: "Relative directory in workspace", Default: "."},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (*Outcome, error) {
			command, _ := args["command"].(string)
			command = strings.TrimSpace(command)
			if command == "" {
				return nil, fmt.Errorf("command is required")
			}

			// Permission check runs before anything else; a rejected command
			// never spawns a process.
			if !opts.Allowlist.IsAllowed(command) {
				return nil, fmt.Errorf("%w: allowed prefixes are %v",
					ErrPermissionDenied, opts.Allowlist.Prefixes())
			}

			cwd := opts.Root.Path()
			if raw, ok := args["cwd"].(string); ok && strings.TrimSpace(raw) != "" && raw != "." {
				resolved, err := opts.Root.Resolve(raw)
				if err != nil {
					return nil, err
				}
				cwd = resolved
			}

			res, err := opts.Runner.Execute(ctx, sandbox.ExecuteRequest{
				Command:    command,
				WorkingDir: cwd,
				Timeout:    opts.ShellTimeout,
			})
			if err != nil {
				if errors.Is(err, sandbox.ErrExecutionTimeout) {
					return nil, fmt.Errorf("%w after %s", err, opts.ShellTimeout)
				}
				return nil, err
			}

			stdout, outTrunc := tail(string(res.Stdout), opts.MaxShellOutput)
			stderr, errTrunc := tail(string(res.Stderr), opts.MaxShellOutput)

			return &Outcome{
				Payload: map[string]interface{}{
					"ok":          res.ExitCode == 0,
					"exit_code":   res.ExitCode,
					"stdout":      stdout,
					"stderr":      stderr,
					"duration_ms": res.Duration.Milliseconds(),
				},
				Truncated: outTrunc || errTrunc,
			}, nil
		},
	}
}

func readFileTool(opts CoreToolOptions) Definition {
	return Definition{
		Name:        "read_file",
		Description: "Read a text file inside the workspace.",
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "Relative file path", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (*Outcome, error) {
			pathValue, _ := args["path"].(string)
			target, err := opts.Root.Resolve(pathValue)
			if err != nil {
				return nil, err
			}

			data, err := os.ReadFile(target)
			if err != nil {
				if os.IsNotExist(err) {
					return nil, fmt.Errorf("file does not exist: %s", pathValue)
				}
				return nil, err
			}

			content, truncated := tail(string(data), opts.MaxFileBytes)

			return &Outcome{
				Payload: map[string]interface{}{
					"ok":      true,
					"path":    pathValue,
					"content": content,
					"bytes":   len(data),
				},
				Truncated: truncated,
			}, nil
		},
	}
}

func writeFileTool(opts CoreToolOptions) Definition {
	return Definition{
		Name:        "write_file",
		Description: "Write a text file inside the workspace.",
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "Relative file path", Required: true},
			{Name: "content", Type: "string", Description: "File content", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (*Outcome, error) {
			pathValue, _ := args["path"].(string)
			target, err := opts.Root.Resolve(pathValue)
			if err != nil {
				return nil, err
			}
			content, _ := args["content"].(string)

			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return nil, err
			}
			if err := os.WriteFile(target, []byte(content), 0644); err != nil {
				return nil, err
			}

			return &Outcome{
				Payload: map[string]interface{}{
					"ok":    true,
					"path":  pathValue,
					"bytes": len(content),
				},
			}, nil
		},
	}
}

func listFilesTool(opts CoreToolOptions) Definition {
	return Definition{
		Name:        "list_files",
		Description: fmt.Sprintf("List up to %d files inside a workspace path.", opts.MaxListEntries),
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "Relative directory path", Default: "."},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (*Outcome, error) {
			pathValue := "."
			if raw, ok := args["path"].(string); ok && strings.TrimSpace(raw) != "" {
				pathValue = raw
			}

			target, err := opts.Root.Resolve(pathValue)
			if err != nil {
				return nil, err
			}
			if _, err := os.Stat(target); err != nil {
				if os.IsNotExist(err) {
					return nil, fmt.Errorf("path does not exist: %s", pathValue)
				}
				return nil, err
			}

			files := []string{}
			truncated := false
			err = filepath.WalkDir(target, func(p string, d fs.DirEntry, walkErr error) error {
				if walkErr != nil {
					return walkErr
				}
				if d.IsDir() {
					return nil
				}
				rel, relErr := filepath.Rel(opts.Root.Path(), p)
				if relErr != nil {
					return relErr
				}
				files = append(files, rel)
				if len(files) >= opts.MaxListEntries {
					truncated = true
					return fs.SkipAll
				}
				return nil
			})
			if err != nil {
				return nil, err
			}

			return &Outcome{
				Payload: map[string]interface{}{
					"ok":    true,
					"files": files,
				},
				Truncated: truncated,
			}, nil
		},
	}
}

func webLookupTool(opts CoreToolOptions) Definition {
	return Definition{
		Name:        "web_lookup",
		Description: "Look up a term on the internet and return a short meaning/summary.",
		Parameters: []Parameter{
			{Name: "query", Type: "string", Description: "Term or phrase to look up", Required: true},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (*Outcome, error) {
			query, _ := args["query"].(string)
			res, err := opts.Lookup.Lookup(ctx, query)
			if err != nil {
				return nil, err
			}

			return &Outcome{
				Payload: map[string]interface{}{
					"ok":      true,
					"source":  res.Source,
					"title":   res.Title,
					"summary": res.Summary,
					"url":     res.URL,
				},
			}, nil
		},
	}
}

// tail keeps the last max bytes of s, which is where command output and long
// files carry the interesting part.
func tail(s string, max int) (string, bool) {
	if len(s) <= max {
		return s, false
	}
	return s[len(s)-max:], true
}
