package cli

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dhamhihahn/ai-agent/internal/config"
	"github.com/dhamhihahn/ai-agent/internal/logger"
	"github.com/dhamhihahn/ai-agent/internal/observability"
	"github.com/dhamhihahn/ai-agent/pkg/agent"
	"github.com/dhamhihahn/ai-agent/pkg/lookup"
	"github.com/dhamhihahn/ai-agent/pkg/memory"
	"github.com/dhamhihahn/ai-agent/pkg/sandbox"
	"github.com/dhamhihahn/ai-agent/pkg/toolexec"
	"github.com/dhamhihahn/ai-agent/pkg/workspace"
)

const autosaveSpec = "@every 2m"

// app holds the wired components for one interactive session.
type app struct {
	cfg      *config.Config
	apiMode  string
	log      *logger.Logger
	root     *workspace.Root
	executor *toolexec.Executor
	watcher  *toolexec.AllowlistWatcher
	store    *memory.Store
	saver    *memory.Autosaver
	lookup   *lookup.Client
	allow    *toolexec.Allowlist
	runner   *agent.Runner
}

// loadConfig resolves configuration: defaults, then file, then environment,
// then flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return nil, err
	}

	if flagWorkspace != "" {
		cfg.Workspace = flagWorkspace
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	if flagAPIMode != "" {
		cfg.APIMode = flagAPIMode
	}
	if flagBaseURL != "" {
		cfg.BaseURL = flagBaseURL
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if flagMetrics != "" {
		cfg.MetricsAddr = flagMetrics
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %v", errs[0])
	}

	return cfg, nil
}

// buildToolEnv wires everything that does not need provider credentials:
// logger, workspace, allowlist, sandboxed tools, and the memory store.
func buildToolEnv(cfg *config.Config) (*app, error) {
	lg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	root, err := workspace.New(cfg.Workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}

	allowlistPath := cfg.Tools.AllowlistPath
	if allowlistPath == "" {
		allowlistPath = filepath.Join(root.Path(), ".agent", "allowlist.json")
	}
	allowlist, err := toolexec.NewAllowlist(allowlistPath, cfg.Tools.ExtraAllow)
	if err != nil {
		return nil, fmt.Errorf("failed to load allowlist: %w", err)
	}

	shellTimeout := time.Duration(cfg.Tools.ShellTimeoutSecs) * time.Second
	executor := toolexec.New(shellTimeout)

	var lookupClient *lookup.Client
	if cfg.Tools.WebLookup {
		lookupClient = lookup.NewClient()
	}

	if err := toolexec.RegisterCoreTools(executor, toolexec.CoreToolOptions{
		Root:           root,
		Runner:         sandbox.NewHostRunner(sandbox.DefaultConfig()),
		Allowlist:      allowlist,
		Lookup:         lookupClient,
		ShellTimeout:   shellTimeout,
		MaxShellOutput: cfg.Tools.MaxShellOutput,
		MaxFileBytes:   cfg.Tools.MaxFileBytes,
		MaxListEntries: cfg.Tools.MaxListEntries,
	}); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	store, err := memory.NewStore(filepath.Join(root.Path(), ".agent", "memory.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}

	return &app{
		cfg:      cfg,
		log:      lg,
		root:     root,
		executor: executor,
		store:    store,
		lookup:   lookupClient,
		allow:    allowlist,
	}, nil
}

// buildApp completes the wiring for an interactive session: allowlist live
// reload, memory autosave, provider, and the runner.
func buildApp(cfg *config.Config) (*app, error) {
	a, err := buildToolEnv(cfg)
	if err != nil {
		return nil, err
	}

	watcher, err := toolexec.NewAllowlistWatcher(a.allow)
	if err != nil {
		return nil, fmt.Errorf("failed to create allowlist watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return nil, fmt.Errorf("failed to start allowlist watcher: %w", err)
	}
	a.watcher = watcher

	saver, err := memory.NewAutosaver(a.store, autosaveSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory autosaver: %w", err)
	}
	saver.Start()
	a.saver = saver

	apiMode := config.ChooseAPIMode(cfg.APIMode, cfg.BaseURL)
	apiKey, err := config.ResolveAPIKey(apiMode, cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	provider, err := agent.NewProvider(apiMode, agent.ProviderOptions{
		APIKey:  apiKey,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return nil, err
	}

	runner, err := agent.NewRunner(agent.Config{
		Model:        cfg.Model,
		SystemPrompt: cfg.Agent.SystemPrompt,
		Workspace:    a.root.Path(),
		Temperature:  cfg.Agent.Temperature,
		MaxTokens:    cfg.Agent.MaxTokens,
		MaxTurns:     cfg.Agent.MaxTurns,
		MaxRetries:   cfg.Agent.MaxRetries,
	}, provider, a.executor,
		agent.WithMemory(a.store),
		agent.WithLookup(a.lookup),
		agent.WithLogger(a.log.GetZerolog()),
	)
	if err != nil {
		return nil, err
	}

	a.apiMode = apiMode
	a.runner = runner
	return a, nil
}

// close flushes memory and releases watchers and log files.
func (a *app) close() {
	if a.saver != nil {
		if err := a.saver.Stop(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to flush memory on shutdown")
		}
	}
	if a.watcher != nil {
		_ = a.watcher.Stop()
	}
	if a.log != nil {
		_ = a.log.Close()
	}
}

// serveMetrics exposes /metrics when an address is configured.
func serveMetrics(addr string, lg zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			lg.Warn().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
}

func runREPL(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.MetricsAddr != "" {
		serveMetrics(cfg.MetricsAddr, a.log.GetZerolog())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Agent ready. Workspace: %s\n", a.root.Path())
	fmt.Fprintf(out, "API mode: %s\n", a.apiMode)
	if cfg.BaseURL != "" {
		fmt.Fprintf(out, "Base URL: %s\n", cfg.BaseURL)
	}
	fmt.Fprintln(out, "Type 'exit' to quit.")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "\nYou> ")
		if !scanner.Scan() {
			fmt.Fprintln(out, "\nStopping.")
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if lower := strings.ToLower(input); lower == "exit" || lower == "quit" {
			fmt.Fprintln(out, "Stopping.")
			break
		}

		result, err := a.runner.Run(context.Background(), input)
		if err != nil {
			a.log.Error().Err(err).Str("run_id", result.RunID).Msg("Run failed")
		}
		fmt.Fprintf(out, "\nAgent> %s\n", result.Answer)

		if err := a.store.SaveIfDirty(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to persist memory")
		}
	}

	return a.store.SaveIfDirty()
}
