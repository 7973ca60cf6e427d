package cli

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	cfgFile       string
	logLevel      string
	flagWorkspace string
	flagModel     string
	flagAPIMode   string
	flagBaseURL   string
	flagMetrics   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ai-agent",
	Short: "A local coding agent with sandboxed tools",
	Long: `ai-agent is a single-user command-line coding agent. It converses with an
LLM backend over either the stateful responses protocol or the stateless
chat-completions protocol, and acts on a workspace directory through a fixed,
sandboxed tool set.`,
	Version:       version,
	RunE:          runREPL,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ai-agent/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagWorkspace, "workspace", "", "workspace folder for file operations")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "model name")
	rootCmd.PersistentFlags().StringVar(&flagAPIMode, "api-mode", "", "responses=Responses API, chat=chat/completions, anthropic=Messages API, auto picks by base-url")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "OpenAI-compatible base URL")
	rootCmd.PersistentFlags().StringVar(&flagMetrics, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	// Version template
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}
