package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the registered tools",
	Long:  `List every tool the agent can invoke, with its parameters.`,
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := buildToolEnv(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	for _, def := range a.executor.List() {
		fmt.Fprintf(out, "%s: %s\n", def.Name, def.Description)
		for _, param := range def.Parameters {
			requirement := "optional"
			if param.Required {
				requirement = "required"
			}
			fmt.Fprintf(out, "  %s (%s, %s): %s\n", param.Name, param.Type, requirement, param.Description)
		}
	}

	return nil
}
