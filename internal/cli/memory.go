package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Print the persisted agent memory",
	Long:  `Print the facts and recent conversation turns persisted in the workspace memory file.`,
	RunE:  runMemory,
}

var memoryTurns int

func init() {
	memoryCmd.Flags().IntVar(&memoryTurns, "turns", 8, "number of recent turns to print")
	rootCmd.AddCommand(memoryCmd)
}

func runMemory(cmd *cobra.Command, args []string) error {
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
	snap := a.store.Snapshot()

	fmt.Fprintf(out, "Memory file: %s\n", a.store.Path())

	if len(snap.Facts) == 0 {
		fmt.Fprintln(out, "No facts stored.")
	} else {
		fmt.Fprintln(out, "Facts:")
		keys := make([]string, 0, len(snap.Facts))
		for k := range snap.Facts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %s: %s\n", k, snap.Facts[k])
		}
	}

	recent := a.store.Recent(memoryTurns)
	if len(recent) == 0 {
		fmt.Fprintln(out, "No conversation turns stored.")
		return nil
	}
	fmt.Fprintln(out, "Recent turns:")
	for _, turn := range recent {
		fmt.Fprintf(out, "  [%s] %s: %s\n", turn.Timestamp.Format("2006-01-02 15:04"), turn.Role, turn.Content)
	}
	return nil
}
