package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	arbor "github.com/arborflow/arbor"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check every topology in a directory for consistency",
	Long:  `Loads each agent topology and reports structural problems: unknown node types, missing start/end nodes, dangling edges.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(args []string) error {
	dir := "topologies"
	if len(args) > 0 {
		dir = args[0]
	}

	engine, err := arbor.New(dir)
	if err != nil {
		return err
	}
	defer engine.Close()

	agents, err := engine.Loader().Agents()
	if err != nil {
		return err
	}
	if len(agents) == 0 {
		return fmt.Errorf("no topologies found in %s", dir)
	}

	for _, agent := range agents {
		topo, err := engine.Inspect(agent)
		if err != nil {
			return fmt.Errorf("agent %q: %w", agent, err)
		}
		fmt.Printf("agent %q: %d nodes, ok\n", agent, len(topo.Nodes))
	}
	return nil
}
