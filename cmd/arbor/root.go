package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor is a node-graph orchestrator for conversational agents",
	Long: `Arbor executes conversational requests through per-agent node
topologies: routing, planning, LLM and external-agent calls, tool
execution, grounding and response caching.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		// Missing .env is fine; explicit environment always wins.
		_ = godotenv.Load()
	})
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the server config file")
}
