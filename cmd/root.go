package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "salesline",
	Short: "Streaming demo-booking assistant server",
	Long: `salesline serves a streaming sales assistant that answers product
questions, collects lead details, and books demos through model tool calls.

Examples:
  salesline serve                    # start with config defaults
  salesline serve --port 9000        # override the listen port`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
