package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "deadletter",
	Short: "Inspect and replay jobs the pipeline gave up on",
	Long: `Inspect and replay jobs the pipeline gave up on.

Available subcommands:
  list  - Show archived tasks per lane and the stored failure records
  retry - Move archived tasks back to their lane`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(listCmd, retryCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
