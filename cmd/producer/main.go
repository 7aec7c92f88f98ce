// Command producer submits eval invocations to the queue, or runs them in-process.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dontdude/tiobot/internal/config"
)

var cfg = config.Load()

var rootCmd = &cobra.Command{
	Use:           "producer",
	Short:         "Submit code evaluations to tiobot",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.AddCommand(evalCmd, inspectCmd, languagesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
