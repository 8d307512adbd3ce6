package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zfogg/inkwell/internal/config"
	"github.com/zfogg/inkwell/internal/logger"
)

var (
	output   = "text" // "text" or "json"
	logLevel = "warn"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "votectl",
		Short: "votectl - inspect and repair Inkwell vote counters",
		Long: `votectl talks directly to the Inkwell database and Redis.
It compares like/dislike counters with the voter sets they are derived from,
rewrites drifted counters, drops voter sets and mints development tokens.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.InitializeConsole(logLevel)
		},
	}

	root.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")
	root.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "Log level: debug, info, warn or error")

	root.AddCommand(newInspectCmd(cfg))
	root.AddCommand(newReconcileCmd(cfg))
	root.AddCommand(newPurgeCmd(cfg))
	root.AddCommand(newTokenCmd(cfg))
	return root
}

func main() {
	cfg, _ := config.Load()
	if err := newRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
