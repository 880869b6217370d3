package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// Global flags shared by every subcommand.
var (
	configPath string
	logLevel   string
)

func main() {
	root := &cobra.Command{
		Use:           "cvforge",
		Short:         "cvforge: LLM résumé assistant with model fallback",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (.yaml or .toml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	root.AddCommand(
		newServeCmd(),
		newRunCmd(),
		newModelsCmd(),
		newCacheCmd(),
		newStatsCmd(),
		newQuotaCmd(),
		newMCPCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
