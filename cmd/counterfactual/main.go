// Command counterfactual builds and serves a navigable latent space over a
// museum collection.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/maia-posternack/anadol-counterfactual/internal/config"
	"github.com/maia-posternack/anadol-counterfactual/internal/logger"
)

var (
	flagConfig  string
	flagVerbose bool
)

func main() {
	root := &cobra.Command{
		Use:           "counterfactual",
		Short:         "Latent-space navigation over a museum collection",
		Long:          "Build a latent space from collection records and serve facet-constrained\nnavigation, generation, and path statistics over it.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to config file")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newBuildCmd())
	root.AddCommand(newSubsetCmd())
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves configuration from the --config flag, the default
// search path, or built-in defaults.
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.LoadConfigWithPath(flagConfig)
	}
	return config.LoadConfig()
}

// newLogger builds the process logger from config, with --verbose forcing
// debug level.
func newLogger(cfg *config.Config) *slog.Logger {
	level := cfg.Logging.Level
	if flagVerbose {
		level = "debug"
	}
	return logger.New(os.Stderr, level, cfg.Logging.Format)
}
