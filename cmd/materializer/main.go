package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/willibrandon/materializer/internal/config"
	"github.com/willibrandon/materializer/internal/logger"
)

var (
	// version is set by ldflags.
	version = "dev"

	// Global flags
	configPath string
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "materializer",
		Short: "Materialization planner for partially-materialized dataflow graphs",
		Long: `materializer decides which dataflow operators must be materialized,
whether partial or full, what replay paths reconstruct partial state, and
emits the resulting per-domain migration plan.

Commands:
  materializer run <scenario.yaml>   Apply a migration scenario and print the plan
  materializer status <scenario.yaml>  Show materialization status for a graph
  materializer graphviz <scenario.yaml>  Dump a Graphviz DOT diagnostic
  materializer watch <scenario.yaml>   Live TUI over materialization status
  materializer history               Sparkline of partial-node growth across commits`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/materializer/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newRunCmd(),
		newStatusCmd(),
		newGraphvizCmd(),
		newWatchCmd(),
		newHistoryCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initCLILogging wires up internal/logger for the duration of one command
// invocation, honoring --debug and --config-provided log paths.
func initCLILogging() func() {
	level := logger.LevelInfo
	if debug {
		level = logger.LevelDebug
	}
	logPath := ""
	if configPath != "" {
		if cfg, err := config.LoadConfigFromPath(configPath); err == nil {
			logPath = cfg.LogFile
		}
	} else if cfg, err := config.LoadConfig(); err == nil {
		logPath = cfg.LogFile
	}
	logger.InitLogger(level, logPath)
	if debug {
		fmt.Fprintf(os.Stderr, "debug mode: logs written to %s\n", logger.LogPath)
	}
	return logger.Close
}
