package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/palaver/internal/config"
	"github.com/aretw0/palaver/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "palaver",
	Short: "Palaver runs branching NPC conversations",
	Long: `Palaver loads conversation documents, runs them for players and executes
their commands against a host. Use it to validate documents, play them in the
terminal or serve them over HTTP and websockets.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("dir", "", "Directory containing conversation documents (overrides config)")
	rootCmd.PersistentFlags().String("config", "", "Path to palaver.yaml")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// loadConfig reads the config file named by --config (or palaver.yaml when
// present) and applies the persistent flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags().Changed("config"))
	if err != nil {
		return cfg, nil, err
	}

	if cmd.Flags().Changed("dir") {
		cfg.Documents, _ = cmd.Flags().GetString("dir")
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logging.NewWithWriter(cmd.ErrOrStderr(), level, logging.Format(cfg.LogFormat)), nil
}
