package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/switchboard/internal/cli"
	"github.com/aretw0/switchboard/internal/config"
	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/pkg/runner"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: "Switchboard is a conversational support agent",
	Long: `Switchboard answers customer queries by routing each turn through a fixed workflow:
retrieve context, classify intent, call capabilities, synthesize a reply and
hand off to a human when the answer is not good enough.`,
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
	rootCmd.PersistentFlags().String("config", "", "Path to the configuration file (default ./switchboard.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig reads the configuration and builds the logger for cmd.
// Logs always go to stderr so stdout stays clean for replies and JSON-RPC.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewWithWriter(os.Stderr, level, cfg.Log.Format)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// buildApp loads the configuration and wires the agent.
func buildApp(ctx context.Context, cmd *cobra.Command) (*cli.App, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return cli.Build(ctx, cfg, logger)
}

func inputLimits(cfg *config.Config) runner.Limits {
	return runner.Limits{MaxQueryBytes: cfg.Input.MaxQueryBytes, MaxUserIDBytes: cfg.Input.MaxUserIDBytes}
}
