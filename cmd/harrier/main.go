// Harrier - Multi-signal document fraud-risk scoring.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/opensource-finance/harrier/internal/config"
	"github.com/opensource-finance/harrier/internal/domain"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "harrier",
	Short: "Multi-signal document fraud-risk scoring",
	Long: `Harrier scores documents for fraud risk by running keyword, emotion and
question-answering detectors over their text and combining the results
into a single score and risk tier.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("HARRIER_CONFIG"), "Path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(qaCmd)
	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate)
}

// loadConfig loads configuration and installs the default logger. CLI
// commands log to stderr so stdout carries only results.
func loadConfig(logToStdout bool) (*domain.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	w := os.Stderr
	if logToStdout {
		w = os.Stdout
	}
	slog.SetDefault(config.NewLogger(cfg.Logging, w))
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
