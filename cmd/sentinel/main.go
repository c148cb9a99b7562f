package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/interaction-log/internal/bootstrap"
	"github.com/bryanwahyu/interaction-log/internal/config"
	"github.com/bryanwahyu/interaction-log/internal/logging"
)

var (
	version = "v0.1.0" // Overwritten at build time

	configPath   string
	outputFormat string
	logLevel     string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sentinel",
		Short: "Community interaction log and risk reports",
		Long: `sentinel records community reports, classifies each one into a
five-stage analysis and keeps the log for browsing, statistics and export.`,
		SilenceUsage: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	defaultConfig := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "human", "Output format (human, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		newSubmitCmd(),
		newListCmd(),
		newShowCmd(),
		newStatsCmd(),
		newExportCmd(),
		newReportCmd(),
		newClearCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sentinel version %s\n", version)
		},
	}
}

// openApp loads config and wires the service. Logs go to stderr at warn
// level unless overridden, so they do not clutter command output.
func openApp(ctx context.Context) (*bootstrap.App, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	level := "warn"
	if logLevel != "" {
		level = logLevel
	}
	log := logging.Init(cfg.Log.Format, logging.ParseLevel(level))
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return app, cfg, nil
}
