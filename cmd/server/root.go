package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"credbridge/internal/platform/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "credbridge",
	Short: "Verifier bridge between browsers and a credential platform",
	Long: `credbridge pairs browser sessions with holder wallets through a
webhook-driven credential platform and pushes state changes to the browser.

Running without a subcommand starts the server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); environment variables use the CREDBRIDGE_ prefix")
	rootCmd.AddCommand(serveCmd, watchCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
