package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"mareero-backend/internal/config"
	"mareero-backend/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootCmd runs the HTTP server by default.
var rootCmd = &cobra.Command{
	Use:   "mareero",
	Short: "Inventory status reports for the Mareero branches",
	Long: `Collects staff inventory reports into one shared table and serves the
manager view, PDF and spreadsheet exports.

Configuration is read from the environment (STORE_BACKEND, DATABASE_DSN,
WORKBOOK_PATH, JWT_SECRET, MANAGER_PASSWORD_HASH, TIMEZONE, ...).`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger. Offline commands skip
// the manager credentials.
func setup(withAuth bool) (*config.Config, *zap.Logger, error) {
	load := config.LoadStore
	if withAuth {
		load = config.Load
	}
	cfg, err := load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}
	return cfg, log, nil
}
