package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/sage/bootstrap"
	"github.com/artpar/sage/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and inbox watcher",
	Long: `Start the sage server.

The server will:
  - Load configuration from sage.yaml (or --config)
  - Or load configuration from SAGE_* environment variables
  - Open the processed-records database
  - Serve the JSON API for catalog validation and package processing
  - Watch the inbox directory when watch.enabled is set

Environment variables (for Docker deployments):
  SAGE_CATALOGS_DIR    - Catalog specs directory (required)
  SAGE_PACKAGES_DIR    - Package specs directory (required)
  SAGE_SENDERS_FILE    - Senders spec file
  SAGE_INBOX_DIR       - Inbox directory to watch
  SAGE_DATABASE_DSN    - Database path (default: sage.db)
  SAGE_SERVER_PORT     - Server port (default: 8080)
  SAGE_LOG_LEVEL       - Log level: debug, info, warn, error

Examples:
  sage serve
  sage serve --config /etc/sage/config.yaml

  # Docker (env vars only):
  SAGE_CATALOGS_DIR=/specs/catalogs SAGE_PACKAGES_DIR=/specs/packages sage serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}

	app, err := bootstrap.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return app.Run()
}
