package main

import (
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	_ "github.com/forgedb/forgedb/internal/driver"
)

var flagAutosave bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open a forgedb database over database/sql and hold it open with optional periodic autosave",
	Long: `serve registers forgedb as a database/sql driver, opens -dsn, and blocks
until interrupted. With -autosave, which requires snapshot_path in
-config, a background cron job saves the database to snapshot_path on
-config's autosave_interval (every 5 minutes if unset), and once more
on shutdown.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagAutosave, "autosave", false, "periodically save the database per -config's autosave_interval")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(flagConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flagAutosave && cfg.SnapshotPath == "" {
		return fmt.Errorf("-autosave requires snapshot_path in -config")
	}

	db, err := sql.Open("forgedb", flagDSN)
	if err != nil {
		return fmt.Errorf("opening %q: %w", flagDSN, err)
	}
	defer db.Close()
	logger.Info("opened database", "dsn", flagDSN)

	saveStmt := fmt.Sprintf("SAVE DATABASE '%s'", cfg.SnapshotPath)

	var c *cron.Cron
	if flagAutosave {
		spec := cfg.AutosaveInterval
		if spec == "" {
			spec = "@every 5m"
		}
		c = cron.New()
		id, err := c.AddFunc(spec, func() {
			if _, err := db.Exec(saveStmt); err != nil {
				logger.Error("autosave failed", "err", err)
				return
			}
			logger.Info("autosave complete")
		})
		if err != nil {
			return fmt.Errorf("scheduling autosave %q: %w", spec, err)
		}
		c.Start()
		defer c.Stop()
		logger.Info("autosave scheduled", "spec", spec, "entry", id)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	if flagAutosave {
		if _, err := db.Exec(saveStmt); err != nil {
			logger.Error("final save failed", "err", err)
		}
	}
	return nil
}
