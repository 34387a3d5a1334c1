package main

import (
	"fmt"

	"github.com/UnknownOlympus/realty-atlas/internal/config"
	"github.com/UnknownOlympus/realty-atlas/internal/repository"
	"github.com/UnknownOlympus/realty-atlas/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the manifest, the map data and the monitoring endpoints",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		opts := server.Options{
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			DataDir:      cfg.DataDir,
			ConsumerDir:  cfg.ConsumerDir,
		}

		var store server.Pinger
		if cfg.Cache.Driver == config.CacheDriverPostgres {
			pool, err := repository.NewDatabase(ctx,
				cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
			)
			if err != nil {
				return fmt.Errorf("failed to connect to DB: %w", err)
			}
			defer pool.Close()
			store = pool
		}

		router := server.NewRouter(log, reg, store, opts)
		log.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

		if err := server.Run(ctx, log, router, opts); err != nil {
			return err
		}

		log.InfoContext(ctx, "Application stopped gracefully.")
		return nil
	},
}
