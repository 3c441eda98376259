/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/grimnir_lineup/internal/db"
	"github.com/friendsincode/grimnir_lineup/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only status API",
	Long:  "Expose scheduled lineups, plans, live status, health and metrics over HTTP.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	defer startTracing(ctx, "grimnir-lineup-api")()

	logger.Info().Msg("Grimnir Lineup status API starting")

	database, st, err := openStore()
	if err != nil {
		return err
	}
	if err := db.Migrate(database, logger); err != nil {
		db.Close(database)
		return err
	}

	srv := server.New(server.Config{
		Addr:      fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		StationID: cfg.StationID,
		Paths:     paths(),
	}, st, logger)
	srv.DeferClose(func() error { return db.Close(database) })

	if err := srv.ListenAndServe(ctx); err != nil {
		return err
	}
	logger.Info().Msg("Grimnir Lineup status API stopped")
	return nil
}
