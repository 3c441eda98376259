/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/grimnir_lineup/internal/db"
)

var migratePruneDays int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().IntVar(&migratePruneDays, "prune-days", 0, "Also delete plans and lineups older than this many days (0 keeps everything)")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	database, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close(database)

	if err := db.Migrate(database, logger); err != nil {
		return err
	}
	if migratePruneDays > 0 {
		return db.PruneHistory(database, time.Now(), migratePruneDays, logger)
	}
	return nil
}
