/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/grimnir_lineup/internal/db"
	"github.com/friendsincode/grimnir_lineup/internal/engine"
	"github.com/friendsincode/grimnir_lineup/internal/playback"
	"github.com/friendsincode/grimnir_lineup/internal/scheduler"
)

var (
	playLineup string
	playID     string
	playAt     string
)

var playCmd = &cobra.Command{
	Use:       "play box|preshow|show",
	Short:     "Push a scheduled segment into the playback engine",
	Long:      "Run by timed jobs: waits for the scheduled instant, then pushes the box or interrupting program into the engine queues.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{scheduler.ActionBox, scheduler.ActionPreShow, scheduler.ActionShow},
	RunE:      runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playLineup, "lineup", "", "Lineup date (YYYY-MM-DD)")
	playCmd.Flags().StringVar(&playID, "id", "", "Canonical id of the box or program")
	playCmd.Flags().StringVar(&playAt, "at", "", "Scheduled instant (RFC3339); the command waits for it")
	_ = playCmd.MarkFlagRequired("lineup")
	_ = playCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	defer startTracing(ctx, "grimnir-lineup-play")()

	database, st, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close(database)

	ch := engine.NewTelnet(engine.Config{
		Addr:     cfg.EngineAddr,
		Attempts: uint(cfg.EngineConnectAttempts),
		Settle:   cfg.EngineSettle,
	}, logger)
	trigger := playback.NewTrigger(paths(), ch, st, cfg.MediaRoot, logger)

	if playAt != "" {
		at, err := time.Parse(time.RFC3339, playAt)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		if err := trigger.Wait(ctx, at); err != nil {
			return err
		}
	}

	switch args[0] {
	case scheduler.ActionBox:
		return trigger.PlayBox(ctx, playLineup, playID)
	case scheduler.ActionPreShow:
		return trigger.PlayPreShow(ctx, playLineup, playID)
	default:
		return trigger.PlayShow(ctx, playLineup, playID)
	}
}
