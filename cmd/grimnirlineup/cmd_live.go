/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/grimnir_lineup/internal/notify"
	"github.com/friendsincode/grimnir_lineup/internal/playback"
	"github.com/friendsincode/grimnir_lineup/internal/telemetry"
)

var notifyClipStartCmd = &cobra.Command{
	Use:   "notify-clip-start PATH",
	Short: "Report the clip the engine just started",
	Long:  "Called by the engine whenever a track starts. Keeps the shadow queues and the live status in step with what is on air.",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotifyClipStart,
}

var preShowFillerCmd = &cobra.Command{
	Use:   "preshow-filler",
	Short: "Print the filler clip of the pre-show in progress",
	Args:  cobra.NoArgs,
	RunE:  runPreShowFiller,
}

var resetQueuesCmd = &cobra.Command{
	Use:   "reset-queues",
	Short: "Clear the shadow queues",
	Long:  "Run after the engine restarts; it comes back with empty queues.",
	Args:  cobra.NoArgs,
	RunE:  runResetQueues,
}

func init() {
	rootCmd.AddCommand(notifyClipStartCmd, preShowFillerCmd, resetQueuesCmd)
}

func runNotifyClipStart(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	var hook notify.Hook = notify.NewLogHook(logger)
	if cfg.NATSURL != "" {
		hook = notify.NewNATSHook(cfg.NATSURL, cfg.NATSSubject, logger)
	}
	synchronizer := playback.NewSynchronizer(paths(), cfg.NoProgramSentinel, cfg.StationID, hook, logger)

	outcome, err := synchronizer.NowPlaying(ctx, args[0])
	if err == nil {
		logger.Debug().Str("path", args[0]).Str("outcome", string(outcome)).Msg("clip reported")
	}
	if perr := telemetry.Push(ctx, cfg.PushgatewayURL, "grimnir_lineup_live", cfg.StationID); perr != nil {
		logger.Warn().Err(perr).Msg("failed to push metrics")
	}
	return err
}

func runPreShowFiller(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	path, err := playback.FillerPath(paths())
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}

func runResetQueues(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if err := playback.Reset(paths()); err != nil {
		return err
	}
	logger.Info().Msg("shadow queues cleared")
	return nil
}
