/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_lineup/internal/config"
	"github.com/friendsincode/grimnir_lineup/internal/db"
	"github.com/friendsincode/grimnir_lineup/internal/logging"
	"github.com/friendsincode/grimnir_lineup/internal/playback"
	"github.com/friendsincode/grimnir_lineup/internal/starttime"
	"github.com/friendsincode/grimnir_lineup/internal/store"
	"github.com/friendsincode/grimnir_lineup/internal/telemetry"
	"github.com/friendsincode/grimnir_lineup/internal/version"
)

var (
	logger  zerolog.Logger
	cfg     *config.Config
	envFile string
)

var rootCmd = &cobra.Command{
	Use:           "grimnirlineup",
	Short:         "Grimnir Lineup - template driven radio lineup scheduler",
	Long:          "Grimnir Lineup plans daily radio lineups from a template, schedules them as timed jobs and feeds the playback engine when they fire.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Environment file to load before reading configuration (default .env if present)")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.SetupWithOptions(cfg.Environment, logging.Options{Level: cfg.LogLevel, File: cfg.LogFile}).
		With().Str("station_id", cfg.StationID).Logger()
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}
	return nil
}

// startTracing installs the tracer provider; the returned func flushes it.
func startTracing(ctx context.Context, service string) func() {
	tp, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:    service,
		ServiceVersion: version.Version,
		StationID:      cfg.StationID,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("tracing unavailable")
		return func() {}
	}
	return func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// openStore connects to the database and scopes a store to the station.
func openStore() (*gorm.DB, *store.Store, error) {
	database, err := db.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	return database, store.New(database, cfg.StationID), nil
}

func startTimes() *starttime.Registry {
	reg := starttime.NewRegistry()
	reg.Register("Static", starttime.NewStatic(cfg.Location()))
	oracle := starttime.NewOracle(starttime.OracleConfig{
		BaseURL:   cfg.OracleURL,
		Method:    cfg.OracleMethod,
		Latitude:  cfg.Latitude,
		Longitude: cfg.Longitude,
		Location:  cfg.Location(),
		RPS:       cfg.OracleRPS,
	}, logger)
	reg.Register("Oracle", oracle)
	// Older templates name the method after the service it first used.
	reg.Register("Adhan", oracle)
	return reg
}

func paths() playback.Paths {
	return playback.Paths{WorkDir: cfg.WorkDir}
}
