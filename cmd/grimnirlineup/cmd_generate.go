/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/grimnir_lineup/internal/config"
	"github.com/friendsincode/grimnir_lineup/internal/db"
	"github.com/friendsincode/grimnir_lineup/internal/generator"
	"github.com/friendsincode/grimnir_lineup/internal/lineup"
	"github.com/friendsincode/grimnir_lineup/internal/runlock"
	"github.com/friendsincode/grimnir_lineup/internal/scheduler"
)

var (
	genTargetDate string
	genPlanAhead  int
	genNoPlanning bool
	genNoSchedule bool
	genNoAtJob    bool
	genTest       bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Plan, compile and schedule a lineup",
	Long: `Plan the target date and the following days, compile the target date and
register its timed jobs.

Examples:
  # Regular nightly run
  grimnirlineup generate

  # Rebuild a stored plan without re-planning it
  grimnirlineup generate --target-date 2024-05-01 --no-planning

  # Print what would be compiled, touching nothing
  grimnirlineup generate --test
`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genTargetDate, "target-date", "", "Date to compile (YYYY-MM-DD, default today in the reference zone)")
	generateCmd.Flags().IntVar(&genPlanAhead, "plan-ahead-days", -1, "Days to plan after the target date (default from config)")
	generateCmd.Flags().BoolVar(&genNoPlanning, "no-planning", false, "Compile the stored plan of the target date")
	generateCmd.Flags().BoolVar(&genNoSchedule, "no-schedule", false, "Do not register jobs")
	generateCmd.Flags().BoolVar(&genNoAtJob, "no-at-job", false, "Log jobs instead of registering them with at")
	generateCmd.Flags().BoolVar(&genTest, "test", false, "Dry run: persist nothing and print the compiled lineup")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	defer startTracing(ctx, "grimnir-lineup-generator")()

	database, st, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close(database)
	if err := db.Migrate(database, logger); err != nil {
		return err
	}

	locker, err := runlock.New(ctx, runlock.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.RunLockTTL,
	}, logger)
	if err != nil {
		return err
	}
	defer locker.Close()

	var atOpts []scheduler.AtOption
	if envFile != "" {
		atOpts = append(atOpts, scheduler.WithGlobalArgs("--env-file", envFile))
	}
	var jobs scheduler.JobScheduler = scheduler.NewAtScheduler(logger, atOpts...)
	if genNoAtJob || cfg.JobBackend == config.JobBackendLog {
		jobs = scheduler.NewLogScheduler(logger)
	}
	live := scheduler.New(jobs, st, cfg.WorkDir, cfg.ReferenceLocation(), logger)

	gen := generator.New(generator.Deps{
		StationID:         cfg.StationID,
		LoadTemplate:      func() (*lineup.LineupTemplate, error) { return lineup.LoadTemplate(cfg.TemplatePath) },
		Times:             startTimes(),
		Plans:             st,
		Rotation:          st,
		Scheduler:         live,
		Lock:              locker,
		ReferenceLocation: cfg.ReferenceLocation(),
		ReplayTitleSuffix: cfg.ReplayTitleSuffix,
		PushgatewayURL:    cfg.PushgatewayURL,
	}, logger)

	planAhead := cfg.PlanAheadDays
	if genPlanAhead >= 0 {
		planAhead = genPlanAhead
	}
	report, err := gen.Run(ctx, generator.Options{
		TargetDate:    genTargetDate,
		PlanAheadDays: planAhead,
		NoPlanning:    genNoPlanning,
		NoSchedule:    genNoSchedule,
		Test:          genTest,
	})
	if err != nil {
		return err
	}

	if genTest {
		out, err := json.MarshalIndent(report.Lineup, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	// History older than a month is never replayed.
	if err := db.PruneHistory(database, time.Now(), 31+planAhead, logger); err != nil {
		logger.Warn().Err(err).Msg("prune history failed")
	}
	return nil
}
