/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package generator runs one lineup generation: plan the coming days, compile
// the target date and hand it to the live scheduler.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/friendsincode/grimnir_lineup/internal/day"
	"github.com/friendsincode/grimnir_lineup/internal/lineup"
	"github.com/friendsincode/grimnir_lineup/internal/rotation"
	"github.com/friendsincode/grimnir_lineup/internal/runlock"
	"github.com/friendsincode/grimnir_lineup/internal/scheduler"
	"github.com/friendsincode/grimnir_lineup/internal/telemetry"
)

// PlanStore reads and writes plans.
type PlanStore interface {
	lineup.PlanSource
	SaveLineupPlan(ctx context.Context, plan *lineup.LineupPlan) error
}

// LiveScheduler registers a compiled lineup's jobs.
type LiveScheduler interface {
	Schedule(ctx context.Context, l *lineup.Lineup) (scheduler.Report, error)
	ScheduleNextRun(ctx context.Context) (bool, error)
}

// Locker serializes runs per station.
type Locker interface {
	Acquire(ctx context.Context, stationID string) (*runlock.Lock, error)
}

// Options select what one run does.
type Options struct {
	TargetDate    string // empty means today in the reference zone
	PlanAheadDays int
	NoPlanning    bool // reuse the stored plan of the target date
	NoSchedule    bool
	Test          bool // plan and compile the target date only, persist nothing
}

// Report describes a finished run.
type Report struct {
	RunID             string
	TargetDate        string
	Planned           []string
	Lineup            *lineup.Lineup
	Resolutions       []lineup.Resolution
	Schedule          *scheduler.Report
	NextRunRegistered bool
}

// Deps are the collaborators of a Generator.
type Deps struct {
	StationID         string
	LoadTemplate      func() (*lineup.LineupTemplate, error)
	Times             lineup.StartTimes
	Plans             PlanStore
	Rotation          rotation.Store
	Scheduler         LiveScheduler
	Lock              Locker
	ReferenceLocation *time.Location
	ReplayTitleSuffix string
	PushgatewayURL    string
	Now               func() time.Time
}

// Generator runs generations for one station.
type Generator struct {
	deps   Deps
	logger zerolog.Logger
}

// New returns a generator.
func New(deps Deps, logger zerolog.Logger) *Generator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ReferenceLocation == nil {
		deps.ReferenceLocation = time.UTC
	}
	return &Generator{deps: deps, logger: logger.With().Str("component", "generator").Logger()}
}

// Run executes one generation.
func (g *Generator) Run(ctx context.Context, opts Options) (*Report, error) {
	started := time.Now()
	report := &Report{RunID: uuid.NewString(), TargetDate: opts.TargetDate}
	if report.TargetDate == "" {
		report.TargetDate = day.Today(g.deps.Now(), g.deps.ReferenceLocation)
	}
	if !day.Valid(report.TargetDate) {
		return nil, fmt.Errorf("invalid target date %q", report.TargetDate)
	}
	logger := g.logger.With().Str("run_id", report.RunID).Str("target", report.TargetDate).Logger()

	ctx, span := telemetry.StartSpan(ctx, "generator.Run",
		attribute.String("station_id", g.deps.StationID),
		attribute.String("target_date", report.TargetDate),
		attribute.Bool("test", opts.Test),
	)
	defer span.End()

	err := g.run(ctx, opts, report, logger)
	telemetry.GenerationDuration.Observe(time.Since(started).Seconds())
	switch {
	case errors.Is(err, runlock.ErrLocked):
		telemetry.GenerationRunsTotal.WithLabelValues("locked").Inc()
	case err != nil:
		telemetry.GenerationRunsTotal.WithLabelValues("failed").Inc()
	default:
		telemetry.GenerationRunsTotal.WithLabelValues("success").Inc()
	}
	if err != nil {
		telemetry.RecordError(span, err)
		logger.Error().Err(err).Msg("generation failed")
	}

	if !opts.Test {
		if perr := telemetry.Push(ctx, g.deps.PushgatewayURL, "grimnir_lineup_generator", g.deps.StationID); perr != nil {
			logger.Warn().Err(perr).Msg("failed to push metrics")
		}
	}
	if err != nil {
		return report, err
	}
	logger.Info().Dur("took", time.Since(started)).Strs("planned", report.Planned).Msg("generation finished")
	return report, nil
}

func (g *Generator) run(ctx context.Context, opts Options, report *Report, logger zerolog.Logger) error {
	lock, err := g.deps.Lock.Acquire(ctx, g.deps.StationID)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Err(err).Msg("failed to release run lock")
		}
	}()

	tmpl, err := g.deps.LoadTemplate()
	if err != nil {
		return fmt.Errorf("load template: %w", err)
	}
	if err := tmpl.Validate(g.deps.Times); err != nil {
		return err
	}

	plans, rotations := g.deps.Plans, g.deps.Rotation
	if opts.Test {
		plans = newOverlayPlans(plans)
		rotations = rotation.NewMemoryStore(rotations)
	}
	iterator := rotation.New(rotations, g.deps.ReferenceLocation, logger, rotation.WithClock(g.deps.Now))
	planner := lineup.NewPlanner(g.deps.Times, iterator, plans, logger, lineup.WithReplayTitleSuffix(g.deps.ReplayTitleSuffix))

	target, err := g.targetPlan(ctx, opts, planner, plans, tmpl, report.TargetDate)
	if err != nil {
		return err
	}
	report.Planned = append(report.Planned, report.TargetDate)

	if !opts.Test {
		for i := 1; i <= opts.PlanAheadDays; i++ {
			date, err := day.Add(report.TargetDate, i)
			if err != nil {
				return err
			}
			if _, err := g.planAndSave(ctx, planner, plans, tmpl, date); err != nil {
				return err
			}
			report.Planned = append(report.Planned, date)
		}
	}

	compiled, resolutions, err := lineup.CompileWithResolutions(target)
	if err != nil {
		return fmt.Errorf("compile %s: %w", report.TargetDate, err)
	}
	report.Lineup, report.Resolutions = compiled, resolutions
	telemetry.BoxesCompiled.Set(float64(len(compiled.Boxes)))
	for _, r := range resolutions {
		telemetry.FloatingResolutionsTotal.WithLabelValues(string(r.Action)).Inc()
		logger.Info().Str("floating", r.FloatingBoxID).Str("neighbor", r.NeighborBoxID).Str("action", string(r.Action)).Dur("amount", r.Amount).Msg("floating box resolved")
	}

	if opts.Test || opts.NoSchedule {
		return nil
	}

	sr, err := g.deps.Scheduler.Schedule(ctx, compiled)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", report.TargetDate, err)
	}
	report.Schedule = &sr

	registered, err := g.deps.Scheduler.ScheduleNextRun(ctx)
	if err != nil {
		// The lineup is live; tomorrow's run can still be started by hand.
		logger.Error().Err(err).Msg("failed to register next run")
	}
	report.NextRunRegistered = registered
	return nil
}

func (g *Generator) targetPlan(ctx context.Context, opts Options, planner *lineup.Planner, plans PlanStore, tmpl *lineup.LineupTemplate, date string) (*lineup.LineupPlan, error) {
	if opts.NoPlanning {
		plan, err := plans.GetLineupPlan(ctx, date)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, fmt.Errorf("no stored plan for %s", date)
		}
		return plan, nil
	}
	return g.planAndSave(ctx, planner, plans, tmpl, date)
}

// planAndSave plans date and stores it before the next date is planned, so
// replays of it can find it.
func (g *Generator) planAndSave(ctx context.Context, planner *lineup.Planner, plans PlanStore, tmpl *lineup.LineupTemplate, date string) (*lineup.LineupPlan, error) {
	plan, err := planner.Plan(ctx, tmpl, date)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", date, err)
	}
	if err := plans.SaveLineupPlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}
