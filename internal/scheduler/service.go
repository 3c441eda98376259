/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduler registers the timed jobs that play a compiled lineup and
// keeps them in step when the lineup is regenerated.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_lineup/internal/day"
	"github.com/friendsincode/grimnir_lineup/internal/lineup"
	"github.com/friendsincode/grimnir_lineup/internal/telemetry"
)

// NextJobLockFile guards against registering the next generation run twice.
const NextJobLockFile = "run/lineup-generator-next-job.lock"

// LineupStore loads and saves scheduled lineups.
type LineupStore interface {
	GetScheduledLineup(ctx context.Context, date string) (*lineup.Lineup, error)
	SaveScheduledLineup(ctx context.Context, l *lineup.Lineup) error
}

// Report summarizes one scheduling pass.
type Report struct {
	Registered int
	Carried    int
	Cancelled  int
	Skipped    int
	Failed     []string
}

// Service diffs a lineup against its previously scheduled version and
// registers, keeps or cancels jobs accordingly.
type Service struct {
	jobs    JobScheduler
	store   LineupStore
	workDir string
	refLoc  *time.Location
	now     func() time.Time
	logger  zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs the scheduler service.
func New(jobs JobScheduler, store LineupStore, workDir string, refLoc *time.Location, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		jobs:    jobs,
		store:   store,
		workDir: workDir,
		refLoc:  refLoc,
		now:     time.Now,
		logger:  logger.With().Str("component", "scheduler").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// pending is one job the new lineup wants.
type pending struct {
	owner  string // canonical id
	action string
	at     time.Time
	meta   **lineup.SchedulerMeta
}

// Schedule registers jobs for l and saves it with their handles. A job whose
// owner kept its canonical id and instant is carried over untouched.
func (s *Service) Schedule(ctx context.Context, l *lineup.Lineup) (Report, error) {
	ctx, span := telemetry.StartSpan(ctx, "scheduler.Schedule")
	defer span.End()

	var report Report
	prev, err := s.store.GetScheduledLineup(ctx, l.LineupID)
	if err != nil {
		telemetry.RecordError(span, err)
		return report, fmt.Errorf("load previous lineup: %w", err)
	}
	previous := previousJobs(prev)
	now := s.now()
	kept := make(map[string]bool)

	for _, p := range wanted(l) {
		key := p.owner + "#" + p.action
		old, hadOld := previous[key]

		if hadOld && old.At.Equal(p.at) {
			appendJob(p.meta, old)
			kept[old.Handle] = true
			report.Carried++
			telemetry.JobOperationsTotal.WithLabelValues("carry", "ok").Inc()
			continue
		}
		if !p.at.After(now) {
			s.logger.Debug().Str("id", p.owner).Str("action", p.action).Time("at", p.at).Msg("instant already passed, not registering")
			report.Skipped++
			continue
		}

		handle, err := s.jobs.Schedule(ctx, p.at, PlayJob(p.action, l.LineupID, p.owner, p.at))
		if err != nil {
			s.logger.Error().Err(err).Str("id", p.owner).Str("action", p.action).Msg("failed to register job")
			report.Failed = append(report.Failed, p.owner)
			continue
		}
		appendJob(p.meta, lineup.ScheduledJob{Action: p.action, Handle: handle, At: p.at})
		report.Registered++
	}

	for _, old := range previous {
		if kept[old.Handle] || !old.At.After(now) {
			continue
		}
		if err := s.jobs.Cancel(ctx, old.Handle); err != nil {
			s.logger.Warn().Err(err).Str("handle", old.Handle).Msg("failed to cancel stale job")
			continue
		}
		report.Cancelled++
	}

	if err := s.store.SaveScheduledLineup(ctx, l); err != nil {
		telemetry.RecordError(span, err)
		return report, fmt.Errorf("save scheduled lineup: %w", err)
	}

	s.logger.Info().
		Str("lineup", l.LineupID).
		Int("registered", report.Registered).
		Int("carried", report.Carried).
		Int("cancelled", report.Cancelled).
		Int("skipped", report.Skipped).
		Int("failed", len(report.Failed)).
		Msg("lineup scheduled")
	return report, nil
}

// wanted lists the jobs l needs. Boxes get a job when they hold a program
// that plays as part of the box; interrupting programs get their own
// pre-show and show jobs.
func wanted(l *lineup.Lineup) []pending {
	var out []pending
	for i := range l.Boxes {
		box := &l.Boxes[i]
		box.SchedulerMeta = nil

		for j := range box.Programs {
			if !box.Programs[j].Interrupting() {
				out = append(out, pending{owner: l.BoxID(i), action: ActionBox, at: box.StartTime, meta: &box.SchedulerMeta})
				break
			}
		}

		for j := range box.Programs {
			prog := &box.Programs[j]
			prog.SchedulerMeta = nil
			if !prog.Interrupting() {
				continue
			}
			if !prog.PreShow.Empty() {
				out = append(out, pending{owner: l.ProgramID(i, j), action: ActionPreShow, at: prog.PreShow.StartTime, meta: &prog.SchedulerMeta})
			}
			if !prog.Show.Empty() {
				out = append(out, pending{owner: l.ProgramID(i, j), action: ActionShow, at: prog.Show.StartTime, meta: &prog.SchedulerMeta})
			}
		}
	}
	return out
}

func previousJobs(prev *lineup.Lineup) map[string]lineup.ScheduledJob {
	out := make(map[string]lineup.ScheduledJob)
	if prev == nil {
		return out
	}
	for i := range prev.Boxes {
		box := &prev.Boxes[i]
		if box.SchedulerMeta != nil {
			for _, j := range box.SchedulerMeta.Jobs {
				out[prev.BoxID(i)+"#"+j.Action] = j
			}
		}
		for k := range box.Programs {
			if meta := box.Programs[k].SchedulerMeta; meta != nil {
				for _, j := range meta.Jobs {
					out[prev.ProgramID(i, k)+"#"+j.Action] = j
				}
			}
		}
	}
	return out
}

func appendJob(meta **lineup.SchedulerMeta, job lineup.ScheduledJob) {
	if *meta == nil {
		*meta = &lineup.SchedulerMeta{}
	}
	(*meta).Jobs = append((*meta).Jobs, job)
}

// ScheduleNextRun registers tomorrow's generation run at the next midnight of
// the reference zone. It returns false when that run is already registered.
func (s *Service) ScheduleNextRun(ctx context.Context) (bool, error) {
	at := day.NextMidnight(s.now(), s.refLoc)
	date := day.Format(at)
	lockPath := filepath.Join(s.workDir, NextJobLockFile)

	if data, err := os.ReadFile(lockPath); err == nil && strings.TrimSpace(string(data)) == date {
		s.logger.Debug().Str("date", date).Msg("next run already registered")
		return false, nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("read next-job lock: %w", err)
	}

	handle, err := s.jobs.Schedule(ctx, at, Job{Action: ActionGenerate, Args: []string{"generate"}})
	if err != nil {
		return false, fmt.Errorf("register next run: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return true, fmt.Errorf("create run directory: %w", err)
	}
	if err := renameio.WriteFile(lockPath, []byte(date+"\n"), 0o644); err != nil {
		return true, fmt.Errorf("write next-job lock: %w", err)
	}
	s.logger.Info().Str("date", date).Str("handle", handle).Time("at", at).Msg("registered next generation run")
	return true, nil
}
