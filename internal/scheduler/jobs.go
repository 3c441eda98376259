/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_lineup/internal/telemetry"
)

// Job actions.
const (
	ActionBox      = "box"
	ActionPreShow  = "preshow"
	ActionShow     = "show"
	ActionGenerate = "generate"
)

// Job is a command line of this binary to run at a given instant.
type Job struct {
	Action string
	Args   []string
}

// PlayJob builds the payload that pushes one segment at instant at.
func PlayJob(action, lineupID, canonicalID string, at time.Time) Job {
	return Job{
		Action: action,
		Args:   []string{"play", action, "--lineup", lineupID, "--id", canonicalID, "--at", at.Format(time.RFC3339)},
	}
}

// JobScheduler registers and cancels timed jobs with an external scheduler.
type JobScheduler interface {
	Schedule(ctx context.Context, at time.Time, job Job) (string, error)
	Cancel(ctx context.Context, handle string) error
}

// Runner executes a command with stdin and returns its combined output.
type Runner func(ctx context.Context, stdin string, name string, args ...string) (string, error)

func execRunner(ctx context.Context, stdin string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

// AtScheduler registers jobs with at(1). at has minute granularity, so jobs
// carry --at and sleep until the exact instant themselves.
type AtScheduler struct {
	binary string
	global []string
	run    Runner
	logger zerolog.Logger
}

// AtOption configures an AtScheduler.
type AtOption func(*AtScheduler)

// WithRunner replaces command execution.
func WithRunner(r Runner) AtOption {
	return func(s *AtScheduler) { s.run = r }
}

// WithBinary sets the executable the jobs invoke.
func WithBinary(path string) AtOption {
	return func(s *AtScheduler) { s.binary = path }
}

// WithGlobalArgs adds arguments placed before every job's own, such as the
// env file the scheduling process was started with.
func WithGlobalArgs(args ...string) AtOption {
	return func(s *AtScheduler) { s.global = append(s.global, args...) }
}

// NewAtScheduler returns a scheduler whose jobs run the current executable.
func NewAtScheduler(logger zerolog.Logger, opts ...AtOption) *AtScheduler {
	s := &AtScheduler{run: execRunner, logger: logger.With().Str("component", "at_scheduler").Logger()}
	if exe, err := os.Executable(); err == nil {
		s.binary = exe
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AtScheduler) Schedule(ctx context.Context, at time.Time, job Job) (string, error) {
	if s.binary == "" {
		return "", errors.New("at scheduler: unknown executable")
	}
	argv := append([]string{s.binary}, s.global...)
	script := shellJoin(append(argv, job.Args...)) + "\n"
	out, err := s.run(ctx, script, "at", "-t", at.Local().Format("200601021504.05"))
	if err != nil {
		telemetry.JobOperationsTotal.WithLabelValues("schedule", "error").Inc()
		return "", fmt.Errorf("at -t %s: %w: %s", at.Format(time.RFC3339), err, strings.TrimSpace(out))
	}
	handle, err := parseAtHandle(out)
	if err != nil {
		telemetry.JobOperationsTotal.WithLabelValues("schedule", "error").Inc()
		return "", err
	}
	telemetry.JobOperationsTotal.WithLabelValues("schedule", "ok").Inc()
	s.logger.Info().Str("action", job.Action).Str("handle", handle).Time("at", at).Msg("registered at job")
	return handle, nil
}

func (s *AtScheduler) Cancel(ctx context.Context, handle string) error {
	if out, err := s.run(ctx, "", "atrm", handle); err != nil {
		telemetry.JobOperationsTotal.WithLabelValues("cancel", "error").Inc()
		return fmt.Errorf("atrm %s: %w: %s", handle, err, strings.TrimSpace(out))
	}
	telemetry.JobOperationsTotal.WithLabelValues("cancel", "ok").Inc()
	s.logger.Info().Str("handle", handle).Msg("cancelled at job")
	return nil
}

// parseAtHandle finds the job number in at's "job 12 at Wed May  1 06:00:00 2024".
func parseAtHandle(out string) (string, error) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "job" {
			if _, err := strconv.Atoi(fields[1]); err == nil {
				return fields[1], nil
			}
		}
	}
	return "", fmt.Errorf("no job number in at output %q", strings.TrimSpace(out))
}

// shellJoin single-quotes every argument for /bin/sh.
func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}

// LogScheduler only logs. Dry runs and hosts without at use it.
type LogScheduler struct {
	logger zerolog.Logger

	mu   sync.Mutex
	next int
	Jobs map[string]Job
}

// NewLogScheduler returns a log-only scheduler.
func NewLogScheduler(logger zerolog.Logger) *LogScheduler {
	return &LogScheduler{
		logger: logger.With().Str("component", "log_scheduler").Logger(),
		Jobs:   make(map[string]Job),
	}
}

func (s *LogScheduler) Schedule(_ context.Context, at time.Time, job Job) (string, error) {
	s.mu.Lock()
	s.next++
	handle := "log-" + strconv.Itoa(s.next)
	s.Jobs[handle] = job
	s.mu.Unlock()
	s.logger.Info().Str("action", job.Action).Strs("args", job.Args).Time("at", at).Str("handle", handle).Msg("would register job")
	return handle, nil
}

func (s *LogScheduler) Cancel(_ context.Context, handle string) error {
	s.mu.Lock()
	delete(s.Jobs, handle)
	s.mu.Unlock()
	s.logger.Info().Str("handle", handle).Msg("would cancel job")
	return nil
}
