/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_lineup/internal/notify"
	"github.com/friendsincode/grimnir_lineup/internal/telemetry"
)

// Outcome says what a now-playing report matched.
type Outcome string

const (
	OutcomePreShow Outcome = "preshow"
	OutcomeBox     Outcome = "box"
	OutcomeShow    Outcome = "show"
	OutcomeStopped Outcome = "stopped"
	OutcomeIgnored Outcome = "ignored"
)

// Synchronizer matches now-playing reports against the shadow queue heads.
// All state is reread from disk on every report.
type Synchronizer struct {
	paths     Paths
	sentinel  string
	stationID string
	hook      notify.Hook
	now       func() time.Time
	logger    zerolog.Logger
}

// NewSynchronizer returns a synchronizer. hook may be nil.
func NewSynchronizer(paths Paths, sentinel, stationID string, hook notify.Hook, logger zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		paths:     paths,
		sentinel:  sentinel,
		stationID: stationID,
		hook:      hook,
		now:       time.Now,
		logger:    logger.With().Str("component", "synchronizer").Logger(),
	}
}

// NowPlaying handles one report. Queues are checked in priority order:
// interrupting pre-show, box, interrupting show.
func (s *Synchronizer) NowPlaying(ctx context.Context, path string) (Outcome, error) {
	queues := []struct {
		outcome Outcome
		path    string
	}{
		{OutcomePreShow, s.paths.PreShowQueue()},
		{OutcomeBox, s.paths.BoxQueue()},
		{OutcomeShow, s.paths.ShowQueue()},
	}

	for _, qd := range queues {
		q, err := LoadQueue(qd.path)
		if err != nil {
			return "", err
		}
		head, ok := q.Head()
		if !ok || head.ClipAbsolutePath != path {
			continue
		}
		q.Pop()
		if err := q.Save(); err != nil {
			return "", err
		}
		if head.MarksStartOfProgram != "" {
			if err := s.programStarted(ctx, head); err != nil {
				return "", err
			}
		}
		s.logger.Debug().Str("clip", path).Str("queue", string(qd.outcome)).Msg("clip started")
		telemetry.ClipReportsTotal.WithLabelValues(string(qd.outcome)).Inc()
		return qd.outcome, nil
	}

	if s.sentinel != "" && strings.Contains(path, s.sentinel) {
		st, err := LoadStatus(s.paths)
		if err != nil {
			return "", err
		}
		st.IsCurrentlyPlaying = false
		if err := SaveStatus(s.paths, st); err != nil {
			return "", err
		}
		s.logger.Info().Msg("no program on air")
		telemetry.ClipReportsTotal.WithLabelValues(string(OutcomeStopped)).Inc()
		return OutcomeStopped, nil
	}

	telemetry.ClipReportsTotal.WithLabelValues(string(OutcomeIgnored)).Inc()
	return OutcomeIgnored, nil
}

func (s *Synchronizer) programStarted(ctx context.Context, e Entry) error {
	st, err := LoadStatus(s.paths)
	if err != nil {
		return err
	}
	st.IsCurrentlyPlaying = true
	st.MostRecentProgram = e.MarksStartOfProgram
	st.StartedProgramTitle = e.StartedProgramTitle
	if err := SaveStatus(s.paths, st); err != nil {
		return fmt.Errorf("save live status: %w", err)
	}
	s.logger.Info().Str("program", e.MarksStartOfProgram).Str("title", e.StartedProgramTitle).Msg("program started")

	if s.hook == nil {
		return nil
	}
	ev := notify.ProgramStart{
		StationID:   s.stationID,
		CanonicalID: e.MarksStartOfProgram,
		Title:       e.StartedProgramTitle,
		StartedAt:   s.now().UTC(),
	}
	// The clip is already on air; a lost notification must not undo the pop.
	if err := s.hook.ProgramStarted(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("program", e.MarksStartOfProgram).Msg("program start notification failed")
	}
	return nil
}
