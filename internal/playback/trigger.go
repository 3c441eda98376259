/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_lineup/internal/engine"
	"github.com/friendsincode/grimnir_lineup/internal/lineup"
)

// MaxWait bounds how long a triggered job sleeps for its exact instant.
const MaxWait = 2 * time.Minute

// LineupSource loads the scheduled lineup of a date.
type LineupSource interface {
	GetScheduledLineup(ctx context.Context, date string) (*lineup.Lineup, error)
}

// Trigger pushes lineup segments into the engine and records them in the
// shadow queues.
type Trigger struct {
	paths     Paths
	engine    engine.Channel
	lineups   LineupSource
	mediaRoot string
	now       func() time.Time
	logger    zerolog.Logger
}

// NewTrigger returns a trigger. Relative media paths are resolved against
// mediaRoot.
func NewTrigger(paths Paths, ch engine.Channel, lineups LineupSource, mediaRoot string, logger zerolog.Logger) *Trigger {
	return &Trigger{
		paths:     paths,
		engine:    ch,
		lineups:   lineups,
		mediaRoot: mediaRoot,
		now:       time.Now,
		logger:    logger.With().Str("component", "trigger").Logger(),
	}
}

// Wait sleeps until at. Jobs fire on minute boundaries, so the sleep is short;
// anything beyond MaxWait means the job fired far too early and is not waited.
func (t *Trigger) Wait(ctx context.Context, at time.Time) error {
	d := at.Sub(t.now())
	if d <= 0 {
		return nil
	}
	if d > MaxWait {
		t.logger.Warn().Time("at", at).Dur("early_by", d).Msg("job fired too early, starting now")
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Trigger) resolve(ctx context.Context, date, canonicalID string) (*lineup.Box, *lineup.Program, error) {
	id, err := lineup.ParseCanonicalID(canonicalID)
	if err != nil {
		return nil, nil, err
	}
	if id.LineupID != date {
		return nil, nil, fmt.Errorf("%s does not belong to lineup %s", canonicalID, date)
	}
	l, err := t.lineups.GetScheduledLineup(ctx, date)
	if err != nil {
		return nil, nil, err
	}
	if l == nil {
		return nil, nil, fmt.Errorf("no scheduled lineup for %s", date)
	}
	return l.Resolve(id)
}

func (t *Trigger) mediaPath(m lineup.Media) string {
	if filepath.IsAbs(m.Path) || t.mediaRoot == "" {
		return m.Path
	}
	return filepath.Join(t.mediaRoot, m.Path)
}

// entries turns clips into queue entries. The first clip marks the program's
// start unless it resumes an interrupted clip.
func (t *Trigger) entries(programID, title string, clips []lineup.Clip, markFirst bool) []Entry {
	var out []Entry
	for i, c := range clips {
		if c.CueIn > 0 {
			continue
		}
		e := Entry{ClipAbsolutePath: t.mediaPath(c.Media)}
		if i == 0 && markFirst {
			e.MarksStartOfProgram = programID
			e.StartedProgramTitle = title
		}
		out = append(out, e)
	}
	return out
}

// PlayBox pushes the clips of every program of the box that plays as part of
// it. Clips resumed after an interrupt are skipped since the engine resumes
// them itself.
func (t *Trigger) PlayBox(ctx context.Context, date, canonicalID string) error {
	box, _, err := t.resolve(ctx, date, canonicalID)
	if err != nil {
		return err
	}
	var entries []Entry
	for _, p := range box.Programs {
		if p.Interrupting() {
			continue
		}
		pid := lineup.ProgramCanonicalID(date, box.BoxID, p.ProgramID)
		first := true
		for _, s := range []*lineup.Show{p.PreShow, p.Show} {
			if s.Empty() {
				continue
			}
			entries = append(entries, t.entries(pid, p.Title, s.Clips, first)...)
			first = false
		}
	}
	if len(entries) == 0 {
		t.logger.Warn().Str("box", canonicalID).Msg("box has nothing to play")
		return nil
	}

	cmds := make([]string, 0, len(entries))
	for _, e := range entries {
		cmds = append(cmds, engine.Push(engine.BoxQueue, e.ClipAbsolutePath))
	}
	return t.pushRecorded(ctx, t.paths.BoxQueue(), entries, cmds)
}

// PlayPreShow starts an interrupting program's pre-show and arms its filler.
func (t *Trigger) PlayPreShow(ctx context.Context, date, canonicalID string) error {
	_, p, err := t.resolve(ctx, date, canonicalID)
	if err != nil {
		return err
	}
	if p == nil || p.PreShow.Empty() {
		return fmt.Errorf("%s has no pre-show", canonicalID)
	}

	entries := t.entries(canonicalID, p.Title, p.PreShow.Clips, true)
	cmds := []string{engine.Skip(engine.InterruptingPreShowQueue)}
	for _, e := range entries {
		cmds = append(cmds, engine.Push(engine.InterruptingPreShowQueue, e.ClipAbsolutePath))
	}
	if f := p.PreShow.Filler; f != nil {
		path := t.mediaPath(f.Media)
		if err := writeFile(t.paths.FillerLock(), []byte(path)); err != nil {
			return err
		}
		cmds = append(cmds, engine.Push(engine.PreShowFillerQueue, path))
	}
	cmds = append(cmds, engine.SetVar(engine.PreShowEnabledVar, true))
	return t.pushRecorded(ctx, t.paths.PreShowQueue(), entries, cmds)
}

// PlayShow starts an interrupting program's show and disarms the pre-show
// filler.
func (t *Trigger) PlayShow(ctx context.Context, date, canonicalID string) error {
	_, p, err := t.resolve(ctx, date, canonicalID)
	if err != nil {
		return err
	}
	if p == nil || p.Show.Empty() {
		return fmt.Errorf("%s has no show", canonicalID)
	}

	// With a pre-show the program has already been announced.
	entries := t.entries(canonicalID, p.Title, p.Show.Clips, p.PreShow.Empty())
	cmds := make([]string, 0, len(entries)+2)
	for _, e := range entries {
		cmds = append(cmds, engine.Push(engine.InterruptingShowQueue, e.ClipAbsolutePath))
	}
	cmds = append(cmds,
		engine.SetVar(engine.PreShowEnabledVar, false),
		engine.RemoveAll(engine.PreShowFillerQueue),
	)
	if err := t.pushRecorded(ctx, t.paths.ShowQueue(), entries, cmds); err != nil {
		return err
	}
	if err := os.Remove(t.paths.FillerLock()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove filler lock: %w", err)
	}
	return nil
}

// pushRecorded appends entries to the shadow queue before sending cmds, so a
// fast now-playing report always finds them. The entries are taken back out
// when the engine cannot be reached.
func (t *Trigger) pushRecorded(ctx context.Context, queuePath string, entries []Entry, cmds []string) error {
	q, err := LoadQueue(queuePath)
	if err != nil {
		return err
	}
	q.Push(entries...)
	if err := q.Save(); err != nil {
		return err
	}

	if err := t.engine.Exec(ctx, cmds...); err != nil {
		if rerr := t.rollback(queuePath, entries); rerr != nil {
			t.logger.Error().Err(rerr).Str("queue", queuePath).Msg("failed to roll back shadow queue")
		}
		return err
	}
	t.logger.Info().Str("queue", filepath.Base(queuePath)).Int("clips", len(entries)).Msg("segment pushed")
	return nil
}

func (t *Trigger) rollback(queuePath string, entries []Entry) error {
	q, err := LoadQueue(queuePath)
	if err != nil {
		return err
	}
	n := len(q.Entries) - len(entries)
	if n < 0 {
		return nil
	}
	for i, e := range entries {
		if q.Entries[n+i] != e {
			return nil
		}
	}
	q.Entries = q.Entries[:n]
	return q.Save()
}
