/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package lineup

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_lineup/internal/day"
	"github.com/friendsincode/grimnir_lineup/internal/rotation"
)

const (
	// ReplayIDSuffix is appended to the id of a replayed program.
	ReplayIDSuffix = "_Replay"

	// Show kinds are part of persisted rotation iterator ids; existing
	// counters are keyed by these exact names.
	showKindShow    = "ShowTemplate"
	showKindPreShow = "PreShowTemplate"
	fillerSuffix    = "Filler"
)

// PlanSource returns stored plans for replay resolution. A missing plan is
// (nil, nil).
type PlanSource interface {
	GetLineupPlan(ctx context.Context, date string) (*LineupPlan, error)
}

// Rotation picks a media index for a clip slot on a date.
type Rotation interface {
	Next(ctx context.Context, key string, policy rotation.Policy, size int, date string, offset int) (int, error)
}

// Planner resolves templates into plans.
type Planner struct {
	times       StartTimes
	rotation    Rotation
	plans       PlanSource
	replayTitle string
	logger      zerolog.Logger
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithReplayTitleSuffix sets the suffix appended to replayed program titles.
func WithReplayTitleSuffix(suffix string) PlannerOption {
	return func(p *Planner) { p.replayTitle = suffix }
}

// NewPlanner constructs a planner.
func NewPlanner(times StartTimes, rot Rotation, plans PlanSource, logger zerolog.Logger, opts ...PlannerOption) *Planner {
	p := &Planner{
		times:       times,
		rotation:    rot,
		plans:       plans,
		replayTitle: " - Replay",
		logger:      logger.With().Str("component", "planner").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// planContext carries what a program variant needs while planning one box.
type planContext struct {
	planner *Planner
	tmpl    *LineupTemplate
	current *LineupPlan
	box     *BoxTemplate
	date    string
	logger  zerolog.Logger
}

// programPlanner is implemented by each program template variant.
type programPlanner interface {
	plan(ctx context.Context, pc *planContext) ([]ProgramPlan, error)
}

type premiere struct{ ProgramTemplate }

type replay struct{ ProgramTemplate }

func (pt ProgramTemplate) variant() (programPlanner, error) {
	switch pt.Kind() {
	case ProgramPremiere:
		return premiere{pt}, nil
	case ProgramReplay:
		return replay{pt}, nil
	default:
		return nil, fmt.Errorf("unknown program type %q", pt.Type)
	}
}

// Plan resolves tmpl for date. Failures local to one box or program are
// logged and leave that part out; the returned error is reserved for
// problems that make the whole plan meaningless.
func (p *Planner) Plan(ctx context.Context, tmpl *LineupTemplate, date string) (*LineupPlan, error) {
	if !day.Valid(date) {
		return nil, fmt.Errorf("plan lineup: invalid date %q", date)
	}

	plan := &LineupPlan{LineupID: date, Version: FormatVersion}
	for i := range tmpl.BoxTemplates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bt := &tmpl.BoxTemplates[i]
		bp, err := p.planBox(ctx, tmpl, plan, bt, date)
		if err != nil {
			p.logger.Warn().Err(err).Str("date", date).Str("box", bt.BoxID).Msg("box left out of plan")
			continue
		}
		if bp != nil {
			plan.BoxPlans = append(plan.BoxPlans, *bp)
		}
	}

	p.logger.Info().Str("date", date).Int("boxes", len(plan.BoxPlans)).Msg("lineup planned")
	return plan, nil
}

func (p *Planner) planBox(ctx context.Context, tmpl *LineupTemplate, current *LineupPlan, bt *BoxTemplate, date string) (*BoxPlan, error) {
	active, err := bt.Schedule.ActiveOn(date)
	if err != nil {
		return nil, err
	}
	if !active {
		p.logger.Debug().Str("date", date).Str("box", bt.BoxID).Msg("box not on schedule")
		return nil, nil
	}

	// Resolved before any program is planned: a box that cannot be placed
	// must not consume rotation positions.
	start, err := p.times.Calculate(ctx, date, bt.Schedule)
	if err != nil {
		return nil, fmt.Errorf("calculate start time: %w", err)
	}

	pc := &planContext{
		planner: p,
		tmpl:    tmpl,
		current: current,
		box:     bt,
		date:    date,
		logger:  p.logger.With().Str("date", date).Str("box", bt.BoxID).Logger(),
	}

	var programs []ProgramPlan
	for _, pt := range bt.ProgramTemplates {
		v, err := pt.variant()
		if err != nil {
			pc.logger.Warn().Err(err).Str("program", pt.ProgramID).Msg("program skipped")
			continue
		}
		planned, err := v.plan(ctx, pc)
		if err != nil {
			pc.logger.Warn().Err(err).Str("program", pt.ProgramID).Msg("program contributes nothing")
			continue
		}
		programs = append(programs, planned...)
	}
	if len(programs) == 0 {
		pc.logger.Debug().Msg("box has no programs, dropped")
		return nil, nil
	}

	if bt.IsFloating {
		for i := range programs {
			programs[i].Priority = PriorityHigh
		}
	}

	return &BoxPlan{
		BoxID:        bt.BoxID,
		IsFloating:   bt.IsFloating,
		StartTime:    start,
		ProgramPlans: programs,
	}, nil
}

func (v premiere) plan(ctx context.Context, pc *planContext) ([]ProgramPlan, error) {
	if v.Show == nil {
		pc.logger.Debug().Str("program", v.ProgramID).Msg("premiere without show template")
		return nil, nil
	}
	show := pc.planShow(ctx, v.ProgramID, showKindShow, v.Show)
	if show == nil {
		return nil, fmt.Errorf("show of %s resolved no clips", v.ProgramID)
	}
	var preShow *ShowPlan
	if v.PreShow != nil {
		preShow = pc.planShow(ctx, v.ProgramID, showKindPreShow, v.PreShow)
	}

	priority := v.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	return []ProgramPlan{{
		ProgramID: v.ProgramID,
		Title:     v.Title,
		Priority:  priority,
		PreShow:   preShow,
		Show:      show,
	}}, nil
}

func (pc *planContext) planShow(ctx context.Context, programID, kind string, st *ShowTemplate) *ShowPlan {
	sp := &ShowPlan{}
	for i, ct := range st.Clips {
		clip, err := pc.planClip(ctx, rotation.Key(pc.box.BoxID, programID, kind, i), ct)
		if err != nil {
			pc.logger.Warn().Err(err).Str("program", programID).Str("show", kind).Int("clip", i).Msg("clip skipped")
			continue
		}
		sp.Clips = append(sp.Clips, clip)
	}
	if len(sp.Clips) == 0 {
		return nil
	}
	if st.Filler != nil {
		filler, err := pc.planClip(ctx, rotation.Key(pc.box.BoxID, programID, kind+fillerSuffix, 0), *st.Filler)
		if err != nil {
			pc.logger.Warn().Err(err).Str("program", programID).Str("show", kind).Msg("filler skipped")
		} else {
			sp.Filler = &filler
		}
	}
	return sp
}

func (pc *planContext) planClip(ctx context.Context, key string, ct ClipTemplate) (ClipPlan, error) {
	group, ok := pc.tmpl.MediaGroup(ct.MediaGroup)
	if !ok || len(group.Media) == 0 {
		return ClipPlan{}, fmt.Errorf("%w: %q", ErrMediaGroup, ct.MediaGroup)
	}
	policy, err := rotation.ParsePolicy(ct.IteratorPolicy)
	if err != nil {
		return ClipPlan{}, err
	}
	idx, err := pc.planner.rotation.Next(ctx, key, policy, len(group.Media), pc.date, ct.Offset)
	if err != nil {
		return ClipPlan{}, err
	}
	if idx < 0 || idx >= len(group.Media) {
		return ClipPlan{}, fmt.Errorf("%w: index %d of %d", rotation.ErrIndexOutOfRange, idx, len(group.Media))
	}

	media := group.Media[idx]
	description := ct.Description
	if description == "" {
		description = media.Description
	}
	return ClipPlan{Media: media, Description: description, IsMainClip: ct.IsMainClip}, nil
}

func (v replay) plan(ctx context.Context, pc *planContext) ([]ProgramPlan, error) {
	source, err := v.source(ctx, pc)
	if err != nil {
		return nil, err
	}
	if !CompatibleVersion(source.Version) {
		return nil, fmt.Errorf("%w: plan %s has version %q", ErrReplaySource, source.LineupID, source.Version)
	}
	box, ok := source.Box(v.OriginalBoxID)
	if !ok {
		return nil, fmt.Errorf("%w: box %s not in plan %s", ErrReplaySource, v.OriginalBoxID, source.LineupID)
	}

	var out []ProgramPlan
	for _, pp := range box.ProgramPlans {
		if !v.selects(pp.ProgramID) {
			continue
		}
		copied := pp.clone()
		copied.ProgramID = pp.ProgramID + ReplayIDSuffix
		copied.Title = pp.Title + pc.planner.replayTitle
		copied.IsReplay = true
		copied.Priority = PriorityNormal
		out = append(out, copied)
	}
	return out, nil
}

func (v replay) source(ctx context.Context, pc *planContext) (*LineupPlan, error) {
	if v.OriginalAiringOffset == 0 {
		return pc.current, nil
	}
	date, err := day.Add(pc.date, -v.OriginalAiringOffset)
	if err != nil {
		return nil, err
	}
	plan, err := pc.planner.plans.GetLineupPlan(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%w: load plan %s: %w", ErrReplaySource, date, err)
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: no plan for %s", ErrReplaySource, date)
	}
	return plan, nil
}

func (v replay) selects(programID string) bool {
	if len(v.Include) > 0 && !slices.Contains(v.Include, programID) {
		return false
	}
	return !slices.Contains(v.Exclude, programID)
}
