/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package lineup

import (
	"sort"
	"time"
)

// Compile places every clip of plan on the timeline, resolves floating boxes
// and validates the result. A lineup that fails validation is never returned.
func Compile(plan *LineupPlan) (*Lineup, error) {
	l, _, err := CompileWithResolutions(plan)
	return l, err
}

// CompileWithResolutions is Compile that also reports the floating box
// resolutions it applied.
func CompileWithResolutions(plan *LineupPlan) (*Lineup, []Resolution, error) {
	l := &Lineup{
		LineupID: plan.LineupID,
		Version:  plan.Version,
		Boxes:    make([]Box, 0, len(plan.BoxPlans)),
	}
	for _, bp := range plan.BoxPlans {
		l.Boxes = append(l.Boxes, compileBox(bp))
	}
	sortBoxes(l.Boxes)

	var resolutions []Resolution
	l.Boxes, resolutions = ResolveFloating(l.Boxes)

	if err := l.Validate(); err != nil {
		return nil, resolutions, err
	}
	return l, resolutions, nil
}

func compileBox(bp BoxPlan) Box {
	box := Box{
		BoxID:      bp.BoxID,
		IsFloating: bp.IsFloating,
		StartTime:  bp.StartTime,
		Programs:   make([]Program, 0, len(bp.ProgramPlans)),
	}
	cursor := bp.StartTime
	for _, pp := range bp.ProgramPlans {
		prog := compileProgram(pp, cursor)
		cursor = prog.Metadata.EndTime
		box.Programs = append(box.Programs, prog)
	}
	box.EndTime = cursor
	return box
}

func compileProgram(pp ProgramPlan, start time.Time) Program {
	prog := Program{
		ProgramID: pp.ProgramID,
		Title:     pp.Title,
		Priority:  pp.Priority,
		IsReplay:  pp.IsReplay,
	}
	cursor := start
	if pp.PreShow != nil {
		prog.PreShow = compileShow(pp.PreShow, cursor)
		cursor = prog.PreShow.EndTime()
	}
	prog.Show = compileShow(pp.Show, cursor)
	if prog.Show != nil {
		cursor = prog.Show.EndTime()
	}
	prog.Metadata = ProgramMetadata{
		StartTime: start,
		EndTime:   cursor,
		Duration:  cursor.Sub(start),
	}
	return prog
}

func compileShow(sp *ShowPlan, start time.Time) *Show {
	if sp == nil {
		return nil
	}
	show := &Show{StartTime: start, Clips: make([]Clip, 0, len(sp.Clips))}
	cursor := start
	for _, cp := range sp.Clips {
		c := compileClip(cp, cursor)
		cursor = cursor.Add(c.Length)
		show.Clips = append(show.Clips, c)
	}
	if sp.Filler != nil {
		filler := compileClip(*sp.Filler, start)
		show.Filler = &filler
	}
	return show
}

func compileClip(cp ClipPlan, start time.Time) Clip {
	return Clip{
		Media:       cp.Media,
		Description: cp.Description,
		IsMainClip:  cp.IsMainClip,
		StartTime:   start,
		Length:      cp.Media.Duration.Duration(),
	}
}

// sortBoxes orders boxes by start time; at equal starts fixed boxes come
// before floating ones.
func sortBoxes(boxes []Box) {
	sort.SliceStable(boxes, func(i, j int) bool {
		if !boxes[i].StartTime.Equal(boxes[j].StartTime) {
			return boxes[i].StartTime.Before(boxes[j].StartTime)
		}
		return !boxes[i].IsFloating && boxes[j].IsFloating
	})
}
