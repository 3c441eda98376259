/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package lineup

import "time"

// ResumedIDSuffix is appended to the id of the part of a program that airs
// after an interrupt.
const ResumedIDSuffix = "_Resumed"

// ResolutionAction names how a floating box was reconciled with a neighbor.
type ResolutionAction string

const (
	// ActionShift moved the neighbor, and every fixed box after it, later.
	ActionShift ResolutionAction = "shift"
	// ActionWrap spliced the floating box into the neighbor's programs.
	ActionWrap ResolutionAction = "wrap"
)

// Resolution describes one applied conflict resolution.
type Resolution struct {
	FloatingBoxID string
	NeighborBoxID string
	Action        ResolutionAction
	Amount        time.Duration
}

// ResolveFloating reconciles each floating box with its nearest fixed
// neighbors. Boxes must be sorted by start time. A floating box starting
// at or before its neighbor displaces the neighbor; one starting inside the
// neighbor interrupts it and is absorbed into it.
func ResolveFloating(boxes []Box) ([]Box, []Resolution) {
	var resolutions []Resolution
	done := make(map[string]bool)

	for {
		sortBoxes(boxes)
		i := nextUnresolved(boxes, done)
		if i < 0 {
			return boxes, resolutions
		}
		f := boxes[i]
		done[f.BoxID] = true

		// Sorting puts fixed boxes first at equal starts, so the next fixed
		// box starts strictly after f and can only be displaced.
		if n := nextFixed(boxes, i); n >= 0 && boxes[n].StartTime.Before(f.EndTime) {
			amount := f.EndTime.Sub(boxes[n].StartTime)
			displace(boxes, n, amount)
			resolutions = append(resolutions, Resolution{f.BoxID, boxes[n].BoxID, ActionShift, amount})
		}

		if p := prevFixed(boxes, i); p >= 0 && f.StartTime.Before(boxes[p].EndTime) {
			if !f.StartTime.After(boxes[p].StartTime) {
				amount := f.EndTime.Sub(boxes[p].StartTime)
				displace(boxes, p, amount)
				resolutions = append(resolutions, Resolution{f.BoxID, boxes[p].BoxID, ActionShift, amount})
			} else {
				host := boxes[p].BoxID
				boxes = wrap(boxes, p, i)
				resolutions = append(resolutions, Resolution{f.BoxID, host, ActionWrap, f.Duration()})
			}
		}
	}
}

func nextUnresolved(boxes []Box, done map[string]bool) int {
	for i := range boxes {
		if boxes[i].IsFloating && !done[boxes[i].BoxID] {
			return i
		}
	}
	return -1
}

func nextFixed(boxes []Box, i int) int {
	for j := i + 1; j < len(boxes); j++ {
		if !boxes[j].IsFloating {
			return j
		}
	}
	return -1
}

func prevFixed(boxes []Box, i int) int {
	for j := i - 1; j >= 0; j-- {
		if !boxes[j].IsFloating {
			return j
		}
	}
	return -1
}

// displace moves every fixed box from index from onwards later by amount.
// Floating boxes keep their instants.
func displace(boxes []Box, from int, amount time.Duration) {
	for j := from; j < len(boxes); j++ {
		if !boxes[j].IsFloating {
			boxes[j].shift(amount)
		}
	}
}

// wrap splices floating box fi into box host at the floating box's start and
// removes it from the list. The host grows by the interrupt's length and any
// fixed box the host now runs into is displaced.
func wrap(boxes []Box, host, fi int) []Box {
	f := boxes[fi]
	h := &boxes[host]
	at := f.StartTime
	d := f.Duration()

	k := len(h.Programs)
	for j := range h.Programs {
		if h.Programs[j].Metadata.EndTime.After(at) {
			k = j
			break
		}
	}

	programs := make([]Program, 0, len(h.Programs)+len(f.Programs)+1)
	programs = append(programs, h.Programs[:k]...)
	rest := h.Programs[k:]
	if len(rest) > 0 && rest[0].Metadata.StartTime.Before(at) {
		before, after := splitProgram(rest[0], at)
		programs = append(programs, before)
		rest = append([]Program{after}, rest[1:]...)
	}
	programs = append(programs, f.Programs...)
	for _, p := range rest {
		p.shift(d)
		programs = append(programs, p)
	}
	h.Programs = programs
	h.EndTime = h.EndTime.Add(d)

	boxes = append(boxes[:fi], boxes[fi+1:]...)
	if fi < host {
		host--
	}

	if n := nextFixed(boxes, host); n >= 0 && boxes[n].StartTime.Before(boxes[host].EndTime) {
		displace(boxes, n, boxes[host].EndTime.Sub(boxes[n].StartTime))
	}
	return boxes
}

// splitProgram cuts p at instant at. The clip airing at that instant is
// truncated; its remainder opens the second part.
func splitProgram(p Program, at time.Time) (Program, Program) {
	before, after := p, p
	before.SchedulerMeta, after.SchedulerMeta = nil, nil
	after.ProgramID = p.ProgramID + ResumedIDSuffix

	before.PreShow, after.PreShow = splitShow(p.PreShow, at)
	before.Show, after.Show = splitShow(p.Show, at)

	before.Metadata = ProgramMetadata{
		StartTime: p.Metadata.StartTime,
		EndTime:   at,
		Duration:  at.Sub(p.Metadata.StartTime),
	}
	after.Metadata = ProgramMetadata{
		StartTime: at,
		EndTime:   p.Metadata.EndTime,
		Duration:  p.Metadata.EndTime.Sub(at),
	}
	return before, after
}

func splitShow(s *Show, at time.Time) (*Show, *Show) {
	if s == nil {
		return nil, nil
	}
	head := &Show{StartTime: s.StartTime, Filler: s.Filler}
	tail := &Show{StartTime: at, Filler: s.Filler}
	for _, c := range s.Clips {
		end := c.StartTime.Add(c.Length)
		switch {
		case !end.After(at):
			head.Clips = append(head.Clips, c)
		case !c.StartTime.Before(at):
			tail.Clips = append(tail.Clips, c)
		default:
			h := c
			h.Length = at.Sub(c.StartTime)
			t := c
			t.StartTime = at
			t.CueIn = c.CueIn + h.Length
			t.Length = c.Length - h.Length
			head.Clips = append(head.Clips, h)
			tail.Clips = append(tail.Clips, t)
		}
	}
	if len(tail.Clips) > 0 {
		tail.StartTime = tail.Clips[0].StartTime
	}
	if len(head.Clips) == 0 {
		head = nil
	}
	if len(tail.Clips) == 0 {
		tail = nil
	}
	return head, tail
}
