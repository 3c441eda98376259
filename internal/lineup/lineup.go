/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package lineup

import "time"

// Lineup is the compiled, time-stamped schedule of one date. Boxes is the
// arena every lookup indexes into.
type Lineup struct {
	LineupID string `json:"LineupId"`
	Version  string `json:"Version"`
	Boxes    []Box  `json:"Boxes"`
}

// Box is a compiled slot.
type Box struct {
	BoxID         string         `json:"BoxId"`
	IsFloating    bool           `json:"IsFloating,omitempty"`
	StartTime     time.Time      `json:"StartTime"`
	EndTime       time.Time      `json:"EndTime"`
	Programs      []Program      `json:"Programs"`
	SchedulerMeta *SchedulerMeta `json:"SchedulerMeta,omitempty"`
}

// Program is a compiled program. Pre-show clips precede show clips.
type Program struct {
	ProgramID     string          `json:"ProgramId"`
	Title         string          `json:"Title,omitempty"`
	Priority      Priority        `json:"Priority,omitempty"`
	IsReplay      bool            `json:"IsReplay,omitempty"`
	PreShow       *Show           `json:"PreShow,omitempty"`
	Show          *Show           `json:"Show,omitempty"`
	Metadata      ProgramMetadata `json:"Metadata"`
	SchedulerMeta *SchedulerMeta  `json:"SchedulerMeta,omitempty"`
}

// ProgramMetadata holds the program's absolute placement.
type ProgramMetadata struct {
	StartTime time.Time     `json:"StartTime"`
	EndTime   time.Time     `json:"EndTime"`
	Duration  time.Duration `json:"Duration"`
}

// Show is a placed clip sequence.
type Show struct {
	StartTime time.Time `json:"StartTime"`
	Clips     []Clip    `json:"Clips"`
	Filler    *Clip     `json:"Filler,omitempty"`
}

// Clip is a placed media item. A clip cut by an interrupt keeps its media and
// records where in the file it starts (CueIn) and how much of it airs (Length).
type Clip struct {
	Media       Media         `json:"Media"`
	Description string        `json:"Description,omitempty"`
	IsMainClip  bool          `json:"IsMainClip,omitempty"`
	StartTime   time.Time     `json:"StartTime"`
	CueIn       time.Duration `json:"CueIn,omitempty"`
	Length      time.Duration `json:"Length"`
}

// SchedulerMeta records external jobs registered for a box or program.
type SchedulerMeta struct {
	Jobs []ScheduledJob `json:"Jobs"`
}

// ScheduledJob is one external job and the instant it was registered for.
type ScheduledJob struct {
	Action string    `json:"Action"`
	Handle string    `json:"Handle"`
	At     time.Time `json:"At"`
}

// Job returns the recorded job for action.
func (m *SchedulerMeta) Job(action string) (ScheduledJob, bool) {
	if m == nil {
		return ScheduledJob{}, false
	}
	for _, j := range m.Jobs {
		if j.Action == action {
			return j, true
		}
	}
	return ScheduledJob{}, false
}

// EndTime returns the end of the last clip.
func (s *Show) EndTime() time.Time {
	if s == nil {
		return time.Time{}
	}
	if len(s.Clips) == 0 {
		return s.StartTime
	}
	last := s.Clips[len(s.Clips)-1]
	return last.StartTime.Add(last.Length)
}

// Empty reports whether the show has nothing to play.
func (s *Show) Empty() bool {
	return s == nil || len(s.Clips) == 0
}

// Interrupting reports whether the program is triggered on its own rather
// than as part of its box.
func (p *Program) Interrupting() bool {
	return p.Priority == PriorityHigh
}

// Duration returns the box length.
func (b *Box) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}

func (c *Clip) shift(d time.Duration) {
	c.StartTime = c.StartTime.Add(d)
}

func (s *Show) shift(d time.Duration) {
	if s == nil {
		return
	}
	s.StartTime = s.StartTime.Add(d)
	for i := range s.Clips {
		s.Clips[i].shift(d)
	}
	if s.Filler != nil {
		s.Filler.shift(d)
	}
}

func (p *Program) shift(d time.Duration) {
	p.Metadata.StartTime = p.Metadata.StartTime.Add(d)
	p.Metadata.EndTime = p.Metadata.EndTime.Add(d)
	p.PreShow.shift(d)
	p.Show.shift(d)
}

func (b *Box) shift(d time.Duration) {
	b.StartTime = b.StartTime.Add(d)
	b.EndTime = b.EndTime.Add(d)
	for i := range b.Programs {
		b.Programs[i].shift(d)
	}
}
