/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package lineup

import "time"

// LineupPlan is a template resolved for one date: start times and media are
// chosen, clip placement is not.
type LineupPlan struct {
	LineupID string    `json:"LineupId"`
	Version  string    `json:"Version"`
	BoxPlans []BoxPlan `json:"BoxPlans"`
}

// BoxPlan is a planned slot.
type BoxPlan struct {
	BoxID        string        `json:"BoxId"`
	IsFloating   bool          `json:"IsFloating,omitempty"`
	StartTime    time.Time     `json:"StartTime"`
	ProgramPlans []ProgramPlan `json:"ProgramPlans"`
}

// ProgramPlan is a planned program, premiere or replay.
type ProgramPlan struct {
	ProgramID string    `json:"ProgramId"`
	Title     string    `json:"Title,omitempty"`
	Priority  Priority  `json:"Priority,omitempty"`
	IsReplay  bool      `json:"IsReplay,omitempty"`
	PreShow   *ShowPlan `json:"PreShow,omitempty"`
	Show      *ShowPlan `json:"Show"`
}

// ShowPlan is the media selected for a show or pre-show.
type ShowPlan struct {
	Clips  []ClipPlan `json:"Clips"`
	Filler *ClipPlan  `json:"Filler,omitempty"`
}

// ClipPlan is one selected media item.
type ClipPlan struct {
	Media       Media  `json:"Media"`
	Description string `json:"Description,omitempty"`
	IsMainClip  bool   `json:"IsMainClip,omitempty"`
}

// Box returns the plan of boxID.
func (p *LineupPlan) Box(boxID string) (*BoxPlan, bool) {
	for i := range p.BoxPlans {
		if p.BoxPlans[i].BoxID == boxID {
			return &p.BoxPlans[i], true
		}
	}
	return nil, false
}

func (pp ProgramPlan) clone() ProgramPlan {
	out := pp
	out.PreShow = pp.PreShow.clone()
	out.Show = pp.Show.clone()
	return out
}

func (sp *ShowPlan) clone() *ShowPlan {
	if sp == nil {
		return nil
	}
	out := &ShowPlan{Clips: append([]ClipPlan(nil), sp.Clips...)}
	if sp.Filler != nil {
		filler := *sp.Filler
		out.Filler = &filler
	}
	return out
}
