/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package lineup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/grimnir_lineup/internal/rotation"
)

// FormatVersion is written into every plan and compiled lineup.
const FormatVersion = "3.0"

// Plans and templates from any 3.x revision share the same shape.
var formatConstraint = mustConstraint(">= 3.0, < 4.0")

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

// CompatibleVersion reports whether a stored document can be read by this build.
func CompatibleVersion(v string) bool {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return false
	}
	return formatConstraint.Check(sv)
}

// ProgramType tags the program template variant.
type ProgramType string

const (
	ProgramPremiere ProgramType = "Premiere"
	ProgramReplay   ProgramType = "Replay"
)

// Priority decides whether a program is triggered on its own (High) or
// played as part of its box (Normal).
type Priority string

const (
	PriorityNormal Priority = "Normal"
	PriorityHigh   Priority = "High"
)

// Seconds is a media length as authored in templates.
type Seconds float64

// Duration converts to time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(float64(s) * float64(time.Second))
}

// Media is one playable file of a rotation group.
type Media struct {
	Path        string  `json:"Path" yaml:"Path"`
	Duration    Seconds `json:"Duration" yaml:"Duration"`
	Description string  `json:"Description,omitempty" yaml:"Description,omitempty"`
}

// MediaGroup is a named rotation group.
type MediaGroup struct {
	Name  string  `json:"Name" yaml:"Name"`
	Media []Media `json:"Media" yaml:"Media"`
}

// ClipTemplate selects one media item of a group per planned date.
type ClipTemplate struct {
	MediaGroup     string `json:"MediaGroupName" yaml:"MediaGroupName"`
	IteratorPolicy string `json:"IteratorPolicy,omitempty" yaml:"IteratorPolicy,omitempty"`
	Offset         int    `json:"Offset,omitempty" yaml:"Offset,omitempty"`
	IsMainClip     bool   `json:"IsMainClip,omitempty" yaml:"IsMainClip,omitempty"`
	Description    string `json:"Description,omitempty" yaml:"Description,omitempty"`
}

// ShowTemplate is an ordered clip sequence. Filler loops while an
// interrupting pre-show waits for its show.
type ShowTemplate struct {
	Clips  []ClipTemplate `json:"Clips" yaml:"Clips"`
	Filler *ClipTemplate  `json:"FillerClip,omitempty" yaml:"FillerClip,omitempty"`
}

// ProgramTemplate is either a premiere with its own shows or a replay of an
// earlier airing.
type ProgramTemplate struct {
	Type      ProgramType `json:"Type,omitempty" yaml:"Type,omitempty"`
	ProgramID string      `json:"ProgramId" yaml:"ProgramId"`
	Title     string      `json:"Title,omitempty" yaml:"Title,omitempty"`
	Priority  Priority    `json:"Priority,omitempty" yaml:"Priority,omitempty"`

	PreShow *ShowTemplate `json:"PreShowTemplate,omitempty" yaml:"PreShowTemplate,omitempty"`
	Show    *ShowTemplate `json:"ShowTemplate,omitempty" yaml:"ShowTemplate,omitempty"`

	OriginalAiringOffset int      `json:"OriginalAiringOffset,omitempty" yaml:"OriginalAiringOffset,omitempty"`
	OriginalBoxID        string   `json:"OriginalBoxId,omitempty" yaml:"OriginalBoxId,omitempty"`
	Include              []string `json:"Include,omitempty" yaml:"Include,omitempty"`
	Exclude              []string `json:"Exclude,omitempty" yaml:"Exclude,omitempty"`
}

// Kind returns the variant, defaulting to premiere.
func (pt ProgramTemplate) Kind() ProgramType {
	if pt.Type == "" {
		return ProgramPremiere
	}
	return pt.Type
}

// BoxTemplate defines a slot of the daily timeline.
type BoxTemplate struct {
	BoxID            string            `json:"BoxId" yaml:"BoxId"`
	Schedule         Schedule          `json:"Schedule" yaml:"Schedule"`
	IsFloating       bool              `json:"IsFloating,omitempty" yaml:"IsFloating,omitempty"`
	ProgramTemplates []ProgramTemplate `json:"ProgramTemplates" yaml:"ProgramTemplates"`
}

// LineupTemplate is the root authored document.
type LineupTemplate struct {
	Version      string        `json:"Version" yaml:"Version"`
	BoxTemplates []BoxTemplate `json:"BoxTemplates" yaml:"BoxTemplates"`
	MediaGroups  []MediaGroup  `json:"MediaGroups" yaml:"MediaGroups"`
}

// MediaGroup looks up a rotation group by name.
func (t *LineupTemplate) MediaGroup(name string) (*MediaGroup, bool) {
	for i := range t.MediaGroups {
		if t.MediaGroups[i].Name == name {
			return &t.MediaGroups[i], true
		}
	}
	return nil, false
}

// LoadTemplate reads a template file; ".json" files are JSON, anything else YAML.
func LoadTemplate(path string) (*LineupTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	var tmpl LineupTemplate
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &tmpl)
	} else {
		err = yaml.Unmarshal(data, &tmpl)
	}
	if err != nil {
		return nil, fmt.Errorf("decode template %s: %w", path, err)
	}
	return &tmpl, nil
}

// Validate reports every configuration error in the template. Planning must
// not start when it fails.
func (t *LineupTemplate) Validate(times StartTimes) error {
	var problems []error
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if t.Version == "" {
		addf("missing version")
	} else if !CompatibleVersion(t.Version) {
		addf("version %s is not compatible with %s", t.Version, FormatVersion)
	}

	groups := make(map[string]bool, len(t.MediaGroups))
	for _, g := range t.MediaGroups {
		if g.Name == "" {
			addf("media group without name")
			continue
		}
		if groups[g.Name] {
			addf("duplicate media group %q", g.Name)
		}
		groups[g.Name] = true
	}

	checkClip := func(where string, ct ClipTemplate) {
		if !groups[ct.MediaGroup] {
			addf("%s: unknown media group %q", where, ct.MediaGroup)
		}
		if _, err := rotation.ParsePolicy(ct.IteratorPolicy); err != nil {
			addf("%s: %v", where, err)
		}
	}
	checkShow := func(where string, st *ShowTemplate) {
		if st == nil {
			return
		}
		for i, ct := range st.Clips {
			checkClip(fmt.Sprintf("%s clip %d", where, i), ct)
		}
		if st.Filler != nil {
			checkClip(where+" filler", *st.Filler)
		}
	}

	boxes := make(map[string]bool, len(t.BoxTemplates))
	for _, bt := range t.BoxTemplates {
		if bt.BoxID == "" || strings.Contains(bt.BoxID, "/") {
			addf("invalid box id %q", bt.BoxID)
			continue
		}
		if boxes[bt.BoxID] {
			addf("duplicate box id %q", bt.BoxID)
		}
		boxes[bt.BoxID] = true

		if err := bt.Schedule.validate(); err != nil {
			addf("box %s: %v", bt.BoxID, err)
		} else if err := times.Validate(bt.Schedule); err != nil {
			addf("box %s: %v", bt.BoxID, err)
		}

		if bt.IsFloating && len(bt.ProgramTemplates) != 1 {
			addf("floating box %s must have exactly one program, has %d", bt.BoxID, len(bt.ProgramTemplates))
		}

		programs := make(map[string]bool, len(bt.ProgramTemplates))
		for _, pt := range bt.ProgramTemplates {
			where := fmt.Sprintf("box %s program %s", bt.BoxID, pt.ProgramID)
			if pt.ProgramID == "" || strings.Contains(pt.ProgramID, "/") {
				addf("box %s: invalid program id %q", bt.BoxID, pt.ProgramID)
				continue
			}
			if programs[pt.ProgramID] {
				addf("%s: duplicate program id", where)
			}
			programs[pt.ProgramID] = true

			switch pt.Priority {
			case "", PriorityNormal, PriorityHigh:
			default:
				addf("%s: unknown priority %q", where, pt.Priority)
			}

			switch pt.Kind() {
			case ProgramPremiere:
				checkShow(where+" pre-show", pt.PreShow)
				checkShow(where+" show", pt.Show)
			case ProgramReplay:
				if bt.IsFloating {
					addf("%s: replay cannot be floating", where)
				}
				if pt.OriginalAiringOffset < 0 {
					addf("%s: negative original airing offset", where)
				}
				if pt.OriginalBoxID == "" {
					addf("%s: missing original box id", where)
				}
				if pt.OriginalAiringOffset == 0 && pt.OriginalBoxID == bt.BoxID {
					addf("%s: replay of its own box on the same day", where)
				}
			default:
				addf("%s: unknown program type %q", where, pt.Type)
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTemplate, errors.Join(problems...))
	}
	return nil
}
