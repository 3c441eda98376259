/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package lineup

import (
	"fmt"
	"strings"
)

// CanonicalID addresses a box (ProgramID empty) or a program across replans.
type CanonicalID struct {
	LineupID  string
	BoxID     string
	ProgramID string
}

// BoxCanonicalID returns "<date>/<box>".
func BoxCanonicalID(lineupID, boxID string) string {
	return lineupID + "/" + boxID
}

// ProgramCanonicalID returns "<date>/<box>/<program>".
func ProgramCanonicalID(lineupID, boxID, programID string) string {
	return lineupID + "/" + boxID + "/" + programID
}

// ParseCanonicalID splits a canonical id.
func ParseCanonicalID(s string) (CanonicalID, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return CanonicalID{}, fmt.Errorf("%w: %q", ErrCanonicalID, s)
	}
	for _, p := range parts {
		if p == "" {
			return CanonicalID{}, fmt.Errorf("%w: %q", ErrCanonicalID, s)
		}
	}
	id := CanonicalID{LineupID: parts[0], BoxID: parts[1]}
	if len(parts) == 3 {
		id.ProgramID = parts[2]
	}
	return id, nil
}

// String renders the id.
func (c CanonicalID) String() string {
	if c.ProgramID == "" {
		return BoxCanonicalID(c.LineupID, c.BoxID)
	}
	return ProgramCanonicalID(c.LineupID, c.BoxID, c.ProgramID)
}

// BoxID returns the canonical id of box i.
func (l *Lineup) BoxID(i int) string {
	return BoxCanonicalID(l.LineupID, l.Boxes[i].BoxID)
}

// ProgramID returns the canonical id of program j of box i.
func (l *Lineup) ProgramID(i, j int) string {
	return ProgramCanonicalID(l.LineupID, l.Boxes[i].BoxID, l.Boxes[i].Programs[j].ProgramID)
}

// FindBox returns the arena index of boxID.
func (l *Lineup) FindBox(boxID string) (int, bool) {
	for i := range l.Boxes {
		if l.Boxes[i].BoxID == boxID {
			return i, true
		}
	}
	return -1, false
}

// FindProgram returns the indexes of a program inside its box.
func (l *Lineup) FindProgram(boxID, programID string) (int, int, bool) {
	i, ok := l.FindBox(boxID)
	if !ok {
		return -1, -1, false
	}
	for j := range l.Boxes[i].Programs {
		if l.Boxes[i].Programs[j].ProgramID == programID {
			return i, j, true
		}
	}
	return -1, -1, false
}

// Resolve returns the box and, for program ids, the program addressed by id.
func (l *Lineup) Resolve(id CanonicalID) (*Box, *Program, error) {
	if id.LineupID != l.LineupID {
		return nil, nil, fmt.Errorf("%s is not part of lineup %s", id, l.LineupID)
	}
	if id.ProgramID == "" {
		i, ok := l.FindBox(id.BoxID)
		if !ok {
			return nil, nil, fmt.Errorf("box %s not found", id)
		}
		return &l.Boxes[i], nil, nil
	}
	i, j, ok := l.FindProgram(id.BoxID, id.ProgramID)
	if !ok {
		return nil, nil, fmt.Errorf("program %s not found", id)
	}
	return &l.Boxes[i], &l.Boxes[i].Programs[j], nil
}
