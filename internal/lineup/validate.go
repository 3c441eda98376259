/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package lineup

import "fmt"

// Validate checks that fixed boxes do not overlap and that programs inside
// every box are contiguous and consistent with their metadata.
func (l *Lineup) Validate() error {
	var prev *Box
	for i := range l.Boxes {
		b := &l.Boxes[i]
		if i > 0 && b.StartTime.Before(l.Boxes[i-1].StartTime) {
			return fmt.Errorf("%w: box %s starts before box %s", ErrInvariant, b.BoxID, l.Boxes[i-1].BoxID)
		}
		if err := b.validate(); err != nil {
			return fmt.Errorf("%w: box %s: %v", ErrInvariant, b.BoxID, err)
		}
		if b.IsFloating {
			continue
		}
		if prev != nil && prev.EndTime.After(b.StartTime) {
			return fmt.Errorf("%w: box %s ends %s after box %s starts %s",
				ErrInvariant, prev.BoxID, prev.EndTime.Format("15:04:05"), b.BoxID, b.StartTime.Format("15:04:05"))
		}
		prev = b
	}
	return nil
}

func (b *Box) validate() error {
	if len(b.Programs) == 0 {
		return fmt.Errorf("no programs")
	}
	if b.IsFloating && len(b.Programs) != 1 {
		return fmt.Errorf("floating box has %d programs", len(b.Programs))
	}
	if !b.Programs[0].Metadata.StartTime.Equal(b.StartTime) {
		return fmt.Errorf("first program starts at %s, box at %s", b.Programs[0].Metadata.StartTime, b.StartTime)
	}
	for j := range b.Programs {
		m := b.Programs[j].Metadata
		if !m.StartTime.Add(m.Duration).Equal(m.EndTime) {
			return fmt.Errorf("program %s: end %s != start %s + %s", b.Programs[j].ProgramID, m.EndTime, m.StartTime, m.Duration)
		}
		if j > 0 && !b.Programs[j-1].Metadata.EndTime.Equal(m.StartTime) {
			return fmt.Errorf("program %s does not start where %s ends", b.Programs[j].ProgramID, b.Programs[j-1].ProgramID)
		}
	}
	if last := b.Programs[len(b.Programs)-1].Metadata.EndTime; !last.Equal(b.EndTime) {
		return fmt.Errorf("last program ends at %s, box at %s", last, b.EndTime)
	}
	return nil
}
