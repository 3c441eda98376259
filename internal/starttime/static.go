/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package starttime

import (
	"context"
	"fmt"
	"time"

	"github.com/friendsincode/grimnir_lineup/internal/day"
	"github.com/friendsincode/grimnir_lineup/internal/lineup"
)

// Static places a box at a fixed wall-clock time. Params: At (HH:MM[:SS]),
// optional TimeZone overriding the station zone.
type Static struct {
	loc *time.Location
}

// NewStatic returns a calculator defaulting to the station zone loc.
func NewStatic(loc *time.Location) *Static {
	return &Static{loc: loc}
}

func (c *Static) Validate(s lineup.Schedule) error {
	if err := requireParam(s, "At"); err != nil {
		return err
	}
	if _, _, _, err := parseClock(s.Param("At")); err != nil {
		return err
	}
	if tz := s.Param("TimeZone"); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("invalid time zone %q: %w", tz, err)
		}
	}
	return nil
}

func (c *Static) Calculate(_ context.Context, date string, s lineup.Schedule, listener *Listener) (time.Time, error) {
	h, m, sec, err := parseClock(s.Param("At"))
	if err != nil {
		return time.Time{}, err
	}
	loc, err := c.location(s, listener)
	if err != nil {
		return time.Time{}, err
	}
	midnight, err := day.In(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(midnight.Year(), midnight.Month(), midnight.Day(), h, m, sec, 0, loc), nil
}

func (c *Static) location(s lineup.Schedule, listener *Listener) (*time.Location, error) {
	tz := s.Param("TimeZone")
	if listener != nil && listener.TimeZone != "" {
		tz = listener.TimeZone
	}
	if tz == "" {
		return c.loc, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", tz, err)
	}
	return loc, nil
}
