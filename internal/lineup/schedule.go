/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package lineup

import (
	"context"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/friendsincode/grimnir_lineup/internal/day"
)

// recurrenceAnchor is the default DTSTART of recurrence rules.
var recurrenceAnchor = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Schedule names a start-time calculator and its parameters. Recurrence is an
// optional RRULE restricting the dates on which the box airs.
type Schedule struct {
	Method          string            `json:"Method" yaml:"Method"`
	Params          map[string]string `json:"Params,omitempty" yaml:"Params,omitempty"`
	Recurrence      string            `json:"Recurrence,omitempty" yaml:"Recurrence,omitempty"`
	RecurrenceStart string            `json:"RecurrenceStart,omitempty" yaml:"RecurrenceStart,omitempty"`
}

// Param returns a calculator parameter or "".
func (s Schedule) Param(name string) string {
	return s.Params[name]
}

// StartTimes resolves schedules to absolute instants.
type StartTimes interface {
	Validate(s Schedule) error
	Calculate(ctx context.Context, date string, s Schedule) (time.Time, error)
}

func (s Schedule) validate() error {
	if s.Method == "" {
		return fmt.Errorf("schedule without method")
	}
	if s.Recurrence == "" {
		return nil
	}
	if _, err := s.rule(); err != nil {
		return err
	}
	return nil
}

func (s Schedule) rule() (*rrule.RRule, error) {
	rr, err := rrule.StrToRRule(s.Recurrence)
	if err != nil {
		return nil, fmt.Errorf("parse recurrence %q: %w", s.Recurrence, err)
	}
	anchor := recurrenceAnchor
	if s.RecurrenceStart != "" {
		anchor, err = day.Parse(s.RecurrenceStart)
		if err != nil {
			return nil, fmt.Errorf("recurrence start: %w", err)
		}
	}
	rr.DTStart(anchor)
	return rr, nil
}

// ActiveOn reports whether the box airs on date.
func (s Schedule) ActiveOn(date string) (bool, error) {
	if s.Recurrence == "" {
		return true, nil
	}
	dayStart, err := day.Parse(date)
	if err != nil {
		return false, err
	}
	rr, err := s.rule()
	if err != nil {
		return false, err
	}
	occurrences := rr.Between(dayStart, dayStart.Add(24*time.Hour-time.Nanosecond), true)
	return len(occurrences) > 0, nil
}
