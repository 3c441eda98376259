/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package day handles calendar dates in the YYYY-MM-DD form used as lineup ids.
package day

import (
	"fmt"
	"time"
)

// Layout is the calendar date layout used for lineup ids.
const Layout = "2006-01-02"

// Parse parses a calendar date into midnight UTC.
func Parse(date string) (time.Time, error) {
	t, err := time.Parse(Layout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return t, nil
}

// Valid reports whether date is a well formed calendar date.
func Valid(date string) bool {
	_, err := time.Parse(Layout, date)
	return err == nil
}

// Format renders the calendar date of t in its own location.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Add returns date shifted by n days.
func Add(date string, n int) (string, error) {
	t, err := Parse(date)
	if err != nil {
		return "", err
	}
	return Format(t.AddDate(0, 0, n)), nil
}

// Between returns the number of days from a to b (b - a).
func Between(a, b string) (int, error) {
	ta, err := Parse(a)
	if err != nil {
		return 0, err
	}
	tb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

// Today returns the calendar date of now in loc. Lineups are dated in the
// earliest zone on earth so that "today" has begun everywhere listeners are.
func Today(now time.Time, loc *time.Location) string {
	return Format(now.In(loc))
}

// In returns midnight of date in loc.
func In(date string, loc *time.Location) (time.Time, error) {
	t, err := Parse(date)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}

// NextMidnight returns the first midnight in loc strictly after now.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}
