/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package starttime turns schedule descriptors into absolute start instants.
package starttime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/friendsincode/grimnir_lineup/internal/lineup"
)

var (
	// ErrUnknownMethod is returned for a schedule naming no registered calculator.
	ErrUnknownMethod = errors.New("unknown schedule method")

	// ErrMissingParam is returned when a required schedule parameter is absent.
	ErrMissingParam = errors.New("missing schedule parameter")

	// ErrDayMismatch is returned when the oracle keeps answering for another day.
	ErrDayMismatch = errors.New("oracle answered for a different day")
)

// Listener optionally localizes a calculation.
type Listener struct {
	TimeZone  string
	Latitude  float64
	Longitude float64
	Located   bool
}

// Calculator resolves one schedule method.
type Calculator interface {
	Validate(s lineup.Schedule) error
	Calculate(ctx context.Context, date string, s lineup.Schedule, listener *Listener) (time.Time, error)
}

// Registry dispatches schedules to calculators by method name.
type Registry struct {
	calculators map[string]Calculator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{calculators: make(map[string]Calculator)}
}

// Register binds method to c.
func (r *Registry) Register(method string, c Calculator) {
	r.calculators[method] = c
}

// Methods lists registered method names.
func (r *Registry) Methods() []string {
	out := make([]string, 0, len(r.calculators))
	for m := range r.calculators {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) get(method string) (Calculator, error) {
	c, ok := r.calculators[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	return c, nil
}

// Validate checks s against its calculator.
func (r *Registry) Validate(s lineup.Schedule) error {
	c, err := r.get(s.Method)
	if err != nil {
		return err
	}
	return c.Validate(s)
}

// Calculate resolves s for the station itself.
func (r *Registry) Calculate(ctx context.Context, date string, s lineup.Schedule) (time.Time, error) {
	return r.CalculateFor(ctx, date, s, nil)
}

// CalculateFor resolves s for a listener.
func (r *Registry) CalculateFor(ctx context.Context, date string, s lineup.Schedule, listener *Listener) (time.Time, error) {
	c, err := r.get(s.Method)
	if err != nil {
		return time.Time{}, err
	}
	t, err := c.Calculate(ctx, date, s, listener)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s schedule on %s: %w", s.Method, date, err)
	}
	return t, nil
}

func requireParam(s lineup.Schedule, name string) error {
	if s.Param(name) == "" {
		return fmt.Errorf("%w: %s requires %q", ErrMissingParam, s.Method, name)
	}
	return nil
}

// parseClock accepts HH:MM or HH:MM:SS.
func parseClock(v string) (h, m, sec int, err error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, perr := time.Parse(layout, v); perr == nil {
			return t.Hour(), t.Minute(), t.Second(), nil
		}
	}
	return 0, 0, 0, fmt.Errorf("invalid time of day %q", v)
}
