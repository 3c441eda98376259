/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package rotation selects which media item of a rotation group airs on a
// calendar date. Selections for today are persisted once, past dates replay
// their recorded selection, and future dates are computed without writing.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_lineup/internal/day"
)

var (
	// ErrNoHistory is returned for a past date that was never planned.
	ErrNoHistory = errors.New("no recorded selection for past date")

	// ErrIndexOutOfRange is returned when a recorded selection no longer fits its group.
	ErrIndexOutOfRange = errors.New("recorded media index out of range")

	// ErrEmptyGroup is returned for a rotation group without media.
	ErrEmptyGroup = errors.New("empty rotation group")
)

// Policy controls how positions map to media indexes.
type Policy string

const (
	// PolicyCycle walks the group in order.
	PolicyCycle Policy = "Cycle"
	// PolicyShuffle walks a fixed permutation per pass over the group.
	PolicyShuffle Policy = "Shuffle"
)

// ParsePolicy validates a policy name. Empty means cycle.
func ParsePolicy(name string) (Policy, error) {
	switch Policy(name) {
	case "", PolicyCycle:
		return PolicyCycle, nil
	case PolicyShuffle:
		return PolicyShuffle, nil
	default:
		return "", fmt.Errorf("unknown iterator policy %q", name)
	}
}

// Key builds the iterator id of one clip slot.
func Key(boxID, programID, showKind string, clipIndex int) string {
	return fmt.Sprintf("%s-%s-%s-%d", boxID, programID, showKind, clipIndex)
}

// Counter is the persisted state of one iterator.
type Counter struct {
	IteratorID   string
	LastDate     string
	NextPosition int64
}

// Selection is what an iterator picked for one date.
type Selection struct {
	Position int64
	Index    int
}

// Store persists counters and their per-date selections.
type Store interface {
	LoadCounter(ctx context.Context, iteratorID string) (Counter, bool, error)
	Selection(ctx context.Context, iteratorID, date string) (Selection, bool, error)
	// Commit records the selection for date and saves the advanced counter atomically.
	Commit(ctx context.Context, counter Counter, date string, sel Selection) error
}

// Iterator hands out media indexes per date.
type Iterator struct {
	store  Store
	loc    *time.Location
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures an Iterator.
type Option func(*Iterator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(it *Iterator) { it.now = now }
}

// New creates an iterator evaluating "today" in loc.
func New(store Store, loc *time.Location, logger zerolog.Logger, opts ...Option) *Iterator {
	it := &Iterator{
		store:  store,
		loc:    loc,
		now:    time.Now,
		logger: logger.With().Str("component", "rotation").Logger(),
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Today returns the date the iterator treats as today.
func (it *Iterator) Today() string {
	return day.Today(it.now(), it.loc)
}

// Next returns the media index for date in a group of size items. offset
// shifts the position so clips sharing a group can stay apart.
func (it *Iterator) Next(ctx context.Context, key string, policy Policy, size int, date string, offset int) (int, error) {
	if size <= 0 {
		return 0, ErrEmptyGroup
	}
	today := it.Today()
	ahead, err := day.Between(today, date)
	if err != nil {
		return 0, err
	}

	if ahead < 0 {
		return it.recorded(ctx, key, size, date)
	}

	if ahead == 0 {
		if idx, err := it.recorded(ctx, key, size, date); !errors.Is(err, ErrNoHistory) {
			return idx, err
		}
	}

	counter, found, err := it.store.LoadCounter(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("load counter %s: %w", key, err)
	}
	if !found {
		counter = Counter{IteratorID: key}
	}

	if ahead > 0 {
		// Read only. Today's position is consumed first unless it already was.
		extra := int64(ahead - 1)
		if counter.LastDate != today {
			extra++
		}
		return pick(policy, key, counter.NextPosition+extra+int64(offset), size), nil
	}

	pos := counter.NextPosition + int64(offset)
	sel := Selection{Position: pos, Index: pick(policy, key, pos, size)}
	counter.LastDate = today
	counter.NextPosition++
	if err := it.store.Commit(ctx, counter, today, sel); err != nil {
		return 0, fmt.Errorf("commit counter %s: %w", key, err)
	}
	it.logger.Debug().Str("iterator", key).Str("date", today).Int("index", sel.Index).Msg("advanced rotation")
	return sel.Index, nil
}

func (it *Iterator) recorded(ctx context.Context, key string, size int, date string) (int, error) {
	sel, found, err := it.store.Selection(ctx, key, date)
	if err != nil {
		return 0, fmt.Errorf("load selection %s@%s: %w", key, date, err)
	}
	if !found {
		return 0, fmt.Errorf("%w: %s@%s", ErrNoHistory, key, date)
	}
	if sel.Index < 0 || sel.Index >= size {
		return 0, fmt.Errorf("%w: %s@%s index %d of %d", ErrIndexOutOfRange, key, date, sel.Index, size)
	}
	return sel.Index, nil
}

func pick(policy Policy, key string, pos int64, size int) int {
	n := int64(size)
	pass, within := pos/n, pos%n
	if within < 0 {
		pass--
		within += n
	}
	if policy != PolicyShuffle {
		return int(within)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	seed := int64(h.Sum64()) ^ (pass * 7919)
	return rand.New(rand.NewSource(seed)).Perm(size)[within]
}
