/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package runlock keeps two generator runs for the same station from
// overlapping when several hosts share one schedule.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "grimnir:lineup:run:"

// ErrLocked is returned when another run holds the lock.
var ErrLocked = errors.New("another lineup run is in progress")

// release deletes the key only while it still carries our token.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Config configures the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Locker acquires per-station run locks. A Locker without a client hands out
// locks that guard nothing, which is what single-host installs want.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// Lock is a held run lock.
type Lock struct {
	locker *Locker
	key    string
	token  string
}

// New connects to Redis. An empty address yields a no-op locker.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Locker, error) {
	logger = logger.With().Str("component", "run_lock").Logger()
	if cfg.Addr == "" {
		return &Locker{logger: logger}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info().Str("redis_addr", cfg.Addr).Msg("connected to Redis for run locking")
	return NewWithClient(client, cfg.TTL, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Locker{client: client, ttl: ttl, logger: logger}
}

// Acquire takes the lock for stationID or returns ErrLocked.
func (l *Locker) Acquire(ctx context.Context, stationID string) (*Lock, error) {
	lock := &Lock{locker: l, key: keyPrefix + stationID, token: uuid.NewString()}
	if l.client == nil {
		return lock, nil
	}

	ok, err := l.client.SetNX(ctx, lock.key, lock.token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("set run lock: %w", err)
	}
	if !ok {
		holder, _ := l.client.Get(ctx, lock.key).Result()
		l.logger.Warn().Str("station", stationID).Str("holder", holder).Msg("run lock busy")
		return nil, ErrLocked
	}
	l.logger.Debug().Str("station", stationID).Msg("acquired run lock")
	return lock, nil
}

// Release gives the lock up if it is still ours.
func (lk *Lock) Release(ctx context.Context) error {
	if lk == nil || lk.locker.client == nil {
		return nil
	}
	if err := lk.locker.client.Eval(ctx, releaseScript, []string{lk.key}, lk.token).Err(); err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (l *Locker) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}
