/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package engine talks to the playback engine over its line-based telnet
// command interface.
package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_lineup/internal/telemetry"
)

// Queue names understood by the engine script.
const (
	BoxQueue                 = "box_q"
	InterruptingPreShowQueue = "interrupting_preshow_q"
	InterruptingShowQueue    = "interrupting_show_q"
	PreShowFillerQueue       = "interrupting_preshow_filler"

	// PreShowEnabledVar switches the engine between the pre-show and
	// the regular sources.
	PreShowEnabledVar = "interrupting_preshow_enabled"
)

// ErrConnect is returned when the engine cannot be reached.
var ErrConnect = errors.New("connect to playback engine")

// Channel executes commands against the engine.
type Channel interface {
	Exec(ctx context.Context, cmds ...string) error
}

// Config configures a Telnet channel.
type Config struct {
	Addr     string
	Attempts uint
	Settle   time.Duration
	Timeout  time.Duration
}

// Telnet opens one connection per Exec call.
type Telnet struct {
	cfg    Config
	logger zerolog.Logger
}

// NewTelnet returns a telnet channel.
func NewTelnet(cfg Config, logger zerolog.Logger) *Telnet {
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Telnet{cfg: cfg, logger: logger.With().Str("component", "engine").Logger()}
}

// Exec sends cmds in order, reading each reply up to its END marker. Only the
// connect step is retried; a command that was written is never resent.
func (t *Telnet) Exec(ctx context.Context, cmds ...string) error {
	var dialer net.Dialer
	var conn net.Conn
	err := retry.Do(
		func() error {
			dialCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
			defer cancel()
			c, err := dialer.DialContext(dialCtx, "tcp", t.cfg.Addr)
			if err != nil {
				return err
			}
			conn = c
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(t.cfg.Attempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			t.logger.Warn().Err(err).Uint("attempt", n+1).Str("addr", t.cfg.Addr).Msg("engine connect failed, retrying")
		}),
	)
	if err != nil {
		telemetry.EngineCommandsTotal.WithLabelValues("connect_error").Inc()
		return fmt.Errorf("%w at %s: %v", ErrConnect, t.cfg.Addr, err)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	for _, cmd := range cmds {
		reply, err := t.roundTrip(conn, r, cmd)
		if err != nil {
			telemetry.EngineCommandsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("engine command %q: %w", cmd, err)
		}
		telemetry.EngineCommandsTotal.WithLabelValues("ok").Inc()
		t.logger.Debug().Str("cmd", cmd).Str("reply", reply).Msg("engine command")
	}

	select {
	case <-time.After(t.cfg.Settle):
	case <-ctx.Done():
	}
	_ = conn.SetDeadline(time.Now().Add(t.cfg.Timeout))
	_, _ = conn.Write([]byte("quit\n"))
	return nil
}

func (t *Telnet) roundTrip(conn net.Conn, r *bufio.Reader, cmd string) (string, error) {
	if err := conn.SetDeadline(time.Now().Add(t.cfg.Timeout)); err != nil {
		return "", err
	}
	if _, err := conn.Write([]byte(cmd + "\n")); err != nil {
		return "", err
	}
	var lines []string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return strings.Join(lines, "\n"), err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "END" {
			return strings.Join(lines, "\n"), nil
		}
		lines = append(lines, line)
	}
}

// Push appends path to queue.
func Push(queue, path string) string {
	return queue + ".push " + path
}

// SetVar sets a boolean interactive variable.
func SetVar(name string, v bool) string {
	return fmt.Sprintf("var.set %s = %t", name, v)
}

// Skip skips the track playing on queue.
func Skip(queue string) string {
	return queue + ".skip"
}

// RemoveAll drops every pending request of queue.
func RemoveAll(queue string) string {
	return queue + ".removeall()"
}
