/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package notify announces program starts to downstream listeners.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// EventProgramStarted is the event type carried in published messages.
const EventProgramStarted = "program_started"

// ProgramStart describes a program that just began airing.
type ProgramStart struct {
	StationID   string    `json:"station_id"`
	CanonicalID string    `json:"canonical_id"`
	Title       string    `json:"title,omitempty"`
	StartedAt   time.Time `json:"started_at"`
}

// Hook is told when a program starts.
type Hook interface {
	ProgramStarted(ctx context.Context, ev ProgramStart) error
}

// message is the envelope published on the bus.
type message struct {
	EventType string       `json:"event_type"`
	Payload   ProgramStart `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
	NodeID    string       `json:"node_id"`
	MessageID string       `json:"message_id"`
}

func marshalMessage(ev ProgramStart, nodeID string) ([]byte, error) {
	return json.Marshal(message{
		EventType: EventProgramStarted,
		Payload:   ev,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	})
}

// NATSHook publishes program starts to a NATS subject. The process reporting
// clip starts lives for a single event, so each call opens and closes its own
// connection.
type NATSHook struct {
	url     string
	subject string
	nodeID  string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewNATSHook returns a hook publishing on subject.
func NewNATSHook(url, subject string, logger zerolog.Logger) *NATSHook {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &NATSHook{
		url:     url,
		subject: subject,
		nodeID:  host,
		timeout: 3 * time.Second,
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

func (h *NATSHook) ProgramStarted(ctx context.Context, ev ProgramStart) error {
	data, err := marshalMessage(ev, h.nodeID)
	if err != nil {
		return fmt.Errorf("marshal program start: %w", err)
	}

	nc, err := nats.Connect(h.url,
		nats.Name("grimnir-lineup"),
		nats.Timeout(h.timeout),
		nats.NoReconnect(),
	)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer nc.Close()

	if err := nc.Publish(h.subject, data); err != nil {
		return fmt.Errorf("publish program start: %w", err)
	}
	flushCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	if err := nc.FlushWithContext(flushCtx); err != nil {
		return fmt.Errorf("flush nats: %w", err)
	}
	h.logger.Info().Str("subject", h.subject).Str("program", ev.CanonicalID).Msg("published program start")
	return nil
}

// LogHook only logs program starts.
type LogHook struct {
	logger zerolog.Logger
}

// NewLogHook returns a log-only hook.
func NewLogHook(logger zerolog.Logger) *LogHook {
	return &LogHook{logger: logger.With().Str("component", "notify").Logger()}
}

func (h *LogHook) ProgramStarted(_ context.Context, ev ProgramStart) error {
	h.logger.Info().Str("program", ev.CanonicalID).Str("title", ev.Title).Time("started_at", ev.StartedAt).Msg("program started")
	return nil
}
