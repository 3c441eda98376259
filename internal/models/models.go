/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package models holds the gorm rows persisted by the lineup generator.
package models

import (
	"time"

	"github.com/friendsincode/grimnir_lineup/internal/lineup"
)

// LineupPlanRecord stores the plan produced for one date. Once stored it is
// reused by later runs and read by replays.
type LineupPlanRecord struct {
	ID        string             `gorm:"type:varchar(36);primaryKey"`
	StationID string             `gorm:"type:varchar(64);uniqueIndex:idx_plan_station_date"`
	Date      string             `gorm:"type:varchar(10);uniqueIndex:idx_plan_station_date"`
	Version   string             `gorm:"type:varchar(16)"`
	Plan      *lineup.LineupPlan `gorm:"type:text;serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name.
func (LineupPlanRecord) TableName() string { return "lineup_plans" }

// ScheduledLineupRecord stores the compiled lineup as registered with the job
// scheduler, including the job handles.
type ScheduledLineupRecord struct {
	ID          string         `gorm:"type:varchar(36);primaryKey"`
	StationID   string         `gorm:"type:varchar(64);uniqueIndex:idx_lineup_station_date"`
	Date        string         `gorm:"type:varchar(10);uniqueIndex:idx_lineup_station_date"`
	Lineup      *lineup.Lineup `gorm:"type:text;serializer:json"`
	ScheduledAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ScheduledLineupRecord) TableName() string { return "scheduled_lineups" }

// RotationCounter is the persisted position of one media rotation.
type RotationCounter struct {
	StationID    string `gorm:"type:varchar(64);primaryKey"`
	IteratorID   string `gorm:"type:varchar(255);primaryKey"`
	LastDate     string `gorm:"type:varchar(10)"`
	NextPosition int64
	UpdatedAt    time.Time
}

func (RotationCounter) TableName() string { return "rotation_counters" }

// RotationSelection records what a rotation picked on a date so that past
// and repeated lookups are answered from history.
type RotationSelection struct {
	StationID  string `gorm:"type:varchar(64);primaryKey"`
	IteratorID string `gorm:"type:varchar(255);primaryKey"`
	Date       string `gorm:"type:varchar(10);primaryKey"`
	Position   int64
	MediaIndex int
	CreatedAt  time.Time
}

func (RotationSelection) TableName() string { return "rotation_selections" }
