/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store persists plans, scheduled lineups and rotation state for one
// station.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/grimnir_lineup/internal/lineup"
	"github.com/friendsincode/grimnir_lineup/internal/models"
	"github.com/friendsincode/grimnir_lineup/internal/rotation"
)

// Store is the gorm-backed station store.
type Store struct {
	db        *gorm.DB
	stationID string
}

// New returns a store scoped to stationID.
func New(db *gorm.DB, stationID string) *Store {
	return &Store{db: db, stationID: stationID}
}

// GetLineupPlan returns the stored plan for date, or nil when none exists.
func (s *Store) GetLineupPlan(ctx context.Context, date string) (*lineup.LineupPlan, error) {
	var rec models.LineupPlanRecord
	err := s.db.WithContext(ctx).
		Where("station_id = ? AND date = ?", s.stationID, date).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load plan %s: %w", date, err)
	}
	return rec.Plan, nil
}

// SaveLineupPlan stores plan under its date, replacing an existing one.
func (s *Store) SaveLineupPlan(ctx context.Context, plan *lineup.LineupPlan) error {
	rec := models.LineupPlanRecord{
		ID:        uuid.NewString(),
		StationID: s.stationID,
		Date:      plan.LineupID,
		Version:   plan.Version,
		Plan:      plan,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "station_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "plan", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save plan %s: %w", plan.LineupID, err)
	}
	return nil
}

// GetScheduledLineup returns the lineup last registered for date, or nil.
func (s *Store) GetScheduledLineup(ctx context.Context, date string) (*lineup.Lineup, error) {
	var rec models.ScheduledLineupRecord
	err := s.db.WithContext(ctx).
		Where("station_id = ? AND date = ?", s.stationID, date).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load scheduled lineup %s: %w", date, err)
	}
	return rec.Lineup, nil
}

// SaveScheduledLineup stores l together with its job handles.
func (s *Store) SaveScheduledLineup(ctx context.Context, l *lineup.Lineup) error {
	rec := models.ScheduledLineupRecord{
		ID:          uuid.NewString(),
		StationID:   s.stationID,
		Date:        l.LineupID,
		Lineup:      l,
		ScheduledAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "station_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"lineup", "scheduled_at", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save scheduled lineup %s: %w", l.LineupID, err)
	}
	return nil
}

// LoadCounter implements rotation.Store.
func (s *Store) LoadCounter(ctx context.Context, iteratorID string) (rotation.Counter, bool, error) {
	var row models.RotationCounter
	err := s.db.WithContext(ctx).
		Where("station_id = ? AND iterator_id = ?", s.stationID, iteratorID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rotation.Counter{}, false, nil
	}
	if err != nil {
		return rotation.Counter{}, false, fmt.Errorf("load rotation counter %s: %w", iteratorID, err)
	}
	return rotation.Counter{IteratorID: row.IteratorID, LastDate: row.LastDate, NextPosition: row.NextPosition}, true, nil
}

// Selection implements rotation.Store.
func (s *Store) Selection(ctx context.Context, iteratorID, date string) (rotation.Selection, bool, error) {
	var row models.RotationSelection
	err := s.db.WithContext(ctx).
		Where("station_id = ? AND iterator_id = ? AND date = ?", s.stationID, iteratorID, date).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rotation.Selection{}, false, nil
	}
	if err != nil {
		return rotation.Selection{}, false, fmt.Errorf("load rotation selection %s@%s: %w", iteratorID, date, err)
	}
	return rotation.Selection{Position: row.Position, Index: row.MediaIndex}, true, nil
}

// Commit implements rotation.Store. The selection and the advanced counter are
// written in one transaction.
func (s *Store) Commit(ctx context.Context, counter rotation.Counter, date string, sel rotation.Selection) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.RotationCounter{
			StationID:    s.stationID,
			IteratorID:   counter.IteratorID,
			LastDate:     counter.LastDate,
			NextPosition: counter.NextPosition,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "station_id"}, {Name: "iterator_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_date", "next_position", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("save rotation counter %s: %w", counter.IteratorID, err)
		}

		selection := models.RotationSelection{
			StationID:  s.stationID,
			IteratorID: counter.IteratorID,
			Date:       date,
			Position:   sel.Position,
			MediaIndex: sel.Index,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "station_id"}, {Name: "iterator_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"position", "media_index"}),
		}).Create(&selection).Error; err != nil {
			return fmt.Errorf("save rotation selection %s@%s: %w", counter.IteratorID, date, err)
		}
		return nil
	})
}

var (
	_ lineup.PlanSource = (*Store)(nil)
	_ rotation.Store    = (*Store)(nil)
)
