/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_lineup/internal/day"
	"github.com/friendsincode/grimnir_lineup/internal/models"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB, log zerolog.Logger) error {
	if err := database.AutoMigrate(
		&models.LineupPlanRecord{},
		&models.ScheduledLineupRecord{},
		&models.RotationCounter{},
		&models.RotationSelection{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	log.Debug().Msg("schema migrated")
	return nil
}

// PruneHistory deletes plans, scheduled lineups and rotation selections dated
// more than keepDays before now. Counters are never pruned.
func PruneHistory(database *gorm.DB, now time.Time, keepDays int, log zerolog.Logger) error {
	if keepDays <= 0 {
		return nil
	}
	cutoff := day.Format(now.UTC().AddDate(0, 0, -keepDays))

	for _, model := range []any{&models.LineupPlanRecord{}, &models.ScheduledLineupRecord{}, &models.RotationSelection{}} {
		res := database.Where("date < ?", cutoff).Delete(model)
		if res.Error != nil {
			return fmt.Errorf("prune %T: %w", model, res.Error)
		}
		if res.RowsAffected > 0 {
			log.Info().Str("before", cutoff).Int64("rows", res.RowsAffected).Msgf("pruned %T", model)
		}
	}
	return nil
}
