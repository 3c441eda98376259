/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_lineup/internal/telemetry"
)

const startKey = "telemetry:start"

// RegisterCallbacks records latency and errors of every gorm operation.
func RegisterCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Query().Before("gorm:query").Register("telemetry:before_query", markStart),
		cb.Query().After("gorm:query").Register("telemetry:after_query", observe("query")),
		cb.Create().Before("gorm:create").Register("telemetry:before_create", markStart),
		cb.Create().After("gorm:create").Register("telemetry:after_create", observe("create")),
		cb.Update().Before("gorm:update").Register("telemetry:before_update", markStart),
		cb.Update().After("gorm:update").Register("telemetry:after_update", observe("update")),
		cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", markStart),
		cb.Delete().After("gorm:delete").Register("telemetry:after_delete", observe("delete")),
		cb.Row().Before("gorm:row").Register("telemetry:before_row", markStart),
		cb.Row().After("gorm:row").Register("telemetry:after_row", observe("row")),
	)
}

func markStart(db *gorm.DB) {
	db.InstanceSet(startKey, time.Now())
}

func observe(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(startKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		telemetry.DatabaseQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			telemetry.DatabaseErrorsTotal.WithLabelValues(operation).Inc()
		}
	}
}
