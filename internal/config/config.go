/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Job backend selection for live playback triggers.
const (
	JobBackendAt  = "at"
	JobBackendLog = "log"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	LogLevel    string
	LogFile     string // Optional rotating log file, useful for engine-spawned invocations
	StationID   string

	DBBackend DatabaseBackend
	DBDSN     string

	TemplatePath string
	WorkDir      string // Root of the run/ directory holding shadow queues and live status
	MediaRoot    string // Base for relative media paths in templates

	DefaultTimeZone   string // Station zone for fixed-time schedules
	ReferenceTimeZone string // Zone in which "today" is evaluated
	Latitude          float64
	Longitude         float64

	// Time-of-event oracle
	OracleURL    string
	OracleMethod int
	OracleRPS    float64

	PlanAheadDays     int
	ReplayTitleSuffix string

	// Playback engine command channel
	EngineAddr            string
	EngineConnectAttempts int
	EngineSettle          time.Duration

	JobBackend        string
	NoProgramSentinel string

	// Program-start notifications
	NATSURL     string
	NATSSubject string

	// Run lock (disabled when RedisAddr is empty)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RunLockTTL    time.Duration

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	PushgatewayURL string

	HTTPBind string
	HTTPPort int

	LegacyEnvWarnings []string
}

// LoadEnvFile loads a dotenv file into the process environment without
// overriding variables that are already set. An empty path means ".env" in
// the working directory, which is optional.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"GRIMNIR_ENV", "LINEUP_ENV"}, "development"),
		LogLevel:    getEnvAny([]string{"GRIMNIR_LOG_LEVEL", "LINEUP_LOG_LEVEL"}, "info"),
		LogFile:     getEnvAny([]string{"GRIMNIR_LOG_FILE", "LINEUP_LOG_FILE"}, ""),
		StationID:   getEnvAny([]string{"GRIMNIR_STATION_ID", "LINEUP_STATION_ID"}, "default"),

		DBBackend: DatabaseBackend(getEnvAny([]string{"GRIMNIR_DB_BACKEND", "LINEUP_DB_BACKEND"}, string(DatabaseSQLite))),
		DBDSN:     getEnvAny([]string{"GRIMNIR_DB_DSN", "LINEUP_DB_DSN"}, "file:run/lineup.db"),

		TemplatePath: getEnvAny([]string{"GRIMNIR_TEMPLATE_PATH", "LINEUP_TEMPLATE_PATH"}, "templates/lineup.yaml"),
		WorkDir:      getEnvAny([]string{"GRIMNIR_WORK_DIR", "LINEUP_WORK_DIR"}, "."),
		MediaRoot:    getEnvAny([]string{"GRIMNIR_MEDIA_ROOT", "LINEUP_MEDIA_ROOT"}, ""),

		DefaultTimeZone:   getEnvAny([]string{"GRIMNIR_DEFAULT_TIMEZONE", "LINEUP_DEFAULT_TIMEZONE"}, "Asia/Tehran"),
		ReferenceTimeZone: getEnvAny([]string{"GRIMNIR_REFERENCE_TIMEZONE", "LINEUP_REFERENCE_TIMEZONE"}, "Pacific/Kiritimati"),
		Latitude:          getEnvFloatAny([]string{"GRIMNIR_LATITUDE", "LINEUP_LATITUDE"}, 35.6892),
		Longitude:         getEnvFloatAny([]string{"GRIMNIR_LONGITUDE", "LINEUP_LONGITUDE"}, 51.3890),

		OracleURL:    getEnvAny([]string{"GRIMNIR_ORACLE_URL", "LINEUP_ORACLE_URL"}, "http://api.aladhan.com/v1"),
		OracleMethod: getEnvIntAny([]string{"GRIMNIR_ORACLE_METHOD", "LINEUP_ORACLE_METHOD"}, 7),
		OracleRPS:    getEnvFloatAny([]string{"GRIMNIR_ORACLE_RPS", "LINEUP_ORACLE_RPS"}, 2),

		PlanAheadDays:     getEnvIntAny([]string{"GRIMNIR_PLAN_AHEAD_DAYS", "LINEUP_PLAN_AHEAD_DAYS"}, 7),
		ReplayTitleSuffix: getEnvAny([]string{"GRIMNIR_REPLAY_TITLE_SUFFIX", "LINEUP_REPLAY_TITLE_SUFFIX"}, " - Replay"),

		EngineAddr:            getEnvAny([]string{"GRIMNIR_ENGINE_ADDR", "LINEUP_ENGINE_ADDR"}, "localhost:1221"),
		EngineConnectAttempts: getEnvIntAny([]string{"GRIMNIR_ENGINE_CONNECT_ATTEMPTS", "LINEUP_ENGINE_CONNECT_ATTEMPTS"}, 3),
		EngineSettle:          time.Duration(getEnvIntAny([]string{"GRIMNIR_ENGINE_SETTLE_MS", "LINEUP_ENGINE_SETTLE_MS"}, 500)) * time.Millisecond,

		JobBackend:        getEnvAny([]string{"GRIMNIR_JOB_BACKEND", "LINEUP_JOB_BACKEND"}, JobBackendAt),
		NoProgramSentinel: getEnvAny([]string{"GRIMNIR_NO_PROGRAM_SENTINEL", "LINEUP_NO_PROGRAM_SENTINEL"}, "/no-program.mp3"),

		NATSURL:     getEnvAny([]string{"GRIMNIR_NATS_URL", "LINEUP_NATS_URL"}, ""),
		NATSSubject: getEnvAny([]string{"GRIMNIR_NATS_SUBJECT", "LINEUP_NATS_SUBJECT"}, "grimnir.lineup.program_started"),

		RedisAddr:     getEnvAny([]string{"GRIMNIR_REDIS_ADDR", "LINEUP_REDIS_ADDR"}, ""),
		RedisPassword: getEnvAny([]string{"GRIMNIR_REDIS_PASSWORD", "LINEUP_REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"GRIMNIR_REDIS_DB", "LINEUP_REDIS_DB"}, 0),
		RunLockTTL:    time.Duration(getEnvIntAny([]string{"GRIMNIR_RUN_LOCK_TTL", "LINEUP_RUN_LOCK_TTL"}, 10)) * time.Minute,

		TracingEnabled:    getEnvBoolAny([]string{"GRIMNIR_TRACING_ENABLED", "LINEUP_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"GRIMNIR_OTLP_ENDPOINT", "LINEUP_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"GRIMNIR_TRACING_SAMPLE_RATE", "LINEUP_TRACING_SAMPLE_RATE"}, 1.0),

		PushgatewayURL: getEnvAny([]string{"GRIMNIR_PUSHGATEWAY_URL", "LINEUP_PUSHGATEWAY_URL"}, ""),

		HTTPBind: getEnvAny([]string{"GRIMNIR_HTTP_BIND", "LINEUP_HTTP_BIND"}, "127.0.0.1"),
		HTTPPort: getEnvIntAny([]string{"GRIMNIR_HTTP_PORT", "LINEUP_HTTP_PORT"}, 9190),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("GRIMNIR_DB_DSN or LINEUP_DB_DSN must be provided")
	}

	for _, tz := range []string{cfg.DefaultTimeZone, cfg.ReferenceTimeZone} {
		if _, err := time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("invalid time zone %q: %w", tz, err)
		}
	}

	if cfg.PlanAheadDays < 0 {
		return nil, fmt.Errorf("GRIMNIR_PLAN_AHEAD_DAYS must not be negative, got %d", cfg.PlanAheadDays)
	}

	if cfg.EngineConnectAttempts < 1 {
		return nil, fmt.Errorf("GRIMNIR_ENGINE_CONNECT_ATTEMPTS must be at least 1, got %d", cfg.EngineConnectAttempts)
	}

	if cfg.JobBackend != JobBackendAt && cfg.JobBackend != JobBackendLog {
		return nil, fmt.Errorf("unsupported job backend %q", cfg.JobBackend)
	}

	if cfg.OracleRPS <= 0 {
		return nil, fmt.Errorf("GRIMNIR_ORACLE_RPS must be positive")
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"ENVIRONMENT":       "use GRIMNIR_ENV (or LINEUP_ENV)",
		"TARGET_DATE":       "pass --target-date to generate",
		"PLAN_AHEAD_DAYS":   "use GRIMNIR_PLAN_AHEAD_DAYS",
		"LIQUIDSOAP_TELNET": "use GRIMNIR_ENGINE_ADDR",
		"TRACING_ENABLED":   "use GRIMNIR_TRACING_ENABLED (or LINEUP_TRACING_ENABLED)",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// Location returns the station default time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ReferenceLocation returns the zone in which "today" is evaluated.
func (c *Config) ReferenceLocation() *time.Location {
	loc, err := time.LoadLocation(c.ReferenceTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
