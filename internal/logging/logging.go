/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options tune the process logger beyond the environment default.
type Options struct {
	Level string // zerolog level name; empty keeps the environment default
	File  string // when set, JSON lines are also written to this size-rotated file
}

// Setup configures zerolog for the process.
func Setup(environment string) zerolog.Logger {
	return SetupWithOptions(environment, Options{})
}

// SetupWithOptions configures zerolog with an optional level override and log file.
func SetupWithOptions(environment string, opts Options) zerolog.Logger {
	var file io.Writer
	if opts.File != "" {
		file = FileWriter(opts.File)
	}
	logger := SetupWithWriter(environment, file)
	if opts.Level != "" {
		if lvl, err := zerolog.ParseLevel(opts.Level); err == nil {
			logger = logger.Level(lvl)
			log.Logger = logger
		}
	}
	return logger
}

// SetupWithWriter configures zerolog with an additional writer (e.g., a log file).
func SetupWithWriter(environment string, additionalWriter io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	if environment == "development" {
		level = zerolog.DebugLevel
	}

	var writer io.Writer = os.Stdout
	if environment == "development" {
		writer = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	if additionalWriter != nil {
		writer = zerolog.MultiLevelWriter(writer, additionalWriter)
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(level)
	log.Logger = logger
	return logger
}

// FileWriter returns a rotating file writer. The engine spawns short-lived
// processes whose stderr is discarded, so their logs only survive here.
func FileWriter(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
}
