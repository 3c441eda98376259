/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Status is the live-status record.
type Status struct {
	IsCurrentlyPlaying  bool   `json:"IsCurrentlyPlaying"`
	MostRecentProgram   string `json:"MostRecentProgram,omitempty"`
	StartedProgramTitle string `json:"StartedProgramTitle,omitempty"`
}

// LoadStatus reads the status file. A missing file is the zero status.
func LoadStatus(p Paths) (Status, error) {
	var s Status
	data, err := os.ReadFile(p.Status())
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read live status: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decode live status: %w", err)
	}
	return s, nil
}

// SaveStatus rewrites the status file atomically.
func SaveStatus(p Paths, s Status) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode live status: %w", err)
	}
	return writeFile(p.Status(), data)
}
