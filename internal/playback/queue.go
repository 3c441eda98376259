/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playback mirrors the engine's queues on disk, follows its
// now-playing reports and pushes lineup segments into it.
package playback

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// Files below the work directory.
const (
	BoxQueueFile     = "run/liquidsoap/box-clips.liquidsoap.queue"
	PreShowQueueFile = "run/liquidsoap/interrupting-preshow-clips.liquidsoap.queue"
	ShowQueueFile    = "run/liquidsoap/interrupting-show-clips.liquidsoap.queue"
	FillerLockFile   = "run/liquidsoap/interrupting-preshow-filler.lock"
	StatusFile       = "run/live/status.json"
)

// Paths locates the playback files of one work directory.
type Paths struct {
	WorkDir string
}

func (p Paths) join(rel string) string { return filepath.Join(p.WorkDir, rel) }

func (p Paths) BoxQueue() string     { return p.join(BoxQueueFile) }
func (p Paths) PreShowQueue() string { return p.join(PreShowQueueFile) }
func (p Paths) ShowQueue() string    { return p.join(ShowQueueFile) }
func (p Paths) FillerLock() string   { return p.join(FillerLockFile) }
func (p Paths) Status() string       { return p.join(StatusFile) }

// Entry is one clip handed to the engine. MarksStartOfProgram holds the
// canonical id of the program the clip opens, if any.
type Entry struct {
	ClipAbsolutePath    string `json:"ClipAbsolutePath"`
	MarksStartOfProgram string `json:"MarksStartOfProgram,omitempty"`
	StartedProgramTitle string `json:"StartedProgramTitle,omitempty"`
}

// Queue is a shadow queue backed by a JSON file.
type Queue struct {
	path    string
	Entries []Entry
}

// LoadQueue reads the queue at path. A missing file is an empty queue.
func LoadQueue(path string) (*Queue, error) {
	q := &Queue{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return q, nil
	}
	if err := json.Unmarshal(data, &q.Entries); err != nil {
		return nil, fmt.Errorf("decode queue %s: %w", path, err)
	}
	return q, nil
}

// Head returns the first entry.
func (q *Queue) Head() (Entry, bool) {
	if len(q.Entries) == 0 {
		return Entry{}, false
	}
	return q.Entries[0], true
}

// Pop removes and returns the first entry.
func (q *Queue) Pop() (Entry, bool) {
	e, ok := q.Head()
	if ok {
		q.Entries = q.Entries[1:]
	}
	return e, ok
}

// Push appends entries.
func (q *Queue) Push(entries ...Entry) {
	q.Entries = append(q.Entries, entries...)
}

// Save rewrites the queue file atomically.
func (q *Queue) Save() error {
	entries := q.Entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	return writeFile(q.path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Reset deletes every shadow queue. Run it after the engine restarts with
// empty queues.
func Reset(p Paths) error {
	for _, path := range []string{p.BoxQueue(), p.PreShowQueue(), p.ShowQueue()} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}

// FillerPath returns the filler clip of the pre-show in progress, or "".
func FillerPath(p Paths) (string, error) {
	data, err := os.ReadFile(p.FillerLock())
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read filler lock: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
