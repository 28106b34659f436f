/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package undo keeps the bounded undo/redo history of an editing session.
// Each entry is a serialized template snapshot plus the selection to restore.
package undo

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"idcardstudio/internal/domain"
)

// DefaultMaxEntries is the history depth used when Config leaves it unset. It is
// also the deepest history a Manager keeps.
const DefaultMaxEntries = 50

// Selection identifies the selected layer on a side. An empty LayerID means nothing is selected.
type Selection struct {
	Side    domain.SideName
	LayerID string
}

// Entry is one history state. Blob is the exchange JSON of the template and is
// opaque to the manager; its size is estimated as len(Blob).
type Entry struct {
	Blob      []byte
	Selection Selection
	Label     string
	TS        time.Time
}

// Capture serializes tpl into a new entry.
func Capture(tpl *domain.Template, sel Selection, label string) (Entry, error) {
	b, err := json.Marshal(tpl)
	if err != nil {
		return Entry{}, fmt.Errorf("snapshot template: %w", err)
	}
	return Entry{Blob: b, Selection: sel, Label: label, TS: time.Now()}, nil
}

// Template decodes a fresh deep copy of the snapshotted template.
func (e Entry) Template() (*domain.Template, error) {
	var t domain.Template
	if err := json.Unmarshal(e.Blob, &t); err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}
	return &t, nil
}

// Config controls depth and memory caps and coalescing behavior.
type Config struct {
	// MaxEntries caps the history depth; the oldest entry is evicted beyond it.
	MaxEntries int
	// MaxBytes is a soft cap; older entries are pruned when exceeded (the current entry is kept).
	MaxBytes int
	// MinInterval coalesces consecutive entries with the same non-empty Label captured
	// within the interval, replacing the top entry instead of pushing. Zero disables it.
	MinInterval time.Duration
	// Coalesce limits coalescing to the labels it accepts; nil accepts every label.
	Coalesce func(label string) bool
}

// Manager is an index-based history: entries[0..index] are undoable states and
// entries[index+1..] are redoable. It is safe for concurrent use.
type Manager struct {
	cfg        Config
	mu         sync.Mutex
	entries    []Entry
	index      int
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxEntries <= 0 || cfg.MaxEntries > DefaultMaxEntries {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 64 * 1024 * 1024 // 64 MiB
	}
	return &Manager{cfg: cfg, index: -1}
}

// Push truncates any redo entries, appends e and makes it current.
func (m *Manager) Push(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.truncateRedoLocked()
	if n := len(m.entries); n > 1 && m.coalesces(e.Label) {
		last := m.entries[n-1]
		if last.Label == e.Label && e.TS.Sub(last.TS) < m.cfg.MinInterval {
			m.totalBytes += len(e.Blob) - len(last.Blob)
			m.entries[n-1] = e
			m.enforceCapsLocked()
			return
		}
	}
	m.entries = append(m.entries, e)
	m.totalBytes += len(e.Blob)
	m.index = len(m.entries) - 1
	m.enforceCapsLocked()
}

func (m *Manager) coalesces(label string) bool {
	if m.cfg.MinInterval <= 0 || label == "" {
		return false
	}
	return m.cfg.Coalesce == nil || m.cfg.Coalesce(label)
}

// Reset drops all history and starts over with e as the baseline.
func (m *Manager) Reset(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = []Entry{e}
	m.totalBytes = len(e.Blob)
	m.index = 0
}

// Undo steps back one entry and returns it. It is a no-op at the oldest entry.
func (m *Manager) Undo() (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index <= 0 {
		return Entry{}, false
	}
	m.index--
	return m.entries[m.index], true
}

// Redo steps forward one entry and returns it. It is a no-op at the newest entry.
func (m *Manager) Redo() (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index >= len(m.entries)-1 {
		return Entry{}, false
	}
	m.index++
	return m.entries[m.index], true
}

// Current returns the entry matching the live state.
func (m *Manager) Current() (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index < 0 {
		return Entry{}, false
	}
	return m.entries[m.index], true
}

// SetSelection records the selection to restore when returning to the current entry.
func (m *Manager) SetSelection(sel Selection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index >= 0 {
		m.entries[m.index].Selection = sel
	}
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index >= 0 && m.index < len(m.entries)-1
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes, entries, index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalBytes, len(m.entries), m.index
}

func (m *Manager) truncateRedoLocked() {
	if m.index < len(m.entries)-1 {
		for _, e := range m.entries[m.index+1:] {
			m.totalBytes -= len(e.Blob)
		}
		m.entries = m.entries[:m.index+1]
	}
}

func (m *Manager) enforceCapsLocked() {
	drop := 0
	if extra := len(m.entries) - m.cfg.MaxEntries; extra > 0 {
		drop = extra
	}
	bytes := m.totalBytes
	for i := 0; i < drop; i++ {
		bytes -= len(m.entries[i].Blob)
	}
	for bytes > m.cfg.MaxBytes && drop < m.index {
		bytes -= len(m.entries[drop].Blob)
		drop++
	}
	if drop == 0 {
		return
	}
	m.entries = append([]Entry(nil), m.entries[drop:]...)
	m.totalBytes = bytes
	m.index -= drop
	if m.index < 0 {
		m.index = 0
	}
}
