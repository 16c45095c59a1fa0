/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps a bounded undo/redo history of layout snapshots.
package undo

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golaunchpad/internal/domain"
)

// Snapshot is an encoded page list captured before a mutation.
// Blob content is opaque to the manager; size is estimated as len(Blob).
type Snapshot struct {
	Label string
	Blob  []byte
	TS    time.Time
}

// Capture encodes pages into a snapshot. Icons and session ids are kept so that a restore
// is indistinguishable from the captured state.
func Capture(label string, pages domain.Pages, ts time.Time) (Snapshot, error) {
	b, err := json.Marshal(pages)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode undo snapshot: %w", err)
	}
	return Snapshot{Label: label, Blob: b, TS: ts}, nil
}

// Pages decodes the snapshot back into a page list.
func (s Snapshot) Pages() (domain.Pages, error) {
	var ps domain.Pages
	if err := json.Unmarshal(s.Blob, &ps); err != nil {
		return nil, fmt.Errorf("decode undo snapshot: %w", err)
	}
	return ps, nil
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxDepth limits the number of undo entries (0 means unlimited).
	MaxDepth int
	// MinInterval coalesces pushes closer than the interval into the earlier entry,
	// so that a burst of edits undoes in one step.
	MinInterval time.Duration
}

// Manager is a linear undo/redo history. It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex

	undo []Snapshot
	redo []Snapshot
	// accounting over both stacks
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{cfg: cfg}
}

// Push records the state before a change and invalidates redo. A push within MinInterval
// of the previous one is dropped; the earlier snapshot already covers the burst.
func (m *Manager) Push(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearRedoLocked()
	if n := len(m.undo); n > 0 && m.cfg.MinInterval > 0 {
		if s.TS.Sub(m.undo[n-1].TS) < m.cfg.MinInterval {
			return
		}
	}
	m.undo = append(m.undo, s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked()
}

// Undo pops the latest snapshot and parks current on the redo stack.
func (m *Manager) Undo(current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.undo)
	if n == 0 {
		return Snapshot{}, false
	}
	s := m.undo[n-1]
	m.undo = m.undo[:n-1]
	m.totalBytes -= len(s.Blob)
	m.redo = append(m.redo, current)
	m.totalBytes += len(current.Blob)
	return s, true
}

// Redo pops the latest redo entry and parks current on the undo stack.
func (m *Manager) Redo(current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.redo)
	if n == 0 {
		return Snapshot{}, false
	}
	s := m.redo[n-1]
	m.redo = m.redo[:n-1]
	m.totalBytes -= len(s.Blob)
	m.undo = append(m.undo, current)
	m.totalBytes += len(current.Blob)
	m.enforceCapsLocked()
	return s, true
}

// CanUndo and CanRedo report whether a step is available.
func (m *Manager) CanUndo() bool { m.mu.Lock(); defer m.mu.Unlock(); return len(m.undo) > 0 }
func (m *Manager) CanRedo() bool { m.mu.Lock(); defer m.mu.Unlock(); return len(m.redo) > 0 }

// Clear drops all history, e.g. after a reset or import.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo, m.redo, m.totalBytes = nil, nil, 0
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, undoDepth int, redoDepth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalBytes, len(m.undo), len(m.redo)
}

func (m *Manager) clearRedoLocked() {
	for _, s := range m.redo {
		m.totalBytes -= len(s.Blob)
	}
	m.redo = nil
}

func (m *Manager) enforceCapsLocked() {
	if m.cfg.MaxDepth > 0 && len(m.undo) > m.cfg.MaxDepth {
		toDrop := len(m.undo) - m.cfg.MaxDepth
		for i := 0; i < toDrop; i++ {
			m.totalBytes -= len(m.undo[i].Blob)
		}
		m.undo = append([]Snapshot{}, m.undo[toDrop:]...)
	}
	// Memory cap: prune oldest undo entries, always keeping the newest one.
	for m.totalBytes > m.cfg.MaxBytes && len(m.undo) > 1 {
		m.totalBytes -= len(m.undo[0].Blob)
		m.undo = m.undo[1:]
	}
}
