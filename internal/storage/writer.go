/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	applog "golaunchpad/internal/log"
)

// Saver is anything that can durably store a layout.
type Saver interface {
	Save(recs []Record) error
}

// Writer persists layouts off the interaction path. Scheduling never blocks:
// only the most recent pending layout is kept, so the durable copy is last-write-wins.
type Writer struct {
	saver  Saver
	log    *slog.Logger
	signal chan struct{}
	closed chan struct{}
	done   chan struct{}
	once   sync.Once

	mu       sync.Mutex
	pending  []Record
	hasWork  bool
	inflight bool
	stopped  bool
	lastErr  error
	saves    int
}

// NewWriter starts the background loop.
func NewWriter(s Saver) *Writer {
	w := &Writer{
		saver:  s,
		log:    applog.WithComponent("storage"),
		signal: make(chan struct{}, 1),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.loop()
	return w
}

// Schedule queues recs for saving, replacing any layout not yet written.
// Layouts scheduled after Close are dropped.
func (w *Writer) Schedule(recs []Record) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		w.log.Warn("layout scheduled after close, dropped", slog.Int("records", len(recs)))
		return
	}
	w.pending = append([]Record(nil), recs...)
	w.hasWork = true
	w.mu.Unlock()
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Flush waits until every scheduled layout has been written or ctx is done.
func (w *Writer) Flush(ctx context.Context) error {
	for {
		w.mu.Lock()
		idle := !w.hasWork && !w.inflight
		err := w.lastErr
		w.mu.Unlock()
		if idle {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			w.mu.Lock()
			defer w.mu.Unlock()
			return w.lastErr
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Close writes any pending layout and stops the loop.
func (w *Writer) Close() error {
	w.once.Do(func() {
		w.mu.Lock()
		w.stopped = true
		w.mu.Unlock()
		close(w.closed)
	})
	<-w.done
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Saves reports how many writes were performed; coalesced schedules count once.
func (w *Writer) Saves() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.saves
}

func (w *Writer) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.closed:
			w.drain()
			return
		case <-w.signal:
			w.drain()
		}
	}
}

func (w *Writer) drain() {
	for {
		w.mu.Lock()
		if !w.hasWork {
			w.mu.Unlock()
			return
		}
		recs := w.pending
		w.pending = nil
		w.hasWork = false
		w.inflight = true
		w.mu.Unlock()

		err := w.saver.Save(recs)

		w.mu.Lock()
		w.inflight = false
		w.lastErr = err
		w.saves++
		w.mu.Unlock()
		if err != nil {
			w.log.Error("layout save failed", slog.Any("err", err))
		} else {
			w.log.Debug("layout saved", slog.Int("records", len(recs)))
		}
	}
}
