/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drag

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func ms(n int) time.Time { return t0.Add(time.Duration(n) * time.Millisecond) }

func TestSessionSingleDrag(t *testing.T) {
	s := NewSession(500*time.Millisecond, 800*time.Millisecond)
	if err := s.Begin("a", t0); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.Begin("b", t0); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Begin err = %v, want ErrBusy", err)
	}
	if s.State() != Dragging || s.Dragged() != "a" {
		t.Fatalf("state = %v dragged = %q", s.State(), s.Dragged())
	}
	s.Cancel()
	if s.State() != Idle {
		t.Fatalf("state after cancel = %v", s.State())
	}
	if err := s.Begin("b", t0); err != nil {
		t.Fatalf("Begin after cancel: %v", err)
	}
}

func TestSessionRequiresDrag(t *testing.T) {
	s := NewSession(time.Second, time.Second)
	if err := s.Hover("x", IntentReorder, t0); !errors.Is(err, ErrNotDragging) {
		t.Fatalf("Hover err = %v", err)
	}
	if err := s.HoverEdge(EdgeLeft, t0); !errors.Is(err, ErrNotDragging) {
		t.Fatalf("HoverEdge err = %v", err)
	}
	if _, _, err := s.Drop(); !errors.Is(err, ErrNotDragging) {
		t.Fatalf("Drop err = %v", err)
	}
	if ev := s.Tick(t0); ev != nil {
		t.Fatalf("idle Tick = %v", ev)
	}
}

func TestSessionPreviewAfterDelayOnce(t *testing.T) {
	s := NewSession(500*time.Millisecond, 800*time.Millisecond)
	_ = s.Begin("a", t0)
	_ = s.Hover("b", IntentReorder, ms(100))
	if ev := s.Tick(ms(599)); len(ev) != 0 {
		t.Fatalf("early preview: %v", ev)
	}
	ev := s.Tick(ms(600))
	if len(ev) != 1 || ev[0].Kind != EventPreview || ev[0].Drop.Target != "b" || ev[0].Drop.Dragged != "a" {
		t.Fatalf("preview events = %+v", ev)
	}
	if ev := s.Tick(ms(2000)); len(ev) != 0 {
		t.Fatalf("preview repeated: %v", ev)
	}
}

func TestSessionHoverChangeRestartsDebounce(t *testing.T) {
	s := NewSession(500*time.Millisecond, time.Second)
	_ = s.Begin("a", t0)
	_ = s.Hover("b", IntentReorder, ms(0))
	_ = s.Hover("b", IntentReorder, ms(300)) // same target keeps the timer
	_ = s.Hover("c", IntentReorder, ms(400))
	if ev := s.Tick(ms(600)); len(ev) != 0 {
		t.Fatalf("preview for abandoned target: %v", ev)
	}
	ev := s.Tick(ms(900))
	if len(ev) != 1 || ev[0].Drop.Target != "c" {
		t.Fatalf("events = %+v", ev)
	}
}

func TestSessionMergeHoverNeverPreviews(t *testing.T) {
	s := NewSession(100*time.Millisecond, time.Second)
	_ = s.Begin("a", t0)
	_ = s.Hover("b", IntentMerge, t0)
	if ev := s.Tick(ms(5000)); len(ev) != 0 {
		t.Fatalf("merge hover previewed: %v", ev)
	}
	d, ok, err := s.Drop()
	if err != nil || !ok {
		t.Fatalf("Drop = %v %v", ok, err)
	}
	if d != (Drop{Dragged: "a", Target: "b", Intent: IntentMerge}) {
		t.Fatalf("drop = %+v", d)
	}
	if s.State() != Idle {
		t.Fatalf("state after drop = %v", s.State())
	}
}

func TestSessionHoverSelfOrNothingReturnsToDragging(t *testing.T) {
	s := NewSession(100*time.Millisecond, time.Second)
	_ = s.Begin("a", t0)
	_ = s.Hover("b", IntentReorder, t0)
	_ = s.Hover("a", IntentReorder, ms(10))
	if s.State() != Dragging || s.Target() != "" {
		t.Fatalf("state = %v target = %q", s.State(), s.Target())
	}
	d, ok, err := s.Drop()
	if err != nil || ok || d.Dragged != "a" {
		t.Fatalf("drop over nothing = %+v %v %v", d, ok, err)
	}
}

func TestSessionEdgeNavigationRepeats(t *testing.T) {
	s := NewSession(500*time.Millisecond, 800*time.Millisecond)
	_ = s.Begin("a", t0)
	_ = s.HoverEdge(EdgeRight, ms(0))
	if ev := s.Tick(ms(799)); len(ev) != 0 {
		t.Fatalf("early flip: %v", ev)
	}
	ev := s.Tick(ms(800))
	if len(ev) != 1 || ev[0].Kind != EventNavigate || ev[0].Edge != EdgeRight {
		t.Fatalf("events = %+v", ev)
	}
	if ev := s.Tick(ms(1200)); len(ev) != 0 {
		t.Fatalf("flip before full delay: %v", ev)
	}
	if ev := s.Tick(ms(1600)); len(ev) != 1 {
		t.Fatalf("expected repeated flip, got %v", ev)
	}
	_ = s.HoverEdge(EdgeNone, ms(1700))
	if ev := s.Tick(ms(5000)); len(ev) != 0 {
		t.Fatalf("flip after leaving edge: %v", ev)
	}
	if !s.Started().Equal(t0) {
		t.Fatalf("Started = %v", s.Started())
	}
}
