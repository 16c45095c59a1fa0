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
	"time"
)

var (
	// ErrBusy is returned when a drag begins while another one is active.
	ErrBusy = errors.New("drag already in progress")
	// ErrNotDragging is returned for hover, drop or edge events outside a drag.
	ErrNotDragging = errors.New("no drag in progress")
)

// State of a drag session.
type State int

const (
	Idle State = iota
	Dragging
	Hovering
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Hovering:
		return "hovering"
	default:
		return "idle"
	}
}

// Edge is a page-edge hover zone.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeLeft
	EdgeRight
)

// EventKind classifies what Tick asks the caller to do.
type EventKind int

const (
	// EventPreview asks for a provisional reorder preview of Event.Drop.
	EventPreview EventKind = iota + 1
	// EventNavigate asks the view to flip one page toward Event.Edge. It never changes data.
	EventNavigate
)

// Event is emitted by Session.Tick.
type Event struct {
	Kind EventKind
	Drop Drop
	Edge Edge
}

// Session tracks one drag gesture: Idle -> Dragging -> Hovering <-> Hovering -> Idle.
// Time never comes from a clock; every event carries its own timestamp so that callers
// and tests control debounce and page-flip timing. A Session is not safe for concurrent
// use; the owner serializes access.
type Session struct {
	DropDelay     time.Duration
	PageFlipDelay time.Duration

	state      State
	started    time.Time
	dragged    string
	target     string
	intent     Intent
	hoverSince time.Time
	previewed  bool
	edge       Edge
	edgeSince  time.Time
}

// NewSession returns an idle session with the given hover delays.
func NewSession(dropDelay, pageFlipDelay time.Duration) *Session {
	return &Session{DropDelay: dropDelay, PageFlipDelay: pageFlipDelay}
}

func (s *Session) State() State    { return s.state }
func (s *Session) Dragged() string { return s.dragged }
func (s *Session) Target() string  { return s.target }
func (s *Session) Intent() Intent  { return s.intent }

// Started returns the time passed to Begin.
func (s *Session) Started() time.Time { return s.started }

// Begin starts dragging the item with id. Only one drag may be active.
func (s *Session) Begin(id string, at time.Time) error {
	if s.state != Idle {
		return ErrBusy
	}
	if id == "" {
		return errors.New("drag: empty item id")
	}
	*s = Session{DropDelay: s.DropDelay, PageFlipDelay: s.PageFlipDelay, state: Dragging, dragged: id, started: at}
	return nil
}

// Hover moves the pointer over target with the given intent. An empty target (or the dragged
// item itself) returns to plain Dragging. Re-hovering the same target with the same intent
// keeps the running debounce; anything else restarts it.
func (s *Session) Hover(target string, intent Intent, at time.Time) error {
	if s.state == Idle {
		return ErrNotDragging
	}
	if target == "" || target == s.dragged {
		s.state, s.target, s.previewed = Dragging, "", false
		return nil
	}
	if s.state == Hovering && s.target == target && s.intent == intent {
		return nil
	}
	s.state, s.target, s.intent = Hovering, target, intent
	s.hoverSince, s.previewed = at, false
	return nil
}

// HoverEdge enters (or with EdgeNone, leaves) a page-edge zone.
func (s *Session) HoverEdge(e Edge, at time.Time) error {
	if s.state == Idle {
		return ErrNotDragging
	}
	if e == s.edge {
		return nil
	}
	s.edge, s.edgeSince = e, at
	return nil
}

// Tick advances timers to at. A reorder hover held for DropDelay yields one preview;
// an edge hover yields a navigation every PageFlipDelay while it is held.
func (s *Session) Tick(at time.Time) []Event {
	if s.state == Idle {
		return nil
	}
	var out []Event
	if s.state == Hovering && !s.previewed && s.intent == IntentReorder && !at.Before(s.hoverSince.Add(s.DropDelay)) {
		s.previewed = true
		out = append(out, Event{Kind: EventPreview, Drop: Drop{Dragged: s.dragged, Target: s.target, Intent: IntentReorder}})
	}
	if s.edge != EdgeNone && !at.Before(s.edgeSince.Add(s.PageFlipDelay)) {
		s.edgeSince = at
		out = append(out, Event{Kind: EventNavigate, Edge: s.edge})
	}
	return out
}

// Drop ends the gesture. ok is false when the release happened over no target; the session
// returns to Idle either way.
func (s *Session) Drop() (d Drop, ok bool, err error) {
	if s.state == Idle {
		return Drop{}, false, ErrNotDragging
	}
	if s.state == Hovering {
		d, ok = Drop{Dragged: s.dragged, Target: s.target, Intent: s.intent}, true
	} else {
		d = Drop{Dragged: s.dragged}
	}
	s.reset()
	return d, ok, nil
}

// Cancel abandons the gesture.
func (s *Session) Cancel() { s.reset() }

func (s *Session) reset() {
	*s = Session{DropDelay: s.DropDelay, PageFlipDelay: s.PageFlipDelay}
}
