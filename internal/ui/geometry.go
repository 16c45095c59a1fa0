/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"math"
	"strings"
	"time"

	"golaunchpad/internal/drag"
)

// Zone classifies where in the grid a pointer is.
type Zone int

const (
	ZoneNone Zone = iota
	// ZoneCenter is the inner part of a cell: dropping there merges.
	ZoneCenter
	// ZoneCell is the outer ring of a cell: dropping there reorders.
	ZoneCell
	ZonePageLeft
	ZonePageRight
)

// centerFraction is the share of a cell's width and height that counts as its center.
const centerFraction = 0.5

// Grid maps widget coordinates onto slots of a Columns x Rows page that fills
// Width x Height after an EdgeWidth strip on both sides.
type Grid struct {
	Columns   int
	Rows      int
	Width     float32
	Height    float32
	EdgeWidth float32
}

// Hit is the result of a hit test. Slot is the row-major slot index, or -1.
type Hit struct {
	Slot int
	Zone Zone
}

// CellSize returns the size of one slot.
func (g Grid) CellSize() (w, h float32) {
	if g.Columns <= 0 || g.Rows <= 0 {
		return 0, 0
	}
	inner := g.Width - 2*g.EdgeWidth
	if inner < 0 {
		inner = 0
	}
	return inner / float32(g.Columns), g.Height / float32(g.Rows)
}

// CellOrigin returns the top-left corner of slot.
func (g Grid) CellOrigin(slot int) (x, y float32) {
	w, h := g.CellSize()
	if g.Columns <= 0 {
		return 0, 0
	}
	return g.EdgeWidth + float32(slot%g.Columns)*w, float32(slot/g.Columns) * h
}

// HitTest resolves a pointer position. Positions inside the side strips are page
// edges; anything else maps to a slot whether or not an item occupies it.
func (g Grid) HitTest(x, y float32) Hit {
	w, h := g.CellSize()
	switch {
	case w <= 0 || h <= 0 || y < 0 || y >= g.Height:
		return Hit{Slot: -1}
	case x < g.EdgeWidth:
		return Hit{Slot: -1, Zone: ZonePageLeft}
	case x >= g.Width-g.EdgeWidth:
		return Hit{Slot: -1, Zone: ZonePageRight}
	}
	col := int((x - g.EdgeWidth) / w)
	row := int(y / h)
	if col >= g.Columns {
		col = g.Columns - 1
	}
	if row >= g.Rows {
		row = g.Rows - 1
	}
	ox, oy := g.CellOrigin(row*g.Columns + col)
	fx := (x - ox) / w
	fy := (y - oy) / h
	lo, hi := float32((1-centerFraction)/2), float32((1+centerFraction)/2)
	zone := ZoneCell
	if fx >= lo && fx < hi && fy >= lo && fy < hi {
		zone = ZoneCenter
	}
	return Hit{Slot: row*g.Columns + col, Zone: zone}
}

// Intent is the drop intent for a hit on an occupied slot.
func (h Hit) Intent() drag.Intent {
	if h.Zone == ZoneCenter {
		return drag.IntentMerge
	}
	return drag.IntentReorder
}

// Edge is the page edge a hit lies on.
func (h Hit) Edge() drag.Edge {
	switch h.Zone {
	case ZonePageLeft:
		return drag.EdgeLeft
	case ZonePageRight:
		return drag.EdgeRight
	default:
		return drag.EdgeNone
	}
}

// ScrollPager turns wheel and trackpad deltas into page steps. Deltas accumulate until
// their magnitude reaches Threshold pages (measured against PageExtent); after a step,
// further input is ignored for Debounce.
type ScrollPager struct {
	Threshold  float64
	PageExtent float64
	Debounce   time.Duration

	acc      float64
	lastStep time.Time
}

// Scroll feeds one delta and returns -1, 0 or +1 pages. Positive deltas move forward.
func (s *ScrollPager) Scroll(delta float64, at time.Time) int {
	if !s.lastStep.IsZero() && at.Sub(s.lastStep) < s.Debounce {
		return 0
	}
	extent := s.PageExtent
	if extent <= 0 {
		extent = 1
	}
	s.acc += delta / extent
	if math.Abs(s.acc) < s.Threshold || s.acc == 0 {
		return 0
	}
	step := 1
	if s.acc < 0 {
		step = -1
	}
	s.acc = 0
	s.lastStep = at
	return step
}

// shortLabel cuts s to at most n runes, ending in an ellipsis when shortened.
func shortLabel(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

// pageDots renders the page indicator, e.g. "○ ● ○" for the second of three pages.
func pageDots(current, total int) string {
	if total <= 1 {
		return ""
	}
	dots := make([]string, total)
	for i := range dots {
		dots[i] = "○"
		if i == current {
			dots[i] = "●"
		}
	}
	return strings.Join(dots, " ")
}
