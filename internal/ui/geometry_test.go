/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"testing"
	"time"

	"golaunchpad/internal/drag"
)

func testGrid() Grid {
	return Grid{Columns: 4, Rows: 2, Width: 440, Height: 200, EdgeWidth: 20}
}

func TestGridHitTest(t *testing.T) {
	g := testGrid()
	cases := []struct {
		name string
		x, y float32
		want Hit
	}{
		{"left edge", 5, 50, Hit{Slot: -1, Zone: ZonePageLeft}},
		{"right edge", 430, 50, Hit{Slot: -1, Zone: ZonePageRight}},
		{"above", 100, -1, Hit{Slot: -1}},
		{"below", 100, 200, Hit{Slot: -1}},
		{"first cell center", 70, 50, Hit{Slot: 0, Zone: ZoneCenter}},
		{"first cell corner", 22, 2, Hit{Slot: 0, Zone: ZoneCell}},
		{"second row", 170, 150, Hit{Slot: 5, Zone: ZoneCenter}},
		{"last cell rim", 419, 199, Hit{Slot: 7, Zone: ZoneCell}},
	}
	for _, tc := range cases {
		if got := g.HitTest(tc.x, tc.y); got != tc.want {
			t.Errorf("%s: HitTest(%v,%v) = %+v, want %+v", tc.name, tc.x, tc.y, got, tc.want)
		}
	}
}

func TestGridCellOrigin(t *testing.T) {
	g := testGrid()
	if x, y := g.CellOrigin(5); x != 120 || y != 100 {
		t.Fatalf("origin(5) = %v,%v", x, y)
	}
	var empty Grid
	if w, h := empty.CellSize(); w != 0 || h != 0 {
		t.Fatalf("empty grid cell = %v,%v", w, h)
	}
	if got := empty.HitTest(1, 1); got.Slot != -1 {
		t.Fatalf("empty grid hit = %+v", got)
	}
}

func TestHitIntentAndEdge(t *testing.T) {
	if (Hit{Zone: ZoneCenter}).Intent() != drag.IntentMerge {
		t.Fatalf("center should merge")
	}
	if (Hit{Zone: ZoneCell}).Intent() != drag.IntentReorder {
		t.Fatalf("rim should reorder")
	}
	if (Hit{Zone: ZonePageLeft}).Edge() != drag.EdgeLeft || (Hit{Zone: ZonePageRight}).Edge() != drag.EdgeRight {
		t.Fatalf("edge mapping")
	}
	if (Hit{Zone: ZoneCell}).Edge() != drag.EdgeNone {
		t.Fatalf("cell is not an edge")
	}
}

func TestScrollPagerThresholdAndDebounce(t *testing.T) {
	s := &ScrollPager{Threshold: 0.5, PageExtent: 100, Debounce: 300 * time.Millisecond}
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := s.Scroll(30, t0); got != 0 {
		t.Fatalf("below threshold = %d", got)
	}
	if got := s.Scroll(25, t0.Add(10*time.Millisecond)); got != 1 {
		t.Fatalf("accumulated = %d, want 1", got)
	}
	if got := s.Scroll(-90, t0.Add(100*time.Millisecond)); got != 0 {
		t.Fatalf("debounced = %d", got)
	}
	if got := s.Scroll(-60, t0.Add(400*time.Millisecond)); got != -1 {
		t.Fatalf("backwards = %d, want -1", got)
	}
}

func TestShortLabelAndPageDots(t *testing.T) {
	if got := shortLabel("Calculator", 6); got != "Calcu…" {
		t.Fatalf("shortLabel = %q", got)
	}
	if got := shortLabel("Mail", 6); got != "Mail" {
		t.Fatalf("shortLabel = %q", got)
	}
	if got := shortLabel("Mail", 0); got != "Mail" {
		t.Fatalf("shortLabel without room = %q", got)
	}
	if got := pageDots(1, 3); got != "○ ● ○" {
		t.Fatalf("pageDots = %q", got)
	}
	if got := pageDots(0, 1); got != "" {
		t.Fatalf("single page dots = %q", got)
	}
}
