/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package launcher

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golaunchpad/internal/domain"
	"golaunchpad/internal/drag"
	"golaunchpad/internal/legacy"
	applog "golaunchpad/internal/log"
	"golaunchpad/internal/storage"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
}

type recordingScheduler struct {
	mu   sync.Mutex
	last []storage.Record
	n    int
}

func (r *recordingScheduler) Schedule(recs []storage.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = recs
	r.n++
}

type memHidden struct {
	set map[string]bool
	err error
}

func (m *memHidden) Save(set map[string]bool) error {
	if m.err != nil {
		return m.err
	}
	m.set = copySet(set)
	return nil
}

func apps(names ...string) []domain.DiscoveredApp {
	out := make([]domain.DiscoveredApp, 0, len(names))
	for _, n := range names {
		out = append(out, domain.DiscoveredApp{Name: n, Path: "/Applications/" + n + ".app"})
	}
	return out
}

func path(n string) string { return "/Applications/" + n + ".app" }

func newTestController(t *testing.T, perPage int, names ...string) (*Controller, *fakeClock, *recordingScheduler, *memHidden) {
	t.Helper()
	clk := newClock()
	sched := &recordingScheduler{}
	hid := &memHidden{}
	c := NewController(Options{
		PerPage:       perPage,
		DropDelay:     500 * time.Millisecond,
		PageFlipDelay: 800 * time.Millisecond,
		Now:           clk.Now,
	}, sched, hid)
	c.Load(apps(names...), nil, nil)
	return c, clk, sched, hid
}

func idOf(t *testing.T, c *Controller, name string) string {
	t.Helper()
	for _, it := range c.Pages().Items() {
		if it.Name() == name {
			return it.ID()
		}
		if it.IsFolder() {
			for _, a := range it.Folder.Apps {
				if a.Name == name {
					return a.ID
				}
			}
		}
	}
	t.Fatalf("no item named %q", name)
	return ""
}

func folderID(t *testing.T, c *Controller) string {
	t.Helper()
	for _, it := range c.Pages().Items() {
		if it.IsFolder() {
			return it.ID()
		}
	}
	t.Fatalf("no folder on the grid")
	return ""
}

func pageNames(ps domain.Pages) [][]string {
	out := [][]string{}
	for _, p := range ps {
		row := []string{}
		for _, it := range p {
			row = append(row, it.Name())
		}
		out = append(out, row)
	}
	return out
}

func TestLoadPersistsReconciledLayout(t *testing.T) {
	c, _, sched, _ := newTestController(t, 2, "A", "B", "C")
	assert.Equal(t, [][]string{{"A", "B"}, {"C"}}, pageNames(c.Pages()))
	require.Equal(t, 1, sched.n)
	assert.Len(t, sched.last, 3)
}

func TestDragReorderWithPreviewAndDrop(t *testing.T) {
	c, clk, sched, _ := newTestController(t, 10, "A", "B", "C")
	a, cID := idOf(t, c, "A"), idOf(t, c, "C")

	require.NoError(t, c.BeginDrag(a))
	assert.ErrorIs(t, c.BeginDrag(cID), drag.ErrBusy)
	require.NoError(t, c.Hover(cID, drag.IntentReorder))

	clk.Advance(499 * time.Millisecond)
	assert.Empty(t, c.Tick())
	assert.Equal(t, [][]string{{"A", "B", "C"}}, pageNames(c.Pages()))

	clk.Advance(time.Millisecond)
	ev := c.Tick()
	require.Len(t, ev, 1)
	assert.Equal(t, drag.EventPreview, ev[0].Kind)
	assert.Equal(t, [][]string{{"B", "C", "A"}}, pageNames(c.Pages()), "provisional preview")
	assert.Equal(t, 1, sched.n, "previews are not persisted")

	eff, err := c.Drop()
	require.NoError(t, err)
	assert.Equal(t, drag.EffectReordered, eff)
	assert.Equal(t, [][]string{{"C", "B", "A"}}, pageNames(c.Pages()))
	assert.Equal(t, 2, sched.n)
	assert.False(t, c.Dragging())
}

func TestLeavingPreviewedTargetRestoresLayout(t *testing.T) {
	c, clk, _, _ := newTestController(t, 10, "A", "B", "C")
	require.NoError(t, c.BeginDrag(idOf(t, c, "A")))
	require.NoError(t, c.Hover(idOf(t, c, "C"), drag.IntentReorder))
	clk.Advance(time.Second)
	c.Tick()
	require.NoError(t, c.Hover("", drag.IntentReorder))
	assert.Equal(t, [][]string{{"A", "B", "C"}}, pageNames(c.Pages()))

	eff, err := c.Drop()
	require.NoError(t, err)
	assert.Equal(t, drag.EffectNone, eff)
	assert.Equal(t, [][]string{{"A", "B", "C"}}, pageNames(c.Pages()))
}

func TestCancelDragRestores(t *testing.T) {
	c, clk, sched, _ := newTestController(t, 10, "A", "B")
	require.NoError(t, c.BeginDrag(idOf(t, c, "A")))
	require.NoError(t, c.Hover(idOf(t, c, "B"), drag.IntentReorder))
	clk.Advance(time.Second)
	c.Tick()
	c.CancelDrag()
	assert.Equal(t, [][]string{{"A", "B"}}, pageNames(c.Pages()))
	assert.Equal(t, 1, sched.n)
	_, err := c.Drop()
	assert.ErrorIs(t, err, drag.ErrNotDragging)
}

func TestDropMergeCreatesFolderAndUndoRedo(t *testing.T) {
	c, _, _, _ := newTestController(t, 10, "Safari", "Firefox", "Notes")
	require.NoError(t, c.BeginDrag(idOf(t, c, "Safari")))
	require.NoError(t, c.Hover(idOf(t, c, "Firefox"), drag.IntentMerge))
	eff, err := c.Drop()
	require.NoError(t, err)
	assert.Equal(t, drag.EffectFolderCreated, eff)
	ps := c.Pages()
	require.Len(t, ps[0], 2)
	assert.Equal(t, "Notes", ps[0][0].Name())
	assert.Equal(t, "Internet", ps[0][1].Name())

	ok, err := c.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, [][]string{{"Safari", "Firefox", "Notes"}}, pageNames(c.Pages()))

	ok, err = c.Redo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, [][]string{{"Notes", "Internet"}}, pageNames(c.Pages()))
}

func TestEdgeHoverNavigates(t *testing.T) {
	c, clk, _, _ := newTestController(t, 1, "A", "B", "C")
	require.NoError(t, c.BeginDrag(idOf(t, c, "A")))
	require.NoError(t, c.HoverEdge(drag.EdgeRight))
	clk.Advance(800 * time.Millisecond)
	c.Tick()
	assert.Equal(t, 1, c.VisiblePage())
	clk.Advance(800 * time.Millisecond)
	c.Tick()
	assert.Equal(t, 2, c.VisiblePage())
	clk.Advance(800 * time.Millisecond)
	c.Tick()
	assert.Equal(t, 2, c.VisiblePage(), "clamped at last page")
	assert.Equal(t, [][]string{{"A"}, {"B"}, {"C"}}, pageNames(c.Pages()), "navigation never mutates")
}

func TestDropOnPageMovesToEnd(t *testing.T) {
	c, _, _, _ := newTestController(t, 2, "A", "B", "C")
	require.NoError(t, c.BeginDrag(idOf(t, c, "A")))
	eff, err := c.DropOnPage(1)
	require.NoError(t, err)
	assert.Equal(t, drag.EffectMoved, eff)
	assert.Equal(t, [][]string{{"B"}, {"C", "A"}}, pageNames(c.Pages()))
}

func TestFolderOperations(t *testing.T) {
	c, _, _, _ := newTestController(t, 10, "A", "B", "C")
	_, err := c.Move(drag.Drop{Dragged: idOf(t, c, "A"), Target: idOf(t, c, "B"), Intent: drag.IntentMerge})
	require.NoError(t, err)
	fid := folderID(t, c)

	eff, err := c.RenameFolder(fid, "Stuff")
	require.NoError(t, err)
	assert.Equal(t, drag.EffectRenamed, eff)

	eff, err = c.RemoveFromFolder(idOf(t, c, "A"))
	require.NoError(t, err)
	assert.Equal(t, drag.EffectRemovedFromFolder, eff)
	assert.Equal(t, [][]string{{"C", "Stuff", "A"}}, pageNames(c.Pages()))

	eff, err = c.DissolveFolder(fid)
	require.NoError(t, err)
	assert.Equal(t, drag.EffectDissolved, eff)
	assert.Equal(t, [][]string{{"C", "B", "A"}}, pageNames(c.Pages()))

	_, err = c.DissolveFolder("missing")
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestMutationsRejectedDuringDrag(t *testing.T) {
	c, _, _, _ := newTestController(t, 10, "A", "B")
	require.NoError(t, c.BeginDrag(idOf(t, c, "A")))
	_, err := c.MoveToPage(idOf(t, c, "B"), 0)
	assert.ErrorIs(t, err, drag.ErrBusy)
	assert.ErrorIs(t, c.Hide(path("B")), drag.ErrBusy)
	_, err = c.Undo()
	assert.ErrorIs(t, err, drag.ErrBusy)
}

func TestHideAndUnhide(t *testing.T) {
	c, _, _, hid := newTestController(t, 10, "A", "B", "C")
	require.NoError(t, c.Hide(path("B")))
	assert.Equal(t, [][]string{{"A", "C"}}, pageNames(c.Pages()))
	assert.Equal(t, []string{path("B")}, c.Hidden())
	assert.True(t, hid.set[path("B")])

	require.NoError(t, c.Unhide(path("B")))
	assert.Equal(t, [][]string{{"A", "C", "B"}}, pageNames(c.Pages()))
	assert.Empty(t, c.Hidden())

	assert.ErrorIs(t, c.Hide("/nowhere.app"), ErrUnknownItem)
}

func TestHideFolderMemberDeletesEmptiedFolder(t *testing.T) {
	c, _, _, _ := newTestController(t, 10, "A", "B", "C")
	_, err := c.Move(drag.Drop{Dragged: idOf(t, c, "A"), Target: idOf(t, c, "B"), Intent: drag.IntentMerge})
	require.NoError(t, err)
	require.NoError(t, c.Hide(path("A")))
	ps := c.Pages()
	require.Len(t, ps[0], 2)
	require.True(t, ps[0][1].IsFolder())
	require.NoError(t, c.Hide(path("B")))
	assert.Equal(t, [][]string{{"C"}}, pageNames(c.Pages()))
}

func TestHideSaveFailureKeepsState(t *testing.T) {
	c, _, _, hid := newTestController(t, 10, "A", "B")
	hid.err = errors.New("disk full")
	assert.Error(t, c.Hide(path("A")))
	assert.Empty(t, c.Hidden())
	assert.Equal(t, [][]string{{"A", "B"}}, pageNames(c.Pages()))
}

func TestExportImportRoundTrip(t *testing.T) {
	c, _, _, _ := newTestController(t, 2, "A", "B", "C", "D")
	_, err := c.Move(drag.Drop{Dragged: idOf(t, c, "D"), Target: idOf(t, c, "A"), Intent: drag.IntentReorder})
	require.NoError(t, err)
	data, err := c.Export()
	require.NoError(t, err)
	want := pageNames(c.Pages())

	c.Reset(apps("A", "B", "C", "D"))
	assert.Equal(t, [][]string{{"A", "B"}, {"C", "D"}}, pageNames(c.Pages()))

	res, err := c.Import(data)
	require.NoError(t, err)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, want, pageNames(c.Pages()))

	again, err := c.Export()
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))

	_, err = c.Import([]byte("not json"))
	assert.ErrorIs(t, err, storage.ErrCorrupt)
}

func TestAdoptLegacyAppendsUnmentionedApps(t *testing.T) {
	c, _, _, _ := newTestController(t, 10, "A", "B", "C")
	lp := domain.Pages{{
		domain.FolderItem(domain.Folder{ID: "f", Name: "Pair", Apps: []domain.App{
			{ID: "x", Name: "C", Path: path("C")},
			{ID: "y", Name: "A", Path: path("A")},
		}}),
	}}
	require.NoError(t, c.AdoptLegacy(legacy.Result{Pages: lp, Resolved: 2}))
	assert.Equal(t, [][]string{{"Pair", "B"}}, pageNames(c.Pages()))
	ok, err := c.Undo()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, [][]string{{"A", "B", "C"}}, pageNames(c.Pages()))
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	c, _, _, _ := newTestController(t, 3, "A", "B", "C", "D", "E", "F", "G")
	ids := c.Pages().IDs()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = c.MoveToPage(ids[i%len(ids)], i%4)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 7, c.Pages().Count())
	for i, p := range c.Pages() {
		assert.LessOrEqual(t, len(p), 3, "page %d", i)
	}
}

func TestDragLogLinesCarryDraggedItem(t *testing.T) {
	var buf bytes.Buffer
	applog.Init(applog.Options{Level: "debug", Format: "json", Writer: &buf})
	t.Cleanup(func() { applog.Init(applog.Options{Level: "info"}) })

	c, _, _, _ := newTestController(t, 2, "A", "B", "C")
	cID, aID := idOf(t, c, "C"), idOf(t, c, "A")
	require.NoError(t, c.BeginDrag(cID))
	require.NoError(t, c.Hover(aID, drag.IntentReorder))
	_, err := c.Drop()
	require.NoError(t, err)
	_, err = c.Move(drag.Drop{Dragged: aID, Target: cID})
	require.NoError(t, err)

	var changes []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		if m["msg"] == "layout changed" {
			changes = append(changes, m)
		}
	}
	require.Len(t, changes, 2)
	assert.Equal(t, "drop", changes[0]["op"])
	assert.Equal(t, map[string]any{"item": cID, "page": float64(1)}, changes[0]["drag"])
	assert.Equal(t, "move", changes[1]["op"])
	assert.NotContains(t, changes[1], "drag")
}
