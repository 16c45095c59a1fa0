/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package launcher owns the live page list. A Controller is the single writer: every
// mutation runs under its lock, updates memory first and then hands the layout to the
// asynchronous persistence writer.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golaunchpad/internal/domain"
	"golaunchpad/internal/drag"
	"golaunchpad/internal/grid"
	"golaunchpad/internal/legacy"
	applog "golaunchpad/internal/log"
	"golaunchpad/internal/reconcile"
	"golaunchpad/internal/storage"
	"golaunchpad/internal/undo"
)

// ErrUnknownItem is returned when an operation names an id that is not on the grid.
var ErrUnknownItem = errors.New("unknown item")

// LayoutScheduler receives every committed layout; storage.Writer implements it.
type LayoutScheduler interface {
	Schedule(recs []storage.Record)
}

// HiddenSaver persists the hidden set; storage.HiddenStore implements it.
type HiddenSaver interface {
	Save(set map[string]bool) error
}

// Options configures a Controller.
type Options struct {
	PerPage       int
	DropDelay     time.Duration
	PageFlipDelay time.Duration
	Undo          undo.Config
	// Now is the clock for drag timing and undo coalescing; nil means time.Now.
	Now func() time.Time
}

// Controller serializes all access to the page list.
type Controller struct {
	mu sync.Mutex

	perPage    int
	pages      domain.Pages
	base       domain.Pages // committed pages while a drag is active
	discovered []domain.DiscoveredApp
	hidden     map[string]bool
	visible    int

	engine  *drag.Engine
	session *drag.Session
	history *undo.Manager
	layout  LayoutScheduler
	hiddenS HiddenSaver
	now     func() time.Time
	log     *slog.Logger
	dragCtx context.Context // tags log records of the active gesture
}

// NewController returns a controller with an empty single-page grid. layout and hidden may be nil.
func NewController(opts Options, layout LayoutScheduler, hidden HiddenSaver) *Controller {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		perPage: opts.PerPage,
		pages:   domain.Pages{domain.Page{}},
		hidden:  map[string]bool{},
		engine:  drag.NewEngine(opts.PerPage),
		session: drag.NewSession(opts.DropDelay, opts.PageFlipDelay),
		history: undo.NewManager(opts.Undo),
		layout:  layout,
		hiddenS: hidden,
		now:     now,
		log:     applog.WithComponent("launcher"),
		dragCtx: context.Background(),
	}
}

// Load reconciles discovered apps with the saved layout (nil when none) and replaces the grid.
// History is cleared; the reconciled layout is scheduled for saving.
func (c *Controller) Load(discovered []domain.DiscoveredApp, saved []storage.Record, hidden map[string]bool) reconcile.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Cancel()
	c.base = nil
	c.discovered = append([]domain.DiscoveredApp(nil), discovered...)
	c.hidden = copySet(hidden)
	pages, st := reconcile.ReconcileStats(reconcile.Input{
		Discovered: c.discovered, Saved: saved, Hidden: c.hidden, PerPage: c.perPage,
	})
	c.pages = grid.TrimEmpty(pages)
	c.visible = 0
	c.history.Clear()
	c.persistLocked()
	c.log.Info("layout loaded", slog.Int("pages", len(c.pages)), slog.Int("items", c.pages.Count()),
		slog.Int("appended", st.Appended), slog.Int("dropped", st.Dropped))
	return st
}

// Pages returns a copy of the live page list, including any provisional hover preview.
func (c *Controller) Pages() domain.Pages {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pages.Clone()
}

// CommittedPages returns the last committed layout, ignoring any hover preview. It never
// waits for the lock; ok is false while another operation holds it.
func (c *Controller) CommittedPages() (domain.Pages, bool) {
	if !c.mu.TryLock() {
		return nil, false
	}
	defer c.mu.Unlock()
	if c.base != nil {
		return c.base.Clone(), true
	}
	return c.pages.Clone(), true
}

// VisiblePage is the page the view shows; drag edge hovers move it.
func (c *Controller) VisiblePage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// SetVisiblePage moves the view, clamped to the existing pages.
func (c *Controller) SetVisiblePage(p int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = clamp(p, 0, len(c.pages)-1)
	return c.visible
}

// Dragging reports whether a drag session is active.
func (c *Controller) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.State() != drag.Idle
}

// BeginDrag starts a drag of the item (or folder member) with id.
func (c *Controller) BeginDrag(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	loc, ok := c.pages.Locate(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	if err := c.session.Begin(id, c.now()); err != nil {
		return err
	}
	c.base = c.pages.Clone()
	c.dragCtx = applog.DragContext(context.Background(), id, loc.Page)
	c.log.DebugContext(c.dragCtx, "drag started", slog.Bool("from_folder", loc.InFolder()))
	return nil
}

// Hover updates the drag target. Leaving a previewed target restores the committed layout.
func (c *Controller) Hover(target string, intent drag.Intent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prevTarget, prevIntent := c.session.Target(), c.session.Intent()
	if err := c.session.Hover(target, intent, c.now()); err != nil {
		return err
	}
	if c.session.Target() != prevTarget || c.session.Intent() != prevIntent {
		c.pages = c.base.Clone()
		c.log.DebugContext(c.dragCtx, "hover target", slog.String("target", target), slog.String("intent", intent.String()))
	}
	return nil
}

// HoverEdge enters or leaves a page-edge zone during a drag.
func (c *Controller) HoverEdge(e drag.Edge) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.HoverEdge(e, c.now())
}

// Tick advances drag timers. A preview event replaces the visible pages with the provisional
// reorder computed from the committed layout; a navigate event flips the visible page.
func (c *Controller) Tick() []drag.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := c.session.Tick(c.now())
	for _, ev := range events {
		switch ev.Kind {
		case drag.EventPreview:
			c.pages, _ = c.engine.Apply(c.base, ev.Drop)
		case drag.EventNavigate:
			delta := 1
			if ev.Edge == drag.EdgeLeft {
				delta = -1
			}
			c.visible = clamp(c.visible+delta, 0, len(c.pages)-1)
			c.log.DebugContext(c.dragCtx, "page flip", slog.Int("visible", c.visible))
		}
	}
	return events
}

// Drop ends the drag and commits the transition for the hovered target, if any.
func (c *Controller) Drop() (drag.Effect, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok, err := c.session.Drop()
	if err != nil {
		return drag.EffectNone, err
	}
	base := c.base
	c.base = nil
	c.pages = base
	defer c.endDragLocked()
	if !ok {
		c.log.DebugContext(c.dragCtx, "dropped without target")
		return drag.EffectNone, nil
	}
	return c.commitLocked("drop", func(ps domain.Pages) (domain.Pages, drag.Effect) {
		return c.engine.Apply(ps, d)
	}), nil
}

// DropOnPage ends the drag over a page's empty area: the item goes to the end of that page.
func (c *Controller) DropOnPage(page int) (drag.Effect, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, _, err := c.session.Drop()
	if err != nil {
		return drag.EffectNone, err
	}
	c.pages, c.base = c.base, nil
	defer c.endDragLocked()
	return c.commitLocked("drop_on_page", func(ps domain.Pages) (domain.Pages, drag.Effect) {
		return c.engine.MoveToPage(ps, d.Dragged, page)
	}), nil
}

// CancelDrag abandons the drag and restores the committed layout.
func (c *Controller) CancelDrag() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.State() == drag.Idle {
		return
	}
	c.session.Cancel()
	c.pages, c.base = c.base, nil
	c.log.DebugContext(c.dragCtx, "drag cancelled")
	c.endDragLocked()
}

func (c *Controller) endDragLocked() { c.dragCtx = context.Background() }

// Move applies a complete drop without a gesture (CLI, keyboard).
func (c *Controller) Move(d drag.Drop) (drag.Effect, error) {
	return c.mutate("move", d.Dragged, func(ps domain.Pages) (domain.Pages, drag.Effect) {
		return c.engine.Apply(ps, d)
	})
}

// MoveToPage appends the item to the end of page.
func (c *Controller) MoveToPage(id string, page int) (drag.Effect, error) {
	return c.mutate("move_to_page", id, func(ps domain.Pages) (domain.Pages, drag.Effect) {
		return c.engine.MoveToPage(ps, id, page)
	})
}

// RemoveFromFolder takes a folder member out onto the folder's page.
func (c *Controller) RemoveFromFolder(id string) (drag.Effect, error) {
	return c.mutate("remove_from_folder", id, func(ps domain.Pages) (domain.Pages, drag.Effect) {
		return c.engine.RemoveFromFolder(ps, id)
	})
}

// RenameFolder renames a folder; a blank name picks the suggested one.
func (c *Controller) RenameFolder(id, name string) (drag.Effect, error) {
	return c.mutate("rename_folder", id, func(ps domain.Pages) (domain.Pages, drag.Effect) {
		return c.engine.RenameFolder(ps, id, name)
	})
}

// DissolveFolder replaces a folder with its members.
func (c *Controller) DissolveFolder(id string) (drag.Effect, error) {
	return c.mutate("dissolve_folder", id, func(ps domain.Pages) (domain.Pages, drag.Effect) {
		return c.engine.DissolveFolder(ps, id)
	})
}

// Hide removes the app at path from the grid and remembers it in the hidden set.
func (c *Controller) Hide(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.State() != drag.Idle {
		return drag.ErrBusy
	}
	if c.hidden[path] {
		return nil
	}
	l, ok := c.pages.LocatePath(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, path)
	}
	id := c.pages.At(l).ID()
	if l.InFolder() {
		id = c.pages.At(l).Folder.Apps[l.Member].ID
	}
	c.hidden[path] = true
	if err := c.saveHiddenLocked(); err != nil {
		delete(c.hidden, path)
		return err
	}
	c.commitLocked("hide", func(ps domain.Pages) (domain.Pages, drag.Effect) {
		return removeItem(ps, id)
	})
	return nil
}

// Unhide forgets path from the hidden set; an installed app reappears on the first page.
func (c *Controller) Unhide(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.State() != drag.Idle {
		return drag.ErrBusy
	}
	if !c.hidden[path] {
		return nil
	}
	delete(c.hidden, path)
	if err := c.saveHiddenLocked(); err != nil {
		c.hidden[path] = true
		return err
	}
	for _, d := range c.discovered {
		if d.Path != path {
			continue
		}
		if _, on := c.pages.LocatePath(path); on {
			break
		}
		c.commitLocked("unhide", func(ps domain.Pages) (domain.Pages, drag.Effect) {
			out := ps.Clone()
			out[0] = append(out[0], domain.AppItem(d.NewApp()))
			return out, drag.EffectMoved
		})
		break
	}
	return nil
}

// Hidden returns the hidden paths in sorted order.
func (c *Controller) Hidden() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.hidden))
	for p := range c.hidden {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Discovered returns the apps of the last discovery run.
func (c *Controller) Discovered() []domain.DiscoveredApp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.DiscoveredApp(nil), c.discovered...)
}

// Reset discards the arrangement and lays discovered apps out in discovery order.
func (c *Controller) Reset(discovered []domain.DiscoveredApp) {
	c.mu.Lock()
	hidden := copySet(c.hidden)
	c.mu.Unlock()
	c.Load(discovered, nil, hidden)
}

// Undo restores the layout before the last committed change.
func (c *Controller) Undo() (bool, error) {
	return c.step(c.history.Undo)
}

// Redo re-applies the last undone change.
func (c *Controller) Redo() (bool, error) {
	return c.step(c.history.Redo)
}

func (c *Controller) step(pop func(undo.Snapshot) (undo.Snapshot, bool)) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.State() != drag.Idle {
		return false, drag.ErrBusy
	}
	cur, err := undo.Capture("current", c.pages, c.now())
	if err != nil {
		return false, err
	}
	s, ok := pop(cur)
	if !ok {
		return false, nil
	}
	ps, err := s.Pages()
	if err != nil {
		return false, err
	}
	c.pages = grid.TrimEmpty(ps)
	c.visible = clamp(c.visible, 0, len(c.pages)-1)
	c.persistLocked()
	return true, nil
}

// Export renders the layout in the export format.
func (c *Controller) Export() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := c.pages
	if c.base != nil {
		src = c.base
	}
	return storage.EncodePages(src)
}

// Import replaces the layout with an exported document, reconciled against installed apps.
// Entries that match no installed app are dropped; malformed ones are skipped and counted.
func (c *Controller) Import(data []byte) (storage.DecodeResult, error) {
	res, err := storage.DecodeRecords(data)
	if err != nil {
		return res, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.State() != drag.Idle {
		return res, drag.ErrBusy
	}
	c.commitLocked("import", func(domain.Pages) (domain.Pages, drag.Effect) {
		saved := res.Records
		if saved == nil {
			saved = []storage.Record{}
		}
		return reconcile.Reconcile(reconcile.Input{
			Discovered: c.discovered, Saved: saved, Hidden: c.hidden, PerPage: c.perPage,
		}), drag.EffectMoved
	})
	return res, nil
}

// AdoptLegacy replaces the layout with an imported legacy one. Installed apps the legacy
// layout does not mention are appended and hidden apps are left out.
func (c *Controller) AdoptLegacy(res legacy.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.State() != drag.Idle {
		return drag.ErrBusy
	}
	saved := storage.RecordsFromPages(res.Pages)
	c.commitLocked("adopt_legacy", func(domain.Pages) (domain.Pages, drag.Effect) {
		return reconcile.Reconcile(reconcile.Input{
			Discovered: c.discovered, Saved: saved, Hidden: c.hidden, PerPage: c.perPage,
		}), drag.EffectMoved
	})
	return nil
}

// mutate runs a committed transition outside of a drag gesture.
func (c *Controller) mutate(op, id string, fn func(domain.Pages) (domain.Pages, drag.Effect)) (drag.Effect, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.State() != drag.Idle {
		return drag.EffectNone, drag.ErrBusy
	}
	if _, ok := c.pages.Locate(id); !ok {
		return drag.EffectNone, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	return c.commitLocked(op, fn), nil
}

// commitLocked snapshots the current pages, applies fn, repairs overflow, drops empty pages,
// updates memory and schedules persistence. A transition reporting EffectNone changes nothing.
func (c *Controller) commitLocked(op string, fn func(domain.Pages) (domain.Pages, drag.Effect)) drag.Effect {
	next, eff := fn(c.pages)
	if eff == drag.EffectNone {
		return eff
	}
	if s, err := undo.Capture(op, c.pages, c.now()); err == nil {
		c.history.Push(s)
	} else {
		c.log.Warn("undo snapshot failed", slog.String("op", op), slog.Any("err", err))
	}
	c.pages = grid.TrimEmpty(grid.RepairOverflow(next, c.perPage))
	c.visible = clamp(c.visible, 0, len(c.pages)-1)
	c.persistLocked()
	c.log.DebugContext(c.dragCtx, "layout changed", slog.String("op", op), slog.String("effect", eff.String()),
		slog.Int("pages", len(c.pages)))
	return eff
}

func (c *Controller) persistLocked() {
	if c.layout != nil {
		c.layout.Schedule(storage.RecordsFromPages(c.pages))
	}
}

func (c *Controller) saveHiddenLocked() error {
	if c.hiddenS == nil {
		return nil
	}
	if err := c.hiddenS.Save(c.hidden); err != nil {
		return fmt.Errorf("save hidden apps: %w", err)
	}
	return nil
}

// removeItem deletes an app (standalone or member) by id; an emptied folder goes with it.
func removeItem(ps domain.Pages, id string) (domain.Pages, drag.Effect) {
	l, ok := ps.Locate(id)
	if !ok {
		return ps, drag.EffectNone
	}
	out := ps.Clone()
	page := out[l.Page]
	if l.InFolder() {
		f := page[l.Index].Folder
		f.Apps = append(append([]domain.App(nil), f.Apps[:l.Member]...), f.Apps[l.Member+1:]...)
		if len(f.Apps) > 0 {
			return out, drag.EffectRemovedFromFolder
		}
	}
	out[l.Page] = append(append(domain.Page(nil), page[:l.Index]...), page[l.Index+1:]...)
	return out, drag.EffectMoved
}

func copySet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		if v {
			out[k] = true
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
