/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package drag turns drag-and-drop gestures into page list mutations.
//
// Engine holds the pure transitions: every method takes a page list and returns a new one,
// never mutating its input. Session is the explicit per-gesture state machine the UI drives
// with timestamps; it decides when a hover becomes a provisional preview and when a page-edge
// hover flips the page.
package drag

import (
	"log/slog"
	"strings"

	"golaunchpad/internal/domain"
	"golaunchpad/internal/grid"
	applog "golaunchpad/internal/log"
)

// Intent selects how a drop on an item is interpreted.
type Intent int

const (
	// IntentReorder moves the dragged item to the target's slot.
	IntentReorder Intent = iota
	// IntentMerge groups the dragged app with the target (new folder or add to folder).
	IntentMerge
)

func (i Intent) String() string {
	if i == IntentMerge {
		return "merge"
	}
	return "reorder"
}

// Drop describes a released gesture.
type Drop struct {
	Dragged string
	Target  string
	Intent  Intent
}

// Effect reports what a transition did.
type Effect int

const (
	EffectNone Effect = iota
	EffectReordered
	EffectMoved
	EffectFolderCreated
	EffectAddedToFolder
	EffectRemovedFromFolder
	EffectRenamed
	EffectDissolved
)

func (e Effect) String() string {
	switch e {
	case EffectReordered:
		return "reordered"
	case EffectMoved:
		return "moved"
	case EffectFolderCreated:
		return "folder_created"
	case EffectAddedToFolder:
		return "added_to_folder"
	case EffectRemovedFromFolder:
		return "removed_from_folder"
	case EffectRenamed:
		return "renamed"
	case EffectDissolved:
		return "dissolved"
	default:
		return "none"
	}
}

// Engine applies drag transitions for a grid of PerPage slots per page.
type Engine struct {
	PerPage int
	// Namer names new folders; nil uses SuggestFolderName over the member names.
	Namer func(apps []domain.App) string
	// NewID mints folder ids; nil uses domain.NewID.
	NewID func() string
}

// NewEngine returns an engine with the default namer and id source.
func NewEngine(perPage int) *Engine { return &Engine{PerPage: perPage} }

func (e *Engine) name(apps []domain.App) string {
	if e.Namer != nil {
		if n := strings.TrimSpace(e.Namer(apps)); n != "" {
			return n
		}
	}
	names := make([]string, 0, len(apps))
	for _, a := range apps {
		names = append(names, a.Name)
	}
	return SuggestFolderName(names)
}

func (e *Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return domain.NewID()
}

// Apply dispatches a drop by intent.
func (e *Engine) Apply(pages domain.Pages, d Drop) (domain.Pages, Effect) {
	var (
		out domain.Pages
		eff Effect
	)
	if d.Intent == IntentMerge {
		out, eff = e.Merge(pages, d.Dragged, d.Target)
	} else {
		out, eff = e.Reorder(pages, d.Dragged, d.Target)
	}
	if eff != EffectNone {
		applog.WithComponent("drag").Debug("drop applied",
			slog.String("dragged", d.Dragged), slog.String("target", d.Target),
			slog.String("intent", d.Intent.String()), slog.String("effect", eff.String()))
	}
	return out, eff
}

// Merge drops dragged onto target with grouping intent. An app dropped on an app forms a new
// folder [dragged, target] at the target's slot; an app dropped on a folder (or on one of its
// members) joins that folder unless it already belongs to it. A dragged folder is relocated
// like a reorder since folders never nest.
func (e *Engine) Merge(pages domain.Pages, draggedID, targetID string) (domain.Pages, Effect) {
	if draggedID == targetID {
		return pages, EffectNone
	}
	dl, ok := pages.Locate(draggedID)
	if !ok {
		return pages, EffectNone
	}
	tl, ok := pages.Locate(targetID)
	if !ok {
		return pages, EffectNone
	}
	if !dl.InFolder() && pages.At(dl).IsFolder() {
		return e.Reorder(pages, draggedID, targetID)
	}

	target := pages.At(tl)
	if target.IsFolder() {
		// Dropping on a member means dropping on its folder.
		if target.Folder.HasMember(draggedID) {
			return pages, EffectNone
		}
		ps := pages.Clone()
		app, _, _ := detach(ps, draggedID)
		fl, ok := ps.Locate(target.Folder.ID)
		if !ok {
			return pages, EffectNone
		}
		f := ps[fl.Page][fl.Index].Folder
		a := *app.App
		a.Page = fl.Page
		f.Apps = append(f.Apps, a)
		return grid.RepairOverflow(ps, e.PerPage), EffectAddedToFolder
	}

	orig := tl
	ps := pages.Clone()
	dragged, _, _ := detach(ps, draggedID)
	tl, ok = ps.Locate(targetID)
	if !ok {
		return pages, EffectNone
	}
	tgt := *ps.At(tl).App
	ps[tl.Page] = removeAt(ps[tl.Page], tl.Index)

	a := *dragged.App
	a.Page, tgt.Page = tl.Page, tl.Page
	members := []domain.App{a, tgt}
	f := domain.Folder{ID: e.newID(), Name: e.name(members), Page: tl.Page, Apps: members}

	// The folder takes the target's original slot; on the dragged item's own page the
	// remaining items have shifted, so the index is clamped.
	ps[tl.Page] = insertAt(ps[tl.Page], orig.Index, domain.FolderItem(f))
	return grid.RepairOverflow(ps, e.PerPage), EffectFolderCreated
}

// Reorder moves dragged to the target's slot. On the same page this is a list move whose final
// index is the target's index: moving forward lands after the target, moving backward before it.
// Across pages (or out of a folder) the item is inserted at the target's index on the target's
// page and overflow cascades forward. Two members of the same folder reorder within the folder.
func (e *Engine) Reorder(pages domain.Pages, draggedID, targetID string) (domain.Pages, Effect) {
	if draggedID == targetID {
		return pages, EffectNone
	}
	dl, ok := pages.Locate(draggedID)
	if !ok {
		return pages, EffectNone
	}
	tl, ok := pages.Locate(targetID)
	if !ok {
		return pages, EffectNone
	}

	if dl.InFolder() && tl.InFolder() && dl.Page == tl.Page && dl.Index == tl.Index {
		ps := pages.Clone()
		f := ps[dl.Page][dl.Index].Folder
		a := f.Apps[dl.Member]
		rest := append(append([]domain.App(nil), f.Apps[:dl.Member]...), f.Apps[dl.Member+1:]...)
		f.Apps = insertApp(rest, tl.Member, a)
		return ps, EffectReordered
	}
	if tl.InFolder() {
		// Reordering onto a folder member targets the folder's slot.
		tl.Member = -1
		targetID = pages.At(tl).ID()
		if targetID == draggedID {
			return pages, EffectNone
		}
	}

	if !dl.InFolder() && dl.Page == tl.Page {
		if dl.Index == tl.Index {
			return pages, EffectNone
		}
		ps := pages.Clone()
		it := ps[dl.Page][dl.Index]
		ps[dl.Page] = insertAt(removeAt(ps[dl.Page], dl.Index), tl.Index, it)
		return ps, EffectReordered
	}

	ps := pages.Clone()
	it, _, _ := detach(ps, draggedID)
	cur, ok := ps.Locate(targetID)
	if !ok {
		return pages, EffectNone
	}
	ps[cur.Page] = insertAt(ps[cur.Page], cur.Index, it.WithPage(cur.Page))
	return grid.RepairOverflow(ps, e.PerPage), EffectMoved
}

// MoveToPage drops the item on a page's empty area: it is appended to the end of that page.
// page == len(pages) opens a new trailing page; larger values are clamped to it.
// Folder members leave their folder.
func (e *Engine) MoveToPage(pages domain.Pages, draggedID string, page int) (domain.Pages, Effect) {
	if _, ok := pages.Locate(draggedID); !ok {
		return pages, EffectNone
	}
	if page < 0 {
		page = 0
	}
	ps := pages.Clone()
	it, from, _ := detach(ps, draggedID)
	if page >= len(ps) {
		page = len(ps)
		ps = append(ps, domain.Page{})
	}
	ps[page] = append(ps[page], it.WithPage(page))
	eff := EffectMoved
	if from.InFolder() {
		eff = EffectRemovedFromFolder
	}
	return grid.RepairOverflow(ps, e.PerPage), eff
}

// RemoveFromFolder takes a member out of its folder and appends it to the end of the folder's
// page. A folder left without members is deleted.
func (e *Engine) RemoveFromFolder(pages domain.Pages, appID string) (domain.Pages, Effect) {
	l, ok := pages.Locate(appID)
	if !ok || !l.InFolder() {
		return pages, EffectNone
	}
	ps := pages.Clone()
	it, _, _ := detach(ps, appID)
	ps[l.Page] = append(ps[l.Page], it.WithPage(l.Page))
	return grid.RepairOverflow(ps, e.PerPage), EffectRemovedFromFolder
}

// RenameFolder sets a folder's display name. A blank name falls back to the suggested name.
func (e *Engine) RenameFolder(pages domain.Pages, folderID, name string) (domain.Pages, Effect) {
	l, ok := pages.Locate(folderID)
	if !ok || l.InFolder() || !pages.At(l).IsFolder() {
		return pages, EffectNone
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = e.name(pages.At(l).Folder.Apps)
	}
	if name == pages.At(l).Folder.Name {
		return pages, EffectNone
	}
	ps := pages.Clone()
	ps[l.Page][l.Index].Folder.Name = name
	return ps, EffectRenamed
}

// DissolveFolder replaces a folder with its members, in member order, at the folder's slot.
func (e *Engine) DissolveFolder(pages domain.Pages, folderID string) (domain.Pages, Effect) {
	l, ok := pages.Locate(folderID)
	if !ok || l.InFolder() || !pages.At(l).IsFolder() {
		return pages, EffectNone
	}
	ps := pages.Clone()
	f := ps[l.Page][l.Index].Folder
	repl := make(domain.Page, 0, len(ps[l.Page])+len(f.Apps))
	repl = append(repl, ps[l.Page][:l.Index]...)
	for _, a := range f.Apps {
		a.Page = l.Page
		repl = append(repl, domain.AppItem(a))
	}
	repl = append(repl, ps[l.Page][l.Index+1:]...)
	ps[l.Page] = repl
	return grid.RepairOverflow(ps, e.PerPage), EffectDissolved
}

// detach removes the item (or folder member) with id from ps, which must be a private copy.
// Members come out as app items; a folder left without members is deleted.
func detach(ps domain.Pages, id string) (domain.Item, domain.Location, bool) {
	l, ok := ps.Locate(id)
	if !ok {
		return domain.Item{}, domain.Location{}, false
	}
	if l.InFolder() {
		f := ps[l.Page][l.Index].Folder
		a := f.Apps[l.Member]
		f.Apps = append(append([]domain.App(nil), f.Apps[:l.Member]...), f.Apps[l.Member+1:]...)
		if len(f.Apps) == 0 {
			ps[l.Page] = removeAt(ps[l.Page], l.Index)
		}
		return domain.AppItem(a), l, true
	}
	it := ps[l.Page][l.Index]
	ps[l.Page] = removeAt(ps[l.Page], l.Index)
	return it, l, true
}

func removeAt(p domain.Page, i int) domain.Page {
	out := make(domain.Page, 0, len(p))
	out = append(out, p[:i]...)
	return append(out, p[i+1:]...)
}

// insertAt places it at index i, clamped to [0, len(p)].
func insertAt(p domain.Page, i int, it domain.Item) domain.Page {
	if i < 0 {
		i = 0
	}
	if i > len(p) {
		i = len(p)
	}
	out := make(domain.Page, 0, len(p)+1)
	out = append(out, p[:i]...)
	out = append(out, it)
	return append(out, p[i:]...)
}

func insertApp(apps []domain.App, i int, a domain.App) []domain.App {
	if i < 0 {
		i = 0
	}
	if i > len(apps) {
		i = len(apps)
	}
	out := make([]domain.App, 0, len(apps)+1)
	out = append(out, apps[:i]...)
	out = append(out, a)
	return append(out, apps[i:]...)
}
