/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package reconcile merges a fresh discovery run with the previously saved layout.
package reconcile

import (
	"log/slog"
	"sort"

	"golaunchpad/internal/domain"
	"golaunchpad/internal/grid"
	applog "golaunchpad/internal/log"
	"golaunchpad/internal/storage"
)

// Input bundles everything a reconciliation pass consumes.
// Saved == nil means no layout was ever saved (or it was unusable).
type Input struct {
	Discovered []domain.DiscoveredApp
	Saved      []storage.Record
	Hidden     map[string]bool
	PerPage    int
}

// Stats summarizes what a pass did with the saved layout.
type Stats struct {
	Kept      int // saved apps (standalone or in folders) that survived
	Dropped   int // saved apps that are uninstalled, hidden or duplicated
	Folders   int // folders emitted
	Emptied   int // saved folders dropped because no member survived
	Appended  int // discovered apps not present in the saved layout
	Discarded int // saved records with an unknown type
}

// Reconcile builds the page list for this session. It never fails: unusable saved entries
// are dropped and every discovered, non-hidden app ends up on some page exactly once.
func Reconcile(in Input) domain.Pages {
	pages, _ := ReconcileStats(in)
	return pages
}

// ReconcileStats is Reconcile plus a summary of what happened to the saved entries.
func ReconcileStats(in Input) (domain.Pages, Stats) {
	l := applog.WithOperation(applog.WithComponent("reconcile"), "reconcile")
	var st Stats

	byPath := make(map[string]domain.DiscoveredApp, len(in.Discovered))
	order := make([]string, 0, len(in.Discovered))
	for _, d := range in.Discovered {
		if d.Path == "" {
			continue
		}
		if _, dup := byPath[d.Path]; dup {
			continue
		}
		byPath[d.Path] = d
		order = append(order, d.Path)
	}

	if in.Saved == nil {
		items := make([]domain.Item, 0, len(order))
		for _, p := range order {
			if in.Hidden[p] {
				continue
			}
			items = append(items, domain.AppItem(byPath[p].NewApp()))
		}
		st.Appended = len(items)
		l.Debug("no saved layout, sequential fill", slog.Int("apps", len(items)))
		return grid.Fill(items, in.PerPage), st
	}

	seen := make(map[string]bool, len(order))
	usedIDs := make(map[string]bool)
	id := func(saved string) string {
		if saved != "" && !usedIDs[saved] {
			usedIDs[saved] = true
			return saved
		}
		fresh := domain.NewID()
		usedIDs[fresh] = true
		return fresh
	}
	// resolve marks the path seen and reports the live app for a saved reference.
	resolve := func(r storage.Record, page int) (domain.App, bool) {
		if r.Path == "" || seen[r.Path] {
			st.Dropped++
			return domain.App{}, false
		}
		seen[r.Path] = true
		d, ok := byPath[r.Path]
		if !ok || in.Hidden[r.Path] {
			st.Dropped++
			return domain.App{}, false
		}
		st.Kept++
		return domain.App{ID: id(r.ID), Name: d.Name, IconRef: d.IconRef, Path: d.Path, Page: page}, true
	}

	items := make([]domain.Item, 0, len(in.Saved)+len(order))
	for _, r := range in.Saved {
		page := r.Page
		if page < 0 {
			page = 0
		}
		switch r.Type {
		case storage.RecordApp:
			if a, ok := resolve(r, page); ok {
				items = append(items, domain.AppItem(a))
			}
		case storage.RecordFolder:
			f := domain.Folder{Name: r.Name, Page: page}
			for _, m := range r.Apps {
				if a, ok := resolve(m, page); ok {
					f.Apps = append(f.Apps, a)
				}
			}
			if len(f.Apps) == 0 {
				st.Emptied++
				continue
			}
			f.ID = id(r.ID)
			st.Folders++
			items = append(items, domain.FolderItem(f))
		default:
			st.Discarded++
		}
	}

	items = compactPages(items)
	for _, p := range order {
		if seen[p] || in.Hidden[p] {
			continue
		}
		items = append(items, domain.AppItem(byPath[p].NewApp()))
		st.Appended++
	}

	l.Debug("reconciled saved layout",
		slog.Int("kept", st.Kept), slog.Int("dropped", st.Dropped), slog.Int("folders", st.Folders),
		slog.Int("emptied", st.Emptied), slog.Int("appended", st.Appended))
	return grid.Partition(items, in.PerPage), st
}

// compactPages renumbers saved page indices to their dense rank: pages {0, 4, 9} become
// {0, 1, 2}. Only the relative order of saved pages survives.
func compactPages(items []domain.Item) []domain.Item {
	distinct := make([]int, 0, 8)
	known := make(map[int]bool)
	for _, it := range items {
		if p := it.Page(); !known[p] {
			known[p] = true
			distinct = append(distinct, p)
		}
	}
	sort.Ints(distinct)
	rank := make(map[int]int, len(distinct))
	for i, p := range distinct {
		rank[p] = i
	}
	out := make([]domain.Item, len(items))
	for i, it := range items {
		out[i] = it.WithPage(rank[it.Page()])
	}
	return out
}
