/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package legacy imports a layout from the system Launchpad database.
//
// The database is a flat table of typed records linked by parent id. The root's page children
// are the pages; a page holds apps and folders; a folder holds one or more nested page
// containers whose children are the folder's apps.
package legacy

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"golaunchpad/internal/domain"
	"golaunchpad/internal/grid"
	applog "golaunchpad/internal/log"
)

// Item type codes used by the legacy items table.
const (
	TypeRoot   = 1
	TypeFolder = 2
	TypePage   = 3
	TypeApp    = 4
)

// Root and holding-page markers in the items.uuid column.
const (
	RootUUID    = "ROOTPAGE"
	HoldingUUID = "HOLDINGPAGE"
)

var (
	ErrNoRoot          = errors.New("no root record")
	ErrMissingTable    = errors.New("missing table")
	ErrMissingColumn   = errors.New("missing column")
	ErrNothingResolved = errors.New("no legacy app could be resolved")
)

// ImportError is the structured failure of an import step.
type ImportError struct {
	Op  string
	Err error
}

func (e *ImportError) Error() string { return "legacy import: " + e.Op + ": " + e.Err.Error() }
func (e *ImportError) Unwrap() error { return e.Err }

// AppRecord is a row of the apps table.
type AppRecord struct {
	ItemID   int64
	Title    string
	BundleID string
}

// GroupRecord is a row of the groups table.
type GroupRecord struct {
	ItemID int64
	Title  string
}

// ItemRecord is a row of the items table.
type ItemRecord struct {
	ID       int64
	UUID     string
	Type     int
	ParentID int64
	Ordering int64
}

// Database is the in-memory form of the three legacy tables.
type Database struct {
	Apps   map[int64]AppRecord
	Groups map[int64]GroupRecord
	Items  []ItemRecord
}

// Resolver maps a legacy app reference to an installed app.
type Resolver interface {
	Resolve(title, bundleID string) (domain.DiscoveredApp, bool)
}

// Failure is a legacy app that could not be matched to an installed app.
type Failure struct {
	Title    string
	BundleID string
}

// Result of an import. Failed lists unresolved apps; they are omitted from Pages.
type Result struct {
	Pages    domain.Pages
	Failed   []Failure
	Resolved int
}

// placeholderTitles are folder titles that carry no meaning and get replaced.
var placeholderTitles = map[string]bool{
	"":                true,
	"untitled":        true,
	"folder":          true,
	"new folder":      true,
	"untitled folder": true,
}

// Import translates the legacy record tree into pages of perPage slots.
func Import(db Database, r Resolver, perPage int) (Result, error) {
	l := applog.WithOperation(applog.WithComponent("legacy"), "import")
	root, ok := findRoot(db.Items)
	if !ok {
		return Result{}, &ImportError{Op: "locate root", Err: ErrNoRoot}
	}

	im := importer{db: db, resolver: r, fold: cases.Fold(), seen: map[string]bool{}}
	im.children = make(map[int64][]ItemRecord)
	for _, it := range db.Items {
		if it.ID == it.ParentID {
			continue
		}
		im.children[it.ParentID] = append(im.children[it.ParentID], it)
	}
	for k := range im.children {
		im.sortChildren(im.children[k])
	}

	var pages domain.Pages
	for _, pg := range im.children[root.ID] {
		if pg.Type != TypePage {
			continue
		}
		idx := len(pages)
		page := domain.Page{}
		for _, child := range im.children[pg.ID] {
			switch child.Type {
			case TypeApp:
				if a, ok := im.app(child.ID, idx); ok {
					page = append(page, domain.AppItem(a))
				}
			case TypeFolder:
				if f, ok := im.folder(child, idx); ok {
					page = append(page, domain.FolderItem(f))
				}
			}
		}
		pages = append(pages, page)
	}

	res := Result{Failed: im.failed, Resolved: im.resolved}
	for _, f := range im.failed {
		l.Debug("unresolved legacy app", slog.String("title", f.Title), slog.String("bundle_id", f.BundleID))
	}
	if im.resolved == 0 {
		return res, &ImportError{Op: "resolve apps", Err: ErrNothingResolved}
	}
	// the legacy grid may hold more apps per page than ours
	repaired := !grid.Valid(pages, perPage)
	if repaired {
		pages = grid.RepairOverflow(pages, perPage)
	}
	res.Pages = pages
	l.Info("legacy layout imported", slog.Int("pages", len(res.Pages)), slog.Int("resolved", res.Resolved),
		slog.Int("failed", len(res.Failed)), slog.Bool("repaired", repaired))
	return res, nil
}

// findRoot prefers the record tagged ROOTPAGE, else the lowest-id root that is not the holding page.
func findRoot(items []ItemRecord) (ItemRecord, bool) {
	var (
		best  ItemRecord
		found bool
	)
	for _, it := range items {
		if it.Type != TypeRoot {
			continue
		}
		if it.UUID == RootUUID {
			return it, true
		}
		if it.UUID == HoldingUUID {
			continue
		}
		if !found || it.ID < best.ID {
			best, found = it, true
		}
	}
	return best, found
}

type importer struct {
	db       Database
	resolver Resolver
	fold     cases.Caser
	children map[int64][]ItemRecord
	seen     map[string]bool
	failed   []Failure
	resolved int
}

// sortChildren orders by the ordering column; ties go by case-insensitive title, then id.
func (im *importer) sortChildren(items []ItemRecord) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Ordering != b.Ordering {
			return a.Ordering < b.Ordering
		}
		ta, tb := im.fold.String(im.title(a)), im.fold.String(im.title(b))
		if ta != tb {
			return ta < tb
		}
		return a.ID < b.ID
	})
}

func (im *importer) title(it ItemRecord) string {
	switch it.Type {
	case TypeApp:
		return im.db.Apps[it.ID].Title
	case TypeFolder:
		return im.db.Groups[it.ID].Title
	}
	return ""
}

// app resolves one legacy app record. Apps already placed are skipped.
func (im *importer) app(itemID int64, page int) (domain.App, bool) {
	rec, ok := im.db.Apps[itemID]
	if !ok {
		return domain.App{}, false
	}
	d, ok := im.resolver.Resolve(rec.Title, rec.BundleID)
	if !ok {
		im.failed = append(im.failed, Failure{Title: rec.Title, BundleID: rec.BundleID})
		return domain.App{}, false
	}
	if im.seen[d.Path] {
		return domain.App{}, false
	}
	im.seen[d.Path] = true
	im.resolved++
	a := d.NewApp()
	a.Page = page
	return a, true
}

// folder gathers members from the folder's nested containers in order.
func (im *importer) folder(rec ItemRecord, page int) (domain.Folder, bool) {
	f := domain.Folder{ID: domain.NewID(), Page: page}
	for _, sub := range im.children[rec.ID] {
		if sub.Type != TypePage {
			continue
		}
		for _, child := range im.children[sub.ID] {
			if child.Type != TypeApp {
				continue
			}
			if a, ok := im.app(child.ID, page); ok {
				f.Apps = append(f.Apps, a)
			}
		}
	}
	if len(f.Apps) == 0 {
		return domain.Folder{}, false
	}
	f.Name = folderName(im.db.Groups[rec.ID].Title, f.Apps)
	return f, true
}

// folderName keeps a meaningful legacy title, otherwise synthesizes one from member names.
func folderName(title string, members []domain.App) string {
	t := strings.TrimSpace(title)
	if !placeholderTitles[strings.ToLower(t)] {
		return t
	}
	switch len(members) {
	case 0:
		return "Folder"
	case 1:
		return members[0].Name
	case 2:
		return fmt.Sprintf("%s + %s", members[0].Name, members[1].Name)
	default:
		return fmt.Sprintf("%s + %s + …", members[0].Name, members[1].Name)
	}
}
