/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the grid model: an Item is one slot on a page and is
// either an application reference or a folder of applications.

import (
	"github.com/google/uuid"
)

// Kind tags the variant held by an Item.
type Kind int

const (
	KindApp Kind = iota
	KindFolder
)

func (k Kind) String() string {
	switch k {
	case KindApp:
		return "app"
	case KindFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// App references an installed application bundle.
// Path is the durable identity across sessions; ID only lives for one session.
type App struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IconRef string `json:"iconRef,omitempty"` // opaque handle owned by the icon cache
	Path    string `json:"path"`
	Page    int    `json:"page"`
}

// Folder groups applications. Folders never nest.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Page int    `json:"page"`
	Apps []App  `json:"apps"`
}

// Item is a tagged union of App and Folder. Only the field matching Kind is meaningful.
type Item struct {
	Kind   Kind    `json:"kind"`
	App    *App    `json:"app,omitempty"`
	Folder *Folder `json:"folder,omitempty"`
}

// AppItem wraps an App.
func AppItem(a App) Item {
	return Item{Kind: KindApp, App: &a}
}

// FolderItem wraps a Folder; the member slice is copied.
func FolderItem(f Folder) Item {
	f.Apps = append([]App(nil), f.Apps...)
	return Item{Kind: KindFolder, Folder: &f}
}

// NewID returns a fresh session-scoped identifier.
func NewID() string { return uuid.NewString() }

func (it Item) IsFolder() bool { return it.Kind == KindFolder && it.Folder != nil }

func (it Item) IsApp() bool { return it.Kind == KindApp && it.App != nil }

// ID returns the slot identity.
func (it Item) ID() string {
	switch {
	case it.IsApp():
		return it.App.ID
	case it.IsFolder():
		return it.Folder.ID
	}
	return ""
}

func (it Item) Name() string {
	switch {
	case it.IsApp():
		return it.App.Name
	case it.IsFolder():
		return it.Folder.Name
	}
	return ""
}

func (it Item) Page() int {
	switch {
	case it.IsApp():
		return it.App.Page
	case it.IsFolder():
		return it.Folder.Page
	}
	return 0
}

// WithPage returns a copy of the item assigned to page p.
// Folder members follow the folder's page.
func (it Item) WithPage(p int) Item {
	out := it.Clone()
	switch {
	case out.IsApp():
		out.App.Page = p
	case out.IsFolder():
		out.Folder.Page = p
		for i := range out.Folder.Apps {
			out.Folder.Apps[i].Page = p
		}
	}
	return out
}

// Clone returns a deep copy so that callers can mutate without aliasing.
func (it Item) Clone() Item {
	out := Item{Kind: it.Kind}
	if it.App != nil {
		a := *it.App
		out.App = &a
	}
	if it.Folder != nil {
		f := *it.Folder
		f.Apps = append([]App(nil), it.Folder.Apps...)
		out.Folder = &f
	}
	return out
}

// Paths lists the application paths referenced by the item (one for an app, all members for a folder).
func (it Item) Paths() []string {
	switch {
	case it.IsApp():
		return []string{it.App.Path}
	case it.IsFolder():
		out := make([]string, 0, len(it.Folder.Apps))
		for _, a := range it.Folder.Apps {
			out = append(out, a.Path)
		}
		return out
	}
	return nil
}

// HasMember reports whether the folder already contains an app with the given id.
func (f Folder) HasMember(id string) bool {
	return f.MemberIndex(id) >= 0
}

// MemberIndex returns the position of the app with id, or -1.
func (f Folder) MemberIndex(id string) int {
	for i, a := range f.Apps {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// DiscoveredApp is one installed application as reported by discovery.
type DiscoveredApp struct {
	Name     string
	IconRef  string
	Path     string
	BundleID string
}

// NewApp turns a discovery result into a grid App on page 0 with a fresh id.
func (d DiscoveredApp) NewApp() App {
	return App{ID: NewID(), Name: d.Name, IconRef: d.IconRef, Path: d.Path}
}
