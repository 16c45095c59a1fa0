/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Page is one screen of the grid in display order.
type Page []Item

// Pages is the ordered page list rendered by the launcher.
type Pages []Page

// Location addresses an item: a top-level slot, or a folder member when Member >= 0.
type Location struct {
	Page   int
	Index  int
	Member int
}

// InFolder reports whether the location points inside a folder.
func (l Location) InFolder() bool { return l.Member >= 0 }

// Clone deep-copies the page list.
func (ps Pages) Clone() Pages {
	if ps == nil {
		return nil
	}
	out := make(Pages, len(ps))
	for i, p := range ps {
		np := make(Page, len(p))
		for j, it := range p {
			np[j] = it.Clone()
		}
		out[i] = np
	}
	return out
}

// Count returns the number of top-level slots across all pages.
func (ps Pages) Count() int {
	n := 0
	for _, p := range ps {
		n += len(p)
	}
	return n
}

// Items flattens the pages in display order.
func (ps Pages) Items() []Item {
	out := make([]Item, 0, ps.Count())
	for _, p := range ps {
		out = append(out, p...)
	}
	return out
}

// IDs returns top-level item ids in display order.
func (ps Pages) IDs() []string {
	out := make([]string, 0, ps.Count())
	for _, p := range ps {
		for _, it := range p {
			out = append(out, it.ID())
		}
	}
	return out
}

// Locate finds an item or folder member by id.
func (ps Pages) Locate(id string) (Location, bool) {
	if id == "" {
		return Location{}, false
	}
	for pi, p := range ps {
		for ii, it := range p {
			if it.ID() == id {
				return Location{Page: pi, Index: ii, Member: -1}, true
			}
			if it.IsFolder() {
				if mi := it.Folder.MemberIndex(id); mi >= 0 {
					return Location{Page: pi, Index: ii, Member: mi}, true
				}
			}
		}
	}
	return Location{}, false
}

// At returns the item addressed by a top-level location.
func (ps Pages) At(l Location) Item {
	return ps[l.Page][l.Index]
}

// LocatePath finds the app with the given path, standalone or inside a folder.
func (ps Pages) LocatePath(path string) (Location, bool) {
	for pi, p := range ps {
		for ii, it := range p {
			switch {
			case it.IsApp() && it.App.Path == path:
				return Location{Page: pi, Index: ii, Member: -1}, true
			case it.IsFolder():
				for mi, a := range it.Folder.Apps {
					if a.Path == path {
						return Location{Page: pi, Index: ii, Member: mi}, true
					}
				}
			}
		}
	}
	return Location{}, false
}

// AppByID returns the app with id, standalone or nested.
func (ps Pages) AppByID(id string) (App, bool) {
	l, ok := ps.Locate(id)
	if !ok {
		return App{}, false
	}
	it := ps.At(l)
	if l.InFolder() {
		return it.Folder.Apps[l.Member], true
	}
	if it.IsApp() {
		return *it.App, true
	}
	return App{}, false
}
