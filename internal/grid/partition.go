/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package grid partitions grid items into fixed-capacity pages and repairs
// page overflow. All functions are pure: inputs are never mutated.
package grid

import (
	"golaunchpad/internal/domain"
)

// capacity clamps a configured page capacity to at least one slot.
func capacity(perPage int) int {
	if perPage < 1 {
		return 1
	}
	return perPage
}

// Group buckets items by their page field, preserving relative order within a page.
// The result has max(page)+1 pages and never fewer than one. Negative pages count as page 0.
func Group(items []domain.Item) domain.Pages {
	maxPage := 0
	for _, it := range items {
		if p := it.Page(); p > maxPage {
			maxPage = p
		}
	}
	out := make(domain.Pages, maxPage+1)
	for i := range out {
		out[i] = domain.Page{}
	}
	for _, it := range items {
		p := it.Page()
		if p < 0 {
			p = 0
		}
		out[p] = append(out[p], it.Clone())
	}
	return out
}

// Partition groups items by page and enforces the capacity invariant.
func Partition(items []domain.Item, perPage int) domain.Pages {
	return RepairOverflow(Group(items), perPage)
}

// Fill ignores existing page fields and lays items out sequentially, perPage per page.
func Fill(items []domain.Item, perPage int) domain.Pages {
	n := capacity(perPage)
	seq := make([]domain.Item, 0, len(items))
	for i, it := range items {
		seq = append(seq, it.WithPage(i/n))
	}
	return Group(seq)
}

// RepairOverflow moves excess items forward until no page holds more than perPage items.
// An overflowing page sheds items from its end onto the front of the next page, creating a
// trailing page when needed. The cascade is an explicit forward scan so that arbitrarily
// large inputs never recurse. Every item's page field is rewritten to its final index.
func RepairOverflow(pages domain.Pages, perPage int) domain.Pages {
	n := capacity(perPage)
	out := pages.Clone()
	if len(out) == 0 {
		return domain.Pages{domain.Page{}}
	}
	for i := 0; i < len(out); i++ {
		if len(out[i]) > n {
			// Removing the last item and prepending it to the next page, repeatedly,
			// leaves the shed tail in its original order ahead of the next page's items.
			shed := append(domain.Page(nil), out[i][n:]...)
			out[i] = append(domain.Page(nil), out[i][:n]...)
			if i+1 == len(out) {
				out = append(out, domain.Page{})
			}
			out[i+1] = append(shed, out[i+1]...)
		}
		for j := range out[i] {
			setPage(&out[i][j], i)
		}
	}
	return out
}

// TrimEmpty drops empty pages (keeping at least one) and renumbers the rest.
func TrimEmpty(pages domain.Pages) domain.Pages {
	out := make(domain.Pages, 0, len(pages))
	for _, p := range pages {
		if len(p) == 0 {
			continue
		}
		np := make(domain.Page, len(p))
		for j, it := range p {
			np[j] = it.Clone()
			setPage(&np[j], len(out))
		}
		out = append(out, np)
	}
	if len(out) == 0 {
		out = append(out, domain.Page{})
	}
	return out
}

// Valid reports whether pages satisfy the capacity and page-field invariants.
func Valid(pages domain.Pages, perPage int) bool {
	n := capacity(perPage)
	for i, p := range pages {
		if len(p) > n {
			return false
		}
		for _, it := range p {
			if it.Page() != i {
				return false
			}
		}
	}
	return len(pages) > 0
}

// setPage rewrites the page field in place; the item must already be a private copy.
func setPage(it *domain.Item, p int) {
	switch {
	case it.IsApp():
		it.App.Page = p
	case it.IsFolder():
		it.Folder.Page = p
		for k := range it.Folder.Apps {
			it.Folder.Apps[k].Page = p
		}
	}
}
