/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders the launcher layout for people: a printable PDF sheet,
// per-page PNG and SVG previews, and a zip bundle of the previews plus the layout file.
package export

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"golaunchpad/internal/domain"
)

// ErrPageRange is returned when a page index does not exist.
var ErrPageRange = errors.New("page out of range")

// Options sizes the rendered grid. Zero values fall back to the defaults.
// Cell is in pixels for raster and SVG output and in points for PDF.
type Options struct {
	Columns int
	Rows    int
	Cell    int
	Title   string
}

const (
	defaultColumns = 7
	defaultRows    = 5
	defaultCell    = 96
	headerHeight   = 20
)

func (o Options) withDefaults(pg domain.Page) Options {
	if o.Columns <= 0 {
		o.Columns = defaultColumns
	}
	if o.Rows <= 0 {
		o.Rows = defaultRows
	}
	if o.Cell <= 0 {
		o.Cell = defaultCell
	}
	// a page that was never repaired still renders every item
	if need := (len(pg) + o.Columns - 1) / o.Columns; need > o.Rows {
		o.Rows = need
	}
	if o.Title == "" {
		o.Title = "Launchpad"
	}
	return o
}

// cellOf returns the grid column and row of the item at index i.
func (o Options) cellOf(i int) (col, row int) {
	return i % o.Columns, i / o.Columns
}

func checkPage(pages domain.Pages, page int) error {
	if page < 0 || page >= len(pages) {
		return fmt.Errorf("%w: %d of %d", ErrPageRange, page, len(pages))
	}
	return nil
}

// label is the caption drawn under an item: folders show their member count.
func label(it domain.Item) string {
	if it.IsFolder() {
		return it.Name() + " (" + strconv.Itoa(len(it.Folder.Apps)) + ")"
	}
	return it.Name()
}

// truncate shortens s to at most n runes, marking the cut with "..".
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 2 {
		return string(r[:n])
	}
	return string(r[:n-2]) + ".."
}

func pageHeading(o Options, page, total int) string {
	return fmt.Sprintf("%s - page %d of %d", o.Title, page+1, total)
}
