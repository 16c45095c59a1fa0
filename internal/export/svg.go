/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"golaunchpad/internal/domain"
)

// PageSVG renders one launcher page as a standalone SVG document. Unlike PagePNG the
// labels are real text, so any script the viewer's fonts cover displays correctly.
func PageSVG(pages domain.Pages, page int, w io.Writer, opt Options) error {
	if err := checkPage(pages, page); err != nil {
		return err
	}
	pg := pages[page]
	o := opt.withDefaults(pg)
	width := o.Columns * o.Cell
	height := headerHeight + o.Rows*o.Cell

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\" font-family=\"Helvetica, Arial, sans-serif\">\n", width, height, width, height)
	wf("  <rect x=\"0\" y=\"0\" width=\"%d\" height=\"%d\" fill=\"#ffffff\"/>\n", width, height)
	wf("  <text x=\"4\" y=\"14\" font-size=\"12\" font-weight=\"bold\">%s</text>\n", escText(pageHeading(o, page, len(pages))))
	for i, it := range pg {
		col, row := o.cellOf(i)
		x := col*o.Cell + 2
		y := headerHeight + row*o.Cell + 2
		side := o.Cell - 4
		fill := "none"
		kind := "app"
		if it.IsFolder() {
			fill = "#e1e8f5"
			kind = "folder"
		}
		wf("  <g class=\"%s\" data-id=\"%s\">\n", kind, escText(it.ID()))
		wf("    <rect x=\"%d\" y=\"%d\" width=\"%d\" height=\"%d\" rx=\"6\" fill=\"%s\" stroke=\"#5a5a5a\"/>\n", x, y, side, side, fill)
		wf("    <text x=\"%d\" y=\"%d\" font-size=\"11\">%s</text>\n", x+4, y+14, escText(label(it)))
		if it.IsFolder() {
			for m, a := range it.Folder.Apps {
				ty := y + 30 + m*12
				if ty > y+side-4 {
					break
				}
				wf("    <text x=\"%d\" y=\"%d\" font-size=\"9\">%s</text>\n", x+8, ty, escText(a.Name))
			}
		}
		wf("  </g>\n")
	}
	wf("</svg>\n")
	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func escText(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
