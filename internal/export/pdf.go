/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"golaunchpad/internal/domain"
)

// A4 landscape in points.
const (
	sheetWidth  = 842.0
	sheetHeight = 595.0
	sheetMargin = 36.0
)

// LayoutPDF writes a printable sheet with one PDF page per launcher page. Every grid slot
// shows the item name; folders are shaded and list their members.
func LayoutPDF(pages domain.Pages, w io.Writer, opt Options) error {
	pdf := gofpdf.New("L", "pt", "A4", "")
	pdf.SetTitle(opt.withDefaults(nil).Title+" layout", true)
	pdf.SetAuthor("golaunchpad", true)
	pdf.SetAutoPageBreak(false, 0)
	// core fonts are cp1252; names are translated rather than embedded
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if len(pages) == 0 {
		pages = domain.Pages{domain.Page{}}
	}
	for pi, pg := range pages {
		o := opt.withDefaults(pg)
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(0, 0, 0)
		pdf.Text(sheetMargin, sheetMargin, tr(pageHeading(o, pi, len(pages))))

		top := sheetMargin + 12
		cw := (sheetWidth - 2*sheetMargin) / float64(o.Columns)
		ch := (sheetHeight - top - sheetMargin) / float64(o.Rows)
		pdf.SetLineWidth(0.5)
		pdf.SetDrawColor(60, 60, 60)
		for i, it := range pg {
			col, row := o.cellOf(i)
			x := sheetMargin + float64(col)*cw
			y := top + float64(row)*ch
			drawPDFItem(pdf, tr, it, x+2, y+2, cw-4, ch-4)
		}
		if len(pg) == 0 {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.Text(sheetMargin, top+14, "(empty page)")
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func drawPDFItem(pdf *gofpdf.Fpdf, tr func(string) string, it domain.Item, x, y, w, h float64) {
	style := "D"
	if it.IsFolder() {
		pdf.SetFillColor(225, 232, 245)
		style = "FD"
	}
	pdf.Rect(x, y, w, h, style)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.Text(x+3, y+10, fitPDF(pdf, tr(label(it)), w-6))
	if !it.IsFolder() {
		return
	}
	pdf.SetFont("Helvetica", "", 6.5)
	line := 8.0
	maxLines := int((h - 14) / line)
	for i, a := range it.Folder.Apps {
		if i >= maxLines {
			break
		}
		text := a.Name
		if i == maxLines-1 && len(it.Folder.Apps) > maxLines {
			text = fmt.Sprintf("+%d more", len(it.Folder.Apps)-i)
		}
		pdf.Text(x+5, y+18+float64(i)*line, fitPDF(pdf, tr(text), w-8))
	}
}

// fitPDF trims s until it fits into width at the current font.
func fitPDF(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"..") > width {
		r = r[:len(r)-1]
	}
	return string(r) + ".."
}
