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
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"golaunchpad/internal/domain"
)

var (
	white      = color.RGBA{255, 255, 255, 255}
	ink        = color.RGBA{0, 0, 0, 255}
	frame      = color.RGBA{90, 90, 90, 255}
	folderFill = color.RGBA{225, 232, 245, 255}
)

// glyphWidth is the advance of basicfont.Face7x13.
const glyphWidth = 7

// PagePNG renders one launcher page as a PNG preview.
func PagePNG(pages domain.Pages, page int, w io.Writer, opt Options) error {
	if err := checkPage(pages, page); err != nil {
		return err
	}
	img := RenderPage(pages[page], page, len(pages), opt)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// RenderPage draws a page into an RGBA image: a heading line, then one framed cell per
// grid slot in row-major order. Folder cells are shaded and list as many members as fit.
func RenderPage(pg domain.Page, page, total int, opt Options) *image.RGBA {
	o := opt.withDefaults(pg)
	pixW := o.Columns * o.Cell
	pixH := headerHeight + o.Rows*o.Cell
	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: white}, image.Point{}, draw.Src)

	maxChars := (o.Cell - 8) / glyphWidth
	drawText(img, 4, 14, truncate(pageHeading(o, page, total), pixW/glyphWidth-1))
	for i, it := range pg {
		col, row := o.cellOf(i)
		x0 := col*o.Cell + 2
		y0 := headerHeight + row*o.Cell + 2
		x1 := x0 + o.Cell - 5
		y1 := y0 + o.Cell - 5
		if it.IsFolder() {
			fillRect(img, x0, y0, x1, y1, folderFill)
		}
		strokeRect(img, x0, y0, x1, y1, frame)
		drawText(img, x0+3, y0+14, truncate(label(it), maxChars))
		if !it.IsFolder() {
			continue
		}
		for m, a := range it.Folder.Apps {
			ty := y0 + 30 + m*13
			if ty > y1-3 {
				break
			}
			drawText(img, x0+6, ty, truncate(a.Name, maxChars-1))
		}
	}
	return img
}

// drawText writes s with its baseline at (x, y). Runes outside the face render as boxes.
func drawText(img *image.RGBA, x, y int, s string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(ink),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}
