//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"golaunchpad/internal/crash"
	"golaunchpad/internal/domain"
	"golaunchpad/internal/drag"
	"golaunchpad/internal/export"
	"golaunchpad/internal/launcher"
	applog "golaunchpad/internal/log"
	"golaunchpad/internal/version"
)

const (
	edgeWidth    = 28
	footerHeight = 28
	tickInterval = 50 * time.Millisecond
)

var (
	bgColor      = color.RGBA{R: 30, G: 30, B: 34, A: 255}
	appColor     = color.RGBA{R: 70, G: 74, B: 86, A: 255}
	folderColor  = color.RGBA{R: 96, G: 110, B: 140, A: 255}
	draggedColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	edgeColor    = color.RGBA{R: 255, G: 255, B: 255, A: 40}
)

// Run shows the launcher window for svc until it is closed, then flushes the layout.
func Run(svc *launcher.Service) error {
	l := applog.WithComponent("ui")
	defer crash.Recover(svc.Dir, svc)
	l.Info("starting UI", slog.String("version", version.String()))

	a := app.NewWithID("io.golaunchpad")
	w := a.NewWindow("Launchpad")
	prefs := a.Preferences()
	w.Resize(fyne.NewSize(
		float32(max(prefs.IntWithFallback("window.width", 1100), 640)),
		float32(max(prefs.IntWithFallback("window.height", 720), 480)),
	))

	status := widget.NewLabel("Ready")
	cfg := svc.Config
	view := NewLaunchpadView(svc.Controller, cfg.Grid.Columns, cfg.Grid.Rows)
	view.Pager = ScrollPager{
		Threshold:  cfg.Drag.ScrollThreshold,
		PageExtent: 120,
		Debounce:   cfg.Drag.ScrollDebounce(),
	}
	view.OnError = func(err error) {
		l.Warn("action failed", slog.Any("err", err))
		status.SetText(err.Error())
	}
	view.OnEffect = func(e drag.Effect) {
		if e != drag.EffectNone {
			status.SetText(e.String())
		}
	}
	view.OnOpenFolder = func(f domain.Folder) { showFolderDialog(w, svc.Controller, view, f) }
	view.OnItemMenu = func(it domain.Item, pos fyne.Position) { showItemMenu(w, svc.Controller, view, it, pos) }

	undoAction := func() {
		if ok, err := svc.Controller.Undo(); err != nil {
			view.OnError(err)
		} else if ok {
			status.SetText("Undone")
		}
		view.Refresh()
	}
	redoAction := func() {
		if ok, err := svc.Controller.Redo(); err != nil {
			view.OnError(err)
		} else if ok {
			status.SetText("Redone")
		}
		view.Refresh()
	}
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { undoAction() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault | fyne.KeyModifierShift}, func(fyne.Shortcut) { redoAction() })
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyLeft:
			view.Flip(-1)
		case fyne.KeyRight:
			view.Flip(1)
		case fyne.KeyEscape:
			svc.Controller.CancelDrag()
			view.Refresh()
		}
	})

	layoutMenu := fyne.NewMenu("Layout",
		fyne.NewMenuItem("Undo", undoAction),
		fyne.NewMenuItem("Redo", redoAction),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Rescan Applications", func() {
			res := svc.Rescan(context.Background())
			status.SetText(fmt.Sprintf("%d apps, %d unreadable locations", len(res.Apps), len(res.Failures)))
			view.Refresh()
		}),
		fyne.NewMenuItem("Reset Layout…", func() {
			dialog.ShowConfirm("Reset layout", "Lay out all apps in alphabetical order? Folders are removed.", func(ok bool) {
				if !ok {
					return
				}
				if err := svc.Reset(context.Background()); err != nil {
					view.OnError(err)
				}
				view.Refresh()
			}, w)
		}),
		fyne.NewMenuItem("Import System Launchpad", func() {
			res, err := svc.ImportLegacy(context.Background(), "")
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			view.Refresh()
			msg := fmt.Sprintf("Imported %d apps.", res.Resolved)
			if n := len(res.Failed); n > 0 {
				msg += fmt.Sprintf(" %d could not be found.", n)
			}
			dialog.ShowInformation("Import", msg, w)
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export Layout…", func() { exportLayout(w, svc.Controller) }),
		fyne.NewMenuItem("Import Layout…", func() { importLayout(w, svc.Controller, view) }),
		fyne.NewMenuItem("Print Sheet…", func() { printSheet(w, svc.Controller, cfg.Grid.Columns, cfg.Grid.Rows) }),
	)
	w.SetMainMenu(fyne.NewMainMenu(layoutMenu))
	w.SetContent(container.NewBorder(nil, status, nil, nil, view))

	stop := make(chan struct{})
	go func() {
		t := time.NewTicker(tickInterval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				if len(svc.Controller.Tick()) > 0 {
					fyne.Do(view.Refresh)
				}
			}
		}
	}()
	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})

	w.ShowAndRun()
	close(stop)
	l.Info("UI closed")
	return svc.Close()
}

// LaunchpadView draws the visible page of a controller and turns pointer gestures
// into controller calls.
type LaunchpadView struct {
	widget.BaseWidget

	ctrl       *launcher.Controller
	cols, rows int
	Pager      ScrollPager

	OnError      func(error)
	OnEffect     func(drag.Effect)
	OnOpenFolder func(domain.Folder)
	OnItemMenu   func(domain.Item, fyne.Position)

	dragging bool
	dragID   string
	lastHit  Hit
}

// NewLaunchpadView creates the grid widget for a cols x rows page.
func NewLaunchpadView(ctrl *launcher.Controller, cols, rows int) *LaunchpadView {
	v := &LaunchpadView{ctrl: ctrl, cols: max(cols, 1), rows: max(rows, 1), lastHit: Hit{Slot: -1}}
	v.ExtendBaseWidget(v)
	return v
}

func (v *LaunchpadView) grid() Grid {
	s := v.Size()
	return Grid{Columns: v.cols, Rows: v.rows, Width: s.Width, Height: s.Height - footerHeight, EdgeWidth: edgeWidth}
}

// itemAt returns the item shown in slot of the visible page.
func (v *LaunchpadView) itemAt(slot int) (domain.Item, bool) {
	pages := v.ctrl.Pages()
	vis := v.ctrl.VisiblePage()
	if slot < 0 || vis >= len(pages) || slot >= len(pages[vis]) {
		return domain.Item{}, false
	}
	return pages[vis][slot], true
}

func (v *LaunchpadView) fail(err error) {
	if v.OnError != nil {
		v.OnError(err)
	}
}

func (v *LaunchpadView) effect(e drag.Effect, err error) {
	if err != nil {
		v.fail(err)
	} else if v.OnEffect != nil {
		v.OnEffect(e)
	}
	v.Refresh()
}

// Flip moves the visible page by delta.
func (v *LaunchpadView) Flip(delta int) {
	v.ctrl.SetVisiblePage(v.ctrl.VisiblePage() + delta)
	v.Refresh()
}

// Tapped opens folders.
func (v *LaunchpadView) Tapped(e *fyne.PointEvent) {
	h := v.grid().HitTest(e.Position.X, e.Position.Y)
	it, ok := v.itemAt(h.Slot)
	if ok && it.IsFolder() && v.OnOpenFolder != nil {
		v.OnOpenFolder(*it.Folder)
	}
}

// TappedSecondary shows the item menu.
func (v *LaunchpadView) TappedSecondary(e *fyne.PointEvent) {
	h := v.grid().HitTest(e.Position.X, e.Position.Y)
	if it, ok := v.itemAt(h.Slot); ok && v.OnItemMenu != nil {
		v.OnItemMenu(it, e.AbsolutePosition)
	}
}

// Dragged starts a drag on the first event and keeps the hover target current.
func (v *LaunchpadView) Dragged(e *fyne.DragEvent) {
	g := v.grid()
	if !v.dragging {
		start := e.Position.Subtract(e.Dragged)
		it, ok := v.itemAt(g.HitTest(start.X, start.Y).Slot)
		if !ok {
			return
		}
		if err := v.ctrl.BeginDrag(it.ID()); err != nil {
			v.fail(err)
			return
		}
		v.dragging, v.dragID = true, it.ID()
	}
	h := g.HitTest(e.Position.X, e.Position.Y)
	v.lastHit = h
	if err := v.ctrl.HoverEdge(h.Edge()); err != nil {
		v.fail(err)
		return
	}
	target := ""
	if it, ok := v.itemAt(h.Slot); ok {
		target = it.ID()
	}
	if err := v.ctrl.Hover(target, h.Intent()); err != nil {
		v.fail(err)
	}
	v.Refresh()
}

// DragEnd drops on the hovered item, or at the end of the visible page over an empty slot.
func (v *LaunchpadView) DragEnd() {
	if !v.dragging {
		return
	}
	v.dragging, v.dragID = false, ""
	h := v.lastHit
	v.lastHit = Hit{Slot: -1}
	if _, occupied := v.itemAt(h.Slot); !occupied && h.Slot >= 0 {
		v.effect(v.ctrl.DropOnPage(v.ctrl.VisiblePage()))
		return
	}
	v.effect(v.ctrl.Drop())
}

// Scrolled flips pages with the wheel or a horizontal swipe.
func (v *LaunchpadView) Scrolled(e *fyne.ScrollEvent) {
	delta := -e.Scrolled.DY
	if e.Scrolled.DX != 0 {
		delta = -e.Scrolled.DX
	}
	if step := v.Pager.Scroll(float64(delta), time.Now()); step != 0 {
		v.Flip(step)
	}
}

// MinSize keeps icons legible.
func (v *LaunchpadView) MinSize() fyne.Size {
	return fyne.NewSize(float32(v.cols*64+2*edgeWidth), float32(v.rows*64+footerHeight))
}

// CreateRenderer builds one rectangle and caption per slot.
func (v *LaunchpadView) CreateRenderer() fyne.WidgetRenderer {
	r := &launchpadRenderer{v: v, bg: canvas.NewRectangle(bgColor)}
	r.left = canvas.NewRectangle(edgeColor)
	r.right = canvas.NewRectangle(edgeColor)
	r.footer = canvas.NewText("", color.White)
	r.footer.Alignment = fyne.TextAlignCenter
	r.objects = []fyne.CanvasObject{r.bg, r.left, r.right, r.footer}
	for i := 0; i < v.cols*v.rows; i++ {
		box := canvas.NewRectangle(appColor)
		box.CornerRadius = 10
		box.StrokeWidth = 2
		txt := canvas.NewText("", color.White)
		txt.Alignment = fyne.TextAlignCenter
		txt.TextSize = 12
		r.boxes = append(r.boxes, box)
		r.texts = append(r.texts, txt)
		r.objects = append(r.objects, box, txt)
	}
	return r
}

type launchpadRenderer struct {
	v           *LaunchpadView
	objects     []fyne.CanvasObject
	bg          *canvas.Rectangle
	left, right *canvas.Rectangle
	footer      *canvas.Text
	boxes       []*canvas.Rectangle
	texts       []*canvas.Text
}

func (r *launchpadRenderer) Destroy()                     {}
func (r *launchpadRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *launchpadRenderer) MinSize() fyne.Size           { return r.v.MinSize() }

func (r *launchpadRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	g := r.v.grid()
	r.left.Resize(fyne.NewSize(edgeWidth, g.Height))
	r.left.Move(fyne.NewPos(0, 0))
	r.right.Resize(fyne.NewSize(edgeWidth, g.Height))
	r.right.Move(fyne.NewPos(size.Width-edgeWidth, 0))
	r.footer.Resize(fyne.NewSize(size.Width, footerHeight))
	r.footer.Move(fyne.NewPos(0, g.Height))

	cw, ch := g.CellSize()
	pad := float32(6)
	for i, box := range r.boxes {
		x, y := g.CellOrigin(i)
		box.Resize(fyne.NewSize(cw-2*pad, ch-2*pad-16))
		box.Move(fyne.NewPos(x+pad, y+pad))
		r.texts[i].Resize(fyne.NewSize(cw, 16))
		r.texts[i].Move(fyne.NewPos(x, y+ch-pad-16))
	}
}

func (r *launchpadRenderer) Refresh() {
	pages := r.v.ctrl.Pages()
	vis := r.v.ctrl.VisiblePage()
	var pg domain.Page
	if vis < len(pages) {
		pg = pages[vis]
	}
	cw, _ := r.v.grid().CellSize()
	maxRunes := int(cw / 7)
	for i, box := range r.boxes {
		txt := r.texts[i]
		if i >= len(pg) {
			box.Hide()
			txt.Hide()
			continue
		}
		it := pg[i]
		box.FillColor = appColor
		if it.IsFolder() {
			box.FillColor = folderColor
		}
		box.StrokeColor = color.Transparent
		if r.v.dragging && it.ID() == r.v.dragID {
			box.StrokeColor = draggedColor
		}
		txt.Text = shortLabel(it.Name(), maxRunes)
		box.Show()
		txt.Show()
		box.Refresh()
		txt.Refresh()
	}
	showEdges := r.v.dragging
	for _, e := range []*canvas.Rectangle{r.left, r.right} {
		if showEdges {
			e.Show()
		} else {
			e.Hide()
		}
	}
	r.footer.Text = pageDots(vis, len(pages))
	r.footer.Refresh()
	r.Layout(r.v.Size())
	canvas.Refresh(r.v)
}

func showItemMenu(w fyne.Window, c *launcher.Controller, v *LaunchpadView, it domain.Item, pos fyne.Position) {
	items := []*fyne.MenuItem{}
	if it.IsApp() {
		path := it.App.Path
		items = append(items, fyne.NewMenuItem("Hide", func() {
			if err := c.Hide(path); err != nil {
				v.fail(err)
			}
			v.Refresh()
		}))
	} else if it.IsFolder() {
		f := *it.Folder
		items = append(items,
			fyne.NewMenuItem("Open", func() { showFolderDialog(w, c, v, f) }),
			fyne.NewMenuItem("Dissolve Folder", func() { v.effect(c.DissolveFolder(f.ID)) }),
		)
	}
	pages := c.Pages()
	for p := range len(pages) + 1 {
		if p == c.VisiblePage() {
			continue
		}
		page := p
		items = append(items, fyne.NewMenuItem(fmt.Sprintf("Move to Page %d", page+1), func() {
			v.effect(c.MoveToPage(it.ID(), page))
		}))
	}
	widget.ShowPopUpMenuAtPosition(fyne.NewMenu("", items...), w.Canvas(), pos)
}

func showFolderDialog(w fyne.Window, c *launcher.Controller, v *LaunchpadView, f domain.Folder) {
	name := widget.NewEntry()
	name.SetText(f.Name)
	list := container.NewVBox()
	var dlg dialog.Dialog
	for _, a := range f.Apps {
		member := a
		list.Add(container.NewBorder(nil, nil, nil,
			container.NewHBox(
				widget.NewButton("Remove", func() {
					v.effect(c.RemoveFromFolder(member.ID))
					dlg.Hide()
				}),
				widget.NewButton("Hide", func() {
					if err := c.Hide(member.Path); err != nil {
						v.fail(err)
					}
					v.Refresh()
					dlg.Hide()
				}),
			),
			widget.NewLabel(member.Name)))
	}
	content := container.NewBorder(name, widget.NewButton("Dissolve Folder", func() {
		v.effect(c.DissolveFolder(f.ID))
		dlg.Hide()
	}), nil, nil, container.NewVScroll(list))
	dlg = dialog.NewCustomConfirm("Folder", "Rename", "Close", content, func(ok bool) {
		if ok && name.Text != f.Name {
			v.effect(c.RenameFolder(f.ID, name.Text))
		}
	}, w)
	dlg.Resize(fyne.NewSize(360, 420))
	dlg.Show()
}

func exportLayout(w fyne.Window, c *launcher.Controller) {
	dialog.ShowFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			return
		}
		defer func() { _ = uc.Close() }()
		data, err := c.Export()
		if err == nil {
			_, err = uc.Write(data)
		}
		if err != nil {
			dialog.ShowError(err, w)
		}
	}, w)
}

func importLayout(w fyne.Window, c *launcher.Controller, v *LaunchpadView) {
	dialog.ShowFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		defer func() { _ = rc.Close() }()
		data, err := io.ReadAll(rc)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		res, err := c.Import(data)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		v.Refresh()
		if res.Skipped > 0 {
			dialog.ShowInformation("Import", fmt.Sprintf("%d malformed entries were skipped.", res.Skipped), w)
		}
	}, w)
}

func printSheet(w fyne.Window, c *launcher.Controller, cols, rows int) {
	dialog.ShowFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			return
		}
		defer func() { _ = uc.Close() }()
		if err := export.LayoutPDF(c.Pages(), uc, export.Options{Columns: cols, Rows: rows}); err != nil {
			dialog.ShowError(err, w)
		}
	}, w)
}
