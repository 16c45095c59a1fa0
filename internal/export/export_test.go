/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golaunchpad/internal/domain"
	"golaunchpad/internal/storage"
)

func sampleLayout() domain.Pages {
	folder := domain.FolderItem(domain.Folder{ID: "f1", Name: "Work & Play", Apps: []domain.App{
		{ID: "m1", Name: "Mail", Path: "/Applications/Mail.app"},
		{ID: "m2", Name: "Calendar", Path: "/Applications/Calendar.app"},
	}})
	return domain.Pages{
		{
			domain.AppItem(domain.App{ID: "a1", Name: "Safari", Path: "/Applications/Safari.app"}),
			folder,
			domain.AppItem(domain.App{ID: "a2", Name: "Ünïcode Äpp", Path: "/Applications/U.app"}),
		},
		{
			domain.AppItem(domain.App{ID: "a3", Name: "Notes", Path: "/Applications/Notes.app", Page: 1}),
		},
	}
}

func TestLayoutPDF(t *testing.T) {
	var buf bytes.Buffer
	if err := LayoutPDF(sampleLayout(), &buf, Options{Columns: 4, Rows: 2}); err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", buf.Bytes()[:min(8, buf.Len())])
	}
}

func TestLayoutPDFEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := LayoutPDF(nil, &buf, Options{}); err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("empty output")
	}
}

func TestPagePNGDimensions(t *testing.T) {
	var buf bytes.Buffer
	if err := PagePNG(sampleLayout(), 0, &buf, Options{Columns: 4, Rows: 2, Cell: 80}); err != nil {
		t.Fatalf("png: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 4*80 || b.Dy() != headerHeight+2*80 {
		t.Fatalf("bounds = %v", b)
	}
	// the folder cell (second slot) is shaded inside its frame
	r, g, bl, _ := img.At(80+40, headerHeight+70).RGBA()
	if r>>8 != 225 || g>>8 != 232 || bl>>8 != 245 {
		t.Fatalf("folder fill = %d,%d,%d", r>>8, g>>8, bl>>8)
	}
}

func TestPagePNGGrowsRowsForOverfullPage(t *testing.T) {
	pg := domain.Page{}
	for i := 0; i < 5; i++ {
		pg = append(pg, domain.AppItem(domain.App{ID: string(rune('a' + i)), Name: "X"}))
	}
	img := RenderPage(pg, 0, 1, Options{Columns: 2, Rows: 1, Cell: 50})
	if got := img.Bounds().Dy(); got != headerHeight+3*50 {
		t.Fatalf("height = %d", got)
	}
}

func TestPageOutOfRange(t *testing.T) {
	var buf bytes.Buffer
	if err := PagePNG(sampleLayout(), 2, &buf, Options{}); !errors.Is(err, ErrPageRange) {
		t.Fatalf("png err = %v", err)
	}
	if err := PageSVG(sampleLayout(), -1, &buf, Options{}); !errors.Is(err, ErrPageRange) {
		t.Fatalf("svg err = %v", err)
	}
}

func TestPageSVGEscapesNames(t *testing.T) {
	var buf bytes.Buffer
	if err := PageSVG(sampleLayout(), 0, &buf, Options{Columns: 3, Rows: 1}); err != nil {
		t.Fatalf("svg: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"<svg", "Work &amp; Play (2)", "Calendar", "Ünïcode Äpp", `data-id="f1"`, "page 1 of 2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("svg missing %q:\n%s", want, out)
		}
	}
}

func TestPreviewArchive(t *testing.T) {
	var buf bytes.Buffer
	pages := sampleLayout()
	if err := PreviewArchive(pages, &buf, Options{}); err != nil {
		t.Fatalf("archive: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if strings.Join(names, ",") != "page-1.png,page-2.png,layout.json" {
		t.Fatalf("entries = %v", names)
	}
	rc, err := zr.File[2].Open()
	if err != nil {
		t.Fatalf("open layout: %v", err)
	}
	defer func() { _ = rc.Close() }()
	var doc bytes.Buffer
	if _, err := doc.ReadFrom(rc); err != nil {
		t.Fatalf("read layout: %v", err)
	}
	res, err := storage.DecodeRecords(doc.Bytes())
	if err != nil {
		t.Fatalf("decode layout: %v", err)
	}
	if len(res.Records) != 4 || res.Skipped != 0 {
		t.Fatalf("records = %d skipped = %d", len(res.Records), res.Skipped)
	}
}

func TestBatchExportPresets(t *testing.T) {
	out := t.TempDir()
	files, err := BatchExport(sampleLayout(), BatchOptions{Preset: PresetWeb, OutDir: out})
	if err != nil {
		t.Fatalf("web: %v", err)
	}
	if len(files) != 5 {
		t.Fatalf("web files = %v", files)
	}
	for _, p := range []string{
		filepath.Join(out, "web", "png", "page-1.png"),
		filepath.Join(out, "web", "svg", "page-2.svg"),
		filepath.Join(out, "web", "previews.zip"),
	} {
		st, err := os.Stat(p)
		if err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
		if st.Size() <= 0 {
			t.Fatalf("empty file: %s", p)
		}
	}

	files, err = BatchExport(sampleLayout(), BatchOptions{Preset: PresetPrint, OutDir: out, Pages: []int{1}})
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	want := []string{filepath.Join(out, "print", "sheet.pdf"), filepath.Join(out, "print", "png", "page-2.png")}
	if strings.Join(files, "|") != strings.Join(want, "|") {
		t.Fatalf("print files = %v", files)
	}
}

func TestBatchExportErrors(t *testing.T) {
	if _, err := BatchExport(sampleLayout(), BatchOptions{}); err == nil {
		t.Fatalf("expected error without output dir")
	}
	out := t.TempDir()
	if _, err := BatchExport(sampleLayout(), BatchOptions{OutDir: out, Formats: []string{"epub"}}); err == nil {
		t.Fatalf("expected unknown format error")
	}
	_, err := BatchExport(sampleLayout(), BatchOptions{OutDir: out, Formats: []string{"png"}, Pages: []int{7}})
	if !errors.Is(err, ErrPageRange) {
		t.Fatalf("err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "default", "png", "page-8.png")); !os.IsNotExist(err) {
		t.Fatalf("partial file left behind: %v", err)
	}
}

func TestTruncate(t *testing.T) {
	cases := map[string]struct {
		in   string
		n    int
		want string
	}{
		"fits":    {"Mail", 10, "Mail"},
		"cut":     {"Calendar", 6, "Cale.."},
		"tiny":    {"Calendar", 2, "Ca"},
		"runes":   {"Äpfelmus", 5, "Äpf.."},
		"nothing": {"x", 0, ""},
	}
	for name, tc := range cases {
		if got := truncate(tc.in, tc.n); got != tc.want {
			t.Errorf("%s: truncate(%q, %d) = %q, want %q", name, tc.in, tc.n, got, tc.want)
		}
	}
}
