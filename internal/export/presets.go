/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golaunchpad/internal/domain"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls a batch export of the layout.
//
// Path semantics:
//   - OutDir is required; each preset writes into OutDir/<preset>/.
//   - pdf writes sheet.pdf and zip writes previews.zip.
//   - png and svg write page-<n>.(png|svg) into png/ or svg/ subfolders.
//
// Pages applies to the per-page formats only; the sheet and the archive always cover every page.
type BatchOptions struct {
	Preset  PresetName
	Formats []string // allowed: pdf, png, svg, zip; empty means preset defaults
	Pages   []int    // zero-based; empty means all pages
	OutDir  string
	Grid    Options
}

// BatchExport runs exports according to the given preset and returns the files written.
func BatchExport(pages domain.Pages, opt BatchOptions) ([]string, error) {
	if opt.OutDir == "" {
		return nil, errors.New("output directory is required")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	preset := string(opt.Preset)
	if preset == "" {
		preset = "default"
	}
	base := filepath.Join(opt.OutDir, preset)

	var written []string
	emit := func(path string, render func(io.Writer) error) error {
		if err := WriteFile(path, render); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "pdf":
			err := emit(filepath.Join(base, "sheet.pdf"), func(w io.Writer) error { return LayoutPDF(pages, w, opt.Grid) })
			if err != nil {
				return written, fmt.Errorf("pdf: %w", err)
			}
		case "zip":
			err := emit(filepath.Join(base, "previews.zip"), func(w io.Writer) error { return PreviewArchive(pages, w, opt.Grid) })
			if err != nil {
				return written, fmt.Errorf("zip: %w", err)
			}
		case "png":
			for _, p := range pageIndexes(len(pages), opt.Pages) {
				err := emit(filepath.Join(base, "png", fmt.Sprintf("page-%d.png", p+1)), func(w io.Writer) error { return PagePNG(pages, p, w, opt.Grid) })
				if err != nil {
					return written, fmt.Errorf("png page %d: %w", p+1, err)
				}
			}
		case "svg":
			for _, p := range pageIndexes(len(pages), opt.Pages) {
				err := emit(filepath.Join(base, "svg", fmt.Sprintf("page-%d.svg", p+1)), func(w io.Writer) error { return PageSVG(pages, p, w, opt.Grid) })
				if err != nil {
					return written, fmt.Errorf("svg page %d: %w", p+1, err)
				}
			}
		default:
			return written, fmt.Errorf("unknown format: %s", f)
		}
	}
	return written, nil
}

// WriteFile creates path (and its directory) and fills it with render. A failed render
// leaves no partial file behind.
func WriteFile(path string, render func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return render(f)
}

func pageIndexes(total int, specific []int) []int {
	if len(specific) == 0 {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	return specific
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "svg", "zip"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"pdf"}
	}
}
