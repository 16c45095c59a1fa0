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
	"fmt"
	"image/png"
	"io"

	"golaunchpad/internal/domain"
	"golaunchpad/internal/storage"
)

// ArchiveLayoutName is the layout document stored next to the previews.
const ArchiveLayoutName = "layout.json"

// PreviewArchive writes a zip bundle with one PNG per page (page-1.png, page-2.png, ...,
// zero padded when there are ten pages or more) and the layout in the export format, so
// the archive doubles as a backup that Import understands once extracted.
func PreviewArchive(pages domain.Pages, w io.Writer, opt Options) error {
	zw := zip.NewWriter(w)
	pad := 1
	for n := len(pages); n >= 10; n /= 10 {
		pad++
	}
	imgBuf := &bytes.Buffer{}
	for i, pg := range pages {
		imgBuf.Reset()
		if err := png.Encode(imgBuf, RenderPage(pg, i, len(pages), opt)); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
		name := fmt.Sprintf("page-%0*d.png", pad, i+1)
		if err := addZipFile(zw, name, imgBuf.Bytes()); err != nil {
			return fmt.Errorf("zip add image: %w", err)
		}
	}

	doc, err := storage.EncodePages(pages)
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	if err := addZipFile(zw, ArchiveLayoutName, doc); err != nil {
		return fmt.Errorf("zip add layout: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
