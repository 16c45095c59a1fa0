/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"golaunchpad/internal/domain"
)

// Record type tags of the persisted layout / export format.
const (
	RecordApp    = "app"
	RecordFolder = "folder"
)

// ErrCorrupt is returned when a layout document cannot be parsed at all.
var ErrCorrupt = errors.New("layout document is corrupt")

//go:embed schema/*.json
var schemaFS embed.FS

// Record is the serialized projection of one grid item. Folder members are app records.
type Record struct {
	Type string   `json:"type"`
	ID   string   `json:"id,omitempty"`
	Name string   `json:"name"`
	Path string   `json:"path,omitempty"`
	Page int      `json:"page"`
	Apps []Record `json:"apps,omitempty"`
}

// appWire and folderWire keep the on-disk shape exact per type: apps never carry
// an "apps" field and folders always do, even when empty.
type appWire struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Path string `json:"path"`
	Page int    `json:"page"`
}

type folderWire struct {
	Type string    `json:"type"`
	ID   string    `json:"id,omitempty"`
	Name string    `json:"name"`
	Page int       `json:"page"`
	Apps []appWire `json:"apps"`
}

// MarshalJSON writes the per-type wire shape.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.Type == RecordFolder {
		fw := folderWire{Type: r.Type, ID: r.ID, Name: r.Name, Page: r.Page, Apps: make([]appWire, 0, len(r.Apps))}
		for _, m := range r.Apps {
			fw.Apps = append(fw.Apps, appWire{Type: RecordApp, ID: m.ID, Name: m.Name, Path: m.Path, Page: m.Page})
		}
		return json.Marshal(fw)
	}
	return json.Marshal(appWire{Type: r.Type, ID: r.ID, Name: r.Name, Path: r.Path, Page: r.Page})
}

// RecordsFromPages projects the live page list into records in display order.
func RecordsFromPages(pages domain.Pages) []Record {
	out := make([]Record, 0, pages.Count())
	for pi, p := range pages {
		for _, it := range p {
			switch {
			case it.IsApp():
				out = append(out, Record{Type: RecordApp, ID: it.App.ID, Name: it.App.Name, Path: it.App.Path, Page: pi})
			case it.IsFolder():
				r := Record{Type: RecordFolder, ID: it.Folder.ID, Name: it.Folder.Name, Page: pi, Apps: make([]Record, 0, len(it.Folder.Apps))}
				for _, a := range it.Folder.Apps {
					r.Apps = append(r.Apps, Record{Type: RecordApp, ID: a.ID, Name: a.Name, Path: a.Path, Page: pi})
				}
				out = append(out, r)
			}
		}
	}
	return out
}

// EncodeRecords renders records as an indented JSON array.
func EncodeRecords(recs []Record) ([]byte, error) {
	if recs == nil {
		recs = []Record{}
	}
	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal layout: %w", err)
	}
	return append(b, '\n'), nil
}

// EncodePages is EncodeRecords(RecordsFromPages(pages)).
func EncodePages(pages domain.Pages) ([]byte, error) {
	return EncodeRecords(RecordsFromPages(pages))
}

// DecodeResult carries the surviving records and how many entries were dropped as malformed.
type DecodeResult struct {
	Records []Record
	Skipped int
}

var (
	schemaOnce   sync.Once
	recordSchema *gojsonschema.Schema
	memberSchema *gojsonschema.Schema
	schemaErr    error
)

func loadSchemas() error {
	schemaOnce.Do(func() {
		load := func(name string) (*gojsonschema.Schema, error) {
			b, err := schemaFS.ReadFile("schema/" + name)
			if err != nil {
				return nil, err
			}
			return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
		}
		if recordSchema, schemaErr = load("layout_record.schema.json"); schemaErr != nil {
			return
		}
		memberSchema, schemaErr = load("layout_member.schema.json")
	})
	return schemaErr
}

func conforms(s *gojsonschema.Schema, raw json.RawMessage) bool {
	res, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	return err == nil && res.Valid()
}

// DecodeRecords parses a layout document. Only an unparseable document is an error (ErrCorrupt);
// individual records or folder members that do not match the schema are skipped and counted.
func DecodeRecords(data []byte) (DecodeResult, error) {
	if err := loadSchemas(); err != nil {
		return DecodeResult{}, fmt.Errorf("load layout schema: %w", err)
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return DecodeResult{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	res := DecodeResult{Records: make([]Record, 0, len(raws))}
	for _, raw := range raws {
		if !conforms(recordSchema, raw) {
			res.Skipped++
			continue
		}
		var w struct {
			Type string            `json:"type"`
			ID   string            `json:"id"`
			Name string            `json:"name"`
			Path string            `json:"path"`
			Page int               `json:"page"`
			Apps []json.RawMessage `json:"apps"`
		}
		if err := json.Unmarshal(raw, &w); err != nil {
			res.Skipped++
			continue
		}
		rec := Record{Type: w.Type, ID: w.ID, Name: w.Name, Path: w.Path, Page: w.Page}
		if w.Type == RecordFolder {
			rec.Apps = make([]Record, 0, len(w.Apps))
			for _, mraw := range w.Apps {
				var m appWire
				if !conforms(memberSchema, mraw) || json.Unmarshal(mraw, &m) != nil {
					res.Skipped++
					continue
				}
				rec.Apps = append(rec.Apps, Record{Type: RecordApp, ID: m.ID, Name: m.Name, Path: m.Path, Page: m.Page})
			}
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}
