/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	applog "golaunchpad/internal/log"
)

const (
	LayoutFileName = "layout.json"
	HiddenFileName = "hidden.json"
	BackupsDirName = "backups"

	// maxBackups bounds the number of timestamped layout backups kept on disk.
	maxBackups = 10
)

// ErrNoLayout is returned by LayoutStore.Load when no layout was ever saved.
var ErrNoLayout = errors.New("no saved layout")

// LayoutStore persists the serialized layout under Dir with transactional writes
// and timestamped backups of the previous file.
type LayoutStore struct {
	Dir string
}

func NewLayoutStore(dir string) *LayoutStore { return &LayoutStore{Dir: dir} }

// Path returns the full path of the layout document.
func (s *LayoutStore) Path() string { return filepath.Join(s.Dir, LayoutFileName) }

// Load reads the saved layout. A missing file yields ErrNoLayout. If the current file is
// unreadable or not a JSON array, the latest parseable backup is used instead; when none
// exists the error wraps ErrCorrupt. Malformed individual records never fail the load.
func (s *LayoutStore) Load() (DecodeResult, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "layout_load")
	b, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return DecodeResult{}, ErrNoLayout
	}
	if err == nil {
		res, derr := DecodeRecords(b)
		if derr == nil {
			if res.Skipped > 0 {
				l.Warn("skipped malformed layout records", slog.Int("skipped", res.Skipped))
			}
			return res, nil
		}
		err = derr
	}
	l.Warn("layout unreadable, trying backups", slog.Any("err", err))
	res, berr := s.loadLatestBackup()
	if berr != nil {
		return DecodeResult{}, fmt.Errorf("%w: %v; backup attempt: %v", ErrCorrupt, err, berr)
	}
	return res, nil
}

// Save writes records transactionally, backing up the previous document first.
func (s *LayoutStore) Save(recs []Record) error {
	if strings.TrimSpace(s.Dir) == "" {
		return errors.New("layout store: missing directory")
	}
	data, err := EncodeRecords(recs)
	if err != nil {
		return err
	}
	bdir := filepath.Join(s.Dir, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(s.Path()); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", LayoutFileName, stamp))
		if cerr := copyFile(s.Path(), bpath); cerr != nil {
			return fmt.Errorf("backup current layout: %w", cerr)
		}
		s.pruneBackups()
	}
	return writeAtomic(s.Path(), data)
}

// Clear removes the saved layout so that the next reconciliation starts from discovery order.
// Backups are kept.
func (s *LayoutStore) Clear() error {
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove layout: %w", err)
	}
	return nil
}

// SaveCrashSnapshot writes recs next to the backups as crash-<stamp>.layout.json and returns
// its path. The live layout file is left untouched.
func (s *LayoutStore) SaveCrashSnapshot(recs []Record) (string, error) {
	data, err := EncodeRecords(recs)
	if err != nil {
		return "", err
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(s.Dir, BackupsDirName, fmt.Sprintf("crash-%s.%s", stamp, LayoutFileName))
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

func (s *LayoutStore) backups() ([]string, error) {
	bdir := filepath.Join(s.Dir, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, LayoutFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

func (s *LayoutStore) loadLatestBackup() (DecodeResult, error) {
	candidates, err := s.backups()
	if err != nil {
		return DecodeResult{}, err
	}
	for i := len(candidates) - 1; i >= 0; i-- {
		b, err := os.ReadFile(candidates[i])
		if err != nil {
			continue
		}
		if res, err := DecodeRecords(b); err == nil {
			return res, nil
		}
	}
	return DecodeResult{}, errors.New("no usable backups found")
}

func (s *LayoutStore) pruneBackups() {
	candidates, err := s.backups()
	if err != nil || len(candidates) <= maxBackups {
		return
	}
	for _, p := range candidates[:len(candidates)-maxBackups] {
		_ = os.Remove(p)
	}
}

// HiddenStore persists the set of hidden application paths.
type HiddenStore struct {
	Dir string
}

func NewHiddenStore(dir string) *HiddenStore { return &HiddenStore{Dir: dir} }

func (h *HiddenStore) Path() string { return filepath.Join(h.Dir, HiddenFileName) }

// Load returns the hidden set. A missing file is an empty set; a corrupt one is reported.
func (h *HiddenStore) Load() (map[string]bool, error) {
	set := map[string]bool{}
	b, err := os.ReadFile(h.Path())
	if errors.Is(err, os.ErrNotExist) {
		return set, nil
	}
	if err != nil {
		return set, fmt.Errorf("read hidden apps: %w", err)
	}
	var paths []string
	if err := json.Unmarshal(b, &paths); err != nil {
		return set, fmt.Errorf("parse hidden apps: %w", err)
	}
	for _, p := range paths {
		if strings.TrimSpace(p) != "" {
			set[p] = true
		}
	}
	return set, nil
}

// Save writes the set as a sorted JSON array.
func (h *HiddenStore) Save(set map[string]bool) error {
	paths := make([]string, 0, len(set))
	for p, hidden := range set {
		if hidden {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	data, err := json.MarshalIndent(paths, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal hidden apps: %w", err)
	}
	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}
	return writeAtomic(h.Path(), append(data, '\n'))
}

// writeAtomic writes to a temp file in the same directory, then renames over target.
func writeAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(target), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(target); err == nil {
		_ = os.Remove(target)
	}
	if err := os.Rename(temp, target); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", filepath.Base(target), err)
	}
	return nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
