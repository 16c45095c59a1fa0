/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package discovery finds installed application bundles on disk.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"howett.net/plist"

	"golaunchpad/internal/domain"
	applog "golaunchpad/internal/log"
)

// BundleExt marks a directory as an application bundle.
const BundleExt = ".app"

// DefaultMaxDepth bounds how far below a root bundles are searched for.
const DefaultMaxDepth = 3

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	"Contents":   true,
	"Library":    true,
	"Frameworks": true,
}

// Root is one location to scan. Missing optional roots are ignored silently;
// every other read failure is reported.
type Root struct {
	Path     string
	Optional bool
}

// DefaultRoots returns the standard application folders followed by custom locations.
// skipSystem leaves out the /System folders.
func DefaultRoots(home string, custom []string, skipSystem bool) []Root {
	roots := []Root{{Path: "/Applications", Optional: true}}
	if !skipSystem {
		roots = append(roots,
			Root{Path: "/System/Applications", Optional: true},
			Root{Path: "/System/Applications/Utilities", Optional: true},
		)
	}
	if home != "" {
		roots = append(roots, Root{Path: filepath.Join(home, "Applications"), Optional: true})
	}
	for _, c := range custom {
		if c = strings.TrimSpace(c); c != "" {
			roots = append(roots, Root{Path: c})
		}
	}
	return roots
}

// Failure is a location that could not be read.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string { return fmt.Sprintf("%s: %v", f.Path, f.Err) }

// Result of a scan. Failures are reported on every run; nothing is cached.
type Result struct {
	Apps     []domain.DiscoveredApp
	Failures []Failure
}

// Scanner walks roots looking for bundles.
type Scanner struct {
	Roots    []Root
	MaxDepth int
}

// Scan walks every root concurrently and returns the bundles found, deduplicated by path
// and sorted by case-folded name. A cancelled context stops the walk early and returns
// what was gathered so far.
func (s *Scanner) Scan(ctx context.Context) Result {
	l := applog.WithOperation(applog.WithComponent("discovery"), "scan")
	depth := s.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}

	var (
		mu  sync.Mutex
		res Result
		wg  sync.WaitGroup
	)
	for _, r := range s.Roots {
		wg.Add(1)
		go func(r Root) {
			defer wg.Done()
			w := walker{ctx: ctx, maxDepth: depth}
			w.walk(r.Path, 0, r.Optional)
			mu.Lock()
			res.Apps = append(res.Apps, w.apps...)
			res.Failures = append(res.Failures, w.failures...)
			mu.Unlock()
		}(r)
	}
	wg.Wait()

	res.Apps = dedupeAndSort(res.Apps)
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Path < res.Failures[j].Path })
	for _, f := range res.Failures {
		l.Warn("location unreadable", slog.String("path", f.Path), slog.Any("err", f.Err))
	}
	l.Debug("scan finished", slog.Int("apps", len(res.Apps)), slog.Int("failures", len(res.Failures)))
	return res
}

type walker struct {
	ctx      context.Context
	maxDepth int
	apps     []domain.DiscoveredApp
	failures []Failure
}

func (w *walker) walk(dir string, depth int, optional bool) {
	if w.ctx.Err() != nil {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return
		}
		w.failures = append(w.failures, Failure{Path: dir, Err: err})
		return
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || skipDirs[name] {
			continue
		}
		full := filepath.Join(dir, name)
		if !isDir(e, full) {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), BundleExt) {
			w.apps = append(w.apps, ReadBundle(full))
			continue
		}
		if depth+1 < w.maxDepth {
			w.walk(full, depth+1, false)
		}
	}
}

// isDir follows symlinks so that linked bundles and folders are found.
func isDir(e fs.DirEntry, full string) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(full)
	return err == nil && fi.IsDir()
}

type infoPlist struct {
	DisplayName string `plist:"CFBundleDisplayName"`
	Name        string `plist:"CFBundleName"`
	Identifier  string `plist:"CFBundleIdentifier"`
	IconFile    string `plist:"CFBundleIconFile"`
}

// ReadBundle extracts display metadata from a bundle's Info.plist (XML or binary).
// A missing or unreadable plist yields the bundle's file stem as name.
func ReadBundle(path string) domain.DiscoveredApp {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	d := domain.DiscoveredApp{Name: stem, Path: path}
	info, err := readInfo(path)
	if err != nil {
		return d
	}
	switch {
	case strings.TrimSpace(info.DisplayName) != "":
		d.Name = strings.TrimSpace(info.DisplayName)
	case strings.TrimSpace(info.Name) != "":
		d.Name = strings.TrimSpace(info.Name)
	}
	d.BundleID = strings.TrimSpace(info.Identifier)
	if icon := strings.TrimSpace(info.IconFile); icon != "" {
		if filepath.Ext(icon) == "" {
			icon += ".icns"
		}
		d.IconRef = filepath.Join(path, "Contents", "Resources", icon)
	}
	return d
}

func readInfo(bundle string) (infoPlist, error) {
	var info infoPlist
	b, err := os.ReadFile(filepath.Join(bundle, "Contents", "Info.plist"))
	if err != nil {
		return info, err
	}
	if _, err := plist.Unmarshal(b, &info); err != nil {
		return info, fmt.Errorf("parse Info.plist: %w", err)
	}
	return info, nil
}

func dedupeAndSort(apps []domain.DiscoveredApp) []domain.DiscoveredApp {
	seen := make(map[string]bool, len(apps))
	out := make([]domain.DiscoveredApp, 0, len(apps))
	for _, a := range apps {
		if seen[a.Path] {
			continue
		}
		seen[a.Path] = true
		out = append(out, a)
	}
	fold := cases.Fold()
	sort.SliceStable(out, func(i, j int) bool {
		ni, nj := fold.String(out[i].Name), fold.String(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// IndexByBundleID maps bundle identifiers (case-folded) to apps; the first app wins.
func IndexByBundleID(apps []domain.DiscoveredApp) map[string]domain.DiscoveredApp {
	fold := cases.Fold()
	out := make(map[string]domain.DiscoveredApp, len(apps))
	for _, a := range apps {
		if a.BundleID == "" {
			continue
		}
		k := fold.String(a.BundleID)
		if _, ok := out[k]; !ok {
			out[k] = a
		}
	}
	return out
}
