/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golaunchpad/internal/config"
	"golaunchpad/internal/discovery"
	"golaunchpad/internal/legacy"
	applog "golaunchpad/internal/log"
	"golaunchpad/internal/storage"
	"golaunchpad/internal/undo"
)

// Service wires configuration, discovery, persistence and the controller together.
// Its lifecycle follows the host application: Open at start, Close at exit.
type Service struct {
	Config     config.AppConfig
	Dir        string
	Layout     *storage.LayoutStore
	HiddenSet  *storage.HiddenStore
	Writer     *storage.Writer
	Scanner    *discovery.Scanner
	Controller *Controller

	// LastScan holds the failures of the most recent discovery run.
	LastScan discovery.Result
}

// OpenOption adjusts how Open builds the service.
type OpenOption func(*Service)

// WithRoots replaces the discovery roots derived from the configuration.
func WithRoots(roots ...discovery.Root) OpenOption {
	return func(s *Service) { s.Scanner.Roots = roots }
}

// Open scans for apps and reconciles them with the layout saved under dataDir.
// An unusable saved layout or hidden set degrades to "none"; only an unusable data
// directory is an error.
func Open(ctx context.Context, cfg config.AppConfig, dataDir string, opts ...OpenOption) (*Service, error) {
	l := applog.WithOperation(applog.WithComponent("launcher"), "open")
	if dataDir == "" {
		return nil, errors.New("launcher: data directory is required")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	home, _ := os.UserHomeDir()
	s := &Service{
		Config:    cfg,
		Dir:       dataDir,
		Layout:    storage.NewLayoutStore(dataDir),
		HiddenSet: storage.NewHiddenStore(dataDir),
		Scanner: &discovery.Scanner{
			Roots:    discovery.DefaultRoots(home, cfg.Discovery.CustomLocations, cfg.Discovery.SkipSystem),
			MaxDepth: cfg.Discovery.MaxDepth,
		},
	}
	for _, o := range opts {
		o(s)
	}
	s.Writer = storage.NewWriter(s.Layout)
	s.Controller = NewController(Options{
		PerPage:       cfg.Grid.AppsPerPage(),
		DropDelay:     cfg.Drag.DropDelay(),
		PageFlipDelay: cfg.Drag.PageFlipDelay(),
		Undo:          undo.Config{MaxDepth: 100},
	}, s.Writer, s.HiddenSet)

	hidden, err := s.HiddenSet.Load()
	if err != nil {
		l.Warn("hidden set unreadable, starting empty", slog.Any("err", err))
		hidden = map[string]bool{}
	}
	s.LastScan = s.Scanner.Scan(ctx)
	saved := s.loadSaved()
	st := s.Controller.Load(s.LastScan.Apps, saved, hidden)
	l.Info("launcher ready", slog.String("dir", dataDir), slog.Int("apps", len(s.LastScan.Apps)),
		slog.Int("kept", st.Kept), slog.Int("appended", st.Appended))
	return s, nil
}

// loadSaved returns the saved records, or nil when there is no usable layout.
func (s *Service) loadSaved() []storage.Record {
	l := applog.WithComponent("launcher")
	res, err := s.Layout.Load()
	switch {
	case errors.Is(err, storage.ErrNoLayout):
		return nil
	case err != nil:
		l.Warn("saved layout unusable, starting from discovery order", slog.Any("err", err))
		return nil
	}
	if res.Records == nil {
		return []storage.Record{}
	}
	return res.Records
}

// Rescan runs discovery again and merges the result into the current layout: new apps are
// appended, uninstalled ones disappear, the arrangement is kept.
func (s *Service) Rescan(ctx context.Context) discovery.Result {
	s.LastScan = s.Scanner.Scan(ctx)
	current := storage.RecordsFromPages(s.Controller.Pages())
	s.Controller.Load(s.LastScan.Apps, current, toSet(s.Controller.Hidden()))
	return s.LastScan
}

// Reset clears the persisted layout and lays apps out in discovery order.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.Writer.Flush(ctx); err != nil {
		applog.WithComponent("launcher").Warn("flush before reset failed", slog.Any("err", err))
	}
	if err := s.Layout.Clear(); err != nil {
		return err
	}
	s.LastScan = s.Scanner.Scan(ctx)
	s.Controller.Reset(s.LastScan.Apps)
	return nil
}

// ImportLegacy reads the system Launchpad database (dbPath, or the located default when empty)
// and adopts its layout. Unresolved apps are returned in the result, not as an error.
func (s *Service) ImportLegacy(ctx context.Context, dbPath string) (legacy.Result, error) {
	if dbPath == "" {
		p, err := legacy.LocateDatabase(ctx)
		if err != nil {
			return legacy.Result{}, err
		}
		dbPath = p
	}
	db, err := legacy.ReadDatabase(ctx, dbPath)
	if err != nil {
		return legacy.Result{}, err
	}
	dirs := make([]string, 0, len(s.Scanner.Roots))
	for _, r := range s.Scanner.Roots {
		dirs = append(dirs, r.Path)
	}
	resolver := legacy.NewBundleResolver(s.Controller.Discovered(), dirs)
	res, err := legacy.Import(db, resolver, s.Config.Grid.AppsPerPage())
	if err != nil {
		return res, err
	}
	if err := s.Controller.AdoptLegacy(res); err != nil {
		return res, err
	}
	return res, nil
}

// CrashSnapshot saves the committed layout beside the layout backups without touching the
// live layout file. It is meant for panic handlers.
func (s *Service) CrashSnapshot() (string, error) {
	pages, ok := s.Controller.CommittedPages()
	if !ok {
		return "", errors.New("launcher: controller busy")
	}
	return s.Layout.SaveCrashSnapshot(storage.RecordsFromPages(pages))
}

// Close writes any pending layout and stops the writer.
func (s *Service) Close() error {
	err := s.Writer.Close()
	applog.WithComponent("launcher").Debug("launcher closed", slog.String("dir", s.Dir),
		slog.Int("saves", s.Writer.Saves()), slog.Any("err", err))
	return err
}

func toSet(paths []string) map[string]bool {
	out := make(map[string]bool, len(paths))
	for _, p := range paths {
		out[p] = true
	}
	return out
}
