/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"

	"golaunchpad/internal/config"
	"golaunchpad/internal/domain"
	"golaunchpad/internal/drag"
	"golaunchpad/internal/export"
	"golaunchpad/internal/launcher"
	applog "golaunchpad/internal/log"
	"golaunchpad/internal/ui"
	"golaunchpad/internal/version"
)

// cliApp carries what the commands share: configuration, the data directory and the
// lazily opened launcher service.
type cliApp struct {
	cfg      config.AppConfig
	dataDir  string
	svc      *launcher.Service
	out      io.Writer
	errOut   io.Writer
	openOpts []launcher.OpenOption
}

// CrashSnapshot lets crash.Recover save the layout of an open service.
func (a *cliApp) CrashSnapshot() (string, error) {
	if a.svc == nil {
		return "", errors.New("no layout loaded")
	}
	return a.svc.CrashSnapshot()
}

func (a *cliApp) service(ctx context.Context) (*launcher.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	s, err := launcher.Open(ctx, a.cfg, a.dataDir, a.openOpts...)
	if err != nil {
		return nil, err
	}
	for _, f := range s.LastScan.Failures {
		_, _ = fmt.Fprintf(a.errOut, "%s %s: %v\n", color.YellowString("warning:"), f.Path, f.Err)
	}
	a.svc = s
	return s, nil
}

func (a *cliApp) closeService() {
	if a.svc == nil {
		return
	}
	if err := a.svc.Close(); err != nil {
		applog.WithComponent("cli").Error("saving layout failed", slog.Any("err", err))
	}
	a.svc = nil
}

// logOptions layers the config file's logging section under the LP_LOG_* environment.
func logOptions(cfg config.LoggingConfig) applog.Options {
	opts := applog.FromEnv()
	if os.Getenv("LP_LOG_LEVEL") == "" && cfg.Level != "" {
		opts.Level = cfg.Level
	}
	if os.Getenv("LP_LOG_FORMAT") == "" && cfg.Format != "" {
		opts.Format = cfg.Format
	}
	if os.Getenv("LP_LOG_SOURCE") == "" {
		opts.AddSource = opts.AddSource || cfg.Source
	}
	if opts.File == "" {
		opts.File = cfg.File
	}
	return opts
}

func newRootCmd(a *cliApp) *cobra.Command {
	var dataDir string
	cmd := &cobra.Command{
		Use:           "golaunchpad",
		Short:         "Arrange applications into pages and folders, Launchpad style.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			opts := logOptions(cfg.Logging)
			opts.Writer = a.errOut
			applog.Init(opts)
			a.dataDir = dataDir
			if a.dataDir == "" {
				if a.dataDir, err = config.Dir(); err != nil {
					return err
				}
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) { a.closeService() },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding layout.json and hidden.json (default: config directory)")

	cmd.AddCommand(
		gridCmd(a), resetCmd(a), hideCmd(a), unhideCmd(a), hiddenCmd(a),
		moveCmd(a), pageCmd(a), folderCmd(a),
		exportCmd(a), importCmd(a), importLegacyCmd(a),
		sheetCmd(a), previewCmd(a), renderCmd(a),
		uiCmd(a), versionCmd(a),
	)
	return cmd
}

func gridCmd(a *cliApp) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Print the pages, items and folder contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			pages := s.Controller.Pages()
			for i, pg := range pages {
				if page > 0 && i != page-1 {
					continue
				}
				printPage(a.out, i, len(pages), pg)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "print only this page (1-based)")
	return cmd
}

func printPage(w io.Writer, i, total int, pg domain.Page) {
	bold := color.New(color.Bold).SprintFunc()
	folder := color.New(color.FgCyan).SprintFunc()
	_, _ = fmt.Fprintln(w, bold(fmt.Sprintf("Page %d of %d", i+1, total)))
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold("#"), bold("KIND"), bold("NAME"), bold("ID"), bold("PATH"))
	for slot, it := range pg {
		if it.IsFolder() {
			tbl.AddRow(slot+1, "folder", folder(fmt.Sprintf("%s (%d)", it.Name(), len(it.Folder.Apps))), shortID(it.ID()), "")
			for m, app := range it.Folder.Apps {
				branch := "├"
				if m == len(it.Folder.Apps)-1 {
					branch = "└"
				}
				tbl.AddRow("", "", branch+" "+app.Name, shortID(app.ID), app.Path)
			}
			continue
		}
		tbl.AddRow(slot+1, "app", it.Name(), shortID(it.ID()), it.App.Path)
	}
	_, _ = fmt.Fprintln(w, tbl)
	_, _ = fmt.Fprintln(w)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveItem finds an item or folder member by id, id prefix, path or name (case-insensitive).
func resolveItem(pages domain.Pages, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty item reference")
	}
	fold := cases.Fold()
	want := fold.String(ref)
	var byPrefix, byName []string
	var byNameLabels []string
	check := func(id, name, path string) (string, bool) {
		switch {
		case id == ref, path != "" && path == ref:
			return id, true
		case strings.HasPrefix(id, ref):
			byPrefix = append(byPrefix, id)
		case fold.String(name) == want:
			byName = append(byName, id)
			byNameLabels = append(byNameLabels, name+" ("+shortID(id)+")")
		}
		return "", false
	}
	for _, pg := range pages {
		for _, it := range pg {
			if it.IsFolder() {
				if id, ok := check(it.ID(), it.Name(), ""); ok {
					return id, nil
				}
				for _, m := range it.Folder.Apps {
					if id, ok := check(m.ID, m.Name, m.Path); ok {
						return id, nil
					}
				}
				continue
			}
			if id, ok := check(it.ID(), it.Name(), it.App.Path); ok {
				return id, nil
			}
		}
	}
	switch {
	case len(byPrefix) == 1:
		return byPrefix[0], nil
	case len(byName) == 1:
		return byName[0], nil
	case len(byName) > 1:
		return "", fmt.Errorf("%q is ambiguous: %s", ref, strings.Join(byNameLabels, ", "))
	}
	return "", fmt.Errorf("%w: %s", launcher.ErrUnknownItem, ref)
}

// resolvePath maps a reference to an application path: paths pass through, anything
// else is resolved against the discovered apps by name.
func resolvePath(s *launcher.Service, ref string) (string, error) {
	if strings.ContainsRune(ref, filepath.Separator) {
		return filepath.Clean(ref), nil
	}
	fold := cases.Fold()
	for _, d := range s.Controller.Discovered() {
		if fold.String(d.Name) == fold.String(ref) {
			return d.Path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", launcher.ErrUnknownItem, ref)
}

func reportEffect(a *cliApp, e drag.Effect) {
	if e == drag.EffectNone {
		_, _ = fmt.Fprintln(a.out, color.YellowString("nothing changed"))
		return
	}
	_, _ = fmt.Fprintln(a.out, color.GreenString(e.String()))
}

func resetCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard the saved layout and lay apps out alphabetically",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.Reset(cmd.Context()); err != nil {
				return fmt.Errorf("reset: %v", err)
			}
			_, _ = fmt.Fprintf(a.out, "Layout reset: %d apps on %d pages\n", s.Controller.Pages().Count(), len(s.Controller.Pages()))
			return nil
		},
	}
}

func hideCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "hide <app>",
		Short: "Hide an application (by path or name)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			path, err := resolvePath(s, args[0])
			if err != nil {
				return err
			}
			if err := s.Controller.Hide(path); err != nil {
				return fmt.Errorf("hide: %v", err)
			}
			_, _ = fmt.Fprintln(a.out, "Hidden:", path)
			return nil
		},
	}
}

func unhideCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "unhide <app>",
		Short: "Show a hidden application again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			path, err := resolvePath(s, args[0])
			if err != nil {
				return err
			}
			if err := s.Controller.Unhide(path); err != nil {
				return fmt.Errorf("unhide: %v", err)
			}
			_, _ = fmt.Fprintln(a.out, "Visible:", path)
			return nil
		},
	}
}

func hiddenCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "hidden",
		Short: "List hidden applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			paths := s.Controller.Hidden()
			if len(paths) == 0 {
				_, _ = fmt.Fprintln(a.out, "No hidden applications.")
				return nil
			}
			installed := map[string]bool{}
			for _, d := range s.Controller.Discovered() {
				installed[d.Path] = true
			}
			bold := color.New(color.Bold).SprintFunc()
			tbl := uitable.New()
			tbl.Separator = "  "
			tbl.AddRow(bold("PATH"), bold("INSTALLED"))
			for _, p := range paths {
				state := color.GreenString("yes")
				if !installed[p] {
					state = color.YellowString("no")
				}
				tbl.AddRow(p, state)
			}
			_, _ = fmt.Fprintln(a.out, tbl)
			return nil
		},
	}
}

func moveCmd(a *cliApp) *cobra.Command {
	var merge bool
	cmd := &cobra.Command{
		Use:   "move <item> <target>",
		Short: "Move an item onto the position of target, or into a folder with --merge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			pages := s.Controller.Pages()
			dragged, err := resolveItem(pages, args[0])
			if err != nil {
				return err
			}
			target, err := resolveItem(pages, args[1])
			if err != nil {
				return err
			}
			intent := drag.IntentReorder
			if merge {
				intent = drag.IntentMerge
			}
			e, err := s.Controller.Move(drag.Drop{Dragged: dragged, Target: target, Intent: intent})
			if err != nil {
				return fmt.Errorf("move: %v", err)
			}
			reportEffect(a, e)
			return nil
		},
	}
	cmd.Flags().BoolVar(&merge, "merge", false, "combine with target into a folder (or add to the target folder)")
	return cmd
}

func pageCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "to-page <item> <page>",
		Short: "Move an item to the end of a page (1-based; one past the last creates a page)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			id, err := resolveItem(s.Controller.Pages(), args[0])
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid page %q", args[1])
			}
			e, err := s.Controller.MoveToPage(id, n-1)
			if err != nil {
				return fmt.Errorf("move: %v", err)
			}
			reportEffect(a, e)
			return nil
		},
	}
}

func folderCmd(a *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder",
		Short: "Rename, dissolve or take apps out of folders",
	}
	withItem := func(use, short string, nargs int, run func(*launcher.Service, string, []string) (drag.Effect, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(nargs),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.service(cmd.Context())
				if err != nil {
					return err
				}
				id, err := resolveItem(s.Controller.Pages(), args[0])
				if err != nil {
					return err
				}
				e, err := run(s, id, args[1:])
				if err != nil {
					return err
				}
				reportEffect(a, e)
				return nil
			},
		}
	}
	cmd.AddCommand(
		withItem("rename <folder> <name>", "Rename a folder (an empty name picks a suggestion)", 2,
			func(s *launcher.Service, id string, rest []string) (drag.Effect, error) {
				return s.Controller.RenameFolder(id, rest[0])
			}),
		withItem("dissolve <folder>", "Replace a folder by its apps", 1,
			func(s *launcher.Service, id string, _ []string) (drag.Effect, error) {
				return s.Controller.DissolveFolder(id)
			}),
		withItem("remove <app>", "Take an app out of its folder", 1,
			func(s *launcher.Service, id string, _ []string) (drag.Effect, error) {
				return s.Controller.RemoveFromFolder(id)
			}),
	)
	return cmd
}

func exportCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the layout as a JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			data, err := s.Controller.Export()
			if err != nil {
				return fmt.Errorf("export: %v", err)
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("export: %v", err)
			}
			_, _ = fmt.Fprintln(a.out, "Exported layout to", args[0])
			return nil
		},
	}
}

func importCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the layout with a JSON backup; missing apps are dropped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("import: %v", err)
			}
			res, err := s.Controller.Import(data)
			if err != nil {
				return fmt.Errorf("import: %v", err)
			}
			_, _ = fmt.Fprintf(a.out, "Imported %d records", len(res.Records))
			if res.Skipped > 0 {
				_, _ = fmt.Fprintf(a.out, " (%s)", color.YellowString("%d malformed skipped", res.Skipped))
			}
			_, _ = fmt.Fprintln(a.out)
			return nil
		},
	}
}

func importLegacyCmd(a *cliApp) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "import-legacy",
		Short: "Adopt the layout of the system Launchpad database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := s.ImportLegacy(cmd.Context(), dbPath)
			if err != nil {
				return fmt.Errorf("import-legacy: %v", err)
			}
			_, _ = fmt.Fprintf(a.out, "Imported %d apps onto %d pages\n", res.Resolved, len(s.Controller.Pages()))
			if len(res.Failed) == 0 {
				return nil
			}
			_, _ = fmt.Fprintln(a.out, color.YellowString("Not found on this system:"))
			tbl := uitable.New()
			tbl.Separator = "  "
			for _, f := range res.Failed {
				tbl.AddRow(f.Title, f.BundleID)
			}
			_, _ = fmt.Fprintln(a.out, tbl)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "path to the Launchpad database (default: located via getconf)")
	return cmd
}

func gridOptions(cfg config.AppConfig) export.Options {
	return export.Options{Columns: cfg.Grid.Columns, Rows: cfg.Grid.Rows}
}

func sheetCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "sheet <pdf>",
		Short: "Write a printable PDF of every page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			pages := s.Controller.Pages()
			if err := export.WriteFile(args[0], func(w io.Writer) error {
				return export.LayoutPDF(pages, w, gridOptions(a.cfg))
			}); err != nil {
				return fmt.Errorf("sheet: %v", err)
			}
			_, _ = fmt.Fprintln(a.out, "Wrote", args[0])
			return nil
		},
	}
}

func previewCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <page> <file>",
		Short: "Render one page (1-based) as PNG, or SVG when file ends in .svg",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid page %q", args[0])
			}
			s, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			pages := s.Controller.Pages()
			render := export.PagePNG
			if strings.EqualFold(filepath.Ext(args[1]), ".svg") {
				render = export.PageSVG
			}
			if err := export.WriteFile(args[1], func(w io.Writer) error {
				return render(pages, n-1, w, gridOptions(a.cfg))
			}); err != nil {
				return fmt.Errorf("preview: %v", err)
			}
			_, _ = fmt.Fprintln(a.out, "Wrote", args[1])
			return nil
		},
	}
}

func renderCmd(a *cliApp) *cobra.Command {
	var preset string
	var formats []string
	cmd := &cobra.Command{
		Use:   "render <dir>",
		Short: "Batch-render the layout with a preset (web: png, svg, zip; print: pdf, png)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			files, err := export.BatchExport(s.Controller.Pages(), export.BatchOptions{
				Preset:  export.PresetName(preset),
				Formats: formats,
				OutDir:  args[0],
				Grid:    gridOptions(a.cfg),
			})
			for _, f := range files {
				_, _ = fmt.Fprintln(a.out, "Wrote", f)
			}
			if err != nil {
				return fmt.Errorf("render: %v", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&preset, "preset", string(export.PresetWeb), "web or print")
	cmd.Flags().StringSliceVar(&formats, "format", nil, "override the preset formats (pdf, png, svg, zip)")
	return cmd
}

func uiCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the launcher window (build with -tags fyne)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := ui.Run(s); err != nil {
				return err
			}
			// Run flushed and closed the service
			a.svc = nil
			return nil
		},
	}
}

func versionCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, _ = fmt.Fprintln(a.out, "golaunchpad", version.String())
			return nil
		},
	}
}
