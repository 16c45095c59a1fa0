/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golaunchpad/internal/discovery"
	"golaunchpad/internal/domain"
	"golaunchpad/internal/launcher"
	applog "golaunchpad/internal/log"
)

type harness struct {
	data  string
	roots []discovery.Root
}

func newHarness(t *testing.T, apps ...string) *harness {
	t.Helper()
	t.Setenv("LP_CONFIG_DIR", t.TempDir())
	root := t.TempDir()
	for _, n := range apps {
		if err := os.MkdirAll(filepath.Join(root, n+".app", "Contents"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return &harness{data: t.TempDir(), roots: []discovery.Root{{Path: root}}}
}

// run executes one command in a fresh process-like app and returns its output.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := &cliApp{out: &out, errOut: &errOut, openOpts: []launcher.OpenOption{launcher.WithRoots(h.roots...)}}
	cmd := newRootCmd(a)
	cmd.SetArgs(append([]string{"--data-dir", h.data}, args...))
	err := cmd.Execute()
	a.closeService()
	return out.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func before(out, a, b string) bool {
	i, j := strings.Index(out, a), strings.Index(out, b)
	return i >= 0 && j >= 0 && i < j
}

func TestGridListsDiscoveredApps(t *testing.T) {
	h := newHarness(t, "Gamma", "Alpha", "Beta")
	out := h.mustRun(t, "grid")
	if !strings.Contains(out, "Page 1 of 1") {
		t.Fatalf("missing page header:\n%s", out)
	}
	if !before(out, "Alpha", "Beta") || !before(out, "Beta", "Gamma") {
		t.Fatalf("apps not alphabetical:\n%s", out)
	}
}

func TestMovePersistsBetweenRuns(t *testing.T) {
	h := newHarness(t, "Alpha", "Beta", "Gamma")
	out := h.mustRun(t, "move", "gamma", "ALPHA")
	if !strings.Contains(out, "reordered") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := os.Stat(filepath.Join(h.data, "layout.json")); err != nil {
		t.Fatalf("layout not saved: %v", err)
	}
	out = h.mustRun(t, "grid")
	if !before(out, "Gamma", "Alpha") {
		t.Fatalf("move not persisted:\n%s", out)
	}
}

func TestMergeAndDissolveFolder(t *testing.T) {
	h := newHarness(t, "Alpha", "Beta", "Gamma")
	if out := h.mustRun(t, "move", "Alpha", "Beta", "--merge"); !strings.Contains(out, "folder_created") {
		t.Fatalf("unexpected output %q", out)
	}
	out := h.mustRun(t, "grid")
	if !strings.Contains(out, "folder") || !strings.Contains(out, "(2)") {
		t.Fatalf("folder missing:\n%s", out)
	}

	pages := h.pages(t)
	var folderID string
	for _, it := range pages[0] {
		if it.IsFolder() {
			folderID = it.ID()
		}
	}
	if folderID == "" {
		t.Fatal("no folder in saved layout")
	}
	h.mustRun(t, "folder", "rename", folderID, "Tools")
	if out := h.mustRun(t, "grid"); !strings.Contains(out, "Tools (2)") {
		t.Fatalf("rename not shown:\n%s", out)
	}
	h.mustRun(t, "folder", "dissolve", "tools")
	if out := h.mustRun(t, "grid"); strings.Contains(out, "Tools") {
		t.Fatalf("folder still present:\n%s", out)
	}
}

func (h *harness) pages(t *testing.T) domain.Pages {
	t.Helper()
	var out, errOut bytes.Buffer
	a := &cliApp{out: &out, errOut: &errOut, openOpts: []launcher.OpenOption{launcher.WithRoots(h.roots...)}}
	cmd := newRootCmd(a)
	cmd.SetArgs([]string{"--data-dir", h.data, "version"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	s, err := a.service(cmd.Context())
	if err != nil {
		t.Fatal(err)
	}
	defer a.closeService()
	return s.Controller.Pages()
}

func TestHideAndUnhide(t *testing.T) {
	h := newHarness(t, "Alpha", "Beta")
	h.mustRun(t, "hide", "Beta")
	if out := h.mustRun(t, "grid"); strings.Contains(out, "Beta") {
		t.Fatalf("hidden app listed:\n%s", out)
	}
	if out := h.mustRun(t, "hidden"); !strings.Contains(out, "Beta.app") {
		t.Fatalf("hidden list:\n%s", out)
	}
	h.mustRun(t, "unhide", "Beta")
	if out := h.mustRun(t, "grid"); !strings.Contains(out, "Beta") {
		t.Fatalf("unhidden app missing:\n%s", out)
	}
	if out := h.mustRun(t, "hidden"); !strings.Contains(out, "No hidden applications.") {
		t.Fatalf("hidden list:\n%s", out)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	h := newHarness(t, "Alpha", "Beta", "Gamma")
	file := filepath.Join(t.TempDir(), "backup.json")
	h.mustRun(t, "move", "Gamma", "Alpha")
	h.mustRun(t, "export", file)
	h.mustRun(t, "reset")
	if out := h.mustRun(t, "grid"); !before(out, "Alpha", "Gamma") {
		t.Fatalf("reset did not restore alphabetical order:\n%s", out)
	}
	if out := h.mustRun(t, "import", file); !strings.Contains(out, "Imported 3 records") {
		t.Fatalf("unexpected import output %q", out)
	}
	if out := h.mustRun(t, "grid"); !before(out, "Gamma", "Alpha") {
		t.Fatalf("import not applied:\n%s", out)
	}
}

func TestRenderCommands(t *testing.T) {
	h := newHarness(t, "Alpha", "Beta")
	dir := t.TempDir()
	h.mustRun(t, "sheet", filepath.Join(dir, "sheet.pdf"))
	h.mustRun(t, "preview", "1", filepath.Join(dir, "p.svg"))
	h.mustRun(t, "preview", "1", filepath.Join(dir, "p.png"))
	for _, f := range []string{"sheet.pdf", "p.svg", "p.png"} {
		if fi, err := os.Stat(filepath.Join(dir, f)); err != nil || fi.Size() == 0 {
			t.Fatalf("%s not written: %v", f, err)
		}
	}
	svg, _ := os.ReadFile(filepath.Join(dir, "p.svg"))
	if !strings.Contains(string(svg), "<svg") {
		t.Fatalf("not an svg: %.40s", svg)
	}
	if _, err := h.run(t, "preview", "3", filepath.Join(dir, "x.png")); err == nil {
		t.Fatal("expected out of range error")
	}
	if _, err := os.Stat(filepath.Join(dir, "x.png")); !os.IsNotExist(err) {
		t.Fatal("failed preview left a file behind")
	}
}

func TestCommandErrors(t *testing.T) {
	h := newHarness(t, "Alpha", "Beta")
	if _, err := h.run(t, "move", "Nope", "Alpha"); !errors.Is(err, launcher.ErrUnknownItem) {
		t.Fatalf("expected unknown item, got %v", err)
	}
	if _, err := h.run(t, "to-page", "Alpha", "0"); err == nil {
		t.Fatal("expected invalid page error")
	}
	if _, err := h.run(t, "move", "Alpha"); err == nil {
		t.Fatal("expected argument count error")
	}
}

func TestResolveItem(t *testing.T) {
	pages := domain.Pages{{
		domain.AppItem(domain.App{ID: "aaaa1111", Name: "Mail", Path: "/Applications/Mail.app"}),
		domain.FolderItem(domain.Folder{ID: "ffff0000", Name: "Work", Apps: []domain.App{
			{ID: "bbbb2222", Name: "Notes", Path: "/Applications/Notes.app"},
			{ID: "cccc3333", Name: "mail", Path: "/Users/me/Applications/Mail.app"},
		}}),
	}}
	cases := []struct {
		ref, want string
	}{
		{"aaaa1111", "aaaa1111"},
		{"ffff", "ffff0000"},
		{"work", "ffff0000"},
		{"NOTES", "bbbb2222"},
		{"/Users/me/Applications/Mail.app", "cccc3333"},
	}
	for _, c := range cases {
		got, err := resolveItem(pages, c.ref)
		if err != nil || got != c.want {
			t.Fatalf("resolveItem(%q) = %q, %v; want %q", c.ref, got, err, c.want)
		}
	}
	if _, err := resolveItem(pages, "Mail"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("expected ambiguity error, got %v", err)
	}
	if _, err := resolveItem(pages, "Safari"); !errors.Is(err, launcher.ErrUnknownItem) {
		t.Fatalf("expected unknown item, got %v", err)
	}
}

func TestLogsGoToCommandErrorStream(t *testing.T) {
	h := newHarness(t, "Alpha")
	t.Setenv("LP_LOG_LEVEL", "debug")
	t.Setenv("LP_LOG_FORMAT", "console")
	t.Cleanup(func() { applog.Init(applog.Options{Level: "info"}) })

	var out, errOut bytes.Buffer
	a := &cliApp{out: &out, errOut: &errOut, openOpts: []launcher.OpenOption{launcher.WithRoots(h.roots...)}}
	cmd := newRootCmd(a)
	cmd.SetArgs([]string{"--data-dir", h.data, "grid"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(errOut.String(), "layout loaded") {
		t.Fatalf("log lines not on the error stream: %q", errOut.String())
	}
	if strings.Contains(out.String(), "layout loaded") {
		t.Fatalf("log lines mixed into command output: %q", out.String())
	}
}
