/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeSnap struct {
	path  string
	err   error
	calls int
}

func (f *fakeSnap) CrashSnapshot() (string, error) {
	f.calls++
	return f.path, f.err
}

func captureExit(t *testing.T) (*int, *bytes.Buffer) {
	t.Helper()
	code := -1
	oldExit, oldErr := exitFn, stderr
	var out bytes.Buffer
	exitFn = func(c int) { code = c }
	stderr = &out
	t.Cleanup(func() { exitFn, stderr = oldExit, oldErr })
	return &code, &out
}

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport("", "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "golaunchpad crash report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") || !strings.Contains(s, "stacktrace") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestRecoverWritesReportAndSnapshot(t *testing.T) {
	code, out := captureExit(t)
	dir := t.TempDir()
	snap := &fakeSnap{path: "/data/backups/crash.layout.json"}

	func() {
		defer Recover(dir, snap)
		panic("boom")
	}()

	if *code != 2 {
		t.Fatalf("exit code = %d, want 2", *code)
	}
	if snap.calls != 1 {
		t.Fatalf("snapshot calls = %d", snap.calls)
	}
	files, _ := filepath.Glob(filepath.Join(dir, "crash-*.log"))
	if len(files) != 1 {
		t.Fatalf("reports = %v", files)
	}
	b, _ := os.ReadFile(files[0])
	if !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s", string(b))
	}
	if !strings.Contains(out.String(), snap.path) || !strings.Contains(out.String(), files[0]) {
		t.Fatalf("message = %q", out.String())
	}
}

func TestRecoverSurvivesSnapshotFailure(t *testing.T) {
	code, out := captureExit(t)
	snap := &fakeSnap{err: errors.New("disk full")}
	func() {
		defer Recover(t.TempDir(), snap)
		panic(errors.New("bad state"))
	}()
	if *code != 2 || snap.calls != 1 {
		t.Fatalf("code = %d calls = %d", *code, snap.calls)
	}
	if strings.Contains(out.String(), "layout was saved") {
		t.Fatalf("unexpected save message: %q", out.String())
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	code, _ := captureExit(t)
	snap := &fakeSnap{}
	func() {
		defer Recover(t.TempDir(), snap)
	}()
	if *code != -1 || snap.calls != 0 {
		t.Fatalf("code = %d calls = %d", *code, snap.calls)
	}
}
