/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"idcardstudio/internal/domain"
	"idcardstudio/internal/storage"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "IDCardStudio Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestWriteReportCreatesFileInGuardBackups(t *testing.T) {
	root := t.TempDir()
	path, err := writeReport(&Guard{Dir: root}, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if !strings.Contains(path, filepath.Join(root, storage.BackupsDirName)) {
		t.Fatalf("expected crash report under backups dir, got %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report file missing: %v", err)
	}
}

func TestAutosaveAndLoadRecovery(t *testing.T) {
	dir := t.TempDir()
	tpl := domain.NewTemplate("Unsaved", domain.KindStudent)
	tpl.Front.Layers = []domain.Layer{domain.NewTextLayer("text_a")}
	path, err := Autosave(dir, func() *domain.Template { return tpl })
	if err != nil {
		t.Fatalf("Autosave: %v", err)
	}
	if filepath.Base(path) != RecoveryFileName {
		t.Fatalf("path = %s", path)
	}
	got, err := LoadRecovery(dir)
	if err != nil {
		t.Fatalf("LoadRecovery: %v", err)
	}
	if got.Name != "Unsaved" || len(got.Front.Layers) != 1 {
		t.Fatalf("recovered = %+v", got)
	}
	if err := ClearRecovery(dir); err != nil {
		t.Fatal(err)
	}
	if err := ClearRecovery(dir); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestAutosaveSnapshotPanics(t *testing.T) {
	_, err := Autosave(t.TempDir(), func() *domain.Template { panic("corrupt") })
	if err == nil || !strings.Contains(err.Error(), "corrupt") {
		t.Fatalf("err = %v", err)
	}
}
