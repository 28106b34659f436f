/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"idcardstudio/internal/domain"
)

func TestWriteTemplateFileCreatesBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "card.json")
	tpl := domain.NewTemplate("Card", domain.KindStudent)
	if err := WriteTemplateFile(path, tpl); err != nil {
		t.Fatalf("first write: %v", err)
	}
	tpl.Name = "Card v2"
	if err := WriteTemplateFile(path, tpl); err != nil {
		t.Fatalf("second write: %v", err)
	}
	ents, err := os.ReadDir(filepath.Join(dir, BackupsDirName))
	if err != nil {
		t.Fatalf("read backups dir: %v", err)
	}
	var baks int
	for _, e := range ents {
		if strings.HasPrefix(e.Name(), "card.json.") && strings.HasSuffix(e.Name(), ".bak") {
			baks++
		}
	}
	if baks != 1 {
		t.Fatalf("backups = %d, want 1", baks)
	}
	got, err := ReadTemplateFile(path)
	if err != nil || got.Name != "Card v2" {
		t.Fatalf("read = %v %v", got, err)
	}
}

func TestReadTemplateFileFallsBackToBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "card.json")
	tpl := domain.NewTemplate("Good", domain.KindTeacher)
	if err := WriteTemplateFile(path, tpl); err != nil {
		t.Fatal(err)
	}
	if err := WriteTemplateFile(path, tpl); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadTemplateFile(path)
	if err != nil {
		t.Fatalf("fallback failed: %v", err)
	}
	if got.Name != "Good" {
		t.Fatalf("name = %q", got.Name)
	}
}

func TestReadTemplateFileNoBackup(t *testing.T) {
	if _, err := ReadTemplateFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error")
	}
}
