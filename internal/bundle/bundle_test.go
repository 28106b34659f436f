/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package bundle

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"idcardstudio/internal/domain"
)

func TestExportAndImportBundle(t *testing.T) {
	srcDir := t.TempDir()
	up := filepath.Join(srcDir, "uploads")
	if err := os.MkdirAll(filepath.Join(up, "2025", "03"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(up, "2025", "03", "logo.png"), []byte("PNGDATA"), 0o644); err != nil {
		t.Fatal(err)
	}
	tpl := domain.NewTemplate("Bundled", domain.KindTeacher)
	id := int64(4)
	tpl.ID = &id
	tpl.IsActive = true
	tpl.Back.BackgroundImage = "/uploads/2025/03/logo.png"
	logo := domain.NewImageLayer("image_logo")
	logo.Field = ""
	logo.Src = "/uploads/2025/03/logo.png"
	remote := domain.NewImageLayer("image_remote")
	remote.Field = ""
	remote.Src = "https://cdn.example.com/seal.png"
	tpl.Front.Layers = []domain.Layer{logo, remote}

	zipPath := filepath.Join(srcDir, "out", "bundle.zip")
	m, err := Export(tpl, zipPath, Assets{Dir: up, PublicURL: "/uploads"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(m.Assets) != 1 || m.Kind != domain.KindTeacher {
		t.Fatalf("manifest = %+v", m)
	}
	if tpl.Front.Layers[0].(*domain.ImageLayer).Src != "/uploads/2025/03/logo.png" {
		t.Fatalf("Export mutated its input")
	}

	dstDir := t.TempDir()
	got, m2, err := Import(zipPath, Assets{Dir: filepath.Join(dstDir, "media"), PublicURL: "/media/"})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if m2.Name != "Bundled" || got.ID != nil || got.IsActive {
		t.Fatalf("imported = %+v id=%v active=%v", m2, got.ID, got.IsActive)
	}
	src := got.Front.Layers[0].(*domain.ImageLayer).Src
	if !strings.HasPrefix(src, "/media/") || got.Back.BackgroundImage != src {
		t.Fatalf("srcs = %q / %q", src, got.Back.BackgroundImage)
	}
	if got.Front.Layers[1].(*domain.ImageLayer).Src != "https://cdn.example.com/seal.png" {
		t.Fatalf("remote src rewritten")
	}
	data, err := os.ReadFile(filepath.Join(dstDir, "media", strings.TrimPrefix(src, "/media/")))
	if err != nil || string(data) != "PNGDATA" {
		t.Fatalf("installed asset = %q %v", data, err)
	}
}

func TestImportRejectsForeignZip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x.zip")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("readme.txt")
	_, _ = w.Write([]byte("hi"))
	_ = zw.Close()
	_ = f.Close()
	if _, _, err := Import(p, Assets{Dir: t.TempDir()}); !errors.Is(err, ErrInvalidBundle) {
		t.Fatalf("err = %v, want ErrInvalidBundle", err)
	}
}
