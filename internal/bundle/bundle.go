/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package bundle packs a template and the local images it references into a
// single .zip so it can be moved between installations.
package bundle

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"idcardstudio/internal/domain"
	applog "idcardstudio/internal/log"
)

const (
	Format        = "idcardstudio-bundle"
	FormatVersion = 1
	ManifestName  = "manifest.json"
	TemplateName  = "template.json"
	AssetsPrefix  = "assets/"
)

// ErrInvalidBundle is returned when an archive lacks the manifest or template.
var ErrInvalidBundle = errors.New("invalid template bundle")

// Manifest describes the bundle contents.
type Manifest struct {
	Format      string             `json:"format"`
	Version     int                `json:"version"`
	Name        string             `json:"templateName"`
	Kind        domain.Kind        `json:"templateType"`
	SchoolLevel domain.SchoolLevel `json:"schoolLevel"`
	Created     time.Time          `json:"created"`
	Assets      []string           `json:"assets"`
}

// Assets maps image sources to files on disk: a source starting with PublicURL
// lives under Dir. Local uploads use the same pair.
type Assets struct {
	Dir       string
	PublicURL string
}

// file returns the local path for src, or false when src is not a local asset.
func (a Assets) file(src string) (string, bool) {
	if src == "" || strings.HasPrefix(src, "data:") || strings.Contains(src, "://") {
		return "", false
	}
	if a.PublicURL != "" && strings.HasPrefix(src, a.PublicURL) {
		rel := strings.TrimPrefix(strings.TrimPrefix(src, a.PublicURL), "/")
		return filepath.Join(a.Dir, filepath.FromSlash(rel)), true
	}
	if filepath.IsAbs(src) {
		return src, true
	}
	return "", false
}

func (a Assets) url(name string) string {
	if a.PublicURL == "" {
		return filepath.Join(a.Dir, name)
	}
	return strings.TrimRight(a.PublicURL, "/") + "/" + name
}

// sources calls fn with a pointer to every static image reference in t.
func sources(t *domain.Template, fn func(src *string)) {
	fn(&t.Canvas.BackgroundImage)
	for _, s := range []*domain.Side{&t.Front, &t.Back} {
		fn(&s.BackgroundImage)
		for _, l := range s.Layers {
			if img, ok := l.(*domain.ImageLayer); ok {
				fn(&img.Src)
			}
		}
	}
}

// Export writes tpl and its local images to destZipPath. Missing images are
// left as plain references and logged.
func Export(tpl *domain.Template, destZipPath string, assets Assets) (Manifest, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "export").With(slog.String("zip", destZipPath))
	if tpl == nil {
		return Manifest{}, errors.New("template is required")
	}
	if strings.TrimSpace(destZipPath) == "" {
		return Manifest{}, errors.New("destZipPath is required")
	}
	t := tpl.Clone()
	t.ID = nil
	t.IsActive = false

	type entry struct{ name, path string }
	var files []entry
	seen := map[string]string{}
	sources(t, func(src *string) {
		p, ok := assets.file(*src)
		if !ok {
			return
		}
		if name, dup := seen[p]; dup {
			*src = AssetsPrefix + name
			return
		}
		if _, err := os.Stat(p); err != nil {
			l.Warn("asset missing", slog.String("src", *src), slog.Any("err", err))
			return
		}
		name := fmt.Sprintf("%02d-%s", len(files)+1, filepath.Base(p))
		seen[p] = name
		files = append(files, entry{name: name, path: p})
		*src = AssetsPrefix + name
	})

	m := Manifest{
		Format:      Format,
		Version:     FormatVersion,
		Name:        t.Name,
		Kind:        t.Kind,
		SchoolLevel: t.SchoolLevel,
		Created:     time.Now().UTC(),
		Assets:      make([]string, 0, len(files)),
	}
	for _, f := range files {
		m.Assets = append(m.Assets, f.name)
	}

	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return Manifest{}, fmt.Errorf("ensure zip dir: %w", err)
	}
	zf, err := os.Create(destZipPath)
	if err != nil {
		return Manifest{}, fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	if err := writeJSON(zw, ManifestName, m); err != nil {
		return Manifest{}, err
	}
	body, err := domain.Marshal(t)
	if err != nil {
		return Manifest{}, err
	}
	if err := writeEntry(zw, TemplateName, strings.NewReader(string(body))); err != nil {
		return Manifest{}, err
	}
	for _, f := range files {
		if err := copyIn(zw, AssetsPrefix+f.name, f.path); err != nil {
			l.Error("zip build failed", slog.Any("err", err))
			return Manifest{}, fmt.Errorf("build zip: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return Manifest{}, fmt.Errorf("close zip: %w", err)
	}
	l.Info("bundle exported", slog.String("template", t.Name), slog.Int("assets", len(files)))
	return m, nil
}

func writeJSON(zw *zip.Writer, name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeEntry(zw, name, strings.NewReader(string(b)))
}

func writeEntry(zw *zip.Writer, name string, r io.Reader) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func copyIn(zw *zip.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return writeEntry(zw, name, f)
}

// Import reads a bundle, installs its images under assets.Dir and returns the
// validated template with image references pointing at the installed files.
// Existing files are not overwritten. The template has no id and is inactive.
func Import(srcZipPath string, assets Assets) (*domain.Template, Manifest, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "import").With(slog.String("zip", srcZipPath))
	r, err := zip.OpenReader(srcZipPath)
	if err != nil {
		return nil, Manifest{}, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = r.Close() }()

	var (
		m        Manifest
		body     []byte
		haveMan  bool
		assetZip = map[string]*zip.File{}
	)
	for _, f := range r.File {
		switch {
		case f.Name == ManifestName:
			b, err := readAll(f)
			if err != nil {
				return nil, Manifest{}, err
			}
			if err := json.Unmarshal(b, &m); err != nil {
				return nil, Manifest{}, fmt.Errorf("%w: manifest: %v", ErrInvalidBundle, err)
			}
			haveMan = true
		case f.Name == TemplateName:
			if body, err = readAll(f); err != nil {
				return nil, Manifest{}, err
			}
		case strings.HasPrefix(f.Name, AssetsPrefix) && !f.FileInfo().IsDir():
			name := path.Base(f.Name)
			if name == "." || name == "/" || name == ".." {
				continue
			}
			assetZip[name] = f
		}
	}
	if !haveMan || m.Format != Format {
		return nil, Manifest{}, fmt.Errorf("%w: missing manifest", ErrInvalidBundle)
	}
	if m.Version > FormatVersion {
		return nil, Manifest{}, fmt.Errorf("%w: version %d is newer than %d", ErrInvalidBundle, m.Version, FormatVersion)
	}
	if body == nil {
		return nil, Manifest{}, fmt.Errorf("%w: missing %s", ErrInvalidBundle, TemplateName)
	}
	tpl, err := domain.Parse(body)
	if err != nil {
		return nil, Manifest{}, err
	}
	tpl.ID = nil
	tpl.IsActive = false

	if len(assetZip) > 0 {
		if err := os.MkdirAll(assets.Dir, 0o755); err != nil {
			return nil, Manifest{}, fmt.Errorf("ensure assets dir: %w", err)
		}
	}
	installed := 0
	var ierr error
	sources(tpl, func(src *string) {
		if ierr != nil || !strings.HasPrefix(*src, AssetsPrefix) {
			return
		}
		name := path.Base(*src)
		f, ok := assetZip[name]
		if !ok {
			l.Warn("asset not in bundle", slog.String("src", *src))
			return
		}
		target := filepath.Join(assets.Dir, name)
		if _, err := os.Stat(target); err != nil {
			if ierr = extract(f, target); ierr != nil {
				return
			}
			installed++
		} else {
			l.Warn("skip existing file", slog.String("path", target))
		}
		*src = assets.url(name)
	})
	if ierr != nil {
		return nil, Manifest{}, fmt.Errorf("install assets: %w", ierr)
	}
	l.Info("bundle imported", slog.String("template", tpl.Name), slog.Int("assets", installed))
	return tpl, m, nil
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(io.LimitReader(rc, 32<<20))
}

func extract(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
