/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontLibrary stores parsed OpenType fonts by family, weight bucket and style.
// Family lookups are case-insensitive; unknown families resolve to Default.
type FontLibrary struct {
	mu      sync.RWMutex
	fonts   map[fontKey]*opentype.Font
	faces   map[faceKey]font.Face
	Default string
}

type fontKey struct {
	family string
	bold   bool
	italic bool
}

type faceKey struct {
	fontKey
	size float64
}

func NewFontLibrary() *FontLibrary {
	return &FontLibrary{fonts: make(map[fontKey]*opentype.Font), faces: make(map[faceKey]font.Face)}
}

// NewDefaultLibrary returns a library preloaded with the Go fonts under family "Go",
// which also serves as the default for families that are not loaded.
func NewDefaultLibrary() *FontLibrary {
	fl := NewFontLibrary()
	for _, f := range []struct {
		data         []byte
		bold, italic bool
	}{
		{goregular.TTF, false, false},
		{gobold.TTF, true, false},
		{goitalic.TTF, false, true},
	} {
		// the embedded Go fonts always parse
		_ = fl.Register("Go", f.bold, f.italic, f.data)
	}
	fl.Default = "Go"
	return fl
}

// Register parses font data and stores it under family.
func (fl *FontLibrary) Register(family string, bold, italic bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]*opentype.Font)
		fl.faces = make(map[faceKey]font.Face)
	}
	fl.fonts[fontKey{family: strings.ToLower(family), bold: bold, italic: italic}] = f
	return nil
}

// LoadTTF loads a font file into the library.
func (fl *FontLibrary) LoadTTF(family string, weight int, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	return fl.Register(family, weight >= 600, italic, data)
}

// Families lists the loaded family names.
func (fl *FontLibrary) Families() []string {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for k := range fl.fonts {
		if !seen[k.family] {
			seen[k.family] = true
			out = append(out, k.family)
		}
	}
	return out
}

func (fl *FontLibrary) find(spec FontSpec) (fontKey, *opentype.Font) {
	want := fontKey{family: strings.ToLower(spec.Family), bold: spec.Weight >= 600, italic: spec.Italic}
	candidates := []fontKey{
		want,
		{family: want.family, bold: want.bold},
		{family: want.family},
	}
	if fl.Default != "" {
		def := strings.ToLower(fl.Default)
		candidates = append(candidates,
			fontKey{family: def, bold: want.bold, italic: want.italic},
			fontKey{family: def, bold: want.bold},
			fontKey{family: def})
	}
	for _, k := range candidates {
		if f, ok := fl.fonts[k]; ok {
			return k, f
		}
	}
	return fontKey{}, nil
}

func (fl *FontLibrary) face(spec FontSpec, dpi float64) font.Face {
	if fl == nil {
		return nil
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	k, f := fl.find(spec)
	if f == nil {
		return nil
	}
	fk := faceKey{fontKey: k, size: spec.Size}
	if face, ok := fl.faces[fk]; ok {
		return face
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: spec.Size, DPI: dpi, Hinting: font.HintingNone})
	if err != nil {
		return nil
	}
	fl.faces[fk] = face
	return face
}

// OTProvider resolves FontSpec using a FontLibrary and falls back to another Provider.
// Sizes are pixels, so faces are built at 72 DPI unless DPI says otherwise.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) Face {
	if spec.Size <= 0 {
		spec.Size = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if face := p.Lib.face(spec, dpi); face != nil {
		return drawerFace{face: face, scale: 1}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}
