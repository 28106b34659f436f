/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes rendered card frames as SVG previews, a PDF proof and
// QR code images. Layout comes from render.Frame; nothing here rasterizes text.
package export

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"idcardstudio/internal/render"
	"idcardstudio/internal/storage"
)

// CardDPI is the resolution canvas units are defined at.
const CardDPI = 300

// ParseColor reads #rgb, #rrggbb and #rrggbbaa. Empty, "none" and "transparent" report false.
func ParseColor(s string) (color.RGBA, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", "none", "transparent":
		return color.RGBA{}, false
	}
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) == 6 {
		s += "ff"
	}
	if len(s) != 8 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	c := color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	return c, c.A > 0
}

// orColor parses s, falling back to def when s is not a usable color.
func orColor(s string, def color.RGBA) color.RGBA {
	if c, ok := ParseColor(s); ok {
		return c
	}
	return def
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// WriteSVGFiles writes one SVG per frame as <base>-<side>.svg under dir and returns the paths.
func WriteSVGFiles(dir, base string, frames ...render.Frame) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	var paths []string
	for _, f := range frames {
		data, err := SVG(f)
		if err != nil {
			return paths, err
		}
		p := filepath.Join(dir, fmt.Sprintf("%s-%s.svg", base, f.Side))
		if err := storage.WriteFileAtomic(p, data); err != nil {
			return paths, fmt.Errorf("write svg: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
