/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and breaks card text into positioned lines.
// Measurement sits behind Provider so tests can use the fixed basicfont face
// while previews use real OpenType faces.
package textlayout

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font. Size is in canvas pixels.
type FontSpec struct {
	Family string
	Size   float64
	Weight int // 100..900
	Italic bool
}

// ParseWeight maps CSS weights ("normal", "bold", "100".."900") to a numeric weight.
func ParseWeight(s string) int {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return 400
	case "bold":
		return 700
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 100 && n <= 900 {
		return n
	}
	return 400
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// Face measures strings in pixels.
type Face interface {
	Advance(s string) float64
	Metrics() Metrics
}

// Provider maps a FontSpec to a measuring Face.
type Provider interface {
	Resolve(FontSpec) Face
}

// drawerFace adapts a font.Face, scaling its measurements by scale.
type drawerFace struct {
	face  font.Face
	scale float64
}

func (f drawerFace) Advance(s string) float64 {
	d := font.Drawer{Face: f.face}
	return float64(d.MeasureString(s)) / 64 * f.scale
}

func (f drawerFace) Metrics() Metrics {
	m := f.face.Metrics()
	asc := float64(m.Ascent) / 64
	desc := float64(m.Descent) / 64
	h := float64(m.Height) / 64
	return Metrics{Ascent: asc * f.scale, Descent: desc * f.scale, LineGap: math.Max(0, h-asc-desc) * f.scale}
}

// BasicProvider uses x/image/basicfont Face7x13 scaled to the requested size.
// It is deterministic and needs no font files.
type BasicProvider struct{}

func (BasicProvider) Resolve(spec FontSpec) Face {
	size := spec.Size
	if size <= 0 {
		size = 13
	}
	return drawerFace{face: basicfont.Face7x13, scale: size / 13}
}

// Params controls the layout of one text block.
type Params struct {
	Font          FontSpec
	Align         string  // left, center, right, justify
	LineHeight    float64 // multiple of the font size; 1.2 when zero
	LetterSpacing float64 // pixels added after every rune
	WordWrap      bool
	MaxWidth      float64 // wrap width; BoxWidth when zero
	BoxWidth      float64 // width lines are aligned within
}

// Line is one laid out line. X is the offset from the box left edge and
// Baseline the offset from the box top. WordSpacing is extra space per gap (justify).
type Line struct {
	Text        string
	Width       float64
	X           float64
	Baseline    float64
	WordSpacing float64
}

// Block is the result of Layout.
type Block struct {
	Lines       []Line
	Width       float64
	Height      float64
	LineAdvance float64
	Metrics     Metrics
}

// Layout breaks text into lines. Explicit newlines always break; with WordWrap,
// lines are also broken greedily on spaces so they fit the wrap width. A single
// word wider than the wrap width stays on its own line.
func Layout(p Provider, text string, prm Params) Block {
	if p == nil {
		p = BasicProvider{}
	}
	face := p.Resolve(prm.Font)
	size := prm.Font.Size
	if size <= 0 {
		size = 13
	}
	lh := prm.LineHeight
	if lh <= 0 {
		lh = 1.2
	}
	met := face.Metrics()
	adv := size * lh
	measure := func(s string) float64 {
		return face.Advance(s) + prm.LetterSpacing*float64(utf8.RuneCountInString(s))
	}

	wrapW := prm.MaxWidth
	if wrapW <= 0 {
		wrapW = prm.BoxWidth
	}
	type rawLine struct {
		text string
		last bool // last line of its paragraph
	}
	var raws []rawLine
	for _, para := range strings.Split(text, "\n") {
		if !prm.WordWrap || wrapW <= 0 {
			raws = append(raws, rawLine{text: para, last: true})
			continue
		}
		words := strings.Fields(para)
		if len(words) == 0 {
			raws = append(raws, rawLine{text: "", last: true})
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			cand := cur + " " + w
			if measure(cand) > wrapW {
				raws = append(raws, rawLine{text: cur})
				cur = w
				continue
			}
			cur = cand
		}
		raws = append(raws, rawLine{text: cur, last: true})
	}

	box := prm.BoxWidth
	block := Block{LineAdvance: adv, Metrics: met}
	halfLeading := (adv - (met.Ascent + met.Descent)) / 2
	for i, r := range raws {
		w := measure(r.text)
		ln := Line{Text: r.text, Width: w, Baseline: float64(i)*adv + halfLeading + met.Ascent}
		if box > 0 {
			switch prm.Align {
			case "center":
				ln.X = (box - w) / 2
			case "right":
				ln.X = box - w
			case "justify":
				if gaps := strings.Count(r.text, " "); gaps > 0 && !r.last && box > w {
					ln.WordSpacing = (box - w) / float64(gaps)
					ln.Width = box
				}
			}
		}
		if ln.Width > block.Width {
			block.Width = ln.Width
		}
		block.Lines = append(block.Lines, ln)
	}
	block.Height = float64(len(block.Lines)) * adv
	return block
}

// Measure returns the single-line advance width of s for spec.
func Measure(p Provider, spec FontSpec, s string) float64 {
	if p == nil {
		p = BasicProvider{}
	}
	return p.Resolve(spec).Advance(s)
}
