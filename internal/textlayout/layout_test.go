/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"math"
	"testing"
)

func basicParams(size float64) Params {
	return Params{Font: FontSpec{Size: size}, LineHeight: 1.2}
}

func TestWordWrapBreaksOnSpaces(t *testing.T) {
	prm := basicParams(13)
	prm.WordWrap = true
	prm.BoxWidth = 50
	b := Layout(BasicProvider{}, "Hello world from Go", prm)
	if len(b.Lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(b.Lines))
	}
	for _, ln := range b.Lines {
		if ln.Width > 50 && len(ln.Text) > 5 {
			t.Fatalf("line %q exceeds wrap width: %v", ln.Text, ln.Width)
		}
	}
	if b.Height != float64(len(b.Lines))*13*1.2 {
		t.Fatalf("unexpected block height %v", b.Height)
	}
}

func TestNoWrapKeepsSingleLine(t *testing.T) {
	prm := basicParams(13)
	prm.BoxWidth = 20
	b := Layout(BasicProvider{}, "JUAN DELA CRUZ", prm)
	if len(b.Lines) != 1 || b.Lines[0].Text != "JUAN DELA CRUZ" {
		t.Fatalf("expected a single overflowing line, got %+v", b.Lines)
	}
	if b.Lines[0].Width != 14*7 {
		t.Fatalf("basic face should be 7px per rune, got %v", b.Lines[0].Width)
	}
}

func TestNewlinesAlwaysBreak(t *testing.T) {
	b := Layout(BasicProvider{}, "Grade 10\nSection Rizal", basicParams(13))
	if len(b.Lines) != 2 || b.Lines[1].Text != "Section Rizal" {
		t.Fatalf("unexpected lines %+v", b.Lines)
	}
	if b.Lines[1].Baseline <= b.Lines[0].Baseline {
		t.Fatalf("baselines must increase")
	}
}

func TestMaxWidthOverridesBox(t *testing.T) {
	prm := basicParams(13)
	prm.WordWrap = true
	prm.BoxWidth = 500
	prm.MaxWidth = 40
	b := Layout(BasicProvider{}, "aaa bbb ccc", prm)
	if len(b.Lines) != 3 {
		t.Fatalf("expected 3 lines within maxWidth, got %d", len(b.Lines))
	}
}

func TestAlignmentOffsets(t *testing.T) {
	for _, c := range []struct {
		align string
		x     float64
	}{{"left", 0}, {"center", 30}, {"right", 60}} {
		prm := basicParams(13)
		prm.Align = c.align
		prm.BoxWidth = 88
		b := Layout(BasicProvider{}, "ABCD", prm)
		if b.Lines[0].X != c.x {
			t.Fatalf("%s: x=%v want %v", c.align, b.Lines[0].X, c.x)
		}
	}
}

func TestJustifySpreadsAllButLastLine(t *testing.T) {
	prm := basicParams(13)
	prm.Align = "justify"
	prm.WordWrap = true
	prm.BoxWidth = 80
	b := Layout(BasicProvider{}, "aa bb cc dd ee ff", prm)
	if len(b.Lines) < 2 {
		t.Fatalf("expected wrapped lines")
	}
	first, last := b.Lines[0], b.Lines[len(b.Lines)-1]
	if first.WordSpacing <= 0 || first.Width != 80 {
		t.Fatalf("first line not justified: %+v", first)
	}
	if last.WordSpacing != 0 {
		t.Fatalf("last line must stay ragged: %+v", last)
	}
}

func TestLetterSpacingAndScaling(t *testing.T) {
	w13 := Measure(BasicProvider{}, FontSpec{Size: 13}, "ABC")
	w26 := Measure(BasicProvider{}, FontSpec{Size: 26}, "ABC")
	if w26 != 2*w13 {
		t.Fatalf("expected linear scaling, got %v vs %v", w13, w26)
	}
	prm := basicParams(13)
	prm.LetterSpacing = 2
	b := Layout(BasicProvider{}, "ABC", prm)
	if b.Lines[0].Width != w13+6 {
		t.Fatalf("letter spacing not applied: %v", b.Lines[0].Width)
	}
}

func TestParseWeight(t *testing.T) {
	for in, want := range map[string]int{"": 400, "normal": 400, "bold": 700, "300": 300, "950": 400, "x": 400} {
		if got := ParseWeight(in); got != want {
			t.Errorf("ParseWeight(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestOTProviderUsesGoFonts(t *testing.T) {
	p := OTProvider{Lib: NewDefaultLibrary()}
	reg := p.Resolve(FontSpec{Family: "Arial", Size: 32, Weight: 400}).Advance("Identification")
	bold := p.Resolve(FontSpec{Family: "go", Size: 32, Weight: 700}).Advance("Identification")
	if reg <= 0 || bold <= reg {
		t.Fatalf("expected bold wider than regular: %v vs %v", bold, reg)
	}
	big := p.Resolve(FontSpec{Family: "Go", Size: 64}).Advance("Identification")
	if math.Abs(big-2*reg) > 4 {
		t.Fatalf("expected roughly double width at double size: %v vs %v", big, reg)
	}
	m := p.Resolve(FontSpec{Size: 32}).Metrics()
	if m.Ascent <= 0 || m.Descent <= 0 {
		t.Fatalf("bad metrics %+v", m)
	}
}

func TestOTProviderFallsBack(t *testing.T) {
	p := OTProvider{Lib: NewFontLibrary()}
	if got := p.Resolve(FontSpec{Family: "Missing", Size: 13}).Advance("AB"); got != 14 {
		t.Fatalf("expected basicfont fallback width 14, got %v", got)
	}
	var nilLib OTProvider
	if got := nilLib.Resolve(FontSpec{Size: 13}).Advance("A"); got != 7 {
		t.Fatalf("nil library should fall back, got %v", got)
	}
	if err := NewFontLibrary().Register("bad", false, false, []byte("nope")); err == nil {
		t.Fatalf("expected parse error")
	}
}
