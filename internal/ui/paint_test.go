/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"idcardstudio/internal/domain"
	"idcardstudio/internal/render"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	black = color.NRGBA{A: 255}
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

func TestShapePainterRectangleStroke(t *testing.T) {
	p := shapePainter(&render.ShapeElement{Shape: domain.ShapeRectangle, Fill: "#ff0000", Stroke: "#0000ff", StrokeWidth: 2}, 100, 50)
	if got := p(1, 25); got != blue {
		t.Fatalf("edge should be stroke, got %v", got)
	}
	if got := p(50, 25); got != red {
		t.Fatalf("center should be fill, got %v", got)
	}
	if got := p(101, 25); got != transparent {
		t.Fatalf("outside should be transparent, got %v", got)
	}
}

func TestShapePainterRoundedCorner(t *testing.T) {
	p := shapePainter(&render.ShapeElement{Shape: domain.ShapeRectangle, Fill: "#ff0000", BorderRadius: 20}, 100, 100)
	if got := p(1, 1); got != transparent {
		t.Fatalf("rounded corner should be clipped, got %v", got)
	}
	if got := p(20, 20); got != red {
		t.Fatalf("inside corner arc should be filled, got %v", got)
	}
}

func TestShapePainterCircleAndLine(t *testing.T) {
	c := shapePainter(&render.ShapeElement{Shape: domain.ShapeCircle, Fill: "#ff0000"}, 100, 100)
	if c(50, 50) != red || c(2, 2) != transparent {
		t.Fatalf("circle should fill only the inscribed ellipse")
	}
	l := shapePainter(&render.ShapeElement{Shape: domain.ShapeLine, Fill: "#ff0000", Stroke: "#0000ff", StrokeWidth: 4}, 100, 40)
	if l(50, 20) != blue || l(50, 23) != transparent {
		t.Fatalf("line should be a centered band of stroke width")
	}
	noStroke := shapePainter(&render.ShapeElement{Shape: domain.ShapeLine, Fill: "#ff0000"}, 100, 40)
	if noStroke(50, 1) != red {
		t.Fatalf("line without stroke should use fill over the full height")
	}
}

func TestQRPainterCentersModules(t *testing.T) {
	q := &render.QRElement{
		Foreground: "#000000",
		Background: "#ffffff",
		Modules:    [][]bool{{true, false}, {false, true}},
		Size:       2,
	}
	// 200×100 box: 100-unit square centered, 50-unit cells starting at x=50
	p := qrPainter(q, 200, 100)
	if got := p(60, 10); got != black {
		t.Fatalf("top-left module should be dark, got %v", got)
	}
	if got := p(110, 10); got != white {
		t.Fatalf("top-right module should be light, got %v", got)
	}
	if got := p(10, 10); got != white {
		t.Fatalf("margin should be background, got %v", got)
	}
}

func TestFitRect(t *testing.T) {
	cases := []struct {
		fit          domain.ObjectFit
		x, y, dw, dh float64
	}{
		{domain.FitFill, 0, 0, 100, 100},
		{domain.FitContain, 0, 25, 100, 50},
		{domain.FitCover, -50, 0, 200, 100},
		{domain.FitNone, 10, 35, 80, 30},
	}
	for _, c := range cases {
		var iw, ih float64 = 200, 100
		if c.fit == domain.FitNone {
			iw, ih = 80, 30
		}
		x, y, dw, dh := fitRect(c.fit, iw, ih, 100, 100)
		if x != c.x || y != c.y || dw != c.dw || dh != c.dh {
			t.Fatalf("%s: got (%v,%v,%v,%v), want (%v,%v,%v,%v)", c.fit, x, y, dw, dh, c.x, c.y, c.dw, c.dh)
		}
	}
}

func TestImagePainterSamplesAndBorders(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, red)
	img.Set(1, 0, blue)
	el := &render.ImageElement{ObjectFit: domain.FitFill, Border: &domain.Border{Width: 5, Color: "#000000"}}
	p := imagePainter(el, img, 100, 100)
	if got := p(25, 50); got != red {
		t.Fatalf("left half should sample the first pixel, got %v", got)
	}
	if got := p(75, 50); got != blue {
		t.Fatalf("right half should sample the second pixel, got %v", got)
	}
	if got := p(2, 50); got != black {
		t.Fatalf("border should be painted inside the box, got %v", got)
	}
	placeholder := imagePainter(&render.ImageElement{Dynamic: true}, nil, 100, 100)
	if got := placeholder(10, 60); got != placeholderFill {
		t.Fatalf("dynamic image should paint the placeholder, got %v", got)
	}
}

func TestImageCacheRemembersFailures(t *testing.T) {
	calls := 0
	c := &imageCache{images: map[string]image.Image{}, open: func(string) (image.Image, error) {
		calls++
		return nil, errors.New("missing")
	}}
	if c.get("a.png") != nil || c.get("a.png") != nil {
		t.Fatalf("expected nil image for failed source")
	}
	if calls != 1 {
		t.Fatalf("expected one open attempt, got %d", calls)
	}
	if c.get("") != nil || calls != 1 {
		t.Fatalf("empty source should not be opened")
	}
}

func TestFade(t *testing.T) {
	if got := fade(red, 0.5); got.A != 128 {
		t.Fatalf("expected alpha 128, got %d", got.A)
	}
	if got := fade(red, 1); got != red {
		t.Fatalf("opacity 1 should keep the color")
	}
}
