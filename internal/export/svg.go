/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"idcardstudio/internal/domain"
	"idcardstudio/internal/render"
)

// SVG renders one frame. The viewBox is in canvas units; width and height are
// the same numbers in px so browsers show the card at 1:1.
func SVG(f render.Frame) ([]byte, error) {
	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" xmlns:xlink=\"http://www.w3.org/1999/xlink\" version=\"1.1\" width=\"%gpx\" height=\"%gpx\" viewBox=\"0 0 %g %g\">\n", f.Width, f.Height, f.Width, f.Height)
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n", f.Width, f.Height, svgPaint(f.Background, "#ffffff"))
	if f.BackgroundImage != "" {
		wf("  <image x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" preserveAspectRatio=\"xMidYMid slice\" xlink:href=\"%s\"/>\n", f.Width, f.Height, escAttr(f.BackgroundImage))
	}

	for _, el := range f.Elements {
		wf("  <g id=\"%s\"%s>\n", escAttr(el.LayerID), groupAttrs(el))
		switch {
		case el.Text != nil:
			svgText(wf, el)
		case el.Image != nil:
			svgImage(wf, el)
		case el.Shape != nil:
			svgShape(wf, el)
		case el.QR != nil:
			svgQR(wf, el)
		}
		wf("  </g>\n")
	}
	wf("</svg>\n")

	if werr != nil {
		return nil, fmt.Errorf("build svg: %w", werr)
	}
	return buf.Bytes(), nil
}

type writeFunc func(format string, args ...any)

// groupAttrs returns the rotation about the element center and its opacity.
func groupAttrs(el render.Element) string {
	var b strings.Builder
	if el.Rotation != 0 {
		fmt.Fprintf(&b, " transform=\"rotate(%g %g %g)\"", el.Rotation, el.X+el.Width/2, el.Y+el.Height/2)
	}
	if el.Opacity < 1 {
		fmt.Fprintf(&b, " opacity=\"%g\"", math.Max(0, el.Opacity))
	}
	return b.String()
}

func svgText(wf writeFunc, el render.Element) {
	t := el.Text
	family := t.FontFamily
	if family == "" {
		family = "Arial"
	}
	attrs := fmt.Sprintf("font-family=\"%s, sans-serif\" font-size=\"%g\" font-weight=\"%d\"", escAttr(family), t.FontSize, t.FontWeight)
	if t.Decoration != "" {
		attrs += fmt.Sprintf(" text-decoration=\"%s\"", escAttr(t.Decoration))
	}
	lines := func(dx, dy float64, fill string) {
		wf("    <text %s fill=\"%s\" xml:space=\"preserve\">", attrs, fill)
		for _, ln := range t.Lines {
			wf("<tspan x=\"%g\" y=\"%g\"", el.X+ln.X+dx, el.Y+ln.Baseline+dy)
			if ln.WordSpacing > 0 {
				wf(" word-spacing=\"%g\"", ln.WordSpacing)
			}
			wf(">%s</tspan>", escText(ln.Text))
		}
		wf("</text>\n")
	}
	if s := t.Shadow; s != nil {
		lines(s.OffsetX, s.OffsetY, svgPaint(s.Color, "#000000"))
	}
	lines(0, 0, svgPaint(t.Color, "#000000"))
}

func aspectFor(fit domain.ObjectFit) string {
	switch fit {
	case domain.FitContain:
		return "xMidYMid meet"
	case domain.FitFill:
		return "none"
	case domain.FitNone:
		return "xMidYMid meet"
	}
	return "xMidYMid slice"
}

func svgImage(wf writeFunc, el render.Element) {
	img := el.Image
	r := img.BorderRadius
	if img.Dynamic || img.Src == "" {
		label := img.Field
		if img.Hint != "" {
			label = img.Hint
		}
		if label == "" {
			label = "image"
		}
		wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" rx=\"%g\" fill=\"#f0f0f0\" stroke=\"#999999\" stroke-dasharray=\"6 4\"/>\n", el.X, el.Y, el.Width, el.Height, r)
		wf("    <text x=\"%g\" y=\"%g\" font-family=\"Arial, sans-serif\" font-size=\"%g\" fill=\"#666666\" text-anchor=\"middle\">%s</text>\n",
			el.X+el.Width/2, el.Y+el.Height/2, math.Max(8, math.Min(el.Width, el.Height)/8), escText(label))
	} else {
		clip := ""
		if r > 0 {
			id := "clip-" + escAttr(el.LayerID)
			wf("    <clipPath id=\"%s\"><rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" rx=\"%g\"/></clipPath>\n", id, el.X, el.Y, el.Width, el.Height, r)
			clip = fmt.Sprintf(" clip-path=\"url(#%s)\"", id)
		}
		wf("    <image x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" preserveAspectRatio=\"%s\" xlink:href=\"%s\"%s/>\n",
			el.X, el.Y, el.Width, el.Height, aspectFor(img.ObjectFit), escAttr(img.Src), clip)
	}
	if b := img.Border; b != nil && b.Width > 0 {
		dash := ""
		switch b.Style {
		case "dashed":
			dash = fmt.Sprintf(" stroke-dasharray=\"%g %g\"", 3*b.Width, 2*b.Width)
		case "dotted":
			dash = fmt.Sprintf(" stroke-dasharray=\"%g %g\"", b.Width, b.Width)
		}
		wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" rx=\"%g\" fill=\"none\" stroke=\"%s\" stroke-width=\"%g\"%s/>\n",
			el.X, el.Y, el.Width, el.Height, r, svgPaint(b.Color, "#000000"), b.Width, dash)
	}
}

func svgShape(wf writeFunc, el render.Element) {
	s := el.Shape
	fill := svgPaint(s.Fill, "none")
	stroke := svgPaint(s.Stroke, "none")
	switch s.Shape {
	case domain.ShapeCircle:
		wf("    <ellipse cx=\"%g\" cy=\"%g\" rx=\"%g\" ry=\"%g\" fill=\"%s\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
			el.X+el.Width/2, el.Y+el.Height/2, el.Width/2, el.Height/2, fill, stroke, s.StrokeWidth)
	case domain.ShapeLine:
		w := s.StrokeWidth
		col := stroke
		if col == "none" {
			col = svgPaint(s.Fill, "#000000")
		}
		if w <= 0 {
			w = math.Max(1, el.Height)
		}
		cy := el.Y + el.Height/2
		wf("    <line x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\" stroke=\"%s\" stroke-width=\"%g\"/>\n", el.X, cy, el.X+el.Width, cy, col, w)
	default:
		wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" rx=\"%g\" fill=\"%s\" stroke=\"%s\" stroke-width=\"%g\"/>\n",
			el.X, el.Y, el.Width, el.Height, s.BorderRadius, fill, stroke, s.StrokeWidth)
	}
}

func svgQR(wf writeFunc, el render.Element) {
	q := el.QR
	wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n", el.X, el.Y, el.Width, el.Height, svgPaint(q.Background, "#ffffff"))
	if q.Size == 0 {
		wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"none\" stroke=\"#999999\" stroke-dasharray=\"6 4\"/>\n", el.X, el.Y, el.Width, el.Height)
		return
	}
	cell, ox, oy := qrCells(el)
	var d strings.Builder
	for row, cols := range q.Modules {
		for col, dark := range cols {
			if dark {
				fmt.Fprintf(&d, "M%g %gh%gv%gh%gz", ox+float64(col)*cell, oy+float64(row)*cell, cell, cell, -cell)
			}
		}
	}
	wf("    <path d=\"%s\" fill=\"%s\" shape-rendering=\"crispEdges\"/>\n", d.String(), svgPaint(q.Foreground, "#000000"))
}

// qrCells returns the module size and the top-left of a square matrix centered in the element box.
func qrCells(el render.Element) (cell, x, y float64) {
	side := math.Min(el.Width, el.Height)
	cell = side / float64(el.QR.Size)
	return cell, el.X + (el.Width-side)/2, el.Y + (el.Height-side)/2
}

func svgPaint(s, def string) string {
	if c, ok := ParseColor(s); ok {
		return hexColor(c)
	}
	return def
}

func escAttr(s string) string {
	r := strings.NewReplacer("&", "&amp;", "\"", "&quot;", "<", "&lt;", ">", "&gt;", "\n", " ", "\r", "")
	return r.Replace(s)
}

func escText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
