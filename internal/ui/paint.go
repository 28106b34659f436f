/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math"

	_ "golang.org/x/image/webp"

	"idcardstudio/internal/domain"
	"idcardstudio/internal/export"
	applog "idcardstudio/internal/log"
	"idcardstudio/internal/render"
)

// painter returns the color of an element at a point of its unrotated local frame
// (canvas units, origin at the top-left corner). Transparent means nothing is drawn.
type painter func(x, y float64) color.NRGBA

var (
	transparent      = color.NRGBA{}
	placeholderFill  = color.NRGBA{R: 0xe8, G: 0xec, B: 0xf1, A: 0xff}
	placeholderLine  = color.NRGBA{R: 0x94, G: 0xa3, B: 0xb8, A: 0xff}
	selectionColor   = color.NRGBA{R: 0x00, G: 0xaa, B: 0xff, A: 0xff}
	lockedColor      = color.NRGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
	rotateGripColor  = color.NRGBA{R: 0xff, G: 0xaa, B: 0x00, A: 0xff}
	guideColor       = color.NRGBA{R: 0xff, G: 0x00, B: 0xcc, A: 0xff}
	workspaceColor   = color.NRGBA{R: 30, G: 30, B: 34, A: 255}
	cardOutlineColor = color.NRGBA{R: 20, G: 20, B: 20, A: 255}
)

// hexColor parses a card color, falling back to def.
func hexColor(s string, def color.NRGBA) color.NRGBA {
	c, ok := export.ParseColor(s)
	if !ok {
		return def
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// fade multiplies the alpha of c by opacity.
func fade(c color.NRGBA, opacity float64) color.NRGBA {
	if opacity >= 1 {
		return c
	}
	c.A = uint8(math.Round(float64(c.A) * math.Max(0, opacity)))
	return c
}

// inRounded reports whether (x,y) lies in a w×h rectangle with corner radius r.
func inRounded(x, y, w, h, r float64) bool {
	if x < 0 || y < 0 || x > w || y > h {
		return false
	}
	r = math.Min(r, math.Min(w, h)/2)
	if r <= 0 {
		return true
	}
	cx := math.Min(math.Max(x, r), w-r)
	cy := math.Min(math.Max(y, r), h-r)
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= r*r
}

func inEllipse(x, y, w, h float64) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	nx, ny := (x-w/2)/(w/2), (y-h/2)/(h/2)
	return nx*nx+ny*ny <= 1
}

// shapePainter paints rectangles, circles and lines the way the PDF proof does:
// a line without a stroke is drawn with the full element height.
func shapePainter(s *render.ShapeElement, w, h float64) painter {
	fill, hasFill := export.ParseColor(s.Fill)
	stroke, hasStroke := export.ParseColor(s.Stroke)
	hasStroke = hasStroke && s.StrokeWidth > 0
	fc := color.NRGBA{R: fill.R, G: fill.G, B: fill.B, A: fill.A}
	sc := color.NRGBA{R: stroke.R, G: stroke.G, B: stroke.B, A: stroke.A}
	sw := s.StrokeWidth
	switch s.Shape {
	case domain.ShapeLine:
		thick, c := sw, sc
		if !hasStroke {
			thick, c = math.Max(1, h), fc
		}
		return func(x, y float64) color.NRGBA {
			if math.Abs(y-h/2) <= thick/2 {
				return c
			}
			return transparent
		}
	case domain.ShapeCircle:
		return func(x, y float64) color.NRGBA {
			if !inEllipse(x, y, w, h) {
				return transparent
			}
			if hasStroke && !inEllipse(x-sw, y-sw, w-2*sw, h-2*sw) {
				return sc
			}
			if hasFill {
				return fc
			}
			return transparent
		}
	}
	r := s.BorderRadius
	return func(x, y float64) color.NRGBA {
		if !inRounded(x, y, w, h, r) {
			return transparent
		}
		if hasStroke && !inRounded(x-sw, y-sw, w-2*sw, h-2*sw, math.Max(0, r-sw)) {
			return sc
		}
		if hasFill {
			return fc
		}
		return transparent
	}
}

// qrPainter centers the square module matrix in the element box over the background.
func qrPainter(q *render.QRElement, w, h float64) painter {
	bg := hexColor(q.Background, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	fg := hexColor(q.Foreground, color.NRGBA{A: 255})
	n := len(q.Modules)
	if n == 0 {
		return func(x, y float64) color.NRGBA {
			// no payload: hatched placeholder
			if int(math.Floor((x+y)/8))%2 == 0 {
				return placeholderFill
			}
			return bg
		}
	}
	side := math.Min(w, h)
	cell := side / float64(n)
	ox, oy := (w-side)/2, (h-side)/2
	return func(x, y float64) color.NRGBA {
		col := int(math.Floor((x - ox) / cell))
		row := int(math.Floor((y - oy) / cell))
		if row >= 0 && row < n && col >= 0 && col < n && q.Modules[row][col] {
			return fg
		}
		return bg
	}
}

// fitRect returns where an iw×ih image lands inside a w×h box for the fit mode.
func fitRect(fit domain.ObjectFit, iw, ih, w, h float64) (x, y, dw, dh float64) {
	if iw <= 0 || ih <= 0 {
		return 0, 0, w, h
	}
	var s float64
	switch fit {
	case domain.FitFill:
		return 0, 0, w, h
	case domain.FitContain:
		s = math.Min(w/iw, h/ih)
	case domain.FitNone:
		s = 1
	default:
		s = math.Max(w/iw, h/ih)
	}
	dw, dh = iw*s, ih*s
	return (w - dw) / 2, (h - dh) / 2, dw, dh
}

// imagePainter samples img (nil draws the dynamic-field placeholder) clipped to the
// border radius, with the border drawn inside the box.
func imagePainter(el *render.ImageElement, img image.Image, w, h float64) painter {
	r := el.BorderRadius
	var bw float64
	var bc color.NRGBA
	if el.Border != nil && el.Border.Width > 0 {
		bw = el.Border.Width
		bc = hexColor(el.Border.Color, color.NRGBA{A: 255})
	}
	var fx, fy, fw, fh float64
	var bounds image.Rectangle
	if img != nil {
		bounds = img.Bounds()
		fx, fy, fw, fh = fitRect(el.ObjectFit, float64(bounds.Dx()), float64(bounds.Dy()), w, h)
	}
	return func(x, y float64) color.NRGBA {
		if !inRounded(x, y, w, h, r) {
			return transparent
		}
		if bw > 0 && !inRounded(x-bw, y-bw, w-2*bw, h-2*bw, math.Max(0, r-bw)) {
			return bc
		}
		if img == nil {
			if math.Abs(x-y*w/h) < 1.5 || math.Abs((w-x)-y*w/h) < 1.5 {
				return placeholderLine
			}
			return placeholderFill
		}
		if x < fx || y < fy || x >= fx+fw || y >= fy+fh {
			return transparent
		}
		ix := bounds.Min.X + int((x-fx)/fw*float64(bounds.Dx()))
		iy := bounds.Min.Y + int((y-fy)/fh*float64(bounds.Dy()))
		return color.NRGBAModel.Convert(img.At(ix, iy)).(color.NRGBA)
	}
}

// imageCache decodes image sources once. Failures are remembered as nil.
type imageCache struct {
	open   func(src string) (image.Image, error)
	images map[string]image.Image
}

func newImageCache() *imageCache {
	return &imageCache{open: decodeImage, images: map[string]image.Image{}}
}

func decodeImage(src string) (image.Image, error) {
	rc, err := export.OpenImage(src)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	img, _, err := image.Decode(rc)
	return img, err
}

func (c *imageCache) get(src string) image.Image {
	if src == "" {
		return nil
	}
	if img, ok := c.images[src]; ok {
		return img
	}
	img, err := c.open(src)
	if err != nil {
		applog.WithComponent("ui").Debug("image unavailable", slog.String("src", src), slog.Any("err", err))
		img = nil
	}
	c.images[src] = img
	return img
}
