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
	"encoding/base64"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"idcardstudio/internal/domain"
	"idcardstudio/internal/render"
)

// PDFOptions controls the proof export. Units are points; canvas units are
// converted at DPI (CardDPI when zero), so a default card prints at CR80 size.
type PDFOptions struct {
	DPI           float64
	Title         string
	IncludeGuides bool
	// SafeMargin is the inset of the guide rectangle in canvas units.
	SafeMargin float64
	// Images opens static image sources; data: URLs and local files when nil.
	Images func(src string) (io.ReadCloser, error)
}

// PDF writes one page per frame (front then back, in the order given) to w.
func PDF(w io.Writer, frames []render.Frame, opt PDFOptions) error {
	if len(frames) == 0 {
		return errors.New("no frames to export")
	}
	dpi := opt.DPI
	if dpi <= 0 {
		dpi = CardDPI
	}
	scale := 72 / dpi
	if opt.Images == nil {
		opt.Images = OpenImage
	}
	first := frames[0]
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: first.Width * scale, Ht: first.Height * scale},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if opt.Title != "" {
		pdf.SetTitle(opt.Title, true)
	}
	pdf.SetCreator("IDCardStudio", false)
	p := &pdfPainter{pdf: pdf, scale: scale, tr: pdf.UnicodeTranslatorFromDescriptor(""), images: opt.Images}

	for _, f := range frames {
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: f.Width * scale, Ht: f.Height * scale})
		p.background(f)
		for _, el := range f.Elements {
			p.element(el)
		}
		if opt.IncludeGuides {
			m := opt.SafeMargin
			if m <= 0 {
				m = 36
			}
			pdf.SetDrawColor(255, 0, 0)
			pdf.SetLineWidth(0.3)
			pdf.SetDashPattern([]float64{2, 2}, 0)
			pdf.Rect(m*scale, m*scale, (f.Width-2*m)*scale, (f.Height-2*m)*scale, "D")
			pdf.SetDashPattern([]float64{}, 0)
		}
		if pdf.Err() {
			return fmt.Errorf("build pdf: %w", pdf.Error())
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

type pdfPainter struct {
	pdf    *gofpdf.Fpdf
	scale  float64
	tr     func(string) string
	images func(string) (io.ReadCloser, error)
	nimg   int
}

func (p *pdfPainter) s(v float64) float64 { return v * p.scale }

func (p *pdfPainter) background(f render.Frame) {
	setFillColor(p.pdf, orColor(f.Background, color.RGBA{255, 255, 255, 255}))
	p.pdf.Rect(0, 0, p.s(f.Width), p.s(f.Height), "F")
	if f.BackgroundImage != "" {
		p.image(f.BackgroundImage, 0, 0, p.s(f.Width), p.s(f.Height))
	}
}

func (p *pdfPainter) element(el render.Element) {
	pdf := p.pdf
	if el.Rotation != 0 {
		pdf.TransformBegin()
		// gofpdf rotates counter-clockwise; canvas rotation is clockwise.
		pdf.TransformRotate(-el.Rotation, p.s(el.X+el.Width/2), p.s(el.Y+el.Height/2))
		defer pdf.TransformEnd()
	}
	if el.Opacity < 1 {
		pdf.SetAlpha(math.Max(0, el.Opacity), "Normal")
		defer pdf.SetAlpha(1, "Normal")
	}
	x, y, w, h := p.s(el.X), p.s(el.Y), p.s(el.Width), p.s(el.Height)
	switch {
	case el.Text != nil:
		p.text(el)
	case el.Image != nil:
		img := el.Image
		if img.Dynamic || img.Src == "" || !p.image(img.Src, x, y, w, h) {
			label := img.Field
			if img.Hint != "" {
				label = img.Hint
			}
			p.placeholder(x, y, w, h, label)
		}
		if b := img.Border; b != nil && b.Width > 0 {
			setDrawColor(pdf, orColor(b.Color, color.RGBA{A: 255}))
			pdf.SetLineWidth(p.s(b.Width))
			roundedRect(pdf, x, y, w, h, p.s(img.BorderRadius), "D")
		}
	case el.Shape != nil:
		p.shape(el.Shape, x, y, w, h)
	case el.QR != nil:
		p.qr(el)
	}
}

func (p *pdfPainter) text(el render.Element) {
	t := el.Text
	pdf := p.pdf
	style := ""
	if t.FontWeight >= 600 {
		style += "B"
	}
	if t.Decoration == "underline" {
		style += "U"
	}
	pdf.SetFont(coreFont(t.FontFamily), style, p.s(t.FontSize))
	draw := func(dx, dy float64) {
		for _, ln := range t.Lines {
			pdf.Text(p.s(el.X+ln.X+dx), p.s(el.Y+ln.Baseline+dy), p.tr(ln.Text))
		}
	}
	if s := t.Shadow; s != nil {
		setTextColor(pdf, orColor(s.Color, color.RGBA{A: 255}))
		draw(s.OffsetX, s.OffsetY)
	}
	setTextColor(pdf, orColor(t.Color, color.RGBA{A: 255}))
	draw(0, 0)
}

func (p *pdfPainter) shape(s *render.ShapeElement, x, y, w, h float64) {
	pdf := p.pdf
	fill, hasFill := ParseColor(s.Fill)
	stroke, hasStroke := ParseColor(s.Stroke)
	hasStroke = hasStroke && s.StrokeWidth > 0
	if s.Shape == domain.ShapeLine {
		lw := p.s(s.StrokeWidth)
		if !hasStroke {
			stroke, lw = fill, math.Max(p.s(1), h)
		}
		setDrawColor(pdf, stroke)
		pdf.SetLineWidth(lw)
		pdf.Line(x, y+h/2, x+w, y+h/2)
		return
	}
	style := drawStyle(hasFill, hasStroke)
	if style == "" {
		return
	}
	setFillColor(pdf, fill)
	setDrawColor(pdf, stroke)
	pdf.SetLineWidth(p.s(s.StrokeWidth))
	if s.Shape == domain.ShapeCircle {
		pdf.Ellipse(x+w/2, y+h/2, w/2, h/2, 0, style)
		return
	}
	roundedRect(pdf, x, y, w, h, p.s(s.BorderRadius), style)
}

func (p *pdfPainter) qr(el render.Element) {
	q := el.QR
	pdf := p.pdf
	setFillColor(pdf, orColor(q.Background, color.RGBA{255, 255, 255, 255}))
	pdf.Rect(p.s(el.X), p.s(el.Y), p.s(el.Width), p.s(el.Height), "F")
	if q.Size == 0 {
		p.placeholder(p.s(el.X), p.s(el.Y), p.s(el.Width), p.s(el.Height), "QR")
		return
	}
	cell, ox, oy := qrCells(el)
	setFillColor(pdf, orColor(q.Foreground, color.RGBA{A: 255}))
	for row, cols := range q.Modules {
		for col, dark := range cols {
			if dark {
				pdf.Rect(p.s(ox+float64(col)*cell), p.s(oy+float64(row)*cell), p.s(cell), p.s(cell), "F")
			}
		}
	}
}

func (p *pdfPainter) placeholder(x, y, w, h float64, label string) {
	pdf := p.pdf
	pdf.SetFillColor(240, 240, 240)
	pdf.SetDrawColor(153, 153, 153)
	pdf.SetLineWidth(0.5)
	pdf.SetDashPattern([]float64{3, 2}, 0)
	pdf.Rect(x, y, w, h, "FD")
	pdf.SetDashPattern([]float64{}, 0)
	if label == "" {
		return
	}
	size := math.Max(4, math.Min(w, h)/8)
	pdf.SetFont("Helvetica", "", size)
	pdf.SetTextColor(102, 102, 102)
	label = p.tr(label)
	pdf.Text(x+(w-pdf.GetStringWidth(label))/2, y+h/2+size/3, label)
}

// image draws src into the box. It reports false when the source cannot be loaded.
func (p *pdfPainter) image(src string, x, y, w, h float64) bool {
	rc, err := p.images(src)
	if err != nil {
		return false
	}
	defer func() { _ = rc.Close() }()
	tp := imageType(src)
	if tp == "" {
		return false
	}
	p.nimg++
	name := fmt.Sprintf("img%d", p.nimg)
	opt := gofpdf.ImageOptions{ImageType: tp, ReadDpi: false}
	p.pdf.RegisterImageOptionsReader(name, opt, rc)
	if p.pdf.Err() {
		// unreadable images fall back to a placeholder
		p.pdf.ClearError()
		return false
	}
	p.pdf.ImageOptions(name, x, y, w, h, false, opt, 0, "")
	return true
}

func imageType(src string) string {
	s := strings.ToLower(src)
	if strings.HasPrefix(s, "data:") {
		s = strings.TrimPrefix(s, "data:image/")
		if i := strings.IndexAny(s, ";,"); i >= 0 {
			s = s[:i]
		}
	} else if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	switch s {
	case "png":
		return "PNG"
	case "jpg", "jpeg":
		return "JPG"
	case "gif":
		return "GIF"
	}
	return ""
}

// OpenImage resolves data: URLs and local file paths.
func OpenImage(src string) (io.ReadCloser, error) {
	if strings.HasPrefix(src, "data:") {
		i := strings.IndexByte(src, ',')
		if i < 0 || !strings.Contains(src[:i], ";base64") {
			return nil, fmt.Errorf("unsupported data url")
		}
		b, err := base64.StdEncoding.DecodeString(src[i+1:])
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(b)), nil
	}
	if strings.Contains(src, "://") {
		return nil, fmt.Errorf("remote image %s not fetched", src)
	}
	return os.Open(src)
}

func coreFont(family string) string {
	f := strings.ToLower(family)
	switch {
	case strings.Contains(f, "times"), strings.Contains(f, "georgia"), strings.Contains(f, "serif") && !strings.Contains(f, "sans"):
		return "Times"
	case strings.Contains(f, "courier"), strings.Contains(f, "mono"):
		return "Courier"
	}
	return "Helvetica"
}

func drawStyle(fill, stroke bool) string {
	switch {
	case fill && stroke:
		return "FD"
	case fill:
		return "F"
	case stroke:
		return "D"
	}
	return ""
}

func setDrawColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}

func setTextColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
}

// roundedRect draws a rectangle whose corners are quarter ellipses approximated by cubic Béziers.
func roundedRect(pdf *gofpdf.Fpdf, x, y, w, h, r float64, style string) {
	r = math.Min(r, math.Min(w, h)/2)
	if r <= 0 {
		pdf.Rect(x, y, w, h, style)
		return
	}
	const k = 0.5523
	c := r * k
	pdf.MoveTo(x+r, y)
	pdf.LineTo(x+w-r, y)
	pdf.CurveBezierCubicTo(x+w-r+c, y, x+w, y+r-c, x+w, y+r)
	pdf.LineTo(x+w, y+h-r)
	pdf.CurveBezierCubicTo(x+w, y+h-r+c, x+w-r+c, y+h, x+w-r, y+h)
	pdf.LineTo(x+r, y+h)
	pdf.CurveBezierCubicTo(x+r-c, y+h, x, y+h-r+c, x, y+h-r)
	pdf.LineTo(x, y+r)
	pdf.CurveBezierCubicTo(x, y+r-c, x+r-c, y, x+r, y)
	pdf.ClosePath()
	pdf.DrawPath(style)
}
