//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"idcardstudio/internal/editor"
	"idcardstudio/internal/render"
	"idcardstudio/internal/transform"
	"idcardstudio/internal/vector"
)

// CardCanvas draws the active side of the edited template and turns mouse input
// into editor pointer calls. Dragging on empty space pans; the wheel zooms.
type CardCanvas struct {
	widget.BaseWidget

	ed     *editor.Editor
	record render.Record
	images *imageCache
	frame  render.Frame

	panX, panY float64
	panning    bool
	fitted     bool

	// OnCommit is called after a pointer gesture committed a change to history.
	OnCommit func()
}

// NewCardCanvas binds a canvas to ed. rec is the preview record; nil uses the sample.
func NewCardCanvas(ed *editor.Editor, rec render.Record) *CardCanvas {
	c := &CardCanvas{ed: ed, record: rec, images: newImageCache()}
	c.frame = ed.Render(rec)
	c.ExtendBaseWidget(c)
	return c
}

// SetRecord changes the preview record and redraws.
func (c *CardCanvas) SetRecord(rec render.Record) {
	c.record = rec
	c.Refresh()
}

// ResetView recenters the card and fits it to the widget on the next layout.
func (c *CardCanvas) ResetView() {
	c.panX, c.panY = 0, 0
	c.fitted = false
	c.Refresh()
}

func (c *CardCanvas) view(size fyne.Size) viewport {
	return viewport{
		width:  float64(size.Width),
		height: float64(size.Height),
		cardW:  c.frame.Width,
		cardH:  c.frame.Height,
		zoom:   c.ed.Zoom(),
		panX:   c.panX,
		panY:   c.panY,
	}
}

func (c *CardCanvas) local(pos fyne.Position) vector.Pt {
	x, y := c.view(c.Size()).local(float64(pos.X), float64(pos.Y))
	return vector.Pt{X: x, Y: y}
}

func (c *CardCanvas) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		c.panning = true
		return
	}
	c.panning = !c.ed.PointerDown(c.local(e.Position)) && c.ed.SelectedID() == ""
}

func (c *CardCanvas) MouseUp(*desktop.MouseEvent) { c.release() }

func (c *CardCanvas) Dragged(e *fyne.DragEvent) {
	if c.panning {
		c.panX += float64(e.Dragged.DX)
		c.panY += float64(e.Dragged.DY)
		c.Refresh()
		return
	}
	c.ed.PointerMove(c.local(e.Position))
}

func (c *CardCanvas) DragEnd() { c.release() }

func (c *CardCanvas) release() {
	c.panning = false
	if c.ed.PointerUp() && c.OnCommit != nil {
		c.OnCommit()
	}
}

func (c *CardCanvas) Scrolled(e *fyne.ScrollEvent) {
	c.ed.SetZoom(scrollZoom(c.ed.Zoom(), float64(e.Scrolled.DY)))
}

func (c *CardCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(workspaceColor)
	return &cardRenderer{c: c, bg: bg, objects: []fyne.CanvasObject{bg}}
}

// cardRenderer rebuilds the element objects from a fresh frame on every refresh.
type cardRenderer struct {
	c       *CardCanvas
	bg      *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *cardRenderer) Destroy()                     {}
func (r *cardRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *cardRenderer) MinSize() fyne.Size           { return fyne.NewSize(320, 400) }
func (r *cardRenderer) Refresh()                     { r.Layout(r.c.Size()); canvas.Refresh(r.c) }

func (r *cardRenderer) Layout(size fyne.Size) {
	c := r.c
	c.frame = c.ed.Render(c.record)
	if !c.fitted && size.Width > 0 && size.Height > 0 {
		c.fitted = true
		c.ed.SetZoom(c.view(size).fit())
	}
	v := c.view(size)

	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	objs := []fyne.CanvasObject{r.bg}

	ox, oy := v.origin()
	card := canvas.NewRectangle(hexColor(c.frame.Background, color.NRGBA{R: 255, G: 255, B: 255, A: 255}))
	card.StrokeColor = cardOutlineColor
	card.StrokeWidth = 1
	card.Move(fyne.NewPos(float32(ox), float32(oy)))
	card.Resize(fyne.NewSize(float32(c.frame.Width*v.zoom), float32(c.frame.Height*v.zoom)))
	objs = append(objs, card)
	if img := c.images.get(c.frame.BackgroundImage); img != nil {
		bgImg := canvas.NewImageFromImage(img)
		bgImg.FillMode = canvas.ImageFillStretch
		bgImg.Move(card.Position())
		bgImg.Resize(card.Size())
		objs = append(objs, bgImg)
	}

	for _, el := range c.frame.Elements {
		objs = append(objs, r.element(v, el)...)
	}
	objs = append(objs, r.guides(v)...)
	objs = append(objs, r.selection(v)...)
	r.objects = objs
}

func (r *cardRenderer) element(v viewport, el render.Element) []fyne.CanvasObject {
	switch {
	case el.Text != nil:
		return r.text(v, el)
	case el.Shape != nil:
		return []fyne.CanvasObject{raster(v, el, shapePainter(el.Shape, el.Width, el.Height))}
	case el.QR != nil:
		return []fyne.CanvasObject{raster(v, el, qrPainter(el.QR, el.Width, el.Height))}
	case el.Image != nil:
		img := r.c.images.get(el.Image.Src)
		if el.Image.Dynamic {
			img = nil
		}
		out := []fyne.CanvasObject{raster(v, el, imagePainter(el.Image, img, el.Width, el.Height))}
		if img == nil {
			label := el.Image.Field
			if label == "" {
				label = "image"
			}
			out = append(out, centeredText(v, el, "{"+label+"}", placeholderLine))
		}
		return out
	}
	return nil
}

// raster paints an element pixel by pixel over its rotated screen bounds.
func raster(v viewport, el render.Element, paint painter) fyne.CanvasObject {
	box := vector.Box{Rect: vector.R(el.X, el.Y, el.Width, el.Height), Rotation: el.Rotation}
	b := box.Bounds()
	inv := box.ToWorld().Invert()
	w, h, opacity := el.Width, el.Height, el.Opacity
	img := canvas.NewRasterWithPixels(func(x, y, pw, ph int) color.Color {
		cx := b.X + (float64(x)+0.5)/float64(pw)*b.W
		cy := b.Y + (float64(y)+0.5)/float64(ph)*b.H
		l := inv.Apply(vector.Pt{X: cx, Y: cy})
		if l.X < 0 || l.Y < 0 || l.X > w || l.Y > h {
			return transparent
		}
		return fade(paint(l.X, l.Y), opacity)
	})
	sx, sy := v.toScreen(b.X, b.Y)
	img.Move(fyne.NewPos(float32(sx), float32(sy)))
	img.Resize(fyne.NewSize(float32(b.W*v.zoom), float32(b.H*v.zoom)))
	return img
}

// text draws laid-out lines unrotated; rotation shows on the selection outline.
func (r *cardRenderer) text(v viewport, el render.Element) []fyne.CanvasObject {
	t := el.Text
	size := float32(t.FontSize * v.zoom)
	style := fyne.TextStyle{Bold: t.FontWeight >= 600}
	var out []fyne.CanvasObject
	draw := func(dx, dy float64, col color.NRGBA) {
		for _, ln := range t.Lines {
			txt := canvas.NewText(ln.Text, fade(col, el.Opacity))
			txt.TextSize = size
			txt.TextStyle = style
			// canvas.Text is positioned by its top edge; approximate the ascent
			x, y := v.toScreen(el.X+ln.X+dx, el.Y+ln.Baseline-t.FontSize*0.8+dy)
			txt.Move(fyne.NewPos(float32(x), float32(y)))
			out = append(out, txt)
		}
	}
	if s := t.Shadow; s != nil {
		draw(s.OffsetX, s.OffsetY, hexColor(s.Color, color.NRGBA{A: 128}))
	}
	draw(0, 0, hexColor(t.Color, color.NRGBA{A: 255}))
	return out
}

func centeredText(v viewport, el render.Element, s string, col color.NRGBA) fyne.CanvasObject {
	txt := canvas.NewText(s, col)
	txt.TextSize = float32(12 * v.zoom)
	txt.Alignment = fyne.TextAlignCenter
	x, y := v.toScreen(el.X, el.Y+el.Height/2-6)
	txt.Move(fyne.NewPos(float32(x), float32(y)))
	txt.Resize(fyne.NewSize(float32(el.Width*v.zoom), txt.MinSize().Height))
	return txt
}

func (r *cardRenderer) guides(v viewport) []fyne.CanvasObject {
	var out []fyne.CanvasObject
	for _, g := range r.c.ed.Guides() {
		ln := canvas.NewLine(guideColor)
		ln.StrokeWidth = 1
		x1, y1 := v.toScreen(g.From.X, g.From.Y)
		x2, y2 := v.toScreen(g.To.X, g.To.Y)
		ln.Position1 = fyne.NewPos(float32(x1), float32(y1))
		ln.Position2 = fyne.NewPos(float32(x2), float32(y2))
		out = append(out, ln)
	}
	return out
}

// selection draws the rotated outline, the eight resize grips and the rotate grip.
// Locked layers get a grey outline and no grips.
func (r *cardRenderer) selection(v viewport) []fyne.CanvasObject {
	l, ok := r.c.ed.Selected()
	if !ok {
		return nil
	}
	b := l.Common()
	g := transform.Of(b)
	col := selectionColor
	if b.Locked {
		col = lockedColor
	}
	var out []fyne.CanvasObject
	line := func(a, z vector.Pt) {
		ln := canvas.NewLine(col)
		ln.StrokeWidth = 1
		x1, y1 := v.toScreen(a.X, a.Y)
		x2, y2 := v.toScreen(z.X, z.Y)
		ln.Position1 = fyne.NewPos(float32(x1), float32(y1))
		ln.Position2 = fyne.NewPos(float32(x2), float32(y2))
		out = append(out, ln)
	}
	cs := g.Box().Corners()
	for i := range cs {
		line(cs[i], cs[(i+1)%len(cs)])
	}
	if b.Locked {
		return out
	}
	const grip = 8
	for _, h := range transform.ResizeHandles {
		p := transform.HandlePosition(g, h)
		x, y := v.toScreen(p.X, p.Y)
		sq := canvas.NewRectangle(color.White)
		sq.StrokeColor = col
		sq.StrokeWidth = 1
		sq.Move(fyne.NewPos(float32(x)-grip/2, float32(y)-grip/2))
		sq.Resize(fyne.NewSize(grip, grip))
		out = append(out, sq)
	}
	top := transform.HandlePosition(g, transform.HandleN)
	rot := transform.HandlePosition(g, transform.HandleRotate)
	line(top, rot)
	x, y := v.toScreen(rot.X, rot.Y)
	dot := canvas.NewCircle(rotateGripColor)
	dot.Move(fyne.NewPos(float32(x)-grip/2-1, float32(y)-grip/2-1))
	dot.Resize(fyne.NewSize(grip+2, grip+2))
	out = append(out, dot)
	return out
}
