/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render projects a template side plus a data record into a frame of
// positioned, fully resolved elements for display. It never mutates the template.
package render

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"

	"idcardstudio/internal/domain"
	"idcardstudio/internal/stack"
	"idcardstudio/internal/textlayout"
)

// Record is one data row keyed by field name.
type Record map[string]string

// Frame is the render output for one side.
type Frame struct {
	Side            domain.SideName `json:"side"`
	Width           float64         `json:"width"`
	Height          float64         `json:"height"`
	Background      string          `json:"background"`
	BackgroundImage string          `json:"backgroundImage,omitempty"`
	Elements        []Element       `json:"elements"`
}

// Element is one visible layer, resolved. Exactly one of Text, Image, Shape, QR is set.
type Element struct {
	Kind     domain.LayerType `json:"kind"`
	LayerID  string           `json:"layerId"`
	Name     string           `json:"name,omitempty"`
	X        float64          `json:"x"`
	Y        float64          `json:"y"`
	Width    float64          `json:"width"`
	Height   float64          `json:"height"`
	Rotation float64          `json:"rotation"`
	Opacity  float64          `json:"opacity"`
	ZIndex   int              `json:"zIndex"`
	Text     *TextElement     `json:"text,omitempty"`
	Image    *ImageElement    `json:"image,omitempty"`
	Shape    *ShapeElement    `json:"shape,omitempty"`
	QR       *QRElement       `json:"qr,omitempty"`
}

type TextElement struct {
	Content     string             `json:"content"`
	Field       string             `json:"field,omitempty"`
	FromRecord  bool               `json:"fromRecord"`
	FontFamily  string             `json:"fontFamily"`
	FontSize    float64            `json:"fontSize"`
	FontWeight  int                `json:"fontWeight"`
	Color       string             `json:"color"`
	Align       domain.TextAlign   `json:"align"`
	Decoration  string             `json:"decoration,omitempty"`
	Shadow      *domain.TextShadow `json:"shadow,omitempty"`
	LineAdvance float64            `json:"lineAdvance"`
	Lines       []textlayout.Line  `json:"lines"`
}

// ImageElement is either a dynamic binding (resolved by the host) or a static source.
type ImageElement struct {
	Dynamic      bool             `json:"dynamic"`
	Field        string           `json:"field,omitempty"`
	Hint         string           `json:"hint,omitempty"`
	Src          string           `json:"src,omitempty"`
	ObjectFit    domain.ObjectFit `json:"objectFit"`
	BorderRadius float64          `json:"borderRadius"`
	Border       *domain.Border   `json:"border,omitempty"`
	Shadow       *domain.Shadow   `json:"shadow,omitempty"`
}

type ShapeElement struct {
	Shape        domain.ShapeKind `json:"shape"`
	Fill         string           `json:"fill"`
	Stroke       string           `json:"stroke,omitempty"`
	StrokeWidth  float64          `json:"strokeWidth"`
	BorderRadius float64          `json:"borderRadius"`
}

// QRElement carries the payload and, when it is non-empty, the module matrix
// (no quiet zone; Modules[row][col] is true for dark modules).
type QRElement struct {
	Payload    string   `json:"payload"`
	Field      string   `json:"field"`
	Foreground string   `json:"foreground"`
	Background string   `json:"background"`
	Level      string   `json:"level"`
	Modules    [][]bool `json:"-"`
	Size       int      `json:"size"`
	Err        string   `json:"error,omitempty"`
}

// Options tunes rendering.
type Options struct {
	// Fonts measures text; BasicProvider when nil.
	Fonts textlayout.Provider
	// SkipQR leaves QR module matrices empty.
	SkipQR bool
}

// Render produces the frame for one side. Visible layers are emitted in ascending
// zIndex with ties in insertion order. A nil record selects the built-in sample for the template kind.
func Render(tpl *domain.Template, side domain.SideName, rec Record, opts Options) Frame {
	if rec == nil {
		rec = Sample(tpl.Kind)
	}
	s := tpl.Side(side)
	f := Frame{
		Side:       side,
		Width:      tpl.Canvas.Width,
		Height:     tpl.Canvas.Height,
		Background: tpl.Canvas.BackgroundColor,
		Elements:   []Element{},
	}
	if s == nil {
		return f
	}
	f.BackgroundImage = s.BackgroundImage
	if f.BackgroundImage == "" {
		f.BackgroundImage = tpl.Canvas.BackgroundImage
	}
	for _, l := range stack.Ordered(s) {
		if !l.Common().Visible {
			continue
		}
		f.Elements = append(f.Elements, renderLayer(l, rec, opts))
	}
	return f
}

func renderLayer(l domain.Layer, rec Record, opts Options) Element {
	b := l.Common()
	el := Element{
		Kind:     l.Type(),
		LayerID:  b.ID,
		Name:     b.Name,
		X:        b.X,
		Y:        b.Y,
		Width:    b.Width,
		Height:   b.Height,
		Rotation: b.Rotation,
		Opacity:  b.Alpha(),
		ZIndex:   b.ZIndex,
	}
	switch v := l.(type) {
	case *domain.TextLayer:
		el.Text = renderText(v, rec, opts.Fonts)
	case *domain.ImageLayer:
		el.Image = renderImage(v, rec)
	case *domain.ShapeLayer:
		el.Shape = &ShapeElement{Shape: v.Shape, Fill: v.Fill, Stroke: v.Stroke, StrokeWidth: v.StrokeWidth}
		if v.Shape == domain.ShapeRectangle {
			el.Shape.BorderRadius = v.BorderRadius
		}
	case *domain.QRCodeLayer:
		el.QR = renderQR(v, rec, opts.SkipQR)
	}
	return el
}

// ResolveText returns the display text of a text layer: literal text for static
// layers, otherwise the record value falling back to the literal text, with the
// case transform applied. The second result reports whether the record supplied it.
func ResolveText(l *domain.TextLayer, rec Record) (string, bool) {
	text, fromRecord := l.Text, false
	if !l.IsStatic() {
		if v := rec[l.Field]; v != "" {
			text, fromRecord = v, true
		}
	}
	switch l.Case() {
	case domain.CaseUpper:
		text = strings.ToUpper(text)
	case domain.CaseLower:
		text = strings.ToLower(text)
	}
	return text, fromRecord
}

func renderText(l *domain.TextLayer, rec Record, fonts textlayout.Provider) *TextElement {
	content, fromRecord := ResolveText(l, rec)
	spec := textlayout.FontSpec{Family: l.FontFamily, Size: l.FontSize, Weight: textlayout.ParseWeight(l.FontWeight)}
	prm := textlayout.Params{
		Font:          spec,
		Align:         string(l.TextAlign),
		LineHeight:    l.LineHeight,
		LetterSpacing: l.LetterSpacing,
		WordWrap:      l.WordWrap,
		BoxWidth:      l.Width,
	}
	if l.MaxWidth != nil {
		prm.MaxWidth = *l.MaxWidth
	}
	block := textlayout.Layout(fonts, content, prm)
	te := &TextElement{
		Content:     content,
		FromRecord:  fromRecord,
		FontFamily:  l.FontFamily,
		FontSize:    l.FontSize,
		FontWeight:  spec.Weight,
		Color:       l.Color,
		Align:       l.TextAlign,
		Shadow:      l.TextShadow,
		LineAdvance: block.LineAdvance,
		Lines:       block.Lines,
	}
	if !l.IsStatic() {
		te.Field = l.Field
	}
	if l.TextDecoration != "none" {
		te.Decoration = l.TextDecoration
	}
	return te
}

func renderImage(l *domain.ImageLayer, rec Record) *ImageElement {
	ie := &ImageElement{
		ObjectFit:    l.ObjectFit,
		BorderRadius: l.BorderRadius,
		Border:       l.Border,
		Shadow:       l.Shadow,
	}
	if IsDynamicImage(l.Field) {
		ie.Dynamic = true
		ie.Field = l.Field
		ie.Hint = rec[l.Field]
		return ie
	}
	ie.Src = l.Src
	return ie
}

func qrLevel(s string) qrcode.RecoveryLevel {
	switch s {
	case "L":
		return qrcode.Low
	case "Q":
		return qrcode.High
	case "H":
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

func renderQR(l *domain.QRCodeLayer, rec Record, skip bool) *QRElement {
	q := &QRElement{
		Payload:    rec[l.Field],
		Field:      l.Field,
		Foreground: l.ForegroundColor,
		Background: l.BackgroundColor,
		Level:      l.ErrorCorrectionLevel,
	}
	if q.Payload == "" || skip {
		return q
	}
	m, err := Matrix(q.Payload, q.Level)
	if err != nil {
		q.Err = err.Error()
		return q
	}
	q.Modules = m
	q.Size = len(m)
	return q
}

// Matrix encodes payload as a QR module matrix without the quiet zone.
func Matrix(payload, level string) ([][]bool, error) {
	code, err := qrcode.New(payload, qrLevel(level))
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	code.DisableBorder = true
	return code.Bitmap(), nil
}
