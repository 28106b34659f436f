/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"fmt"
)

// LayerType is the JSON discriminant of a layer.
type LayerType string

const (
	LayerText   LayerType = "text"
	LayerImage  LayerType = "image"
	LayerShape  LayerType = "shape"
	LayerQRCode LayerType = "qr_code"
)

// Layer is the closed set of layer variants: *TextLayer, *ImageLayer, *ShapeLayer, *QRCodeLayer.
// Callers dispatch with a type switch over those four.
type Layer interface {
	Common() *Base
	Type() LayerType
	Clone() Layer
	isLayer()
}

// Base holds the fields shared by all layer variants.
// Rotation is in degrees about the layer center.
type Base struct {
	ID       string   `json:"id"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	ZIndex   int      `json:"zIndex"`
	Visible  bool     `json:"visible"`
	Locked   bool     `json:"locked"`
	Rotation float64  `json:"rotation"`
	Opacity  *float64 `json:"opacity,omitempty"`
	Name     string   `json:"name,omitempty"`
}

// Common returns the shared fields for in-place mutation.
func (b *Base) Common() *Base { return b }

// Alpha returns the effective opacity.
func (b *Base) Alpha() float64 {
	if b.Opacity == nil {
		return 1
	}
	return *b.Opacity
}

func (b Base) clone() Base {
	if b.Opacity != nil {
		o := *b.Opacity
		b.Opacity = &o
	}
	return b
}

// StaticField marks a text layer that shows its literal text.
const StaticField = "static"

type TextAlign string

const (
	AlignLeft    TextAlign = "left"
	AlignCenter  TextAlign = "center"
	AlignRight   TextAlign = "right"
	AlignJustify TextAlign = "justify"
)

// TextCase is the derived case transform of a text layer.
type TextCase string

const (
	CaseNone  TextCase = "none"
	CaseUpper TextCase = "upper"
	CaseLower TextCase = "lower"
)

type TextShadow struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Blur    float64 `json:"blur"`
	Color   string  `json:"color"`
}

// TextLayer shows a bound record field or literal text.
type TextLayer struct {
	Base
	Field          string      `json:"field"`
	Text           string      `json:"text,omitempty"`
	FontFamily     string      `json:"fontFamily"`
	FontSize       float64     `json:"fontSize"`
	FontWeight     string      `json:"fontWeight"`
	Color          string      `json:"color"`
	TextAlign      TextAlign   `json:"textAlign"`
	LineHeight     float64     `json:"lineHeight"`
	LetterSpacing  float64     `json:"letterSpacing"`
	WordWrap       bool        `json:"wordWrap"`
	MaxWidth       *float64    `json:"maxWidth,omitempty"`
	Uppercase      bool        `json:"uppercase"`
	Lowercase      bool        `json:"lowercase"`
	TextDecoration string      `json:"textDecoration"`
	TextShadow     *TextShadow `json:"textShadow,omitempty"`
}

func (*TextLayer) isLayer()         {}
func (*TextLayer) Type() LayerType  { return LayerText }
func (l *TextLayer) IsStatic() bool { return l.Field == "" || l.Field == StaticField }

func (l *TextLayer) Clone() Layer {
	c := *l
	c.Base = l.Base.clone()
	if l.MaxWidth != nil {
		w := *l.MaxWidth
		c.MaxWidth = &w
	}
	if l.TextShadow != nil {
		s := *l.TextShadow
		c.TextShadow = &s
	}
	return &c
}

// Case reports the active case transform.
func (l *TextLayer) Case() TextCase {
	switch {
	case l.Uppercase:
		return CaseUpper
	case l.Lowercase:
		return CaseLower
	}
	return CaseNone
}

// SetCase sets the case transform; upper and lower are mutually exclusive.
func (l *TextLayer) SetCase(c TextCase) {
	l.Uppercase = c == CaseUpper
	l.Lowercase = c == CaseLower
}

type ObjectFit string

const (
	FitCover   ObjectFit = "cover"
	FitContain ObjectFit = "contain"
	FitFill    ObjectFit = "fill"
	FitNone    ObjectFit = "none"
)

type Border struct {
	Width float64 `json:"width"`
	Color string  `json:"color"`
	Style string  `json:"style"`
}

type Shadow struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Blur    float64 `json:"blur"`
	Spread  float64 `json:"spread"`
	Color   string  `json:"color"`
}

// ImageLayer shows a dynamically bound image (Field) or a static Src.
type ImageLayer struct {
	Base
	Field        string    `json:"field,omitempty"`
	Src          string    `json:"src,omitempty"`
	ObjectFit    ObjectFit `json:"objectFit"`
	BorderRadius float64   `json:"borderRadius"`
	Border       *Border   `json:"border,omitempty"`
	Shadow       *Shadow   `json:"shadow,omitempty"`
}

func (*ImageLayer) isLayer()        {}
func (*ImageLayer) Type() LayerType { return LayerImage }

func (l *ImageLayer) Clone() Layer {
	c := *l
	c.Base = l.Base.clone()
	if l.Border != nil {
		b := *l.Border
		c.Border = &b
	}
	if l.Shadow != nil {
		s := *l.Shadow
		c.Shadow = &s
	}
	return &c
}

type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapeLine      ShapeKind = "line"
)

// ShapeLayer is a filled or stroked primitive. BorderRadius applies to rectangles only.
type ShapeLayer struct {
	Base
	Shape        ShapeKind `json:"shape"`
	Fill         string    `json:"fill"`
	Stroke       string    `json:"stroke,omitempty"`
	StrokeWidth  float64   `json:"strokeWidth"`
	BorderRadius float64   `json:"borderRadius"`
}

func (*ShapeLayer) isLayer()        {}
func (*ShapeLayer) Type() LayerType { return LayerShape }

func (l *ShapeLayer) Clone() Layer {
	c := *l
	c.Base = l.Base.clone()
	return &c
}

// QRCodeLayer encodes the resolved value of Field.
type QRCodeLayer struct {
	Base
	Field                string `json:"field"`
	ForegroundColor      string `json:"foregroundColor"`
	BackgroundColor      string `json:"backgroundColor"`
	ErrorCorrectionLevel string `json:"errorCorrectionLevel"`
}

func (*QRCodeLayer) isLayer()        {}
func (*QRCodeLayer) Type() LayerType { return LayerQRCode }

func (l *QRCodeLayer) Clone() Layer {
	c := *l
	c.Base = l.Base.clone()
	return &c
}

// Default placement of newly added layers.
const (
	DefaultLayerX = 50
	DefaultLayerY = 50
)

func newBase(id string, w, h float64) Base {
	return Base{ID: id, X: DefaultLayerX, Y: DefaultLayerY, Width: w, Height: h, ZIndex: 1, Visible: true}
}

func NewTextLayer(id string) *TextLayer {
	return &TextLayer{
		Base:           newBase(id, 200, 40),
		Field:          StaticField,
		Text:           "Text",
		FontFamily:     "Arial",
		FontSize:       16,
		FontWeight:     "normal",
		Color:          "#000000",
		TextAlign:      AlignLeft,
		LineHeight:     1.2,
		TextDecoration: "none",
	}
}

func NewImageLayer(id string) *ImageLayer {
	return &ImageLayer{Base: newBase(id, 120, 150), Field: "photo", ObjectFit: FitCover}
}

func NewShapeLayer(id string) *ShapeLayer {
	return &ShapeLayer{Base: newBase(id, 100, 100), Shape: ShapeRectangle, Fill: "#cccccc"}
}

func NewQRCodeLayer(id string) *QRCodeLayer {
	return &QRCodeLayer{
		Base:                 newBase(id, 100, 100),
		Field:                "id_number",
		ForegroundColor:      "#000000",
		BackgroundColor:      "#ffffff",
		ErrorCorrectionLevel: "M",
	}
}

// NewLayer returns a layer of type t with type-specific defaults.
func NewLayer(t LayerType, id string) (Layer, error) {
	if id == "" {
		id = NewID(t)
	}
	switch t {
	case LayerText:
		return NewTextLayer(id), nil
	case LayerImage:
		return NewImageLayer(id), nil
	case LayerShape:
		return NewShapeLayer(id), nil
	case LayerQRCode:
		return NewQRCodeLayer(id), nil
	}
	return nil, fmt.Errorf("unknown layer type %q", t)
}

// decode defaults: fields absent from JSON take the constructor defaults,
// except that content fields stay empty so absence survives a round trip.
func decodeTarget(t LayerType) (Layer, error) {
	switch t {
	case LayerText:
		l := NewTextLayer("")
		l.Text = ""
		l.Field = ""
		return l, nil
	case LayerImage:
		l := NewImageLayer("")
		l.Field = ""
		return l, nil
	case LayerShape:
		return NewShapeLayer(""), nil
	case LayerQRCode:
		l := NewQRCodeLayer("")
		l.Field = ""
		return l, nil
	}
	return nil, fmt.Errorf("%w: unknown layer type %q", ErrInvalidTemplate, t)
}

// UnmarshalLayer decodes one layer from exchange JSON using its "type" discriminant.
func UnmarshalLayer(data []byte) (Layer, error) {
	var probe struct {
		Type LayerType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	l, err := decodeTarget(probe.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("decode %s layer: %w", probe.Type, err)
	}
	return l, nil
}

func (l *TextLayer) MarshalJSON() ([]byte, error) {
	type alias TextLayer
	return json.Marshal(struct {
		Type LayerType `json:"type"`
		*alias
	}{LayerText, (*alias)(l)})
}

func (l *ImageLayer) MarshalJSON() ([]byte, error) {
	type alias ImageLayer
	return json.Marshal(struct {
		Type LayerType `json:"type"`
		*alias
	}{LayerImage, (*alias)(l)})
}

func (l *ShapeLayer) MarshalJSON() ([]byte, error) {
	type alias ShapeLayer
	return json.Marshal(struct {
		Type LayerType `json:"type"`
		*alias
	}{LayerShape, (*alias)(l)})
}

func (l *QRCodeLayer) MarshalJSON() ([]byte, error) {
	type alias QRCodeLayer
	return json.Marshal(struct {
		Type LayerType `json:"type"`
		*alias
	}{LayerQRCode, (*alias)(l)})
}

// MarshalJSON always emits a layers array.
func (s Side) MarshalJSON() ([]byte, error) {
	layers := s.Layers
	if layers == nil {
		layers = []Layer{}
	}
	return json.Marshal(struct {
		BackgroundImage string  `json:"backgroundImage,omitempty"`
		Layers          []Layer `json:"layers"`
	}{s.BackgroundImage, layers})
}

func (s *Side) UnmarshalJSON(data []byte) error {
	var raw struct {
		BackgroundImage string            `json:"backgroundImage"`
		Layers          []json.RawMessage `json:"layers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.BackgroundImage = raw.BackgroundImage
	s.Layers = nil
	for i, r := range raw.Layers {
		l, err := UnmarshalLayer(r)
		if err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		s.Layers = append(s.Layers, l)
	}
	return nil
}
