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
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func sampleTemplate() *Template {
	id := int64(7)
	op := 0.5
	mw := 180.0
	now := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	tpl := NewTemplate("Senior High 2025", KindStudent)
	tpl.ID = &id
	tpl.SchoolLevel = LevelSeniorHigh
	tpl.Metadata.CreatedAt = &now
	tpl.Metadata.UpdatedAt = &now

	name := NewTextLayer("name")
	name.Field = "full_name"
	name.Uppercase = true
	name.MaxWidth = &mw
	name.WordWrap = true
	name.TextShadow = &TextShadow{OffsetY: 1, Blur: 2, Color: "rgba(0,0,0,0.25)"}
	name.Opacity = &op

	photo := NewImageLayer("photo")
	photo.ZIndex = 2
	photo.Rotation = 15
	photo.Border = &Border{Width: 2, Color: "#333333", Style: "solid"}

	bar := NewShapeLayer("bar")
	bar.Shape = ShapeLine
	bar.Stroke = "#112233"
	bar.StrokeWidth = 3
	bar.Locked = true

	qr := NewQRCodeLayer("qr")
	qr.ErrorCorrectionLevel = "H"
	qr.Visible = false

	tpl.Front.Layers = []Layer{name, photo, bar}
	tpl.Back.BackgroundImage = "/uploads/back.png"
	tpl.Back.Layers = []Layer{qr}
	return tpl
}

func TestTemplateJSONRoundTrip(t *testing.T) {
	tpl := sampleTemplate()
	b, err := Marshal(tpl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := Parse(b)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(tpl, got) {
		t.Fatalf("round trip mismatch\nwant %#v\ngot  %#v", tpl, got)
	}
}

func TestRoundTripEmptyTemplate(t *testing.T) {
	tpl := NewTemplate("Blank", KindVisitor)
	b, err := Marshal(tpl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"layers": []`) {
		t.Fatalf("empty side should emit a layers array: %s", b)
	}
	got, err := Parse(b)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(tpl, got) {
		t.Fatalf("round trip mismatch: %#v vs %#v", tpl, got)
	}
}

func TestLayerDiscriminant(t *testing.T) {
	cases := []struct {
		layer Layer
		want  string
	}{
		{NewTextLayer("a"), `"type":"text"`},
		{NewImageLayer("b"), `"type":"image"`},
		{NewShapeLayer("c"), `"type":"shape"`},
		{NewQRCodeLayer("d"), `"type":"qr_code"`},
	}
	for _, c := range cases {
		b, err := json.Marshal(c.layer)
		if err != nil {
			t.Fatalf("marshal %T: %v", c.layer, err)
		}
		if !strings.HasPrefix(string(b), "{"+c.want) {
			t.Fatalf("%T: got %s, want prefix %s", c.layer, b, c.want)
		}
		back, err := UnmarshalLayer(b)
		if err != nil {
			t.Fatalf("unmarshal %T: %v", c.layer, err)
		}
		if reflect.TypeOf(back) != reflect.TypeOf(c.layer) {
			t.Fatalf("decoded %T, want %T", back, c.layer)
		}
	}
}

func TestUnmarshalLayerDefaults(t *testing.T) {
	l, err := UnmarshalLayer([]byte(`{"id":"t1","type":"text","x":1,"y":2,"width":100,"height":30,"field":"full_name"}`))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	tl := l.(*TextLayer)
	if !tl.Visible || tl.FontSize != 16 || tl.TextAlign != AlignLeft || tl.LineHeight != 1.2 {
		t.Fatalf("defaults not applied: %+v", tl)
	}
	if _, err := UnmarshalLayer([]byte(`{"id":"x","type":"video"}`)); !errors.Is(err, ErrInvalidTemplate) {
		t.Fatalf("unknown type err = %v", err)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	bad := []string{
		`{"canvas":{"width":0,"height":10},"front":{},"back":{}}`,
		`{"canvas":{"width":10,"height":10},"front":{"layers":[{"id":"a","type":"blob","x":0,"y":0,"width":1,"height":1}]},"back":{}}`,
		`{"canvas":{"width":10,"height":10},"front":{"layers":[{"type":"text","x":0,"y":0,"width":1,"height":1}]},"back":{}}`,
		`{"canvas":{"width":10,"height":10},"front":{}}`,
		`not json`,
	}
	for _, s := range bad {
		if _, err := Parse([]byte(s)); !errors.Is(err, ErrInvalidTemplate) {
			t.Errorf("Parse(%s) err = %v, want ErrInvalidTemplate", s, err)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	tpl := sampleTemplate()
	c := tpl.Clone()
	if !reflect.DeepEqual(tpl, c) {
		t.Fatalf("clone differs")
	}
	c.Front.Layers[0].Common().X = 999
	*c.Front.Layers[0].Common().Opacity = 0.1
	c.Front.Layers[0].(*TextLayer).TextShadow.Blur = 9
	*c.ID = 8
	if tpl.Front.Layers[0].Common().X == 999 || tpl.Front.Layers[0].Common().Alpha() != 0.5 {
		t.Fatalf("clone shares base state")
	}
	if tpl.Front.Layers[0].(*TextLayer).TextShadow.Blur != 2 || *tpl.ID != 7 {
		t.Fatalf("clone shares nested pointers")
	}
}

func TestSetCaseExclusive(t *testing.T) {
	l := NewTextLayer("t")
	l.SetCase(CaseUpper)
	if !l.Uppercase || l.Lowercase || l.Case() != CaseUpper {
		t.Fatalf("upper: %+v", l)
	}
	l.SetCase(CaseLower)
	if l.Uppercase || !l.Lowercase || l.Case() != CaseLower {
		t.Fatalf("lower: %+v", l)
	}
	l.SetCase(CaseNone)
	if l.Case() != CaseNone {
		t.Fatalf("none: %+v", l)
	}
}

func TestNormalize(t *testing.T) {
	op := 1.7
	a := NewTextLayer("dup")
	b := NewShapeLayer("dup")
	b.Rotation = -90
	b.Opacity = &op
	tpl := &Template{Front: Side{Layers: []Layer{a, b}}, Back: Side{Layers: []Layer{}}}
	tpl.Normalize()
	if tpl.Canvas.Width != DefaultCanvasWidth || tpl.Kind != KindStudent || tpl.Metadata.Version != CurrentVersion {
		t.Fatalf("defaults not filled: %+v", tpl)
	}
	if a.ID == b.ID || a.ID != "dup" || !strings.HasPrefix(b.ID, "shape_") {
		t.Fatalf("ids not made unique: %q %q", a.ID, b.ID)
	}
	if b.Rotation != 270 || b.Alpha() != 1 {
		t.Fatalf("rotation/opacity not normalized: %v %v", b.Rotation, b.Alpha())
	}
	if tpl.Back.Layers != nil {
		t.Fatalf("empty layer slice should normalize to nil")
	}
}

func TestNormalizeAngle(t *testing.T) {
	for in, want := range map[float64]float64{0: 0, 360: 0, 725: 5, -10: 350} {
		if got := NormalizeAngle(in); got != want {
			t.Errorf("NormalizeAngle(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestTouch(t *testing.T) {
	tpl := NewTemplate("x", "")
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.FixedZone("PHT", 8*3600))
	tpl.Touch(t1)
	t2 := t1.Add(time.Hour)
	tpl.Touch(t2)
	if !tpl.Metadata.CreatedAt.Equal(t1) || !tpl.Metadata.UpdatedAt.Equal(t2) {
		t.Fatalf("timestamps wrong: %v %v", tpl.Metadata.CreatedAt, tpl.Metadata.UpdatedAt)
	}
	if tpl.Metadata.UpdatedAt.Location() != time.UTC {
		t.Fatalf("timestamps must be UTC")
	}
}

func TestNewLayerAndID(t *testing.T) {
	l, err := NewLayer(LayerQRCode, "")
	if err != nil {
		t.Fatalf("NewLayer: %v", err)
	}
	if !strings.HasPrefix(l.Common().ID, "qr_code_") || len(l.Common().ID) != len("qr_code_")+12 {
		t.Fatalf("unexpected id %q", l.Common().ID)
	}
	if _, err := NewLayer("bogus", "x"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if NewID(LayerText) == NewID(LayerText) {
		t.Fatalf("ids should differ")
	}
}
