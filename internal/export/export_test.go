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
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"idcardstudio/internal/domain"
	"idcardstudio/internal/render"
)

func sampleCard() *domain.Template {
	tpl := domain.NewTemplate("Export", domain.KindStudent)
	bar := domain.NewShapeLayer("shape_bar")
	bar.X, bar.Y, bar.Width, bar.Height = 0, 0, 591, 120
	bar.Fill = "#1e3a8a"
	bar.BorderRadius = 12
	name := domain.NewTextLayer("text_name")
	name.Field = "full_name"
	name.Uppercase = true
	name.Rotation = 15
	name.ZIndex = 2
	photo := domain.NewImageLayer("image_photo")
	photo.ZIndex = 3
	photo.Opacity = ptr(0.5)
	qr := domain.NewQRCodeLayer("qr_id")
	qr.ZIndex = 4
	tpl.Front.Layers = []domain.Layer{bar, name, photo, qr}
	circle := domain.NewShapeLayer("shape_dot")
	circle.Shape = domain.ShapeCircle
	circle.Stroke, circle.StrokeWidth = "#000", 2
	line := domain.NewShapeLayer("shape_rule")
	line.Shape = domain.ShapeLine
	tpl.Back.Layers = []domain.Layer{circle, line}
	return tpl
}

func ptr[T any](v T) *T { return &v }

func frames(t *testing.T) []render.Frame {
	t.Helper()
	tpl := sampleCard()
	rec := render.Record{"full_name": "Maria <Santos> & Co", "id_number": "2025-0001"}
	return []render.Frame{
		render.Render(tpl, domain.Front, rec, render.Options{}),
		render.Render(tpl, domain.Back, rec, render.Options{}),
	}
}

func TestSVGContainsElements(t *testing.T) {
	f := frames(t)[0]
	data, err := SVG(f)
	if err != nil {
		t.Fatalf("SVG: %v", err)
	}
	s := string(data)
	for _, want := range []string{
		`viewBox="0 0 591 1004"`,
		`fill="#1e3a8a"`,
		`rx="12"`,
		`MARIA &lt;SANTOS&gt; &amp; CO`,
		`transform="rotate(15 `,
		`opacity="0.5"`,
		`stroke-dasharray="6 4"`,
		`shape-rendering="crispEdges"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("svg missing %q", want)
		}
	}
	if strings.Index(s, `id="shape_bar"`) > strings.Index(s, `id="qr_id"`) {
		t.Errorf("elements not in paint order")
	}
}

func TestSVGBackShapes(t *testing.T) {
	data, err := SVG(frames(t)[1])
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, "<ellipse") || !strings.Contains(s, "<line") {
		t.Fatalf("back side shapes missing:\n%s", s)
	}
}

func TestWriteSVGFiles(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteSVGFiles(filepath.Join(dir, "out"), "card", frames(t)...)
	if err != nil {
		t.Fatalf("WriteSVGFiles: %v", err)
	}
	if len(paths) != 2 || !strings.HasSuffix(paths[1], "card-back.svg") {
		t.Fatalf("paths = %v", paths)
	}
	for _, p := range paths {
		if st, err := os.Stat(p); err != nil || st.Size() == 0 {
			t.Fatalf("stat %s: %v", p, err)
		}
	}
}

func TestPDFTwoPages(t *testing.T) {
	var buf bytes.Buffer
	if err := PDF(&buf, frames(t), PDFOptions{Title: "Proof", IncludeGuides: true}); err != nil {
		t.Fatalf("PDF: %v", err)
	}
	out := buf.Bytes()
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("not a pdf")
	}
	pages := bytes.Count(out, []byte("/Type /Page")) - bytes.Count(out, []byte("/Type /Pages"))
	if pages != 2 {
		t.Fatalf("pages = %d, want 2", pages)
	}
}

func TestPDFNoFrames(t *testing.T) {
	if err := PDF(&bytes.Buffer{}, nil, PDFOptions{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPDFEmbedsDataURLImage(t *testing.T) {
	var img bytes.Buffer
	q := qrElement(t)
	if err := QRPNG(&img, q, QRPNGOptions{Scale: 2}); err != nil {
		t.Fatal(err)
	}
	tpl := domain.NewTemplate("img", domain.KindStudent)
	l := domain.NewImageLayer("image_logo")
	l.Field = ""
	l.Src = "data:image/png;base64," + base64.StdEncoding.EncodeToString(img.Bytes())
	tpl.Front.Layers = []domain.Layer{l}
	var buf bytes.Buffer
	f := render.Render(tpl, domain.Front, nil, render.Options{})
	if err := PDF(&buf, []render.Frame{f}, PDFOptions{}); err != nil {
		t.Fatalf("PDF: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("/Subtype /Image")) {
		t.Fatalf("image not embedded")
	}
}

func qrElement(t *testing.T) *render.QRElement {
	t.Helper()
	m, err := render.Matrix("2025-0001", "M")
	if err != nil {
		t.Fatal(err)
	}
	return &render.QRElement{Payload: "2025-0001", Foreground: "#000000", Background: "#ffffff", Modules: m, Size: len(m)}
}

func TestQRPNG(t *testing.T) {
	q := qrElement(t)
	var buf bytes.Buffer
	if err := QRPNG(&buf, q, QRPNGOptions{Scale: 4, Quiet: 2}); err != nil {
		t.Fatalf("QRPNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := (q.Size + 4) * 4
	if b := img.Bounds(); b.Dx() != want || b.Dy() != want {
		t.Fatalf("size = %v, want %d", b, want)
	}
	// top-left finder pattern module is dark, quiet zone is light
	if r, _, _, _ := img.At(2*4, 2*4).RGBA(); r != 0 {
		t.Fatalf("finder module not dark")
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r == 0 {
		t.Fatalf("quiet zone not light")
	}
	if err := QRPNG(&buf, &render.QRElement{}, QRPNGOptions{}); err == nil {
		t.Fatalf("expected error for empty matrix")
	}
}

func TestParseColor(t *testing.T) {
	cases := map[string]bool{"#fff": true, "#1E3A8A": true, "#00000000": false, "transparent": false, "": false, "#12": false}
	for in, ok := range cases {
		if _, got := ParseColor(in); got != ok {
			t.Errorf("ParseColor(%q) ok = %v, want %v", in, got, ok)
		}
	}
	if c, _ := ParseColor("#abc"); c.R != 0xaa || c.G != 0xbb || c.B != 0xcc {
		t.Errorf("short form = %v", c)
	}
}
