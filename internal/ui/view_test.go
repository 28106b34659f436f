/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"encoding/json"
	"math"
	"slices"
	"strings"
	"testing"

	"idcardstudio/internal/domain"
)

func almostEqual(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestViewportRoundTrip(t *testing.T) {
	v := viewport{width: 1000, height: 800, cardW: 591, cardH: 1004, zoom: 0.5, panX: 30, panY: -10}
	ox, oy := v.origin()
	if !almostEqual(ox, 500-147.75+30, 1e-9) || !almostEqual(oy, 400-251-10, 1e-9) {
		t.Fatalf("unexpected origin (%v,%v)", ox, oy)
	}
	sx, sy := v.toScreen(100, 200)
	lx, ly := v.local(sx, sy)
	// local is in screen pixels relative to the card, so dividing by zoom gives canvas units back
	if !almostEqual(lx/v.zoom, 100, 1e-9) || !almostEqual(ly/v.zoom, 200, 1e-9) {
		t.Fatalf("round trip mismatch: (%v,%v)", lx/v.zoom, ly/v.zoom)
	}
}

func TestViewportFit(t *testing.T) {
	v := viewport{width: 648, height: 550, cardW: 591, cardH: 1004}
	if got := v.fit(); !almostEqual(got, 0.5, 1e-9) {
		t.Fatalf("fit = %v, want 0.5", got)
	}
	v = viewport{width: 4000, height: 4000, cardW: 591, cardH: 1004}
	if got := v.fit(); got != 1 {
		t.Fatalf("fit should not enlarge, got %v", got)
	}
	v = viewport{width: 10, height: 10, cardW: 591, cardH: 1004}
	if got := v.fit(); got != minZoom {
		t.Fatalf("tiny widget should clamp to minZoom, got %v", got)
	}
}

func TestScrollZoomClamps(t *testing.T) {
	if got := scrollZoom(1, 10); !almostEqual(got, 1.05, 1e-9) {
		t.Fatalf("scrollZoom(1,10) = %v", got)
	}
	if got := scrollZoom(maxZoom, 1000); got != maxZoom {
		t.Fatalf("expected clamp to maxZoom, got %v", got)
	}
	if got := scrollZoom(minZoom, -1000); got != minZoom {
		t.Fatalf("expected clamp to minZoom, got %v", got)
	}
}

func TestLayerLabel(t *testing.T) {
	l := domain.NewShapeLayer("shape-1")
	l.Name = ""
	if got := layerLabel(l); got != "shape-1  [shape]" {
		t.Fatalf("unexpected label %q", got)
	}
	l.Name = "Header band"
	l.Visible = false
	l.Locked = true
	got := layerLabel(l)
	if !strings.HasPrefix(got, "Header band") || !strings.Contains(got, "(hidden, locked)") {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestTopmostFirst(t *testing.T) {
	a, b, c := domain.NewShapeLayer("a"), domain.NewShapeLayer("b"), domain.NewShapeLayer("c")
	got := topmostFirst([]domain.Layer{a, b, c})
	if got[0] != domain.Layer(c) || got[2] != domain.Layer(a) {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestWindowTitle(t *testing.T) {
	tpl := domain.NewTemplate("Student 2025", domain.KindStudent)
	if got := windowTitle(tpl, false); got != "ID Card Studio - Student 2025" {
		t.Fatalf("unexpected title %q", got)
	}
	id := int64(7)
	tpl.ID = &id
	if got := windowTitle(tpl, true); got != "ID Card Studio - Student 2025 #7 *" {
		t.Fatalf("unexpected title %q", got)
	}
}

func TestPropertiesJSONOmitsImmutableKeys(t *testing.T) {
	l := domain.NewTextLayer("text-1")
	s, err := propertiesJSON(l)
	if err != nil {
		t.Fatalf("propertiesJSON: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	for _, k := range []string{"id", "type", "zIndex"} {
		if _, ok := m[k]; ok {
			t.Fatalf("key %q should be omitted", k)
		}
	}
	if m["text"] != "Text" || m["x"] == nil {
		t.Fatalf("expected editable fields, got %v", m)
	}

	l.Locked = true
	s, err = propertiesJSON(l)
	if err != nil {
		t.Fatalf("propertiesJSON: %v", err)
	}
	if strings.Contains(s, `"width"`) || strings.Contains(s, `"rotation"`) {
		t.Fatalf("locked layer should not expose geometry: %s", s)
	}
}

func TestBindableFields(t *testing.T) {
	img := bindableFields(domain.KindStudent, domain.LayerImage)
	if !slices.Contains(img, "photo") || slices.Contains(img, "full_name") {
		t.Fatalf("unexpected image fields %v", img)
	}
	txt := bindableFields(domain.KindStudent, domain.LayerText)
	if !slices.Contains(txt, "full_name") || slices.Contains(txt, "photo") {
		t.Fatalf("unexpected text fields %v", txt)
	}
	if got := bindableFields(domain.KindStudent, domain.LayerShape); got != nil {
		t.Fatalf("shapes bind nothing, got %v", got)
	}
	if string(bindPatch("lrn")) != `{"field":"lrn"}` {
		t.Fatalf("unexpected patch %s", bindPatch("lrn"))
	}
}
