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
	"fmt"
	"math"
	"strings"

	"idcardstudio/internal/bundle"
	"idcardstudio/internal/domain"
	"idcardstudio/internal/editor"
	"idcardstudio/internal/render"
	"idcardstudio/internal/workspace"
)

// Options configures the desktop editor.
type Options struct {
	Store    workspace.Store
	Uploader workspace.Uploader
	Editor   editor.Config
	// TemplateID opens a stored template at startup when non-zero.
	TemplateID int64
	// RecoveryDir receives crash reports and the autosaved template.
	RecoveryDir string
	// Record is shown in the preview; nil uses the sample for the template kind.
	Record render.Record
	// Assets is where bundle imports install images and where exports find them.
	Assets bundle.Assets
}

const (
	minZoom    = 0.1
	maxZoom    = 4.0
	zoomStep   = 0.05
	fitPadding = 24
)

// viewport maps between widget pixels and card canvas units. The card is centered
// in the widget, scaled by zoom and shifted by pan.
type viewport struct {
	width, height float64 // widget size
	cardW, cardH  float64
	zoom          float64
	panX, panY    float64
}

func (v viewport) origin() (x, y float64) {
	x = v.width/2 - v.cardW*v.zoom/2 + v.panX
	y = v.height/2 - v.cardH*v.zoom/2 + v.panY
	return x, y
}

// local converts a widget position to pixels relative to the card origin, the
// unit the editor's pointer methods take.
func (v viewport) local(x, y float64) (float64, float64) {
	ox, oy := v.origin()
	return x - ox, y - oy
}

// toScreen converts a canvas point to widget pixels.
func (v viewport) toScreen(cx, cy float64) (float64, float64) {
	ox, oy := v.origin()
	return ox + cx*v.zoom, oy + cy*v.zoom
}

// fit returns the zoom that shows the whole card with padding, capped at 1.
func (v viewport) fit() float64 {
	if v.cardW <= 0 || v.cardH <= 0 {
		return 1
	}
	w := v.width - 2*fitPadding
	h := v.height - 2*fitPadding
	if w <= 0 || h <= 0 {
		return minZoom
	}
	return clampZoom(math.Min(1, math.Min(w/v.cardW, h/v.cardH)))
}

func clampZoom(z float64) float64 {
	return math.Max(minZoom, math.Min(maxZoom, z))
}

// scrollZoom applies a wheel delta to the zoom.
func scrollZoom(z, dy float64) float64 {
	return clampZoom(z + dy*zoomStep/10)
}

// layerLabel is the row text of a layer in the layers panel, topmost first.
func layerLabel(l domain.Layer) string {
	b := l.Common()
	name := strings.TrimSpace(b.Name)
	if name == "" {
		name = b.ID
	}
	var flags []string
	if !b.Visible {
		flags = append(flags, "hidden")
	}
	if b.Locked {
		flags = append(flags, "locked")
	}
	s := fmt.Sprintf("%s  [%s]", name, l.Type())
	if len(flags) > 0 {
		s += " (" + strings.Join(flags, ", ") + ")"
	}
	return s
}

// topmostFirst reverses the paint order for the layers panel.
func topmostFirst(paint []domain.Layer) []domain.Layer {
	out := make([]domain.Layer, len(paint))
	for i, l := range paint {
		out[len(paint)-1-i] = l
	}
	return out
}

// windowTitle shows the template name and a dirty marker.
func windowTitle(tpl *domain.Template, dirty bool) string {
	t := "ID Card Studio - " + tpl.Name
	if tpl.ID != nil {
		t += fmt.Sprintf(" #%d", *tpl.ID)
	}
	if dirty {
		t += " *"
	}
	return t
}

// propertiesJSON renders the editable fields of l as indented exchange JSON.
// Identity and stacking keys are left out, and geometry too when l is locked.
func propertiesJSON(l domain.Layer) (string, error) {
	raw, err := json.Marshal(l)
	if err != nil {
		return "", err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}
	drop := []string{"id", "type", "zIndex"}
	if l.Common().Locked {
		drop = append(drop, "x", "y", "width", "height", "rotation")
	}
	for _, k := range drop {
		delete(m, k)
	}
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// bindableFields lists the record keys a layer of type t can bind to for kind.
// Image layers take image fields; text and QR layers take the rest. Shapes bind nothing.
func bindableFields(kind domain.Kind, t domain.LayerType) []string {
	if t == domain.LayerShape {
		return nil
	}
	var out []string
	for _, f := range render.Fields(kind) {
		if (f.Type == render.FieldImage) == (t == domain.LayerImage) {
			out = append(out, f.Key)
		}
	}
	return out
}

// bindPatch is the property patch that binds a layer to key.
func bindPatch(key string) []byte {
	b, _ := json.Marshal(map[string]string{"field": key})
	return b
}
