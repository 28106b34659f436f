/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"idcardstudio/internal/domain"
)

// ErrInvalidProperty is returned by ApplyProperties for malformed or forbidden changes.
var ErrInvalidProperty = errors.New("invalid property")

var (
	geometryKeys  = []string{"x", "y", "width", "height", "rotation"}
	immutableKeys = []string{"id", "type", "zIndex"}
)

// ApplyProperties merges patch, a JSON object of exchange-format layer fields, into
// the layer with id on the active side. Identity and stacking fields cannot be
// patched. Geometry changes on a locked layer make the whole patch a no-op.
// Geometry is clamped like an interactive edit. It reports whether anything changed.
func (e *Editor) ApplyProperties(id string, patch []byte) (bool, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(patch, &keys); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidProperty, err)
	}
	for _, k := range immutableKeys {
		if _, ok := keys[k]; ok {
			return false, fmt.Errorf("%w: %q cannot be edited", ErrInvalidProperty, k)
		}
	}
	l, i := e.activeSide().Find(id)
	if l == nil || e.session != nil {
		return false, nil
	}
	if l.Common().Locked && hasAny(keys, geometryKeys) {
		return false, nil
	}
	before, err := json.Marshal(l)
	if err != nil {
		return false, err
	}
	c := l.Clone()
	if err := json.Unmarshal(patch, c); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidProperty, err)
	}
	if err := e.settle(c, keys); err != nil {
		return false, err
	}
	after, err := json.Marshal(c)
	if err != nil {
		return false, err
	}
	if bytes.Equal(before, after) {
		return false, nil
	}
	return e.edit(propertiesLabel+id, func(s *domain.Side) bool {
		s.Layers[i] = c
		return true
	}), nil
}

// settle validates per-type fields and clamps geometry after a patch.
func (e *Editor) settle(l domain.Layer, keys map[string]json.RawMessage) error {
	switch v := l.(type) {
	case *domain.TextLayer:
		_, up := keys["uppercase"]
		_, low := keys["lowercase"]
		switch {
		case up && low && v.Uppercase && v.Lowercase:
			return fmt.Errorf("%w: uppercase and lowercase are exclusive", ErrInvalidProperty)
		case up && v.Uppercase:
			v.Lowercase = false
		case low && v.Lowercase:
			v.Uppercase = false
		}
		switch v.TextAlign {
		case domain.AlignLeft, domain.AlignCenter, domain.AlignRight, domain.AlignJustify:
		default:
			return fmt.Errorf("%w: textAlign %q", ErrInvalidProperty, v.TextAlign)
		}
		if v.FontSize <= 0 {
			return fmt.Errorf("%w: fontSize must be positive", ErrInvalidProperty)
		}
		if v.Field == "" {
			v.Field = domain.StaticField
		}
	case *domain.ImageLayer:
		switch v.ObjectFit {
		case domain.FitCover, domain.FitContain, domain.FitFill, domain.FitNone:
		default:
			return fmt.Errorf("%w: objectFit %q", ErrInvalidProperty, v.ObjectFit)
		}
	case *domain.ShapeLayer:
		switch v.Shape {
		case domain.ShapeRectangle, domain.ShapeCircle, domain.ShapeLine:
		default:
			return fmt.Errorf("%w: shape %q", ErrInvalidProperty, v.Shape)
		}
	case *domain.QRCodeLayer:
		switch v.ErrorCorrectionLevel {
		case "L", "M", "Q", "H":
		default:
			return fmt.Errorf("%w: errorCorrectionLevel %q", ErrInvalidProperty, v.ErrorCorrectionLevel)
		}
	}

	b := l.Common()
	if hasAny(keys, geometryKeys) {
		floor := e.cfg.MinLayerSize
		cw, ch := e.tpl.Canvas.Width, e.tpl.Canvas.Height
		b.Width = math.Min(math.Max(b.Width, floor), math.Max(cw, floor))
		b.Height = math.Min(math.Max(b.Height, floor), math.Max(ch, floor))
		b.X = math.Max(0, math.Min(b.X, math.Max(0, cw-b.Width)))
		b.Y = math.Max(0, math.Min(b.Y, math.Max(0, ch-b.Height)))
		b.Rotation = domain.NormalizeAngle(b.Rotation)
	}
	if b.Opacity != nil {
		o := math.Max(0, math.Min(1, *b.Opacity))
		b.Opacity = &o
	}
	return nil
}

func hasAny(keys map[string]json.RawMessage, names []string) bool {
	for _, n := range names {
		if _, ok := keys[n]; ok {
			return true
		}
	}
	return false
}

// propertiesLabel prefixes the history label of a property edit; the layer id follows
// so that only edits of the same layer coalesce.
const propertiesLabel = "properties "

func isPropertiesLabel(label string) bool { return strings.HasPrefix(label, propertiesLabel) }
