/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transform

import (
	"idcardstudio/internal/domain"
	"idcardstudio/internal/vector"
)

// Handle names a resize grip (or the rotate grip) of the selection frame.
type Handle string

const (
	HandleN      Handle = "n"
	HandleS      Handle = "s"
	HandleE      Handle = "e"
	HandleW      Handle = "w"
	HandleNE     Handle = "ne"
	HandleNW     Handle = "nw"
	HandleSE     Handle = "se"
	HandleSW     Handle = "sw"
	HandleRotate Handle = "rotate"
)

// ResizeHandles lists the eight resize grips clockwise from the top-left corner.
var ResizeHandles = []Handle{HandleNW, HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW}

// RotateHandleOffset is the distance of the rotate grip above the top edge, in canvas units.
const RotateHandleOffset = 30

func (h Handle) edges() (n, s, e, w bool) {
	switch h {
	case HandleN:
		n = true
	case HandleS:
		s = true
	case HandleE:
		e = true
	case HandleW:
		w = true
	case HandleNE:
		n, e = true, true
	case HandleNW:
		n, w = true, true
	case HandleSE:
		s, e = true, true
	case HandleSW:
		s, w = true, true
	}
	return
}

// IsResize reports whether h is one of the eight resize grips.
func (h Handle) IsResize() bool {
	n, s, e, w := h.edges()
	return n || s || e || w
}

// local returns the grip position in the layer's unrotated frame.
func (h Handle) local(width, height float64) vector.Pt {
	switch h {
	case HandleNW:
		return vector.Pt{X: 0, Y: 0}
	case HandleN:
		return vector.Pt{X: width / 2, Y: 0}
	case HandleNE:
		return vector.Pt{X: width, Y: 0}
	case HandleE:
		return vector.Pt{X: width, Y: height / 2}
	case HandleSE:
		return vector.Pt{X: width, Y: height}
	case HandleS:
		return vector.Pt{X: width / 2, Y: height}
	case HandleSW:
		return vector.Pt{X: 0, Y: height}
	case HandleW:
		return vector.Pt{X: 0, Y: height / 2}
	case HandleRotate:
		return vector.Pt{X: width / 2, Y: -RotateHandleOffset}
	}
	return vector.Pt{}
}

// HandlePosition returns the canvas position of grip h for geometry g.
func HandlePosition(g Geometry, h Handle) vector.Pt {
	return g.Box().ToWorld().Apply(h.local(g.Width, g.Height))
}

// HandleAt returns the grip of g under canvas point p. Radius is in canvas units.
// The rotate grip is checked first, then corners before edges.
func HandleAt(g Geometry, p vector.Pt, radius float64) (Handle, bool) {
	l := g.Box().ToLocal(p)
	order := append([]Handle{HandleRotate}, HandleNW, HandleNE, HandleSE, HandleSW, HandleN, HandleE, HandleS, HandleW)
	for _, h := range order {
		if l.Sub(h.local(g.Width, g.Height)).Len() <= radius {
			return h, true
		}
	}
	return "", false
}

// Contains reports whether canvas point p lies on the painted region of l.
// Circles use the inscribed ellipse; everything else the rotated box.
func Contains(l domain.Layer, p vector.Pt) bool {
	box := Of(l.Common()).Box()
	if s, ok := l.(*domain.ShapeLayer); ok && s.Shape == domain.ShapeCircle {
		return box.ContainsEllipse(p)
	}
	return box.Contains(p)
}

// HitTest returns the topmost visible layer under p. Layers must be in paint order
// (ascending zIndex); the last match wins.
func HitTest(paintOrder []domain.Layer, p vector.Pt) domain.Layer {
	for i := len(paintOrder) - 1; i >= 0; i-- {
		l := paintOrder[i]
		if !l.Common().Visible {
			continue
		}
		if Contains(l, p) {
			return l
		}
	}
	return nil
}
