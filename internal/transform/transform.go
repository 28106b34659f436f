/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package transform implements the geometry of interactive layer editing:
// move with grid snap and canvas clamping, rotation-aware resize from eight
// handles, rotation about the layer center, and hit testing.
package transform

import (
	"math"

	"idcardstudio/internal/domain"
	"idcardstudio/internal/vector"
)

// Defaults used when Options leaves a value unset.
const (
	DefaultGridSize = 10
	DefaultMinSize  = 20
)

// Geometry is the editable placement of a layer.
type Geometry struct {
	X, Y, Width, Height float64
	Rotation            float64
}

// Of reads the geometry of a layer.
func Of(b *domain.Base) Geometry {
	return Geometry{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height, Rotation: b.Rotation}
}

// ApplyTo writes g into b.
func (g Geometry) ApplyTo(b *domain.Base) {
	b.X, b.Y, b.Width, b.Height, b.Rotation = g.X, g.Y, g.Width, g.Height, g.Rotation
}

func (g Geometry) Rect() vector.Rect { return vector.R(g.X, g.Y, g.Width, g.Height) }
func (g Geometry) Box() vector.Box   { return vector.Box{Rect: g.Rect(), Rotation: g.Rotation} }

// Options configures snapping and clamping.
type Options struct {
	GridSize     float64
	Snap         bool
	MinSize      float64
	CanvasWidth  float64
	CanvasHeight float64
	// RotationSnap rounds rotation to multiples of this many degrees; 0 disables it.
	RotationSnap float64
	// Anchors enable smart guides for moves when non-empty.
	Anchors []vector.Anchor
	Guides  vector.GuideOptions
}

// DefaultOptions returns grid 10 with snap on, the minimum size floor and the canvas bounds.
func DefaultOptions(c domain.Canvas) Options {
	return Options{GridSize: DefaultGridSize, Snap: true, MinSize: DefaultMinSize, CanvasWidth: c.Width, CanvasHeight: c.Height}
}

func (o Options) grid() float64 {
	if o.GridSize > 0 {
		return o.GridSize
	}
	return DefaultGridSize
}

func (o Options) minSize() float64 {
	if o.MinSize > 0 {
		return o.MinSize
	}
	return DefaultMinSize
}

func (o Options) snap(v float64) float64 {
	if !o.Snap {
		return v
	}
	g := o.grid()
	return math.Round(v/g) * g
}

// clampAxis keeps [pos, pos+size] inside [0, limit]. A non-positive limit disables clamping.
func clampAxis(pos, size, limit float64) float64 {
	if limit <= 0 {
		return pos
	}
	return math.Max(0, math.Min(pos, math.Max(0, limit-size)))
}

// Move computes the position for a drag: start + (cur-startPtr)/zoom, snapped and clamped.
func Move(start Geometry, startPtr, curPtr vector.Pt, zoom float64, o Options) Geometry {
	g, _ := MoveGuided(start, startPtr, curPtr, zoom, o)
	return g
}

// MoveGuided is Move with smart guides. An axis aligned by a guide is not grid-snapped.
func MoveGuided(start Geometry, startPtr, curPtr vector.Pt, zoom float64, o Options) (Geometry, []vector.GuideLine) {
	if zoom <= 0 {
		zoom = 1
	}
	d := curPtr.Sub(startPtr).Scale(1 / zoom)
	g := start
	g.X += d.X
	g.Y += d.Y

	var guides []vector.GuideLine
	guidedX, guidedY := false, false
	if len(o.Anchors) > 0 {
		var snapped vector.Rect
		snapped, guides = vector.ComputeSmartGuides(g.Rect(), o.Anchors, o.Guides)
		for _, gl := range guides {
			switch gl.Orientation {
			case vector.Vertical:
				guidedX = true
			case vector.Horizontal:
				guidedY = true
			}
		}
		g.X, g.Y = snapped.X, snapped.Y
	}
	if !guidedX {
		g.X = o.snap(g.X)
	}
	if !guidedY {
		g.Y = o.snap(g.Y)
	}
	g.X = clampAxis(g.X, g.Width, o.CanvasWidth)
	g.Y = clampAxis(g.Y, g.Height, o.CanvasHeight)
	return g, guides
}

// LocalDelta projects a canvas-space delta into the unrotated frame of a layer rotated by deg.
func LocalDelta(dx, dy, deg float64) (float64, float64) {
	v := vector.RotateDeg(-deg).ApplyVec(vector.Pt{X: dx, Y: dy})
	return v.X, v.Y
}

// Resize applies one incremental canvas-space delta through handle h.
// East/south handles grow by the local delta; west/north handles shrink by it and
// shift the origin by the canvas delta. When the minimum size clamps a west/north
// resize, the origin shift is scaled by the fraction of the change actually applied.
func Resize(g Geometry, h Handle, dx, dy float64, o Options) Geometry {
	n, s, e, w := h.edges()
	if !(n || s || e || w) {
		return g
	}
	ldx, ldy := LocalDelta(dx, dy, g.Rotation)
	minSize := o.minSize()
	out := g

	if e {
		out.Width = math.Max(minSize, g.Width+ldx)
	}
	if w {
		out.Width, out.X = shrinkFrom(g.Width, g.X, -ldx, dx, minSize)
	}
	if s {
		out.Height = math.Max(minSize, g.Height+ldy)
	}
	if n {
		out.Height, out.Y = shrinkFrom(g.Height, g.Y, -ldy, dy, minSize)
	}

	if e || w {
		out.Width = math.Max(minSize, o.snap(out.Width))
		out.X = o.snap(out.X)
	}
	if n || s {
		out.Height = math.Max(minSize, o.snap(out.Height))
		out.Y = o.snap(out.Y)
	}
	return clampBox(out, o)
}

// shrinkFrom grows size by grow (negative shrinks) while moving pos by shift,
// scaling the shift when the floor limits the size change.
func shrinkFrom(size, pos, grow, shift, floor float64) (float64, float64) {
	want := size + grow
	if want >= floor {
		return want, pos + shift
	}
	if grow == 0 {
		return math.Max(size, floor), pos
	}
	applied := floor - size
	frac := applied / grow
	if frac < 0 {
		frac = 0
	}
	return floor, pos + shift*frac
}

// clampBox keeps the box on the canvas, trimming size before moving the origin.
// An edge dragged past the canvas origin is cut there so the opposite edge stays put.
func clampBox(g Geometry, o Options) Geometry {
	minSize := o.minSize()
	if o.CanvasWidth > 0 {
		if g.X < 0 {
			g.Width = math.Max(minSize, g.Width+g.X)
			g.X = 0
		}
		if g.X+g.Width > o.CanvasWidth {
			g.Width = math.Max(minSize, o.CanvasWidth-g.X)
		}
		g.X = clampAxis(g.X, g.Width, o.CanvasWidth)
	}
	if o.CanvasHeight > 0 {
		if g.Y < 0 {
			g.Height = math.Max(minSize, g.Height+g.Y)
			g.Y = 0
		}
		if g.Y+g.Height > o.CanvasHeight {
			g.Height = math.Max(minSize, o.CanvasHeight-g.Y)
		}
		g.Y = clampAxis(g.Y, g.Height, o.CanvasHeight)
	}
	return g
}

// Rotate computes the rotation for a rotate drag about the layer center.
// The angle is absolute from the session start, not incremental.
func Rotate(start Geometry, startPtr, curPtr vector.Pt, o Options) Geometry {
	c := start.Rect().Center()
	a0 := startPtr.Sub(c).Angle()
	a1 := curPtr.Sub(c).Angle()
	deg := start.Rotation + (a1-a0)*180/math.Pi
	if o.RotationSnap > 0 {
		deg = math.Round(deg/o.RotationSnap) * o.RotationSnap
	}
	g := start
	g.Rotation = domain.NormalizeAngle(deg)
	return g
}

// MoveLayer moves l in place. Locked layers are left untouched and false is returned.
func MoveLayer(l domain.Layer, start Geometry, startPtr, curPtr vector.Pt, zoom float64, o Options) bool {
	b := l.Common()
	if b.Locked {
		return false
	}
	Move(start, startPtr, curPtr, zoom, o).ApplyTo(b)
	return true
}

// ResizeLayer resizes l in place by one canvas-space delta. Locked layers are rejected.
func ResizeLayer(l domain.Layer, h Handle, dx, dy float64, o Options) bool {
	b := l.Common()
	if b.Locked {
		return false
	}
	Resize(Of(b), h, dx, dy, o).ApplyTo(b)
	return true
}
