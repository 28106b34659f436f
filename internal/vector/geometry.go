/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package vector holds the 2D geometry used by the editor: points, axis-aligned
// rects, affine transforms, and rotated boxes for layer hit testing.
package vector

import "math"

// Pt is a 2D point in canvas units.
type Pt struct{ X, Y float64 }

func (p Pt) Add(o Pt) Pt        { return Pt{p.X + o.X, p.Y + o.Y} }
func (p Pt) Sub(o Pt) Pt        { return Pt{p.X - o.X, p.Y - o.Y} }
func (p Pt) Scale(f float64) Pt { return Pt{p.X * f, p.Y * f} }
func (p Pt) Len() float64       { return math.Hypot(p.X, p.Y) }
func (p Pt) Angle() float64     { return math.Atan2(p.Y, p.X) }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt    { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt    { return Pt{r.X + r.W, r.Y + r.H} }
func (r Rect) Center() Pt { return Pt{r.X + r.W/2, r.Y + r.H/2} }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Inset returns a rectangle inset by dx,dy on all sides (negative grows).
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W - 2*dx, H: r.H - 2*dy}
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Affine2D represents a 2D affine transform as matrix:
// | a c e |
// | b d f |
// | 0 0 1 |
type Affine2D struct{ A, B, C, D, E, F float64 }

var Identity = Affine2D{A: 1, D: 1}

func (m Affine2D) Mul(n Affine2D) Affine2D {
	return Affine2D{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

func (m Affine2D) Apply(p Pt) Pt {
	return Pt{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

// ApplyVec transforms a direction vector (translation ignored).
func (m Affine2D) ApplyVec(v Pt) Pt {
	return Pt{X: m.A*v.X + m.C*v.Y, Y: m.B*v.X + m.D*v.Y}
}

// Invert returns the inverse transform; a singular matrix yields Identity.
func (m Affine2D) Invert() Affine2D {
	det := m.A*m.D - m.B*m.C
	if det == 0 {
		return Identity
	}
	inv := 1 / det
	return Affine2D{
		A: m.D * inv,
		B: -m.B * inv,
		C: -m.C * inv,
		D: m.A * inv,
		E: (m.C*m.F - m.D*m.E) * inv,
		F: (m.B*m.E - m.A*m.F) * inv,
	}
}

func Translate(tx, ty float64) Affine2D { return Affine2D{A: 1, D: 1, E: tx, F: ty} }
func Scale(sx, sy float64) Affine2D     { return Affine2D{A: sx, D: sy} }

// Rotate returns a rotation by rad radians (clockwise on a y-down canvas).
func Rotate(rad float64) Affine2D {
	c, s := math.Cos(rad), math.Sin(rad)
	return Affine2D{A: c, B: s, C: -s, D: c}
}

// RotateDeg is Rotate with the angle in degrees.
func RotateDeg(deg float64) Affine2D { return Rotate(deg * math.Pi / 180) }

// About conjugates m so that it acts around center c.
func About(c Pt, m Affine2D) Affine2D {
	return Translate(c.X, c.Y).Mul(m).Mul(Translate(-c.X, -c.Y))
}

// Box is a rectangle rotated by Rotation degrees about its own center.
type Box struct {
	Rect
	Rotation float64
}

// ToWorld maps the box's local frame (origin at the unrotated min corner) to canvas space.
func (b Box) ToWorld() Affine2D {
	return About(b.Center(), RotateDeg(b.Rotation)).Mul(Translate(b.X, b.Y))
}

// ToLocal maps a canvas point into the box's unrotated local frame.
func (b Box) ToLocal(p Pt) Pt { return b.ToWorld().Invert().Apply(p) }

// Contains reports whether p lies inside the rotated box.
func (b Box) Contains(p Pt) bool {
	l := b.ToLocal(p)
	return l.X >= 0 && l.Y >= 0 && l.X <= b.W && l.Y <= b.H
}

// ContainsEllipse reports whether p lies inside the ellipse inscribed in the rotated box.
func (b Box) ContainsEllipse(p Pt) bool {
	if b.W <= 0 || b.H <= 0 {
		return false
	}
	l := b.ToLocal(p)
	rx, ry := b.W/2, b.H/2
	nx, ny := (l.X-rx)/rx, (l.Y-ry)/ry
	return nx*nx+ny*ny <= 1
}

// Corners returns the rotated corners in order nw, ne, se, sw.
func (b Box) Corners() [4]Pt {
	m := b.ToWorld()
	return [4]Pt{
		m.Apply(Pt{0, 0}),
		m.Apply(Pt{b.W, 0}),
		m.Apply(Pt{b.W, b.H}),
		m.Apply(Pt{0, b.H}),
	}
}

// Bounds returns the axis-aligned bounds of the rotated box.
func (b Box) Bounds() Rect {
	cs := b.Corners()
	minX, minY, maxX, maxY := cs[0].X, cs[0].Y, cs[0].X, cs[0].Y
	for _, c := range cs[1:] {
		minX, maxX = math.Min(minX, c.X), math.Max(maxX, c.X)
		minY, maxY = math.Min(minY, c.Y), math.Max(maxY, c.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
