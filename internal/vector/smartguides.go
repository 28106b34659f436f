/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Alignment guides for dragging a layer against the canvas and its sibling layers.
// Deterministic and UI-agnostic so the editor can test them headless.

import "math"

// GuideOptions controls which guide candidates are considered and the threshold.
type GuideOptions struct {
	// Threshold is the maximum distance in canvas units at which snapping occurs.
	Threshold     float64
	SnapToEdges   bool
	SnapToCenters bool
}

// Anchor is a static reference rect; Weight biases selection on ties (higher wins).
type Anchor struct {
	Rect   Rect
	Weight float64
}

// Orientation of a guide line.
type Orientation string

const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
)

// GuideLine describes a guide drawn while a snap is in effect.
// Position is the x (vertical) or y (horizontal) coordinate.
type GuideLine struct {
	Orientation Orientation
	Kind        string // "edge" or "center"
	Position    float64
	From        Pt
	To          Pt
}

type axisBest struct {
	delta, dist float64
	pos         float64
	kind        string
	anchor      Rect
	ok          bool
}

func (b *axisBest) consider(delta, threshold, weight, pos float64, kind string, anchor Rect) {
	dist := math.Abs(delta)
	if dist > threshold {
		return
	}
	score := dist / math.Max(1, weight)
	if !b.ok || score < b.dist {
		*b = axisBest{delta: delta, dist: score, pos: pos, kind: kind, anchor: anchor, ok: true}
	}
}

// features returns (min edge, center, max edge) along one axis.
func features(lo, size float64) [3]float64 { return [3]float64{lo, lo + size/2, lo + size} }

// ComputeSmartGuides snaps a moving rect to nearby anchor edges and centers.
// X and Y are snapped independently; the returned guides show which alignments won.
func ComputeSmartGuides(moving Rect, anchors []Anchor, opts GuideOptions) (Rect, []GuideLine) {
	if opts.Threshold <= 0 {
		opts.Threshold = 6
	}
	var bx, by axisBest
	mx := features(moving.X, moving.W)
	my := features(moving.Y, moving.H)
	for _, a := range anchors {
		ax := features(a.Rect.X, a.Rect.W)
		ay := features(a.Rect.Y, a.Rect.H)
		if opts.SnapToEdges {
			for _, m := range []int{0, 2} {
				for _, n := range []int{0, 2} {
					bx.consider(mx[m]-ax[n], opts.Threshold, a.Weight, ax[n], "edge", a.Rect)
					by.consider(my[m]-ay[n], opts.Threshold, a.Weight, ay[n], "edge", a.Rect)
				}
			}
		}
		if opts.SnapToCenters {
			bx.consider(mx[1]-ax[1], opts.Threshold, a.Weight, ax[1], "center", a.Rect)
			by.consider(my[1]-ay[1], opts.Threshold, a.Weight, ay[1], "center", a.Rect)
		}
	}

	snapped := moving
	var guides []GuideLine
	if bx.ok {
		snapped.X = FloatRound(moving.X-bx.delta, 3)
		x := FloatRound(bx.pos, 3)
		lo := math.Min(snapped.Y, bx.anchor.Y)
		hi := math.Max(snapped.Y+snapped.H, bx.anchor.Y+bx.anchor.H)
		guides = append(guides, GuideLine{Orientation: Vertical, Kind: bx.kind, Position: x, From: Pt{x, lo}, To: Pt{x, hi}})
	}
	if by.ok {
		snapped.Y = FloatRound(moving.Y-by.delta, 3)
		y := FloatRound(by.pos, 3)
		lo := math.Min(snapped.X, by.anchor.X)
		hi := math.Max(snapped.X+snapped.W, by.anchor.X+by.anchor.W)
		guides = append(guides, GuideLine{Orientation: Horizontal, Kind: by.kind, Position: y, From: Pt{lo, y}, To: Pt{hi, y}})
	}
	return snapped, guides
}
