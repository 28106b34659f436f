/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package stack implements the structural operations on a side's layer stack:
// insertion, removal, duplication, z-order and the visibility/lock toggles.
//
// Operations on missing ids, and removal or reordering of locked layers, are
// silent no-ops reported through the boolean result.
package stack

import (
	"sort"

	"idcardstudio/internal/domain"
)

// DuplicateOffset is the default visual offset applied to duplicated layers.
const DuplicateOffset = 20

// CopySuffix is appended to the display name of duplicated layers.
const CopySuffix = " (copy)"

// Ordered returns the layers in paint order: ascending zIndex, ties by insertion order.
func Ordered(s *domain.Side) []domain.Layer {
	out := append([]domain.Layer(nil), s.Layers...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Common().ZIndex < out[j].Common().ZIndex
	})
	return out
}

// MaxZ returns the highest zIndex on the side, or 0 when empty.
func MaxZ(s *domain.Side) int {
	m := 0
	for _, l := range s.Layers {
		if z := l.Common().ZIndex; z > m {
			m = z
		}
	}
	return m
}

// Add appends l on top of the stack (zIndex = max+1).
func Add(s *domain.Side, l domain.Layer) {
	l.Common().ZIndex = MaxZ(s) + 1
	s.Layers = append(s.Layers, l)
}

// Remove deletes the layer with id. Locked or missing layers are kept.
func Remove(s *domain.Side, id string) bool {
	l, i := s.Find(id)
	if l == nil || l.Common().Locked {
		return false
	}
	s.Layers = append(s.Layers[:i:i], s.Layers[i+1:]...)
	if len(s.Layers) == 0 {
		s.Layers = nil
	}
	return true
}

// Duplicate deep-copies the layer with id under newID, offset by (offset, offset),
// on top of the stack. The copy starts unlocked.
func Duplicate(s *domain.Side, id, newID string, offset float64) (domain.Layer, bool) {
	l, _ := s.Find(id)
	if l == nil {
		return nil, false
	}
	if newID == "" {
		newID = domain.NewID(l.Type())
	}
	c := l.Clone()
	b := c.Common()
	b.ID = newID
	b.X += offset
	b.Y += offset
	b.Locked = false
	if b.Name != "" {
		b.Name += CopySuffix
	}
	Add(s, c)
	return c, true
}

// Reorder assigns zIndex 1..N following ids (bottom first). Ids must name every layer
// on the side exactly once. The call is rejected when a locked layer would change rank.
func Reorder(s *domain.Side, ids []string) bool {
	if len(ids) != len(s.Layers) {
		return false
	}
	byID := make(map[string]domain.Layer, len(s.Layers))
	for _, l := range s.Layers {
		byID[l.Common().ID] = l
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if byID[id] == nil || seen[id] {
			return false
		}
		seen[id] = true
	}
	current := Ordered(s)
	for i, l := range current {
		if l.Common().Locked && ids[i] != l.Common().ID {
			return false
		}
	}
	for i, id := range ids {
		byID[id].Common().ZIndex = i + 1
	}
	return true
}

// Renormalize rewrites zIndex to a dense 1..N ordering keeping the current paint order.
func Renormalize(s *domain.Side) {
	for i, l := range Ordered(s) {
		l.Common().ZIndex = i + 1
	}
}

// IDs returns the layer ids in paint order.
func IDs(s *domain.Side) []string {
	ord := Ordered(s)
	out := make([]string, len(ord))
	for i, l := range ord {
		out[i] = l.Common().ID
	}
	return out
}

func move(s *domain.Side, id string, to func(ids []string, i int) []string) bool {
	ids := IDs(s)
	for i, cur := range ids {
		if cur == id {
			return Reorder(s, to(ids, i))
		}
	}
	return false
}

// BringToFront moves the layer to the top of the paint order.
func BringToFront(s *domain.Side, id string) bool {
	return move(s, id, func(ids []string, i int) []string {
		rest := append(append([]string{}, ids[:i]...), ids[i+1:]...)
		return append(rest, ids[i])
	})
}

// SendToBack moves the layer to the bottom of the paint order.
func SendToBack(s *domain.Side, id string) bool {
	return move(s, id, func(ids []string, i int) []string {
		rest := append(append([]string{}, ids[:i]...), ids[i+1:]...)
		return append([]string{ids[i]}, rest...)
	})
}

// Raise swaps the layer with the one painted directly above it.
func Raise(s *domain.Side, id string) bool {
	return move(s, id, func(ids []string, i int) []string {
		out := append([]string{}, ids...)
		if i < len(out)-1 {
			out[i], out[i+1] = out[i+1], out[i]
		}
		return out
	})
}

// Lower swaps the layer with the one painted directly below it.
func Lower(s *domain.Side, id string) bool {
	return move(s, id, func(ids []string, i int) []string {
		out := append([]string{}, ids...)
		if i > 0 {
			out[i], out[i-1] = out[i-1], out[i]
		}
		return out
	})
}

// ToggleVisibility flips the visible flag. Allowed on locked layers.
func ToggleVisibility(s *domain.Side, id string) bool {
	l, _ := s.Find(id)
	if l == nil {
		return false
	}
	b := l.Common()
	b.Visible = !b.Visible
	return true
}

// ToggleLock flips the locked flag.
func ToggleLock(s *domain.Side, id string) bool {
	l, _ := s.Find(id)
	if l == nil {
		return false
	}
	b := l.Common()
	b.Locked = !b.Locked
	return true
}
