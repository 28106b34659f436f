/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"log/slog"
	"math"
	"slices"

	"idcardstudio/internal/domain"
	"idcardstudio/internal/stack"
)

// UploadBound is the box an uploaded image is fitted into when it becomes a layer.
const UploadBound = 200

// AddLayer creates a layer of type t with its defaults on top of the active side
// and selects it. It returns the new id.
func (e *Editor) AddLayer(t domain.LayerType) (string, bool) {
	l, err := domain.NewLayer(t, e.cfg.NewID(t))
	if err != nil {
		e.log.Warn("add layer", slog.String("type", string(t)), slog.Any("err", err))
		return "", false
	}
	return e.insert(l, "add "+string(t))
}

// AddImage places a static image layer showing src, scaled to fit UploadBound
// while keeping the w:h aspect ratio.
func (e *Editor) AddImage(src string, w, h float64) (string, bool) {
	l := domain.NewImageLayer(e.cfg.NewID(domain.LayerImage))
	l.Field = ""
	l.Src = src
	l.Width, l.Height = FitWithin(w, h, UploadBound)
	return e.insert(l, "upload image")
}

func (e *Editor) insert(l domain.Layer, label string) (string, bool) {
	id := l.Common().ID
	ok := e.edit(label, func(s *domain.Side) bool {
		stack.Add(s, l)
		e.sel = id
		return true
	})
	return id, ok
}

// FitWithin scales w×h down (never up) to fit a bound×bound box. Degenerate sizes yield the full box.
func FitWithin(w, h, bound float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return bound, bound
	}
	r := math.Min(1, math.Min(bound/w, bound/h))
	return math.Round(w * r), math.Round(h * r)
}

// DeleteLayer removes a layer and clears the selection if it pointed at it.
// Locked and unknown layers are left alone.
func (e *Editor) DeleteLayer(id string) bool {
	return e.edit("delete", func(s *domain.Side) bool {
		if !stack.Remove(s, id) {
			return false
		}
		if e.sel == id {
			e.sel = ""
		}
		return true
	})
}

// DuplicateLayer copies a layer with a fresh id, offset by the configured delta on
// top of the stack, and selects the copy.
func (e *Editor) DuplicateLayer(id string) (string, bool) {
	var newID string
	ok := e.edit("duplicate", func(s *domain.Side) bool {
		l, _ := s.Find(id)
		if l == nil {
			return false
		}
		c, ok := stack.Duplicate(s, id, e.cfg.NewID(l.Type()), e.cfg.DuplicateOffset)
		if !ok {
			return false
		}
		newID = c.Common().ID
		e.sel = newID
		return true
	})
	return newID, ok
}

// Reorder assigns paint order from ids, bottom first.
func (e *Editor) Reorder(ids []string) bool {
	return e.edit("reorder", func(s *domain.Side) bool {
		before := stack.IDs(s)
		z := zIndexes(s)
		if !stack.Reorder(s, ids) {
			return false
		}
		return !slices.Equal(before, stack.IDs(s)) || !slices.Equal(z, zIndexes(s))
	})
}

func (e *Editor) BringToFront(id string) bool { return e.restack("bring to front", id, stack.BringToFront) }
func (e *Editor) SendToBack(id string) bool   { return e.restack("send to back", id, stack.SendToBack) }
func (e *Editor) Raise(id string) bool        { return e.restack("raise", id, stack.Raise) }
func (e *Editor) Lower(id string) bool        { return e.restack("lower", id, stack.Lower) }

func (e *Editor) restack(label, id string, op func(*domain.Side, string) bool) bool {
	return e.edit(label, func(s *domain.Side) bool {
		before := stack.IDs(s)
		z := zIndexes(s)
		if !op(s, id) {
			return false
		}
		return !slices.Equal(before, stack.IDs(s)) || !slices.Equal(z, zIndexes(s))
	})
}

func (e *Editor) ToggleVisibility(id string) bool {
	return e.edit("toggle visibility", func(s *domain.Side) bool { return stack.ToggleVisibility(s, id) })
}

func (e *Editor) ToggleLock(id string) bool {
	return e.edit("toggle lock", func(s *domain.Side) bool { return stack.ToggleLock(s, id) })
}

// SetCase sets the case transform of a text layer.
func (e *Editor) SetCase(id string, c domain.TextCase) bool {
	return e.edit("text case", func(s *domain.Side) bool {
		l, _ := s.Find(id)
		t, ok := l.(*domain.TextLayer)
		if !ok || t.Case() == c {
			return false
		}
		t.SetCase(c)
		return true
	})
}

// SetSideBackground sets the background image of the active side.
func (e *Editor) SetSideBackground(src string) bool {
	return e.edit("side background", func(s *domain.Side) bool {
		if s.BackgroundImage == src {
			return false
		}
		s.BackgroundImage = src
		return true
	})
}

// SetCanvasBackground sets the card background color shared by both sides.
func (e *Editor) SetCanvasBackground(color string) bool {
	return e.edit("canvas background", func(*domain.Side) bool {
		if color == "" || e.tpl.Canvas.BackgroundColor == color {
			return false
		}
		e.tpl.Canvas.BackgroundColor = color
		return true
	})
}

func zIndexes(s *domain.Side) []int {
	out := make([]int, len(s.Layers))
	for i, l := range s.Layers {
		out[i] = l.Common().ZIndex
	}
	return out
}
