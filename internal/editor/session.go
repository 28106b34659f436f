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

	"idcardstudio/internal/domain"
	"idcardstudio/internal/stack"
	"idcardstudio/internal/transform"
	"idcardstudio/internal/undo"
	"idcardstudio/internal/vector"
)

// SessionKind discriminates ActiveSession.
type SessionKind int

const (
	SessionNone SessionKind = iota
	SessionMove
	SessionResize
	SessionRotate
)

func (k SessionKind) String() string {
	switch k {
	case SessionMove:
		return "move"
	case SessionResize:
		return "resize"
	case SessionRotate:
		return "rotate"
	}
	return "none"
}

// ActiveSession is one pointer drag bound to a single layer. Points are in screen
// pixels relative to the canvas origin; canvas units are screen pixels divided by zoom.
// A session value is never modified in place; each change installs a new one.
type ActiveSession struct {
	Kind    SessionKind
	Side    domain.SideName
	LayerID string
	Handle  transform.Handle
	// Start is the layer geometry when the session began.
	Start transform.Geometry
	// StartPtr is the pointer at session start (move, rotate).
	StartPtr vector.Pt
	// Anchor is the pointer of the last applied resize step.
	Anchor vector.Pt
}

// Session returns the active session; Kind is SessionNone when idle.
func (e *Editor) Session() ActiveSession {
	if e.session == nil {
		return ActiveSession{}
	}
	return *e.session
}

func (e *Editor) toCanvas(p vector.Pt) vector.Pt { return p.Scale(1 / e.zoom) }

// PointerDown routes a press at screen point p. A grip of the selected layer starts
// a resize or rotate; otherwise the topmost visible layer under p is selected and,
// unless locked, a move starts. A press on empty canvas clears the selection.
// It reports whether a session started.
func (e *Editor) PointerDown(p vector.Pt) bool {
	if e.session != nil {
		return false
	}
	c := e.toCanvas(p)
	if l := e.selectedLayer(); l != nil && l.Common().Visible {
		g := transform.Of(l.Common())
		if h, ok := transform.HandleAt(g, c, e.cfg.HandleRadius/e.zoom); ok {
			if h == transform.HandleRotate {
				return e.BeginRotate(l.Common().ID, p)
			}
			return e.BeginResize(l.Common().ID, h, p)
		}
	}
	hit := transform.HitTest(stack.Ordered(e.activeSide()), c)
	if hit == nil {
		e.ClearSelection()
		return false
	}
	prev := e.selection()
	e.sel = hit.Common().ID
	e.changed()
	return e.start(SessionMove, e.sel, "", p, prev)
}

// BeginMove starts a move session for id at screen point p.
func (e *Editor) BeginMove(id string, p vector.Pt) bool {
	return e.begin(SessionMove, id, "", p)
}

// BeginResize starts a resize session dragging grip h.
func (e *Editor) BeginResize(id string, h transform.Handle, p vector.Pt) bool {
	if !h.IsResize() {
		return false
	}
	return e.begin(SessionResize, id, h, p)
}

// BeginRotate starts a rotate session about the layer center.
func (e *Editor) BeginRotate(id string, p vector.Pt) bool {
	return e.begin(SessionRotate, id, transform.HandleRotate, p)
}

func (e *Editor) begin(kind SessionKind, id string, h transform.Handle, p vector.Pt) bool {
	return e.start(kind, id, h, p, e.selection())
}

// start opens a session. prev is the selection undo returns to, taken before any
// selection change made by the press that starts the session.
func (e *Editor) start(kind SessionKind, id string, h transform.Handle, p vector.Pt, prev undo.Selection) bool {
	if e.session != nil {
		return false
	}
	l, _ := e.activeSide().Find(id)
	if l == nil || l.Common().Locked {
		return false
	}
	e.history.SetSelection(prev)
	e.sel = id
	e.session = &ActiveSession{
		Kind:     kind,
		Side:     e.side,
		LayerID:  id,
		Handle:   h,
		Start:    transform.Of(l.Common()),
		StartPtr: p,
		Anchor:   p,
	}
	e.pending = nil
	e.log.Debug("session start", slog.String("kind", kind.String()), slog.String("layer", id))
	e.changed()
	return true
}

// PointerMove records p as the pending pointer position and asks for a frame.
// Moves arriving before the frame overwrite each other; only the last is applied.
func (e *Editor) PointerMove(p vector.Pt) {
	if e.session == nil {
		return
	}
	e.pending = &p
	if e.frameRequested {
		return
	}
	e.frameRequested = true
	e.cfg.Frames.RequestFrame(e.flush)
}

// flush applies the pending pointer move, if any.
func (e *Editor) flush() {
	e.frameRequested = false
	if e.session == nil || e.pending == nil {
		return
	}
	p := *e.pending
	e.pending = nil
	e.apply(p)
}

func (e *Editor) apply(p vector.Pt) {
	s := e.session
	l, _ := e.tpl.Side(s.Side).Find(s.LayerID)
	if l == nil {
		return
	}
	b := l.Common()
	o := e.options()
	switch s.Kind {
	case SessionMove:
		if e.cfg.SmartGuides {
			o.Anchors = e.anchors(s.LayerID)
		}
		var g transform.Geometry
		g, e.guides = transform.MoveGuided(s.Start, s.StartPtr, p, e.zoom, o)
		g.ApplyTo(b)
	case SessionResize:
		d := p.Sub(s.Anchor).Scale(1 / e.zoom)
		before := transform.Of(b)
		after := transform.Resize(before, s.Handle, d.X, d.Y, o)
		if after == before {
			return
		}
		after.ApplyTo(b)
		next := *s
		next.Anchor = p
		e.session = &next
	case SessionRotate:
		transform.Rotate(s.Start, e.toCanvas(s.StartPtr), e.toCanvas(p), o).ApplyTo(b)
	}
	e.changed()
}

// anchors collects the canvas and the other visible layers on the side as guide targets.
func (e *Editor) anchors(skip string) []vector.Anchor {
	out := []vector.Anchor{{Rect: vector.R(0, 0, e.tpl.Canvas.Width, e.tpl.Canvas.Height), Weight: 1}}
	for _, l := range e.activeSide().Layers {
		b := l.Common()
		if b.ID == skip || !b.Visible {
			continue
		}
		out = append(out, vector.Anchor{Rect: transform.Of(b).Box().Bounds()})
	}
	return out
}

// PointerUp ends the session. The pending move is applied first; if the geometry
// differs from the session start the result is committed to history.
// It reports whether a commit happened.
func (e *Editor) PointerUp() bool {
	if e.session == nil {
		return false
	}
	if e.pending != nil {
		p := *e.pending
		e.pending = nil
		e.apply(p)
	}
	s := e.session
	e.endSession()
	l, _ := e.tpl.Side(s.Side).Find(s.LayerID)
	if l == nil || transform.Of(l.Common()) == s.Start {
		e.log.Debug("session end", slog.String("kind", s.Kind.String()), slog.Bool("changed", false))
		e.changed()
		return false
	}
	e.commit(s.Kind.String())
	return true
}

func (e *Editor) endSession() {
	e.session = nil
	e.pending = nil
	e.frameRequested = false
	e.guides = nil
}
