/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor is the interactive editing session: it owns the live template,
// the active side, the selection and the pointer-driven transform session, and it
// routes every committed change through the history manager.
//
// An Editor is not safe for concurrent use; drive it from the UI goroutine.
package editor

import (
	"log/slog"
	"time"

	"idcardstudio/internal/config"
	"idcardstudio/internal/domain"
	applog "idcardstudio/internal/log"
	"idcardstudio/internal/render"
	"idcardstudio/internal/stack"
	"idcardstudio/internal/textlayout"
	"idcardstudio/internal/transform"
	"idcardstudio/internal/undo"
	"idcardstudio/internal/vector"
)

// DefaultHandleRadius is the grip hit radius in screen pixels.
const DefaultHandleRadius = 8

// Config tunes an Editor. Zero values select the package defaults.
type Config struct {
	GridSize        float64
	SnapToGrid      bool
	MinLayerSize    float64
	RotationSnap    float64
	HistoryLimit    int
	// HistoryCoalesce merges repeated property edits of one layer made within
	// the interval into a single history entry. Zero keeps every edit.
	HistoryCoalesce time.Duration
	DuplicateOffset float64
	HandleRadius    float64
	// SmartGuides aligns moved layers to the canvas and sibling edges and centers.
	SmartGuides bool
	Guides      vector.GuideOptions

	Frames FrameRequester
	Fonts  textlayout.Provider
	NewID  func(domain.LayerType) string
	Now    func() time.Time
	// OnChange is called after every state change that needs a redraw.
	OnChange func()
}

// FromConfig maps the editor section of the application config.
func FromConfig(c config.EditorConfig) Config {
	return Config{
		GridSize:        c.GridSize,
		SnapToGrid:      c.SnapToGrid,
		MinLayerSize:    c.MinLayerSize,
		RotationSnap:    c.RotationSnapDeg,
		HistoryLimit:    c.HistoryLimit,
		HistoryCoalesce: time.Duration(c.HistoryCoalesceMs) * time.Millisecond,
		DuplicateOffset: c.DuplicateOffset,
	}
}

// Editor is one editing session over a single template.
type Editor struct {
	cfg     Config
	log     *slog.Logger
	history *undo.Manager

	tpl   *domain.Template
	side  domain.SideName
	sel   string
	zoom  float64
	snap  bool
	dirty bool

	session        *ActiveSession
	pending        *vector.Pt
	frameRequested bool
	guides         []vector.GuideLine
}

// New starts a session on a clone of tpl. A nil tpl starts from a blank student template.
func New(tpl *domain.Template, cfg Config) *Editor {
	if cfg.GridSize <= 0 {
		cfg.GridSize = transform.DefaultGridSize
	}
	if cfg.MinLayerSize <= 0 {
		cfg.MinLayerSize = transform.DefaultMinSize
	}
	if cfg.DuplicateOffset == 0 {
		cfg.DuplicateOffset = stack.DuplicateOffset
	}
	if cfg.HandleRadius <= 0 {
		cfg.HandleRadius = DefaultHandleRadius
	}
	if cfg.Frames == nil {
		cfg.Frames = ImmediateFrames{}
	}
	if cfg.NewID == nil {
		cfg.NewID = domain.NewID
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	history := undo.NewManager(undo.Config{
		MaxEntries:  cfg.HistoryLimit,
		MinInterval: cfg.HistoryCoalesce,
		Coalesce:    isPropertiesLabel,
	})
	e := &Editor{
		cfg:     cfg,
		log:     applog.WithComponent("editor"),
		history: history,
		zoom:    1,
		snap:    cfg.SnapToGrid,
	}
	if tpl == nil {
		tpl = domain.NewTemplate("Untitled Template", domain.KindStudent)
	}
	e.Load(tpl)
	return e
}

// Load replaces the live template with a normalized clone of tpl, resets history
// with it as the baseline and clears the dirty flag.
func (e *Editor) Load(tpl *domain.Template) {
	t := tpl.Clone()
	t.Normalize()
	e.tpl = t
	e.side = domain.Front
	e.sel = ""
	e.endSession()
	if entry, err := undo.Capture(t, e.selection(), "load"); err == nil {
		entry.TS = e.cfg.Now()
		e.history.Reset(entry)
	} else {
		e.log.Error("history baseline failed", slog.Any("err", err))
	}
	e.dirty = false
	e.log.Debug("template loaded", slog.String("name", t.Name), slog.Int("front", len(t.Front.Layers)), slog.Int("back", len(t.Back.Layers)))
	e.changed()
}

// Replace swaps in a new template as an undoable edit, keeping the current identity.
func (e *Editor) Replace(tpl *domain.Template, label string) {
	if e.session != nil {
		return
	}
	e.history.SetSelection(e.selection())
	t := tpl.Clone()
	t.Normalize()
	t.ID = e.tpl.ID
	t.Metadata.CreatedAt = e.tpl.Metadata.CreatedAt
	e.tpl = t
	if _, i := t.Side(e.side).Find(e.sel); i < 0 {
		e.sel = ""
	}
	e.commit(label)
}

// MarkSaved adopts the identity and timestamps assigned by the store and clears the dirty flag.
func (e *Editor) MarkSaved(saved *domain.Template) {
	if saved != nil {
		e.tpl.ID = saved.ID
		e.tpl.Metadata.CreatedAt = saved.Metadata.CreatedAt
		e.tpl.Metadata.UpdatedAt = saved.Metadata.UpdatedAt
	}
	e.dirty = false
	e.changed()
}

// Snapshot returns a deep copy of the live template.
func (e *Editor) Snapshot() *domain.Template { return e.tpl.Clone() }

func (e *Editor) Dirty() bool                { return e.dirty }
func (e *Editor) Side() domain.SideName      { return e.side }
func (e *Editor) Zoom() float64              { return e.zoom }
func (e *Editor) SnapEnabled() bool          { return e.snap }
func (e *Editor) Guides() []vector.GuideLine { return e.guides }

// SetZoom sets the screen-to-canvas scale. Non-positive values are ignored.
func (e *Editor) SetZoom(z float64) {
	if z > 0 {
		e.zoom = z
		e.changed()
	}
}

func (e *Editor) SetSnap(on bool) { e.snap = on }

// SetSide switches the edited side and clears the selection.
func (e *Editor) SetSide(s domain.SideName) {
	if s != domain.Front && s != domain.Back || s == e.side || e.session != nil {
		return
	}
	e.side = s
	e.sel = ""
	e.changed()
}

// Layers returns the active side's layers in paint order. The layers are copies.
func (e *Editor) Layers() []domain.Layer {
	ordered := stack.Ordered(e.tpl.Side(e.side))
	out := make([]domain.Layer, len(ordered))
	for i, l := range ordered {
		out[i] = l.Clone()
	}
	return out
}

// Selected returns a copy of the selected layer.
func (e *Editor) Selected() (domain.Layer, bool) {
	l := e.selectedLayer()
	if l == nil {
		return nil, false
	}
	return l.Clone(), true
}

func (e *Editor) SelectedID() string { return e.sel }

// Select selects a layer on the active side. Locked layers may be selected.
func (e *Editor) Select(id string) bool {
	if e.session != nil {
		return false
	}
	if l, _ := e.tpl.Side(e.side).Find(id); l == nil {
		return false
	}
	e.sel = id
	e.changed()
	return true
}

func (e *Editor) ClearSelection() {
	if e.session != nil || e.sel == "" {
		return
	}
	e.sel = ""
	e.changed()
}

// Render projects the active side against rec (the built-in sample when nil).
func (e *Editor) Render(rec render.Record) render.Frame {
	return render.Render(e.tpl, e.side, rec, render.Options{Fonts: e.cfg.Fonts})
}

// Undo restores the previous history entry. It is a no-op during a session or at the oldest entry.
func (e *Editor) Undo() bool {
	if e.session != nil {
		return false
	}
	entry, ok := e.history.Undo()
	if !ok {
		return false
	}
	e.restore(entry)
	return true
}

// Redo re-applies the next history entry.
func (e *Editor) Redo() bool {
	if e.session != nil {
		return false
	}
	entry, ok := e.history.Redo()
	if !ok {
		return false
	}
	e.restore(entry)
	return true
}

func (e *Editor) CanUndo() bool { return e.history.CanUndo() }
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// UndoLabel names the edit Undo would revert, or "" when there is none.
func (e *Editor) UndoLabel() string {
	if !e.history.CanUndo() {
		return ""
	}
	cur, ok := e.history.Current()
	if !ok {
		return ""
	}
	if isPropertiesLabel(cur.Label) {
		return "properties"
	}
	return cur.Label
}

// restore makes entry the live template. Identity and timestamps assigned by the
// store are kept so a later save updates the same record.
func (e *Editor) restore(entry undo.Entry) {
	t, err := entry.Template()
	if err != nil {
		e.log.Error("history restore failed", slog.Any("err", err))
		return
	}
	t.ID = e.tpl.ID
	t.Metadata.CreatedAt = e.tpl.Metadata.CreatedAt
	t.Metadata.UpdatedAt = e.tpl.Metadata.UpdatedAt
	e.tpl = t
	e.side = entry.Selection.Side
	if e.side == "" {
		e.side = domain.Front
	}
	e.sel = entry.Selection.LayerID
	if l, _ := t.Side(e.side).Find(e.sel); l == nil {
		e.sel = ""
	}
	e.dirty = true
	e.log.Debug("history restored", slog.String("label", entry.Label))
	e.changed()
}

func (e *Editor) selection() undo.Selection {
	return undo.Selection{Side: e.side, LayerID: e.sel}
}

func (e *Editor) activeSide() *domain.Side { return e.tpl.Side(e.side) }

func (e *Editor) selectedLayer() domain.Layer {
	if e.sel == "" {
		return nil
	}
	l, _ := e.activeSide().Find(e.sel)
	return l
}

// edit runs fn against the active side as one undoable step. fn reports whether it
// changed anything; unchanged edits leave history and the dirty flag alone.
func (e *Editor) edit(label string, fn func(s *domain.Side) bool) bool {
	if e.session != nil {
		return false
	}
	e.history.SetSelection(e.selection())
	if !fn(e.activeSide()) {
		return false
	}
	e.commit(label)
	return true
}

// commit pushes the live state onto history and marks the template dirty.
func (e *Editor) commit(label string) {
	e.tpl.Touch(e.cfg.Now())
	entry, err := undo.Capture(e.tpl, e.selection(), label)
	if err != nil {
		e.log.Error("history capture failed", slog.String("label", label), slog.Any("err", err))
	} else {
		entry.TS = e.cfg.Now()
		e.history.Push(entry)
	}
	e.dirty = true
	e.log.Debug("committed", slog.String("label", label))
	e.changed()
}

func (e *Editor) changed() {
	if e.cfg.OnChange != nil {
		e.cfg.OnChange()
	}
}

func (e *Editor) options() transform.Options {
	return transform.Options{
		GridSize:     e.cfg.GridSize,
		Snap:         e.snap,
		MinSize:      e.cfg.MinLayerSize,
		CanvasWidth:  e.tpl.Canvas.Width,
		CanvasHeight: e.tpl.Canvas.Height,
		RotationSnap: e.cfg.RotationSnap,
		Guides:       e.cfg.Guides,
	}
}
