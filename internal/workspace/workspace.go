/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package workspace connects the editor to its collaborators. It turns user
// actions (open, save, new, upload) into store and uploader calls and feeds the
// results back into the editor as template mutations.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"idcardstudio/internal/domain"
	"idcardstudio/internal/editor"
	applog "idcardstudio/internal/log"
	"idcardstudio/internal/storage"
	"idcardstudio/internal/upload"
)

var (
	// ErrUnsavedChanges is returned when an action would discard unsaved edits.
	ErrUnsavedChanges = errors.New("unsaved changes")
	// ErrNotSaved is returned for actions that need a stored template.
	ErrNotSaved = errors.New("template has not been saved")
	// ErrNoUploader is returned by uploads when no target is configured.
	ErrNoUploader = errors.New("no upload target configured")
	// ErrEditorBusy is returned when a pointer gesture is in progress.
	ErrEditorBusy = errors.New("editor busy")
)

// Store persists templates.
type Store interface {
	Create(ctx context.Context, tpl *domain.Template) (*domain.Template, error)
	Update(ctx context.Context, id int64, tpl *domain.Template) (*domain.Template, error)
	Get(ctx context.Context, id int64) (*domain.Template, error)
	Delete(ctx context.Context, id int64) error
	Activate(ctx context.Context, id int64) error
	List(ctx context.Context, f storage.ListFilter) ([]storage.Summary, error)
}

// Uploader stores images.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (upload.Result, error)
}

// Workspace owns one editor and its collaborators. Like the editor it is driven from one goroutine.
type Workspace struct {
	ed       *editor.Editor
	store    Store
	uploader Uploader
	log      *slog.Logger
}

// New wires ed to store and up. up may be nil.
func New(ed *editor.Editor, store Store, up Uploader) *Workspace {
	return &Workspace{ed: ed, store: store, uploader: up, log: applog.WithComponent("workspace")}
}

func (w *Workspace) Editor() *editor.Editor { return w.ed }

// NewTemplate starts an empty template. Unless force is set it refuses to drop unsaved edits.
func (w *Workspace) NewTemplate(name string, kind domain.Kind, force bool) error {
	if w.ed.Dirty() && !force {
		return ErrUnsavedChanges
	}
	if name == "" {
		name = "Untitled Template"
	}
	w.ed.Load(domain.NewTemplate(name, kind))
	return nil
}

// Open loads the stored template id into the editor.
func (w *Workspace) Open(ctx context.Context, id int64, force bool) error {
	if w.ed.Dirty() && !force {
		return ErrUnsavedChanges
	}
	tpl, err := w.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("open template %d: %w", id, err)
	}
	w.ed.Load(tpl)
	w.log.Info("template opened", slog.Int64("id", id), slog.String("name", tpl.Name))
	return nil
}

// Import loads exchange JSON as a new, unsaved template.
func (w *Workspace) Import(data []byte, force bool) error {
	if w.ed.Dirty() && !force {
		return ErrUnsavedChanges
	}
	tpl, err := domain.Parse(data)
	if err != nil {
		return err
	}
	tpl.ID = nil
	tpl.IsActive = false
	tpl.Metadata.CreatedAt, tpl.Metadata.UpdatedAt = nil, nil
	w.ed.Load(tpl)
	w.ed.Replace(w.ed.Snapshot(), "import")
	return nil
}

// Save creates or updates the live template and adopts the stored identity.
// On failure the editor stays dirty.
func (w *Workspace) Save(ctx context.Context) (*domain.Template, error) {
	tpl := w.ed.Snapshot()
	var (
		saved *domain.Template
		err   error
	)
	if tpl.ID == nil {
		saved, err = w.store.Create(ctx, tpl)
	} else {
		saved, err = w.store.Update(ctx, *tpl.ID, tpl)
	}
	if err != nil {
		w.log.Error("save failed", slog.String("name", tpl.Name), slog.Any("err", err))
		return nil, fmt.Errorf("save template: %w", err)
	}
	w.ed.MarkSaved(saved)
	w.log.Info("template saved", slog.Int64("id", *saved.ID))
	return saved, nil
}

// Activate makes the live template the active one. It must have been saved.
func (w *Workspace) Activate(ctx context.Context) error {
	tpl := w.ed.Snapshot()
	if tpl.ID == nil {
		return ErrNotSaved
	}
	if err := w.store.Activate(ctx, *tpl.ID); err != nil {
		return fmt.Errorf("activate template: %w", err)
	}
	saved, err := w.store.Get(ctx, *tpl.ID)
	if err != nil {
		return fmt.Errorf("reload template: %w", err)
	}
	if !w.ed.Dirty() {
		w.ed.Load(saved)
	}
	return nil
}

// Delete removes the live template from the store and starts a fresh one of the same kind.
func (w *Workspace) Delete(ctx context.Context) error {
	tpl := w.ed.Snapshot()
	if tpl.ID == nil {
		return ErrNotSaved
	}
	if err := w.store.Delete(ctx, *tpl.ID); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	w.ed.Load(domain.NewTemplate("Untitled Template", tpl.Kind))
	return nil
}

// List returns stored templates matching f.
func (w *Workspace) List(ctx context.Context, f storage.ListFilter) ([]storage.Summary, error) {
	return w.store.List(ctx, f)
}

// UploadImage stores r and adds it as an image layer on the active side.
// It returns the new layer id.
func (w *Workspace) UploadImage(ctx context.Context, name string, r io.Reader) (string, error) {
	res, err := w.upload(ctx, name, r)
	if err != nil {
		return "", err
	}
	if w.busy() {
		return "", fmt.Errorf("add image layer: %w", ErrEditorBusy)
	}
	id, _ := w.ed.AddImage(res.URL, float64(res.Width), float64(res.Height))
	return id, nil
}

// UploadBackground stores r and uses it as the background of the active side.
func (w *Workspace) UploadBackground(ctx context.Context, name string, r io.Reader) error {
	res, err := w.upload(ctx, name, r)
	if err != nil {
		return err
	}
	if w.busy() {
		return fmt.Errorf("set background: %w", ErrEditorBusy)
	}
	// the same URL again leaves the template unchanged
	w.ed.SetSideBackground(res.URL)
	return nil
}

func (w *Workspace) busy() bool { return w.ed.Session().Kind != editor.SessionNone }

func (w *Workspace) upload(ctx context.Context, name string, r io.Reader) (upload.Result, error) {
	if w.uploader == nil {
		return upload.Result{}, ErrNoUploader
	}
	res, err := w.uploader.Upload(ctx, name, r)
	if err != nil {
		return upload.Result{}, fmt.Errorf("upload %s: %w", name, err)
	}
	return res, nil
}
