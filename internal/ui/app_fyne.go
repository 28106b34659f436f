//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"idcardstudio/internal/bundle"
	"idcardstudio/internal/crash"
	"idcardstudio/internal/domain"
	"idcardstudio/internal/editor"
	"idcardstudio/internal/export"
	applog "idcardstudio/internal/log"
	"idcardstudio/internal/render"
	"idcardstudio/internal/storage"
	"idcardstudio/internal/version"
	"idcardstudio/internal/workspace"
)

const opTimeout = 30 * time.Second

// studio holds the window state. Everything runs on the fyne UI goroutine.
type studio struct {
	opts Options
	log  *slog.Logger
	win  fyne.Window
	ed   *editor.Editor
	ws   *workspace.Workspace

	card    *CardCanvas
	status  *widget.Label
	layers  *widget.List
	rows    []domain.Layer
	props   *widget.Entry
	bind    *widget.Select
	side    *widget.RadioGroup
	undoBtn *widget.Button
	redoBtn *widget.Button
	syncing bool
	ready   bool
}

// Run starts the Fyne-based desktop template editor.
func Run(opts Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	s := &studio{opts: opts, log: l}
	frames := editor.NewTimerFrames(fyne.Do)
	defer frames.Stop()
	cfg := opts.Editor
	cfg.Frames = frames
	cfg.OnChange = s.changed
	s.ed = editor.New(nil, cfg)
	s.ws = workspace.New(s.ed, opts.Store, opts.Uploader)

	guard := &crash.Guard{Dir: opts.RecoveryDir, Snapshot: s.ed.Snapshot}
	defer crash.Recover(guard)

	fyneApp := app.NewWithID("idcardstudio")
	s.win = fyneApp.NewWindow("ID Card Studio")
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1280), 800)
	winH := max(prefs.IntWithFallback("window.height", 860), 600)
	s.win.Resize(fyne.NewSize(float32(winW), float32(winH)))

	s.build()
	s.win.SetMainMenu(s.menu())
	s.shortcuts()

	s.win.SetCloseIntercept(func() {
		sz := s.win.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if !s.ed.Dirty() {
			s.win.Close()
			return
		}
		dialog.ShowConfirm("Unsaved changes", "Quit and discard the unsaved changes?", func(ok bool) {
			if ok {
				s.win.Close()
			}
		}, s.win)
	})

	if opts.TemplateID != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		err := s.ws.Open(ctx, opts.TemplateID, true)
		cancel()
		if err != nil {
			// not fatal; start with a blank template
			l.Error("auto-open template failed", slog.Int64("id", opts.TemplateID), slog.Any("err", err))
		}
	}
	s.offerRecovery()
	s.refresh()

	s.win.ShowAndRun()
	return nil
}

func (s *studio) build() {
	s.card = NewCardCanvas(s.ed, s.opts.Record)
	s.card.OnCommit = s.refresh
	s.status = widget.NewLabel("Ready")

	s.layers = widget.NewList(
		func() int { return len(s.rows) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && i < len(s.rows) {
				o.(*widget.Label).SetText(layerLabel(s.rows[i]))
			}
		},
	)
	s.layers.OnSelected = func(i widget.ListItemID) {
		if s.syncing || i < 0 || i >= len(s.rows) {
			return
		}
		s.ed.Select(s.rows[i].Common().ID)
	}

	s.side = widget.NewRadioGroup([]string{string(domain.Front), string(domain.Back)}, func(v string) {
		if v != "" && !s.syncing {
			s.ed.SetSide(domain.SideName(v))
		}
	})
	s.side.Horizontal = true
	s.side.Required = true

	snap := widget.NewCheck("Snap to grid", s.ed.SetSnap)
	snap.SetChecked(s.ed.SnapEnabled())

	s.props = widget.NewMultiLineEntry()
	s.props.TextStyle = fyne.TextStyle{Monospace: true}
	s.props.SetMinRowsVisible(14)
	apply := widget.NewButtonWithIcon("Apply", theme.ConfirmIcon(), s.applyProperties)

	s.bind = widget.NewSelect(nil, func(key string) {
		if s.syncing || key == "" {
			return
		}
		if id := s.ed.SelectedID(); id != "" {
			if _, err := s.ed.ApplyProperties(id, bindPatch(key)); err != nil {
				s.report("bind field", err)
			}
		}
	})
	s.bind.PlaceHolder = "Bind to field"

	addText := widget.NewButtonWithIcon("Text", theme.ContentAddIcon(), func() { s.ed.AddLayer(domain.LayerText) })
	addImage := widget.NewButtonWithIcon("Image", theme.MediaPhotoIcon(), func() { s.ed.AddLayer(domain.LayerImage) })
	addShape := widget.NewButtonWithIcon("Shape", theme.ContentAddIcon(), func() { s.ed.AddLayer(domain.LayerShape) })
	addQR := widget.NewButtonWithIcon("QR", theme.ContentAddIcon(), func() { s.ed.AddLayer(domain.LayerQRCode) })
	s.undoBtn = widget.NewButtonWithIcon("", theme.ContentUndoIcon(), s.undo)
	s.redoBtn = widget.NewButtonWithIcon("", theme.ContentRedoIcon(), func() { s.ed.Redo() })
	save := widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), s.save)
	fit := widget.NewButtonWithIcon("", theme.ZoomFitIcon(), s.card.ResetView)
	toolbar := container.NewHBox(addText, addImage, addShape, addQR, widget.NewSeparator(),
		s.undoBtn, s.redoBtn, widget.NewSeparator(), save, widget.NewSeparator(), s.side, snap, fit)

	onSel := func(fn func(id string) bool) func() {
		return func() {
			if id := s.ed.SelectedID(); id != "" {
				fn(id)
			}
		}
	}
	layerOps := container.NewGridWithColumns(3,
		widget.NewButtonWithIcon("Front", theme.MoveUpIcon(), onSel(s.ed.BringToFront)),
		widget.NewButtonWithIcon("Back", theme.MoveDownIcon(), onSel(s.ed.SendToBack)),
		widget.NewButtonWithIcon("Copy", theme.ContentCopyIcon(), onSel(func(id string) bool { _, ok := s.ed.DuplicateLayer(id); return ok })),
		widget.NewButtonWithIcon("Raise", theme.MenuDropUpIcon(), onSel(s.ed.Raise)),
		widget.NewButtonWithIcon("Lower", theme.MenuDropDownIcon(), onSel(s.ed.Lower)),
		widget.NewButtonWithIcon("Delete", theme.DeleteIcon(), onSel(s.ed.DeleteLayer)),
		widget.NewButtonWithIcon("Show/Hide", theme.VisibilityIcon(), onSel(s.ed.ToggleVisibility)),
		widget.NewButton("Lock", onSel(s.ed.ToggleLock)),
		widget.NewButton("Aa", onSel(s.cycleCase)),
	)

	left := container.NewBorder(widget.NewLabel("Layers"), layerOps, nil, nil, s.layers)
	right := container.NewBorder(container.NewVBox(widget.NewLabel("Properties"), s.bind), apply, nil, nil, container.NewVScroll(s.props))
	center := container.NewHSplit(left, container.NewHSplit(s.card, right))
	center.Offset = 0.2
	s.win.SetContent(container.NewBorder(toolbar, s.status, nil, nil, center))
	s.ready = true
}

// changed is the editor's redraw hook. Panels follow only outside drag sessions.
func (s *studio) changed() {
	if !s.ready {
		return
	}
	s.card.Refresh()
	if s.ed.Session().Kind == editor.SessionNone {
		s.refreshPanels()
	}
}

func (s *studio) refresh() {
	s.card.Refresh()
	s.refreshPanels()
}

func (s *studio) refreshPanels() {
	s.syncing = true
	defer func() { s.syncing = false }()

	s.rows = topmostFirst(s.ed.Layers())
	s.layers.Refresh()
	s.layers.UnselectAll()
	sel := s.ed.SelectedID()
	for i, l := range s.rows {
		if l.Common().ID == sel {
			s.layers.Select(i)
		}
	}
	s.side.SetSelected(string(s.ed.Side()))

	if l, ok := s.ed.Selected(); ok {
		if txt, err := propertiesJSON(l); err == nil {
			s.props.SetText(txt)
		}
		s.bind.Options = bindableFields(s.ed.Snapshot().Kind, l.Type())
		s.bind.ClearSelected()
		s.bind.Enable()
	} else {
		s.props.SetText("")
		s.bind.Options = nil
		s.bind.ClearSelected()
		s.bind.Disable()
	}
	s.bind.Refresh()

	if s.ed.CanUndo() {
		s.undoBtn.Enable()
	} else {
		s.undoBtn.Disable()
	}
	if s.ed.CanRedo() {
		s.redoBtn.Enable()
	} else {
		s.redoBtn.Disable()
	}
	s.win.SetTitle(windowTitle(s.ed.Snapshot(), s.ed.Dirty()))
}

// undo reverts the last edit and names it in the status bar.
func (s *studio) undo() {
	label := s.ed.UndoLabel()
	if s.ed.Undo() {
		s.status.SetText("Undid " + label)
	}
}

func (s *studio) applyProperties() {
	id := s.ed.SelectedID()
	if id == "" {
		return
	}
	ok, err := s.ed.ApplyProperties(id, []byte(s.props.Text))
	if err != nil {
		s.report("apply properties", err)
		return
	}
	if !ok {
		s.status.SetText("No changes applied")
	}
}

// cycleCase steps a text layer through none, upper and lower case.
func (s *studio) cycleCase(id string) bool {
	l, ok := s.ed.Selected()
	if !ok {
		return false
	}
	t, isText := l.(*domain.TextLayer)
	if !isText {
		return false
	}
	next := domain.CaseUpper
	switch t.Case() {
	case domain.CaseUpper:
		next = domain.CaseLower
	case domain.CaseLower:
		next = domain.CaseNone
	}
	return s.ed.SetCase(id, next)
}

// report logs err and shows it; a nil err just refreshes.
func (s *studio) report(op string, err error) {
	if err == nil {
		s.refresh()
		return
	}
	s.log.Error(op+" failed", slog.Any("err", err))
	s.status.SetText(op + " failed")
	dialog.ShowError(err, s.win)
}

// guarded runs an action that may discard unsaved changes, asking before forcing it.
func (s *studio) guarded(op string, action func(ctx context.Context, force bool) error) {
	run := func(force bool) error {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return action(ctx, force)
	}
	err := run(false)
	if errors.Is(err, workspace.ErrUnsavedChanges) {
		dialog.ShowConfirm("Unsaved changes", "Discard the unsaved changes to this template?", func(ok bool) {
			if ok {
				s.report(op, run(true))
				s.card.ResetView()
			}
		}, s.win)
		return
	}
	s.report(op, err)
	if err == nil {
		s.card.ResetView()
	}
}

func (s *studio) save() {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	saved, err := s.ws.Save(ctx)
	if err != nil {
		s.report("save", err)
		return
	}
	s.status.SetText(fmt.Sprintf("Saved template #%d", *saved.ID))
	s.refresh()
}

func (s *studio) newTemplate() {
	name := widget.NewEntry()
	name.SetText("Untitled Template")
	kinds := []string{string(domain.KindStudent), string(domain.KindTeacher), string(domain.KindStaff), string(domain.KindVisitor)}
	kind := widget.NewSelect(kinds, nil)
	kind.SetSelected(kinds[0])
	items := []*widget.FormItem{widget.NewFormItem("Name", name), widget.NewFormItem("Type", kind)}
	dialog.ShowForm("New Template", "Create", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		s.guarded("new template", func(_ context.Context, force bool) error {
			return s.ws.NewTemplate(strings.TrimSpace(name.Text), domain.Kind(kind.Selected), force)
		})
	}, s.win)
}

// openTemplate lists stored templates and opens the chosen one.
func (s *studio) openTemplate() {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	items, err := s.ws.List(ctx, storage.ListFilter{})
	cancel()
	if err != nil {
		s.report("list templates", err)
		return
	}
	if len(items) == 0 {
		dialog.ShowInformation("Open Template", "No stored templates.", s.win)
		return
	}
	list := widget.NewList(
		func() int { return len(items) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			it := items[i]
			active := ""
			if it.IsActive {
				active = "  (active)"
			}
			o.(*widget.Label).SetText(fmt.Sprintf("#%d  %s  [%s]%s", it.ID, it.Name, it.Kind, active))
		},
	)
	d := dialog.NewCustom("Open Template", "Cancel", container.NewGridWrap(fyne.NewSize(480, 320), list), s.win)
	list.OnSelected = func(i widget.ListItemID) {
		d.Hide()
		id := items[i].ID
		s.guarded("open template", func(ctx context.Context, force bool) error {
			return s.ws.Open(ctx, id, force)
		})
	}
	d.Show()
}

func (s *studio) activate() {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := s.ws.Activate(ctx); err != nil {
		s.report("activate", err)
		return
	}
	s.status.SetText("Template is now active")
	s.refresh()
}

func (s *studio) deleteTemplate() {
	dialog.ShowConfirm("Delete Template", "Delete this template from the store?", func(ok bool) {
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		s.report("delete", s.ws.Delete(ctx))
	}, s.win)
}

func imageFilter() fstorage.FileFilter {
	return fstorage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".webp"})
}

// uploadImage sends a picked file to the uploader; background selects the side background.
func (s *studio) uploadImage(background bool) {
	open := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, s.win)
			return
		}
		if rc == nil {
			return
		}
		defer func() { _ = rc.Close() }()
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if background {
			s.report("upload background", s.ws.UploadBackground(ctx, rc.URI().Name(), rc))
			return
		}
		_, err = s.ws.UploadImage(ctx, rc.URI().Name(), rc)
		s.report("upload image", err)
	}, s.win)
	open.SetFilter(imageFilter())
	open.Show()
}

func (s *studio) importJSON() {
	open := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, s.win)
			return
		}
		if rc == nil {
			return
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			s.report("import", err)
			return
		}
		s.guarded("import", func(_ context.Context, force bool) error { return s.ws.Import(data, force) })
	}, s.win)
	open.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
	open.Show()
}

func (s *studio) importBundle() {
	open := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, s.win)
			return
		}
		if rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		tpl, _, err := bundle.Import(path, s.opts.Assets)
		if err != nil {
			s.report("import bundle", err)
			return
		}
		data, err := domain.Marshal(tpl)
		if err != nil {
			s.report("import bundle", err)
			return
		}
		s.guarded("import bundle", func(_ context.Context, force bool) error { return s.ws.Import(data, force) })
	}, s.win)
	open.SetFilter(fstorage.NewExtensionFileFilter([]string{".zip"}))
	open.Show()
}

// saveAs asks for a destination and hands the writer to write.
func (s *studio) saveAs(op, fileName, ext string, write func(w io.Writer, path string) error) {
	save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, s.win)
			return
		}
		if uc == nil {
			return
		}
		path := uc.URI().Path()
		err = write(uc, path)
		if cerr := uc.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			s.report(op, err)
			return
		}
		s.log.Info(op, slog.String("path", path))
		s.status.SetText("Exported to " + path)
	}, s.win)
	save.SetFileName(fileName + ext)
	save.SetFilter(fstorage.NewExtensionFileFilter([]string{ext}))
	save.Show()
}

func (s *studio) fileBase() string {
	name := strings.TrimSpace(s.ed.Snapshot().Name)
	if name == "" {
		return "template"
	}
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

func (s *studio) frames() []render.Frame {
	tpl := s.ed.Snapshot()
	opts := render.Options{Fonts: s.opts.Editor.Fonts}
	return []render.Frame{
		render.Render(tpl, domain.Front, s.opts.Record, opts),
		render.Render(tpl, domain.Back, s.opts.Record, opts),
	}
}

func (s *studio) exportMenu() *fyne.Menu {
	jsonItem := fyne.NewMenuItem("Template JSON…", func() {
		s.saveAs("export json", s.fileBase(), ".json", func(w io.Writer, _ string) error {
			data, err := domain.Marshal(s.ed.Snapshot())
			if err != nil {
				return err
			}
			_, err = w.Write(data)
			return err
		})
	})
	svgItem := fyne.NewMenuItem("Current Side as SVG…", func() {
		s.saveAs("export svg", s.fileBase()+"-"+string(s.ed.Side()), ".svg", func(w io.Writer, _ string) error {
			data, err := export.SVG(s.ed.Render(s.opts.Record))
			if err != nil {
				return err
			}
			_, err = w.Write(data)
			return err
		})
	})
	pdfItem := fyne.NewMenuItem("Proof PDF (both sides)…", func() {
		s.saveAs("export pdf", s.fileBase(), ".pdf", func(w io.Writer, _ string) error {
			return export.PDF(w, s.frames(), export.PDFOptions{Title: s.ed.Snapshot().Name, IncludeGuides: true})
		})
	})
	bundleItem := fyne.NewMenuItem("Bundle (zip)…", func() {
		s.saveAs("export bundle", s.fileBase(), ".zip", func(_ io.Writer, path string) error {
			// bundle.Export writes the archive itself, replacing the empty file the dialog created
			_, err := bundle.Export(s.ed.Snapshot(), path, s.opts.Assets)
			return err
		})
	})
	return fyne.NewMenu("Export", jsonItem, svgItem, pdfItem, bundleItem)
}

func (s *studio) menu() *fyne.MainMenu {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New Template…", s.newTemplate),
		fyne.NewMenuItem("Open Template…", s.openTemplate),
		fyne.NewMenuItem("Import JSON…", s.importJSON),
		fyne.NewMenuItem("Import Bundle…", s.importBundle),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save", s.save),
		fyne.NewMenuItem("Set Active", s.activate),
		fyne.NewMenuItem("Delete Template…", s.deleteTemplate),
	)
	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", s.undo),
		fyne.NewMenuItem("Redo", func() { s.ed.Redo() }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Select None", s.ed.ClearSelection),
	)
	insertMenu := fyne.NewMenu("Insert",
		fyne.NewMenuItem("Text", func() { s.ed.AddLayer(domain.LayerText) }),
		fyne.NewMenuItem("Image Placeholder", func() { s.ed.AddLayer(domain.LayerImage) }),
		fyne.NewMenuItem("Shape", func() { s.ed.AddLayer(domain.LayerShape) }),
		fyne.NewMenuItem("QR Code", func() { s.ed.AddLayer(domain.LayerQRCode) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Upload Image…", func() { s.uploadImage(false) }),
		fyne.NewMenuItem("Upload Side Background…", func() { s.uploadImage(true) }),
	)
	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Front", func() { s.ed.SetSide(domain.Front) }),
		fyne.NewMenuItem("Back", func() { s.ed.SetSide(domain.Back) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Fit Card", s.card.ResetView),
	)
	aboutItem := fyne.NewMenuItem("About ID Card Studio", func() {
		exe, _ := os.Executable()
		info := fmt.Sprintf("ID Card Studio\nVersion: %s\nOS: %s\nArch: %s\nGo: %s\nExecutable: %s\nRecovery: %s",
			version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version(), exe, filepath.Join(s.opts.RecoveryDir, crash.RecoveryFileName))
		dialog.ShowInformation("About", info, s.win)
	})
	return fyne.NewMainMenu(fileMenu, editMenu, insertMenu, viewMenu, s.exportMenu(), fyne.NewMenu("About", aboutItem))
}

func (s *studio) shortcuts() {
	c := s.win.Canvas()
	add := func(key fyne.KeyName, mod fyne.KeyModifier, fn func()) {
		c.AddShortcut(&desktop.CustomShortcut{KeyName: key, Modifier: mod}, func(fyne.Shortcut) { fn() })
	}
	add(fyne.KeyZ, fyne.KeyModifierShortcutDefault, s.undo)
	add(fyne.KeyZ, fyne.KeyModifierShortcutDefault|fyne.KeyModifierShift, func() { s.ed.Redo() })
	add(fyne.KeyY, fyne.KeyModifierShortcutDefault, func() { s.ed.Redo() })
	add(fyne.KeyS, fyne.KeyModifierShortcutDefault, s.save)
	add(fyne.KeyD, fyne.KeyModifierShortcutDefault, func() {
		if id := s.ed.SelectedID(); id != "" {
			s.ed.DuplicateLayer(id)
		}
	})
	c.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			if id := s.ed.SelectedID(); id != "" {
				s.ed.DeleteLayer(id)
			}
		case fyne.KeyEscape:
			s.ed.ClearSelection()
		}
	})
}

// offerRecovery restores the crash autosave when the user agrees. The file is
// removed either way so the question is asked once.
func (s *studio) offerRecovery() {
	if s.opts.RecoveryDir == "" {
		return
	}
	rec, err := crash.LoadRecovery(s.opts.RecoveryDir)
	if err != nil {
		return
	}
	dialog.ShowConfirm("Recover Template", fmt.Sprintf("An autosaved copy of %q was found. Restore it?", rec.Name), func(ok bool) {
		if ok {
			s.ed.Load(rec)
			s.ed.Replace(rec, "restore autosave")
			s.card.ResetView()
		}
		if err := crash.ClearRecovery(s.opts.RecoveryDir); err != nil {
			s.log.Warn("clear recovery failed", slog.Any("err", err))
		}
		s.refresh()
	}, s.win)
}
