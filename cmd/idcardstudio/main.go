/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"idcardstudio/internal/backend"
	"idcardstudio/internal/bundle"
	"idcardstudio/internal/config"
	"idcardstudio/internal/crash"
	"idcardstudio/internal/domain"
	"idcardstudio/internal/editor"
	"idcardstudio/internal/export"
	applog "idcardstudio/internal/log"
	"idcardstudio/internal/render"
	"idcardstudio/internal/storage"
	"idcardstudio/internal/textlayout"
	"idcardstudio/internal/ui"
	"idcardstudio/internal/upload"
	"idcardstudio/internal/version"
)

func usage() {
	fmt.Println("ID Card Studio")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  idcardstudio version|-v|--version               Show version")
	fmt.Println("  idcardstudio list [<kind>]                        List backend.Stored templates")
	fmt.Println("  idcardstudio new <name> [<kind>]                  Create an empty template")
	fmt.Println("  idcardstudio show <id>                            Print a template as exchange JSON")
	fmt.Println("  idcardstudio import <file.json>                   Store a template from exchange JSON")
	fmt.Println("  idcardstudio export <id> <file.json>              Write a template as exchange JSON")
	fmt.Println("  idcardstudio render <id> svg|pdf|json <out> [<record.json>]")
	fmt.Println("                                                    Render both sides with a record (sample when omitted)")
	fmt.Println("  idcardstudio qr <id> <layer-id> <out.png>         Write the QR code of a layer as PNG")
	fmt.Println("  idcardstudio activate|delete|duplicate <id>       Manage stored templates")
	fmt.Println("  idcardstudio revisions <id>                       List saved revisions (sqlite/postgres)")
	fmt.Println("  idcardstudio restore <id> <rev>                   Restore a saved revision")
	fmt.Println("  idcardstudio bundle export <id> <file.zip>        Pack a template with its images")
	fmt.Println("  idcardstudio bundle import <file.zip>             Unpack and store a template bundle")
	fmt.Println("  idcardstudio serve [<addr>]                       Run the template HTTP API")
	fmt.Println("  idcardstudio ui [<id>]                            Launch the desktop editor (build with -tags fyne)")
}

func main() {
	cfg, sec, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config load failed; using defaults", slog.Any("err", cfgErr))
	}
	defer crash.Recover(&crash.Guard{Dir: recoveryDir()})

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("ID Card Studio")
		fmt.Println(version.String())
		return
	case "help", "-h", "--help":
		usage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, sec, args[1], args[2:]); err != nil {
		l.Error("command failed", slog.String("cmd", args[1]), slog.Any("err", err))
		fmt.Println("Error:", err)
		var ue usageError
		if errors.As(err, &ue) {
			usage()
			stop()
			os.Exit(2)
		}
		stop()
		os.Exit(1)
	}
}

type usageError string

func (e usageError) Error() string { return string(e) }

func need(args []string, n int, what string) error {
	if len(args) < n {
		return usageError(what)
	}
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usageError(fmt.Sprintf("invalid template id %q", s))
	}
	return id, nil
}

func run(ctx context.Context, cfg config.AppConfig, sec config.Secrets, cmd string, args []string) error {
	l := applog.WithOperation(applog.WithComponent("cli"), cmd)
	switch cmd {
	case "serve":
		return serve(ctx, cfg, sec, args)
	case "bundle":
		if err := need(args, 1, "bundle requires export or import"); err != nil {
			return err
		}
	}

	st, closeStore, err := openStore(ctx, cfg, sec)
	if err != nil {
		return err
	}
	defer closeStore()
	assets := bundle.Assets{Dir: cfg.Upload.Dir, PublicURL: cfg.Upload.PublicURL}

	switch cmd {
	case "list":
		var f storage.ListFilter
		if len(args) > 0 {
			f.Kind = domain.Kind(args[0])
		}
		items, err := st.List(ctx, f)
		if err != nil {
			return err
		}
		for _, s := range items {
			active := ""
			if s.IsActive {
				active = "  (active)"
			}
			fmt.Printf("%4d  %-8s %-12s %s%s\n", s.ID, s.Kind, s.SchoolLevel, s.Name, active)
		}
		return nil
	case "new":
		if err := need(args, 1, "new requires <name>"); err != nil {
			return err
		}
		kind := domain.KindStudent
		if len(args) > 1 {
			kind = domain.Kind(args[1])
		}
		saved, err := st.Create(ctx, domain.NewTemplate(args[0], kind))
		if err != nil {
			return err
		}
		l.Info("template created", slog.Int64("id", *saved.ID))
		fmt.Println("Created template", *saved.ID)
		return nil
	case "show":
		tpl, err := getTemplate(ctx, st, args, "show requires <id>")
		if err != nil {
			return err
		}
		data, err := domain.Marshal(tpl)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	case "import":
		if err := need(args, 1, "import requires <file.json>"); err != nil {
			return err
		}
		tpl, err := storage.ReadTemplateFile(args[0])
		if err != nil {
			return err
		}
		tpl.ID = nil
		saved, err := st.Create(ctx, tpl)
		if err != nil {
			return err
		}
		fmt.Println("Imported template", *saved.ID)
		return nil
	case "export":
		if err := need(args, 2, "export requires <id> and <file.json>"); err != nil {
			return err
		}
		tpl, err := getTemplate(ctx, st, args, "")
		if err != nil {
			return err
		}
		if err := storage.WriteTemplateFile(args[1], tpl); err != nil {
			return err
		}
		fmt.Println("Wrote", args[1])
		return nil
	case "render":
		if err := need(args, 3, "render requires <id>, a format and <out>"); err != nil {
			return err
		}
		tpl, err := getTemplate(ctx, st, args, "")
		if err != nil {
			return err
		}
		var rec render.Record
		if len(args) > 3 {
			if rec, err = readRecord(args[3]); err != nil {
				return err
			}
		}
		return renderTemplate(tpl, rec, args[1], args[2])
	case "qr":
		if err := need(args, 3, "qr requires <id>, <layer-id> and <out.png>"); err != nil {
			return err
		}
		tpl, err := getTemplate(ctx, st, args, "")
		if err != nil {
			return err
		}
		return writeQR(tpl, args[1], args[2])
	case "activate", "delete", "duplicate":
		if err := need(args, 1, cmd+" requires <id>"); err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		switch cmd {
		case "activate":
			err = st.Activate(ctx, id)
		case "delete":
			err = st.Delete(ctx, id)
		default:
			var dup *domain.Template
			if dup, err = st.Duplicate(ctx, id); err == nil {
				fmt.Println("Created copy", *dup.ID)
			}
		}
		if err == nil {
			l.Info("done", slog.Int64("id", id))
		}
		return err
	case "revisions", "restore":
		sq, ok := st.(*storage.SQLStore)
		if !ok {
			return errors.New(cmd + " needs the sqlite or postgres storage driver")
		}
		return revisions(ctx, sq, cmd, args)
	case "bundle":
		return bundleCmd(ctx, st, assets, args)
	case "ui":
		var id int64
		if len(args) > 0 {
			if id, err = parseID(args[0]); err != nil {
				return err
			}
		}
		var up upload.Uploader
		if c, ok := st.(*backend.Client); ok {
			up = c
		} else if up, err = upload.FromConfig(cfg.Upload, sec); err != nil {
			l.Warn("uploads disabled", slog.Any("err", err))
		}
		ecfg := editor.FromConfig(cfg.Editor)
		ecfg.Fonts = textlayout.OTProvider{Lib: textlayout.NewDefaultLibrary()}
		opts := ui.Options{
			Store:       st,
			Editor:      ecfg,
			TemplateID:  id,
			RecoveryDir: recoveryDir(),
			Assets:      assets,
		}
		if up != nil {
			opts.Uploader = up
		}
		return ui.Run(opts)
	}
	return usageError("unknown command " + strconv.Quote(cmd))
}

// openStore connects to the configured template store.
func openStore(ctx context.Context, cfg config.AppConfig, sec config.Secrets) (backend.Store, func(), error) {
	switch cfg.Storage.Driver {
	case "", "sqlite":
		st, err := storage.OpenSQLite(ctx, cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	case "postgres":
		st, err := backend.OpenPostgres(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	case "remote":
		if cfg.Backend.BaseURL == "" {
			return nil, nil, errors.New("storage driver remote needs backend.base_url")
		}
		c := backend.NewClient(cfg.Backend.BaseURL, sec.BackendToken).
			WithTimeout(cfg.Backend.EffectiveTimeout(), cfg.Backend.TLSInsecure)
		return c, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func getTemplate(ctx context.Context, st backend.Store, args []string, what string) (*domain.Template, error) {
	if err := need(args, 1, what); err != nil {
		return nil, err
	}
	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}
	return st.Get(ctx, id)
}

func readRecord(path string) (render.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec render.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("record %s: %w", path, err)
	}
	return rec, nil
}

func frames(tpl *domain.Template, rec render.Record) []render.Frame {
	opts := render.Options{Fonts: textlayout.OTProvider{Lib: textlayout.NewDefaultLibrary()}}
	return []render.Frame{
		render.Render(tpl, domain.Front, rec, opts),
		render.Render(tpl, domain.Back, rec, opts),
	}
}

func renderTemplate(tpl *domain.Template, rec render.Record, format, out string) error {
	fs := frames(tpl, rec)
	switch format {
	case "svg":
		dir, base := filepath.Dir(out), filepath.Base(out)
		base = base[:len(base)-len(filepath.Ext(base))]
		paths, err := export.WriteSVGFiles(dir, base, fs...)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println("Wrote", p)
		}
		return nil
	case "pdf":
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := export.PDF(f, fs, export.PDFOptions{Title: tpl.Name}); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	case "json":
		data, err := json.MarshalIndent(fs, "", "  ")
		if err != nil {
			return err
		}
		if err := storage.WriteFileAtomic(out, data); err != nil {
			return err
		}
	default:
		return usageError("render format must be svg, pdf or json")
	}
	fmt.Println("Wrote", out)
	return nil
}

func writeQR(tpl *domain.Template, layerID, out string) error {
	for _, fr := range frames(tpl, nil) {
		for _, el := range fr.Elements {
			if el.LayerID != layerID {
				continue
			}
			if el.QR == nil {
				return fmt.Errorf("layer %s is not a QR code", layerID)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.QRPNG(f, el.QR, export.QRPNGOptions{Quiet: 4}); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Println("Wrote", out)
			return nil
		}
	}
	return fmt.Errorf("no visible layer %s", layerID)
}

func revisions(ctx context.Context, st *storage.SQLStore, cmd string, args []string) error {
	if cmd == "restore" {
		if err := need(args, 2, "restore requires <id> and <rev>"); err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		rev, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return usageError(fmt.Sprintf("invalid revision %q", args[1]))
		}
		if _, err := st.Restore(ctx, id, rev); err != nil {
			return err
		}
		fmt.Printf("Restored template %d to revision %d\n", id, rev)
		return nil
	}
	if err := need(args, 1, "revisions requires <id>"); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	revs, err := st.Revisions(ctx, id, 0)
	if err != nil {
		return err
	}
	for _, r := range revs {
		fmt.Printf("%4d  %s\n", r.ID, r.TS.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func bundleCmd(ctx context.Context, st backend.Store, assets bundle.Assets, args []string) error {
	switch args[0] {
	case "export":
		if err := need(args, 3, "bundle export requires <id> and <file.zip>"); err != nil {
			return err
		}
		tpl, err := getTemplate(ctx, st, args[1:], "")
		if err != nil {
			return err
		}
		m, err := bundle.Export(tpl, args[2], assets)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s (%d images)\n", args[2], len(m.Assets))
		return nil
	case "import":
		if err := need(args, 2, "bundle import requires <file.zip>"); err != nil {
			return err
		}
		tpl, _, err := bundle.Import(args[1], assets)
		if err != nil {
			return err
		}
		tpl.ID = nil
		saved, err := st.Create(ctx, tpl)
		if err != nil {
			return err
		}
		fmt.Println("Imported template", *saved.ID)
		return nil
	}
	return usageError("bundle requires export or import")
}

func serve(ctx context.Context, cfg config.AppConfig, sec config.Secrets, args []string) error {
	addr := cfg.Server.Addr
	if len(args) > 0 {
		addr = args[0]
	}
	var (
		st  *storage.SQLStore
		err error
	)
	switch cfg.Storage.Driver {
	case "postgres":
		st, err = backend.OpenPostgres(ctx, cfg.Storage.DSN)
	case "remote":
		return errors.New("serve needs the sqlite or postgres storage driver")
	default:
		st, err = storage.OpenSQLite(ctx, cfg.Storage.Path)
	}
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	opts := backend.Options{
		Token: sec.BackendToken,
		Fonts: textlayout.OTProvider{Lib: textlayout.NewDefaultLibrary()},
	}
	up, err := upload.FromConfig(cfg.Upload, sec)
	if err != nil {
		applog.WithComponent("cli").Warn("uploads disabled", slog.Any("err", err))
	} else {
		opts.Uploads = up
		if cfg.Upload.Driver == "" || cfg.Upload.Driver == "local" {
			opts.AssetsDir = cfg.Upload.Dir
			opts.AssetsPrefix = cfg.Upload.PublicURL
		}
	}
	return backend.Serve(ctx, addr, backend.NewRouter(st, opts))
}

func recoveryDir() string {
	p, err := config.ConfigPath()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(p), "recovery")
}
