/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"idcardstudio/internal/domain"
	applog "idcardstudio/internal/log"
	"idcardstudio/internal/render"
	"idcardstudio/internal/storage"
	"idcardstudio/internal/textlayout"
	"idcardstudio/internal/upload"
	"idcardstudio/internal/version"
)

// maxBodyBytes caps request bodies; templates carry data URLs for images.
const maxBodyBytes = 8 << 20

// Store is the template persistence the API serves.
type Store interface {
	Create(ctx context.Context, tpl *domain.Template) (*domain.Template, error)
	Update(ctx context.Context, id int64, tpl *domain.Template) (*domain.Template, error)
	Get(ctx context.Context, id int64) (*domain.Template, error)
	Active(ctx context.Context, kind domain.Kind) (*domain.Template, error)
	Delete(ctx context.Context, id int64) error
	Activate(ctx context.Context, id int64) error
	Duplicate(ctx context.Context, id int64) (*domain.Template, error)
	List(ctx context.Context, f storage.ListFilter) ([]storage.Summary, error)
	Ping(ctx context.Context) error
}

// Options configures the router.
type Options struct {
	// Token, when set, is required as a bearer token on /api routes.
	Token string
	// Fonts measures text for previews; BasicProvider when nil.
	Fonts textlayout.Provider
	// Uploads stores images posted to /api/uploads. The route answers 501 when nil.
	Uploads upload.Uploader
	// AssetsDir is served read-only under AssetsPrefix, e.g. local uploads under /uploads.
	AssetsDir    string
	AssetsPrefix string
}

type server struct {
	store Store
	opts  Options
	log   *slog.Logger
}

// PreviewRequest is the body of POST /api/preview.
type PreviewRequest struct {
	Template json.RawMessage `json:"template"`
	Side     domain.SideName `json:"side"`
	Record   render.Record   `json:"record,omitempty"`
}

// NewRouter returns the HTTP API over store.
func NewRouter(store Store, opts Options) chi.Router {
	s := &server{store: store, opts: opts, log: applog.WithComponent("backend")}
	r := chi.NewRouter()
	r.Use(s.recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.ready)
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(version.String()))
	})

	if opts.AssetsDir != "" && strings.Trim(opts.AssetsPrefix, "/") != "" {
		prefix := "/" + strings.Trim(opts.AssetsPrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(opts.AssetsDir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/fields", s.fields)
		r.Post("/preview", s.preview)
		r.Post("/uploads", s.upload)
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", s.list)
			r.Post("/", s.create)
			r.Get("/active/{kind}", s.active)
			r.Get("/{id}", s.get)
			r.Put("/{id}", s.update)
			r.Delete("/{id}", s.remove)
			r.Post("/{id}/activate", s.activate)
			r.Post("/{id}/duplicate", s.duplicate)
		})
	})
	return r
}

// Serve runs handler on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	l := applog.WithComponent("backend")
	errCh := make(chan error, 1)
	go func() {
		l.Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		l.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("db not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *server) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.ListFilter{
		Kind:        domain.Kind(q.Get("kind")),
		SchoolLevel: domain.SchoolLevel(q.Get("school_level")),
	}
	if v := q.Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid active flag %q", v))
			return
		}
		f.ActiveOnly = b
	}
	list, err := s.store.List(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []storage.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *server) create(w http.ResponseWriter, r *http.Request) {
	tpl, ok := s.decodeTemplate(w, r)
	if !ok {
		return
	}
	out, err := s.store.Create(r.Context(), tpl)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	out, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) active(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.Active(r.Context(), domain.Kind(chi.URLParam(r, "kind")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tpl, ok := s.decodeTemplate(w, r)
	if !ok {
		return
	}
	out, err := s.store.Update(r.Context(), id, tpl)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) activate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.Activate(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) duplicate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	out, err := s.store.Duplicate(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *server) fields(w http.ResponseWriter, r *http.Request) {
	kind := domain.Kind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = domain.KindStudent
	}
	writeJSON(w, http.StatusOK, render.Fields(kind))
}

func (s *server) preview(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	var req PreviewRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode preview request: %w", err))
		return
	}
	tpl, err := domain.Parse(req.Template)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tpl.Normalize()
	side := req.Side
	if side == "" {
		side = domain.Front
	}
	if tpl.Side(side) == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown side %q", side))
		return
	}
	writeJSON(w, http.StatusOK, render.Render(tpl, side, req.Record, render.Options{Fonts: s.opts.Fonts}))
}

func (s *server) upload(w http.ResponseWriter, r *http.Request) {
	if s.opts.Uploads == nil {
		writeError(w, http.StatusNotImplemented, errors.New("uploads are not configured"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, upload.MaxBytes+1<<20)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing file: %w", err))
		return
	}
	defer func() { _ = file.Close() }()
	res, err := s.opts.Uploads.Upload(r.Context(), hdr.Filename, file)
	switch {
	case errors.Is(err, upload.ErrNotImage):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, upload.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err)
	case err != nil:
		s.fail(w, r, err)
	default:
		writeJSON(w, http.StatusCreated, res)
	}
}

func (s *server) decodeTemplate(w http.ResponseWriter, r *http.Request) (*domain.Template, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return nil, false
	}
	tpl, err := domain.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return tpl, true
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrInvalidTemplate):
		writeError(w, http.StatusBadRequest, err)
	default:
		s.log.Error("request failed", slog.String("path", r.URL.Path), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid template id"))
		return 0, false
	}
	return id, true
}

// --- Middleware ---

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status == 0 {
		sw.status = code
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	return sw.ResponseWriter.Write(b)
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		s.log.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", sw.status),
			slog.Duration("took", time.Since(start)),
		)
	})
}

func (s *server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic recovered",
					slog.Any("error", rec),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *server) requireToken(next http.Handler) http.Handler {
	if s.opts.Token == "" {
		return next
	}
	want := []byte(s.opts.Token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if len(auth) < len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}
		got := []byte(strings.TrimSpace(auth[len(prefix):]))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			writeError(w, http.StatusUnauthorized, errors.New("invalid token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
