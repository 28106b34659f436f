/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"idcardstudio/internal/domain"
	"idcardstudio/internal/render"
	"idcardstudio/internal/storage"
	"idcardstudio/internal/upload"
)

func newTestServer(t *testing.T, token string) (*httptest.Server, *storage.SQLStore) {
	t.Helper()
	st, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	srv := httptest.NewServer(NewRouter(st, Options{Token: token}))
	t.Cleanup(func() {
		srv.Close()
		_ = st.Close()
	})
	return srv, st
}

func cardTemplate(name string) *domain.Template {
	tpl := domain.NewTemplate(name, domain.KindStudent)
	txt := domain.NewTextLayer("text_name")
	txt.Field = "full_name"
	txt.Uppercase = true
	tpl.Front.Layers = []domain.Layer{txt}
	return tpl
}

func TestHealthAndVersion(t *testing.T) {
	srv, _ := newTestServer(t, "")
	for _, p := range []string{"/healthz", "/readyz", "/version"} {
		resp, err := http.Get(srv.URL + p)
		if err != nil {
			t.Fatalf("GET %s: %v", p, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s = %d", p, resp.StatusCode)
		}
	}
}

func TestClientCRUD(t *testing.T) {
	srv, _ := newTestServer(t, "s3cret")
	c := NewClient(srv.URL+"/", "s3cret")
	ctx := context.Background()

	created, err := c.Create(ctx, cardTemplate("Front Desk"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == nil {
		t.Fatalf("no id assigned")
	}
	id := *created.ID
	created.Name = "Front Desk v2"
	updated, err := c.Update(ctx, id, created)
	if err != nil || updated.Name != "Front Desk v2" {
		t.Fatalf("Update = %v %v", updated, err)
	}
	got, err := c.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if txt, ok := got.Front.Layers[0].(*domain.TextLayer); !ok || !txt.Uppercase {
		t.Fatalf("layer did not survive the round trip: %#v", got.Front.Layers[0])
	}
	if err := c.Activate(ctx, id); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	act, err := c.Active(ctx, domain.KindStudent)
	if err != nil || *act.ID != id {
		t.Fatalf("Active = %v %v", act, err)
	}
	dup, err := c.Duplicate(ctx, id)
	if err != nil || dup.Name != "Front Desk v2 (Copy)" || dup.IsActive {
		t.Fatalf("Duplicate = %v %v", dup, err)
	}
	list, err := c.List(ctx, storage.ListFilter{ActiveOnly: true})
	if err != nil || len(list) != 1 || list[0].ID != id {
		t.Fatalf("List active = %+v %v", list, err)
	}
	if err := c.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Get after delete err = %v", err)
	}
}

func TestTokenRequired(t *testing.T) {
	srv, _ := newTestServer(t, "s3cret")
	_, err := NewClient(srv.URL, "wrong").List(context.Background(), storage.ListFilter{})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401", err)
	}
	// health stays open
	if err := NewClient(srv.URL, "").Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestCreateRejectsInvalidTemplate(t *testing.T) {
	srv, _ := newTestServer(t, "")
	resp, err := http.Post(srv.URL+"/api/templates", "application/json", strings.NewReader(`{"templateName":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestInvalidID(t *testing.T) {
	srv, _ := newTestServer(t, "")
	resp, err := http.Get(srv.URL + "/api/templates/abc")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestFieldsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "")
	fields, err := NewClient(srv.URL, "").Fields(context.Background(), domain.KindTeacher)
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != len(render.Fields(domain.KindTeacher)) {
		t.Fatalf("fields = %d", len(fields))
	}
}

func TestPreviewRendersRecord(t *testing.T) {
	srv, _ := newTestServer(t, "")
	c := NewClient(srv.URL, "")
	frame, err := c.Preview(context.Background(), cardTemplate("p"), domain.Front, render.Record{"full_name": "Ana Reyes"})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(frame.Elements) != 1 || frame.Elements[0].Text == nil {
		t.Fatalf("elements = %+v", frame.Elements)
	}
	if got := frame.Elements[0].Text.Content; got != "ANA REYES" {
		t.Fatalf("content = %q", got)
	}
}

func TestPreviewUnknownSide(t *testing.T) {
	srv, _ := newTestServer(t, "")
	raw, _ := domain.Marshal(cardTemplate("p"))
	body, _ := json.Marshal(PreviewRequest{Template: raw, Side: "inside"})
	resp, err := http.Post(srv.URL+"/api/preview", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv(EnvPGDSN)
	if dsn == "" {
		t.Skip("set " + EnvPGDSN + " to run the Postgres test")
	}
	ctx := context.Background()
	st, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer st.Close()
	created, err := st.Create(ctx, cardTemplate("pg"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer func() { _ = st.Delete(ctx, *created.ID) }()
	created.Name = "pg v2"
	if _, err := st.Update(ctx, *created.ID, created); err != nil {
		t.Fatalf("Update: %v", err)
	}
	revs, err := st.Revisions(ctx, *created.ID, 5)
	if err != nil || len(revs) != 1 {
		t.Fatalf("revisions = %d %v", len(revs), err)
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestUploadAndServeAsset(t *testing.T) {
	st, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer func() { _ = st.Close() }()
	dir := t.TempDir()
	srv := httptest.NewServer(NewRouter(st, Options{
		Token:        "s3cret",
		Uploads:      &upload.LocalUploader{Dir: dir, PublicURL: "/uploads"},
		AssetsDir:    dir,
		AssetsPrefix: "/uploads",
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "s3cret")
	res, err := c.Upload(context.Background(), "logo.png", bytes.NewReader(pngBytes(t, 40, 30)))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Width != 40 || res.Height != 30 || !strings.HasPrefix(res.URL, "/uploads/") || !strings.HasSuffix(res.URL, ".png") {
		t.Fatalf("unexpected result %+v", res)
	}
	resp, err := http.Get(srv.URL + res.URL)
	if err != nil {
		t.Fatalf("GET asset: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Fatalf("asset not served: %d", resp.StatusCode)
	}

	_, err = c.Upload(context.Background(), "notes.txt", strings.NewReader("plain text"))
	if !errors.Is(err, upload.ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
}

func TestUploadNotConfigured(t *testing.T) {
	srv, _ := newTestServer(t, "")
	_, err := NewClient(srv.URL, "").Upload(context.Background(), "a.png", bytes.NewReader(pngBytes(t, 2, 2)))
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %v", err)
	}
}
