/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package upload

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"idcardstudio/internal/config"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func fixedNow() time.Time { return time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC) }

func TestLocalUploader(t *testing.T) {
	dir := t.TempDir()
	u := &LocalUploader{Dir: dir, PublicURL: "/uploads/", Now: fixedNow}
	res, err := u.Upload(context.Background(), "photo.png", bytes.NewReader(pngBytes(t, 400, 300)))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Width != 400 || res.Height != 300 {
		t.Fatalf("size = %dx%d", res.Width, res.Height)
	}
	if !strings.HasPrefix(res.URL, "/uploads/2025/03/") || !strings.HasSuffix(res.URL, ".png") {
		t.Fatalf("url = %q", res.URL)
	}
	key := strings.TrimPrefix(res.URL, "/uploads/")
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(key))); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	u := &LocalUploader{Dir: t.TempDir()}
	_, err := u.Upload(context.Background(), "notes.txt", strings.NewReader("hello"))
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("err = %v, want ErrNotImage", err)
	}
}

func TestUploadRejectsOversize(t *testing.T) {
	u := &LocalUploader{Dir: t.TempDir()}
	_, err := u.Upload(context.Background(), "big", io.LimitReader(zeroReader{}, MaxBytes+10))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestS3Uploader(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		ctype  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		mu.Lock()
		method, path, ctype = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u, err := NewS3Uploader(srv.URL, "us-east-1", "cards", "AKID", "SECRET", "https://cdn.example.com/")
	if err != nil {
		t.Fatalf("NewS3Uploader: %v", err)
	}
	u.Now = fixedNow
	res, err := u.Upload(context.Background(), "sig.png", bytes.NewReader(pngBytes(t, 50, 20)))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut || !strings.HasPrefix(path, "/cards/2025/03/") {
		t.Fatalf("request = %s %s", method, path)
	}
	if ctype != "image/png" {
		t.Fatalf("content type = %q", ctype)
	}
	if !strings.HasPrefix(res.URL, "https://cdn.example.com/2025/03/") || res.Width != 50 || res.Height != 20 {
		t.Fatalf("result = %+v", res)
	}
}

func TestFromConfig(t *testing.T) {
	u, err := FromConfig(config.UploadConfig{Driver: "local", Dir: t.TempDir()}, config.Secrets{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := u.(*LocalUploader); !ok {
		t.Fatalf("uploader = %T", u)
	}
	if _, err := FromConfig(config.UploadConfig{Driver: "s3", Endpoint: "http://x", Bucket: "b", AccessKey: "a"}, config.Secrets{}); err == nil {
		t.Fatalf("expected missing secret error")
	}
	if _, err := FromConfig(config.UploadConfig{Driver: "ftp"}, config.Secrets{}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestS3URLWithoutPublicURL(t *testing.T) {
	u, err := NewS3Uploader("http://minio:9000/", "us-east-1", "cards", "a", "b", "")
	if err != nil {
		t.Fatal(err)
	}
	if got := u.URL("2025/03/x.png"); got != "http://minio:9000/cards/2025/03/x.png" {
		t.Fatalf("url = %q", got)
	}
}
