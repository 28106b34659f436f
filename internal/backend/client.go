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
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"idcardstudio/internal/domain"
	"idcardstudio/internal/render"
	"idcardstudio/internal/storage"
	"idcardstudio/internal/upload"
)

// Client talks to the template API. It satisfies Store, so the desktop app
// can edit templates held by a server.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithTimeout sets the per-request timeout and, when insecure is true, skips TLS verification.
func (c *Client) WithTimeout(d time.Duration, insecure bool) *Client {
	hc := &http.Client{Timeout: d}
	if insecure {
		hc.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec // opt-in for self-signed dev servers
	}
	c.client = hc
	return c
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server %s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("server %s %s: %d", e.Method, e.Path, e.Code)
}

// Unwrap maps status codes onto the store and upload sentinels.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return storage.ErrNotFound
	case http.StatusBadRequest:
		if strings.HasPrefix(e.Path, "/api/uploads") {
			return upload.ErrNotImage
		}
		return domain.ErrInvalidTemplate
	case http.StatusRequestEntityTooLarge:
		return upload.ErrTooLarge
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, dest any) error {
	var rd io.Reader
	contentType := ""
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, rd, contentType, dest)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{Method: method, Path: u.Path, Code: resp.StatusCode}
		var env struct {
			Error string `json:"error"`
		}
		if b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); json.Unmarshal(b, &env) == nil {
			se.Message = env.Error
		}
		return se
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func (c *Client) template(ctx context.Context, method, path string, body any) (*domain.Template, error) {
	var t domain.Template
	if err := c.do(ctx, method, path, body, &t); err != nil {
		return nil, err
	}
	t.Normalize()
	return &t, nil
}

// Create stores tpl as a new template.
func (c *Client) Create(ctx context.Context, tpl *domain.Template) (*domain.Template, error) {
	return c.template(ctx, http.MethodPost, "/api/templates", tpl)
}

// Update replaces template id.
func (c *Client) Update(ctx context.Context, id int64, tpl *domain.Template) (*domain.Template, error) {
	return c.template(ctx, http.MethodPut, "/api/templates/"+strconv.FormatInt(id, 10), tpl)
}

func (c *Client) Get(ctx context.Context, id int64) (*domain.Template, error) {
	return c.template(ctx, http.MethodGet, "/api/templates/"+strconv.FormatInt(id, 10), nil)
}

func (c *Client) Active(ctx context.Context, kind domain.Kind) (*domain.Template, error) {
	return c.template(ctx, http.MethodGet, "/api/templates/active/"+url.PathEscape(string(kind)), nil)
}

func (c *Client) Duplicate(ctx context.Context, id int64) (*domain.Template, error) {
	return c.template(ctx, http.MethodPost, fmt.Sprintf("/api/templates/%d/duplicate", id), nil)
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/templates/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) Activate(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/templates/%d/activate", id), nil, nil)
}

// List returns template summaries matching f.
func (c *Client) List(ctx context.Context, f storage.ListFilter) ([]storage.Summary, error) {
	q := url.Values{}
	if f.Kind != "" {
		q.Set("kind", string(f.Kind))
	}
	if f.SchoolLevel != "" {
		q.Set("school_level", string(f.SchoolLevel))
	}
	if f.ActiveOnly {
		q.Set("active", "true")
	}
	path := "/api/templates"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var list []storage.Summary
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Fields returns the bindable field catalog for kind.
func (c *Client) Fields(ctx context.Context, kind domain.Kind) ([]render.FieldDef, error) {
	var out []render.FieldDef
	if err := c.do(ctx, http.MethodGet, "/api/fields?kind="+url.QueryEscape(string(kind)), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Preview asks the server to render one side of tpl with rec.
func (c *Client) Preview(ctx context.Context, tpl *domain.Template, side domain.SideName, rec render.Record) (*render.Frame, error) {
	raw, err := domain.Marshal(tpl)
	if err != nil {
		return nil, err
	}
	var f render.Frame
	if err := c.do(ctx, http.MethodPost, "/api/preview", PreviewRequest{Template: raw, Side: side, Record: rec}, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Ping checks /readyz.
func (c *Client) Ping(ctx context.Context) error {
	err := c.do(ctx, http.MethodGet, "/readyz", nil, nil)
	var se *StatusError
	if errors.As(err, &se) {
		return fmt.Errorf("backend not ready: %w", err)
	}
	return err
}

// Upload sends an image to the server's upload target as multipart field "file".
// It satisfies the workspace uploader, so remote editing can place images too.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (upload.Result, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return upload.Result{}, err
	}
	if _, err := io.Copy(fw, io.LimitReader(r, upload.MaxBytes+1)); err != nil {
		return upload.Result{}, fmt.Errorf("read %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return upload.Result{}, err
	}
	var res upload.Result
	if err := c.send(ctx, http.MethodPost, "/api/uploads", &buf, mw.FormDataContentType(), &res); err != nil {
		return upload.Result{}, err
	}
	return res, nil
}
