/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package upload stores card images (photos, signatures, logos) and reports
// their pixel size so the editor can place them. Targets are a local
// directory or an S3-compatible bucket.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"idcardstudio/internal/config"
	applog "idcardstudio/internal/log"
)

// MaxBytes caps an uploaded image.
const MaxBytes = 10 << 20

var (
	// ErrNotImage is returned when the payload does not decode as a supported image.
	ErrNotImage = errors.New("unsupported image")
	// ErrTooLarge is returned when the payload exceeds MaxBytes.
	ErrTooLarge = errors.New("image too large")
)

// Result describes a stored image.
type Result struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Uploader stores an image and returns where it can be fetched from.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (Result, error)
}

// probed is the decoded header of an accepted upload.
type probed struct {
	data        []byte
	format      string
	contentType string
	width       int
	height      int
}

// probe reads at most MaxBytes from r and decodes the image header.
func probe(r io.Reader) (probed, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return probed{}, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxBytes {
		return probed{}, ErrTooLarge
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return probed{}, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return probed{}, fmt.Errorf("%w: empty image", ErrNotImage)
	}
	return probed{
		data:        data,
		format:      format,
		contentType: http.DetectContentType(data),
		width:       cfg.Width,
		height:      cfg.Height,
	}, nil
}

// objectKey builds "<yyyy>/<mm>/<uuid>.<format>"; the original name is kept only as a hint in logs.
func objectKey(now time.Time, format string) string {
	ext := format
	if ext == "jpeg" {
		ext = "jpg"
	}
	return path.Join(now.UTC().Format("2006"), now.UTC().Format("01"), uuid.NewString()+"."+ext)
}

// LocalUploader writes images under Dir and serves them at PublicURL.
type LocalUploader struct {
	Dir       string
	PublicURL string
	Now       func() time.Time
}

func (u *LocalUploader) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

// Upload stores the image under a fresh key.
func (u *LocalUploader) Upload(ctx context.Context, name string, r io.Reader) (Result, error) {
	p, err := probe(r)
	if err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	key := objectKey(u.now(), p.format)
	dst := filepath.Join(u.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Result{}, fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(dst, p.data, 0o644); err != nil {
		return Result{}, fmt.Errorf("write upload: %w", err)
	}
	applog.WithComponent("upload").Info("image stored",
		slog.String("name", name), slog.String("key", key), slog.Int("w", p.width), slog.Int("h", p.height))
	return Result{URL: strings.TrimRight(u.PublicURL, "/") + "/" + key, Width: p.width, Height: p.height}, nil
}

// S3Uploader puts images into an S3-compatible bucket with path-style addressing.
type S3Uploader struct {
	client    *s3.Client
	bucket    string
	endpoint  string
	publicURL string
	Now       func() time.Time
}

// NewS3Uploader returns an uploader for bucket at endpoint using static credentials.
func NewS3Uploader(endpoint, region, bucket, accessKey, secretKey, publicURL string) (*S3Uploader, error) {
	if endpoint == "" || bucket == "" {
		return nil, errors.New("s3 endpoint and bucket are required")
	}
	if accessKey == "" || secretKey == "" {
		return nil, errors.New("s3 credentials are required")
	}
	endpoint = strings.TrimRight(endpoint, "/")
	client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})
	return &S3Uploader{client: client, bucket: bucket, endpoint: endpoint, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// URL returns the public address of key.
func (u *S3Uploader) URL(key string) string {
	if u.publicURL != "" {
		return u.publicURL + "/" + key
	}
	return u.endpoint + "/" + u.bucket + "/" + key
}

// Upload puts the image as a public-read object.
func (u *S3Uploader) Upload(ctx context.Context, name string, r io.Reader) (Result, error) {
	p, err := probe(r)
	if err != nil {
		return Result{}, err
	}
	now := time.Now()
	if u.Now != nil {
		now = u.Now()
	}
	key := objectKey(now, p.format)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(p.data),
		ContentLength: aws.Int64(int64(len(p.data))),
		ContentType:   aws.String(p.contentType),
		ACL:           s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return Result{}, fmt.Errorf("s3 upload %s/%s: %w", u.bucket, key, err)
	}
	applog.WithComponent("upload").Info("image stored",
		slog.String("name", name), slog.String("bucket", u.bucket), slog.String("key", key))
	return Result{URL: u.URL(key), Width: p.width, Height: p.height}, nil
}

// FromConfig builds the uploader selected by cfg.Driver.
func FromConfig(cfg config.UploadConfig, sec config.Secrets) (Uploader, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "local":
		return &LocalUploader{Dir: cfg.Dir, PublicURL: cfg.PublicURL}, nil
	case "s3":
		return NewS3Uploader(cfg.Endpoint, cfg.Region, cfg.Bucket, cfg.AccessKey, sec.S3SecretKey, cfg.PublicURL)
	}
	return nil, fmt.Errorf("unknown upload driver %q", cfg.Driver)
}
