/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Secrets (backend token, S3 secret key) never go to disk; they live in the OS keychain.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Editor        EditorConfig  `yaml:"editor"`
	Storage       StorageConfig `yaml:"storage"`
	Backend       BackendConfig `yaml:"backend"`
	Upload        UploadConfig  `yaml:"upload"`
	Server        ServerConfig  `yaml:"server"`
	Logging       LoggingConfig `yaml:"logging"`
}

// EditorConfig tunes the interactive canvas.
type EditorConfig struct {
	GridSize        float64 `yaml:"grid_size"`
	SnapToGrid      bool    `yaml:"snap_to_grid"`
	MinLayerSize    float64 `yaml:"min_layer_size"`
	HistoryLimit    int     `yaml:"history_limit"`
	DuplicateOffset float64 `yaml:"duplicate_offset"`
	RotationSnapDeg float64 `yaml:"rotation_snap_deg"`
	// HistoryCoalesceMs merges repeated property edits of a layer into one undo step.
	HistoryCoalesceMs int `yaml:"history_coalesce_ms"`
}

// StorageConfig selects where templates are persisted.
// Driver is one of "sqlite", "postgres" or "remote" (backend HTTP API).
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
}

// UploadConfig selects the image upload target. Driver is "local" or "s3".
type UploadConfig struct {
	Driver    string `yaml:"driver"`
	Dir       string `yaml:"dir"`
	PublicURL string `yaml:"public_url"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Secrets are loaded from and saved to the OS keychain.
type Secrets struct {
	BackendToken string
	S3SecretKey  string
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Editor: EditorConfig{
			GridSize:          10,
			SnapToGrid:        true,
			MinLayerSize:      20,
			HistoryLimit:      MaxHistoryLimit,
			HistoryCoalesceMs: 750,
			DuplicateOffset:   20,
			RotationSnapDeg:   15,
		},
		Storage: StorageConfig{Driver: "sqlite", Path: defaultDataPath("templates.db")},
		Backend: BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Upload:  UploadConfig{Driver: "local", Dir: defaultDataPath("uploads"), PublicURL: "/uploads", Region: "us-east-1"},
		Server:  ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// MaxHistoryLimit is the deepest undo history the editor keeps.
const MaxHistoryLimit = 50

// Env var names used as overrides.
const (
	EnvConfigFile       = "IDC_CONFIG"
	EnvGridSize         = "IDC_GRID_SIZE"
	EnvSnapToGrid       = "IDC_SNAP_TO_GRID"
	EnvHistoryLimit     = "IDC_HISTORY_LIMIT"
	EnvStorageDriver    = "IDC_STORAGE_DRIVER"
	EnvStoragePath      = "IDC_STORAGE_PATH"
	EnvStorageDSN       = "IDC_STORAGE_DSN"
	EnvBackendURL       = "IDC_BACKEND_URL"
	EnvBackendTimeoutMs = "IDC_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "IDC_TLS_INSECURE"
	EnvUploadDriver     = "IDC_UPLOAD_DRIVER"
	EnvUploadDir        = "IDC_UPLOAD_DIR"
	EnvS3Endpoint       = "IDC_S3_ENDPOINT"
	EnvS3Bucket         = "IDC_S3_BUCKET"
	EnvServerAddr       = "IDC_SERVER_ADDR"
	EnvLogLevel         = "IDC_LOG_LEVEL"
	EnvLogFormat        = "IDC_LOG_FORMAT"
	EnvLogSource        = "IDC_LOG_SOURCE"
	EnvLogFile          = "IDC_LOG_FILE"
)

// envKeys maps dotted config keys to the env var that overrides them.
var envKeys = map[string]string{
	"editor.grid_size":     EnvGridSize,
	"editor.snap_to_grid":  EnvSnapToGrid,
	"editor.history_limit": EnvHistoryLimit,
	"storage.driver":       EnvStorageDriver,
	"storage.path":         EnvStoragePath,
	"storage.dsn":          EnvStorageDSN,
	"backend.base_url":     EnvBackendURL,
	"backend.timeout_ms":   EnvBackendTimeoutMs,
	"backend.tls_insecure": EnvBackendTLSInsec,
	"upload.driver":        EnvUploadDriver,
	"upload.dir":           EnvUploadDir,
	"upload.endpoint":      EnvS3Endpoint,
	"upload.bucket":        EnvS3Bucket,
	"server.addr":          EnvServerAddr,
	"logging.level":        EnvLogLevel,
	"logging.format":       EnvLogFormat,
	"logging.source":       EnvLogSource,
	"logging.file":         EnvLogFile,
}

func appDir() string {
	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		return filepath.Join(base, "IDCardStudio")
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "IDCardStudio")
	default:
		return filepath.Join(os.Getenv("HOME"), ".config", "idcardstudio")
	}
}

func defaultDataPath(name string) string { return filepath.Join(appDir(), name) }

// ConfigPath returns the per-user config file path. IDC_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	base := appDir()
	if !filepath.IsAbs(base) {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// Secrets are read from the keychain and returned separately.
func Load() (AppConfig, Secrets, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, Secrets{}, err
	}
	if data, err := os.ReadFile(path); err == nil {
		// keys missing from the file keep their defaults, booleans included
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	var sec Secrets
	sec.BackendToken, _ = tokenStore.Get(keyringService, keyringToken)
	sec.S3SecretKey, _ = tokenStore.Get(keyringService, keyringS3Secret)
	return cfg, sec, nil
}

// Save writes the user config YAML and persists non-empty secrets into the keychain.
func Save(cfg AppConfig, sec Secrets) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if sec.BackendToken != "" {
		if err := tokenStore.Set(keyringService, keyringToken, sec.BackendToken); err != nil {
			return err
		}
	}
	if sec.S3SecretKey != "" {
		if err := tokenStore.Set(keyringService, keyringS3Secret, sec.S3SecretKey); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// editor
	if src.Editor.GridSize > 0 {
		dst.Editor.GridSize = src.Editor.GridSize
	}
	dst.Editor.SnapToGrid = src.Editor.SnapToGrid
	if src.Editor.MinLayerSize > 0 {
		dst.Editor.MinLayerSize = src.Editor.MinLayerSize
	}
	if src.Editor.HistoryLimit > 0 {
		dst.Editor.HistoryLimit = min(src.Editor.HistoryLimit, MaxHistoryLimit)
	}
	if src.Editor.HistoryCoalesceMs >= 0 {
		dst.Editor.HistoryCoalesceMs = src.Editor.HistoryCoalesceMs
	}
	if src.Editor.DuplicateOffset != 0 {
		dst.Editor.DuplicateOffset = src.Editor.DuplicateOffset
	}
	if src.Editor.RotationSnapDeg > 0 {
		dst.Editor.RotationSnapDeg = src.Editor.RotationSnapDeg
	}
	// storage
	mergeString(&dst.Storage.Driver, strings.ToLower(src.Storage.Driver))
	mergeString(&dst.Storage.Path, src.Storage.Path)
	mergeString(&dst.Storage.DSN, src.Storage.DSN)
	// backend
	mergeString(&dst.Backend.BaseURL, src.Backend.BaseURL)
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure
	// upload
	mergeString(&dst.Upload.Driver, strings.ToLower(src.Upload.Driver))
	mergeString(&dst.Upload.Dir, src.Upload.Dir)
	mergeString(&dst.Upload.PublicURL, src.Upload.PublicURL)
	mergeString(&dst.Upload.Endpoint, src.Upload.Endpoint)
	mergeString(&dst.Upload.Region, src.Upload.Region)
	mergeString(&dst.Upload.Bucket, src.Upload.Bucket)
	mergeString(&dst.Upload.AccessKey, src.Upload.AccessKey)
	mergeString(&dst.Server.Addr, src.Server.Addr)
	// logging
	mergeString(&dst.Logging.Level, strings.ToLower(src.Logging.Level))
	mergeString(&dst.Logging.Format, strings.ToLower(src.Logging.Format))
	dst.Logging.Source = src.Logging.Source
	mergeString(&dst.Logging.File, src.Logging.File)
}

func mergeString(dst *string, src string) {
	if s := strings.TrimSpace(src); s != "" {
		*dst = s
	}
}

func envBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	get := func(name string) string { return strings.TrimSpace(os.Getenv(name)) }

	if v := get(EnvGridSize); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Editor.GridSize = f
		}
	}
	if v := get(EnvSnapToGrid); v != "" {
		cfg.Editor.SnapToGrid = envBool(v)
	}
	if v := get(EnvHistoryLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.HistoryLimit = min(n, MaxHistoryLimit)
		}
	}
	if v := get(EnvStorageDriver); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := get(EnvStoragePath); v != "" {
		cfg.Storage.Path = v
	}
	if v := get(EnvStorageDSN); v != "" {
		cfg.Storage.DSN = v
	}
	if v := get(EnvBackendURL); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := get(EnvBackendTimeoutMs); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := get(EnvBackendTLSInsec); v != "" {
		cfg.Backend.TLSInsecure = envBool(v)
	}
	if v := get(EnvUploadDriver); v != "" {
		cfg.Upload.Driver = strings.ToLower(v)
	}
	if v := get(EnvUploadDir); v != "" {
		cfg.Upload.Dir = v
	}
	if v := get(EnvS3Endpoint); v != "" {
		cfg.Upload.Endpoint = v
	}
	if v := get(EnvS3Bucket); v != "" {
		cfg.Upload.Bucket = v
	}
	if v := get(EnvServerAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := get(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := get(EnvLogFormat); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := get(EnvLogSource); v != "" {
		cfg.Logging.Source = envBool(v)
	}
	if v := get(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// EffectiveTimeout returns the backend timeout, falling back to the default when unset.
func (b BackendConfig) EffectiveTimeout() time.Duration {
	ms := b.TimeoutMs
	if ms <= 0 {
		ms = Defaults().Backend.TimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}
