/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lastJSONLine(t *testing.T, b []byte) map[string]any {
	t.Helper()
	scanner := bufio.NewScanner(bytes.NewReader(b))
	var last string
	for scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	return m
}

func TestInitAndStructuredLoggingToFile(t *testing.T) {
	fpath := filepath.Join(os.TempDir(), fmt.Sprintf("idc_log_%d.json", time.Now().UnixNano()))

	var console bytes.Buffer
	Init(Options{Level: "debug", Format: "json", File: fpath, Output: &console})

	l := WithOperation(WithComponent("editor"), "drag")
	l.Info("layer moved", slog.String("layer", "name-1"))

	time.Sleep(50 * time.Millisecond)

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	m := lastJSONLine(t, b)
	if m["app"] != "idcardstudio" {
		t.Fatalf("missing app attr: %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if m["component"] != "editor" || m["op"] != "drag" || m["layer"] != "name-1" {
		t.Fatalf("context attrs mismatch: %v", m)
	}
	if m["msg"] != "layer moved" {
		t.Fatalf("msg mismatch: %v", m["msg"])
	}

	// console sink receives the same record
	if c := lastJSONLine(t, console.Bytes()); c["msg"] != "layer moved" {
		t.Fatalf("console msg mismatch: %v", c["msg"])
	}
}

func TestSetLevelFiltersConsole(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "info", Format: "console", Output: &buf})
	L().Debug("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug record leaked at info level: %q", buf.String())
	}
	SetLevel("debug")
	L().Debug("shown")
	if !strings.Contains(buf.String(), "DBG shown") {
		t.Fatalf("debug record missing after SetLevel: %q", buf.String())
	}
}

func TestFromEnvAndGetenv(t *testing.T) {
	t.Setenv("IDC_LOG_LEVEL", "warn")
	t.Setenv("IDC_LOG_FORMAT", "json")
	t.Setenv("IDC_LOG_SOURCE", "true")
	t.Setenv("IDC_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if v := getenv("IDC_SOME_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestPrettyTextHandler_Behavior(t *testing.T) {
	var buf bytes.Buffer
	h := &prettyTextHandler{opts: prettyOpts{Level: slog.LevelWarn, AddSource: true}, w: &buf}
	ctx := context.Background()

	if h.Enabled(ctx, slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	h2 := h.WithAttrs([]slog.Attr{slog.String("k", "v")}).WithGroup("grp")

	r := slog.Record{Time: time.Now(), Level: slog.LevelError, Message: "boom"}
	r.AddAttrs(slog.Int("n", 42), slog.Float64("pi", 3.14), slog.String("name", "front side"))
	if err := h2.Handle(ctx, r); err != nil {
		t.Fatalf("handle error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"ERR boom", " k=v", "grp.n=42", "grp.pi=3.14", `grp.name="front side"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q: %q", want, out)
		}
	}
}
