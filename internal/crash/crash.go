/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report and a recovery copy of the
// template being edited.
package crash

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"idcardstudio/internal/domain"
	applog "idcardstudio/internal/log"
	"idcardstudio/internal/storage"
	"idcardstudio/internal/version"
)

// RecoveryFileName is the autosave written on a crash, inside the guard directory.
const RecoveryFileName = "recovery.json"

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Guard names what Recover saves. A nil Snapshot skips the autosave; an empty
// Dir writes the report to the system temp directory.
type Guard struct {
	Dir      string
	Snapshot func() *domain.Template
}

// Recover captures a panic, logs it with its stack, writes a crash report and
// autosaves the live template before exiting with code 2.
//
// Usage: defer crash.Recover(g)
func Recover(g *Guard) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(g, r, stack)
		if g != nil && g.Snapshot != nil {
			if path, err := Autosave(g.Dir, g.Snapshot); err != nil {
				l.Error("autosave failed", slog.Any("err", err))
			} else {
				l.Info("autosave written", slog.String("path", path))
			}
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

// Autosave writes the template returned by snapshot to dir/recovery.json. A
// panic inside snapshot is reported as an error.
func Autosave(dir string, snapshot func() *domain.Template) (path string, err error) {
	if dir == "" {
		return "", errors.New("autosave dir is required")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("snapshot panicked: %v", r)
		}
	}()
	tpl := snapshot()
	if tpl == nil {
		return "", errors.New("nothing to autosave")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure recovery dir: %w", err)
	}
	path = filepath.Join(dir, RecoveryFileName)
	if err := storage.WriteTemplateFile(path, tpl); err != nil {
		return "", err
	}
	return path, nil
}

// LoadRecovery returns the autosaved template in dir, falling back to its backups.
func LoadRecovery(dir string) (*domain.Template, error) {
	return storage.ReadTemplateFile(filepath.Join(dir, RecoveryFileName))
}

// ClearRecovery removes the autosave after it has been restored or discarded.
func ClearRecovery(dir string) error {
	err := os.Remove(filepath.Join(dir, RecoveryFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func writeReport(g *Guard, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if g != nil && g.Dir != "" {
		dir = filepath.Join(g.Dir, storage.BackupsDirName)
		_ = os.MkdirAll(dir, 0o755)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "IDCardStudio Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if g != nil && g.Dir != "" {
		_, _ = fmt.Fprintf(&buf, "RecoveryDir: %s\n", g.Dir)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := storage.WriteFileAtomic(path, buf.Bytes()); err != nil {
		applog.WithComponent("crash").Error("failed to write crash report", slog.Any("err", err), slog.String("path", path))
		return path, err
	}
	return path, nil
}
