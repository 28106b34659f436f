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
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	applog "idcardstudio/internal/log"
	"idcardstudio/internal/storage"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/postgres/*.sql
var pgMigrations embed.FS

// EnvPGDSN names the DSN used by the Postgres integration tests.
const EnvPGDSN = "IDC_PG_DSN"

// OpenPostgres connects to dsn through the pgx stdlib driver, applies the
// embedded migrations and returns a template store for the server.
func OpenPostgres(ctx context.Context, dsn string) (*storage.SQLStore, error) {
	l := applog.WithOperation(applog.WithComponent("backend"), "open_postgres")
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		l.Error("ping failed", slog.Any("err", err))
		return nil, fmt.Errorf("ping db: %w", err)
	}
	sub, err := fs.Sub(pgMigrations, "migrations/postgres")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := storage.Migrate(ctx, db, goose.DialectPostgres, sub); err != nil {
		_ = db.Close()
		l.Error("migrate failed", slog.Any("err", err))
		return nil, fmt.Errorf("migrate: %w", err)
	}
	l.Info("postgres ready")
	return storage.NewSQLStore(db, storage.Postgres), nil
}
