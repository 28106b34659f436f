/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"idcardstudio/internal/domain"
	applog "idcardstudio/internal/log"
)

// ErrNotFound is returned when no template has the requested id.
var ErrNotFound = errors.New("template not found")

// CopySuffix is appended to the name of a duplicated template.
const CopySuffix = " (Copy)"

// DefaultKeepRevisions is how many prior versions Update keeps per template.
const DefaultKeepRevisions = 20

// Dialect selects the SQL flavor of the underlying database.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// rebind rewrites ? placeholders to $n for Postgres.
func (d Dialect) rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// textTime is a fixed-width UTC layout so TEXT columns sort chronologically.
const textTime = "2006-01-02T15:04:05.000000000Z"

// timeArg formats t for a timestamp column. SQLite keeps text.
func (d Dialect) timeArg(t time.Time) any {
	if d == Postgres {
		return t.UTC()
	}
	return t.UTC().Format(textTime)
}

// dbTime scans TEXT or native timestamp columns.
type dbTime struct{ time.Time }

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
	default:
		return fmt.Errorf("scan time: unsupported %T", src)
	}
	return nil
}

func (t *dbTime) parse(s string) error {
	p, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("scan time %q: %w", s, err)
	}
	t.Time = p.UTC()
	return nil
}

// Summary is one row of a template listing.
type Summary struct {
	ID          int64              `json:"id"`
	Name        string             `json:"templateName"`
	Kind        domain.Kind        `json:"templateType"`
	SchoolLevel domain.SchoolLevel `json:"schoolLevel"`
	IsActive    bool               `json:"isActive"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Kind        domain.Kind
	SchoolLevel domain.SchoolLevel
	ActiveOnly  bool
}

// SQLStore persists templates in a SQL database. The exchange JSON is stored
// whole; name, kind, level, active flag and timestamps are mirrored in columns
// and take precedence when reading.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	log     *slog.Logger
	// Now supplies timestamps; time.Now when nil.
	Now func() time.Time
	// KeepRevisions caps stored prior versions per template; DefaultKeepRevisions when zero.
	KeepRevisions int
}

// NewSQLStore wraps an open, migrated database.
func NewSQLStore(db *sql.DB, d Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: d, log: applog.WithComponent("storage").With(slog.String("dialect", d.String()))}
}

func (s *SQLStore) DB() *sql.DB      { return s.db }
func (s *SQLStore) Dialect() Dialect { return s.dialect }
func (s *SQLStore) Close() error     { return s.db.Close() }

// Ping checks that the database answers.
func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *SQLStore) q(query string) string { return s.dialect.rebind(query) }

// language=SQL
const selectTemplateSQL = `SELECT id, name, kind, school_level, is_active, body, created_at, updated_at FROM templates`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(r rowScanner) (*domain.Template, error) {
	var (
		id               int64
		name, kind, lvl  string
		active           bool
		body             []byte
		created, updated dbTime
	)
	if err := r.Scan(&id, &name, &kind, &lvl, &active, &body, &created, &updated); err != nil {
		return nil, err
	}
	var t domain.Template
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("decode template %d: %w", id, err)
	}
	t.ID = &id
	t.Name = name
	t.Kind = domain.Kind(kind)
	t.SchoolLevel = domain.SchoolLevel(lvl)
	t.IsActive = active
	c, u := created.Time, updated.Time
	t.Metadata.CreatedAt = &c
	t.Metadata.UpdatedAt = &u
	t.Normalize()
	return &t, nil
}

func encodeBody(t *domain.Template) (string, error) {
	c := t.Clone()
	c.ID = nil
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode template: %w", err)
	}
	return string(b), nil
}

// Create inserts tpl under a new id and returns the stored template. An active
// template deactivates the others of the same kind and school level.
func (s *SQLStore) Create(ctx context.Context, tpl *domain.Template) (*domain.Template, error) {
	t := tpl.Clone()
	t.Normalize()
	now := s.now()
	t.Metadata.CreatedAt, t.Metadata.UpdatedAt = &now, &now
	body, err := encodeBody(t)
	if err != nil {
		return nil, err
	}
	var id int64
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if t.IsActive {
			if _, err := tx.ExecContext(ctx, s.q(`UPDATE templates SET is_active = ? WHERE kind = ? AND school_level = ?`), false, string(t.Kind), string(t.SchoolLevel)); err != nil {
				return err
			}
		}
		return tx.QueryRowContext(ctx, s.q(`INSERT INTO templates (name, kind, school_level, is_active, body, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			t.Name, string(t.Kind), string(t.SchoolLevel), t.IsActive, body, s.dialect.timeArg(now), s.dialect.timeArg(now)).Scan(&id)
	})
	if err != nil {
		s.log.Error("create failed", slog.String("name", t.Name), slog.Any("err", err))
		return nil, fmt.Errorf("create template: %w", err)
	}
	s.log.Info("template created", slog.Int64("id", id), slog.String("name", t.Name))
	return s.Get(ctx, id)
}

// Update replaces the template with id. The previous body is kept as a revision.
func (s *SQLStore) Update(ctx context.Context, id int64, tpl *domain.Template) (*domain.Template, error) {
	t := tpl.Clone()
	t.Normalize()
	now := s.now()
	t.Metadata.UpdatedAt = &now
	body, err := encodeBody(t)
	if err != nil {
		return nil, err
	}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var prev string
		err := tx.QueryRowContext(ctx, s.q(`SELECT body FROM templates WHERE id = ?`), id).Scan(&prev)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if t.IsActive {
			if _, err := tx.ExecContext(ctx, s.q(`UPDATE templates SET is_active = ? WHERE kind = ? AND school_level = ? AND id <> ?`), false, string(t.Kind), string(t.SchoolLevel), id); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE templates SET name = ?, kind = ?, school_level = ?, is_active = ?, body = ?, updated_at = ? WHERE id = ?`),
			t.Name, string(t.Kind), string(t.SchoolLevel), t.IsActive, body, s.dialect.timeArg(now), id); err != nil {
			return err
		}
		return s.addRevision(ctx, tx, id, prev, now)
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Error("update failed", slog.Int64("id", id), slog.Any("err", err))
		}
		return nil, fmt.Errorf("update template %d: %w", id, err)
	}
	return s.Get(ctx, id)
}

// Get loads the template with id.
func (s *SQLStore) Get(ctx context.Context, id int64) (*domain.Template, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, s.q(selectTemplateSQL+` WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get template %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get template %d: %w", id, err)
	}
	return t, nil
}

// Active returns the active template of kind.
func (s *SQLStore) Active(ctx context.Context, kind domain.Kind) (*domain.Template, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx, s.q(selectTemplateSQL+` WHERE kind = ? AND is_active = ? ORDER BY updated_at DESC LIMIT 1`), string(kind), true))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active %s template: %w", kind, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("active %s template: %w", kind, err)
	}
	return t, nil
}

// Delete removes the template with id and its revisions.
func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM template_revisions WHERE template_id = ?`), id); err != nil {
			return err
		}
		return expectOne(tx.ExecContext(ctx, s.q(`DELETE FROM templates WHERE id = ?`), id))
	})
	if err != nil {
		return fmt.Errorf("delete template %d: %w", id, err)
	}
	s.log.Info("template deleted", slog.Int64("id", id))
	return nil
}

// Activate makes id the only active template.
func (s *SQLStore) Activate(ctx context.Context, id int64) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE templates SET is_active = ? WHERE id <> ?`), false, id); err != nil {
			return err
		}
		return expectOne(tx.ExecContext(ctx, s.q(`UPDATE templates SET is_active = ? WHERE id = ?`), true, id))
	})
	if err != nil {
		return fmt.Errorf("activate template %d: %w", id, err)
	}
	s.log.Info("template activated", slog.Int64("id", id))
	return nil
}

// Duplicate stores an inactive copy of id named "<name> (Copy)".
func (s *SQLStore) Duplicate(ctx context.Context, id int64) (*domain.Template, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	src.ID = nil
	src.Name += CopySuffix
	src.IsActive = false
	src.Metadata.CreatedAt, src.Metadata.UpdatedAt = nil, nil
	return s.Create(ctx, src)
}

// List returns template summaries, most recently updated first.
func (s *SQLStore) List(ctx context.Context, f ListFilter) ([]Summary, error) {
	query := `SELECT id, name, kind, school_level, is_active, created_at, updated_at FROM templates WHERE 1=1`
	var args []any
	if f.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(f.Kind))
	}
	if f.SchoolLevel != "" {
		query += ` AND school_level = ?`
		args = append(args, string(f.SchoolLevel))
	}
	if f.ActiveOnly {
		query += ` AND is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY updated_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := []Summary{}
	for rows.Next() {
		var (
			sum              Summary
			kind, lvl        string
			created, updated dbTime
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &kind, &lvl, &sum.IsActive, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		sum.Kind, sum.SchoolLevel = domain.Kind(kind), domain.SchoolLevel(lvl)
		sum.CreatedAt, sum.UpdatedAt = created.Time, updated.Time
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func expectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
