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
	"time"

	"idcardstudio/internal/domain"
)

// Revision is a prior version of a template kept by Update.
type Revision struct {
	ID   int64
	TS   time.Time
	Body []byte
}

// Template decodes the revision body.
func (r Revision) Template() (*domain.Template, error) {
	var t domain.Template
	if err := json.Unmarshal(r.Body, &t); err != nil {
		return nil, fmt.Errorf("decode revision %d: %w", r.ID, err)
	}
	return &t, nil
}

// language=SQL
const pruneRevisionsSQL = `DELETE FROM template_revisions WHERE template_id = ? AND id NOT IN (
	SELECT id FROM template_revisions WHERE template_id = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

func (s *SQLStore) addRevision(ctx context.Context, tx *sql.Tx, id int64, body string, ts time.Time) error {
	if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO template_revisions (template_id, ts, body) VALUES (?, ?, ?)`), id, s.dialect.timeArg(ts), body); err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	keep := s.KeepRevisions
	if keep <= 0 {
		keep = DefaultKeepRevisions
	}
	if _, err := tx.ExecContext(ctx, s.q(pruneRevisionsSQL), id, id, keep); err != nil {
		return fmt.Errorf("prune revisions: %w", err)
	}
	return nil
}

// Revisions returns up to limit prior versions of id, newest first.
func (s *SQLStore) Revisions(ctx context.Context, id int64, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = DefaultKeepRevisions
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id, ts, body FROM template_revisions WHERE template_id = ? ORDER BY ts DESC, id DESC LIMIT ?`), id, limit)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Revision
	for rows.Next() {
		var (
			r  Revision
			ts dbTime
		)
		if err := rows.Scan(&r.ID, &ts, &r.Body); err != nil {
			return nil, err
		}
		r.TS = ts.Time
		out = append(out, r)
	}
	return out, rows.Err()
}

// Restore writes revision rev back as the current version of id.
func (s *SQLStore) Restore(ctx context.Context, id, rev int64) (*domain.Template, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, s.q(`SELECT body FROM template_revisions WHERE template_id = ? AND id = ?`), id, rev).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revision %d of template %d: %w", rev, id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	t, err := Revision{ID: rev, Body: body}.Template()
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, id, t)
}
