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
	"errors"
	"path/filepath"
	"testing"
	"time"

	"idcardstudio/internal/domain"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "templates.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	clock := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	s.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func sampleTemplate(name string, kind domain.Kind) *domain.Template {
	tpl := domain.NewTemplate(name, kind)
	txt := domain.NewTextLayer("text_name")
	txt.Field = "full_name"
	tpl.Front.Layers = []domain.Layer{txt, domain.NewQRCodeLayer("qr_id")}
	return tpl
}

func TestCreateGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	created, err := s.Create(ctx, sampleTemplate("Student 2025", domain.KindStudent))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == nil || *created.ID <= 0 {
		t.Fatalf("Create did not assign an id")
	}
	if created.Metadata.CreatedAt == nil || created.Metadata.UpdatedAt == nil {
		t.Fatalf("timestamps missing")
	}
	got, err := s.Get(ctx, *created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Student 2025" || len(got.Front.Layers) != 2 {
		t.Fatalf("got %+v", got)
	}
	txt, ok := got.Front.Layers[0].(*domain.TextLayer)
	if !ok || txt.Field != "full_name" {
		t.Fatalf("layer[0] = %#v", got.Front.Layers[0])
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete err = %v", err)
	}
	if _, err := s.Update(context.Background(), 42, sampleTemplate("x", domain.KindStudent)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update err = %v", err)
	}
}

func TestUpdateKeepsRevisions(t *testing.T) {
	s := openTestStore(t)
	s.KeepRevisions = 2
	ctx := context.Background()
	c, err := s.Create(ctx, sampleTemplate("v1", domain.KindTeacher))
	if err != nil {
		t.Fatal(err)
	}
	id := *c.ID
	for _, name := range []string{"v2", "v3", "v4"} {
		c.Name = name
		if c, err = s.Update(ctx, id, c); err != nil {
			t.Fatalf("Update %s: %v", name, err)
		}
	}
	if c.Name != "v4" || !c.Metadata.UpdatedAt.After(*c.Metadata.CreatedAt) {
		t.Fatalf("updated = %q %v/%v", c.Name, c.Metadata.CreatedAt, c.Metadata.UpdatedAt)
	}
	revs, err := s.Revisions(ctx, id, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(revs) != 2 {
		t.Fatalf("revisions = %d, want 2", len(revs))
	}
	prev, err := revs[0].Template()
	if err != nil || prev.Name != "v3" {
		t.Fatalf("newest revision = %v %v", prev, err)
	}
	restored, err := s.Restore(ctx, id, revs[0].ID)
	if err != nil || restored.Name != "v3" {
		t.Fatalf("restore = %v %v", restored, err)
	}
}

func TestActivateIsExclusive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a, _ := s.Create(ctx, sampleTemplate("A", domain.KindStudent))
	b, _ := s.Create(ctx, sampleTemplate("B", domain.KindTeacher))
	if err := s.Activate(ctx, *a.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Activate(ctx, *b.ID); err != nil {
		t.Fatal(err)
	}
	active, err := s.List(ctx, ListFilter{ActiveOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ID != *b.ID {
		t.Fatalf("active = %+v", active)
	}
	if _, err := s.Active(ctx, domain.KindStudent); !errors.Is(err, ErrNotFound) {
		t.Fatalf("student active err = %v", err)
	}
	if got, err := s.Active(ctx, domain.KindTeacher); err != nil || got.Name != "B" {
		t.Fatalf("teacher active = %v %v", got, err)
	}
	if err := s.Activate(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("activate missing err = %v", err)
	}
}

func TestCreateActiveDeactivatesSameKind(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	first := sampleTemplate("first", domain.KindStudent)
	first.IsActive = true
	f, _ := s.Create(ctx, first)
	second := sampleTemplate("second", domain.KindStudent)
	second.IsActive = true
	if _, err := s.Create(ctx, second); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(ctx, *f.ID)
	if got.IsActive {
		t.Fatalf("older template of the same kind still active")
	}
}

func TestDuplicateAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	src, _ := s.Create(ctx, sampleTemplate("Staff", domain.KindStaff))
	_ = s.Activate(ctx, *src.ID)
	dup, err := s.Duplicate(ctx, *src.ID)
	if err != nil {
		t.Fatal(err)
	}
	if dup.Name != "Staff (Copy)" || dup.IsActive || *dup.ID == *src.ID {
		t.Fatalf("dup = %q active=%v id=%d", dup.Name, dup.IsActive, *dup.ID)
	}
	if len(dup.Front.Layers) != len(src.Front.Layers) {
		t.Fatalf("layers not copied")
	}
	_, _ = s.Create(ctx, sampleTemplate("Kids", domain.KindStudent))

	all, err := s.List(ctx, ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Name != "Kids" {
		t.Fatalf("list = %+v", all)
	}
	staff, _ := s.List(ctx, ListFilter{Kind: domain.KindStaff})
	if len(staff) != 2 {
		t.Fatalf("staff list = %+v", staff)
	}
	if err := s.Delete(ctx, *dup.ID); err != nil {
		t.Fatal(err)
	}
	if all, _ = s.List(ctx, ListFilter{}); len(all) != 2 {
		t.Fatalf("after delete = %d", len(all))
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.db")
	ctx := context.Background()
	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	c, err := s.Create(ctx, sampleTemplate("persisted", domain.KindVisitor))
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Close()
	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if got, err := s.Get(ctx, *c.ID); err != nil || got.Name != "persisted" {
		t.Fatalf("reopened get = %v %v", got, err)
	}
}

func TestRebindPostgres(t *testing.T) {
	got := Postgres.rebind(`UPDATE t SET a = ? WHERE id = ? AND b <> ?`)
	if want := `UPDATE t SET a = $1 WHERE id = $2 AND b <> $3`; got != want {
		t.Fatalf("rebind = %q", got)
	}
	if SQLite.rebind("a = ?") != "a = ?" {
		t.Fatalf("sqlite rebind changed query")
	}
}
