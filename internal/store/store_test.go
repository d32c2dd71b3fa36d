package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"talknote-go/internal/failure"
	"talknote-go/internal/logger"
	"talknote-go/internal/types"
)

// newTestDB opens an in-memory badger store.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Options{InMemory: true, Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDBGetSetDeleteList(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if _, err := db.Get(ctx, Key{"note", "1"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	for _, k := range []Key{{"note", "1"}, {"note", "2"}, {"notebook", "x"}} {
		if err := db.Set(ctx, k, []byte(k.String())); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}

	var keys []string
	for e, err := range db.List(ctx, Key{"note"}) {
		if err != nil {
			t.Fatal(err)
		}
		keys = append(keys, e.Key.String())
	}
	if len(keys) != 2 || keys[0] != "note:1" || keys[1] != "note:2" {
		t.Fatalf("List = %v", keys)
	}

	if err := db.Delete(ctx, Key{"note", "1"}); err != nil {
		t.Fatal(err)
	}
	if err := db.Delete(ctx, Key{"note", "missing"}); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	if _, err := db.Get(ctx, Key{"note", "1"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete: %v", err)
	}
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Fatal("expected error without Dir")
	}
}

func completeNote() types.NoteRecord {
	return types.NoteRecord{
		Title:         "Budget review",
		RawTranscript: "we reviewed the budget",
		StyledContent: "Budget review notes",
		Summary:       "The budget was reviewed.",
		Status:        types.NoteStatusComplete,
	}
}

func TestNoteStoreCRUD(t *testing.T) {
	ctx := context.Background()
	notes := NewNoteStore(newTestDB(t))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	notes.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	created, err := notes.Create(ctx, completeNote())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("id/timestamps not assigned: %+v", created)
	}

	got, err := notes.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Summary != created.Summary || !got.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	got.Title = "Renamed"
	updated, err := notes.Update(ctx, got)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) || !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("timestamps: %+v", updated)
	}

	second, _ := notes.Create(ctx, completeNote())
	list, err := notes.List(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("List = %d, %v", len(list), err)
	}
	if list[0].ID != second.ID {
		t.Fatal("list should be newest first")
	}

	if err := notes.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := notes.FindByID(ctx, created.ID); !failure.Is(err, failure.NotFound) {
		t.Fatalf("FindByID after delete: %v", err)
	}
	if err := notes.Delete(ctx, created.ID); !failure.Is(err, failure.NotFound) {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestNoteStoreRejectsFalseCompleteness(t *testing.T) {
	ctx := context.Background()
	notes := NewNoteStore(newTestDB(t))

	n := completeNote()
	n.Summary = ""
	_, err := notes.Create(ctx, n)
	if !failure.Is(err, failure.Validation) || !errors.Is(err, types.ErrIncompleteNote) {
		t.Fatalf("err = %v", err)
	}

	n.Status = types.NoteStatusIncomplete
	if _, err := notes.Create(ctx, n); err != nil {
		t.Fatalf("incomplete note rejected: %v", err)
	}

	n.Status = ""
	created, err := notes.Create(ctx, n)
	if err != nil || created.Status != types.NoteStatusPending {
		t.Fatalf("default status: %+v, %v", created, err)
	}
}

func TestNoteStoreUpdateMissing(t *testing.T) {
	notes := NewNoteStore(newTestDB(t))
	n := completeNote()
	n.ID = "nope"
	if _, err := notes.Update(context.Background(), n); !failure.Is(err, failure.NotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestStyleRegistryLookup(t *testing.T) {
	ctx := context.Background()
	styles := NewStyleRegistry(newTestDB(t))

	minutes, err := styles.Create(ctx, types.StyleDescriptor{Name: "Meeting Minutes", Description: "Formal minutes"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, ident := range []string{minutes.ID, "Meeting Minutes", "meeting minutes", "  MEETING MINUTES "} {
		got, err := styles.FindByNameOrID(ctx, ident)
		if err != nil {
			t.Fatalf("FindByNameOrID(%q): %v", ident, err)
		}
		if got.ID != minutes.ID || got.Description != "Formal minutes" {
			t.Fatalf("FindByNameOrID(%q) = %+v", ident, got)
		}
	}

	if _, err := styles.FindByNameOrID(ctx, "Haiku"); !failure.Is(err, failure.NotFound) {
		t.Fatalf("unknown style: %v", err)
	}
	if _, err := styles.FindByNameOrID(ctx, ""); !failure.Is(err, failure.Validation) {
		t.Fatalf("empty ident: %v", err)
	}
}

func TestStyleRegistryUniqueNames(t *testing.T) {
	ctx := context.Background()
	styles := NewStyleRegistry(newTestDB(t))

	if _, err := styles.Create(ctx, types.StyleDescriptor{Name: "Bullet"}); err != nil {
		t.Fatal(err)
	}
	if _, err := styles.Create(ctx, types.StyleDescriptor{Name: "bullet"}); !failure.Is(err, failure.Validation) {
		t.Fatalf("duplicate name accepted: %v", err)
	}
	if _, err := styles.Create(ctx, types.StyleDescriptor{Name: "  "}); !failure.Is(err, failure.Validation) {
		t.Fatalf("blank name accepted: %v", err)
	}
}

func TestStyleRegistryRenameAndDelete(t *testing.T) {
	ctx := context.Background()
	styles := NewStyleRegistry(newTestDB(t))

	s, _ := styles.Create(ctx, types.StyleDescriptor{Name: "Journal"})
	s.Name = "Diary"
	if _, err := styles.Update(ctx, s); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := styles.FindByNameOrID(ctx, "Journal"); !failure.Is(err, failure.NotFound) {
		t.Fatalf("old name still resolves: %v", err)
	}
	if got, err := styles.FindByNameOrID(ctx, "diary"); err != nil || got.ID != s.ID {
		t.Fatalf("new name: %+v, %v", got, err)
	}

	if err := styles.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := styles.FindByNameOrID(ctx, "Diary"); !failure.Is(err, failure.NotFound) {
		t.Fatalf("deleted style resolves: %v", err)
	}
	if err := styles.Delete(ctx, s.ID); !failure.Is(err, failure.NotFound) {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestStyleRegistryUpsertAndList(t *testing.T) {
	ctx := context.Background()
	styles := NewStyleRegistry(newTestDB(t))

	_, created, err := styles.Upsert(ctx, types.StyleDescriptor{Name: "Summary", Description: "v1"})
	if err != nil || !created {
		t.Fatalf("first Upsert: created=%v err=%v", created, err)
	}
	got, created, err := styles.Upsert(ctx, types.StyleDescriptor{Name: "summary", Description: "v2"})
	if err != nil || created {
		t.Fatalf("second Upsert: created=%v err=%v", created, err)
	}
	if got.Description != "v2" || got.Name != "Summary" {
		t.Fatalf("Upsert = %+v", got)
	}
	_, _, _ = styles.Upsert(ctx, types.StyleDescriptor{Name: "Action plan"})

	list, err := styles.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "Action plan" {
		t.Fatalf("List = %+v", list)
	}
}
