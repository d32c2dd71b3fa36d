package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"talknote-go/internal/failure"
	"talknote-go/internal/types"
)

const notePrefix = "note"

// NoteStore is the note persistence collaborator of the pipeline.
type NoteStore struct {
	db  *DB
	now func() time.Time
}

func NewNoteStore(db *DB) *NoteStore {
	return &NoteStore{db: db, now: time.Now}
}

func noteKey(id string) Key { return Key{notePrefix, id} }

// Create assigns an id and timestamps and writes the note. An empty status
// is stored as pending.
func (s *NoteStore) Create(ctx context.Context, n types.NoteRecord) (types.NoteRecord, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Status == "" {
		n.Status = types.NoteStatusPending
	}
	now := s.now().UTC()
	n.CreatedAt, n.UpdatedAt = now, now
	if err := n.Validate(); err != nil {
		return types.NoteRecord{}, failure.New(failure.Validation, "create note", err)
	}
	if err := s.put(ctx, n); err != nil {
		return types.NoteRecord{}, failure.New(failure.Persistence, "create note", err)
	}
	return n, nil
}

func (s *NoteStore) FindByID(ctx context.Context, id string) (types.NoteRecord, error) {
	if strings.TrimSpace(id) == "" {
		return types.NoteRecord{}, failure.Newf(failure.Validation, "find note", "note id is required")
	}
	data, err := s.db.Get(ctx, noteKey(id))
	if errors.Is(err, ErrNotFound) {
		return types.NoteRecord{}, failure.New(failure.NotFound, "find note", fmt.Errorf("note %s: %w", id, ErrNotFound))
	}
	if err != nil {
		return types.NoteRecord{}, failure.New(failure.Persistence, "find note", err)
	}
	var n types.NoteRecord
	if err := msgpack.Unmarshal(data, &n); err != nil {
		return types.NoteRecord{}, failure.New(failure.Persistence, "find note", fmt.Errorf("decode note %s: %w", id, err))
	}
	return n, nil
}

// Update overwrites an existing note, keeping its creation time.
func (s *NoteStore) Update(ctx context.Context, n types.NoteRecord) (types.NoteRecord, error) {
	existing, err := s.FindByID(ctx, n.ID)
	if err != nil {
		return types.NoteRecord{}, err
	}
	n.CreatedAt = existing.CreatedAt
	n.UpdatedAt = s.now().UTC()
	if n.Status == "" {
		n.Status = existing.Status
	}
	if err := n.Validate(); err != nil {
		return types.NoteRecord{}, failure.New(failure.Validation, "update note", err)
	}
	if err := s.put(ctx, n); err != nil {
		return types.NoteRecord{}, failure.New(failure.Persistence, "update note", err)
	}
	return n, nil
}

func (s *NoteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.db.Delete(ctx, noteKey(id)); err != nil {
		return failure.New(failure.Persistence, "delete note", err)
	}
	return nil
}

// List returns every note, newest first.
func (s *NoteStore) List(ctx context.Context) ([]types.NoteRecord, error) {
	var notes []types.NoteRecord
	for entry, err := range s.db.List(ctx, Key{notePrefix}) {
		if err != nil {
			return nil, failure.New(failure.Persistence, "list notes", err)
		}
		var n types.NoteRecord
		if err := msgpack.Unmarshal(entry.Value, &n); err != nil {
			return nil, failure.New(failure.Persistence, "list notes", fmt.Errorf("decode %s: %w", entry.Key, err))
		}
		notes = append(notes, n)
	}
	slices.SortFunc(notes, func(a, b types.NoteRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return notes, nil
}

func (s *NoteStore) put(ctx context.Context, n types.NoteRecord) error {
	data, err := msgpack.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode note %s: %w", n.ID, err)
	}
	return s.db.Set(ctx, noteKey(n.ID), data)
}
