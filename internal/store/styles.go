package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"talknote-go/internal/failure"
	"talknote-go/internal/types"
)

const stylePrefix = "style"

// StyleRegistry stores note styles, keyed by id with a case-insensitive
// unique name index.
type StyleRegistry struct {
	db  *DB
	now func() time.Time

	// mu serializes writes so the name index stays unique.
	mu sync.Mutex
}

func NewStyleRegistry(db *DB) *StyleRegistry {
	return &StyleRegistry{db: db, now: time.Now}
}

func styleKey(id string) Key { return Key{stylePrefix, "id", id} }

func styleNameKey(name string) Key {
	return Key{stylePrefix, "name", strings.ToLower(strings.TrimSpace(name))}
}

// Create adds a style. Names must be unique ignoring case.
func (r *StyleRegistry) Create(ctx context.Context, s types.StyleDescriptor) (types.StyleDescriptor, error) {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return types.StyleDescriptor{}, failure.Newf(failure.Validation, "create style", "style name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.idByName(ctx, s.Name); err == nil {
		return types.StyleDescriptor{}, failure.Newf(failure.Validation, "create style", "style %q already exists", s.Name)
	} else if !errors.Is(err, ErrNotFound) {
		return types.StyleDescriptor{}, failure.New(failure.Persistence, "create style", err)
	}

	s.ID = uuid.NewString()
	now := r.now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	if err := r.write(ctx, s, ""); err != nil {
		return types.StyleDescriptor{}, failure.New(failure.Persistence, "create style", err)
	}
	return s, nil
}

// Upsert creates the style or, when one with the same name exists,
// replaces its description. It reports whether a new style was created.
func (r *StyleRegistry) Upsert(ctx context.Context, s types.StyleDescriptor) (types.StyleDescriptor, bool, error) {
	existing, err := r.FindByNameOrID(ctx, s.Name)
	if failure.Is(err, failure.NotFound) {
		created, err := r.Create(ctx, s)
		return created, err == nil, err
	}
	if err != nil {
		return types.StyleDescriptor{}, false, err
	}
	existing.Description = s.Description
	updated, err := r.Update(ctx, existing)
	return updated, false, err
}

// FindByNameOrID resolves ident as an id first, then as a name ignoring case.
func (r *StyleRegistry) FindByNameOrID(ctx context.Context, ident string) (types.StyleDescriptor, error) {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return types.StyleDescriptor{}, failure.Newf(failure.Validation, "find style", "style identifier is required")
	}
	s, err := r.get(ctx, ident)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return types.StyleDescriptor{}, failure.New(failure.Persistence, "find style", err)
	}

	id, err := r.idByName(ctx, ident)
	if err == nil {
		s, err = r.get(ctx, id)
	}
	if errors.Is(err, ErrNotFound) {
		return types.StyleDescriptor{}, failure.New(failure.NotFound, "find style", fmt.Errorf("style %q: %w", ident, ErrNotFound))
	}
	if err != nil {
		return types.StyleDescriptor{}, failure.New(failure.Persistence, "find style", err)
	}
	return s, nil
}

// Update replaces name and description of an existing style.
func (r *StyleRegistry) Update(ctx context.Context, s types.StyleDescriptor) (types.StyleDescriptor, error) {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return types.StyleDescriptor{}, failure.Newf(failure.Validation, "update style", "style name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.get(ctx, s.ID)
	if errors.Is(err, ErrNotFound) {
		return types.StyleDescriptor{}, failure.New(failure.NotFound, "update style", fmt.Errorf("style %s: %w", s.ID, ErrNotFound))
	}
	if err != nil {
		return types.StyleDescriptor{}, failure.New(failure.Persistence, "update style", err)
	}
	if id, err := r.idByName(ctx, s.Name); err == nil && id != s.ID {
		return types.StyleDescriptor{}, failure.Newf(failure.Validation, "update style", "style %q already exists", s.Name)
	}

	s.CreatedAt = existing.CreatedAt
	s.UpdatedAt = r.now().UTC()
	oldName := ""
	if !strings.EqualFold(existing.Name, s.Name) {
		oldName = existing.Name
	}
	if err := r.write(ctx, s, oldName); err != nil {
		return types.StyleDescriptor{}, failure.New(failure.Persistence, "update style", err)
	}
	return s, nil
}

func (r *StyleRegistry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return failure.New(failure.NotFound, "delete style", fmt.Errorf("style %s: %w", id, ErrNotFound))
	}
	if err != nil {
		return failure.New(failure.Persistence, "delete style", err)
	}
	if err := r.db.BatchSet(ctx, nil, []Key{styleKey(s.ID), styleNameKey(s.Name)}); err != nil {
		return failure.New(failure.Persistence, "delete style", err)
	}
	return nil
}

// List returns every style sorted by name.
func (r *StyleRegistry) List(ctx context.Context) ([]types.StyleDescriptor, error) {
	var styles []types.StyleDescriptor
	for entry, err := range r.db.List(ctx, Key{stylePrefix, "id"}) {
		if err != nil {
			return nil, failure.New(failure.Persistence, "list styles", err)
		}
		var s types.StyleDescriptor
		if err := msgpack.Unmarshal(entry.Value, &s); err != nil {
			return nil, failure.New(failure.Persistence, "list styles", fmt.Errorf("decode %s: %w", entry.Key, err))
		}
		styles = append(styles, s)
	}
	slices.SortFunc(styles, func(a, b types.StyleDescriptor) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return styles, nil
}

func (r *StyleRegistry) get(ctx context.Context, id string) (types.StyleDescriptor, error) {
	data, err := r.db.Get(ctx, styleKey(id))
	if err != nil {
		return types.StyleDescriptor{}, err
	}
	var s types.StyleDescriptor
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return types.StyleDescriptor{}, fmt.Errorf("decode style %s: %w", id, err)
	}
	return s, nil
}

func (r *StyleRegistry) idByName(ctx context.Context, name string) (string, error) {
	data, err := r.db.Get(ctx, styleNameKey(name))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// write stores the style and its name index entry, dropping the index
// entry for oldName when the style was renamed.
func (r *StyleRegistry) write(ctx context.Context, s types.StyleDescriptor, oldName string) error {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode style %s: %w", s.ID, err)
	}
	var del []Key
	if oldName != "" {
		del = append(del, styleNameKey(oldName))
	}
	return r.db.BatchSet(ctx, []Entry{
		{Key: styleKey(s.ID), Value: data},
		{Key: styleNameKey(s.Name), Value: []byte(s.ID)},
	}, del)
}
