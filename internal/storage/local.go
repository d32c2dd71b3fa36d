package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"talknote-go/internal/failure"
)

// Local implements ObjectStore on the local filesystem. Public ids are
// slash-separated paths relative to the root directory.
type Local struct {
	root   string
	prefix string
}

// NewLocal creates a Local store rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs, prefix: Folder}, nil
}

func (l *Local) resolve(publicID string) (string, error) {
	full := filepath.Join(l.root, filepath.FromSlash(publicID))
	rel, err := filepath.Rel(l.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("public id %q escapes the storage root", publicID)
	}
	return full, nil
}

func (l *Local) Upload(_ context.Context, u Upload) (Object, error) {
	if len(u.Body) == 0 {
		return Object{}, failure.Newf(failure.Validation, "upload", "audio content is empty")
	}
	key := newKey(l.prefix, u)
	full, err := l.resolve(key)
	if err != nil {
		return Object{}, failure.New(failure.Storage, "upload", err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Object{}, failure.New(failure.Storage, "upload", err)
	}
	if err := os.WriteFile(full, u.Body, 0o644); err != nil {
		return Object{}, failure.New(failure.Storage, "upload", err)
	}
	return Object{URL: (&url.URL{Scheme: "file", Path: filepath.ToSlash(full)}).String(), PublicID: key}, nil
}

func (l *Local) Fetch(_ context.Context, publicID string) ([]byte, error) {
	full, err := l.resolve(publicID)
	if err != nil {
		return nil, failure.New(failure.Validation, "fetch", err)
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, failure.New(failure.NotFound, "fetch", fmt.Errorf("%s: %w", publicID, ErrNotFound))
	}
	if err != nil {
		return nil, failure.New(failure.Storage, "fetch", err)
	}
	return data, nil
}

// Delete removes the named file. A missing file is not an error.
func (l *Local) Delete(_ context.Context, publicID string) error {
	full, err := l.resolve(publicID)
	if err != nil {
		return failure.New(failure.Validation, "delete", err)
	}
	err = os.Remove(full)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return failure.New(failure.Storage, "delete", err)
	}
	return nil
}

var _ ObjectStore = (*Local)(nil)
