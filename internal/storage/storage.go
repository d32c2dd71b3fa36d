// Package storage keeps uploaded recordings in an object store. It
// abstracts the backend so the pipeline can run against S3-compatible
// buckets or the local disk without changes.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"
	"talknote-go/internal/encoding"
)

// Folder is the key prefix every uploaded recording lives under.
const Folder = "talknotes"

// ErrNotFound is returned by Fetch when the object does not exist.
var ErrNotFound = errors.New("object not found")

type Upload struct {
	Name        string // original file name, used for the extension only
	ContentType string
	Body        []byte
}

// Object is a durable reference to an uploaded recording.
type Object struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// ObjectStore is the storage collaborator of the pipeline.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	Upload(ctx context.Context, u Upload) (Object, error)

	// Fetch returns the content of a previously uploaded object, or an
	// error wrapping ErrNotFound.
	Fetch(ctx context.Context, publicID string) ([]byte, error)

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, publicID string) error
}

// newKey returns a unique object key under prefix, keeping the upload's
// audio extension.
func newKey(prefix string, u Upload) string {
	name := uuid.NewString() + extensionOf(u)
	if prefix == "" {
		return name
	}
	return strings.TrimSuffix(prefix, "/") + "/" + name
}

func extensionOf(u Upload) string {
	if ext := strings.ToLower(path.Ext(u.Name)); ext != "" && len(ext) <= 5 {
		return ext
	}
	for _, tag := range []encoding.Tag{encoding.Linear16, encoding.MP3, encoding.OggOpus, encoding.WebmOpus} {
		if tag.ContentType() == u.ContentType {
			return tag.Extension()
		}
	}
	return ""
}
