package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"talknote-go/internal/failure"
)

func TestLocalUploadFetchDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	obj, err := store.Upload(ctx, Upload{Name: "memo.webm", Body: []byte("webm bytes")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(obj.PublicID, "talknotes/") || !strings.HasSuffix(obj.PublicID, ".webm") {
		t.Fatalf("public id = %q", obj.PublicID)
	}
	if !strings.HasPrefix(obj.URL, "file://") {
		t.Fatalf("url = %q", obj.URL)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(obj.PublicID))); err != nil {
		t.Fatalf("file not written: %v", err)
	}

	data, err := store.Fetch(ctx, obj.PublicID)
	if err != nil || string(data) != "webm bytes" {
		t.Fatalf("Fetch = %q, %v", data, err)
	}

	if err := store.Delete(ctx, obj.PublicID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, obj.PublicID); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := store.Fetch(ctx, obj.PublicID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Fetch after delete: %v", err)
	}
}

func TestLocalRejectsEscapingIDs(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Fetch(context.Background(), "../../etc/passwd"); !failure.Is(err, failure.Validation) {
		t.Fatalf("err = %v", err)
	}
}

func TestExtensionOf(t *testing.T) {
	tests := []struct {
		in   Upload
		want string
	}{
		{Upload{Name: "a.WAV"}, ".wav"},
		{Upload{Name: "noext", ContentType: "audio/webm"}, ".webm"},
		{Upload{ContentType: "audio/mpeg"}, ".mp3"},
		{Upload{ContentType: "application/octet-stream"}, ""},
	}
	for _, tt := range tests {
		if got := extensionOf(tt.in); got != tt.want {
			t.Errorf("extensionOf(%+v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
