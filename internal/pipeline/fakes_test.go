package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"talknote-go/internal/failure"
	"talknote-go/internal/storage"
	"talknote-go/internal/transcription"
	"talknote-go/internal/types"
)

type fakeObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
	deleted   []string
	seq       int
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Upload(_ context.Context, u storage.Upload) (storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return storage.Object{}, f.uploadErr
	}
	f.seq++
	id := fmt.Sprintf("talknotes/obj-%d-%s", f.seq, u.Name)
	f.objects[id] = u.Body
	return storage.Object{URL: "https://cdn.test/" + id, PublicID: id}, nil
}

func (f *fakeObjects) Fetch(_ context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[id]
	if !ok {
		return nil, failure.New(failure.NotFound, "fetch", storage.ErrNotFound)
	}
	return data, nil
}

func (f *fakeObjects) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func storageUpload(name string) storage.Upload {
	return storage.Upload{Name: name, Body: []byte("audio")}
}

type fakeTranscriber struct {
	mu     sync.Mutex
	result transcription.Result
	calls  int
	last   transcription.Request
}

func succeeded(transcript string) transcription.Result {
	conf := 0.87
	return transcription.Result{
		Transcript: transcript,
		Confidence: &conf,
		Success:    true,
		WordCount:  len(strings.Fields(transcript)),
		Mode:       transcription.ModeSync,
	}
}

func (f *fakeTranscriber) Transcribe(_ context.Context, req transcription.Request) transcription.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	return f.result
}

// fakeGenerator calls the configured funcs, or returns canned text.
type fakeGenerator struct {
	restyle   func(ctx context.Context, transcript string, style types.StyleDescriptor) (string, error)
	summarize func(ctx context.Context, transcript string) (string, error)
	actions   func(ctx context.Context, transcript string) (string, error)

	mu    sync.Mutex
	calls int
}

func (f *fakeGenerator) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeGenerator) Restyle(ctx context.Context, transcript string, style types.StyleDescriptor) (string, error) {
	f.count()
	if f.restyle != nil {
		return f.restyle(ctx, transcript, style)
	}
	return "Meeting notes about the quarterly budget review and action items", nil
}

func (f *fakeGenerator) Summarize(ctx context.Context, transcript string) (string, error) {
	f.count()
	if f.summarize != nil {
		return f.summarize(ctx, transcript)
	}
	return "The team reviewed the quarterly budget.", nil
}

func (f *fakeGenerator) ExtractActions(ctx context.Context, transcript string) (string, error) {
	f.count()
	if f.actions != nil {
		return f.actions(ctx, transcript)
	}
	return "- Send the budget to finance", nil
}

type fakeStyles struct {
	styles map[string]types.StyleDescriptor
}

func (f *fakeStyles) FindByNameOrID(_ context.Context, ident string) (types.StyleDescriptor, error) {
	for _, s := range f.styles {
		if s.ID == ident || strings.EqualFold(s.Name, ident) {
			return s, nil
		}
	}
	return types.StyleDescriptor{}, failure.Newf(failure.NotFound, "find style", "style %q not found", ident)
}

type fakeNotes struct {
	mu        sync.Mutex
	notes     map[string]types.NoteRecord
	createErr error
	updateErr error
	seq       int
}

func newFakeNotes() *fakeNotes {
	return &fakeNotes{notes: make(map[string]types.NoteRecord)}
}

func (f *fakeNotes) Create(_ context.Context, n types.NoteRecord) (types.NoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return types.NoteRecord{}, f.createErr
	}
	if err := n.Validate(); err != nil {
		return types.NoteRecord{}, failure.New(failure.Validation, "create note", err)
	}
	f.seq++
	n.ID = fmt.Sprintf("note-%d", f.seq)
	f.notes[n.ID] = n
	return n, nil
}

func (f *fakeNotes) FindByID(_ context.Context, id string) (types.NoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[id]
	if !ok {
		return types.NoteRecord{}, failure.Newf(failure.NotFound, "find note", "note %s not found", id)
	}
	return n, nil
}

func (f *fakeNotes) Update(_ context.Context, n types.NoteRecord) (types.NoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return types.NoteRecord{}, f.updateErr
	}
	if _, ok := f.notes[n.ID]; !ok {
		return types.NoteRecord{}, failure.Newf(failure.NotFound, "update note", "note %s not found", n.ID)
	}
	f.notes[n.ID] = n
	return n, nil
}

func (f *fakeNotes) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notes)
}
