package pipeline

import (
	"context"

	"talknote-go/internal/storage"
	"talknote-go/internal/transcription"
	"talknote-go/internal/types"
)

// Transcriber is satisfied by *transcription.Client.
type Transcriber interface {
	Transcribe(ctx context.Context, req transcription.Request) transcription.Result
}

// Generator is satisfied by *generation.Client.
type Generator interface {
	Restyle(ctx context.Context, transcript string, style types.StyleDescriptor) (string, error)
	Summarize(ctx context.Context, transcript string) (string, error)
	ExtractActions(ctx context.Context, transcript string) (string, error)
}

// StyleRegistry is satisfied by *store.StyleRegistry.
type StyleRegistry interface {
	FindByNameOrID(ctx context.Context, ident string) (types.StyleDescriptor, error)
}

// NoteStore is satisfied by *store.NoteStore.
type NoteStore interface {
	Create(ctx context.Context, n types.NoteRecord) (types.NoteRecord, error)
	FindByID(ctx context.Context, id string) (types.NoteRecord, error)
	Update(ctx context.Context, n types.NoteRecord) (types.NoteRecord, error)
}

// Deps are the external collaborators of a pipeline.
type Deps struct {
	Objects     storage.ObjectStore
	Transcriber Transcriber
	Generator   Generator
	Styles      StyleRegistry
	Notes       NoteStore
}
