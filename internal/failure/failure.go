// Package failure holds the error taxonomy shared by the pipeline and its collaborators.
package failure

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Validation Kind = iota + 1
	UpstreamTranscription
	UpstreamGeneration
	Persistence
	Storage
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case UpstreamTranscription:
		return "upstream_transcription"
	case UpstreamGeneration:
		return "upstream_generation"
	case Persistence:
		return "persistence"
	case Storage:
		return "storage"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error tags an underlying error with its kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds an Error from a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost tagged error in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// OpOf returns the operation recorded on the outermost tagged error.
func OpOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Op
	}
	return ""
}
