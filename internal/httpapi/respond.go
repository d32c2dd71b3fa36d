package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"talknote-go/internal/failure"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Op    string `json:"op,omitempty"`
	// Result carries the partial pipeline result of a failed run.
	Result any `json:"result,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// statusOf maps an error kind to an HTTP status.
func statusOf(err error) int {
	kind, ok := failure.KindOf(err)
	if !ok {
		if errors.Is(err, errUploadTooLarge) {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusInternalServerError
	}
	switch kind {
	case failure.Validation:
		return http.StatusBadRequest
	case failure.NotFound:
		return http.StatusNotFound
	case failure.UpstreamTranscription, failure.UpstreamGeneration, failure.Storage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, result any) {
	status := statusOf(err)
	body := errorBody{Error: err.Error(), Op: failure.OpOf(err), Result: result}
	if kind, ok := failure.KindOf(err); ok {
		body.Kind = kind.String()
	}
	entry := s.log.WithRequest(r).WithField("status", status).WithField("error", err.Error())
	if status >= http.StatusInternalServerError {
		entry.Error("request error")
	} else {
		entry.Warn("request rejected")
	}
	writeJSON(w, status, body)
}

var errUploadTooLarge = errors.New("upload too large")

// tooLarge reports whether err came from a MaxBytesReader. The multipart
// reader does not always keep the typed error in the chain.
func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

func badRequest(op, format string, args ...any) error {
	return failure.Newf(failure.Validation, op, format, args...)
}
