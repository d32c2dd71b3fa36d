package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"talknote-go/internal/dataset"
	"talknote-go/internal/types"
)

const multipartMemory = 32 << 20

// readAudio pulls the "audio" file part out of a multipart request.
func (s *Server) readAudio(w http.ResponseWriter, r *http.Request, op string) (types.AudioAsset, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if tooLarge(err) {
			return types.AudioAsset{}, fmt.Errorf("%w: %v", errUploadTooLarge, err)
		}
		return types.AudioAsset{}, badRequest(op, "invalid multipart form: %v", err)
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		return types.AudioAsset{}, badRequest(op, "audio file is required")
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return types.AudioAsset{}, fmt.Errorf("read audio: %w", err)
	}
	return types.AudioAsset{
		Content:     content,
		ContentType: header.Header.Get("Content-Type"),
		Source:      header.Filename,
	}, nil
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request) {
	asset, err := s.readAudio(w, r, "create note")
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	res, err := s.deps.Pipeline.ProcessAudioNote(r.Context(), asset, r.FormValue("style"))
	if err != nil {
		s.writeError(w, r, err, res)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.deps.Notes.List(r.Context())
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if notes == nil {
		notes = []types.NoteRecord{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) getNote(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Notes.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

type noteUpdate struct {
	Title         *string `json:"title"`
	StyledContent *string `json:"styled_content"`
	Summary       *string `json:"summary"`
	ActionItems   *string `json:"action_items"`
}

func (s *Server) updateNote(w http.ResponseWriter, r *http.Request) {
	var in noteUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, r, badRequest("update note", "invalid json: %v", err), nil)
		return
	}
	n, err := s.deps.Notes.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if in.Title != nil {
		n.Title = *in.Title
	}
	if in.StyledContent != nil {
		n.StyledContent = *in.StyledContent
	}
	if in.Summary != nil {
		n.Summary = *in.Summary
	}
	if in.ActionItems != nil {
		n.ActionItems = *in.ActionItems
	}
	n.TextNote = types.ComposeTextNote(n.StyledContent, n.Summary, n.ActionItems)

	updated, err := s.deps.Notes.Update(r.Context(), n)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := s.deps.Notes.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if err := s.deps.Notes.Delete(ctx, n.ID); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if s.deps.Objects != nil && n.AudioPublicID != "" {
		if err := s.deps.Objects.Delete(context.WithoutCancel(ctx), n.AudioPublicID); err != nil {
			s.log.WithRequest(r).WithField("public_id", n.AudioPublicID).
				WithField("error", err.Error()).Warn("recording not removed")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reprocessNote(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Pipeline.ReprocessNote(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) exportNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.deps.Notes.List(r.Context())
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	var buf bytes.Buffer
	if err := dataset.ExportNotes(&buf, notes); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="notes.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) transcribe(w http.ResponseWriter, r *http.Request) {
	asset, err := s.readAudio(w, r, "transcribe")
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	res, err := s.deps.Pipeline.TranscribeOnly(r.Context(), asset, r.FormValue("language"))
	if err != nil {
		s.writeError(w, r, err, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type styleRequest struct {
	Transcript string `json:"transcript"`
	Style      string `json:"style"`
}

func (s *Server) styleTranscript(w http.ResponseWriter, r *http.Request) {
	var in styleRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, r, badRequest("style transcript", "invalid json: %v", err), nil)
		return
	}
	out, err := s.deps.Pipeline.StyleTranscript(r.Context(), in.Transcript, in.Style)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
