package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"talknote-go/internal/dataset"
	"talknote-go/internal/types"
)

type styleBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) decodeStyle(r *http.Request, op string) (styleBody, error) {
	var in styleBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return in, badRequest(op, "invalid json: %v", err)
	}
	if strings.TrimSpace(in.Description) == "" {
		return in, badRequest(op, "description is required")
	}
	return in, nil
}

func (s *Server) listStyles(w http.ResponseWriter, r *http.Request) {
	styles, err := s.deps.Styles.List(r.Context())
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if styles == nil {
		styles = []types.StyleDescriptor{}
	}
	writeJSON(w, http.StatusOK, styles)
}

func (s *Server) createStyle(w http.ResponseWriter, r *http.Request) {
	in, err := s.decodeStyle(r, "create style")
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	created, err := s.deps.Styles.Create(r.Context(), types.StyleDescriptor{Name: in.Name, Description: in.Description})
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getStyle(w http.ResponseWriter, r *http.Request) {
	style, err := s.deps.Styles.FindByNameOrID(r.Context(), r.PathValue("ident"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, style)
}

func (s *Server) updateStyle(w http.ResponseWriter, r *http.Request) {
	in, err := s.decodeStyle(r, "update style")
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	updated, err := s.deps.Styles.Update(r.Context(), types.StyleDescriptor{
		ID:          r.PathValue("id"),
		Name:        in.Name,
		Description: in.Description,
	})
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteStyle(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Styles.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// importStyles upserts a style catalog uploaded as the "file" part of an
// xlsx multipart form.
func (s *Server) importStyles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if tooLarge(err) {
			err = fmt.Errorf("%w: %v", errUploadTooLarge, err)
		} else {
			err = badRequest("import styles", "invalid multipart form: %v", err)
		}
		s.writeError(w, r, err, nil)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, badRequest("import styles", "xlsx file is required"), nil)
		return
	}
	defer file.Close()

	rows, err := dataset.ReadStyles(file)
	if err != nil {
		s.writeError(w, r, badRequest("import styles", "%v", err), nil)
		return
	}
	rep, err := dataset.ImportStyles(r.Context(), s.deps.Styles, rows, s.log)
	if err != nil {
		s.writeError(w, r, err, rep)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
