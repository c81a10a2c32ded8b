package adapthttp

import (
	"io"
	"net/http"

	"healthlog/internal/domain"
)

func kindFrom(w http.ResponseWriter, r *http.Request) (domain.Kind, bool) {
	kind, err := domain.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return "", false
	}
	return kind, true
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFrom(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := s.entries.List(kind, intQuery(r, "limit", 0))
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "items": items})

	case http.MethodPost:
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		entry, err := s.entries.Record(kind, raw)
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"kind": kind, "entry": entry})

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}
	kind, ok := kindFrom(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": s.entries.Delete(kind, id), "id": id})
}
