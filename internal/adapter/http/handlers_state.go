package adapthttp

import (
	"net/http"
	"time"

	"healthlog/internal/app"
	"healthlog/internal/domain"
)

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, s.store.State())
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, s.store.State().HealthConnection)
}

func (s *Server) handleConnectionToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	writeJSON(w, http.StatusOK, s.store.ToggleHealthConnection())
}

type permissionsRequest struct {
	Permissions []permissionInput `json:"permissions" validate:"required,max=32,dive"`
}

type permissionInput struct {
	Name    string `json:"name" validate:"notblank,max=64"`
	Enabled bool   `json:"enabled"`
}

func (s *Server) handleConnectionPermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, http.MethodPut)
		return
	}
	var req permissionsRequest
	if err := parseJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := domain.Validate(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	perms := make([]domain.Permission, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		perms = append(perms, domain.Permission{Name: p.Name, Enabled: p.Enabled})
	}
	writeJSON(w, http.StatusOK, s.store.UpdateHealthPermissions(perms))
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.store.State().Settings)

	case http.MethodPatch:
		var patch domain.SettingsPatch
		if err := parseJSON(w, r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := domain.Validate(patch); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, s.store.UpdateSettings(patch))

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+app.ExportFileName(time.Now())+`"`)
	if err := s.store.Export(w); err != nil {
		s.logger.Printf("export: %v", err)
	}
}

type clearRequest struct {
	Confirm bool `json:"confirm"`
}

// handleClear wipes local data. The body must carry {"confirm": true}; the
// browser asks the user before sending it.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req clearRequest
	if err := parseJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cleared := s.store.ClearAllData(func() bool { return req.Confirm })
	writeJSON(w, http.StatusOK, map[string]any{"cleared": cleared})
}

func (s *Server) handleSyncPull(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !s.sync.Enabled() {
		writeError(w, http.StatusServiceUnavailable, app.ErrRemoteDisabled)
		return
	}
	loaded := s.store.LoadFromRemote(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"loaded": loaded, "state": s.store.State()})
}
