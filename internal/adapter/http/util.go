package adapthttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/spf13/cast"

	"healthlog/internal/app"
	"healthlog/internal/domain"
)

// maxBodyBytes bounds request bodies; profile pictures arrive as data URIs.
const maxBodyBytes = 4 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// errorStatus maps service errors to response codes.
func errorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, app.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownKind), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrEmailTaken), errors.Is(err, app.ErrAccountInUse):
		return http.StatusConflict
	case errors.Is(err, app.ErrNotSignedIn),
		errors.Is(err, app.ErrInvalidCredentials),
		errors.Is(err, app.ErrSessionNotFound),
		errors.Is(err, app.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrRemoteDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	w.WriteHeader(http.StatusMethodNotAllowed)
}

func parseJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// intQuery reads a positive integer query parameter, falling back when the
// parameter is missing or not a positive number.
func intQuery(r *http.Request, key string, fallback int) int {
	n, err := cast.ToIntE(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// spaFromDisk serves files under dir and falls back to index.html so client
// side routes load the app. Dotfiles are never served.
func spaFromDisk(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	index := path.Join(dir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		if strings.Contains(clean, "/.") {
			http.NotFound(w, r)
			return
		}
		if clean != "/" {
			if fi, err := os.Stat(path.Join(dir, clean)); err == nil && !fi.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}
		http.ServeFile(w, r, index)
	})
}
