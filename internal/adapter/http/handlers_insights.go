package adapthttp

import (
	"net/http"
)

func (s *Server) handleInsightsSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, s.insights.Summary())
}

func (s *Server) handleInsightsDaily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	days := intQuery(r, "days", 30)
	unit := r.URL.Query().Get("unit")
	if unit == "" {
		unit = s.store.State().Settings.Units
	}
	points, err := s.insights.Daily(days, unit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": points})
}

func (s *Server) handleNutritionSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, map[string]any{"items": s.entries.SearchNutrition(q.Get("q"), q.Get("meal"))})
}
