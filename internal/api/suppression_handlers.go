package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/feedback-gateway/internal/pkg/logger"
)

// HandleSuppressionCheck answers whether an address is on the global
// do-not-email list. Consulted by the sending path before every send.
func (h *Handlers) HandleSuppressionCheck(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email parameter required"})
		return
	}

	suppressed, err := h.checker.IsSuppressed(r.Context(), email)
	if err != nil {
		logger.Error("suppression check failed", "email", email, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "suppression lookup failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"email":      strings.ToLower(email),
		"suppressed": suppressed,
	})
}

// HandleProfileComplaints lists the recent non-expired complaint history for
// one profile.
func (h *Handlers) HandleProfileComplaints(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	reports, err := h.feedback.ListProfileReports(r.Context(), profileID, limit)
	if err != nil {
		logger.Error("profile complaint listing failed", "profile_id", profileID, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profile_id": profileID,
		"count":      len(reports),
		"reports":    reports,
	})
}

// HandleHealth reports service liveness and database reachability.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if h.pinger != nil {
		if err := h.pinger.PingContext(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
