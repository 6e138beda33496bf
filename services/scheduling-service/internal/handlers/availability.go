package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/trgnexus/platform/services/scheduling-service/internal/availability"
)

type AvailabilityHandler struct {
	engine *availability.Engine
	logger *slog.Logger
}

func NewAvailabilityHandler(engine *availability.Engine, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{engine: engine, logger: logger}
}

// Day serves GET /availability?date=YYYY-MM-DD&therapistId=<id>.
// The response body shape is the public booking widget contract.
func (h *AvailabilityHandler) Day(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	therapistID := strings.TrimSpace(r.URL.Query().Get("therapistId"))

	slots, err := h.engine.DaySlots(r.Context(), date, therapistID)
	switch {
	case errors.Is(err, availability.ErrMissingDate):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing date parameter"})
	case errors.Is(err, availability.ErrInvalidDate):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid date parameter"})
	case err != nil:
		h.logger.Error("availability computation failed", "err", err, "date", date, "therapist_id", therapistID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
	}
}
