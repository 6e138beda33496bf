package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/trgnexus/platform/services/portal-service/internal/model"
	"github.com/trgnexus/platform/services/portal-service/internal/storage"
)

// Store is the read surface the portal needs; tests inject a
// fixture-backed implementation.
type Store interface {
	PatientByEmail(ctx context.Context, email string) (model.Patient, error)
	History(ctx context.Context, patientID string) ([]model.HistoryEntry, error)
}

type PortalHandler struct {
	store  Store
	logger *slog.Logger
}

func NewPortalHandler(store Store, logger *slog.Logger) *PortalHandler {
	return &PortalHandler{store: store, logger: logger}
}

type loginRequest struct {
	Email string `json:"email"`
}

// Login serves POST /portal/login. Patients identify by email only;
// unknown emails get a 404 so the front end can offer registration.
func (h *PortalHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Email required"})
		return
	}

	patient, err := h.store.PatientByEmail(r.Context(), req.Email)
	if err != nil {
		if storage.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"success": false,
				"message": "Patient not found.",
			})
			return
		}
		h.logger.Error("patient lookup failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"patient": patient,
	})
}

// Data serves GET /portal/data?email=. It returns the patient record
// plus full appointment history, newest first.
func (h *PortalHandler) Data(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("email")))
	if email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing email parameter"})
		return
	}

	patient, err := h.store.PatientByEmail(r.Context(), email)
	if err != nil {
		if storage.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"success": false,
				"message": "Patient not found.",
			})
			return
		}
		h.logger.Error("patient lookup failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	history, err := h.store.History(r.Context(), patient.ID)
	if err != nil {
		h.logger.Error("history query failed", "err", err, "patient_id", patient.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	if history == nil {
		history = []model.HistoryEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"patient":      patient,
		"appointments": history,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
