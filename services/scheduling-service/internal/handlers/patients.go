package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/trgnexus/platform/services/scheduling-service/internal/availability"
	"github.com/trgnexus/platform/services/scheduling-service/internal/model"
	"github.com/trgnexus/platform/services/scheduling-service/internal/storage"
)

// PatientStore is the patient-records surface; tests inject a
// fixture-backed implementation.
type PatientStore interface {
	List(ctx context.Context, therapistID string) ([]model.Patient, error)
	Create(ctx context.Context, p *model.Patient) (string, error)
	Update(ctx context.Context, therapistID string, p model.Patient) (model.Patient, error)
	Delete(ctx context.Context, therapistID, patientID string) (bool, error)
	Timeline(ctx context.Context, patientID string) ([]model.Appointment, error)
}

type PatientsHandler struct {
	store        PatientStore
	logger       *slog.Logger
	sessionPrice int
}

// NewPatientsHandler builds the therapist-facing patient records
// handler. sessionPrice is the per-session value (whole currency
// units) used for the financial summary on the details view.
func NewPatientsHandler(store PatientStore, logger *slog.Logger, sessionPrice int) *PatientsHandler {
	if sessionPrice <= 0 {
		sessionPrice = 250
	}
	return &PatientsHandler{store: store, logger: logger, sessionPrice: sessionPrice}
}

type patientRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// Collection serves /patients. Without ?id= it is the collection
// (GET list, POST create); with ?id= it targets one record
// (PUT update, DELETE remove). Everything is scoped to the therapist
// identity the gateway injects.
func (h *PatientsHandler) Collection(w http.ResponseWriter, r *http.Request) {
	therapistID := strings.TrimSpace(r.Header.Get("X-Therapist-Id"))
	if therapistID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Missing therapist identity"})
		return
	}

	if id := strings.TrimSpace(r.URL.Query().Get("id")); id != "" {
		switch r.Method {
		case http.MethodPut:
			h.update(w, r, therapistID, id)
		case http.MethodDelete:
			h.delete(w, r, therapistID, id)
		default:
			w.Header().Set("Allow", "PUT, DELETE")
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, therapistID)
	case http.MethodPost:
		h.create(w, r, therapistID)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	}
}

func (h *PatientsHandler) list(w http.ResponseWriter, r *http.Request, therapistID string) {
	patients, err := h.store.List(r.Context(), therapistID)
	if err != nil {
		h.logger.Error("patient list failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	if patients == nil {
		patients = []model.Patient{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"patients": patients})
}

func (h *PatientsHandler) create(w http.ResponseWriter, r *http.Request, therapistID string) {
	req, ok := decodePatient(w, r)
	if !ok {
		return
	}

	p := &model.Patient{
		TherapistID: therapistID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Status:      req.Status,
		Notes:       req.Notes,
	}
	id, err := h.store.Create(r.Context(), p)
	if err != nil {
		if storage.IsConflict(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "Patient email already registered"})
			return
		}
		h.logger.Error("patient insert failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	p.ID = id
	writeJSON(w, http.StatusCreated, p)
}

func (h *PatientsHandler) update(w http.ResponseWriter, r *http.Request, therapistID, patientID string) {
	req, ok := decodePatient(w, r)
	if !ok {
		return
	}

	updated, err := h.store.Update(r.Context(), therapistID, model.Patient{
		ID:     patientID,
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Status: req.Status,
		Notes:  req.Notes,
	})
	if err != nil {
		if storage.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Patient not found"})
			return
		}
		h.logger.Error("patient update failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *PatientsHandler) delete(w http.ResponseWriter, r *http.Request, therapistID, patientID string) {
	deleted, err := h.store.Delete(r.Context(), therapistID, patientID)
	if err != nil {
		h.logger.Error("patient delete failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Patient not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted successfully"})
}

func decodePatient(w http.ResponseWriter, r *http.Request) (patientRequest, bool) {
	var req patientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return req, false
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.Status = strings.TrimSpace(req.Status)
	req.Notes = strings.TrimSpace(req.Notes)
	if req.Name == "" || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required fields"})
		return req, false
	}
	return req, true
}

type timelineEntry struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Date   string `json:"date"`
	Title  string `json:"title"`
	Desc   string `json:"desc"`
	Status string `json:"status"`
}

type financialEntry struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Desc   string `json:"desc"`
	Value  int    `json:"value"`
	Status string `json:"status"`
}

// Details serves GET /patients/details?patientId=: the session
// timeline plus a financial summary derived from it, priced per
// session.
func (h *PatientsHandler) Details(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}
	if strings.TrimSpace(r.Header.Get("X-Therapist-Id")) == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Missing therapist identity"})
		return
	}

	patientID := strings.TrimSpace(r.URL.Query().Get("patientId"))
	if patientID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing patientId"})
		return
	}

	appts, err := h.store.Timeline(r.Context(), patientID)
	if err != nil {
		h.logger.Error("patient timeline failed", "err", err, "patient_id", patientID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	timeline := make([]timelineEntry, 0, len(appts))
	history := make([]financialEntry, 0, len(appts))
	totalInvested := 0
	pending := 0
	for _, appt := range appts {
		desc := "Status: " + string(appt.Status) + "."
		if appt.Notes != "" {
			desc += " " + appt.Notes
		}
		timeline = append(timeline, timelineEntry{
			ID:     appt.ID,
			Type:   "session",
			Date:   appt.Date,
			Title:  "Sessão - " + availability.TruncateTime(appt.Time),
			Desc:   desc,
			Status: string(appt.Status),
		})

		paid := appt.Status == model.StatusCompleted
		entryStatus := "Pendente"
		if paid {
			entryStatus = "Pago"
			totalInvested += h.sessionPrice
		} else if appt.Status == model.StatusScheduled {
			pending += h.sessionPrice
		}
		history = append(history, financialEntry{
			ID:     appt.ID,
			Date:   appt.Date,
			Desc:   "Sessão",
			Value:  h.sessionPrice,
			Status: entryStatus,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"timeline": timeline,
		"financial": map[string]any{
			"totalInvested": totalInvested,
			"pending":       pending,
			"history":       history,
		},
		"documents": []any{},
	})
}
