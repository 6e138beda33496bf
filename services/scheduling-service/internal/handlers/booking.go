package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/trgnexus/platform/libs/events"
	"github.com/trgnexus/platform/services/scheduling-service/internal/availability"
	"github.com/trgnexus/platform/services/scheduling-service/internal/model"
	"github.com/trgnexus/platform/services/scheduling-service/internal/storage"
)

type BookingHandler struct {
	repo   *storage.AppointmentRepository
	outbox *events.OutboxRepository
	logger *slog.Logger
}

func NewBookingHandler(repo *storage.AppointmentRepository, outboxRepo *events.OutboxRepository, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{repo: repo, outbox: outboxRepo, logger: logger}
}

type createBookingRequest struct {
	TherapistID     string `json:"therapistId"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	PatientName     string `json:"patientName"`
	PatientEmail    string `json:"patientEmail"`
	PatientPhone    string `json:"patientPhone"`
	Notes           string `json:"notes"`
	RequiresPayment bool   `json:"requiresPayment"`
}

type appointmentItem struct {
	ID           string `json:"id"`
	TherapistID  string `json:"therapistId"`
	PatientName  string `json:"patientName"`
	PatientEmail string `json:"patientEmail"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Status       string `json:"status"`
	Notes        string `json:"notes,omitempty"`
	CancelledAt  string `json:"cancelledAt,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

// Create serves POST /booking, the public booking form. Slot occupancy
// is re-checked inside the write transaction: the availability endpoint
// only advises, this is where the slot is actually reserved.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}

	req.TherapistID = strings.TrimSpace(req.TherapistID)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	req.PatientName = strings.TrimSpace(req.PatientName)
	req.PatientEmail = strings.TrimSpace(strings.ToLower(req.PatientEmail))

	if req.TherapistID == "" || req.PatientName == "" || req.PatientEmail == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required fields"})
		return
	}
	if _, err := availability.ParseDate(req.Date); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid date parameter"})
		return
	}
	slotTime := availability.TruncateTime(req.Time)
	if !validHourMinute(slotTime) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid time parameter"})
		return
	}

	status := model.StatusScheduled
	if req.RequiresPayment {
		status = model.StatusPendingPayment
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		h.logger.Error("booking tx begin failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	patientID, err := h.repo.UpsertPatient(ctx, tx, req.PatientName, req.PatientEmail, strings.TrimSpace(req.PatientPhone))
	if err != nil {
		h.logger.Error("patient upsert failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	taken, err := h.repo.SlotTaken(ctx, tx, req.TherapistID, req.Date, slotTime)
	if err != nil {
		h.logger.Error("slot occupancy re-check failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	if taken {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Time slot already booked"})
		return
	}

	appt := &model.Appointment{
		TherapistID:  req.TherapistID,
		PatientID:    patientID,
		PatientName:  req.PatientName,
		PatientEmail: req.PatientEmail,
		Date:         req.Date,
		Time:         slotTime,
		Status:       status,
		Notes:        strings.TrimSpace(req.Notes),
	}
	id, err := h.repo.Create(ctx, tx, appt)
	if err != nil {
		if storage.IsConflict(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "Time slot already booked"})
			return
		}
		h.logger.Error("appointment insert failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	appt.ID = id

	payload, err := json.Marshal(map[string]any{
		"appointment_id": id,
		"therapist_id":   appt.TherapistID,
		"patient_name":   appt.PatientName,
		"patient_email":  appt.PatientEmail,
		"patient_phone":  strings.TrimSpace(req.PatientPhone),
		"date":           appt.Date,
		"time":           appt.Time,
		"status":         string(appt.Status),
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	if err := h.outbox.Insert(ctx, tx, events.Event{
		AggregateType: "appointment",
		AggregateID:   id,
		EventType:     events.TopicAppointmentBooked,
		Payload:       payload,
	}); err != nil {
		h.logger.Error("outbox insert failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	if err := tx.Commit(ctx); err != nil {
		h.logger.Error("booking commit failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"appointment": appointmentItem{
			ID:           id,
			TherapistID:  appt.TherapistID,
			PatientName:  appt.PatientName,
			PatientEmail: appt.PatientEmail,
			Date:         appt.Date,
			Time:         appt.Time,
			Status:       string(appt.Status),
			Notes:        appt.Notes,
		},
	})
}

type cancelRequest struct {
	AppointmentID string `json:"appointmentId"`
	Reason        string `json:"reason"`
}

// Cancel serves POST /appointments/cancel. The therapist identity comes
// from the gateway-injected header. Cancelling an already-cancelled
// appointment is a no-op success.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	therapistID := strings.TrimSpace(r.Header.Get("X-Therapist-Id"))
	if therapistID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Missing therapist identity"})
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "appointmentId required"})
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := h.repo.GetForUpdate(ctx, tx, therapistID, req.AppointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Appointment not found"})
			return
		}
		h.logger.Error("appointment load failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	if appt.Status == model.StatusCancelled {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": string(model.StatusCancelled)})
		return
	}
	if appt.Status == model.StatusCompleted {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Completed appointment cannot be cancelled"})
		return
	}

	cancelledAt, err := h.repo.Cancel(ctx, tx, therapistID, appt.ID, strings.TrimSpace(req.Reason))
	if err != nil {
		h.logger.Error("appointment cancel failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"therapist_id":   appt.TherapistID,
		"patient_email":  appt.PatientEmail,
		"date":           appt.Date,
		"time":           appt.Time,
		"cancelled_at":   cancelledAt.UTC().Format(time.RFC3339),
		"reason":         strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	if err := h.outbox.Insert(ctx, tx, events.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     events.TopicAppointmentCancelled,
		Payload:       payload,
	}); err != nil {
		h.logger.Error("outbox insert failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	if err := tx.Commit(ctx); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": string(model.StatusCancelled)})
}

// List serves GET /appointments for the therapist dashboard.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	therapistID := strings.TrimSpace(r.Header.Get("X-Therapist-Id"))
	if therapistID == "" {
		therapistID = strings.TrimSpace(r.URL.Query().Get("therapistId"))
	}
	if therapistID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "therapistId required"})
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	appts, err := h.repo.ListByTherapist(r.Context(), therapistID, limit)
	if err != nil {
		h.logger.Error("appointment list failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, appt := range appts {
		item := appointmentItem{
			ID:           appt.ID,
			TherapistID:  appt.TherapistID,
			PatientName:  appt.PatientName,
			PatientEmail: appt.PatientEmail,
			Date:         appt.Date,
			Time:         availability.TruncateTime(appt.Time),
			Status:       string(appt.Status),
			Notes:        appt.Notes,
			CreatedAt:    appt.CreatedAt.UTC().Format(time.RFC3339),
		}
		if appt.CancelledAt != nil {
			item.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": items})
}
