package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/trgnexus/platform/libs/events"
	"github.com/trgnexus/platform/services/network-service/internal/matching"
	"github.com/trgnexus/platform/services/network-service/internal/model"
	"github.com/trgnexus/platform/services/network-service/internal/storage"
)

// Directory is the read surface the match endpoint needs; tests inject
// a fixture-backed implementation.
type Directory interface {
	Candidates(ctx context.Context, sourceTherapistID, specialty string) ([]model.Therapist, error)
}

type MatchHandler struct {
	directory Directory
	logger    *slog.Logger
}

func NewMatchHandler(directory Directory, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{directory: directory, logger: logger}
}

// Match serves GET /network/match?sourceTherapistId=&specialty=.
func (h *MatchHandler) Match(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	sourceID := strings.TrimSpace(r.URL.Query().Get("sourceTherapistId"))
	specialty := strings.TrimSpace(r.URL.Query().Get("specialty"))
	if sourceID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing sourceTherapistId parameter"})
		return
	}

	candidates, err := h.directory.Candidates(r.Context(), sourceID, specialty)
	if err != nil {
		h.logger.Error("directory query failed", "err", err, "source_therapist_id", sourceID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	top, ok := matching.TopMatch(candidates)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"message": "No qualified therapists found.",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"match":           top,
		"candidatesCount": len(candidates),
	})
}

type ReferralHandler struct {
	repo   *storage.DirectoryRepository
	outbox *events.OutboxRepository
	logger *slog.Logger
}

func NewReferralHandler(repo *storage.DirectoryRepository, outboxRepo *events.OutboxRepository, logger *slog.Logger) *ReferralHandler {
	return &ReferralHandler{repo: repo, outbox: outboxRepo, logger: logger}
}

type createReferralRequest struct {
	TargetTherapistID string `json:"targetTherapistId"`
	PatientName       string `json:"patientName"`
	Specialty         string `json:"specialty"`
}

// Create serves POST /network/referral. The source therapist comes
// from the gateway-injected identity header; the platform commission
// is fixed at creation time.
func (h *ReferralHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	sourceID := strings.TrimSpace(r.Header.Get("X-Therapist-Id"))
	if sourceID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Missing therapist identity"})
		return
	}

	var req createReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}
	req.TargetTherapistID = strings.TrimSpace(req.TargetTherapistID)
	if req.TargetTherapistID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "targetTherapistId required"})
		return
	}
	if req.TargetTherapistID == sourceID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Cannot refer to yourself"})
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	targetEmail, exists, err := h.repo.TherapistEmail(ctx, tx, req.TargetTherapistID)
	if err != nil {
		h.logger.Error("therapist lookup failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"message": "Target therapist not found.",
		})
		return
	}

	ref := &model.Referral{
		SourceTherapistID: sourceID,
		TargetTherapistID: req.TargetTherapistID,
		PatientName:       strings.TrimSpace(req.PatientName),
		Specialty:         strings.TrimSpace(req.Specialty),
		CommissionRate:    model.DefaultCommissionRate,
		Status:            "pending",
	}
	id, err := h.repo.CreateReferral(ctx, tx, ref)
	if err != nil {
		h.logger.Error("referral insert failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	payload, err := json.Marshal(map[string]any{
		"referral_id":         id,
		"source_therapist_id": ref.SourceTherapistID,
		"target_therapist_id": ref.TargetTherapistID,
		"target_email":        targetEmail,
		"patient_name":        ref.PatientName,
		"specialty":           ref.Specialty,
		"commission_rate":     ref.CommissionRate,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	if err := h.outbox.Insert(ctx, tx, events.Event{
		AggregateType: "referral",
		AggregateID:   id,
		EventType:     events.TopicReferralCreated,
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

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":        true,
		"referralId":     id,
		"commissionRate": ref.CommissionRate,
	})
}
