package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/trgnexus/platform/services/scheduling-service/internal/model"
	"github.com/trgnexus/platform/services/scheduling-service/internal/storage"
)

// SettingsHandler manages the therapist's schedule configuration:
// per-weekday working hours and recurring blocked slots. These feed the
// settings UI; the availability engine reads working hours on its own.
type SettingsHandler struct {
	repo   *storage.ScheduleRepository
	logger *slog.Logger
}

func NewSettingsHandler(repo *storage.ScheduleRepository, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{repo: repo, logger: logger}
}

type workingHoursItem struct {
	Weekday   int  `json:"weekday"`
	StartHour int  `json:"startHour"`
	EndHour   int  `json:"endHour"`
	IsActive  bool `json:"isActive"`
}

func (h *SettingsHandler) WorkingHours(w http.ResponseWriter, r *http.Request) {
	therapistID := strings.TrimSpace(r.Header.Get("X-Therapist-Id"))
	if therapistID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Missing therapist identity"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.listWorkingHours(w, r, therapistID)
	case http.MethodPut:
		h.putWorkingHours(w, r, therapistID)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	}
}

func (h *SettingsHandler) listWorkingHours(w http.ResponseWriter, r *http.Request, therapistID string) {
	rows, err := h.repo.ListWorkingHours(r.Context(), therapistID)
	if err != nil {
		h.logger.Error("working hours list failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	items := make([]workingHoursItem, 0, len(rows))
	for _, wh := range rows {
		items = append(items, workingHoursItem{
			Weekday:   wh.Weekday,
			StartHour: wh.StartHour,
			EndHour:   wh.EndHour,
			IsActive:  wh.Active,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"workingHours": items})
}

func (h *SettingsHandler) putWorkingHours(w http.ResponseWriter, r *http.Request, therapistID string) {
	var items []workingHoursItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}
	for _, item := range items {
		if item.Weekday < 0 || item.Weekday > 6 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weekday must be 0-6"})
			return
		}
		if item.StartHour < 0 || item.EndHour > 24 || item.StartHour >= item.EndHour {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hours must satisfy 0 <= startHour < endHour <= 24"})
			return
		}
	}
	for _, item := range items {
		wh := model.WorkingHours{
			TherapistID: therapistID,
			Weekday:     item.Weekday,
			StartHour:   item.StartHour,
			EndHour:     item.EndHour,
			Active:      item.IsActive,
		}
		if err := h.repo.UpsertWorkingHours(r.Context(), wh); err != nil {
			h.logger.Error("working hours upsert failed", "err", err, "weekday", item.Weekday)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type createBlockedSlotRequest struct {
	Weekday   int    `json:"weekday"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Label     string `json:"label"`
}

func (h *SettingsHandler) BlockedSlots(w http.ResponseWriter, r *http.Request) {
	therapistID := strings.TrimSpace(r.Header.Get("X-Therapist-Id"))
	if therapistID == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Missing therapist identity"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		slots, err := h.repo.ListBlockedSlots(r.Context(), therapistID)
		if err != nil {
			h.logger.Error("blocked slots list failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		}
		if slots == nil {
			slots = []model.BlockedSlot{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"blockedSlots": slots})

	case http.MethodPost:
		var req createBlockedSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
			return
		}
		req.StartTime = strings.TrimSpace(req.StartTime)
		req.EndTime = strings.TrimSpace(req.EndTime)
		if req.Weekday < 0 || req.Weekday > 6 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weekday must be 0-6"})
			return
		}
		if !validHourMinute(req.StartTime) || !validHourMinute(req.EndTime) || req.StartTime >= req.EndTime {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "startTime must precede endTime (HH:MM)"})
			return
		}
		id, err := h.repo.CreateBlockedSlot(r.Context(), model.BlockedSlot{
			TherapistID: therapistID,
			Weekday:     req.Weekday,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			Label:       strings.TrimSpace(req.Label),
		})
		if err != nil {
			h.logger.Error("blocked slot insert failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": id})

	case http.MethodDelete:
		id := strings.TrimSpace(r.URL.Query().Get("id"))
		if id == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id required"})
			return
		}
		deleted, err := h.repo.DeleteBlockedSlot(r.Context(), therapistID, id)
		if err != nil {
			h.logger.Error("blocked slot delete failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		}
		if !deleted {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Blocked slot not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	}
}
