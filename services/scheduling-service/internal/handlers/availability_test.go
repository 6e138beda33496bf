package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trgnexus/platform/services/scheduling-service/internal/availability"
	"github.com/trgnexus/platform/services/scheduling-service/internal/model"
)

type stubStore struct {
	hours    map[int]model.WorkingHours
	appts    []model.Appointment
	storeErr error
}

func (s *stubStore) WorkingHoursFor(_ context.Context, _ string, weekday int) (model.WorkingHours, bool, error) {
	if s.storeErr != nil {
		return model.WorkingHours{}, false, s.storeErr
	}
	wh, ok := s.hours[weekday]
	return wh, ok, nil
}

func (s *stubStore) AppointmentsOn(_ context.Context, date, therapistID string) ([]model.Appointment, error) {
	if s.storeErr != nil {
		return nil, s.storeErr
	}
	var out []model.Appointment
	for _, a := range s.appts {
		if a.Date != date {
			continue
		}
		if therapistID != "" && a.TherapistID != therapistID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func newAvailabilityHandler(store *stubStore) *AvailabilityHandler {
	return NewAvailabilityHandler(availability.NewEngine(store), slog.Default())
}

func TestAvailabilityRejectsWrongMethod(t *testing.T) {
	h := newAvailabilityHandler(&stubStore{})
	req := httptest.NewRequest(http.MethodPost, "/availability?date=2024-06-05", nil)
	rec := httptest.NewRecorder()

	h.Day(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestAvailabilityMissingDate(t *testing.T) {
	h := newAvailabilityHandler(&stubStore{})
	req := httptest.NewRequest(http.MethodGet, "/availability", nil)
	rec := httptest.NewRecorder()

	h.Day(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["error"] != "Missing date parameter" {
		t.Fatalf("error = %q, want %q", body["error"], "Missing date parameter")
	}
}

func TestAvailabilityInvalidDate(t *testing.T) {
	h := newAvailabilityHandler(&stubStore{})
	req := httptest.NewRequest(http.MethodGet, "/availability?date=05-06-2024", nil)
	rec := httptest.NewRecorder()

	h.Day(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAvailabilityStoreFailure(t *testing.T) {
	h := newAvailabilityHandler(&stubStore{storeErr: errors.New("pg: connection refused")})
	req := httptest.NewRequest(http.MethodGet, "/availability?date=2024-06-05&therapistId=t1", nil)
	rec := httptest.NewRecorder()

	h.Day(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	// Internal details never leak to the public contract.
	if body["error"] != "Internal server error" {
		t.Fatalf("error = %q, want generic message", body["error"])
	}
}

func TestAvailabilityDay(t *testing.T) {
	store := &stubStore{
		hours: map[int]model.WorkingHours{
			3: {Weekday: 3, StartHour: 9, EndHour: 12, Active: true},
		},
		appts: []model.Appointment{
			{TherapistID: "t1", Date: "2024-06-05", Time: "10:00:00", Status: model.StatusScheduled},
		},
	}
	h := newAvailabilityHandler(store)
	req := httptest.NewRequest(http.MethodGet, "/availability?date=2024-06-05&therapistId=t1", nil)
	rec := httptest.NewRecorder()

	h.Day(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Slots []model.Slot `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if len(body.Slots) != 3 {
		t.Fatalf("len(slots) = %d, want 3", len(body.Slots))
	}
	for _, s := range body.Slots {
		wantAvailable := s.Time != "10:00"
		if s.Available != wantAvailable {
			t.Errorf("slot %s available = %v, want %v", s.Time, s.Available, wantAvailable)
		}
	}
}
