package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/trgnexus/platform/services/portal-service/internal/model"
)

type fakeStore struct {
	patients map[string]model.Patient
	history  map[string][]model.HistoryEntry
	err      error
}

func (f *fakeStore) PatientByEmail(_ context.Context, email string) (model.Patient, error) {
	if f.err != nil {
		return model.Patient{}, f.err
	}
	p, ok := f.patients[email]
	if !ok {
		return model.Patient{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeStore) History(_ context.Context, patientID string) ([]model.HistoryEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history[patientID], nil
}

func TestLoginUnknownEmail(t *testing.T) {
	h := NewPortalHandler(&fakeStore{patients: map[string]model.Patient{}}, slog.Default())
	req := httptest.NewRequest(http.MethodPost, "/portal/login", strings.NewReader(`{"email":"nobody@example.com"}`))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Success || body.Message != "Patient not found." {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestLoginKnownEmail(t *testing.T) {
	store := &fakeStore{patients: map[string]model.Patient{
		"maria@example.com": {ID: "p1", Name: "Maria", Email: "maria@example.com"},
	}}
	h := NewPortalHandler(store, slog.Default())
	req := httptest.NewRequest(http.MethodPost, "/portal/login", strings.NewReader(`{"email":"Maria@Example.com"}`))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Success bool          `json:"success"`
		Patient model.Patient `json:"patient"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if !body.Success || body.Patient.ID != "p1" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestLoginValidation(t *testing.T) {
	h := NewPortalHandler(&fakeStore{}, slog.Default())

	req := httptest.NewRequest(http.MethodPost, "/portal/login", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty email: status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/portal/login", nil)
	rec = httptest.NewRecorder()
	h.Login(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET: status = %d, want 405", rec.Code)
	}
}

func TestDataReturnsHistoryNewestFirst(t *testing.T) {
	store := &fakeStore{
		patients: map[string]model.Patient{
			"maria@example.com": {ID: "p1", Name: "Maria", Email: "maria@example.com"},
		},
		history: map[string][]model.HistoryEntry{
			"p1": {
				{ID: "a2", Date: "2024-06-10", Time: "14:00", Status: "Agendado"},
				{ID: "a1", Date: "2024-05-01", Time: "09:00", Status: "Concluído"},
			},
		},
	}
	h := NewPortalHandler(store, slog.Default())
	req := httptest.NewRequest(http.MethodGet, "/portal/data?email=maria@example.com", nil)
	rec := httptest.NewRecorder()

	h.Data(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Appointments []model.HistoryEntry `json:"appointments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if len(body.Appointments) != 2 {
		t.Fatalf("appointments = %d, want 2", len(body.Appointments))
	}
	if body.Appointments[0].ID != "a2" {
		t.Fatalf("first entry = %s, want newest (a2)", body.Appointments[0].ID)
	}
}

func TestDataEmptyHistoryIsList(t *testing.T) {
	store := &fakeStore{
		patients: map[string]model.Patient{
			"maria@example.com": {ID: "p1", Email: "maria@example.com"},
		},
	}
	h := NewPortalHandler(store, slog.Default())
	req := httptest.NewRequest(http.MethodGet, "/portal/data?email=maria@example.com", nil)
	rec := httptest.NewRecorder()

	h.Data(rec, req)

	if !strings.Contains(rec.Body.String(), `"appointments":[]`) {
		t.Fatalf("empty history should serialize as []: %s", rec.Body.String())
	}
}

func TestDataStoreFailure(t *testing.T) {
	h := NewPortalHandler(&fakeStore{err: errors.New("pg down")}, slog.Default())
	req := httptest.NewRequest(http.MethodGet, "/portal/data?email=x@example.com", nil)
	rec := httptest.NewRecorder()

	h.Data(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
