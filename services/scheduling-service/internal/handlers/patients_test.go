package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/trgnexus/platform/services/scheduling-service/internal/model"
)

type fakePatientStore struct {
	patients map[string]model.Patient
	timeline []model.Appointment
	created  []model.Patient
}

func (f *fakePatientStore) List(_ context.Context, therapistID string) ([]model.Patient, error) {
	var out []model.Patient
	for _, p := range f.patients {
		if p.TherapistID == therapistID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePatientStore) Create(_ context.Context, p *model.Patient) (string, error) {
	id := "p-new"
	f.created = append(f.created, *p)
	return id, nil
}

func (f *fakePatientStore) Update(_ context.Context, therapistID string, p model.Patient) (model.Patient, error) {
	existing, ok := f.patients[p.ID]
	if !ok || existing.TherapistID != therapistID {
		return model.Patient{}, pgx.ErrNoRows
	}
	p.TherapistID = therapistID
	f.patients[p.ID] = p
	return p, nil
}

func (f *fakePatientStore) Delete(_ context.Context, therapistID, patientID string) (bool, error) {
	existing, ok := f.patients[patientID]
	if !ok || existing.TherapistID != therapistID {
		return false, nil
	}
	delete(f.patients, patientID)
	return true, nil
}

func (f *fakePatientStore) Timeline(_ context.Context, _ string) ([]model.Appointment, error) {
	return f.timeline, nil
}

func TestPatientsRequireIdentity(t *testing.T) {
	h := NewPatientsHandler(&fakePatientStore{}, slog.Default(), 250)
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	rec := httptest.NewRecorder()

	h.Collection(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestPatientsCreateScopedToTherapist(t *testing.T) {
	store := &fakePatientStore{patients: map[string]model.Patient{}}
	h := NewPatientsHandler(store, slog.Default(), 250)
	req := httptest.NewRequest(http.MethodPost, "/patients",
		strings.NewReader(`{"name":"Maria","email":"Maria@Example.com","phone":"+5511999990000"}`))
	req.Header.Set("X-Therapist-Id", "t1")
	rec := httptest.NewRecorder()

	h.Collection(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	if len(store.created) != 1 {
		t.Fatalf("created = %d, want 1", len(store.created))
	}
	if store.created[0].TherapistID != "t1" {
		t.Fatalf("therapist_id = %q, want t1", store.created[0].TherapistID)
	}
	if store.created[0].Email != "maria@example.com" {
		t.Fatalf("email = %q, want normalized lowercase", store.created[0].Email)
	}
}

func TestPatientsCreateValidation(t *testing.T) {
	h := NewPatientsHandler(&fakePatientStore{}, slog.Default(), 250)
	req := httptest.NewRequest(http.MethodPost, "/patients", strings.NewReader(`{"name":"Maria"}`))
	req.Header.Set("X-Therapist-Id", "t1")
	rec := httptest.NewRecorder()

	h.Collection(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPatientsUpdateOtherTherapistIs404(t *testing.T) {
	store := &fakePatientStore{patients: map[string]model.Patient{
		"p1": {ID: "p1", TherapistID: "t2", Name: "Maria", Email: "maria@example.com"},
	}}
	h := NewPatientsHandler(store, slog.Default(), 250)
	req := httptest.NewRequest(http.MethodPut, "/patients?id=p1",
		strings.NewReader(`{"name":"Maria","email":"maria@example.com"}`))
	req.Header.Set("X-Therapist-Id", "t1")
	rec := httptest.NewRecorder()

	h.Collection(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (records are therapist-scoped)", rec.Code)
	}
}

func TestPatientsDelete(t *testing.T) {
	store := &fakePatientStore{patients: map[string]model.Patient{
		"p1": {ID: "p1", TherapistID: "t1", Name: "Maria", Email: "maria@example.com"},
	}}
	h := NewPatientsHandler(store, slog.Default(), 250)
	req := httptest.NewRequest(http.MethodDelete, "/patients?id=p1", nil)
	req.Header.Set("X-Therapist-Id", "t1")
	rec := httptest.NewRecorder()

	h.Collection(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if _, ok := store.patients["p1"]; ok {
		t.Fatal("patient should be gone")
	}
}

func TestPatientDetailsFinancialSummary(t *testing.T) {
	store := &fakePatientStore{timeline: []model.Appointment{
		{ID: "a3", Date: "2024-06-10", Time: "14:00", Status: model.StatusScheduled},
		{ID: "a2", Date: "2024-05-20", Time: "09:00", Status: model.StatusCompleted},
		{ID: "a1", Date: "2024-05-01", Time: "09:00", Status: model.StatusCompleted},
	}}
	h := NewPatientsHandler(store, slog.Default(), 250)
	req := httptest.NewRequest(http.MethodGet, "/patients/details?patientId=p1", nil)
	req.Header.Set("X-Therapist-Id", "t1")
	rec := httptest.NewRecorder()

	h.Details(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Timeline  []timelineEntry `json:"timeline"`
		Financial struct {
			TotalInvested int              `json:"totalInvested"`
			Pending       int              `json:"pending"`
			History       []financialEntry `json:"history"`
		} `json:"financial"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if len(body.Timeline) != 3 {
		t.Fatalf("timeline = %d entries, want 3", len(body.Timeline))
	}
	if body.Financial.TotalInvested != 500 {
		t.Fatalf("totalInvested = %d, want 500 (two completed sessions)", body.Financial.TotalInvested)
	}
	if body.Financial.Pending != 250 {
		t.Fatalf("pending = %d, want 250 (one scheduled session)", body.Financial.Pending)
	}
	if body.Financial.History[1].Status != "Pago" {
		t.Fatalf("completed session should be Pago, got %q", body.Financial.History[1].Status)
	}
}
