package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trgnexus/platform/services/network-service/internal/model"
)

type fakePublicDirectory struct {
	therapists []model.Therapist
	err        error
}

func (f *fakePublicDirectory) PublicTherapists(_ context.Context) ([]model.Therapist, error) {
	return f.therapists, f.err
}

func TestPublicTherapistsHidesContactDetails(t *testing.T) {
	dir := &fakePublicDirectory{therapists: []model.Therapist{
		{ID: "t1", Name: "Dra. Ana", Email: "ana@example.com", Specialty: "Ansiedade", Rating: 4.9, IsVerified: true},
		{ID: "t2", Name: "Dr. Bruno", Email: "bruno@example.com", Specialty: "Depressão", Rating: 4.7, IsVerified: true},
	}}
	h := NewTherapistsHandler(dir, slog.Default())
	req := httptest.NewRequest(http.MethodGet, "/network/therapists", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Therapists []map[string]any `json:"therapists"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if len(body.Therapists) != 2 {
		t.Fatalf("therapists = %d, want 2", len(body.Therapists))
	}
	if body.Therapists[0]["id"] != "t1" {
		t.Fatalf("first therapist = %v, want t1", body.Therapists[0]["id"])
	}
	for _, entry := range body.Therapists {
		if _, ok := entry["email"]; ok {
			t.Fatal("public listing must not expose email addresses")
		}
	}
}

func TestPublicTherapistsEmptyDirectory(t *testing.T) {
	h := NewTherapistsHandler(&fakePublicDirectory{}, slog.Default())
	req := httptest.NewRequest(http.MethodGet, "/network/therapists", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Therapists []map[string]any `json:"therapists"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Therapists == nil {
		t.Fatal("therapists should be an empty array, not null")
	}
}

func TestPublicTherapistsWrongMethod(t *testing.T) {
	h := NewTherapistsHandler(&fakePublicDirectory{}, slog.Default())
	req := httptest.NewRequest(http.MethodPost, "/network/therapists", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestPublicTherapistsDirectoryFailure(t *testing.T) {
	h := NewTherapistsHandler(&fakePublicDirectory{err: errors.New("pg down")}, slog.Default())
	req := httptest.NewRequest(http.MethodGet, "/network/therapists", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
