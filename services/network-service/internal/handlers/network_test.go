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

type fakeDirectory struct {
	therapists []model.Therapist
	err        error
}

func (f *fakeDirectory) Candidates(_ context.Context, sourceID, specialty string) ([]model.Therapist, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Therapist
	for _, t := range f.therapists {
		if !t.IsVerified || !t.AcceptsOverflow || t.ID == sourceID {
			continue
		}
		if specialty != "" && t.Specialty != specialty {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func TestMatchNoQualifiedTherapists(t *testing.T) {
	dir := &fakeDirectory{
		therapists: []model.Therapist{
			{ID: "t2", Specialty: "Ansiedade", Rating: 4.8, IsVerified: false, AcceptsOverflow: true},
			{ID: "t3", Specialty: "Depressão", Rating: 4.9, IsVerified: true, AcceptsOverflow: true},
		},
	}
	h := NewMatchHandler(dir, slog.Default())
	req := httptest.NewRequest(http.MethodGet, "/network/match?sourceTherapistId=t1&specialty=Ansiedade", nil)
	rec := httptest.NewRecorder()

	h.Match(rec, req)

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
	if body.Success {
		t.Fatal("success should be false")
	}
	if body.Message != "No qualified therapists found." {
		t.Fatalf("message = %q, want %q", body.Message, "No qualified therapists found.")
	}
}

func TestMatchPicksHighestRated(t *testing.T) {
	dir := &fakeDirectory{
		therapists: []model.Therapist{
			{ID: "t2", Rating: 4.8, IsVerified: true, AcceptsOverflow: true},
			{ID: "t3", Rating: 4.9, IsVerified: true, AcceptsOverflow: true},
			{ID: "t4", Rating: 4.2, IsVerified: true, AcceptsOverflow: true},
		},
	}
	h := NewMatchHandler(dir, slog.Default())
	req := httptest.NewRequest(http.MethodGet, "/network/match?sourceTherapistId=t1", nil)
	rec := httptest.NewRecorder()

	h.Match(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Success         bool            `json:"success"`
		Match           model.Therapist `json:"match"`
		CandidatesCount int             `json:"candidatesCount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if !body.Success {
		t.Fatal("success should be true")
	}
	if body.Match.ID != "t3" {
		t.Fatalf("match = %s, want t3 (rated 4.9)", body.Match.ID)
	}
	if body.CandidatesCount != 3 {
		t.Fatalf("candidatesCount = %d, want 3", body.CandidatesCount)
	}
}

func TestMatchExcludesSourceTherapist(t *testing.T) {
	dir := &fakeDirectory{
		therapists: []model.Therapist{
			{ID: "t1", Rating: 5.0, IsVerified: true, AcceptsOverflow: true},
			{ID: "t2", Rating: 4.0, IsVerified: true, AcceptsOverflow: true},
		},
	}
	h := NewMatchHandler(dir, slog.Default())
	req := httptest.NewRequest(http.MethodGet, "/network/match?sourceTherapistId=t1", nil)
	rec := httptest.NewRecorder()

	h.Match(rec, req)

	var body struct {
		Match model.Therapist `json:"match"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Match.ID == "t1" {
		t.Fatal("source therapist must never match itself")
	}
}

func TestMatchMissingSource(t *testing.T) {
	h := NewMatchHandler(&fakeDirectory{}, slog.Default())
	req := httptest.NewRequest(http.MethodGet, "/network/match", nil)
	rec := httptest.NewRecorder()

	h.Match(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMatchWrongMethod(t *testing.T) {
	h := NewMatchHandler(&fakeDirectory{}, slog.Default())
	req := httptest.NewRequest(http.MethodPost, "/network/match?sourceTherapistId=t1", nil)
	rec := httptest.NewRecorder()

	h.Match(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestMatchDirectoryFailure(t *testing.T) {
	h := NewMatchHandler(&fakeDirectory{err: errors.New("pg down")}, slog.Default())
	req := httptest.NewRequest(http.MethodGet, "/network/match?sourceTherapistId=t1", nil)
	rec := httptest.NewRecorder()

	h.Match(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
