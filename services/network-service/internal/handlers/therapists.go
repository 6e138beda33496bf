package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/trgnexus/platform/services/network-service/internal/model"
)

// PublicDirectory backs the unauthenticated therapist listing.
type PublicDirectory interface {
	PublicTherapists(ctx context.Context) ([]model.Therapist, error)
}

type TherapistsHandler struct {
	directory PublicDirectory
	logger    *slog.Logger
}

func NewTherapistsHandler(directory PublicDirectory, logger *slog.Logger) *TherapistsHandler {
	return &TherapistsHandler{directory: directory, logger: logger}
}

// publicTherapist is the shape exposed to anonymous callers. Contact
// details stay off the wire; booking goes through the platform.
type publicTherapist struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Specialty  string  `json:"specialty"`
	Rating     float64 `json:"rating"`
	IsVerified bool    `json:"isVerified"`
}

// List serves GET /network/therapists, the public directory the
// booking wizard reads.
func (h *TherapistsHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	therapists, err := h.directory.PublicTherapists(r.Context())
	if err != nil {
		h.logger.Error("public directory query failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	out := make([]publicTherapist, 0, len(therapists))
	for _, t := range therapists {
		out = append(out, publicTherapist{
			ID:         t.ID,
			Name:       t.Name,
			Specialty:  t.Specialty,
			Rating:     t.Rating,
			IsVerified: t.IsVerified,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"therapists": out})
}
