package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/trgnexus/platform/services/notification-service/internal/push"
	"github.com/trgnexus/platform/services/notification-service/internal/storage"
)

type pushSubscribeRequest struct {
	Email        string            `json:"email"`
	Subscription push.Subscription `json:"subscription"`
}

// pushSubscribeHandler registers or removes a browser push
// subscription for a patient email.
func pushSubscribeHandler(repo *storage.Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodDelete:
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req pushSubscribeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		req.Subscription.Endpoint = strings.TrimSpace(req.Subscription.Endpoint)
		if req.Email == "" || req.Subscription.Endpoint == "" {
			http.Error(w, "email and subscription.endpoint required", http.StatusBadRequest)
			return
		}

		if r.Method == http.MethodDelete {
			if err := repo.DeletePushSubscription(r.Context(), req.Email, req.Subscription.Endpoint); err != nil {
				logger.Error("push unsubscribe failed", "err", err)
				http.Error(w, "failed to remove subscription", http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if req.Subscription.P256DH == "" || req.Subscription.Auth == "" {
			http.Error(w, "subscription keys required", http.StatusBadRequest)
			return
		}
		if err := repo.UpsertPushSubscription(r.Context(), req.Email, req.Subscription); err != nil {
			logger.Error("push subscribe failed", "err", err)
			http.Error(w, "failed to store subscription", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}
}
