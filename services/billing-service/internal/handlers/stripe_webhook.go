package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/trgnexus/platform/libs/events"
	"github.com/trgnexus/platform/services/billing-service/internal/storage"
)

// StripeWebhook handles Stripe webhooks (no JWT auth; signature verification is the auth).
// Gateway should expose this path publicly.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if strings.TrimSpace(h.stripeWebhookSecret) == "" {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MiB hard cap
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.stripeWebhookSecret, h.stripeWebhookTolerance)
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	occurredAt := time.Unix(evt.Created, 0).UTC()
	evtType := string(evt.Type)
	h.logger.Info("billing provider event received",
		"provider", "stripe",
		"provider_event_id", evt.ID,
		"event_type", evtType,
		"occurred_at", occurredAt.Format(time.RFC3339),
	)

	tx, err := h.repo.Begin(r.Context())
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(r.Context()) }()

	// Idempotency: ignore replayed Stripe events.
	if err := h.repo.InsertProviderEvent(r.Context(), tx, storage.ProviderEvent{
		Provider:        "stripe",
		ProviderEventID: evt.ID,
		EventType:       evtType,
		Payload:         body,
	}); err != nil {
		if errors.Is(err, storage.ErrDuplicateProviderEvent) {
			h.logger.Info("billing provider event duplicate ignored", "provider", "stripe", "provider_event_id", evt.ID, "event_type", evtType)
			writeJSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
			_ = tx.Commit(r.Context())
			return
		}
		http.Error(w, "failed to record provider event", http.StatusInternalServerError)
		return
	}

	if err := h.recordAudit(r.Context(), tx, r, "billing.provider.stripe.webhook", "provider", "", map[string]any{
		"provider":          "stripe",
		"provider_event_id": evt.ID,
		"event_type":        evtType,
		"occurred_at":       occurredAt.Format(time.RFC3339),
	}); err != nil {
		http.Error(w, "failed to record audit event", http.StatusInternalServerError)
		return
	}

	switch evtType {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			h.logger.Error("stripe: invalid payment intent payload", "err", err)
			break
		}
		appointmentID := strings.TrimSpace(pi.Metadata["appointment_id"])
		if appointmentID == "" {
			h.logger.Warn("stripe: missing appointment_id metadata on payment intent", "payment_intent_id", pi.ID)
			break
		}

		if err := h.repo.MarkPaymentSucceeded(r.Context(), tx, pi.ID, occurredAt); err != nil {
			http.Error(w, "failed to record payment", http.StatusInternalServerError)
			return
		}

		payload, err := json.Marshal(map[string]any{
			"appointment_id":    appointmentID,
			"payment_intent_id": pi.ID,
			"amount_cents":      pi.Amount,
			"currency":          string(pi.Currency),
			"therapist_id":      strings.TrimSpace(pi.Metadata["therapist_id"]),
			"occurred_at":       occurredAt.Format(time.RFC3339),
		})
		if err != nil {
			http.Error(w, "failed to marshal event payload", http.StatusInternalServerError)
			return
		}
		// scheduling-service consumes this to flip the appointment out of
		// pending_payment.
		if err := h.outboxRepo.Insert(r.Context(), tx, events.Event{
			AggregateType: "payment",
			AggregateID:   appointmentID,
			EventType:     events.TopicPaymentSucceeded,
			Payload:       payload,
		}); err != nil {
			http.Error(w, "failed to enqueue payment event", http.StatusInternalServerError)
			return
		}

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			h.logger.Error("stripe: invalid payment intent payload", "err", err)
			break
		}
		if err := h.repo.MarkPaymentFailed(r.Context(), tx, pi.ID, occurredAt); err != nil {
			http.Error(w, "failed to record payment failure", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(r.Context()); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
