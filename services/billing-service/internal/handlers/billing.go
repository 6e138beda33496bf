package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"

	"github.com/trgnexus/platform/libs/events"
	"github.com/trgnexus/platform/services/billing-service/internal/storage"
)

type Handler struct {
	repo                   *storage.Repository
	outboxRepo             *events.OutboxRepository
	logger                 *slog.Logger
	stripeWebhookSecret    string
	stripeWebhookTolerance time.Duration
	stripeSecretKey        string
	defaultCurrency        string
}

type Config struct {
	StripeWebhookSecret           string
	StripeWebhookToleranceSeconds int
	StripeSecretKey               string
	DefaultCurrency               string
}

func New(repo *storage.Repository, outboxRepo *events.OutboxRepository, logger *slog.Logger, cfg Config) *Handler {
	tolSeconds := cfg.StripeWebhookToleranceSeconds
	if tolSeconds <= 0 {
		tolSeconds = 300
	}
	currency := strings.TrimSpace(strings.ToLower(cfg.DefaultCurrency))
	if currency == "" {
		currency = "brl"
	}
	return &Handler{
		repo:                   repo,
		outboxRepo:             outboxRepo,
		logger:                 logger,
		stripeWebhookSecret:    strings.TrimSpace(cfg.StripeWebhookSecret),
		stripeWebhookTolerance: time.Duration(tolSeconds) * time.Second,
		stripeSecretKey:        strings.TrimSpace(cfg.StripeSecretKey),
		defaultCurrency:        currency,
	}
}

type createIntentRequest struct {
	AppointmentID string `json:"appointmentId"`
	AmountCents   int64  `json:"amountCents"`
	Currency      string `json:"currency,omitempty"`
	PatientEmail  string `json:"patientEmail,omitempty"`
}

// CreateIntent creates a Stripe PaymentIntent for a session that requires
// prepayment. The appointment id rides in the intent metadata so the
// webhook can confirm the booking later.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.stripeSecretKey == "" {
		http.Error(w, "stripe billing not configured (STRIPE_SECRET_KEY missing)", http.StatusNotImplemented)
		return
	}

	var req createIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.PatientEmail = strings.TrimSpace(strings.ToLower(req.PatientEmail))
	currency := strings.TrimSpace(strings.ToLower(req.Currency))
	if currency == "" {
		currency = h.defaultCurrency
	}
	if req.AppointmentID == "" {
		http.Error(w, "appointmentId is required", http.StatusBadRequest)
		return
	}
	if req.AmountCents <= 0 {
		http.Error(w, "amountCents must be positive", http.StatusBadRequest)
		return
	}

	therapistID := strings.TrimSpace(r.Header.Get("X-Therapist-Id"))

	// Stripe uses a global API key. Keep usage limited to this handler call.
	stripe.Key = h.stripeSecretKey

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("appointment_id", req.AppointmentID)
	if req.PatientEmail != "" {
		params.AddMetadata("patient_email", req.PatientEmail)
	}
	if therapistID != "" {
		params.AddMetadata("therapist_id", therapistID)
	}

	// Stripe-level idempotency: allows safe retries.
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey == "" {
		// Deterministic fallback prevents accidental duplicate intents
		// when clients don't send Idempotency-Key.
		idemKey = "intent:" + req.AppointmentID
	}
	params.IdempotencyKey = stripe.String(idemKey)

	pi, err := paymentintent.New(params)
	if err != nil {
		h.logger.Error("stripe payment intent create failed", "err", err, "appointment_id", req.AppointmentID)
		http.Error(w, "failed to create payment intent", http.StatusBadGateway)
		return
	}

	tx, err := h.repo.Begin(r.Context())
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(r.Context()) }()

	if err := h.repo.CreatePayment(r.Context(), tx, storage.Payment{
		ID:                    uuid.NewString(),
		AppointmentID:         req.AppointmentID,
		TherapistID:           therapistID,
		StripePaymentIntentID: pi.ID,
		AmountCents:           req.AmountCents,
		Currency:              currency,
		Status:                "pending",
	}); err != nil {
		http.Error(w, "failed to persist payment", http.StatusInternalServerError)
		return
	}
	if err := h.recordAudit(r.Context(), tx, r, "billing.intent.created", "", therapistID, map[string]any{
		"appointment_id":           req.AppointmentID,
		"stripe_payment_intent_id": pi.ID,
		"amount_cents":             req.AmountCents,
		"currency":                 currency,
	}); err != nil {
		http.Error(w, "failed to record audit event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(r.Context()); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"paymentIntentId": pi.ID,
		"clientSecret":    pi.ClientSecret,
		"amountCents":     req.AmountCents,
		"currency":        currency,
	})
}

// GetPayment returns the recorded state of a payment by its Stripe
// payment intent id.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	intentID := strings.TrimSpace(r.URL.Query().Get("paymentIntentId"))
	if intentID == "" {
		http.Error(w, "paymentIntentId is required", http.StatusBadRequest)
		return
	}

	p, err := h.repo.GetPaymentByIntent(r.Context(), intentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load payment", http.StatusInternalServerError)
		return
	}

	resp := map[string]any{
		"paymentIntentId": p.StripePaymentIntentID,
		"appointmentId":   p.AppointmentID,
		"amountCents":     p.AmountCents,
		"currency":        p.Currency,
		"status":          p.Status,
		"updatedAt":       p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if p.SucceededAt != nil {
		resp["succeededAt"] = p.SucceededAt.UTC().Format(time.RFC3339)
	}
	if p.FailedAt != nil {
		resp["failedAt"] = p.FailedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) recordAudit(ctx context.Context, tx pgx.Tx, r *http.Request, eventType string, actorType string, therapistID string, metadata map[string]any) error {
	if actorType == "" {
		actorType = strings.TrimSpace(r.Header.Get("X-Role"))
	}
	if actorType == "" {
		actorType = "system"
	}
	actorID := strings.TrimSpace(r.Header.Get("X-Therapist-Id"))
	if metadata == nil {
		metadata = map[string]any{}
	}
	if reqID := strings.TrimSpace(r.Header.Get("X-Request-Id")); reqID != "" {
		metadata["request_id"] = reqID
	}
	raw, _ := json.Marshal(metadata)
	return h.repo.InsertAuditEvent(ctx, tx, storage.AuditEvent{
		EventType:   eventType,
		ActorType:   actorType,
		ActorID:     actorID,
		TherapistID: therapistID,
		Metadata:    raw,
	})
}
