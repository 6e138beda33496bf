package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/trgnexus/platform/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

type Payment struct {
	ID                    string
	AppointmentID         string
	TherapistID           string
	StripePaymentIntentID string
	AmountCents           int64
	Currency              string
	Status                string
	CreatedAt             time.Time
	UpdatedAt             time.Time
	SucceededAt           *time.Time
	FailedAt              *time.Time
}

func (r *Repository) CreatePayment(ctx context.Context, tx pgx.Tx, p Payment) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO payments (id, appointment_id, therapist_id, stripe_payment_intent_id, amount_cents, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.AppointmentID, nullIfEmpty(p.TherapistID), p.StripePaymentIntentID, p.AmountCents, p.Currency, p.Status)
	return err
}

func (r *Repository) GetPaymentByIntent(ctx context.Context, paymentIntentID string) (Payment, error) {
	var p Payment
	err := r.pool.QueryRow(ctx, `
		SELECT id, appointment_id, COALESCE(therapist_id::text, ''), stripe_payment_intent_id,
		       amount_cents, currency, status, created_at, updated_at, succeeded_at, failed_at
		FROM payments
		WHERE stripe_payment_intent_id = $1
	`, paymentIntentID).Scan(
		&p.ID,
		&p.AppointmentID,
		&p.TherapistID,
		&p.StripePaymentIntentID,
		&p.AmountCents,
		&p.Currency,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.SucceededAt,
		&p.FailedAt,
	)
	if err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (r *Repository) MarkPaymentSucceeded(ctx context.Context, tx pgx.Tx, paymentIntentID string, succeededAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE payments
		SET status = 'succeeded',
		    succeeded_at = $2,
		    updated_at = now()
		WHERE stripe_payment_intent_id = $1 AND status <> 'succeeded'
	`, paymentIntentID, succeededAt)
	return err
}

func (r *Repository) MarkPaymentFailed(ctx context.Context, tx pgx.Tx, paymentIntentID string, failedAt time.Time) error {
	// Failure never overrides a success already recorded (webhooks can
	// arrive out of order).
	_, err := tx.Exec(ctx, `
		UPDATE payments
		SET status = 'failed',
		    failed_at = $2,
		    updated_at = now()
		WHERE stripe_payment_intent_id = $1 AND status <> 'succeeded'
	`, paymentIntentID, failedAt)
	return err
}

type ProviderEvent struct {
	Provider        string
	ProviderEventID string
	EventType       string
	Payload         []byte
}

var ErrDuplicateProviderEvent = errors.New("duplicate provider event")

func (r *Repository) InsertProviderEvent(ctx context.Context, tx pgx.Tx, evt ProviderEvent) error {
	var payload any
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO provider_events (provider, provider_event_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider, provider_event_id) DO NOTHING
	`, evt.Provider, evt.ProviderEventID, evt.EventType, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateProviderEvent
	}
	return nil
}

type AuditEvent struct {
	EventType   string
	ActorType   string
	ActorID     string
	TherapistID string
	Metadata    []byte
}

func (r *Repository) InsertAuditEvent(ctx context.Context, tx pgx.Tx, evt AuditEvent) error {
	var payload any
	if len(evt.Metadata) == 0 {
		payload = map[string]any{}
	} else if err := json.Unmarshal(evt.Metadata, &payload); err != nil {
		return err
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO audit_events (event_type, actor_type, actor_id, therapist_id, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`, evt.EventType, evt.ActorType, nullIfEmpty(evt.ActorID), nullIfEmpty(evt.TherapistID), payload)
	return err
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
