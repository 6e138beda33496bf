package storage

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/trgnexus/platform/libs/db"
	"github.com/trgnexus/platform/services/notification-service/internal/push"
)

type Notification struct {
	AppointmentID string
	TherapistID   string
	Channel       string
	Recipient     string
	Payload       map[string]any
	Status        string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert runs on the caller's transaction so the log row and the
// matching outbox event commit together.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, n Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO notifications (appointment_id, therapist_id, channel, recipient, payload, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.AppointmentID, n.TherapistID, n.Channel, n.Recipient, payload, n.Status)
	return err
}

// UpsertPushSubscription registers (or refreshes) a browser push
// subscription keyed by recipient email + endpoint.
func (r *Repository) UpsertPushSubscription(ctx context.Context, email string, sub push.Subscription) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO push_subscriptions (email, endpoint, p256dh, auth)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email, endpoint)
		DO UPDATE SET p256dh = EXCLUDED.p256dh,
		              auth = EXCLUDED.auth,
		              updated_at = now()
	`, email, sub.Endpoint, sub.P256DH, sub.Auth)
	return err
}

func (r *Repository) PushSubscriptionsFor(ctx context.Context, email string) ([]push.Subscription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT endpoint, p256dh, auth
		FROM push_subscriptions
		WHERE email = $1
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []push.Subscription
	for rows.Next() {
		var s push.Subscription
		if err := rows.Scan(&s.Endpoint, &s.P256DH, &s.Auth); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return subs, nil
}

func (r *Repository) DeletePushSubscription(ctx context.Context, email string, endpoint string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM push_subscriptions
		WHERE email = $1 AND endpoint = $2
	`, email, endpoint)
	return err
}
