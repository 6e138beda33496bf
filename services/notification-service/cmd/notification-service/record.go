package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/trgnexus/platform/libs/events"
	"github.com/trgnexus/platform/services/notification-service/internal/storage"
)

type notificationLog interface {
	Insert(ctx context.Context, tx pgx.Tx, n storage.Notification) error
}

type outboxWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, evt events.Event) error
}

// outcomeRecorder persists a delivery attempt and emits the matching
// sent/failed event. Both writes share one transaction: a "sent" row
// without its event (or the reverse) never commits.
type outcomeRecorder struct {
	withTx func(ctx context.Context, fn func(pgx.Tx) error) error
	log    notificationLog
	outbox outboxWriter
	logger *slog.Logger
}

func (r *outcomeRecorder) Record(ctx context.Context, n storage.Notification, providerID string, sendErr error) error {
	if sendErr != nil {
		n.Status = "failed"
	} else {
		n.Status = "sent"
	}

	topic := events.TopicNotificationSent
	fields := map[string]any{
		"appointment_id": n.AppointmentID,
		"therapist_id":   n.TherapistID,
		"channel":        n.Channel,
	}
	if sendErr != nil {
		topic = events.TopicNotificationFailed
		fields["error_reason"] = sendErr.Error()
		fields["failed_at"] = time.Now().UTC().Format(time.RFC3339)
	} else {
		fields["provider_id"] = providerID
		fields["sent_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	err = r.withTx(ctx, func(tx pgx.Tx) error {
		if err := r.log.Insert(ctx, tx, n); err != nil {
			return err
		}
		return r.outbox.Insert(ctx, tx, events.Event{
			AggregateType: "notification",
			AggregateID:   n.AppointmentID,
			EventType:     topic,
			Payload:       payload,
		})
	})
	if err != nil {
		r.logger.Error("failed to persist notification outcome", "err", err, "channel", n.Channel)
	}
	return err
}
