package main

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/trgnexus/platform/libs/events"
	"github.com/trgnexus/platform/services/notification-service/internal/storage"
)

type capturingLog struct {
	rows []storage.Notification
	err  error
}

func (c *capturingLog) Insert(_ context.Context, _ pgx.Tx, n storage.Notification) error {
	if c.err != nil {
		return c.err
	}
	c.rows = append(c.rows, n)
	return nil
}

type capturingOutbox struct {
	events []events.Event
}

func (c *capturingOutbox) Insert(_ context.Context, _ pgx.Tx, evt events.Event) error {
	c.events = append(c.events, evt)
	return nil
}

func newTestRecorder(log *capturingLog, outbox *capturingOutbox) (*outcomeRecorder, *int, *int) {
	txCalls := new(int)
	commits := new(int)
	return &outcomeRecorder{
		withTx: func(ctx context.Context, fn func(pgx.Tx) error) error {
			*txCalls++
			if err := fn(nil); err != nil {
				return err
			}
			*commits++
			return nil
		},
		log:    log,
		outbox: outbox,
		logger: slog.Default(),
	}, txCalls, commits
}

func TestRecordCommitsRowAndEventTogether(t *testing.T) {
	log := &capturingLog{}
	outbox := &capturingOutbox{}
	recorder, txCalls, _ := newTestRecorder(log, outbox)

	err := recorder.Record(context.Background(), storage.Notification{
		AppointmentID: "a1",
		TherapistID:   "t1",
		Channel:       "email",
		Recipient:     "maria@example.com",
	}, "smtp", nil)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if *txCalls != 1 {
		t.Fatalf("transactions = %d, want 1 (row and event share one tx)", *txCalls)
	}
	if len(log.rows) != 1 || log.rows[0].Status != "sent" {
		t.Fatalf("unexpected log rows: %+v", log.rows)
	}
	if len(outbox.events) != 1 || outbox.events[0].EventType != events.TopicNotificationSent {
		t.Fatalf("unexpected outbox events: %+v", outbox.events)
	}
}

func TestRecordFailedSendEmitsFailureEvent(t *testing.T) {
	log := &capturingLog{}
	outbox := &capturingOutbox{}
	recorder, _, _ := newTestRecorder(log, outbox)

	err := recorder.Record(context.Background(), storage.Notification{
		AppointmentID: "a1",
		Channel:       "whatsapp",
	}, "meta", errors.New("provider timeout"))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if len(log.rows) != 1 || log.rows[0].Status != "failed" {
		t.Fatalf("unexpected log rows: %+v", log.rows)
	}
	if len(outbox.events) != 1 || outbox.events[0].EventType != events.TopicNotificationFailed {
		t.Fatalf("unexpected outbox events: %+v", outbox.events)
	}
}

func TestRecordRowFailureAbortsEvent(t *testing.T) {
	log := &capturingLog{err: errors.New("pg down")}
	outbox := &capturingOutbox{}
	recorder, _, commits := newTestRecorder(log, outbox)

	err := recorder.Record(context.Background(), storage.Notification{AppointmentID: "a1"}, "smtp", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if *commits != 0 {
		t.Fatalf("commits = %d, want 0", *commits)
	}
	if len(outbox.events) != 0 {
		t.Fatalf("no event should be written when the row insert fails")
	}
}
