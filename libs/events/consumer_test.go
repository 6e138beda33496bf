package events

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
)

// memoryInbox claims event ids the way the Postgres inbox does: the
// claim sticks only when the processing function succeeds.
type memoryInbox struct {
	seen map[string]bool
}

func (m *memoryInbox) WithRecord(ctx context.Context, eventID string, eventType string, fn func(context.Context) error) (bool, error) {
	if m.seen[eventID] {
		return false, nil
	}
	if err := fn(ctx); err != nil {
		return false, err
	}
	m.seen[eventID] = true
	return true, nil
}

func testMessage(eventID string) kafka.Message {
	return kafka.Message{
		Topic: "test.topic.v1",
		Key:   []byte(eventID),
		Value: []byte(`{}`),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(eventID)},
			{Key: "event_type", Value: []byte("test.topic.v1")},
		},
	}
}

func TestConsumerRetriesAfterHandlerError(t *testing.T) {
	inbox := &memoryInbox{seen: map[string]bool{}}
	calls := 0
	c := &Consumer{
		logger: slog.Default(),
		inbox:  inbox,
		handler: func(_ context.Context, _ kafka.Message) error {
			calls++
			if calls == 1 {
				return errors.New("downstream unavailable")
			}
			return nil
		},
	}

	msg := testMessage("evt-1")
	c.process(context.Background(), msg)
	if inbox.seen["evt-1"] {
		t.Fatalf("failed handling must not claim the event")
	}

	c.process(context.Background(), msg)
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2 (redelivery retries)", calls)
	}
	if !inbox.seen["evt-1"] {
		t.Fatalf("successful handling should claim the event")
	}
}

func TestConsumerSkipsDuplicates(t *testing.T) {
	inbox := &memoryInbox{seen: map[string]bool{}}
	calls := 0
	c := &Consumer{
		logger: slog.Default(),
		inbox:  inbox,
		handler: func(_ context.Context, _ kafka.Message) error {
			calls++
			return nil
		},
	}

	msg := testMessage("evt-2")
	c.process(context.Background(), msg)
	c.process(context.Background(), msg)

	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1 (duplicate deduped)", calls)
	}
}
