package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/trgnexus/platform/libs/kafkax"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Inbox claims an event id and runs the processing function in the
// same transaction, so the claim only sticks when processing succeeds.
type Inbox interface {
	WithRecord(ctx context.Context, eventID string, eventType string, fn func(context.Context) error) (bool, error)
}

// Consumer reads one topic in a consumer group and hands each message
// to the handler through the inbox. A handler error rolls the inbox
// claim back, so the event is retried on redelivery instead of being
// deduplicated away.
type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	inbox   Inbox
	handler Handler
}

type ConsumerConfig struct {
	Brokers string
	GroupID string
	Topic   string
}

func NewConsumer(logger *slog.Logger, inbox Inbox, cfg ConsumerConfig, handler Handler) *Consumer {
	brokers := kafkax.SplitBrokers(cfg.Brokers)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:  reader,
		logger:  logger,
		inbox:   inbox,
		handler: handler,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			time.Sleep(1 * time.Second)
			continue
		}
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)

	fresh, err := c.inbox.WithRecord(ctxSpan, meta.EventID, meta.EventType, func(ctx context.Context) error {
		return c.handler(ctx, msg)
	})
	if err != nil {
		c.logger.Error("event processing failed", "err", err, "event_id", meta.EventID, "event_type", meta.EventType)
		span.RecordError(err)
		return
	}
	if !fresh {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
	}
}
