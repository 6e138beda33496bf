package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/trgnexus/platform/libs/config"
	"github.com/trgnexus/platform/libs/db"
	"github.com/trgnexus/platform/libs/events"
	"github.com/trgnexus/platform/libs/httpx"
	"github.com/trgnexus/platform/libs/kafkax"
	otelx "github.com/trgnexus/platform/libs/otel"
	"github.com/trgnexus/platform/libs/runtime"
	"github.com/trgnexus/platform/services/scheduler-service/internal/jobs"
)

type bookedEvent struct {
	AppointmentID string `json:"appointment_id"`
	TherapistID   string `json:"therapist_id"`
	PatientName   string `json:"patient_name"`
	PatientEmail  string `json:"patient_email"`
	PatientPhone  string `json:"patient_phone"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

type cancelledEvent struct {
	AppointmentID string `json:"appointment_id"`
}

func main() {
	service := config.String("SERVICE_NAME", "scheduler-service")
	port, err := config.Port("PORT", "8087")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	inboxRepo := events.NewInboxRepository(pool)
	jobRepo := jobs.NewRepository()
	outboxRepo := events.NewOutboxRepository(pool)

	outboxPublisher := events.NewPublisher(pool, outboxRepo, logger, events.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	jobWorker := jobs.NewWorker(pool, jobRepo, outboxRepo, logger, jobs.WorkerConfig{
		Interval:  config.Duration("SCHEDULER_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("SCHEDULER_BATCH_SIZE", 50),
		Backoff:   config.Duration("SCHEDULER_BACKOFF", time.Minute),
	})
	go jobWorker.Run(ctx)

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "scheduler-service")

	bookedConsumer := events.NewConsumer(logger, inboxRepo, events.ConsumerConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   events.TopicAppointmentBooked,
	}, func(ctx context.Context, msg kafka.Message) error {
		var evt bookedEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid booked event", "err", err)
			return nil
		}
		if evt.AppointmentID == "" || evt.Date == "" || evt.Time == "" {
			logger.Error("missing booked event fields", "appointment_id", evt.AppointmentID)
			return nil
		}
		remindAt, err := jobs.ReminderTime(evt.Date, evt.Time)
		if err != nil {
			logger.Error("invalid session timestamp", "err", err, "appointment_id", evt.AppointmentID)
			return nil
		}
		// Sessions booked inside the reminder window fire immediately.
		if now := time.Now().UTC(); remindAt.Before(now) {
			remindAt = now
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := jobRepo.Insert(ctx, tx, jobs.Job{
			IdempotencyKey: evt.AppointmentID + "|" + evt.Date + "|" + evt.Time,
			AppointmentID:  evt.AppointmentID,
			TherapistID:    evt.TherapistID,
			PatientName:    evt.PatientName,
			PatientEmail:   evt.PatientEmail,
			PatientPhone:   evt.PatientPhone,
			SessionDate:    evt.Date,
			SessionTime:    evt.Time,
			RemindAt:       remindAt,
		}); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	go bookedConsumer.Run(ctx)

	cancelledConsumer := events.NewConsumer(logger, inboxRepo, events.ConsumerConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   events.TopicAppointmentCancelled,
	}, func(ctx context.Context, msg kafka.Message) error {
		var evt cancelledEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid cancelled event", "err", err)
			return nil
		}
		if evt.AppointmentID == "" {
			return nil
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := jobRepo.VoidByAppointment(ctx, tx, evt.AppointmentID); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	go cancelledConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "scheduler")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
