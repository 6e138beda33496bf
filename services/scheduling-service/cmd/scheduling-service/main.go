package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/trgnexus/platform/libs/config"
	"github.com/trgnexus/platform/libs/db"
	"github.com/trgnexus/platform/libs/events"
	"github.com/trgnexus/platform/libs/httpx"
	"github.com/trgnexus/platform/libs/kafkax"
	otelx "github.com/trgnexus/platform/libs/otel"
	"github.com/trgnexus/platform/libs/runtime"
	"github.com/trgnexus/platform/services/scheduling-service/internal/availability"
	"github.com/trgnexus/platform/services/scheduling-service/internal/handlers"
	"github.com/trgnexus/platform/services/scheduling-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "scheduling-service")
	port, err := config.Port("PORT", "8081")
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

	apptRepo := storage.NewAppointmentRepository(pool)
	scheduleRepo := storage.NewScheduleRepository(pool)
	outboxRepo := events.NewOutboxRepository(pool)

	engine := availability.NewEngine(storage.AvailabilityStore{
		Schedule:     scheduleRepo,
		Appointments: apptRepo,
	})

	outboxPublisher := events.NewPublisher(pool, outboxRepo, logger, events.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	// Payment confirmations flip pending_payment bookings to scheduled.
	inboxRepo := events.NewInboxRepository(pool)
	paymentConsumer := events.NewConsumer(logger, inboxRepo, events.ConsumerConfig{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "scheduling-service"),
		Topic:   events.TopicPaymentSucceeded,
	}, func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			AppointmentID string `json:"appointment_id"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid payment event payload", "err", err)
			return nil
		}
		if payload.AppointmentID == "" {
			logger.Error("payment event missing appointment_id")
			return nil
		}
		return pool.WithTx(ctx, func(tx pgx.Tx) error {
			confirmed, err := apptRepo.ConfirmPayment(ctx, tx, payload.AppointmentID)
			if err != nil {
				return err
			}
			if !confirmed {
				logger.Info("payment event matched no pending appointment", "appointment_id", payload.AppointmentID)
			}
			return nil
		})
	})
	go paymentConsumer.Run(ctx)

	availabilityHandler := handlers.NewAvailabilityHandler(engine, logger)
	bookingHandler := handlers.NewBookingHandler(apptRepo, outboxRepo, logger)
	settingsHandler := handlers.NewSettingsHandler(scheduleRepo, logger)
	patientsHandler := handlers.NewPatientsHandler(
		storage.NewPatientRepository(pool), logger, config.Int("SESSION_PRICE", 250))

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/availability", availabilityHandler.Day)
	mux.HandleFunc("/booking", bookingHandler.Create)
	mux.HandleFunc("/appointments", bookingHandler.List)
	mux.HandleFunc("/appointments/cancel", bookingHandler.Cancel)
	mux.HandleFunc("/settings/working-hours", settingsHandler.WorkingHours)
	mux.HandleFunc("/settings/blocked-slots", settingsHandler.BlockedSlots)
	mux.HandleFunc("/patients", patientsHandler.Collection)
	mux.HandleFunc("/patients/details", patientsHandler.Details)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
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
