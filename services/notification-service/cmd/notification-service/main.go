package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
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
	"github.com/trgnexus/platform/services/notification-service/internal/email"
	"github.com/trgnexus/platform/services/notification-service/internal/push"
	"github.com/trgnexus/platform/services/notification-service/internal/storage"
	"github.com/trgnexus/platform/services/notification-service/internal/templates"
	"github.com/trgnexus/platform/services/notification-service/internal/whatsapp"
)

type appointmentEvent struct {
	AppointmentID string `json:"appointment_id"`
	TherapistID   string `json:"therapist_id"`
	PatientName   string `json:"patient_name"`
	PatientEmail  string `json:"patient_email"`
	PatientPhone  string `json:"patient_phone"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

type referralEvent struct {
	ReferralID        string `json:"referral_id"`
	SourceTherapistID string `json:"source_therapist_id"`
	TargetTherapistID string `json:"target_therapist_id"`
	PatientName       string `json:"patient_name"`
	Specialty         string `json:"specialty"`
	TargetEmail       string `json:"target_email"`
}

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8086")
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
	notificationsRepo := storage.NewRepository(pool)
	outboxRepo := events.NewOutboxRepository(pool)
	outboxPublisher := events.NewPublisher(pool, outboxRepo, logger, events.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	emailSender := email.NewSMTPSender(
		config.String("SMTP_HOST", "mailpit"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "no-reply@trgnexus.local"),
		config.String("SMTP_USERNAME", ""),
		config.String("SMTP_PASSWORD", ""),
	)

	var waSender whatsapp.Sender
	switch strings.ToLower(config.String("WHATSAPP_PROVIDER", "noop")) {
	case "meta":
		waSender = whatsapp.NewMetaSender(
			config.String("WHATSAPP_PHONE_NUMBER_ID", ""),
			config.String("WHATSAPP_ACCESS_TOKEN", ""),
		)
	case "twilio":
		waSender = whatsapp.NewTwilioSender(
			config.String("TWILIO_ACCOUNT_SID", ""),
			config.String("TWILIO_AUTH_TOKEN", ""),
			config.String("TWILIO_WHATSAPP_FROM", ""),
		)
	default:
		waSender = whatsapp.NewNoopSender()
	}

	var pushSender push.Sender
	if relayURL := config.String("PUSH_RELAY_URL", ""); relayURL != "" {
		pushSender = push.NewRelaySender(relayURL, config.String("PUSH_RELAY_TOKEN", ""))
	} else {
		pushSender = push.NewNoopSender()
	}

	recorder := &outcomeRecorder{
		withTx: pool.WithTx,
		log:    notificationsRepo,
		outbox: outboxRepo,
		logger: logger,
	}
	recordAndEmit := recorder.Record

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")

	bookedConsumer := events.NewConsumer(logger, inboxRepo, events.ConsumerConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   events.TopicAppointmentBooked,
	}, func(ctx context.Context, msg kafka.Message) error {
		var evt appointmentEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid booked event", "err", err)
			return nil
		}
		if evt.PatientEmail == "" {
			return nil
		}
		session := templates.Session{PatientName: evt.PatientName, Date: evt.Date, Time: evt.Time}
		sendErr := emailSender.Send(evt.PatientEmail, templates.BookingConfirmationSubject(), templates.BookingConfirmationBody(session))
		if sendErr != nil {
			logger.Error("confirmation email failed", "err", sendErr, "recipient", evt.PatientEmail)
		}
		return recordAndEmit(ctx, storage.Notification{
			AppointmentID: evt.AppointmentID,
			TherapistID:   evt.TherapistID,
			Channel:       "email",
			Recipient:     evt.PatientEmail,
			Payload:       map[string]any{"kind": "booking_confirmation", "date": evt.Date, "time": evt.Time},
		}, "smtp", sendErr)
	})
	go bookedConsumer.Run(ctx)

	reminderConsumer := events.NewConsumer(logger, inboxRepo, events.ConsumerConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   events.TopicReminderDue,
	}, func(ctx context.Context, msg kafka.Message) error {
		var evt appointmentEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid reminder event", "err", err)
			return nil
		}
		if evt.PatientEmail == "" && evt.PatientPhone == "" {
			logger.Error("reminder has no recipient", "appointment_id", evt.AppointmentID)
			return nil
		}
		session := templates.Session{PatientName: evt.PatientName, Date: evt.Date, Time: evt.Time}

		if evt.PatientEmail != "" {
			sendErr := emailSender.Send(evt.PatientEmail, templates.ReminderSubject(), templates.ReminderBody(session))
			if sendErr != nil {
				logger.Error("reminder email failed", "err", sendErr, "recipient", evt.PatientEmail)
			}
			if err := recordAndEmit(ctx, storage.Notification{
				AppointmentID: evt.AppointmentID,
				TherapistID:   evt.TherapistID,
				Channel:       "email",
				Recipient:     evt.PatientEmail,
				Payload:       map[string]any{"kind": "reminder", "date": evt.Date, "time": evt.Time},
			}, "smtp", sendErr); err != nil {
				return err
			}

			subs, err := notificationsRepo.PushSubscriptionsFor(ctx, evt.PatientEmail)
			if err != nil {
				logger.Error("push subscription lookup failed", "err", err)
			}
			for _, sub := range subs {
				sendErr := pushSender.Send(ctx, sub, templates.ReminderSubject(), templates.ReminderText(session))
				if sendErr != nil {
					logger.Error("push send failed", "err", sendErr, "recipient", evt.PatientEmail)
				}
				if err := recordAndEmit(ctx, storage.Notification{
					AppointmentID: evt.AppointmentID,
					TherapistID:   evt.TherapistID,
					Channel:       "push",
					Recipient:     evt.PatientEmail,
					Payload:       map[string]any{"kind": "reminder", "endpoint": sub.Endpoint},
				}, pushSender.ProviderID(), sendErr); err != nil {
					return err
				}
			}
		}

		if evt.PatientPhone != "" {
			sendErr := waSender.Send(ctx, evt.PatientPhone, templates.ReminderText(session))
			if sendErr != nil {
				logger.Error("whatsapp send failed", "err", sendErr, "recipient", evt.PatientPhone)
			}
			if err := recordAndEmit(ctx, storage.Notification{
				AppointmentID: evt.AppointmentID,
				TherapistID:   evt.TherapistID,
				Channel:       "whatsapp",
				Recipient:     evt.PatientPhone,
				Payload:       map[string]any{"kind": "reminder", "date": evt.Date, "time": evt.Time},
			}, waSender.ProviderID(), sendErr); err != nil {
				return err
			}
		}
		return nil
	})
	go reminderConsumer.Run(ctx)

	referralConsumer := events.NewConsumer(logger, inboxRepo, events.ConsumerConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   events.TopicReferralCreated,
	}, func(ctx context.Context, msg kafka.Message) error {
		var evt referralEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid referral event", "err", err)
			return nil
		}
		if evt.TargetEmail == "" {
			logger.Info("referral event without target email, skipping", "referral_id", evt.ReferralID)
			return nil
		}
		sendErr := emailSender.Send(evt.TargetEmail, templates.ReferralSubject(), templates.ReferralBody(evt.PatientName, evt.Specialty))
		if sendErr != nil {
			logger.Error("referral email failed", "err", sendErr, "recipient", evt.TargetEmail)
		}
		return recordAndEmit(ctx, storage.Notification{
			AppointmentID: evt.ReferralID,
			TherapistID:   evt.TargetTherapistID,
			Channel:       "email",
			Recipient:     evt.TargetEmail,
			Payload:       map[string]any{"kind": "referral", "source_therapist_id": evt.SourceTherapistID},
		}, "smtp", sendErr)
	})
	go referralConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.HandleFunc("/notifications/push/subscribe", pushSubscribeHandler(notificationsRepo, logger))

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	handler = otelhttp.NewHandler(handler, "notification")
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
