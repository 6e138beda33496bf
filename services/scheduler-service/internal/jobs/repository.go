package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	otelx "github.com/trgnexus/platform/libs/otel"
)

// ReminderTime derives when the reminder fires from the session's
// opaque date and clock strings: 24 hours before the session start.
// Dates carry no timezone, so the arithmetic is done in UTC.
func ReminderTime(sessionDate string, sessionTime string) (time.Time, error) {
	at, err := time.Parse("2006-01-02 15:04", sessionDate+" "+sessionTime)
	if err != nil {
		return time.Time{}, err
	}
	return at.UTC().Add(-24 * time.Hour), nil
}

type Job struct {
	ID             int64
	IdempotencyKey string
	AppointmentID  string
	TherapistID    string
	PatientName    string
	PatientEmail   string
	PatientPhone   string
	SessionDate    string
	SessionTime    string
	RemindAt       time.Time
	Traceparent    string
	Tracestate     string
	Attempts       int
	MaxAttempts    int
	NextRunAt      time.Time
}

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, job Job) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err := tx.Exec(ctx, `
		INSERT INTO reminder_jobs (idempotency_key, appointment_id, therapist_id, patient_name, patient_email, patient_phone, session_date, session_time, remind_at, next_run_at, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, $10, $11)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, job.IdempotencyKey, job.AppointmentID, job.TherapistID, job.PatientName, job.PatientEmail, job.PatientPhone, job.SessionDate, job.SessionTime, job.RemindAt, traceparent, tracestate)
	return err
}

func (r *Repository) FetchDue(ctx context.Context, tx pgx.Tx, limit int) ([]Job, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, idempotency_key, appointment_id, therapist_id, patient_name, patient_email, patient_phone, session_date, session_time, remind_at, traceparent, tracestate, attempts, max_attempts, next_run_at
		FROM reminder_jobs
		WHERE status = 'pending' AND next_run_at <= now()
		ORDER BY next_run_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.IdempotencyKey, &j.AppointmentID, &j.TherapistID, &j.PatientName, &j.PatientEmail, &j.PatientPhone, &j.SessionDate, &j.SessionTime, &j.RemindAt, &j.Traceparent, &j.Tracestate, &j.Attempts, &j.MaxAttempts, &j.NextRunAt); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) MarkProcessed(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'processed', updated_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, tx pgx.Tx, id int64, attempts int, maxAttempts int, nextRunAt time.Time, lastError string) error {
	status := "pending"
	if attempts >= maxAttempts {
		status = "failed"
	}
	_, err := tx.Exec(ctx, `
		UPDATE reminder_jobs
		SET attempts = $2,
		    status = $3,
		    next_run_at = $4,
		    last_error = $5,
		    updated_at = now()
		WHERE id = $1
	`, id, attempts, status, nextRunAt, lastError)
	return err
}

// VoidByAppointment drops pending reminders when the session is
// cancelled. Processed jobs stay as history.
func (r *Repository) VoidByAppointment(ctx context.Context, tx pgx.Tx, appointmentID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'voided', updated_at = now()
		WHERE appointment_id = $1 AND status = 'pending'
	`, appointmentID)
	return err
}
