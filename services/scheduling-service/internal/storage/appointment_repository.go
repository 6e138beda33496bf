package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/trgnexus/platform/libs/db"
	"github.com/trgnexus/platform/services/scheduling-service/internal/model"
)

const apptColumns = `id, therapist_id, patient_id, patient_name, patient_email,
		appointment_date, appointment_time, status, COALESCE(notes, ''),
		cancelled_at, COALESCE(cancellation_reason, ''), created_at`

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// UpsertPatient keys patients on email, the identity the public booking
// form collects. Returns the patient id.
func (r *AppointmentRepository) UpsertPatient(ctx context.Context, tx pgx.Tx, name, email, phone string) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO patients (name, email, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name,
			phone = CASE WHEN EXCLUDED.phone <> '' THEN EXCLUDED.phone ELSE patients.phone END
		RETURNING id
	`, name, email, phone).Scan(&id)
	return id, err
}

// SlotTaken re-checks occupancy inside the booking transaction. Rows
// for the slot are locked so two concurrent bookings serialize here.
func (r *AppointmentRepository) SlotTaken(ctx context.Context, tx pgx.Tx, therapistID, date, timeHHMM string) (bool, error) {
	rows, err := tx.Query(ctx, `
		SELECT id FROM appointments
		WHERE therapist_id = $1
			AND appointment_date = $2
			AND substr(appointment_time, 1, 5) = $3
			AND status <> 'Cancelado'
		FOR UPDATE
	`, therapistID, date, timeHHMM)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	taken := rows.Next()
	return taken, rows.Err()
}

func (r *AppointmentRepository) Create(ctx context.Context, tx pgx.Tx, appt *model.Appointment) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(therapist_id, patient_id, patient_name, patient_email, appointment_date, appointment_time, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, appt.TherapistID, appt.PatientID, appt.PatientName, appt.PatientEmail,
		appt.Date, appt.Time, string(appt.Status), appt.Notes).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, therapistID, appointmentID string) (model.Appointment, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1 AND therapist_id = $2
		FOR UPDATE
	`, appointmentID, therapistID)
	return scanAppointment(row)
}

func (r *AppointmentRepository) Cancel(ctx context.Context, tx pgx.Tx, therapistID, appointmentID, reason string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'Cancelado',
			cancelled_at = now(),
			cancellation_reason = $3
		WHERE id = $1 AND therapist_id = $2
		RETURNING cancelled_at
	`, appointmentID, therapistID, reason).Scan(&cancelledAt)
	return cancelledAt, err
}

// ConfirmPayment flips a pending_payment appointment to scheduled once
// billing reports the payment succeeded.
func (r *AppointmentRepository) ConfirmPayment(ctx context.Context, tx pgx.Tx, appointmentID string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = 'Agendado'
		WHERE id = $1 AND status = 'pending_payment'
	`, appointmentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *AppointmentRepository) ListByTherapist(ctx context.Context, therapistID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE therapist_id = $1
		ORDER BY appointment_date DESC, appointment_time DESC
		LIMIT $2
	`, therapistID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// AppointmentsOn feeds the availability engine. Cancelled rows are
// excluded here; the engine filters by status again on its own side.
func (r *AppointmentRepository) AppointmentsOn(ctx context.Context, date, therapistID string) ([]model.Appointment, error) {
	query := `
		SELECT ` + apptColumns + `
		FROM appointments
		WHERE appointment_date = $1 AND status <> 'Cancelado'
	`
	args := []any{date}
	if therapistID != "" {
		query += ` AND therapist_id = $2`
		args = append(args, therapistID)
	}
	query += ` ORDER BY appointment_time ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var status string
	var cancelledAt *time.Time
	err := row.Scan(
		&appt.ID,
		&appt.TherapistID,
		&appt.PatientID,
		&appt.PatientName,
		&appt.PatientEmail,
		&appt.Date,
		&appt.Time,
		&status,
		&appt.Notes,
		&cancelledAt,
		&appt.CancelReason,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.Status(status)
	appt.CancelledAt = cancelledAt
	return appt, nil
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// IsConflict matches the partial unique index on
// (therapist_id, appointment_date, appointment_time) over non-cancelled
// rows, the backstop behind SlotTaken.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
