package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/trgnexus/platform/libs/db"
	"github.com/trgnexus/platform/services/portal-service/internal/model"
)

type PortalRepository struct {
	pool *db.Pool
}

func NewPortalRepository(pool *db.Pool) *PortalRepository {
	return &PortalRepository{pool: pool}
}

func (r *PortalRepository) PatientByEmail(ctx context.Context, email string) (model.Patient, error) {
	var p model.Patient
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, COALESCE(phone, '')
		FROM patients
		WHERE email = $1
	`, email).Scan(&p.ID, &p.Name, &p.Email, &p.Phone)
	if err != nil {
		return model.Patient{}, err
	}
	return p, nil
}

// History lists the patient's appointments newest session first.
func (r *PortalRepository) History(ctx context.Context, patientID string) ([]model.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.therapist_id, COALESCE(t.name, ''), a.appointment_date, a.appointment_time, a.status
		FROM appointments a
		LEFT JOIN therapists t ON t.id = a.therapist_id
		WHERE a.patient_id = $1
		ORDER BY a.appointment_date DESC, a.appointment_time DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		if err := rows.Scan(&e.ID, &e.TherapistID, &e.TherapistName, &e.Date, &e.Time, &e.Status); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
