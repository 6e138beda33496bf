package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/trgnexus/platform/libs/db"
	"github.com/trgnexus/platform/services/scheduling-service/internal/model"
)

const patientColumns = `id, COALESCE(therapist_id, ''), name, email,
		COALESCE(phone, ''), COALESCE(status, ''), COALESCE(notes, ''), created_at`

type PatientRepository struct {
	pool *db.Pool
}

func NewPatientRepository(pool *db.Pool) *PatientRepository {
	return &PatientRepository{pool: pool}
}

func (r *PatientRepository) List(ctx context.Context, therapistID string) ([]model.Patient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE therapist_id = $1
		ORDER BY created_at DESC
	`, therapistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

func (r *PatientRepository) Create(ctx context.Context, p *model.Patient) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO patients (therapist_id, name, email, phone, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, p.TherapistID, p.Name, p.Email, p.Phone, p.Status, p.Notes).Scan(&id)
	return id, err
}

// Update is therapist-scoped: a therapist can only edit their own
// patient records. Returns the updated row.
func (r *PatientRepository) Update(ctx context.Context, therapistID string, p model.Patient) (model.Patient, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE patients
		SET name = $1, email = $2, phone = $3, status = $4, notes = $5
		WHERE id = $6 AND therapist_id = $7
		RETURNING `+patientColumns+`
	`, p.Name, p.Email, p.Phone, p.Status, p.Notes, p.ID, therapistID)
	return scanPatient(row)
}

func (r *PatientRepository) Delete(ctx context.Context, therapistID, patientID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM patients
		WHERE id = $1 AND therapist_id = $2
	`, patientID, therapistID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Timeline lists the patient's appointments newest first, feeding the
// patient-details view.
func (r *PatientRepository) Timeline(ctx context.Context, patientID string) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY appointment_date DESC, appointment_time DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func scanPatient(row pgx.Row) (model.Patient, error) {
	var p model.Patient
	err := row.Scan(
		&p.ID,
		&p.TherapistID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.Status,
		&p.Notes,
		&p.CreatedAt,
	)
	if err != nil {
		return model.Patient{}, err
	}
	return p, nil
}

func collectPatients(rows pgx.Rows) ([]model.Patient, error) {
	var patients []model.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return patients, nil
}
