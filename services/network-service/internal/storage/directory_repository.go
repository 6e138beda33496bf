package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/trgnexus/platform/libs/db"
	"github.com/trgnexus/platform/services/network-service/internal/model"
)

type DirectoryRepository struct {
	pool *db.Pool
}

func NewDirectoryRepository(pool *db.Pool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

func (r *DirectoryRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Candidates returns verified overflow-accepting therapists other than
// the source, optionally narrowed to a specialty. Ordering is rating
// descending with registration order breaking ties, so ranking stays
// deterministic across calls.
func (r *DirectoryRepository) Candidates(ctx context.Context, sourceTherapistID, specialty string) ([]model.Therapist, error) {
	query := `
		SELECT id, name, email, COALESCE(specialty, ''), rating, is_verified, accepts_overflow
		FROM therapists
		WHERE is_verified = TRUE
			AND accepts_overflow = TRUE
			AND id <> $1
	`
	args := []any{sourceTherapistID}
	if specialty != "" {
		query += ` AND specialty = $2`
		args = append(args, specialty)
	}
	query += ` ORDER BY rating DESC, created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Therapist
	for rows.Next() {
		var t model.Therapist
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &t.Specialty, &t.Rating, &t.IsVerified, &t.AcceptsOverflow); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// PublicTherapists lists verified therapists for the public booking
// wizard. Email stays internal; the handler decides which fields leave
// the service.
func (r *DirectoryRepository) PublicTherapists(ctx context.Context) ([]model.Therapist, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, COALESCE(specialty, ''), rating, is_verified, accepts_overflow
		FROM therapists
		WHERE is_verified = TRUE
		ORDER BY rating DESC, created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Therapist
	for rows.Next() {
		var t model.Therapist
		if err := rows.Scan(&t.ID, &t.Name, &t.Specialty, &t.Rating, &t.IsVerified, &t.AcceptsOverflow); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// TherapistEmail resolves a therapist's contact email, reporting
// whether the therapist exists at all.
func (r *DirectoryRepository) TherapistEmail(ctx context.Context, tx pgx.Tx, id string) (string, bool, error) {
	var email string
	err := tx.QueryRow(ctx, `SELECT email FROM therapists WHERE id = $1`, id).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return email, true, nil
}

func (r *DirectoryRepository) CreateReferral(ctx context.Context, tx pgx.Tx, ref *model.Referral) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO referrals
			(source_therapist_id, target_therapist_id, patient_name, specialty, commission_rate, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, ref.SourceTherapistID, ref.TargetTherapistID, ref.PatientName, ref.Specialty,
		ref.CommissionRate, ref.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
