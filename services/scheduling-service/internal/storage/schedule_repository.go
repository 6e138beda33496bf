package storage

import (
	"context"

	"github.com/trgnexus/platform/libs/db"
	"github.com/trgnexus/platform/services/scheduling-service/internal/model"
)

// ScheduleRepository holds the therapist's settings tables: per-weekday
// working hours and recurring blocked slots.
type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func (r *ScheduleRepository) WorkingHoursFor(ctx context.Context, therapistID string, weekday int) (model.WorkingHours, bool, error) {
	var wh model.WorkingHours
	err := r.pool.QueryRow(ctx, `
		SELECT therapist_id, weekday, start_hour, end_hour, is_active
		FROM therapist_working_hours
		WHERE therapist_id = $1 AND weekday = $2
	`, therapistID, weekday).Scan(&wh.TherapistID, &wh.Weekday, &wh.StartHour, &wh.EndHour, &wh.Active)
	if err != nil {
		if IsNotFound(err) {
			return model.WorkingHours{}, false, nil
		}
		return model.WorkingHours{}, false, err
	}
	return wh, true, nil
}

func (r *ScheduleRepository) ListWorkingHours(ctx context.Context, therapistID string) ([]model.WorkingHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT therapist_id, weekday, start_hour, end_hour, is_active
		FROM therapist_working_hours
		WHERE therapist_id = $1
		ORDER BY weekday
	`, therapistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WorkingHours
	for rows.Next() {
		var wh model.WorkingHours
		if err := rows.Scan(&wh.TherapistID, &wh.Weekday, &wh.StartHour, &wh.EndHour, &wh.Active); err != nil {
			return nil, err
		}
		out = append(out, wh)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *ScheduleRepository) UpsertWorkingHours(ctx context.Context, wh model.WorkingHours) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO therapist_working_hours (therapist_id, weekday, start_hour, end_hour, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (therapist_id, weekday) DO UPDATE
		SET start_hour = EXCLUDED.start_hour,
			end_hour = EXCLUDED.end_hour,
			is_active = EXCLUDED.is_active,
			updated_at = now()
	`, wh.TherapistID, wh.Weekday, wh.StartHour, wh.EndHour, wh.Active)
	return err
}

func (r *ScheduleRepository) ListBlockedSlots(ctx context.Context, therapistID string) ([]model.BlockedSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, therapist_id, weekday, start_time, end_time, COALESCE(label, '')
		FROM blocked_slots
		WHERE therapist_id = $1
		ORDER BY weekday, start_time
	`, therapistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BlockedSlot
	for rows.Next() {
		var bs model.BlockedSlot
		if err := rows.Scan(&bs.ID, &bs.TherapistID, &bs.Weekday, &bs.StartTime, &bs.EndTime, &bs.Label); err != nil {
			return nil, err
		}
		out = append(out, bs)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *ScheduleRepository) CreateBlockedSlot(ctx context.Context, bs model.BlockedSlot) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO blocked_slots (therapist_id, weekday, start_time, end_time, label)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, bs.TherapistID, bs.Weekday, bs.StartTime, bs.EndTime, bs.Label).Scan(&id)
	return id, err
}

func (r *ScheduleRepository) DeleteBlockedSlot(ctx context.Context, therapistID, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM blocked_slots
		WHERE id = $1 AND therapist_id = $2
	`, id, therapistID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
