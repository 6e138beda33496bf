package storage

import (
	"context"

	"github.com/trgnexus/platform/services/scheduling-service/internal/model"
)

// AvailabilityStore joins the two repositories into the read surface
// the availability engine consumes.
type AvailabilityStore struct {
	Schedule     *ScheduleRepository
	Appointments *AppointmentRepository
}

func (s AvailabilityStore) WorkingHoursFor(ctx context.Context, therapistID string, weekday int) (model.WorkingHours, bool, error) {
	return s.Schedule.WorkingHoursFor(ctx, therapistID, weekday)
}

func (s AvailabilityStore) AppointmentsOn(ctx context.Context, date, therapistID string) ([]model.Appointment, error) {
	return s.Appointments.AppointmentsOn(ctx, date, therapistID)
}
