// Package availability computes the bookable slot list for one
// calendar day. It only reads; bookings are written elsewhere, and the
// booking transaction re-checks occupancy itself.
package availability

import (
	"context"
	"fmt"

	"github.com/trgnexus/platform/services/scheduling-service/internal/model"
)

// Store is the read surface the engine needs. The bool result of
// WorkingHoursFor reports whether a configured row exists; when it
// does not, the engine falls back to the platform default.
type Store interface {
	WorkingHoursFor(ctx context.Context, therapistID string, weekday int) (model.WorkingHours, bool, error)
	AppointmentsOn(ctx context.Context, date string, therapistID string) ([]model.Appointment, error)
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// DaySlots returns one slot per whole hour of the therapist's working
// range on the given date, each flagged available unless a
// non-cancelled appointment sits at exactly that HH:MM.
//
// therapistID may be empty: the default working hours apply and
// occupancy is computed across all therapists.
func (e *Engine) DaySlots(ctx context.Context, date, therapistID string) ([]model.Slot, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	policy := model.DefaultWorkingHours()
	if therapistID != "" {
		configured, ok, err := e.store.WorkingHoursFor(ctx, therapistID, day.Weekday())
		if err != nil {
			return nil, fmt.Errorf("working hours lookup: %w", err)
		}
		if ok {
			policy = configured
		}
	}
	if !policy.Active {
		return []model.Slot{}, nil
	}

	start, end := policy.StartHour, policy.EndHour
	if start < 0 {
		start = 0
	}
	if end > 24 {
		end = 24
	}
	// A malformed range produces no slots rather than an error so the
	// booking UI keeps working.
	if start >= end {
		return []model.Slot{}, nil
	}

	appts, err := e.store.AppointmentsOn(ctx, date, therapistID)
	if err != nil {
		return nil, fmt.Errorf("occupancy lookup: %w", err)
	}

	occupied := make(map[string]struct{}, len(appts))
	for _, a := range appts {
		if !a.Status.Occupies() {
			continue
		}
		occupied[TruncateTime(a.Time)] = struct{}{}
	}

	slots := make([]model.Slot, 0, end-start)
	for h := start; h < end; h++ {
		t := fmt.Sprintf("%02d:00", h)
		_, busy := occupied[t]
		slots = append(slots, model.Slot{ID: t, Time: t, Available: !busy})
	}
	return slots, nil
}

// TruncateTime drops seconds from a stored HH:MM:SS time string.
func TruncateTime(t string) string {
	if len(t) > 5 {
		return t[:5]
	}
	return t
}
