package model

import "time"

// Status is the lifecycle state of an appointment. Values are the
// pt-BR strings the rest of the platform stores and displays.
type Status string

const (
	StatusScheduled      Status = "Agendado"
	StatusCompleted      Status = "Concluído"
	StatusCancelled      Status = "Cancelado"
	StatusPendingPayment Status = "pending_payment"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusPendingPayment:
		return true
	}
	return false
}

// Occupies reports whether an appointment in this status claims its
// slot. Only cancellation frees a slot; an unknown status blocks the
// slot rather than allow a double booking.
func (s Status) Occupies() bool {
	switch s {
	case StatusCancelled:
		return false
	case StatusScheduled, StatusCompleted, StatusPendingPayment:
		return true
	}
	return true
}

// Appointment dates and times are opaque calendar strings, never
// timezone-converted: Date is YYYY-MM-DD, Time is HH:MM (a stored
// HH:MM:SS is truncated on read).
type Appointment struct {
	ID           string
	TherapistID  string
	PatientID    string
	PatientName  string
	PatientEmail string
	Date         string
	Time         string
	Status       Status
	Notes        string
	CancelledAt  *time.Time
	CancelReason string
	CreatedAt    time.Time
}

// WorkingHours is a therapist's bookable range for one weekday
// (0 = Sunday). Hours are whole hour-of-day boundaries; slots cover
// [StartHour, EndHour).
type WorkingHours struct {
	TherapistID string
	Weekday     int
	StartHour   int
	EndHour     int
	Active      bool
}

// DefaultWorkingHours applies when a therapist has no row for a
// weekday, and for unscoped availability queries.
func DefaultWorkingHours() WorkingHours {
	return WorkingHours{StartHour: 8, EndHour: 18, Active: true}
}

// Patient is a therapist's patient record. Booking creates patients
// implicitly (keyed by email); therapists manage the rest of the
// record here.
type Patient struct {
	ID          string    `json:"id"`
	TherapistID string    `json:"therapistId,omitempty"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Status      string    `json:"status,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Slot is one bookable hour in a day's availability response. It is
// computed per request and never persisted.
type Slot struct {
	ID        string `json:"id"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// BlockedSlot is a recurring weekly block a therapist configures in
// settings (lunch break, supervision, etc).
type BlockedSlot struct {
	ID          string `json:"id"`
	TherapistID string `json:"therapistId"`
	Weekday     int    `json:"weekday"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Label       string `json:"label"`
}
