package model

import "time"

// Therapist is a row in the partner directory used for overflow
// referrals.
type Therapist struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Specialty       string  `json:"specialty"`
	Rating          float64 `json:"rating"`
	IsVerified      bool    `json:"isVerified"`
	AcceptsOverflow bool    `json:"acceptsOverflow"`
}

// Referral records one overflow hand-off between two therapists. The
// commission rate is fixed at referral time so later platform changes
// never reprice an agreed referral.
type Referral struct {
	ID                string
	SourceTherapistID string
	TargetTherapistID string
	PatientName       string
	Specialty         string
	CommissionRate    float64
	Status            string
	CreatedAt         time.Time
}

// DefaultCommissionRate is the platform cut on overflow referrals.
const DefaultCommissionRate = 0.10
