package model

// Patient is the portal's view of a patient record. Patients have no
// password; the portal authenticates by email lookup only.
type Patient struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// HistoryEntry is one appointment in the patient's session history.
// Date and Time are the opaque strings the scheduling side stores.
type HistoryEntry struct {
	ID            string `json:"id"`
	TherapistID   string `json:"therapistId"`
	TherapistName string `json:"therapistName,omitempty"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Status        string `json:"status"`
}
