package patient

import "time"

// Record is the identity and contact data carried by an ingested snapshot.
// Every field is written on upsert; empty strings are stored as NULL.
type Record struct {
	PatientID   int64
	FirstName   string
	LastName    string
	BirthDate   *time.Time
	Phone       string
	Email       string
	GuarantorID *int64
}

// Patient represents the patient data returned to clients
type Patient struct {
	PatientID   int64     `json:"patient_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	BirthDate   *string   `json:"birth_date,omitempty"` // Format: YYYY-MM-DD
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	GuarantorID *int64    `json:"guarantor_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasPhone reports whether the patient can be reached by phone.
func (p Patient) HasPhone() bool {
	return hasText(p.Phone)
}
