package patient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/WailSalutem-Health-Care/recall-service/internal/db"
)

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Upsert inserts the patient or overwrites every mutable field of the
// existing row (last write wins). q is usually the ingestion transaction; the
// row lock taken here is held until that transaction ends.
func (r *Repository) Upsert(ctx context.Context, q db.DBTX, rec Record) error {
	if rec.PatientID <= 0 {
		return ErrMissingPatientID
	}

	query := `
		INSERT INTO patients
		(patient_id, first_name, last_name, birth_date, phone, email, guarantor_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (patient_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			birth_date = EXCLUDED.birth_date,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			guarantor_id = EXCLUDED.guarantor_id,
			updated_at = EXCLUDED.updated_at
	`

	var birthDate interface{}
	if rec.BirthDate != nil {
		birthDate = rec.BirthDate.Format("2006-01-02")
	}
	var guarantor interface{}
	if rec.GuarantorID != nil {
		guarantor = *rec.GuarantorID
	}

	_, err := q.ExecContext(ctx, query,
		rec.PatientID,
		nullIfEmpty(rec.FirstName),
		nullIfEmpty(rec.LastName),
		birthDate,
		nullIfEmpty(rec.Phone),
		nullIfEmpty(rec.Email),
		guarantor,
		r.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert patient %d: %w", rec.PatientID, err)
	}
	return nil
}

func (r *Repository) GetPatient(ctx context.Context, patientID int64) (*Patient, error) {
	query := `
		SELECT patient_id, first_name, last_name, birth_date, phone, email, guarantor_id, created_at, updated_at
		FROM patients
		WHERE patient_id = $1
	`

	var p Patient
	var firstName, lastName, phone, email sql.NullString
	var birthDate sql.NullTime
	var guarantor sql.NullInt64

	err := r.db.QueryRowContext(ctx, query, patientID).Scan(
		&p.PatientID,
		&firstName,
		&lastName,
		&birthDate,
		&phone,
		&email,
		&guarantor,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query patient: %w", err)
	}

	p.FirstName = firstName.String
	p.LastName = lastName.String
	p.Phone = phone.String
	p.Email = email.String
	if birthDate.Valid {
		s := birthDate.Time.Format("2006-01-02")
		p.BirthDate = &s
	}
	if guarantor.Valid {
		g := guarantor.Int64
		p.GuarantorID = &g
	}

	return &p, nil
}

// DeletePatient removes the patient. Opportunities, procedure lines and
// contact log entries go with it through ON DELETE CASCADE.
func (r *Repository) DeletePatient(ctx context.Context, patientID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE patient_id = $1`, patientID)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func nullIfEmpty(s string) interface{} {
	if !hasText(s) {
		return nil
	}
	return s
}

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}
