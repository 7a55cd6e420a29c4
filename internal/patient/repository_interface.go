package patient

import (
	"context"

	"github.com/WailSalutem-Health-Care/recall-service/internal/db"
)

// RepositoryInterface defines the contract for patient data access
type RepositoryInterface interface {
	Upsert(ctx context.Context, q db.DBTX, rec Record) error
	GetPatient(ctx context.Context, patientID int64) (*Patient, error)
	DeletePatient(ctx context.Context, patientID int64) error
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
