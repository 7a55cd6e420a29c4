package patient

import "context"

// ServiceInterface defines the contract for patient business logic operations
type ServiceInterface interface {
	GetPatient(ctx context.Context, patientID int64) (*Patient, error)
	DeletePatient(ctx context.Context, patientID int64) error
}
