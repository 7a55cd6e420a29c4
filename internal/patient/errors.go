package patient

import "errors"

var (
	ErrNotFound         = errors.New("patient not found")
	ErrMissingPatientID = errors.New("patient_id is required")
)
