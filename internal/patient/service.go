package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/WailSalutem-Health-Care/recall-service/internal/messaging"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo      RepositoryInterface
	publisher messaging.PublisherInterface
}

func NewService(repo RepositoryInterface, publisher messaging.PublisherInterface) *Service {
	return &Service{repo: repo, publisher: publisher}
}

func (s *Service) GetPatient(ctx context.Context, patientID int64) (*Patient, error) {
	p, err := s.repo.GetPatient(ctx, patientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

// DeletePatient removes the patient together with every opportunity,
// procedure line and contact log entry it owns.
func (s *Service) DeletePatient(ctx context.Context, patientID int64) error {
	if patientID <= 0 {
		return ErrMissingPatientID
	}
	if err := s.repo.DeletePatient(ctx, patientID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	if s.publisher != nil {
		event := messaging.PatientDeletedEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventPatientDeleted),
			Data: messaging.PatientDeletedData{
				PatientID: patientID,
				DeletedAt: time.Now().UTC(),
			},
		}
		if err := s.publisher.Publish(ctx, messaging.EventPatientDeleted, event); err != nil {
			log.Warn().Err(err).Int64("patient_id", patientID).Msg("failed to publish patient.deleted")
		}
	}
	return nil
}
