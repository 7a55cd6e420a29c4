package patient

import (
	"context"
	"errors"
	"testing"

	"github.com/WailSalutem-Health-Care/recall-service/internal/db"
	"github.com/WailSalutem-Health-Care/recall-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/recall-service/internal/testutil"
)

// mockRepository implements RepositoryInterface for testing
type mockRepository struct {
	upsertFunc        func(ctx context.Context, q db.DBTX, rec Record) error
	getPatientFunc    func(ctx context.Context, patientID int64) (*Patient, error)
	deletePatientFunc func(ctx context.Context, patientID int64) error
}

func (m *mockRepository) Upsert(ctx context.Context, q db.DBTX, rec Record) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, q, rec)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) GetPatient(ctx context.Context, patientID int64) (*Patient, error) {
	if m.getPatientFunc != nil {
		return m.getPatientFunc(ctx, patientID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockRepository) DeletePatient(ctx context.Context, patientID int64) error {
	if m.deletePatientFunc != nil {
		return m.deletePatientFunc(ctx, patientID)
	}
	return errors.New("not implemented")
}

func TestGetPatient_Success(t *testing.T) {
	mockRepo := &mockRepository{
		getPatientFunc: func(ctx context.Context, patientID int64) (*Patient, error) {
			return &Patient{PatientID: patientID, FirstName: "Ana", Phone: "555-0100"}, nil
		},
	}

	service := NewService(mockRepo, nil)

	p, err := service.GetPatient(context.Background(), 42)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if p.PatientID != 42 {
		t.Errorf("Expected patient 42, got %d", p.PatientID)
	}
	if !p.HasPhone() {
		t.Error("Expected patient to have a phone")
	}
}

func TestGetPatient_NotFound(t *testing.T) {
	mockRepo := &mockRepository{
		getPatientFunc: func(ctx context.Context, patientID int64) (*Patient, error) {
			return nil, ErrNotFound
		},
	}

	service := NewService(mockRepo, nil)

	_, err := service.GetPatient(context.Background(), 7)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got: %v", err)
	}
}

func TestDeletePatient_PublishesEvent(t *testing.T) {
	deleted := int64(0)
	mockRepo := &mockRepository{
		deletePatientFunc: func(ctx context.Context, patientID int64) error {
			deleted = patientID
			return nil
		},
	}
	publisher := testutil.NewMockPublisher()

	service := NewService(mockRepo, publisher)

	if err := service.DeletePatient(context.Background(), 99); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if deleted != 99 {
		t.Errorf("Expected patient 99 to be deleted, got %d", deleted)
	}

	publisher.AssertEventCount(t, messaging.EventPatientDeleted, 1)
	ev, ok := publisher.LastByKey(messaging.EventPatientDeleted).EventData.(messaging.PatientDeletedEvent)
	if !ok {
		t.Fatal("Expected PatientDeletedEvent payload")
	}
	if ev.Data.PatientID != 99 {
		t.Errorf("Expected event for patient 99, got %d", ev.Data.PatientID)
	}
}

func TestDeletePatient_PublishFailureDoesNotFail(t *testing.T) {
	mockRepo := &mockRepository{
		deletePatientFunc: func(ctx context.Context, patientID int64) error { return nil },
	}
	publisher := testutil.NewMockPublisher()
	publisher.Err = errors.New("broker down")

	service := NewService(mockRepo, publisher)

	if err := service.DeletePatient(context.Background(), 5); err != nil {
		t.Fatalf("Expected delete to succeed despite publish failure, got: %v", err)
	}
}

func TestDeletePatient_InvalidID(t *testing.T) {
	service := NewService(&mockRepository{}, nil)

	if err := service.DeletePatient(context.Background(), 0); !errors.Is(err, ErrMissingPatientID) {
		t.Fatalf("Expected ErrMissingPatientID, got: %v", err)
	}
}
