package opportunity

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/WailSalutem-Health-Care/recall-service/internal/db"
	"github.com/WailSalutem-Health-Care/recall-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/recall-service/internal/patient"
	"github.com/rs/zerolog/log"
)

// PatientUpserter is the part of the patient directory reconciliation needs.
type PatientUpserter interface {
	Upsert(ctx context.Context, q db.DBTX, rec patient.Record) error
}

// MetricsRecorder receives ingestion counts. Optional.
type MetricsRecorder interface {
	RecordSnapshotsIngested(ctx context.Context, count int)
}

// Reconciler merges snapshot batches into the opportunity store.
type Reconciler struct {
	db        *sql.DB
	patients  PatientUpserter
	store     RepositoryInterface
	publisher messaging.PublisherInterface
	metrics   MetricsRecorder
}

func NewReconciler(conn *sql.DB, patients PatientUpserter, store RepositoryInterface, publisher messaging.PublisherInterface) *Reconciler {
	return &Reconciler{db: conn, patients: patients, store: store, publisher: publisher}
}

// WithMetrics attaches a metrics recorder.
func (r *Reconciler) WithMetrics(m MetricsRecorder) *Reconciler {
	r.metrics = m
	return r
}

// Ingest applies the batch in one transaction. Either every snapshot is
// applied or none is; the returned error names the failing snapshot.
func (r *Reconciler) Ingest(ctx context.Context, batch []Snapshot) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	patientIDs := make([]int64, 0, len(batch))
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for i := range batch {
			if err := r.apply(ctx, tx, &batch[i]); err != nil {
				return fmt.Errorf("snapshot %d: %w", i, err)
			}
			patientIDs = append(patientIDs, int64(batch[i].PatientID))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Info().Int("processed", len(batch)).Msg("snapshot batch ingested")

	if r.metrics != nil {
		r.metrics.RecordSnapshotsIngested(ctx, len(batch))
	}
	r.publishIngested(ctx, patientIDs)

	return len(batch), nil
}

func (r *Reconciler) apply(ctx context.Context, tx db.DBTX, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}

	// The upsert locks the patient row until commit, so concurrent batches
	// for the same patient see each other's opportunity row.
	if err := r.patients.Upsert(ctx, tx, s.Patient()); err != nil {
		return err
	}

	summary := s.Summary()

	id, found, err := r.store.FindTarget(ctx, tx, summary.PatientID)
	if err != nil {
		return err
	}

	if found {
		if err := r.store.Update(ctx, tx, id, summary); err != nil {
			return err
		}
	} else {
		if id, err = r.store.Create(ctx, tx, summary); err != nil {
			return err
		}
	}

	return r.store.ReplaceProcedures(ctx, tx, id, s.Procedures)
}

func (r *Reconciler) publishIngested(ctx context.Context, patientIDs []int64) {
	if r.publisher == nil {
		return
	}

	event := messaging.SnapshotIngestedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventSnapshotIngested),
		Data: messaging.SnapshotIngestedData{
			Processed:  len(patientIDs),
			PatientIDs: patientIDs,
		},
	}
	if err := r.publisher.Publish(ctx, messaging.EventSnapshotIngested, event); err != nil {
		log.Warn().Err(err).Msg("failed to publish snapshot.ingested")
	}
}
