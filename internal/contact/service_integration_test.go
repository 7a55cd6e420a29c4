//go:build integration

package contact

import (
	"context"
	"database/sql"
	"testing"

	"github.com/WailSalutem-Health-Care/recall-service/internal/notify"
	"github.com/WailSalutem-Health-Care/recall-service/internal/opportunity"
	"github.com/WailSalutem-Health-Care/recall-service/internal/patient"
	"github.com/WailSalutem-Health-Care/recall-service/internal/schedlink"
	"github.com/WailSalutem-Health-Care/recall-service/internal/testutil"
)

func seedOpportunity(t *testing.T, conn *sql.DB, patientID int64) (string, *opportunity.Service) {
	t.Helper()

	store := opportunity.NewRepository(conn)
	reconciler := opportunity.NewReconciler(conn, patient.NewRepository(conn), store, nil)
	if _, err := reconciler.Ingest(context.Background(), []opportunity.Snapshot{{
		PatientID:  opportunity.ExternalID(patientID),
		FirstName:  "Ana",
		Phone:      "555-0100",
		Procedures: []opportunity.Line{{Code: "D2740", Fee: 120000}},
	}}); err != nil {
		t.Fatalf("seed ingest failed: %v", err)
	}

	id, _, err := store.FindTarget(context.Background(), conn, patientID)
	if err != nil {
		t.Fatalf("FindTarget failed: %v", err)
	}
	return id, opportunity.NewService(store, reconciler, nil)
}

func TestDispatch_AlwaysTransitions_Integration(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	defer testutil.CleanupTestDB(t, conn)

	id, opps := seedOpportunity(t, conn, 9001)

	// Port 1 refuses connections, so every delivery fails.
	sender := notify.NewClient("http://127.0.0.1:1/messages", "", 0)
	service := NewService(conn, NewRepository(conn), opps, schedlink.NewSigner("https://book.example", "secret"), sender, nil)

	res, err := service.Dispatch(context.Background(), id, DispatchRequest{Channel: "sms", TemplateKey: "recall"})
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if res.Success {
		t.Fatal("expected delivery to fail")
	}

	if n := testutil.CountRows(t, conn, "opportunities", "id = $1 AND status = 'contacted' AND last_contacted_at IS NOT NULL", id); n != 1 {
		t.Error("expected opportunity to be contacted with last_contacted_at set")
	}
	if n := testutil.CountRows(t, conn, "contact_log", "opportunity_id = $1 AND result = 'failed'", id); n != 1 {
		t.Errorf("expected one failed log entry, got %d", n)
	}
}

func TestRecordOutcome_StatusOptional_Integration(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	defer testutil.CleanupTestDB(t, conn)

	id, opps := seedOpportunity(t, conn, 9002)
	service := NewService(conn, NewRepository(conn), opps, nil, nil, nil)
	ctx := context.Background()

	if _, err := service.OverrideStatus(ctx, id, "Callback Requested"); err != nil {
		t.Fatalf("OverrideStatus failed: %v", err)
	}

	if _, err := service.RecordOutcome(ctx, Outcome{OpportunityID: id, Result: "delivered"}); err != nil {
		t.Fatalf("RecordOutcome failed: %v", err)
	}
	if n := testutil.CountRows(t, conn, "opportunities", "id = $1 AND status = 'Callback Requested'", id); n != 1 {
		t.Error("expected status to be left byte-for-byte unchanged")
	}

	if _, err := service.RecordOutcome(ctx, Outcome{OpportunityID: id, Status: "scheduled"}); err != nil {
		t.Fatalf("RecordOutcome with status failed: %v", err)
	}
	if n := testutil.CountRows(t, conn, "opportunities", "id = $1 AND status = 'scheduled'", id); n != 1 {
		t.Error("expected status to be updated by the callback")
	}

	entries, err := service.ListLog(ctx, id)
	if err != nil {
		t.Fatalf("ListLog failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}

	_, err = service.RecordOutcome(ctx, Outcome{OpportunityID: "00000000-0000-4000-8000-000000000000", Result: "delivered"})
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound for unknown opportunity, got %v", err)
	}
}
