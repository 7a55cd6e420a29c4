//go:build integration

package patient

import (
	"context"
	"testing"

	"github.com/WailSalutem-Health-Care/recall-service/internal/testutil"
)

// TestRepositoryUpsert_LastWriteWins_Integration checks that a second upsert
// overwrites every field, including clearing ones the new snapshot omits.
func TestRepositoryUpsert_LastWriteWins_Integration(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	defer testutil.CleanupTestDB(t, conn)

	repo := NewRepository(conn)
	ctx := context.Background()

	guarantor := int64(9999) // not ingested, no FK
	if err := repo.Upsert(ctx, conn, Record{
		PatientID:   1001,
		FirstName:   "John",
		LastName:    "Doe",
		Phone:       "555-0101",
		Email:       "john@example.com",
		GuarantorID: &guarantor,
	}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	if err := repo.Upsert(ctx, conn, Record{
		PatientID: 1001,
		FirstName: "Johnny",
		LastName:  "Doe",
	}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	if n := testutil.CountRows(t, conn, "patients", "patient_id = $1", 1001); n != 1 {
		t.Fatalf("expected one patient row, got %d", n)
	}

	p, err := repo.GetPatient(ctx, 1001)
	if err != nil {
		t.Fatalf("GetPatient failed: %v", err)
	}
	if p.FirstName != "Johnny" {
		t.Errorf("expected first name Johnny, got %s", p.FirstName)
	}
	if p.Phone != "" || p.Email != "" {
		t.Errorf("expected phone and email to be cleared, got %q %q", p.Phone, p.Email)
	}
	if p.GuarantorID != nil {
		t.Errorf("expected guarantor to be cleared, got %d", *p.GuarantorID)
	}
}

func TestRepositoryDeletePatient_Integration(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()
	defer testutil.CleanupTestDB(t, conn)

	repo := NewRepository(conn)
	ctx := context.Background()

	if err := repo.Upsert(ctx, conn, Record{PatientID: 2002, FirstName: "Del"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if err := repo.DeletePatient(ctx, 2002); err != nil {
		t.Fatalf("DeletePatient failed: %v", err)
	}

	if _, err := repo.GetPatient(ctx, 2002); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
