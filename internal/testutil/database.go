package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/WailSalutem-Health-Care/recall-service/internal/db"
	_ "github.com/lib/pq"
)

const defaultTestDSN = "host=localhost port=5432 user=recall password=recall dbname=recall_test sslmode=disable"

// SetupTestDB connects to the test database named by TEST_DATABASE_DSN and
// applies the schema.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = defaultTestDSN
	}

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := conn.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	if err := db.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	return conn
}

// CleanupTestDB removes all rows written by a test.
// Deleting patients cascades to opportunities, procedures and the contact log.
func CleanupTestDB(t *testing.T, conn *sql.DB) {
	t.Helper()

	if _, err := conn.Exec("TRUNCATE TABLE patients CASCADE"); err != nil {
		t.Logf("Warning: Failed to clean up patients: %v", err)
	}
}

// CountRows returns the row count of a table, failing the test on error.
func CountRows(t *testing.T, conn *sql.DB, table string, where string, args ...interface{}) int {
	t.Helper()

	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}

	var n int
	if err := conn.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}
