package contact

import (
	"context"
	"time"

	"github.com/WailSalutem-Health-Care/recall-service/internal/db"
)

// RepositoryInterface defines contact workflow storage. Methods taking a
// db.DBTX run inside the caller's transaction.
type RepositoryInterface interface {
	MarkContacted(ctx context.Context, q db.DBTX, opportunityID string, at time.Time) error
	SetStatus(ctx context.Context, q db.DBTX, opportunityID string, status Status, at time.Time) (Status, error)
	AppendLog(ctx context.Context, q db.DBTX, entry LogEntry) (string, error)
	ListLog(ctx context.Context, opportunityID string) ([]LogEntry, error)
}

var _ RepositoryInterface = (*Repository)(nil)
