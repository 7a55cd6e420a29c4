package opportunity

import (
	"context"
	"time"

	"github.com/WailSalutem-Health-Care/recall-service/internal/db"
)

// RepositoryInterface defines the opportunity store operations. Methods
// taking a db.DBTX run inside the caller's transaction.
type RepositoryInterface interface {
	FindTarget(ctx context.Context, q db.DBTX, patientID int64) (string, bool, error)
	Create(ctx context.Context, q db.DBTX, s Summary) (string, error)
	Update(ctx context.Context, q db.DBTX, id string, s Summary) error
	ReplaceProcedures(ctx context.Context, q db.DBTX, id string, lines []Line) error

	List(ctx context.Context, f ListFilter, today time.Time) ([]Opportunity, error)
	Get(ctx context.Context, id string, today time.Time) (*Opportunity, error)
	ListProcedures(ctx context.Context, id string) ([]Procedure, error)
}

var _ RepositoryInterface = (*Repository)(nil)
