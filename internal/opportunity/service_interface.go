package opportunity

import "context"

// ServiceInterface defines the operations behind the opportunity handlers
type ServiceInterface interface {
	Ingest(ctx context.Context, batch []Snapshot) (int, error)
	List(ctx context.Context, f ListFilter) ([]Opportunity, error)
	Lookup(ctx context.Context, id string) (*Opportunity, error)
	Detail(ctx context.Context, id string) (*Detail, error)
}

var _ ServiceInterface = (*Service)(nil)
