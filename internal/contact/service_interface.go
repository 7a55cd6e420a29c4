package contact

import "context"

// ServiceInterface defines the contact workflow operations behind the handlers
type ServiceInterface interface {
	Dispatch(ctx context.Context, opportunityID string, req DispatchRequest) (*DispatchResult, error)
	RecordOutcome(ctx context.Context, o Outcome) (string, error)
	OverrideStatus(ctx context.Context, opportunityID, status string) (*StatusChange, error)
	ListLog(ctx context.Context, opportunityID string) ([]LogEntry, error)
}

var _ ServiceInterface = (*Service)(nil)
