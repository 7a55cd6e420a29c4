package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Event routing keys as constants
const (
	EventSnapshotIngested         = "snapshot.ingested"
	EventOpportunityContacted     = "opportunity.contacted"
	EventOpportunityStatusChanged = "opportunity.status_changed"
	EventOpportunityOutcome       = "opportunity.outcome_recorded"
	EventPatientDeleted           = "patient.deleted"
)

const ServiceName = "recall-service"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// SnapshotIngestedEvent is published after a batch commits.
type SnapshotIngestedEvent struct {
	BaseEvent
	Data SnapshotIngestedData `json:"data"`
}

type SnapshotIngestedData struct {
	Processed  int     `json:"processed"`
	PatientIDs []int64 `json:"patient_ids"`
}

// OpportunityContactedEvent is published after every contact dispatch,
// whether or not delivery succeeded.
type OpportunityContactedEvent struct {
	BaseEvent
	Data OpportunityContactedData `json:"data"`
}

type OpportunityContactedData struct {
	OpportunityID string    `json:"opportunity_id"`
	PatientID     int64     `json:"patient_id"`
	Channel       string    `json:"channel"`
	TemplateKey   string    `json:"template_key"`
	Result        string    `json:"result"` // "sent" or "failed"
	ContactedAt   time.Time `json:"contacted_at"`
}

// OpportunityStatusChangedEvent represents a status override or a status
// carried by an outcome callback.
type OpportunityStatusChangedEvent struct {
	BaseEvent
	Data OpportunityStatusChangedData `json:"data"`
}

type OpportunityStatusChangedData struct {
	OpportunityID string    `json:"opportunity_id"`
	OldStatus     string    `json:"old_status,omitempty"`
	NewStatus     string    `json:"new_status"`
	Source        string    `json:"source"` // "operator" or "callback"
	ChangedAt     time.Time `json:"changed_at"`
}

// OpportunityOutcomeEvent mirrors an outcome callback once it is logged.
type OpportunityOutcomeEvent struct {
	BaseEvent
	Data OpportunityOutcomeData `json:"data"`
}

type OpportunityOutcomeData struct {
	OpportunityID string `json:"opportunity_id"`
	Result        string `json:"result"`
	VendorMsgID   string `json:"vendor_msg_id,omitempty"`
	Status        string `json:"status,omitempty"`
}

// PatientDeletedEvent represents a patient deletion event
type PatientDeletedEvent struct {
	BaseEvent
	Data PatientDeletedData `json:"data"`
}

type PatientDeletedData struct {
	PatientID int64     `json:"patient_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: ServiceName,
	}
}
