package contact

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Status is the lifecycle state of an opportunity. The known values below
// drive the built-in workflow; any other value reported by an operator or a
// vendor callback is kept as an external status.
type Status string

const (
	StatusNew         Status = "new"
	StatusContacted   Status = "contacted"
	StatusScheduled   Status = "scheduled"
	StatusLost        Status = "lost"
	StatusDeclined    Status = "declined"
	StatusUnreachable Status = "unreachable"
)

const maxStatusLen = 64

// IsKnown reports whether s is one of the built-in states.
func (s Status) IsKnown() bool {
	switch s {
	case StatusNew, StatusContacted, StatusScheduled, StatusLost, StatusDeclined, StatusUnreachable:
		return true
	}
	return false
}

// Kind is "known" or "external".
func (s Status) Kind() string {
	if s.IsKnown() {
		return "known"
	}
	return "external"
}

// ParseStatus validates a caller supplied status. Blank input yields
// StatusNew. Unknown values are accepted.
func ParseStatus(raw string) (Status, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return StatusNew, nil
	}
	if len(s) > maxStatusLen {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidStatus, maxStatusLen)
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: contains control characters", ErrInvalidStatus)
		}
	}
	return Status(s), nil
}

// Delivery results written to the contact log.
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultUnknown = "unknown"
)

// LogEntry is one append-only contact log record.
type LogEntry struct {
	ID            string          `json:"id"`
	OpportunityID string          `json:"opportunity_id"`
	Channel       string          `json:"channel"`
	TemplateKey   string          `json:"template_key"`
	Result        string          `json:"result"`
	VendorMsgID   *string         `json:"vendor_msg_id"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Payload is what the messaging vendor receives for one contact.
type Payload struct {
	OpportunityID  string   `json:"opportunity_id"`
	PatientID      int64    `json:"patient_id"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	Phone          string   `json:"phone,omitempty"`
	Email          string   `json:"email,omitempty"`
	TotalFee       int64    `json:"total_fee"`
	PlanCount      int      `json:"plan_count"`
	LastPlanDate   *string  `json:"last_plan_date"`
	DaysSincePlan  int      `json:"days_since_plan"`
	TopCodes       []string `json:"top_codes"`
	SchedulingLink string   `json:"scheduling_link"`
	Channel        string   `json:"channel"`
	TemplateKey    string   `json:"templateKey"`
	Message        string   `json:"message,omitempty"`
}

type DispatchRequest struct {
	Channel     string `json:"channel"`
	TemplateKey string `json:"templateKey"`
}

type DispatchResult struct {
	Success        bool      `json:"success"`
	VendorResponse string    `json:"vendor_response"`
	VendorStatus   int       `json:"vendor_status,omitempty"`
	VendorMsgID    string    `json:"vendor_msg_id,omitempty"`
	Status         Status    `json:"status"`
	ContactedAt    time.Time `json:"contacted_at"`
	LogID          string    `json:"log_id"`
}

// Outcome is a delivery or reply notification from the messaging vendor.
// Raw holds the full callback body and is stored as the log payload.
type Outcome struct {
	OpportunityID string          `json:"opportunity_id"`
	Result        string          `json:"result"`
	VendorMsgID   string          `json:"vendor_msg_id"`
	Status        string          `json:"status"`
	Channel       string          `json:"channel"`
	TemplateKey   string          `json:"templateKey"`
	Raw           json.RawMessage `json:"-"`
}

type StatusChange struct {
	OpportunityID string `json:"opportunity_id"`
	OldStatus     Status `json:"old_status"`
	NewStatus     Status `json:"new_status"`
}

type StatusRequest struct {
	Status string `json:"status"`
}
