package opportunity

import "time"

// Opportunity is one row of the ranked list, joined with its patient.
// DaysSincePlan and Score are computed at read time and never stored.
type Opportunity struct {
	ID              string     `json:"id"`
	PatientID       int64      `json:"patient_id"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Phone           string     `json:"phone,omitempty"`
	Email           string     `json:"email,omitempty"`
	TotalFee        int64      `json:"total_fee"`
	PlanCount       int        `json:"plan_count"`
	LastPlanDate    *string    `json:"last_plan_date"`
	DaysSincePlan   int        `json:"days_since_plan"`
	TopCodes        []string   `json:"top_codes"`
	Status          string     `json:"status"`
	LastContactedAt *time.Time `json:"last_contacted_at"`
	Score           float64    `json:"score"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// HasPhone reports whether the patient can be reached by phone.
func (o *Opportunity) HasPhone() bool {
	return HasPhone(o.Phone)
}

type Procedure struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Fee         int64  `json:"fee"`
	Tooth       string `json:"tooth,omitempty"`
	Surface     string `json:"surface,omitempty"`
}

// Detail is an opportunity with its procedure lines and a freshly signed
// scheduling link.
type Detail struct {
	Opportunity
	Procedures     []Procedure `json:"procedures"`
	SchedulingLink string      `json:"scheduling_link,omitempty"`
}

// Summary is the aggregate written to the opportunity row by reconciliation.
type Summary struct {
	PatientID    int64
	TotalFee     int64
	PlanCount    int
	LastPlanDate *time.Time
	TopCodes     []string
}

// ListFilter narrows the ranked list. Zero values mean "no filter".
type ListFilter struct {
	MinValue int64
	MinDays  int
	Query    string
	Limit    int
}

type ListResponse struct {
	Success       bool          `json:"success"`
	Count         int           `json:"count"`
	Opportunities []Opportunity `json:"opportunities"`
}

type DetailResponse struct {
	Success     bool    `json:"success"`
	Opportunity *Detail `json:"opportunity"`
}

type IngestResponse struct {
	Success   bool `json:"success"`
	Processed int  `json:"processed"`
}
