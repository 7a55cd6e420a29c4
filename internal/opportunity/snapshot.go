package opportunity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/WailSalutem-Health-Care/recall-service/internal/patient"
)

// MaxTopCodes bounds the representative procedure codes kept per opportunity.
const MaxTopCodes = 6

// Snapshot is one exported record of a patient's current treatment plan.
type Snapshot struct {
	PatientID    ExternalID  `json:"patient_id"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	BirthDate    string      `json:"birth_date"`
	Phone        Text        `json:"phone"`
	Email        string      `json:"email"`
	GuarantorID  *ExternalID `json:"guarantor_id"`
	LastPlanDate string      `json:"last_plan_date"`
	Procedures   []Line      `json:"procedures"`
	TotalFee     *Cents      `json:"total_fee"`
	PlanCount    *Count      `json:"plan_count"`
}

// Line is a procedure line as it appears in a snapshot.
type Line struct {
	Code        Text   `json:"code"`
	Description string `json:"description"`
	Fee         Cents  `json:"fee"`
	Tooth       Text   `json:"tooth"`
	Surface     Text   `json:"surface"`
}

// Cents is an amount in minor currency units. Numbers and numeric strings are
// accepted; fractions truncate toward zero; negative or non-numeric input is 0.
type Cents int64

// Count is a non-negative integer decoded with the same rules as Cents.
// Values that do not fit a 32-bit column are 0.
type Count int64

// ExternalID is a caller supplied identifier decoded with the same rules as Cents.
type ExternalID int64

func (c *Cents) UnmarshalJSON(data []byte) error {
	*c = Cents(lenientInt(data))
	return nil
}

func (c *Count) UnmarshalJSON(data []byte) error {
	n := lenientInt(data)
	if n > math.MaxInt32 {
		n = 0
	}
	*c = Count(n)
	return nil
}

func (id *ExternalID) UnmarshalJSON(data []byte) error {
	*id = ExternalID(lenientInt(data))
	return nil
}

func lenientInt(data []byte) int64 {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return 0
	}
	if raw[0] == '"' {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return 0
		}
		raw = strings.TrimSpace(s)
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || f <= 0 || f >= math.MaxInt64 {
		return 0
	}
	return int64(f)
}

// Text accepts a JSON string or a bare number (tooth numbers, numeric codes).
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		*t = Text(data)
	default:
		// booleans, objects and arrays carry no usable text
		*t = ""
	}
	return nil
}

// DecodeBatch accepts either a bare JSON array of snapshots or an object
// with a "snapshots" array.
func DecodeBatch(body []byte) ([]Snapshot, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrEmptyBatch
	}

	if body[0] == '[' {
		var batch []Snapshot
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		return batch, nil
	}

	var wrapped struct {
		Snapshots *[]Snapshot `json:"snapshots"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if wrapped.Snapshots == nil {
		return nil, ErrEmptyBatch
	}
	return *wrapped.Snapshots, nil
}

// Validate checks the fields a snapshot cannot be applied without.
func (s *Snapshot) Validate() error {
	if s.PatientID <= 0 {
		return fmt.Errorf("%w: patient_id is required", ErrInvalidSnapshot)
	}
	if _, err := parseDate(s.BirthDate); err != nil {
		return fmt.Errorf("%w: birth_date: %v", ErrInvalidSnapshot, err)
	}
	if _, err := parseDate(s.LastPlanDate); err != nil {
		return fmt.Errorf("%w: last_plan_date: %v", ErrInvalidSnapshot, err)
	}
	return nil
}

// Patient returns the directory record carried by the snapshot.
func (s *Snapshot) Patient() patient.Record {
	rec := patient.Record{
		PatientID: int64(s.PatientID),
		FirstName: strings.TrimSpace(s.FirstName),
		LastName:  strings.TrimSpace(s.LastName),
		Phone:     strings.TrimSpace(string(s.Phone)),
		Email:     strings.TrimSpace(s.Email),
	}
	rec.BirthDate, _ = parseDate(s.BirthDate)
	if s.GuarantorID != nil && *s.GuarantorID > 0 {
		g := int64(*s.GuarantorID)
		rec.GuarantorID = &g
	}
	return rec
}

// Summary aggregates the snapshot into the values stored on the opportunity.
// Explicit total_fee and plan_count win over the values derived from lines.
func (s *Snapshot) Summary() Summary {
	sum := Summary{PatientID: int64(s.PatientID)}
	sum.LastPlanDate, _ = parseDate(s.LastPlanDate)

	for _, line := range s.Procedures {
		sum.TotalFee = addFee(sum.TotalFee, int64(line.Fee))
	}
	sum.PlanCount = len(s.Procedures)

	if s.TotalFee != nil {
		sum.TotalFee = int64(*s.TotalFee)
	}
	if s.PlanCount != nil {
		sum.PlanCount = int(*s.PlanCount)
	}

	sum.TopCodes = topCodes(s.Procedures)
	return sum
}

// addFee saturates at MaxInt64. Both operands are non-negative.
func addFee(total, fee int64) int64 {
	if fee > math.MaxInt64-total {
		return math.MaxInt64
	}
	return total + fee
}

// topCodes keeps the first MaxTopCodes non-blank codes; blank codes do not
// take a slot.
func topCodes(lines []Line) []string {
	codes := make([]string, 0, MaxTopCodes)
	for _, line := range lines {
		code := strings.TrimSpace(string(line.Code))
		if code == "" {
			continue
		}
		codes = append(codes, code)
		if len(codes) == MaxTopCodes {
			break
		}
	}
	return codes
}

// parseDate accepts YYYY-MM-DD or an RFC 3339 timestamp. Blank yields nil.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%q is not a date", s)
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d, nil
}
