package opportunity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/WailSalutem-Health-Care/recall-service/internal/db"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// FindTarget returns the opportunity reconciliation writes to: the most
// recently updated row for the patient, ties broken by id.
func (r *Repository) FindTarget(ctx context.Context, q db.DBTX, patientID int64) (string, bool, error) {
	query := `
		SELECT id FROM opportunities
		WHERE patient_id = $1
		ORDER BY updated_at DESC, id DESC
		LIMIT 1
	`

	var id string
	err := q.QueryRowContext(ctx, query, patientID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to find opportunity for patient %d: %w", patientID, err)
	}
	return id, true, nil
}

func (r *Repository) Create(ctx context.Context, q db.DBTX, s Summary) (string, error) {
	id := uuid.New().String()

	query := `
		INSERT INTO opportunities
		(id, patient_id, total_fee, plan_count, last_plan_date, top_codes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'new', $7, $7)
	`

	_, err := q.ExecContext(ctx, query,
		id,
		s.PatientID,
		s.TotalFee,
		s.PlanCount,
		dateArg(s.LastPlanDate),
		pq.Array(nonNil(s.TopCodes)),
		r.now(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create opportunity: %w", err)
	}
	return id, nil
}

func (r *Repository) Update(ctx context.Context, q db.DBTX, id string, s Summary) error {
	query := `
		UPDATE opportunities
		SET total_fee = $2, plan_count = $3, last_plan_date = $4, top_codes = $5, updated_at = $6
		WHERE id = $1
	`

	_, err := q.ExecContext(ctx, query,
		id,
		s.TotalFee,
		s.PlanCount,
		dateArg(s.LastPlanDate),
		pq.Array(nonNil(s.TopCodes)),
		r.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update opportunity %s: %w", id, err)
	}
	return nil
}

// ReplaceProcedures drops every procedure line of the opportunity and
// inserts the given ones in order.
func (r *Repository) ReplaceProcedures(ctx context.Context, q db.DBTX, id string, lines []Line) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM procedures WHERE opportunity_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear procedures: %w", err)
	}

	query := `
		INSERT INTO procedures (opportunity_id, code, description, fee, tooth, surface)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i, line := range lines {
		_, err := q.ExecContext(ctx, query,
			id,
			strings.TrimSpace(string(line.Code)),
			nullIfBlank(line.Description),
			int64(line.Fee),
			nullIfBlank(string(line.Tooth)),
			nullIfBlank(string(line.Surface)),
		)
		if err != nil {
			return fmt.Errorf("failed to insert procedure %d: %w", i, err)
		}
	}
	return nil
}

// listColumns selects an opportunity joined with its patient. $1 is today's
// date; days since plan is derived from it on every read.
const listColumns = `
	o.id, o.patient_id,
	COALESCE(p.first_name, ''), COALESCE(p.last_name, ''), COALESCE(p.phone, ''), COALESCE(p.email, ''),
	o.total_fee, o.plan_count, o.last_plan_date,
	COALESCE($1::date - o.last_plan_date, 0) AS days_since_plan,
	o.top_codes, o.status, o.last_contacted_at, o.created_at, o.updated_at
`

// List returns the canonical opportunity of each patient ranked by score.
// The ORDER BY mirrors Score so LIMIT applies to the ranked set.
func (r *Repository) List(ctx context.Context, f ListFilter, today time.Time) ([]Opportunity, error) {
	query := `
		WITH latest AS (
			SELECT DISTINCT ON (patient_id) *
			FROM opportunities
			ORDER BY patient_id, updated_at DESC, id DESC
		)
		SELECT ` + listColumns + `
		FROM latest o
		JOIN patients p ON p.patient_id = o.patient_id
		WHERE o.total_fee >= $2
		  AND COALESCE($1::date - o.last_plan_date, 0) >= $3
		  AND ($4 = '' OR p.first_name ILIKE $4 OR p.last_name ILIKE $4)
		ORDER BY (
			o.total_fee * $5::float8
			+ COALESCE($1::date - o.last_plan_date, 0) * $6::float8
			+ CASE WHEN btrim(COALESCE(p.phone, '')) <> '' THEN $7::float8 ELSE 0 END
		) DESC, o.updated_at DESC, o.id
		LIMIT $8
	`

	rows, err := r.db.QueryContext(ctx, query,
		today.Format("2006-01-02"),
		f.MinValue,
		f.MinDays,
		likePattern(f.Query),
		FeeWeight,
		DayWeight,
		PhoneBonus,
		f.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query opportunities: %w", err)
	}
	defer rows.Close()

	out := []Opportunity{}
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate opportunities: %w", err)
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, id string, today time.Time) (*Opportunity, error) {
	query := `
		SELECT ` + listColumns + `
		FROM opportunities o
		JOIN patients p ON p.patient_id = o.patient_id
		WHERE o.id = $2
	`

	o, err := scanOpportunity(r.db.QueryRowContext(ctx, query, today.Format("2006-01-02"), id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repository) ListProcedures(ctx context.Context, id string) ([]Procedure, error) {
	query := `
		SELECT id, code, COALESCE(description, ''), fee, COALESCE(tooth, ''), COALESCE(surface, '')
		FROM procedures
		WHERE opportunity_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query procedures: %w", err)
	}
	defer rows.Close()

	procs := []Procedure{}
	for rows.Next() {
		var p Procedure
		if err := rows.Scan(&p.ID, &p.Code, &p.Description, &p.Fee, &p.Tooth, &p.Surface); err != nil {
			return nil, fmt.Errorf("failed to scan procedure: %w", err)
		}
		procs = append(procs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate procedures: %w", err)
	}
	return procs, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOpportunity(row scanner) (*Opportunity, error) {
	var o Opportunity
	var lastPlan sql.NullTime
	var lastContacted sql.NullTime
	var codes pq.StringArray

	err := row.Scan(
		&o.ID,
		&o.PatientID,
		&o.FirstName,
		&o.LastName,
		&o.Phone,
		&o.Email,
		&o.TotalFee,
		&o.PlanCount,
		&lastPlan,
		&o.DaysSincePlan,
		&codes,
		&o.Status,
		&lastContacted,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan opportunity: %w", err)
	}

	if lastPlan.Valid {
		s := lastPlan.Time.Format("2006-01-02")
		o.LastPlanDate = &s
	}
	if lastContacted.Valid {
		t := lastContacted.Time
		o.LastContactedAt = &t
	}
	o.TopCodes = nonNil(codes)
	o.Score = Score(o.TotalFee, o.DaysSincePlan, o.HasPhone())

	return &o, nil
}

func dateArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func nullIfBlank(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nonNil(codes []string) []string {
	if codes == nil {
		return []string{}
	}
	return codes
}
