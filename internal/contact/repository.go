package contact

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/WailSalutem-Health-Care/recall-service/internal/db"
	"github.com/google/uuid"
)

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// MarkContacted moves the opportunity to contacted and stamps the attempt.
func (r *Repository) MarkContacted(ctx context.Context, q db.DBTX, opportunityID string, at time.Time) error {
	query := `
		UPDATE opportunities
		SET status = $2, last_contacted_at = $3, updated_at = $3
		WHERE id = $1
	`

	result, err := q.ExecContext(ctx, query, opportunityID, string(StatusContacted), at)
	if err != nil {
		return fmt.Errorf("failed to mark opportunity contacted: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus overwrites the status unconditionally and returns the previous one.
func (r *Repository) SetStatus(ctx context.Context, q db.DBTX, opportunityID string, status Status, at time.Time) (Status, error) {
	query := `
		WITH prev AS (
			SELECT id, status FROM opportunities WHERE id = $1 FOR UPDATE
		)
		UPDATE opportunities o
		SET status = $2, updated_at = $3
		FROM prev
		WHERE o.id = prev.id
		RETURNING prev.status
	`

	var old string
	err := q.QueryRowContext(ctx, query, opportunityID, string(status), at).Scan(&old)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to set status: %w", err)
	}
	return Status(old), nil
}

// AppendLog writes a contact log entry. The opportunity must exist; the
// foreign key is the only check.
func (r *Repository) AppendLog(ctx context.Context, q db.DBTX, entry LogEntry) (string, error) {
	id := uuid.New().String()

	payload := []byte(entry.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	var vendorMsgID interface{}
	if entry.VendorMsgID != nil && *entry.VendorMsgID != "" {
		vendorMsgID = *entry.VendorMsgID
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	query := `
		INSERT INTO contact_log
		(id, opportunity_id, channel, template_key, result, vendor_msg_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := q.ExecContext(ctx, query,
		id,
		entry.OpportunityID,
		entry.Channel,
		entry.TemplateKey,
		entry.Result,
		vendorMsgID,
		string(payload),
		createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to append contact log: %w", err)
	}
	return id, nil
}

// ListLog returns the contact log of an opportunity, newest first.
func (r *Repository) ListLog(ctx context.Context, opportunityID string) ([]LogEntry, error) {
	query := `
		SELECT id, opportunity_id, channel, template_key, result, vendor_msg_id, payload, created_at
		FROM contact_log
		WHERE opportunity_id = $1
		ORDER BY created_at DESC, id
	`

	rows, err := r.db.QueryContext(ctx, query, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contact log: %w", err)
	}
	defer rows.Close()

	entries := []LogEntry{}
	for rows.Next() {
		var e LogEntry
		var vendorMsgID sql.NullString
		var payload []byte
		if err := rows.Scan(&e.ID, &e.OpportunityID, &e.Channel, &e.TemplateKey, &e.Result, &vendorMsgID, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact log: %w", err)
		}
		if vendorMsgID.Valid {
			v := vendorMsgID.String
			e.VendorMsgID = &v
		}
		e.Payload = payload
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contact log: %w", err)
	}
	return entries, nil
}
