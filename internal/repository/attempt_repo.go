package repository

import (
	"context"
	"fmt"

	"github.com/epeers/mftracker/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptRepository journals finished upload attempts
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// RecordAttempt inserts one journal row
func (r *AttemptRepository) RecordAttempt(ctx context.Context, rec models.AttemptRecord) error {
	query := `
		INSERT INTO fact_upload_attempts (session_id, scheme_code, file_name, outcome, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query, rec.SessionID, rec.SchemeCode, rec.FileName, string(rec.Outcome), rec.Detail, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record upload attempt: %w", err)
	}
	return nil
}

// ListBySession returns the attempts of a session, oldest first
func (r *AttemptRepository) ListBySession(ctx context.Context, sessionID string) ([]models.AttemptRecord, error) {
	query := `
		SELECT id, session_id, scheme_code, file_name, outcome, detail, created_at
		FROM fact_upload_attempts
		WHERE session_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query upload attempts: %w", err)
	}
	defer rows.Close()

	var records []models.AttemptRecord
	for rows.Next() {
		var rec models.AttemptRecord
		var outcome string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.SchemeCode, &rec.FileName, &outcome, &rec.Detail, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan upload attempt: %w", err)
		}
		rec.Outcome = models.AttemptOutcome(outcome)
		records = append(records, rec)
	}

	return records, rows.Err()
}
