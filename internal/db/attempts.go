package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jobaru/internal/types"
)

// Attempt is one row of the attempt history.
type Attempt struct {
	ID          uuid.UUID            `json:"id"`
	JobID       string               `json:"job_id"`
	Title       string               `json:"title"`
	Company     string               `json:"company"`
	URL         string               `json:"url"`
	Outcome     types.AttemptOutcome `json:"outcome"`
	AttemptedAt time.Time            `json:"attempted_at"`
}

// AttemptStore keeps the history of concluded attempts. It implements
// session.Recorder.
type AttemptStore struct {
	db    *DB
	newID func() uuid.UUID
}

// NewAttemptStore creates an attempt store on db.
func NewAttemptStore(db *DB) *AttemptStore {
	return &AttemptStore{db: db, newID: uuid.New}
}

// RecordAttempt appends one concluded attempt.
func (s *AttemptStore) RecordAttempt(ctx context.Context, posting types.JobPosting, outcome types.AttemptOutcome) error {
	_, err := s.db.pool.Exec(ctx,
		`INSERT INTO job_attempts (id, job_id, title, company, url, outcome)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.newID(), posting.ID, posting.Title, posting.Company, posting.URL, string(outcome),
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt for job %s: %w", posting.ID, err)
	}
	return nil
}

// RecentAttempts returns up to limit attempts, newest first.
func (s *AttemptStore) RecentAttempts(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.pool.Query(ctx,
		`SELECT id, job_id, title, company, url, outcome, attempted_at
		 FROM job_attempts
		 ORDER BY attempted_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	attempts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Attempt, error) {
		var a Attempt
		var outcome string
		err := row.Scan(&a.ID, &a.JobID, &a.Title, &a.Company, &a.URL, &outcome, &a.AttemptedAt)
		a.Outcome = types.AttemptOutcome(outcome)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read attempts: %w", err)
	}
	return attempts, nil
}
