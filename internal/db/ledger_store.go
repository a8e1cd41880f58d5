package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// LedgerStore implements ledger.Store on the processed_jobs table.
type LedgerStore struct {
	db     *DB
	logger *zap.Logger
}

// NewLedgerStore creates a ledger store on db.
func NewLedgerStore(db *DB, logger *zap.Logger) *LedgerStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerStore{db: db, logger: logger.Named("ledger_store")}
}

// Load returns every processed job ID.
func (s *LedgerStore) Load(ctx context.Context) ([]string, error) {
	rows, err := s.db.pool.Query(ctx, `SELECT job_id FROM processed_jobs ORDER BY job_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query processed jobs: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read processed jobs: %w", err)
	}
	return ids, nil
}

// Save inserts ids that are not stored yet. The ledger only grows, so
// inserting the full set leaves the table equal to it.
func (s *LedgerStore) Save(ctx context.Context, ids []string) error {
	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
	}()

	if _, err := tx.Exec(ctx,
		`INSERT INTO processed_jobs (job_id)
		 SELECT unnest($1::text[])
		 ON CONFLICT (job_id) DO NOTHING`,
		ids,
	); err != nil {
		return fmt.Errorf("failed to insert processed jobs: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
