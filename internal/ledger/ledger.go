// Package ledger records which job postings have already been attempted so they are never re-submitted.
package ledger

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// Store is the durable backing for the ledger.
// Save receives the full set and must replace the stored contents atomically.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, ids []string) error
}

// Ledger is the set of processed job IDs.
// Membership is monotonic: nothing in this package removes an ID.
// It is owned by a single control flow and is not safe for concurrent use.
type Ledger struct {
	store  Store
	ids    map[string]struct{}
	logger *zap.Logger
}

// New creates an empty ledger backed by store. Call Load to read persisted IDs.
func New(store Store, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		store:  store,
		ids:    make(map[string]struct{}),
		logger: logger.Named("ledger"),
	}
}

// Load merges the persisted IDs into memory.
// Unreadable or corrupt storage is logged and treated as empty.
func (l *Ledger) Load(ctx context.Context) {
	ids, err := l.store.Load(ctx)
	if err != nil {
		l.logger.Warn("Could not read ledger; starting empty", zap.Error(&PersistenceError{Op: "load", Cause: err}))
		return
	}
	for _, id := range ids {
		if id != "" {
			l.ids[id] = struct{}{}
		}
	}
	l.logger.Info("Ledger loaded", zap.Int("processed_jobs", len(l.ids)))
}

// Contains reports whether id has already been processed.
func (l *Ledger) Contains(id string) bool {
	_, ok := l.ids[id]
	return ok
}

// Add records id as processed. It returns false when id was already present.
func (l *Ledger) Add(id string) bool {
	if id == "" || l.Contains(id) {
		return false
	}
	l.ids[id] = struct{}{}
	return true
}

// Persist writes the full set to the store.
// A failure is logged and returned; the in-memory set stays authoritative for the run.
func (l *Ledger) Persist(ctx context.Context) error {
	if err := l.store.Save(ctx, l.IDs()); err != nil {
		perr := &PersistenceError{Op: "save", Cause: err}
		l.logger.Error("Failed to persist ledger", zap.Error(perr))
		return perr
	}
	return nil
}

// Record adds id and persists the ledger in one step.
func (l *Ledger) Record(ctx context.Context, id string) error {
	l.Add(id)
	return l.Persist(ctx)
}

// IDs returns the processed IDs in sorted order.
func (l *Ledger) IDs() []string {
	out := make([]string, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of processed IDs.
func (l *Ledger) Len() int {
	return len(l.ids)
}
