package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProcessedStore is the webhook replay guard: each delivery is recorded
// under (provider, event id) and duplicate deliveries are detected by the
// failed insert.
type ProcessedStore interface {
	// MarkProcessed records the event, returning false when the event was
	// already recorded by an earlier delivery.
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresProcessedStore persists the guard in the processed_events table.
type PostgresProcessedStore struct {
	db execer
}

func NewPostgresProcessedStore(pool *pgxpool.Pool) *PostgresProcessedStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &PostgresProcessedStore{db: pool}
}

// NewPostgresProcessedStoreWithDB allows injecting a mock connection for tests.
func NewPostgresProcessedStoreWithDB(db execer) *PostgresProcessedStore {
	return &PostgresProcessedStore{db: db}
}

// MarkProcessed inserts the event id. The primary key on
// (provider, event_id) turns a replay into a zero-row insert.
func (s *PostgresProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	query := `
		INSERT INTO processed_events (provider, event_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	ct, err := s.db.Exec(ctx, query, provider, eventID)
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// InMemoryProcessedStore backs tests and single-process deployments.
type InMemoryProcessedStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewInMemoryProcessedStore() *InMemoryProcessedStore {
	return &InMemoryProcessedStore{seen: make(map[string]struct{})}
}

func (s *InMemoryProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := provider + "/" + eventID
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	return true, nil
}

var (
	_ ProcessedStore = (*PostgresProcessedStore)(nil)
	_ ProcessedStore = (*InMemoryProcessedStore)(nil)
)
