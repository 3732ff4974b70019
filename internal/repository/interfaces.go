package repository

import (
	"context"

	"github.com/yourusername/paddock/internal/models"
)

// Backend names
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// CacheStore persists derived per-round facts and the sync cursor per
// (season, entity). Implementations must be safe for concurrent use.
type CacheStore interface {
	// GetLastSyncedRound returns the cursor, nil when the pair was never synced
	GetLastSyncedRound(ctx context.Context, season string, entity models.EntityRef) (*int, error)

	// UpsertRoundRecord writes the record and advances the cursor to its
	// round in a single atomic step. Re-upserting a round is idempotent and
	// never moves the cursor backwards.
	UpsertRoundRecord(ctx context.Context, record *models.CachedRoundRecord) error

	// GetRoundRecords returns every cached round of the pair, ascending
	GetRoundRecords(ctx context.Context, season string, entity models.EntityRef) ([]models.CachedRoundRecord, error)

	// Ping verifies the backend is reachable
	Ping(ctx context.Context) error

	// Backend returns the backend name
	Backend() string
}
