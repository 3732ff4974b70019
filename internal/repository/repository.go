package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/yourusername/paddock/internal/config"
	"github.com/yourusername/paddock/internal/database"
	"github.com/yourusername/paddock/internal/metrics"
	"github.com/yourusername/paddock/internal/models"
)

// Repositories holds the configured cache store and the connections behind it
type Repositories struct {
	Rounds CacheStore

	db    *database.DB
	redis *redis.Client
}

// NewRepositories opens the backend selected by cfg.Cache.Backend
func NewRepositories(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	switch cfg.Cache.Backend {
	case BackendPostgres:
		db, err := database.Initialize(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			Rounds: Instrument(NewPostgresRoundRecordRepository(db)),
			db:     db,
		}, nil

	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return &Repositories{
			Rounds: Instrument(NewRedisRoundRecordRepository(client, cfg.Redis.KeyPrefix)),
			redis:  client,
		}, nil

	case BackendMemory, "":
		return NewMemoryRepositories(), nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// NewMemoryRepositories returns repositories backed by the in-memory store
func NewMemoryRepositories() *Repositories {
	return &Repositories{Rounds: Instrument(NewMemoryRoundRecordRepository())}
}

// HealthCheck pings the active backend
func (r *Repositories) HealthCheck(ctx context.Context) error {
	return r.Rounds.Ping(ctx)
}

// Close releases backend connections
func (r *Repositories) Close() error {
	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		return r.redis.Close()
	}
	return nil
}

// instrumentedStore records a store operation metric for every call
type instrumentedStore struct {
	next CacheStore
}

// Instrument wraps a store with operation metrics
func Instrument(store CacheStore) CacheStore {
	if _, ok := store.(*instrumentedStore); ok {
		return store
	}
	return &instrumentedStore{next: store}
}

func (s *instrumentedStore) Backend() string {
	return s.next.Backend()
}

func (s *instrumentedStore) GetLastSyncedRound(ctx context.Context, season string, entity models.EntityRef) (*int, error) {
	last, err := s.next.GetLastSyncedRound(ctx, season, entity)
	metrics.RecordStoreOperation(s.next.Backend(), "get_cursor", err)
	return last, err
}

func (s *instrumentedStore) UpsertRoundRecord(ctx context.Context, record *models.CachedRoundRecord) error {
	err := s.next.UpsertRoundRecord(ctx, record)
	metrics.RecordStoreOperation(s.next.Backend(), "upsert", err)
	return err
}

func (s *instrumentedStore) GetRoundRecords(ctx context.Context, season string, entity models.EntityRef) ([]models.CachedRoundRecord, error) {
	records, err := s.next.GetRoundRecords(ctx, season, entity)
	metrics.RecordStoreOperation(s.next.Backend(), "get_records", err)
	return records, err
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Unwrap returns the underlying store
func (s *instrumentedStore) Unwrap() CacheStore {
	return s.next
}
