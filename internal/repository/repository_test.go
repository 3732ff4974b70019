package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/paddock/internal/config"
	"github.com/yourusername/paddock/internal/database"
	"github.com/yourusername/paddock/internal/models"
)

func roundRecord(season string, entity models.EntityRef, round int, points string) *models.CachedRoundRecord {
	return &models.CachedRoundRecord{
		Season: season,
		Round:  round,
		Entity: entity,
		Payload: models.RoundPayload{
			Position:     1,
			PositionText: "1",
			Points:       decimal.RequireFromString(points),
			Locality:     "Sakhir",
		},
		SyncedAt: time.Date(2024, 3, 2, 18, 0, 0, 0, time.UTC),
	}
}

// runCacheStoreContract exercises the behaviour every backend must share
func runCacheStoreContract(t *testing.T, store CacheStore) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	verstappen := models.Driver("max_verstappen")
	norris := models.Driver("norris")

	t.Run("never synced", func(t *testing.T) {
		last, err := store.GetLastSyncedRound(ctx, "2024", verstappen)
		require.NoError(t, err)
		assert.Nil(t, last)

		records, err := store.GetRoundRecords(ctx, "2024", verstappen)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("upsert advances cursor", func(t *testing.T) {
		for round := 1; round <= 3; round++ {
			require.NoError(t, store.UpsertRoundRecord(ctx, roundRecord("2024", verstappen, round, fmt.Sprintf("%d", round*25))))
		}

		last, err := store.GetLastSyncedRound(ctx, "2024", verstappen)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, 3, *last)

		records, err := store.GetRoundRecords(ctx, "2024", verstappen)
		require.NoError(t, err)
		require.Len(t, records, 3)
		for i, rec := range records {
			assert.Equal(t, i+1, rec.Round)
			assert.Equal(t, verstappen, rec.Entity)
			assert.Equal(t, "Sakhir", rec.Payload.Locality)
		}
		assert.True(t, records[2].Payload.Points.Equal(decimal.NewFromInt(75)))
	})

	t.Run("re-upsert is idempotent and never rewinds cursor", func(t *testing.T) {
		require.NoError(t, store.UpsertRoundRecord(ctx, roundRecord("2024", verstappen, 2, "51")))

		last, err := store.GetLastSyncedRound(ctx, "2024", verstappen)
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, 3, *last)

		records, err := store.GetRoundRecords(ctx, "2024", verstappen)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.True(t, records[1].Payload.Points.Equal(decimal.NewFromInt(51)))
	})

	t.Run("pairs are isolated", func(t *testing.T) {
		require.NoError(t, store.UpsertRoundRecord(ctx, roundRecord("2023", verstappen, 1, "26")))
		require.NoError(t, store.UpsertRoundRecord(ctx, roundRecord("2024", norris, 1, "12")))

		last, err := store.GetLastSyncedRound(ctx, "2024", models.Constructor("max_verstappen"))
		require.NoError(t, err)
		assert.Nil(t, last)

		records, err := store.GetRoundRecords(ctx, "2024", norris)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("invalid record is a cache write error", func(t *testing.T) {
		err := store.UpsertRoundRecord(ctx, roundRecord("2024", verstappen, 0, "1"))
		require.Error(t, err)
		assert.True(t, IsCacheWriteError(err))
		assert.ErrorIs(t, err, ErrInvalidRecord)

		err = store.UpsertRoundRecord(ctx, roundRecord("2024", models.EntityRef{Kind: "team", ID: "x"}, 1, "1"))
		assert.True(t, IsCacheWriteError(err))
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

func TestMemoryRoundRecordRepository(t *testing.T) {
	store := NewMemoryRoundRecordRepository()
	runCacheStoreContract(t, store)
	assert.Equal(t, int64(6), store.Writes())
}

func TestMemoryRoundRecordRepositoryConcurrentWriters(t *testing.T) {
	store := NewMemoryRoundRecordRepository()
	ctx := context.Background()
	entity := models.Constructor("ferrari")

	var wg sync.WaitGroup
	for round := 1; round <= 24; round++ {
		wg.Add(1)
		go func(round int) {
			defer wg.Done()
			assert.NoError(t, store.UpsertRoundRecord(ctx, roundRecord("2024", entity, round, "10")))
		}(round)
	}
	wg.Wait()

	last, err := store.GetLastSyncedRound(ctx, "2024", entity)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 24, *last)

	records, err := store.GetRoundRecords(ctx, "2024", entity)
	require.NoError(t, err)
	assert.Len(t, records, 24)
}

func TestMemoryRoundRecordRepositoryCancelledContext(t *testing.T) {
	store := NewMemoryRoundRecordRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.UpsertRoundRecord(ctx, roundRecord("2024", models.Driver("norris"), 1, "1"))
	require.Error(t, err)
	assert.True(t, IsCacheWriteError(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, store.Writes())
}

func TestCacheWriteErrorMessage(t *testing.T) {
	err := &CacheWriteError{
		Backend: BackendPostgres,
		Season:  "2024",
		Round:   5,
		Entity:  models.Driver("leclerc"),
		Err:     fmt.Errorf("connection reset"),
	}
	assert.Equal(t, "postgres: failed to upsert round 5 of 2024 for driver:leclerc: connection reset", err.Error())
}

func TestNewRepositoriesMemory(t *testing.T) {
	cfg := &config.Config{Cache: config.CacheConfig{Backend: BackendMemory}}
	repos, err := NewRepositories(context.Background(), cfg)
	require.NoError(t, err)
	defer repos.Close()

	assert.Equal(t, BackendMemory, repos.Rounds.Backend())
	assert.NoError(t, repos.HealthCheck(context.Background()))
}

func TestNewRepositoriesUnknownBackend(t *testing.T) {
	cfg := &config.Config{Cache: config.CacheConfig{Backend: "sqlite"}}
	_, err := NewRepositories(context.Background(), cfg)
	assert.Error(t, err)
}

func TestInstrumentIsIdempotent(t *testing.T) {
	store := Instrument(NewMemoryRoundRecordRepository())
	assert.Same(t, store, Instrument(store))
}

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	client.FlushDB(ctx)
	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})
	return client
}

func TestRedisRoundRecordRepository(t *testing.T) {
	client := setupTestRedis(t)
	runCacheStoreContract(t, NewRedisRoundRecordRepository(client, "paddock-test"))
}

func TestPostgresRoundRecordRepository(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)

	runCacheStoreContract(t, NewPostgresRoundRecordRepository(db))
}
