package repository

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/yourusername/paddock/internal/models"
)

type memoryKey struct {
	season string
	entity models.EntityRef
}

// MemoryRoundRecordRepository is an in-process CacheStore. State is lost on
// restart; it backs the CLI when no database is configured and the tests.
type MemoryRoundRecordRepository struct {
	mu      sync.RWMutex
	records map[memoryKey]map[int]models.CachedRoundRecord
	cursors map[memoryKey]int
	writes  atomic.Int64
}

// NewMemoryRoundRecordRepository creates an empty in-memory store
func NewMemoryRoundRecordRepository() *MemoryRoundRecordRepository {
	return &MemoryRoundRecordRepository{
		records: make(map[memoryKey]map[int]models.CachedRoundRecord),
		cursors: make(map[memoryKey]int),
	}
}

// Backend returns the backend name
func (r *MemoryRoundRecordRepository) Backend() string {
	return BackendMemory
}

// GetLastSyncedRound returns the cursor for a pair
func (r *MemoryRoundRecordRepository) GetLastSyncedRound(ctx context.Context, season string, entity models.EntityRef) (*int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	last, ok := r.cursors[memoryKey{season, entity}]
	if !ok {
		return nil, nil
	}
	return &last, nil
}

// UpsertRoundRecord stores the record and advances the cursor under one lock
func (r *MemoryRoundRecordRepository) UpsertRoundRecord(ctx context.Context, record *models.CachedRoundRecord) error {
	if err := validateRecord(record); err != nil {
		return newWriteError(BackendMemory, record, err)
	}
	if err := ctx.Err(); err != nil {
		return newWriteError(BackendMemory, record, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := memoryKey{record.Season, record.Entity}
	rounds, ok := r.records[key]
	if !ok {
		rounds = make(map[int]models.CachedRoundRecord)
		r.records[key] = rounds
	}
	rounds[record.Round] = *record
	if record.Round > r.cursors[key] {
		r.cursors[key] = record.Round
	}
	r.writes.Add(1)
	return nil
}

// GetRoundRecords returns every cached round for a pair, ascending
func (r *MemoryRoundRecordRepository) GetRoundRecords(ctx context.Context, season string, entity models.EntityRef) ([]models.CachedRoundRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	rounds := r.records[memoryKey{season, entity}]
	out := make([]models.CachedRoundRecord, 0, len(rounds))
	for _, rec := range rounds {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Round < out[j].Round })
	return out, nil
}

// Ping always succeeds
func (r *MemoryRoundRecordRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Writes returns the number of upserts accepted since creation
func (r *MemoryRoundRecordRepository) Writes() int64 {
	return r.writes.Load()
}
