package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/yourusername/paddock/internal/models"
)

// DefaultRedisKeyPrefix namespaces every key written by the Redis store
const DefaultRedisKeyPrefix = "paddock"

// upsertScript stores the round in the record hash and raises the cursor
// only when the new round is higher. Both happen in one script call.
var upsertScript = redis.NewScript(`
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
local current = tonumber(redis.call('GET', KEYS[2]) or '0')
local round = tonumber(ARGV[1])
if round > current then
	redis.call('SET', KEYS[2], ARGV[1])
	return round
end
return current
`)

// RedisRoundRecordRepository implements CacheStore on Redis. Records of a
// pair live in one hash keyed by round; the cursor is a plain integer key.
type RedisRoundRecordRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRoundRecordRepository creates a Redis-backed round record repository
func NewRedisRoundRecordRepository(client *redis.Client, prefix string) *RedisRoundRecordRepository {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisRoundRecordRepository{client: client, prefix: prefix}
}

// Backend returns the backend name
func (r *RedisRoundRecordRepository) Backend() string {
	return BackendRedis
}

func (r *RedisRoundRecordRepository) recordsKey(season string, entity models.EntityRef) string {
	return fmt.Sprintf("%s:rounds:%s:%s:%s", r.prefix, season, entity.Kind, entity.ID)
}

func (r *RedisRoundRecordRepository) cursorKey(season string, entity models.EntityRef) string {
	return fmt.Sprintf("%s:cursor:%s:%s:%s", r.prefix, season, entity.Kind, entity.ID)
}

// GetLastSyncedRound reads the cursor key, nil when missing
func (r *RedisRoundRecordRepository) GetLastSyncedRound(ctx context.Context, season string, entity models.EntityRef) (*int, error) {
	last, err := r.client.Get(ctx, r.cursorKey(season, entity)).Int()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cursor: %w", err)
	}
	return &last, nil
}

// UpsertRoundRecord runs the upsert script
func (r *RedisRoundRecordRepository) UpsertRoundRecord(ctx context.Context, record *models.CachedRoundRecord) error {
	if err := validateRecord(record); err != nil {
		return newWriteError(BackendRedis, record, err)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return newWriteError(BackendRedis, record, fmt.Errorf("marshal record: %w", err))
	}

	keys := []string{r.recordsKey(record.Season, record.Entity), r.cursorKey(record.Season, record.Entity)}
	if err := upsertScript.Run(ctx, r.client, keys, strconv.Itoa(record.Round), data).Err(); err != nil {
		return newWriteError(BackendRedis, record, fmt.Errorf("redis upsert: %w", err))
	}
	return nil
}

// GetRoundRecords returns every round in the pair's hash, ascending
func (r *RedisRoundRecordRepository) GetRoundRecords(ctx context.Context, season string, entity models.EntityRef) ([]models.CachedRoundRecord, error) {
	fields, err := r.client.HGetAll(ctx, r.recordsKey(season, entity)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	records := make([]models.CachedRoundRecord, 0, len(fields))
	for field, raw := range fields {
		var rec models.CachedRoundRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal round %s: %w", field, err)
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Round < records[j].Round })
	return records, nil
}

// Ping verifies the Redis connection
func (r *RedisRoundRecordRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
