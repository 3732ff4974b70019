package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/paddock/internal/database"
	"github.com/yourusername/paddock/internal/models"
)

// PostgresRoundRecordRepository implements CacheStore using PostgreSQL
type PostgresRoundRecordRepository struct {
	db *database.DB
}

// NewPostgresRoundRecordRepository creates a new PostgreSQL round record repository
func NewPostgresRoundRecordRepository(db *database.DB) *PostgresRoundRecordRepository {
	return &PostgresRoundRecordRepository{db: db}
}

// Backend returns the backend name
func (r *PostgresRoundRecordRepository) Backend() string {
	return BackendPostgres
}

// GetLastSyncedRound retrieves the sync cursor for a pair
func (r *PostgresRoundRecordRepository) GetLastSyncedRound(ctx context.Context, season string, entity models.EntityRef) (*int, error) {
	query := `
		SELECT last_round
		FROM sync_cursors
		WHERE season = $1 AND entity_kind = $2 AND entity_id = $3
	`

	var last int
	err := r.db.GetPool().QueryRow(ctx, query, season, string(entity.Kind), entity.ID).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync cursor: %w", err)
	}
	return &last, nil
}

// UpsertRoundRecord writes the record and advances the cursor in one transaction
func (r *PostgresRoundRecordRepository) UpsertRoundRecord(ctx context.Context, record *models.CachedRoundRecord) error {
	if err := validateRecord(record); err != nil {
		return newWriteError(BackendPostgres, record, err)
	}

	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return newWriteError(BackendPostgres, record, fmt.Errorf("failed to encode payload: %w", err))
	}
	syncedAt := record.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now().UTC()
	}

	recordQuery := `
		INSERT INTO round_records (season, round, entity_kind, entity_id, payload, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (season, round, entity_kind, entity_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			synced_at = EXCLUDED.synced_at
	`
	cursorQuery := `
		INSERT INTO sync_cursors (season, entity_kind, entity_id, last_round, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (season, entity_kind, entity_id) DO UPDATE SET
			last_round = GREATEST(sync_cursors.last_round, EXCLUDED.last_round),
			updated_at = EXCLUDED.updated_at
	`

	err = r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, recordQuery,
			record.Season, record.Round, string(record.Entity.Kind), record.Entity.ID, payload, syncedAt,
		); err != nil {
			return fmt.Errorf("failed to upsert round record: %w", err)
		}
		if _, err := tx.Exec(ctx, cursorQuery,
			record.Season, string(record.Entity.Kind), record.Entity.ID, record.Round, syncedAt,
		); err != nil {
			return fmt.Errorf("failed to advance sync cursor: %w", err)
		}
		return nil
	})
	if err != nil {
		return newWriteError(BackendPostgres, record, err)
	}
	return nil
}

// GetRoundRecords retrieves every cached round for a pair, ascending
func (r *PostgresRoundRecordRepository) GetRoundRecords(ctx context.Context, season string, entity models.EntityRef) ([]models.CachedRoundRecord, error) {
	query := `
		SELECT season, round, payload, synced_at
		FROM round_records
		WHERE season = $1 AND entity_kind = $2 AND entity_id = $3
		ORDER BY round ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, season, string(entity.Kind), entity.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query round records: %w", err)
	}
	defer rows.Close()

	records := make([]models.CachedRoundRecord, 0)
	for rows.Next() {
		rec := models.CachedRoundRecord{Entity: entity}
		var payload []byte
		if err := rows.Scan(&rec.Season, &rec.Round, &payload, &rec.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan round record: %w", err)
		}
		if err := json.Unmarshal(payload, &rec.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload for round %d: %w", rec.Round, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating round records: %w", err)
	}

	return records, nil
}

// Ping verifies database connectivity
func (r *PostgresRoundRecordRepository) Ping(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
