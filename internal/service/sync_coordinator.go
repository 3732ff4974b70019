// Package service wires the results source, cache store and analytics into
// the sync, season and comparison workflows.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/paddock/internal/analytics"
	"github.com/yourusername/paddock/internal/datasource"
	"github.com/yourusername/paddock/internal/logger"
	"github.com/yourusername/paddock/internal/metrics"
	"github.com/yourusername/paddock/internal/models"
	"github.com/yourusername/paddock/internal/pagination"
	"github.com/yourusername/paddock/internal/repository"
)

// ErrLapsLedDisabled is returned by LapsLed when laps are not tracked
var ErrLapsLedDisabled = errors.New("laps-led tracking is disabled")

// ErrRoundNotPublished marks a round that has run but whose data upstream
// has not published yet. The sync stops before it and retries next run.
var ErrRoundNotPublished = errors.New("round data not yet published")

// firstLapChartSeason is the first season upstream carries lap charts for
const firstLapChartSeason = 1996

// SyncConfig tunes the sync coordinator
type SyncConfig struct {
	// RoundInterval separates consecutive round fetches
	RoundInterval time.Duration
	// TrackLapsLed fetches lap charts for drivers and stores laps led
	TrackLapsLed bool
}

// DefaultSyncConfig returns the default coordinator settings
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		RoundInterval: 100 * time.Millisecond,
		TrackLapsLed:  true,
	}
}

// SyncResult is the outcome of a sync: the dense series of every cached
// round and what this run did to get there.
type SyncResult struct {
	Series   *models.EvolutionSeries
	Progress *SyncProgress
}

// SyncCoordinator brings the cache store up to date for one (season, entity)
// at a time. It holds no per-pair state; the cursor lives in the store.
type SyncCoordinator struct {
	source   datasource.RoundSource
	store    repository.CacheStore
	config   SyncConfig
	logger   *logger.SyncLogger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	newRunID func() string
}

// NewSyncCoordinator creates a new sync coordinator
func NewSyncCoordinator(source datasource.RoundSource, store repository.CacheStore, cfg SyncConfig, log *logrus.Entry) *SyncCoordinator {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = logrus.NewEntry(l)
	}
	if cfg.RoundInterval < 0 {
		cfg.RoundInterval = 0
	}
	return &SyncCoordinator{
		source:   source,
		store:    store,
		config:   cfg,
		logger:   logger.NewSyncLoggerFromEntry(log),
		now:      time.Now,
		sleep:    sleepContext,
		newRunID: uuid.NewString,
	}
}

// Sync reads the cursor, fetches every completed round after it in
// ascending order and upserts one record per round. Each round's write
// completes before the next round is requested, so a cursor of R means
// rounds 1..R are stored.
//
// Upstream failures, and completed rounds upstream has not published yet,
// end the run early without an error: the result carries the cached rounds
// and Progress.Stale. Store failures and schema
// violations are returned.
func (c *SyncCoordinator) Sync(ctx context.Context, season string, entity models.EntityRef) (*SyncResult, error) {
	if season == "" {
		return nil, fmt.Errorf("season is required")
	}
	if err := entity.Validate(); err != nil {
		return nil, err
	}

	start := c.now()
	progress := NewSyncProgress(c.newRunID(), season, entity.Key(), start)

	cursor, err := c.store.GetLastSyncedRound(ctx, season, entity)
	if err != nil {
		return nil, c.fail(progress, entity, fmt.Errorf("failed to read sync cursor: %w", err))
	}
	progress.CursorBefore = cursor
	if cursor != nil {
		progress.CursorAfter = *cursor
	}

	schedule, err := c.source.GetSchedule(ctx, season)
	if err != nil {
		if models.IsSchemaError(err) {
			return nil, c.fail(progress, entity, err)
		}
		progress.MarkStale(err)
		c.logger.LogSyncStale(progress.RunID, season, entity.Key(), 0, err)
		return c.finish(ctx, progress, entity)
	}
	progress.TargetRound = schedule.CompletedRounds(start)

	c.logger.LogSyncStarted(progress.RunID, season, entity.Key(), cursor, progress.TargetRound)

	if progress.CursorAfter >= progress.TargetRound {
		progress.FastPath = true
		return c.finish(ctx, progress, entity)
	}

	prev, err := c.lastPayload(ctx, season, entity, progress.CursorAfter)
	if err != nil {
		return nil, c.fail(progress, entity, err)
	}

	for round := progress.CursorAfter + 1; round <= progress.TargetRound; round++ {
		if progress.RoundsFetched > 0 {
			if err := c.sleep(ctx, c.config.RoundInterval); err != nil {
				return nil, c.fail(progress, entity, err)
			}
		}

		payload, err := c.fetchRound(ctx, schedule, round, entity, prev)
		if err != nil {
			if models.IsSchemaError(err) {
				return nil, c.fail(progress, entity, fmt.Errorf("round %d: %w", round, err))
			}
			var pbe *pagination.PartialBatchError
			if errors.As(err, &pbe) {
				c.logger.LogPartialBatch(progress.RunID, pbe.Resource, pbe.Succeeded, pbe.Failed, pbe.Err)
			}
			progress.MarkStale(err)
			c.logger.LogSyncStale(progress.RunID, season, entity.Key(), round, err)
			break
		}
		progress.RecordFetched()

		record := &models.CachedRoundRecord{
			Season:   season,
			Round:    round,
			Entity:   entity,
			Payload:  *payload,
			SyncedAt: c.now().UTC(),
		}
		if err := c.store.UpsertRoundRecord(ctx, record); err != nil {
			return nil, c.fail(progress, entity, err)
		}
		progress.RecordWritten(round)
		prev = payload

		metrics.RecordRoundWritten(string(entity.Kind))
		metrics.UpdateSyncCursor(season, entity.Key(), round)
		c.logger.LogRoundSynced(progress.RunID, season, entity.Key(), round, payload.Position, payload.Points.String())
	}

	return c.finish(ctx, progress, entity)
}

// LapsLed syncs a driver and returns laps led per round, most recent first
func (c *SyncCoordinator) LapsLed(ctx context.Context, season, driverID string) (*LapsLedResult, error) {
	if !c.config.TrackLapsLed {
		return nil, ErrLapsLedDisabled
	}
	res, err := c.Sync(ctx, season, models.Driver(driverID))
	if err != nil {
		return nil, err
	}

	out := &LapsLedResult{
		Season:   season,
		DriverID: driverID,
		Rounds:   make([]LapsLedRound, 0, len(res.Series.Rounds)),
		Progress: res.Progress,
	}
	for _, p := range res.Series.Reversed() {
		out.Rounds = append(out.Rounds, LapsLedRound{Round: p.Round, Locality: p.Locality, LapsLed: p.LapsLed})
		out.Total += p.LapsLed
	}
	return out, nil
}

// LapsLedResult is the laps-led view of a driver's season
type LapsLedResult struct {
	Season   string         `json:"season"`
	DriverID string         `json:"driver_id"`
	Rounds   []LapsLedRound `json:"rounds"`
	Total    int            `json:"total"`
	Progress *SyncProgress  `json:"-"`
}

// LapsLedRound is one round of the laps-led view
type LapsLedRound struct {
	Round    int    `json:"round"`
	Locality string `json:"locality"`
	LapsLed  int    `json:"laps_led"`
}

// fetchRound derives the entity's payload for one round. An entity missing
// from the round's standings keeps the previous round's points at position 0.
func (c *SyncCoordinator) fetchRound(ctx context.Context, schedule *models.Schedule, round int, entity models.EntityRef, prev *models.RoundPayload) (*models.RoundPayload, error) {
	rows, err := c.source.GetStandings(ctx, schedule.Season, round, entity.Kind)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("round %d %s standings: %w", round, entity.Kind, ErrRoundNotPublished)
	}
	filled, err := analytics.GapFill(rows)
	if err != nil {
		return nil, err
	}

	payload := &models.RoundPayload{}
	if info, ok := schedule.Round(round); ok {
		payload.RaceName = info.RaceName
		payload.Locality = info.Locality
	}

	found := false
	for _, row := range filled {
		if row.Entity != entity {
			continue
		}
		found = true
		payload.Position = row.Position
		payload.PositionText = row.PositionText
		payload.Points = row.Points
		payload.Wins = row.Wins
		payload.ConstructorID = row.ConstructorID
		break
	}
	if !found && prev != nil {
		payload.Points = prev.Points
		payload.Wins = prev.Wins
		payload.ConstructorID = prev.ConstructorID
	}

	if c.config.TrackLapsLed && entity.Kind == models.EntityDriver && hasLapCharts(schedule.Season) {
		led, err := c.source.GetLapsLed(ctx, schedule.Season, round)
		if err != nil {
			return nil, err
		}
		if len(led) == 0 {
			return nil, fmt.Errorf("round %d lap chart: %w", round, ErrRoundNotPublished)
		}
		payload.LapsLed = led[entity.ID]
	}

	return payload, nil
}

// hasLapCharts reports whether upstream keeps lap-by-lap positions for a season
func hasLapCharts(season string) bool {
	year, err := strconv.Atoi(season)
	if err != nil {
		return true
	}
	return year >= firstLapChartSeason
}

// lastPayload returns the payload stored for the cursor round, nil before any
func (c *SyncCoordinator) lastPayload(ctx context.Context, season string, entity models.EntityRef, cursor int) (*models.RoundPayload, error) {
	if cursor <= 0 {
		return nil, nil
	}
	records, err := c.store.GetRoundRecords(ctx, season, entity)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached rounds: %w", err)
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Round == cursor {
			p := records[i].Payload
			return &p, nil
		}
	}
	return nil, nil
}

// finish reads every cached round back into the dense series
func (c *SyncCoordinator) finish(ctx context.Context, progress *SyncProgress, entity models.EntityRef) (*SyncResult, error) {
	records, err := c.store.GetRoundRecords(ctx, progress.Season, entity)
	if err != nil {
		return nil, c.fail(progress, entity, fmt.Errorf("failed to read cached rounds: %w", err))
	}

	progress.Duration = c.now().Sub(progress.StartTime)
	metrics.RecordSyncRun(string(entity.Kind), progress.Outcome(), progress.Duration.Seconds())
	c.logger.LogSyncCompleted(progress.RunID, progress.Season, entity.Key(), progress.RoundsWritten, progress.CursorAfter, progress.FastPath, progress.Duration)

	return &SyncResult{
		Series:   analytics.SeriesFromRecords(progress.Season, entity, records),
		Progress: progress,
	}, nil
}

func (c *SyncCoordinator) fail(progress *SyncProgress, entity models.EntityRef, err error) error {
	progress.Duration = c.now().Sub(progress.StartTime)
	metrics.RecordSyncRun(string(entity.Kind), OutcomeFailed, progress.Duration.Seconds())
	c.logger.WithError(err).WithFields(logrus.Fields{
		"run_id": progress.RunID,
		"season": progress.Season,
		"entity": progress.Entity,
	}).Error("Sync failed")
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
