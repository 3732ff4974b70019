package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// SyncLogger provides dedicated logging for sync cycles.
type SyncLogger struct {
	*logrus.Entry
}

// NewSyncLogger creates a new sync logger.
func NewSyncLogger(baseLogger *logrus.Logger) *SyncLogger {
	return &SyncLogger{
		Entry: baseLogger.WithField("component", "sync"),
	}
}

// NewSyncLoggerFromEntry wraps an existing entry, keeping its fields.
func NewSyncLoggerFromEntry(entry *logrus.Entry) *SyncLogger {
	return &SyncLogger{
		Entry: entry.WithField("component", "sync"),
	}
}

// LogSyncStarted logs the start of a sync cycle.
func (sl *SyncLogger) LogSyncStarted(runID, season, entity string, cursor *int, target int) {
	fields := logrus.Fields{
		"event_type":   "sync_started",
		"run_id":       runID,
		"season":       season,
		"entity":       entity,
		"target_round": target,
	}
	if cursor != nil {
		fields["cursor"] = *cursor
	}
	sl.WithFields(fields).Debug("Sync started")
}

// LogRoundSynced logs a round persisted to the cache store.
func (sl *SyncLogger) LogRoundSynced(runID, season, entity string, round, position int, points string) {
	sl.WithFields(logrus.Fields{
		"event_type": "round_synced",
		"run_id":     runID,
		"season":     season,
		"entity":     entity,
		"round":      round,
		"position":   position,
		"points":     points,
	}).Debug("Round synced")
}

// LogSyncCompleted logs a finished sync cycle.
func (sl *SyncLogger) LogSyncCompleted(runID, season, entity string, roundsWritten, lastRound int, fastPath bool, duration time.Duration) {
	sl.WithFields(logrus.Fields{
		"event_type":     "sync_completed",
		"run_id":         runID,
		"season":         season,
		"entity":         entity,
		"rounds_written": roundsWritten,
		"last_round":     lastRound,
		"fast_path":      fastPath,
		"duration_ms":    duration.Milliseconds(),
	}).Info("Sync completed")
}

// LogPartialBatch logs a batch that failed part way through a resource.
func (sl *SyncLogger) LogPartialBatch(runID, resource string, succeeded, failed []int, err error) {
	sl.WithFields(logrus.Fields{
		"event_type":        "partial_batch",
		"run_id":            runID,
		"resource":          resource,
		"succeeded_offsets": succeeded,
		"failed_offsets":    failed,
	}).WithError(err).Warn("Partial batch, no progress this cycle")
}

// LogSyncStale logs a sync that fell back to cached data.
func (sl *SyncLogger) LogSyncStale(runID, season, entity string, round int, err error) {
	sl.WithFields(logrus.Fields{
		"event_type": "sync_stale",
		"run_id":     runID,
		"season":     season,
		"entity":     entity,
		"round":      round,
	}).WithError(err).Warn("Sync incomplete, serving cached rounds")
}
