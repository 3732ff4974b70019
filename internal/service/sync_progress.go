package service

import (
	"fmt"
	"time"
)

// Sync outcomes reported in metrics and logs
const (
	OutcomeSynced   = "synced"
	OutcomeFastPath = "fast_path"
	OutcomeStale    = "stale"
	OutcomeFailed   = "failed"
)

// SyncProgress tracks what one sync run did
type SyncProgress struct {
	RunID         string
	Season        string
	Entity        string
	StartTime     time.Time
	Duration      time.Duration
	CursorBefore  *int
	CursorAfter   int
	TargetRound   int
	RoundsFetched int
	RoundsWritten int
	FastPath      bool
	Stale         bool
	StaleReason   string
}

// NewSyncProgress creates a progress tracker for a run
func NewSyncProgress(runID, season, entity string, start time.Time) *SyncProgress {
	return &SyncProgress{
		RunID:     runID,
		Season:    season,
		Entity:    entity,
		StartTime: start,
	}
}

// RecordFetched increments the fetched round count
func (p *SyncProgress) RecordFetched() {
	p.RoundsFetched++
}

// RecordWritten records a persisted round and moves the cursor
func (p *SyncProgress) RecordWritten(round int) {
	p.RoundsWritten++
	if round > p.CursorAfter {
		p.CursorAfter = round
	}
}

// MarkStale records why the run stopped short of the target
func (p *SyncProgress) MarkStale(err error) {
	p.Stale = true
	if err != nil {
		p.StaleReason = err.Error()
	}
}

// Complete reports whether the cursor reached the target round
func (p *SyncProgress) Complete() bool {
	return !p.Stale && p.CursorAfter >= p.TargetRound
}

// Outcome classifies the run for metrics
func (p *SyncProgress) Outcome() string {
	switch {
	case p.Stale:
		return OutcomeStale
	case p.FastPath:
		return OutcomeFastPath
	default:
		return OutcomeSynced
	}
}

// String returns a formatted string representation of the progress
func (p *SyncProgress) String() string {
	before := "none"
	if p.CursorBefore != nil {
		before = fmt.Sprintf("%d", *p.CursorBefore)
	}
	return fmt.Sprintf(
		"SyncProgress{Run=%s, Season=%s, Entity=%s, Cursor=%s->%d, Target=%d, Fetched=%d, Written=%d, Outcome=%s, Duration=%v}",
		p.RunID,
		p.Season,
		p.Entity,
		before,
		p.CursorAfter,
		p.TargetRound,
		p.RoundsFetched,
		p.RoundsWritten,
		p.Outcome(),
		p.Duration,
	)
}
