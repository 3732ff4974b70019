// Package scheduler re-syncs tracked entities on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/paddock/internal/metrics"
	"github.com/yourusername/paddock/internal/models"
	"github.com/yourusername/paddock/internal/service"
)

// Syncer is the part of the sync coordinator the scheduler drives
type Syncer interface {
	Sync(ctx context.Context, season string, entity models.EntityRef) (*service.SyncResult, error)
}

// RunSummary describes the last completed re-sync pass
type RunSummary struct {
	Started  time.Time
	Duration time.Duration
	Synced   int
	Stale    int
	Failed   int
}

// Scheduler manages scheduled re-sync jobs
type Scheduler struct {
	cron            *cron.Cron
	syncer          Syncer
	logger          *logrus.Entry
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	lastRun         *RunSummary
	jobTimeout      time.Duration
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler. Overlapping runs of a job are skipped.
func NewScheduler(syncer Syncer, logger *logrus.Entry) *Scheduler {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = logrus.NewEntry(l)
	}
	logger = logger.WithField("component", "scheduler")

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logger))),
		),
		syncer:          syncer,
		logger:          logger,
		jobIDs:          make([]cron.EntryID, 0),
		jobTimeout:      time.Hour,
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleResync schedules a sync of every entity in a season
func (s *Scheduler) ScheduleResync(cronExpression, season string, entities []models.EntityRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if len(entities) == 0 {
		return fmt.Errorf("no entities to sync")
	}
	for _, e := range entities {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("invalid entity %s: %w", e, err)
		}
	}

	tracked := append([]models.EntityRef(nil), entities...)
	jobFunc := func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		s.RunOnce(ctx, season, tracked)
	}

	entryID, err := s.cron.AddFunc(cronExpression, jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	metrics.UpdateTrackedEntities(len(tracked))
	s.logger.WithFields(logrus.Fields{
		"cron":     cronExpression,
		"season":   season,
		"entities": len(tracked),
	}).Info("Scheduled re-sync job")

	return nil
}

// RunOnce syncs each entity in turn. Failures are logged and counted; they
// never stop the remaining entities.
func (s *Scheduler) RunOnce(ctx context.Context, season string, entities []models.EntityRef) RunSummary {
	summary := RunSummary{Started: time.Now()}

	for _, e := range entities {
		if ctx.Err() != nil {
			summary.Failed++
			continue
		}
		res, err := s.syncer.Sync(ctx, season, e)
		switch {
		case err != nil:
			summary.Failed++
			s.logger.WithError(err).WithField("entity", e.Key()).Error("Scheduled sync failed")
		case res.Progress.Stale:
			summary.Stale++
		default:
			summary.Synced++
		}
	}

	summary.Duration = time.Since(summary.Started)
	s.mu.Lock()
	s.lastRun = &summary
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"season":   season,
		"synced":   summary.Synced,
		"stale":    summary.Stale,
		"failed":   summary.Failed,
		"duration": summary.Duration,
	}).Info("Re-sync pass completed")

	return summary
}

// LastRun returns the summary of the last completed pass, nil before any
func (s *Scheduler) LastRun() *RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRun == nil {
		return nil
	}
	out := *s.lastRun
	return &out
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop stops the scheduler, waiting up to the graceful timeout for running jobs
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("timed out waiting for running jobs")
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}

// TrackedEntities builds the entity list from configured ids
func TrackedEntities(drivers, constructors []string) []models.EntityRef {
	out := make([]models.EntityRef, 0, len(drivers)+len(constructors))
	for _, id := range drivers {
		out = append(out, models.Driver(id))
	}
	for _, id := range constructors {
		out = append(out, models.Constructor(id))
	}
	return out
}
