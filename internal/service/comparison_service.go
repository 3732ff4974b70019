package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/paddock/internal/analytics"
	"github.com/yourusername/paddock/internal/datasource"
)

// ComparisonService compares two drivers over a season
type ComparisonService struct {
	source datasource.DriverSource
	logger *logrus.Entry
}

// NewComparisonService creates a new comparison service
func NewComparisonService(source datasource.DriverSource, logger *logrus.Entry) *ComparisonService {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = logrus.NewEntry(l)
	}
	return &ComparisonService{
		source: source,
		logger: logger.WithField("component", "comparison_service"),
	}
}

// CompareDrivers fetches both drivers' histories concurrently and computes
// their stats independently. A driver without results gets zeroed stats.
func (s *ComparisonService) CompareDrivers(ctx context.Context, season, driverA, driverB string) (*analytics.Comparison, error) {
	if driverA == "" || driverB == "" {
		return nil, fmt.Errorf("two driver ids are required")
	}

	var a, b analytics.DriverResults
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = s.driverResults(gctx, season, driverA)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = s.driverResults(gctx, season, driverB)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cmp := analytics.Compare(season, a, b)
	s.logger.WithFields(logrus.Fields{
		"season":   season,
		"driver_a": driverA,
		"found_a":  cmp.A.Found,
		"driver_b": driverB,
		"found_b":  cmp.B.Found,
	}).Debug("Drivers compared")
	return &cmp, nil
}

// driverResults reads one driver's races, sprints and qualifying in turn
func (s *ComparisonService) driverResults(ctx context.Context, season, driverID string) (analytics.DriverResults, error) {
	out := analytics.DriverResults{DriverID: driverID}

	races, err := s.source.GetDriverRaces(ctx, season, driverID)
	if err != nil && !isNotFound(err) {
		return out, fmt.Errorf("failed to fetch races for %s: %w", driverID, err)
	}
	out.Races = races

	sprints, err := s.source.GetDriverSprints(ctx, season, driverID)
	if err != nil && !isNotFound(err) {
		return out, fmt.Errorf("failed to fetch sprints for %s: %w", driverID, err)
	}
	out.Sprints = sprints

	qualifying, err := s.source.GetDriverQualifying(ctx, season, driverID)
	if err != nil && !isNotFound(err) {
		return out, fmt.Errorf("failed to fetch qualifying for %s: %w", driverID, err)
	}
	out.Qualifying = qualifying

	return out, nil
}

// isNotFound reports an upstream 404, which means "no results" here
func isNotFound(err error) bool {
	var te *datasource.TransportError
	return errors.As(err, &te) && te.Code == datasource.ErrCodeNotFound
}
