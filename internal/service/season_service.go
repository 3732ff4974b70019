package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/paddock/internal/analytics"
	"github.com/yourusername/paddock/internal/datasource"
	"github.com/yourusername/paddock/internal/models"
)

// SeasonDataSource is what the season service reads from upstream
type SeasonDataSource interface {
	datasource.RoundSource
	datasource.SeasonSource
}

// SeasonService derives whole-season views straight from the results source
type SeasonService struct {
	source        SeasonDataSource
	options       analytics.Options
	roundInterval time.Duration
	logger        *logrus.Entry
	now           func() time.Time
	sleep         func(ctx context.Context, d time.Duration) error
}

// NewSeasonService creates a new season service
func NewSeasonService(source SeasonDataSource, opts analytics.Options, roundInterval time.Duration, logger *logrus.Entry) *SeasonService {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = logrus.NewEntry(l)
	}
	return &SeasonService{
		source:        source,
		options:       opts,
		roundInterval: roundInterval,
		logger:        logger.WithField("component", "season_service"),
		now:           time.Now,
		sleep:         sleepContext,
	}
}

// SeasonReport is a season summary with presentation labels
type SeasonReport struct {
	*analytics.SeasonSummary
	Labels  map[int]string           `json:"labels"`
	Rolling []analytics.RollingRound `json:"rolling"`
}

// Summary aggregates every race and sprint result of a season
func (s *SeasonService) Summary(ctx context.Context, season string) (*SeasonReport, error) {
	var (
		schedule *models.Schedule
		races    []models.RaceResult
		sprints  []models.SprintResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		schedule, err = s.source.GetSchedule(gctx, season)
		if err != nil {
			return fmt.Errorf("failed to fetch schedule: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		races, err = s.source.GetSeasonRaces(gctx, season)
		if err != nil {
			return fmt.Errorf("failed to fetch race results: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sprints, err = s.source.GetSeasonSprints(gctx, season)
		if err != nil {
			return fmt.Errorf("failed to fetch sprint results: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary, err := analytics.AggregateSeason(season, races, sprints, s.options)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"season":       season,
		"races":        len(races),
		"sprints":      len(sprints),
		"drivers":      len(summary.Drivers),
		"constructors": len(summary.Constructors),
	}).Info("Season aggregated")

	return &SeasonReport{
		SeasonSummary: summary,
		Labels:        schedule.Labels(),
		Rolling:       summary.DriverMatrix.Rolling(),
	}, nil
}

// EvolutionReport holds the standings evolution of every entity of one kind
type EvolutionReport struct {
	Season string                    `json:"season"`
	Kind   models.EntityKind         `json:"kind"`
	Labels map[int]string            `json:"labels"`
	Series []*models.EvolutionSeries `json:"series"`
}

// StandingsEvolution fetches the standings after every completed round, one
// round at a time, and builds a dense series per entity. Series are ordered
// by the latest round's position.
func (s *SeasonService) StandingsEvolution(ctx context.Context, season string, kind models.EntityKind) (*EvolutionReport, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}

	schedule, err := s.source.GetSchedule(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule: %w", err)
	}
	completed := schedule.CompletedRounds(s.now())

	rounds := make([]analytics.RoundStandings, 0, completed)
	for round := 1; round <= completed; round++ {
		if round > 1 {
			if err := s.sleep(ctx, s.roundInterval); err != nil {
				return nil, err
			}
		}
		rows, err := s.source.GetStandings(ctx, season, round, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch standings for round %d: %w", round, err)
		}
		rs := analytics.RoundStandings{Round: round, Rows: rows}
		if info, ok := schedule.Round(round); ok {
			rs.RaceName = info.RaceName
			rs.Locality = info.Locality
		}
		rounds = append(rounds, rs)
	}

	bySeries, err := analytics.BuildEvolution(season, rounds)
	if err != nil {
		return nil, err
	}

	series := make([]*models.EvolutionSeries, 0, len(bySeries))
	for _, sr := range bySeries {
		series = append(series, sr)
	}
	sort.Slice(series, func(i, j int) bool {
		pi, pj := finalPosition(series[i]), finalPosition(series[j])
		if pi != pj {
			return pi < pj
		}
		return series[i].Entity.ID < series[j].Entity.ID
	})

	return &EvolutionReport{
		Season: season,
		Kind:   kind,
		Labels: schedule.Labels(),
		Series: series,
	}, nil
}

// finalPosition ranks unplaced entities after every placed one
func finalPosition(s *models.EvolutionSeries) int {
	if len(s.Rounds) == 0 || s.Rounds[len(s.Rounds)-1].Position == 0 {
		return analytics.NoPosition
	}
	return s.Rounds[len(s.Rounds)-1].Position
}
