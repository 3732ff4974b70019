package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/paddock/internal/models"
	"github.com/yourusername/paddock/internal/repository"
)

var seasonStart = time.Date(2024, 3, 2, 15, 0, 0, 0, time.UTC)

// afterRound is a clock reading just after the given round's race
func afterRound(round int) time.Time {
	return seasonStart.AddDate(0, 0, 7*(round-1)).Add(time.Hour)
}

var localities = []string{"Sakhir", "Jeddah", "Melbourne", "Suzuka", "Shanghai"}

// fakeSource serves a five-round season. Standings are generated per round
// unless overridden; failures can be injected per round.
type fakeSource struct {
	mu sync.Mutex

	schedule    *models.Schedule
	scheduleErr error

	standings     map[int][]models.StandingsSnapshot
	constructors  map[int][]models.StandingsSnapshot
	lapsLed       map[int]map[string]int
	standingsErr  map[int]error
	lapsErr       map[int]error
	standingCalls []int
	lapCalls      []int

	races   []models.RaceResult
	sprints []models.SprintResult
}

func newFakeSource() *fakeSource {
	f := &fakeSource{
		schedule:     &models.Schedule{Season: "2024"},
		standings:    make(map[int][]models.StandingsSnapshot),
		constructors: make(map[int][]models.StandingsSnapshot),
		lapsLed:      make(map[int]map[string]int),
		standingsErr: make(map[int]error),
		lapsErr:      make(map[int]error),
	}
	for i, loc := range localities {
		round := i + 1
		f.schedule.Rounds = append(f.schedule.Rounds, models.RoundInfo{
			Round:    round,
			RaceName: loc + " Grand Prix",
			Locality: loc,
			Date:     seasonStart.AddDate(0, 0, 7*i),
			Sprint:   round == 5,
		})

		rows := []models.StandingsSnapshot{
			snapshot(round, "max_verstappen", "1", 25*round, "red_bull"),
			snapshot(round, "norris", "2", 18*round, "mclaren"),
		}
		// sainz misses round 4 entirely
		if round != 4 {
			rows = append(rows, snapshot(round, "sainz", "-", 0, "ferrari"))
		}
		f.standings[round] = rows
		f.constructors[round] = []models.StandingsSnapshot{
			{Season: "2024", Round: round, Entity: models.Constructor("red_bull"), PositionText: "1", Points: decimal.NewFromInt(int64(40 * round))},
			{Season: "2024", Round: round, Entity: models.Constructor("mclaren"), PositionText: "2", Points: decimal.NewFromInt(int64(30 * round))},
		}
		f.lapsLed[round] = map[string]int{"max_verstappen": 50 + round, "norris": 7 - round}
	}
	return f
}

func snapshot(round int, driver, positionText string, points int, team string) models.StandingsSnapshot {
	return models.StandingsSnapshot{
		Season:        "2024",
		Round:         round,
		Entity:        models.Driver(driver),
		PositionText:  positionText,
		Points:        decimal.NewFromInt(int64(points)),
		Wins:          0,
		ConstructorID: team,
	}
}

func (f *fakeSource) GetSchedule(ctx context.Context, season string) (*models.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scheduleErr != nil {
		return nil, f.scheduleErr
	}
	return f.schedule, nil
}

func (f *fakeSource) GetRace(ctx context.Context, season string, round int) ([]models.RaceResult, error) {
	out := make([]models.RaceResult, 0)
	for _, r := range f.races {
		if r.Round == round {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) GetSprint(ctx context.Context, season string, round int) ([]models.SprintResult, error) {
	out := make([]models.SprintResult, 0)
	for _, r := range f.sprints {
		if r.Round == round {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) GetStandings(ctx context.Context, season string, round int, kind models.EntityKind) ([]models.StandingsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.standingCalls = append(f.standingCalls, round)
	if err := f.standingsErr[round]; err != nil {
		return nil, err
	}
	if kind == models.EntityConstructor {
		return f.constructors[round], nil
	}
	return f.standings[round], nil
}

func (f *fakeSource) GetLapsLed(ctx context.Context, season string, round int) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lapCalls = append(f.lapCalls, round)
	if err := f.lapsErr[round]; err != nil {
		return nil, err
	}
	return f.lapsLed[round], nil
}

func (f *fakeSource) GetSeasonRaces(ctx context.Context, season string) ([]models.RaceResult, error) {
	return f.races, nil
}

func (f *fakeSource) GetSeasonSprints(ctx context.Context, season string) ([]models.SprintResult, error) {
	return f.sprints, nil
}

func (f *fakeSource) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.standingCalls...)
}

// failingStore rejects upserts for one round
type failingStore struct {
	*repository.MemoryRoundRecordRepository
	failRound int
}

func (s *failingStore) UpsertRoundRecord(ctx context.Context, record *models.CachedRoundRecord) error {
	if record.Round == s.failRound {
		return &repository.CacheWriteError{
			Backend: "test",
			Season:  record.Season,
			Round:   record.Round,
			Entity:  record.Entity,
			Err:     fmt.Errorf("disk full"),
		}
	}
	return s.MemoryRoundRecordRepository.UpsertRoundRecord(ctx, record)
}

// sleepRecorder stands in for the inter-round delay
type sleepRecorder struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slept = append(s.slept, d)
	return ctx.Err()
}

func newTestCoordinator(source *fakeSource, store repository.CacheStore, now time.Time) (*SyncCoordinator, *sleepRecorder) {
	c := NewSyncCoordinator(source, store, DefaultSyncConfig(), nil)
	rec := &sleepRecorder{}
	c.sleep = rec.sleep
	c.now = func() time.Time { return now }
	n := 0
	c.newRunID = func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
	return c, rec
}
