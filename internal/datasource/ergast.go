package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/paddock/internal/metrics"
	"github.com/yourusername/paddock/internal/models"
	"github.com/yourusername/paddock/internal/pagination"
)

// DefaultBaseURL is the public Ergast-compatible endpoint
const DefaultBaseURL = "https://api.jolpi.ca/ergast/f1"

// ErgastClient implements ResultsSource against an Ergast-compatible API
type ErgastClient struct {
	name       string
	httpClient *RateLimitedHTTPClient
	baseURL    string
	cache      *ResponseCache
	batch      pagination.Config
	pacer      *pagination.Pacer
	logger     *logrus.Entry
	now        func() time.Time
}

// NewErgastClient creates a new results API client. cache may be nil.
func NewErgastClient(httpClient *RateLimitedHTTPClient, baseURL string, batch pagination.Config, cache *ResponseCache, logger *logrus.Entry) *ErgastClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = logrus.NewEntry(l)
	}
	return &ErgastClient{
		name:       "ergast",
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cache:      cache,
		batch:      batch,
		pacer:      pagination.NewPacer(batch.Stagger, batch.MaxStagger),
		logger:     logger.WithField("component", "ergast_client"),
		now:        time.Now,
	}
}

// Name returns the name of the data source
func (c *ErgastClient) Name() string {
	return c.name
}

// FetchPage retrieves one page of a collection. resource is the path below
// the base URL without the .json suffix, e.g. "2024/5/results".
func (c *ErgastClient) FetchPage(ctx context.Context, resource string, limit, offset int) (*MRData, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if offset < 0 {
		return nil, fmt.Errorf("offset must not be negative, got %d", offset)
	}

	url := fmt.Sprintf("%s/%s.json?limit=%d&offset=%d", c.baseURL, resource, limit, offset)
	cacheable := c.cache != nil && c.immutable(resource)
	if cacheable {
		if data, ok := c.cache.Get(url); ok {
			return data, nil
		}
	}

	label := resourceLabel(resource)
	start := time.Now()

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		code := ErrCodeNetworkError
		if errors.Is(err, ErrCircuitOpen) {
			code = ErrCodeCircuitOpen
		}
		metrics.RecordUpstreamRequest(label, code, time.Since(start).Seconds())
		return nil, NewTransportError(c.name, code, "failed to fetch "+resource, err)
	}
	defer resp.Body.Close()

	metrics.RecordUpstreamRequest(label, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		te := NewTransportError(c.name, ErrCodeNotFound, resource+" not found", nil)
		te.StatusCode = resp.StatusCode
		return nil, te
	case resp.StatusCode == http.StatusTooManyRequests:
		te := NewTransportError(c.name, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
		te.StatusCode = resp.StatusCode
		return nil, te
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		te := NewTransportError(c.name, ErrCodeServerError, fmt.Sprintf("unexpected response: %s", string(body)), nil)
		te.StatusCode = resp.StatusCode
		return nil, te
	}

	var envelope ergastResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, NewTransportError(c.name, ErrCodeInvalidData, "failed to parse response", err)
	}
	data := &envelope.MRData
	total, err := data.TotalCount()
	if err != nil {
		return nil, NewTransportError(c.name, ErrCodeInvalidData, "malformed total", err)
	}

	if cacheable && total > 0 {
		c.cache.Set(url, data)
	}
	return data, nil
}

// immutable reports whether a resource can no longer change upstream:
// anything scoped to a round (cached only once non-empty) or any season
// before the current year.
func (c *ErgastClient) immutable(resource string) bool {
	parts := strings.Split(resource, "/")
	if len(parts) == 0 {
		return false
	}
	season, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	if len(parts) > 1 {
		if _, err := strconv.Atoi(parts[1]); err == nil {
			return true
		}
	}
	return season < c.now().Year()
}

// resourceLabel keeps metric cardinality bounded
func resourceLabel(resource string) string {
	parts := strings.Split(resource, "/")
	last := parts[len(parts)-1]
	if _, err := strconv.Atoi(last); err == nil {
		return "schedule"
	}
	return last
}

// fetchAll walks every page of a collection through the batch fetcher
func fetchAll[T any](ctx context.Context, c *ErgastClient, resource string, extract func(*MRData) ([]T, error)) ([]T, error) {
	var pages int32
	bf := pagination.NewBatchFetcher[T](c.batch, c.pacer, c.logger)

	items, err := bf.FetchAll(ctx, resource, func(ctx context.Context, limit, offset int) (pagination.Page[T], error) {
		data, err := c.FetchPage(ctx, resource, limit, offset)
		if err != nil {
			return pagination.Page[T]{}, err
		}
		total, err := data.TotalCount()
		if err != nil {
			return pagination.Page[T]{}, err
		}
		rows, err := extract(data)
		if err != nil {
			return pagination.Page[T]{}, err
		}
		atomic.AddInt32(&pages, 1)
		return pagination.Page[T]{Items: rows, Total: total, Limit: limit, Offset: offset}, nil
	})

	metrics.UpdateBatchStagger(c.pacer.Current().Seconds())

	var pbe *pagination.PartialBatchError
	if errors.As(err, &pbe) {
		metrics.RecordBatchPages(resourceLabel(resource), int(atomic.LoadInt32(&pages)), len(pbe.Failed))
		// Malformed upstream rows are a contract violation, not a transport failure
		var se *models.SchemaError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	metrics.RecordBatchPages(resourceLabel(resource), int(atomic.LoadInt32(&pages)), 0)
	return items, nil
}

func races(data *MRData) []ErgastRace {
	if data.RaceTable == nil {
		return nil
	}
	return data.RaceTable.Races
}

// GetSchedule returns every scheduled round of a season
func (c *ErgastClient) GetSchedule(ctx context.Context, season string) (*models.Schedule, error) {
	if err := validateSeason(season); err != nil {
		return nil, err
	}

	rounds, err := fetchAll(ctx, c, season, func(data *MRData) ([]models.RoundInfo, error) {
		out := make([]models.RoundInfo, 0)
		for _, r := range races(data) {
			info, err := r.roundInfo()
			if err != nil {
				return nil, err
			}
			out = append(out, info)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(rounds, func(i, j int) bool { return rounds[i].Round < rounds[j].Round })
	return &models.Schedule{Season: season, Rounds: rounds}, nil
}

// GetRace returns the race results of a round
func (c *ErgastClient) GetRace(ctx context.Context, season string, round int) ([]models.RaceResult, error) {
	if err := validateRound(season, round); err != nil {
		return nil, err
	}
	return c.raceResults(ctx, fmt.Sprintf("%s/%d/results", season, round))
}

// GetSprint returns the sprint results of a round
func (c *ErgastClient) GetSprint(ctx context.Context, season string, round int) ([]models.SprintResult, error) {
	if err := validateRound(season, round); err != nil {
		return nil, err
	}
	return c.sprintResults(ctx, fmt.Sprintf("%s/%d/sprint", season, round))
}

// GetStandings returns the standings after a round in upstream order
func (c *ErgastClient) GetStandings(ctx context.Context, season string, round int, kind models.EntityKind) ([]models.StandingsSnapshot, error) {
	if err := validateRound(season, round); err != nil {
		return nil, err
	}

	var resource string
	switch kind {
	case models.EntityDriver:
		resource = fmt.Sprintf("%s/%d/driverStandings", season, round)
	case models.EntityConstructor:
		resource = fmt.Sprintf("%s/%d/constructorStandings", season, round)
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}

	return fetchAll(ctx, c, resource, func(data *MRData) ([]models.StandingsSnapshot, error) {
		if data.StandingsTable == nil {
			return nil, nil
		}
		out := make([]models.StandingsSnapshot, 0)
		for _, list := range data.StandingsTable.StandingsLists {
			snaps, err := list.snapshots(kind)
			if err != nil {
				return nil, err
			}
			out = append(out, snaps...)
		}
		return out, nil
	})
}

// GetLaps returns every lap timing row of a round
func (c *ErgastClient) GetLaps(ctx context.Context, season string, round int) ([]models.LapTiming, error) {
	if err := validateRound(season, round); err != nil {
		return nil, err
	}

	timings, err := fetchAll(ctx, c, fmt.Sprintf("%s/%d/laps", season, round), func(data *MRData) ([]models.LapTiming, error) {
		out := make([]models.LapTiming, 0)
		for _, r := range races(data) {
			rows, err := r.lapTimings()
			if err != nil {
				return nil, err
			}
			out = append(out, rows...)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(timings, func(i, j int) bool {
		if timings[i].Lap != timings[j].Lap {
			return timings[i].Lap < timings[j].Lap
		}
		return timings[i].Position < timings[j].Position
	})
	return timings, nil
}

// GetLapsLed returns the number of laps each driver completed in the lead
func (c *ErgastClient) GetLapsLed(ctx context.Context, season string, round int) (map[string]int, error) {
	timings, err := c.GetLaps(ctx, season, round)
	if err != nil {
		return nil, err
	}
	return CountLapsLed(timings), nil
}

// CountLapsLed counts, per driver, the laps on which they held position 1
func CountLapsLed(timings []models.LapTiming) map[string]int {
	led := make(map[string]int)
	seen := make(map[int]bool)
	for _, t := range timings {
		if t.Position != 1 || seen[t.Lap] {
			continue
		}
		seen[t.Lap] = true
		led[t.DriverID]++
	}
	return led
}

// GetSeasonRaces returns every race result of a season
func (c *ErgastClient) GetSeasonRaces(ctx context.Context, season string) ([]models.RaceResult, error) {
	if err := validateSeason(season); err != nil {
		return nil, err
	}
	return c.raceResults(ctx, season+"/results")
}

// GetSeasonSprints returns every sprint result of a season
func (c *ErgastClient) GetSeasonSprints(ctx context.Context, season string) ([]models.SprintResult, error) {
	if err := validateSeason(season); err != nil {
		return nil, err
	}
	return c.sprintResults(ctx, season+"/sprint")
}

// GetDriverRaces returns a driver's race results for a season
func (c *ErgastClient) GetDriverRaces(ctx context.Context, season, driverID string) ([]models.RaceResult, error) {
	if err := validateDriver(season, driverID); err != nil {
		return nil, err
	}
	return c.raceResults(ctx, fmt.Sprintf("%s/drivers/%s/results", season, driverID))
}

// GetDriverSprints returns a driver's sprint results for a season
func (c *ErgastClient) GetDriverSprints(ctx context.Context, season, driverID string) ([]models.SprintResult, error) {
	if err := validateDriver(season, driverID); err != nil {
		return nil, err
	}
	return c.sprintResults(ctx, fmt.Sprintf("%s/drivers/%s/sprint", season, driverID))
}

// GetDriverQualifying returns a driver's qualifying results for a season
func (c *ErgastClient) GetDriverQualifying(ctx context.Context, season, driverID string) ([]models.QualifyingResult, error) {
	if err := validateDriver(season, driverID); err != nil {
		return nil, err
	}

	results, err := fetchAll(ctx, c, fmt.Sprintf("%s/drivers/%s/qualifying", season, driverID), func(data *MRData) ([]models.QualifyingResult, error) {
		out := make([]models.QualifyingResult, 0)
		for _, r := range races(data) {
			rows, err := r.qualifyingResults()
			if err != nil {
				return nil, err
			}
			out = append(out, rows...)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Round < results[j].Round })
	return results, nil
}

// raceResults flattens a results collection. Pagination counts result rows,
// so one race may span pages; flattening merges them back by round.
func (c *ErgastClient) raceResults(ctx context.Context, resource string) ([]models.RaceResult, error) {
	results, err := fetchAll(ctx, c, resource, func(data *MRData) ([]models.RaceResult, error) {
		out := make([]models.RaceResult, 0)
		for _, r := range races(data) {
			rows, err := r.raceResults()
			if err != nil {
				return nil, err
			}
			out = append(out, rows...)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Round < results[j].Round })
	return results, nil
}

func (c *ErgastClient) sprintResults(ctx context.Context, resource string) ([]models.SprintResult, error) {
	results, err := fetchAll(ctx, c, resource, func(data *MRData) ([]models.SprintResult, error) {
		out := make([]models.SprintResult, 0)
		for _, r := range races(data) {
			rows, err := r.sprintResults()
			if err != nil {
				return nil, err
			}
			out = append(out, rows...)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Round < results[j].Round })
	return results, nil
}

func validateSeason(season string) error {
	if season == "current" {
		return nil
	}
	if _, err := strconv.Atoi(season); err != nil || len(season) != 4 {
		return fmt.Errorf("invalid season %q", season)
	}
	return nil
}

func validateRound(season string, round int) error {
	if err := validateSeason(season); err != nil {
		return err
	}
	if round <= 0 {
		return models.ErrInvalidRound
	}
	return nil
}

func validateDriver(season, driverID string) error {
	if err := validateSeason(season); err != nil {
		return err
	}
	if strings.TrimSpace(driverID) == "" || strings.Contains(driverID, "/") {
		return fmt.Errorf("invalid driver id %q", driverID)
	}
	return nil
}
