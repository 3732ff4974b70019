package datasource

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/paddock/internal/models"
)

// ergastResponse is the envelope of every Ergast-compatible response
type ergastResponse struct {
	MRData MRData `json:"MRData"`
}

// MRData is one page of an Ergast-compatible collection
type MRData struct {
	Series         string          `json:"series"`
	Limit          string          `json:"limit"`
	Offset         string          `json:"offset"`
	Total          string          `json:"total"`
	RaceTable      *RaceTable      `json:"RaceTable,omitempty"`
	StandingsTable *StandingsTable `json:"StandingsTable,omitempty"`
}

// TotalCount parses the collection size
func (d *MRData) TotalCount() (int, error) {
	return parseCount("total", d.Total)
}

// RaceTable holds races and their nested result rows
type RaceTable struct {
	Season string       `json:"season"`
	Round  string       `json:"round,omitempty"`
	Races  []ErgastRace `json:"Races"`
}

// ErgastRace is one race entry; which nested slice is populated depends on the resource
type ErgastRace struct {
	Season            string             `json:"season"`
	Round             string             `json:"round"`
	RaceName          string             `json:"raceName"`
	Circuit           ErgastCircuit      `json:"Circuit"`
	Date              string             `json:"date"`
	Time              string             `json:"time,omitempty"`
	Sprint            *ErgastSession     `json:"Sprint,omitempty"`
	Results           []ErgastResult     `json:"Results,omitempty"`
	SprintResults     []ErgastResult     `json:"SprintResults,omitempty"`
	QualifyingResults []ErgastQualifying `json:"QualifyingResults,omitempty"`
	Laps              []ErgastLap        `json:"Laps,omitempty"`
}

// ErgastSession is a scheduled sub-session of a race weekend
type ErgastSession struct {
	Date string `json:"date"`
	Time string `json:"time,omitempty"`
}

// ErgastCircuit describes a race venue
type ErgastCircuit struct {
	CircuitID   string         `json:"circuitId"`
	CircuitName string         `json:"circuitName"`
	Location    ErgastLocation `json:"Location"`
}

// ErgastLocation is a circuit's locality
type ErgastLocation struct {
	Locality string `json:"locality"`
	Country  string `json:"country"`
}

// ErgastDriver identifies a driver
type ErgastDriver struct {
	DriverID   string `json:"driverId"`
	Code       string `json:"code,omitempty"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
}

// ErgastConstructor identifies a constructor
type ErgastConstructor struct {
	ConstructorID string `json:"constructorId"`
	Name          string `json:"name"`
}

// ErgastResult is one race or sprint classification row
type ErgastResult struct {
	Number       string            `json:"number"`
	Position     string            `json:"position"`
	PositionText string            `json:"positionText"`
	Points       string            `json:"points"`
	Driver       ErgastDriver      `json:"Driver"`
	Constructor  ErgastConstructor `json:"Constructor"`
	Grid         string            `json:"grid"`
	Laps         string            `json:"laps"`
	Status       string            `json:"status"`
}

// ErgastQualifying is one qualifying classification row
type ErgastQualifying struct {
	Number      string            `json:"number"`
	Position    string            `json:"position"`
	Driver      ErgastDriver      `json:"Driver"`
	Constructor ErgastConstructor `json:"Constructor"`
}

// ErgastLap is one lap with per-driver timings
type ErgastLap struct {
	Number  string         `json:"number"`
	Timings []ErgastTiming `json:"Timings"`
}

// ErgastTiming is a driver's position on a lap
type ErgastTiming struct {
	DriverID string `json:"driverId"`
	Position string `json:"position"`
	Time     string `json:"time,omitempty"`
}

// StandingsTable holds standings lists
type StandingsTable struct {
	Season         string                `json:"season"`
	Round          string                `json:"round,omitempty"`
	StandingsLists []ErgastStandingsList `json:"StandingsLists"`
}

// ErgastStandingsList is the standings after one round
type ErgastStandingsList struct {
	Season               string                      `json:"season"`
	Round                string                      `json:"round"`
	DriverStandings      []ErgastDriverStanding      `json:"DriverStandings,omitempty"`
	ConstructorStandings []ErgastConstructorStanding `json:"ConstructorStandings,omitempty"`
}

// ErgastDriverStanding is one driver standings row
type ErgastDriverStanding struct {
	Position     string              `json:"position,omitempty"`
	PositionText string              `json:"positionText"`
	Points       string              `json:"points"`
	Wins         string              `json:"wins"`
	Driver       ErgastDriver        `json:"Driver"`
	Constructors []ErgastConstructor `json:"Constructors"`
}

// ErgastConstructorStanding is one constructor standings row
type ErgastConstructorStanding struct {
	Position     string            `json:"position,omitempty"`
	PositionText string            `json:"positionText"`
	Points       string            `json:"points"`
	Wins         string            `json:"wins"`
	Constructor  ErgastConstructor `json:"Constructor"`
}

func parseCount(field, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, models.NewSchemaError(field, s, fmt.Errorf("not a non-negative integer"))
	}
	return n, nil
}

func parseRound(s string) (int, error) {
	n, err := parseCount("round", s)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, models.NewSchemaError("round", s, models.ErrInvalidRound)
	}
	return n, nil
}

func parsePosition(s string) (*int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	n, err := parseCount("position", s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseStart combines a session date with its start time ("15:00:00Z").
// Sessions without a usable time start at midnight UTC.
func parseStart(date, clock string) time.Time {
	if clock != "" {
		if t, err := time.Parse(time.RFC3339, date+"T"+clock); err == nil {
			return t.UTC()
		}
	}
	return parseDate(date)
}

func driverName(d ErgastDriver) string {
	return strings.TrimSpace(d.GivenName + " " + d.FamilyName)
}

func (r *ErgastRace) roundInfo() (models.RoundInfo, error) {
	round, err := parseRound(r.Round)
	if err != nil {
		return models.RoundInfo{}, err
	}
	return models.RoundInfo{
		Round:     round,
		RaceName:  r.RaceName,
		CircuitID: r.Circuit.CircuitID,
		Locality:  r.Circuit.Location.Locality,
		Country:   r.Circuit.Location.Country,
		Date:      parseStart(r.Date, r.Time),
		Sprint:    r.Sprint != nil,
	}, nil
}

func (r *ErgastRace) raceResults() ([]models.RaceResult, error) {
	round, err := parseRound(r.Round)
	if err != nil {
		return nil, err
	}

	results := make([]models.RaceResult, 0, len(r.Results))
	for _, row := range r.Results {
		res, err := convertResult(r.Season, round, row)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *ErgastRace) sprintResults() ([]models.SprintResult, error) {
	round, err := parseRound(r.Round)
	if err != nil {
		return nil, err
	}

	results := make([]models.SprintResult, 0, len(r.SprintResults))
	for _, row := range r.SprintResults {
		res, err := convertResult(r.Season, round, row)
		if err != nil {
			return nil, err
		}
		results = append(results, models.SprintResult{
			Season:        res.Season,
			Round:         res.Round,
			DriverID:      res.DriverID,
			ConstructorID: res.ConstructorID,
			Position:      res.Position,
			PositionText:  res.PositionText,
			Grid:          res.Grid,
			Points:        res.Points,
			Status:        res.Status,
		})
	}
	return results, nil
}

func (r *ErgastRace) qualifyingResults() ([]models.QualifyingResult, error) {
	round, err := parseRound(r.Round)
	if err != nil {
		return nil, err
	}

	results := make([]models.QualifyingResult, 0, len(r.QualifyingResults))
	for _, row := range r.QualifyingResults {
		pos, err := parseCount("position", row.Position)
		if err != nil {
			return nil, err
		}
		results = append(results, models.QualifyingResult{
			Season:        r.Season,
			Round:         round,
			DriverID:      row.Driver.DriverID,
			ConstructorID: row.Constructor.ConstructorID,
			Position:      pos,
		})
	}
	return results, nil
}

func (r *ErgastRace) lapTimings() ([]models.LapTiming, error) {
	round, err := parseRound(r.Round)
	if err != nil {
		return nil, err
	}

	timings := make([]models.LapTiming, 0)
	for _, lap := range r.Laps {
		n, err := parseCount("lap", lap.Number)
		if err != nil {
			return nil, err
		}
		for _, t := range lap.Timings {
			pos, err := parseCount("position", t.Position)
			if err != nil {
				return nil, err
			}
			timings = append(timings, models.LapTiming{
				Season:   r.Season,
				Round:    round,
				Lap:      n,
				DriverID: t.DriverID,
				Position: pos,
			})
		}
	}
	return timings, nil
}

func convertResult(season string, round int, row ErgastResult) (models.RaceResult, error) {
	pos, err := parsePosition(row.Position)
	if err != nil {
		return models.RaceResult{}, err
	}
	// Ergast reports a position for every row; only numeric positionText is a classification
	if pos != nil && !isNumeric(row.PositionText) && row.PositionText != "" {
		pos = nil
	}
	points, err := models.ParsePoints(row.Points)
	if err != nil {
		return models.RaceResult{}, err
	}
	grid, err := parseCount("grid", row.Grid)
	if err != nil {
		return models.RaceResult{}, err
	}
	laps, err := parseCount("laps", row.Laps)
	if err != nil {
		return models.RaceResult{}, err
	}

	return models.RaceResult{
		Season:        season,
		Round:         round,
		DriverID:      row.Driver.DriverID,
		DriverCode:    row.Driver.Code,
		DriverName:    driverName(row.Driver),
		ConstructorID: row.Constructor.ConstructorID,
		Constructor:   row.Constructor.Name,
		Position:      pos,
		PositionText:  row.PositionText,
		Grid:          grid,
		Laps:          laps,
		Points:        points,
		Status:        row.Status,
	}, nil
}

func (l *ErgastStandingsList) snapshots(kind models.EntityKind) ([]models.StandingsSnapshot, error) {
	round, err := parseRound(l.Round)
	if err != nil {
		return nil, err
	}

	var snaps []models.StandingsSnapshot
	switch kind {
	case models.EntityDriver:
		snaps = make([]models.StandingsSnapshot, 0, len(l.DriverStandings))
		for _, row := range l.DriverStandings {
			points, err := models.ParsePoints(row.Points)
			if err != nil {
				return nil, err
			}
			wins, err := parseCount("wins", row.Wins)
			if err != nil {
				return nil, err
			}
			snap := models.StandingsSnapshot{
				Season:       l.Season,
				Round:        round,
				Entity:       models.Driver(row.Driver.DriverID),
				Name:         driverName(row.Driver),
				PositionText: standingPositionText(row.Position, row.PositionText),
				Points:       points,
				Wins:         wins,
			}
			// The last listed constructor is the one driven for most recently
			if n := len(row.Constructors); n > 0 {
				snap.ConstructorID = row.Constructors[n-1].ConstructorID
			}
			snaps = append(snaps, snap)
		}
	case models.EntityConstructor:
		snaps = make([]models.StandingsSnapshot, 0, len(l.ConstructorStandings))
		for _, row := range l.ConstructorStandings {
			points, err := models.ParsePoints(row.Points)
			if err != nil {
				return nil, err
			}
			wins, err := parseCount("wins", row.Wins)
			if err != nil {
				return nil, err
			}
			snaps = append(snaps, models.StandingsSnapshot{
				Season:        l.Season,
				Round:         round,
				Entity:        models.Constructor(row.Constructor.ConstructorID),
				Name:          row.Constructor.Name,
				PositionText:  standingPositionText(row.Position, row.PositionText),
				Points:        points,
				Wins:          wins,
				ConstructorID: row.Constructor.ConstructorID,
			})
		}
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	return snaps, nil
}

// standingPositionText prefers the explicit position; rows without one are unranked
func standingPositionText(position, positionText string) string {
	if strings.TrimSpace(position) == "" {
		if isNumeric(positionText) {
			return positionText
		}
		return models.BlankPosition
	}
	return position
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
