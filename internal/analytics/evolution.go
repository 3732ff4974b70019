// Package analytics derives standings evolution, season aggregates and
// head-to-head statistics from results already in memory. Functions here
// are pure; malformed input yields a *models.SchemaError.
package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yourusername/paddock/internal/models"
)

// RoundStandings is the standings table published after one round
type RoundStandings struct {
	Round    int
	RaceName string
	Locality string
	Rows     []models.StandingsSnapshot
}

// GapFill assigns a dense position to every row of one round's standings.
// Rows with an explicit position keep it; blank rows, in the order given,
// take the lowest position no other row occupies. The result is a
// permutation of 1..len(rows). The input slice is not modified.
func GapFill(rows []models.StandingsSnapshot) ([]models.StandingsSnapshot, error) {
	n := len(rows)
	out := make([]models.StandingsSnapshot, n)
	copy(out, rows)

	occupied := make(map[int]bool, n)
	for i := range out {
		if out[i].IsBlank() {
			continue
		}
		text := strings.TrimSpace(out[i].PositionText)
		pos, err := strconv.Atoi(text)
		if err != nil {
			return nil, models.NewSchemaError("positionText", text, err)
		}
		if pos < 1 || pos > n {
			return nil, models.NewSchemaError("positionText", text, models.ErrPositionOutOfRange)
		}
		if occupied[pos] {
			return nil, models.NewSchemaError("positionText", text, models.ErrDuplicatePosition)
		}
		occupied[pos] = true
		out[i].Position = pos
	}

	cursor := 1
	for i := range out {
		if !out[i].IsBlank() {
			continue
		}
		for occupied[cursor] {
			cursor++
		}
		out[i].Position = cursor
		occupied[cursor] = true
		cursor++
	}

	return out, nil
}

// BuildEvolution turns per-round standings into one dense series per entity.
// Every series has one point per round given, ascending. An entity missing
// from a round's table keeps its previous cumulative points at position 0.
func BuildEvolution(season string, rounds []RoundStandings) (map[models.EntityRef]*models.EvolutionSeries, error) {
	ordered := make([]RoundStandings, len(rounds))
	copy(ordered, rounds)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Round < ordered[j].Round })

	filled := make([][]models.StandingsSnapshot, len(ordered))
	entities := make([]models.EntityRef, 0)
	seen := make(map[models.EntityRef]bool)
	for i, rs := range ordered {
		if rs.Round <= 0 {
			return nil, models.NewSchemaError("round", strconv.Itoa(rs.Round), models.ErrInvalidRound)
		}
		if i > 0 && rs.Round == ordered[i-1].Round {
			return nil, models.NewSchemaError("round", strconv.Itoa(rs.Round), fmt.Errorf("round listed twice"))
		}
		rows, err := GapFill(rs.Rows)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", rs.Round, err)
		}
		filled[i] = rows
		for _, row := range rows {
			if !seen[row.Entity] {
				seen[row.Entity] = true
				entities = append(entities, row.Entity)
			}
		}
	}

	series := make(map[models.EntityRef]*models.EvolutionSeries, len(entities))
	for _, e := range entities {
		series[e] = &models.EvolutionSeries{
			Season: season,
			Entity: e,
			Rounds: make([]models.SeriesPoint, 0, len(ordered)),
		}
	}

	for i, rs := range ordered {
		byEntity := make(map[models.EntityRef]models.StandingsSnapshot, len(filled[i]))
		for _, row := range filled[i] {
			byEntity[row.Entity] = row
		}
		for _, e := range entities {
			s := series[e]
			point := models.SeriesPoint{Round: rs.Round, Locality: rs.Locality, Points: decimal.Zero}
			if row, ok := byEntity[e]; ok {
				point.Position = row.Position
				point.Points = row.Points
				point.Wins = row.Wins
				point.ConstructorID = row.ConstructorID
			} else if len(s.Rounds) > 0 {
				prev := s.Rounds[len(s.Rounds)-1]
				point.Points = prev.Points
				point.Wins = prev.Wins
				point.ConstructorID = prev.ConstructorID
			}
			s.Rounds = append(s.Rounds, point)
		}
	}

	for _, s := range series {
		s.ConstructorStints = ConstructorStints(s.Rounds)
	}
	return series, nil
}

// ConstructorStints lists the constructor changes along a series. A stint
// starts at the first round and whenever the constructor differs from the
// previous round's. Rounds without a constructor are skipped.
func ConstructorStints(points []models.SeriesPoint) []models.ConstructorStint {
	var stints []models.ConstructorStint
	last := ""
	for _, p := range points {
		if p.ConstructorID == "" || p.ConstructorID == last {
			continue
		}
		stints = append(stints, models.ConstructorStint{ConstructorID: p.ConstructorID, FromRound: p.Round})
		last = p.ConstructorID
	}
	return stints
}

// SeriesFromRecords builds a series from cached round records. Records are
// sorted by round; duplicates keep the last one given.
func SeriesFromRecords(season string, entity models.EntityRef, records []models.CachedRoundRecord) *models.EvolutionSeries {
	byRound := make(map[int]models.CachedRoundRecord, len(records))
	for _, rec := range records {
		byRound[rec.Round] = rec
	}
	rounds := make([]int, 0, len(byRound))
	for r := range byRound {
		rounds = append(rounds, r)
	}
	sort.Ints(rounds)

	s := &models.EvolutionSeries{
		Season: season,
		Entity: entity,
		Rounds: make([]models.SeriesPoint, 0, len(rounds)),
	}
	for _, r := range rounds {
		p := byRound[r].Payload
		s.Rounds = append(s.Rounds, models.SeriesPoint{
			Round:         r,
			Position:      p.Position,
			Points:        p.Points,
			Wins:          p.Wins,
			ConstructorID: p.ConstructorID,
			Locality:      p.Locality,
			LapsLed:       p.LapsLed,
		})
	}
	s.ConstructorStints = ConstructorStints(s.Rounds)
	return s
}
