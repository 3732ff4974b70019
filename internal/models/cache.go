package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundPayload is the derived per-round fact persisted for an entity
type RoundPayload struct {
	Position      int             `json:"position"` // 0 when absent from the round's standings
	PositionText  string          `json:"position_text"`
	Points        decimal.Decimal `json:"points"`
	Wins          int             `json:"wins"`
	ConstructorID string          `json:"constructor_id,omitempty"`
	RaceName      string          `json:"race_name,omitempty"`
	Locality      string          `json:"locality,omitempty"`
	LapsLed       int             `json:"laps_led"`
}

// CachedRoundRecord is the persisted fact for one (season, round, entity).
// It is unique per key and upserted idempotently.
type CachedRoundRecord struct {
	Season   string       `db:"season" json:"season"`
	Round    int          `db:"round" json:"round"`
	Entity   EntityRef    `json:"entity"`
	Payload  RoundPayload `db:"payload" json:"payload"`
	SyncedAt time.Time    `db:"synced_at" json:"synced_at"`
}

// SyncCursor is the highest round already persisted for a (season, entity)
type SyncCursor struct {
	Season    string    `db:"season" json:"season"`
	Entity    EntityRef `json:"entity"`
	LastRound int       `db:"last_round" json:"last_round"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SeriesPoint is one round of an evolution series
type SeriesPoint struct {
	Round         int             `json:"round"`
	Position      int             `json:"position"`
	Points        decimal.Decimal `json:"points"`
	Wins          int             `json:"wins"`
	ConstructorID string          `json:"constructor_id,omitempty"`
	Locality      string          `json:"locality,omitempty"`
	LapsLed       int             `json:"laps_led"`
}

// ConstructorStint marks the round from which a driver raced for a constructor
type ConstructorStint struct {
	ConstructorID string `json:"constructor_id"`
	FromRound     int    `json:"from_round"`
}

// EvolutionSeries is the dense per-round position/points series for one entity
type EvolutionSeries struct {
	Season            string             `json:"season"`
	Entity            EntityRef          `json:"entity"`
	Rounds            []SeriesPoint      `json:"rounds"`
	ConstructorStints []ConstructorStint `json:"constructor_stints,omitempty"`
}

// LastRound returns the highest round in the series, 0 when empty
func (s *EvolutionSeries) LastRound() int {
	if len(s.Rounds) == 0 {
		return 0
	}
	return s.Rounds[len(s.Rounds)-1].Round
}

// Reversed returns the points most recent first
func (s *EvolutionSeries) Reversed() []SeriesPoint {
	out := make([]SeriesPoint, len(s.Rounds))
	for i, p := range s.Rounds {
		out[len(s.Rounds)-1-i] = p
	}
	return out
}
