package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RaceResult represents one driver's finishing record in one race
type RaceResult struct {
	Season        string          `db:"season" json:"season"`
	Round         int             `db:"round" json:"round"`
	DriverID      string          `db:"driver_id" json:"driver_id"`
	DriverCode    string          `db:"driver_code" json:"driver_code,omitempty"`
	DriverName    string          `db:"driver_name" json:"driver_name,omitempty"`
	ConstructorID string          `db:"constructor_id" json:"constructor_id"`
	Constructor   string          `db:"constructor_name" json:"constructor_name,omitempty"`
	Position      *int            `db:"position" json:"position"` // nil when not classified
	PositionText  string          `db:"position_text" json:"position_text"`
	Grid          int             `db:"grid" json:"grid"`
	Laps          int             `db:"laps" json:"laps"`
	Points        decimal.Decimal `db:"points" json:"points"`
	Status        string          `db:"status" json:"status"`
}

// SprintResult represents one driver's finishing record in a sprint session.
// Only rounds flagged as sprint weekends produce these.
type SprintResult struct {
	Season        string          `db:"season" json:"season"`
	Round         int             `db:"round" json:"round"`
	DriverID      string          `db:"driver_id" json:"driver_id"`
	ConstructorID string          `db:"constructor_id" json:"constructor_id"`
	Position      *int            `db:"position" json:"position"`
	PositionText  string          `db:"position_text" json:"position_text"`
	Grid          int             `db:"grid" json:"grid"`
	Points        decimal.Decimal `db:"points" json:"points"`
	Status        string          `db:"status" json:"status"`
}

// QualifyingResult represents a driver's qualifying classification for a round
type QualifyingResult struct {
	Season        string `db:"season" json:"season"`
	Round         int    `db:"round" json:"round"`
	DriverID      string `db:"driver_id" json:"driver_id"`
	ConstructorID string `db:"constructor_id" json:"constructor_id"`
	Position      int    `db:"position" json:"position"`
}

// LapTiming is a single driver's running position at the end of one lap
type LapTiming struct {
	Season   string `json:"season"`
	Round    int    `json:"round"`
	Lap      int    `json:"lap"`
	DriverID string `json:"driver_id"`
	Position int    `json:"position"`
}

// Classified reports whether the result carries a finishing position
func (r *RaceResult) Classified() bool {
	return r.Position != nil
}

// Classified reports whether the sprint result carries a finishing position
func (r *SprintResult) Classified() bool {
	return r.Position != nil
}

// FinishStatus classifies an upstream status string
type FinishStatus int

const (
	// StatusFinished covers "Finished" and lapped finishes ("+1 Lap", "+3 Laps")
	StatusFinished FinishStatus = iota
	// StatusDisqualified covers "Disqualified"
	StatusDisqualified
	// StatusNotStarted covers entries that never took the start
	StatusNotStarted
	// StatusRetired covers every other non-finish (accident, engine, ...)
	StatusRetired
)

// ClassifyStatus maps an upstream status string onto a FinishStatus.
// Lapped finishes are finishes, not retirements.
func ClassifyStatus(status string) FinishStatus {
	s := strings.TrimSpace(status)
	switch {
	case s == "" || strings.EqualFold(s, "Finished"):
		return StatusFinished
	case strings.HasPrefix(s, "+") && strings.Contains(strings.ToLower(s), "lap"):
		return StatusFinished
	case strings.EqualFold(s, "Lapped"):
		return StatusFinished
	case strings.EqualFold(s, "Disqualified"):
		return StatusDisqualified
	case strings.EqualFold(s, "Did not start"), strings.EqualFold(s, "Did not qualify"),
		strings.EqualFold(s, "Did not prequalify"), strings.EqualFold(s, "Withdrew"):
		return StatusNotStarted
	default:
		return StatusRetired
	}
}

// IsDNF reports whether a status counts as a did-not-finish
func IsDNF(status string) bool {
	switch ClassifyStatus(status) {
	case StatusRetired, StatusNotStarted:
		return true
	default:
		return false
	}
}

// IsDSQ reports whether a status is a disqualification
func IsDSQ(status string) bool {
	return ClassifyStatus(status) == StatusDisqualified
}
