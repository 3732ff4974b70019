package datasource

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/paddock/internal/models"
)

// ScheduleSource supplies season calendars
type ScheduleSource interface {
	// GetSchedule returns every scheduled round of a season
	GetSchedule(ctx context.Context, season string) (*models.Schedule, error)
}

// RoundSource fetches data for a single round
type RoundSource interface {
	ScheduleSource

	// GetRace returns the classified race results of a round
	GetRace(ctx context.Context, season string, round int) ([]models.RaceResult, error)

	// GetSprint returns the sprint results of a round, empty for non-sprint rounds
	GetSprint(ctx context.Context, season string, round int) ([]models.SprintResult, error)

	// GetStandings returns the cumulative standings after a round
	GetStandings(ctx context.Context, season string, round int, kind models.EntityKind) ([]models.StandingsSnapshot, error)

	// GetLapsLed returns laps led per driver in a round
	GetLapsLed(ctx context.Context, season string, round int) (map[string]int, error)
}

// SeasonSource fetches season-wide result collections
type SeasonSource interface {
	GetSeasonRaces(ctx context.Context, season string) ([]models.RaceResult, error)
	GetSeasonSprints(ctx context.Context, season string) ([]models.SprintResult, error)
}

// DriverSource fetches one driver's result history within a season
type DriverSource interface {
	GetDriverRaces(ctx context.Context, season, driverID string) ([]models.RaceResult, error)
	GetDriverSprints(ctx context.Context, season, driverID string) ([]models.SprintResult, error)
	GetDriverQualifying(ctx context.Context, season, driverID string) ([]models.QualifyingResult, error)
}

// ResultsSource is the full results API surface
type ResultsSource interface {
	RoundSource
	SeasonSource
	DriverSource

	// Name returns the name of the data source
	Name() string
}

// TransportError represents a failed or unusable upstream request
type TransportError struct {
	Source     string // Data source name
	Code       string // Error code (e.g., "rate_limit_exceeded")
	Message    string // Error message
	StatusCode int    // HTTP status, 0 when no response was received
	Err        error  // Underlying error
}

func (e *TransportError) Error() string {
	msg := e.Source + ": " + e.Code + ": " + e.Message
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += " (" + e.Err.Error() + ")"
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrCodeNotFound          = "not_found"
	ErrCodeInvalidData       = "invalid_data"
	ErrCodeNetworkError      = "network_error"
	ErrCodeServerError       = "server_error"
	ErrCodeCircuitOpen       = "circuit_open"
)

// ErrCircuitOpen is wrapped by transport errors rejected by the breaker
var ErrCircuitOpen = errors.New("circuit breaker open")

// NewTransportError creates a new transport error
func NewTransportError(source, code, message string, err error) *TransportError {
	return &TransportError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsTransportError reports whether err is or wraps a TransportError
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
