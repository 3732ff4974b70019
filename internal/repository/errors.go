package repository

import (
	"errors"
	"fmt"

	"github.com/yourusername/paddock/internal/models"
)

// ErrInvalidRecord is wrapped by writes rejected before reaching the backend
var ErrInvalidRecord = errors.New("invalid round record")

// CacheWriteError reports a rejected upsert. A sync cycle hitting one must stop:
// dropping it would desynchronize the cursor from the stored rounds.
type CacheWriteError struct {
	Backend string
	Season  string
	Round   int
	Entity  models.EntityRef
	Err     error
}

func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("%s: failed to upsert round %d of %s for %s: %v", e.Backend, e.Round, e.Season, e.Entity, e.Err)
}

func (e *CacheWriteError) Unwrap() error {
	return e.Err
}

// IsCacheWriteError reports whether err is or wraps a CacheWriteError
func IsCacheWriteError(err error) bool {
	var cwe *CacheWriteError
	return errors.As(err, &cwe)
}

func newWriteError(backend string, record *models.CachedRoundRecord, err error) *CacheWriteError {
	return &CacheWriteError{
		Backend: backend,
		Season:  record.Season,
		Round:   record.Round,
		Entity:  record.Entity,
		Err:     err,
	}
}

// validateRecord rejects records that cannot be keyed
func validateRecord(record *models.CachedRoundRecord) error {
	if record.Season == "" {
		return fmt.Errorf("%w: season is required", ErrInvalidRecord)
	}
	if record.Round <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, models.ErrInvalidRound)
	}
	if err := record.Entity.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}
