package pagination

import (
	"errors"
	"fmt"
)

// PartialBatchError reports a batch in which at least one page request failed.
// Succeeded lists offsets fetched before the failure; none of their items
// are returned to the caller.
type PartialBatchError struct {
	Resource  string
	Succeeded []int
	Failed    []int
	Err       error
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("partial batch for %s: %d pages ok, %d failed: %v",
		e.Resource, len(e.Succeeded), len(e.Failed), e.Err)
}

func (e *PartialBatchError) Unwrap() error {
	return e.Err
}

// IsPartialBatch reports whether err is or wraps a PartialBatchError
func IsPartialBatch(err error) bool {
	var pbe *PartialBatchError
	return errors.As(err, &pbe)
}
