package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BlankPosition is the positionText upstream reports for unranked entities
const BlankPosition = "-"

// PointsPrecision is the number of decimal places points are kept at
const PointsPrecision = 2

// EntityKind distinguishes drivers from constructors
type EntityKind string

const (
	// EntityDriver is a driver standings subject
	EntityDriver EntityKind = "driver"
	// EntityConstructor is a constructor standings subject
	EntityConstructor EntityKind = "constructor"
)

// Valid reports whether the kind is known
func (k EntityKind) Valid() bool {
	return k == EntityDriver || k == EntityConstructor
}

// EntityRef identifies a standings subject
type EntityRef struct {
	Kind EntityKind `db:"entity_kind" json:"kind"`
	ID   string     `db:"entity_id" json:"id"`
}

// Driver returns a driver reference
func Driver(id string) EntityRef {
	return EntityRef{Kind: EntityDriver, ID: id}
}

// Constructor returns a constructor reference
func Constructor(id string) EntityRef {
	return EntityRef{Kind: EntityConstructor, ID: id}
}

// Key returns the "kind:id" form used in cache keys
func (e EntityRef) Key() string {
	return string(e.Kind) + ":" + e.ID
}

func (e EntityRef) String() string {
	return e.Key()
}

// Validate checks that the reference is usable as a cache key
func (e EntityRef) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown entity kind %q", e.Kind)
	}
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("entity id is required")
	}
	return nil
}

// StandingsSnapshot is an entity's cumulative standing after a given round
type StandingsSnapshot struct {
	Season        string          `json:"season"`
	Round         int             `json:"round"`
	Entity        EntityRef       `json:"entity"`
	Name          string          `json:"name,omitempty"`
	PositionText  string          `json:"position_text"`
	Position      int             `json:"position"` // assigned by gap-fill, 0 before
	Points        decimal.Decimal `json:"points"`
	Wins          int             `json:"wins"`
	ConstructorID string          `json:"constructor_id,omitempty"` // drivers only
}

// IsBlank reports whether the row has no explicit position
func (s *StandingsSnapshot) IsBlank() bool {
	t := strings.TrimSpace(s.PositionText)
	if t == "" || t == BlankPosition {
		return true
	}
	for _, r := range t {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}

// ParsePoints parses an upstream points string rounded to PointsPrecision.
// An empty string is zero points.
func ParsePoints(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewSchemaError("points", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, NewSchemaError("points", s, ErrNegativePoints)
	}
	return d.Round(PointsPrecision), nil
}
