package analytics

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/yourusername/paddock/internal/models"
)

// NoPosition is the best-finish and best-grid value of a driver without a
// classified finish or grid slot. Any real position compares lower.
const NoPosition = math.MaxInt32

// DriverStats is one driver's season record for a head-to-head comparison
type DriverStats struct {
	DriverID       string          `json:"driver_id"`
	Found          bool            `json:"found"`
	Starts         int             `json:"starts"`
	BestFinish     int             `json:"best_finish"`
	BestGrid       int             `json:"best_grid"`
	Wins           int             `json:"wins"`
	Podiums        int             `json:"podiums"`
	Poles          int             `json:"poles"`
	QualifyingWins int             `json:"qualifying_wins"`
	DNFs           int             `json:"dnfs"`
	DSQs           int             `json:"dsqs"`
	SprintWins     int             `json:"sprint_wins"`
	SprintPodiums  int             `json:"sprint_podiums"`
	Points         decimal.Decimal `json:"points"`
}

// HasBestFinish reports whether the driver was ever classified
func (s DriverStats) HasBestFinish() bool {
	return s.BestFinish != NoPosition
}

// HasBestGrid reports whether the driver ever started from a grid slot
func (s DriverStats) HasBestGrid() bool {
	return s.BestGrid != NoPosition
}

// Comparison pairs the stats of two drivers in the order they were requested
type Comparison struct {
	Season string      `json:"season"`
	A      DriverStats `json:"a"`
	B      DriverStats `json:"b"`
}

// Swap returns the comparison with the drivers exchanged
func (c Comparison) Swap() Comparison {
	return Comparison{Season: c.Season, A: c.B, B: c.A}
}

// ComputeDriverStats builds one driver's stats from their own results only.
// Races are folded once and sprints once, each lowering the running best
// finish and best grid. A grid of 0 is a pit lane start and is ignored.
// Results for other drivers are skipped. No results yields Found=false with
// NoPosition minima.
func ComputeDriverStats(driverID string, races []models.RaceResult, sprints []models.SprintResult, qualifying []models.QualifyingResult) DriverStats {
	st := DriverStats{
		DriverID:   driverID,
		BestFinish: NoPosition,
		BestGrid:   NoPosition,
		Points:     decimal.Zero,
	}

	for _, r := range races {
		if r.DriverID != driverID {
			continue
		}
		st.Found = true
		st.Starts++
		st.Points = st.Points.Add(r.Points)
		if r.Position != nil {
			st.BestFinish = min(st.BestFinish, *r.Position)
			if *r.Position == 1 {
				st.Wins++
			}
			if *r.Position <= 3 {
				st.Podiums++
			}
		}
		if r.Grid > 0 {
			st.BestGrid = min(st.BestGrid, r.Grid)
		}
		if r.Grid == 1 {
			st.Poles++
		}
		switch models.ClassifyStatus(r.Status) {
		case models.StatusDisqualified:
			st.DSQs++
		case models.StatusRetired, models.StatusNotStarted:
			st.DNFs++
		}
	}

	for _, r := range sprints {
		if r.DriverID != driverID {
			continue
		}
		st.Found = true
		st.Points = st.Points.Add(r.Points)
		if r.Position != nil {
			st.BestFinish = min(st.BestFinish, *r.Position)
			if *r.Position == 1 {
				st.SprintWins++
			}
			if *r.Position <= 3 {
				st.SprintPodiums++
			}
		}
		if r.Grid > 0 {
			st.BestGrid = min(st.BestGrid, r.Grid)
		}
	}

	for _, q := range qualifying {
		if q.DriverID != driverID {
			continue
		}
		st.Found = true
		if q.Position == 1 {
			st.QualifyingWins++
		}
	}

	return st
}

// DriverResults is everything the comparator reads for one driver
type DriverResults struct {
	DriverID   string
	Races      []models.RaceResult
	Sprints    []models.SprintResult
	Qualifying []models.QualifyingResult
}

// Compare computes both drivers' stats independently
func Compare(season string, a, b DriverResults) Comparison {
	return Comparison{
		Season: season,
		A:      ComputeDriverStats(a.DriverID, a.Races, a.Sprints, a.Qualifying),
		B:      ComputeDriverStats(b.DriverID, b.Races, b.Sprints, b.Qualifying),
	}
}
