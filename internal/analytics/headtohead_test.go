package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/yourusername/paddock/internal/models"
)

func TestComputeDriverStats(t *testing.T) {
	races := []models.RaceResult{
		race(1, "leclerc", "ferrari", pos(4), 2, "12", "Finished"),
		race(2, "leclerc", "ferrari", pos(1), 1, "25", "Finished"),
		race(3, "leclerc", "ferrari", nil, 0, "0", "Power Unit"),
		race(3, "sainz", "ferrari", pos(1), 1, "25", "Finished"),
	}
	sprints := []models.SprintResult{
		sprint(2, "leclerc", "ferrari", pos(3), "6"),
	}
	qualifying := []models.QualifyingResult{
		{Round: 1, DriverID: "leclerc", Position: 2},
		{Round: 2, DriverID: "leclerc", Position: 1},
		{Round: 3, DriverID: "leclerc", Position: 1},
	}

	st := ComputeDriverStats("leclerc", races, sprints, qualifying)
	assert.True(t, st.Found)
	assert.Equal(t, 3, st.Starts)
	assert.Equal(t, 1, st.BestFinish)
	assert.Equal(t, 1, st.BestGrid)
	assert.Equal(t, 1, st.Wins)
	assert.Equal(t, 1, st.Podiums)
	assert.Equal(t, 1, st.Poles)
	assert.Equal(t, 2, st.QualifyingWins)
	assert.Equal(t, 1, st.DNFs)
	assert.Equal(t, 1, st.SprintPodiums)
	assert.True(t, st.Points.Equal(decimal.NewFromInt(43)))
}

func TestComputeDriverStatsSprintLowersMinima(t *testing.T) {
	races := []models.RaceResult{race(1, "hulkenberg", "haas", pos(7), 8, "6", "Finished")}
	sprints := []models.SprintResult{{Round: 1, DriverID: "hulkenberg", Position: pos(5), Grid: 3, Points: decimal.NewFromInt(4)}}

	st := ComputeDriverStats("hulkenberg", races, sprints, nil)
	assert.Equal(t, 5, st.BestFinish)
	assert.Equal(t, 3, st.BestGrid)
	assert.Equal(t, 0, st.Podiums)
}

func TestComputeDriverStatsNoResults(t *testing.T) {
	st := ComputeDriverStats("bearman", nil, nil, nil)
	assert.False(t, st.Found)
	assert.Equal(t, NoPosition, st.BestFinish)
	assert.Equal(t, NoPosition, st.BestGrid)
	assert.False(t, st.HasBestFinish())
	assert.False(t, st.HasBestGrid())
	assert.True(t, st.Points.IsZero())
}

func TestCompareSymmetry(t *testing.T) {
	a := DriverResults{
		DriverID: "hamilton",
		Races: []models.RaceResult{
			race(1, "hamilton", "mercedes", pos(7), 9, "6", "Finished"),
			race(2, "hamilton", "mercedes", pos(1), 3, "25", "Finished"),
		},
		Qualifying: []models.QualifyingResult{{Round: 1, DriverID: "hamilton", Position: 9}},
	}
	b := DriverResults{
		DriverID: "russell",
		Races: []models.RaceResult{
			race(1, "russell", "mercedes", pos(5), 3, "10", "Finished"),
			race(2, "russell", "mercedes", nil, 1, "0", "Disqualified"),
		},
		Sprints: []models.SprintResult{sprint(2, "russell", "mercedes", pos(4), "5")},
	}

	ab := Compare("2024", a, b)
	ba := Compare("2024", b, a)

	assert.Equal(t, ab.A, ba.B)
	assert.Equal(t, ab.B, ba.A)
	assert.Equal(t, ab, ba.Swap())
	assert.Equal(t, 1, ab.B.DSQs)
	assert.Equal(t, 0, ab.B.DNFs)
}

func TestCompareIgnoresOtherDriversResults(t *testing.T) {
	shared := []models.RaceResult{
		race(1, "alonso", "aston_martin", pos(3), 4, "15", "Finished"),
		race(1, "stroll", "aston_martin", pos(6), 10, "8", "Finished"),
	}
	cmp := Compare("2024",
		DriverResults{DriverID: "alonso", Races: shared},
		DriverResults{DriverID: "stroll", Races: shared},
	)
	assert.Equal(t, 3, cmp.A.BestFinish)
	assert.Equal(t, 6, cmp.B.BestFinish)
	assert.Equal(t, 1, cmp.A.Starts)
	assert.Equal(t, 1, cmp.B.Starts)
}
