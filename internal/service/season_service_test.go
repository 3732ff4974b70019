package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/paddock/internal/analytics"
	"github.com/yourusername/paddock/internal/models"
)

func intPtr(i int) *int {
	return &i
}

func seasonFixture() *fakeSource {
	source := newFakeSource()
	for round := 1; round <= 5; round++ {
		source.races = append(source.races,
			models.RaceResult{Season: "2024", Round: round, DriverID: "max_verstappen", ConstructorID: "red_bull", Position: intPtr(1), Grid: 1, Points: decimal.NewFromInt(25), Status: "Finished"},
			models.RaceResult{Season: "2024", Round: round, DriverID: "norris", ConstructorID: "mclaren", Position: intPtr(2), Grid: 2, Points: decimal.NewFromInt(18), Status: "Finished"},
			models.RaceResult{Season: "2024", Round: round, DriverID: "sainz", ConstructorID: "ferrari", Grid: 3, Points: decimal.Zero, Status: "Gearbox"},
		)
	}
	source.sprints = []models.SprintResult{
		{Season: "2024", Round: 5, DriverID: "norris", ConstructorID: "mclaren", Position: intPtr(1), Points: decimal.NewFromInt(8)},
		{Season: "2024", Round: 5, DriverID: "sainz", ConstructorID: "ferrari", Position: intPtr(2), Points: decimal.NewFromInt(7)},
	}
	return source
}

func TestSeasonServiceSummary(t *testing.T) {
	svc := NewSeasonService(seasonFixture(), analytics.DefaultOptions(), 0, nil)

	report, err := svc.Summary(context.Background(), "2024")
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, report.Rounds)
	assert.Equal(t, []int{5}, report.SprintRounds)
	assert.Equal(t, "SAK", report.Labels[1])
	require.Len(t, report.Rolling, 5)

	norris, ok := report.Driver("norris")
	require.True(t, ok)
	assert.True(t, norris.Points().Equal(decimal.NewFromInt(98)))
	assert.Equal(t, 1, norris.SprintWins)
	assert.True(t, report.DriverMatrix.Cell(5, models.Driver("norris")).Equal(decimal.NewFromInt(26)))

	sainz, _ := report.Driver("sainz")
	assert.Equal(t, 5, sainz.DNFs)
	assert.True(t, sainz.Points().Equal(decimal.NewFromInt(7)))

	assert.Equal(t, "max_verstappen", report.Drivers[0].Entity.ID)
	assert.Equal(t, "red_bull", report.Constructors[0].Entity.ID)
}

func TestSeasonServiceStandingsEvolution(t *testing.T) {
	svc := NewSeasonService(newFakeSource(), analytics.DefaultOptions(), 50*time.Millisecond, nil)
	rec := &sleepRecorder{}
	svc.sleep = rec.sleep
	svc.now = func() time.Time { return afterRound(4) }

	report, err := svc.StandingsEvolution(context.Background(), "2024", models.EntityDriver)
	require.NoError(t, err)

	assert.Len(t, rec.slept, 3)
	require.Len(t, report.Series, 3)
	assert.Equal(t, "max_verstappen", report.Series[0].Entity.ID)
	assert.Equal(t, "norris", report.Series[1].Entity.ID)
	assert.Equal(t, "sainz", report.Series[2].Entity.ID, "absent from the last round sorts last")

	for _, s := range report.Series {
		assert.Len(t, s.Rounds, 4)
	}
	assert.Equal(t, "Suzuka", report.Series[0].Rounds[3].Locality)
	assert.Equal(t, "JED", report.Labels[2])
}

func TestSeasonServiceStandingsEvolutionUnknownKind(t *testing.T) {
	svc := NewSeasonService(newFakeSource(), analytics.DefaultOptions(), 0, nil)
	_, err := svc.StandingsEvolution(context.Background(), "2024", "team")
	assert.Error(t, err)
}

func TestSeasonServiceStandingsEvolutionSchemaError(t *testing.T) {
	source := newFakeSource()
	source.standings[1][1].PositionText = "9"
	svc := NewSeasonService(source, analytics.DefaultOptions(), 0, nil)
	svc.now = func() time.Time { return afterRound(2) }

	_, err := svc.StandingsEvolution(context.Background(), "2024", models.EntityDriver)
	assert.True(t, models.IsSchemaError(err))
}
