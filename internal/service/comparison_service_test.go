package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/paddock/internal/analytics"
	"github.com/yourusername/paddock/internal/datasource"
	"github.com/yourusername/paddock/internal/models"
)

type fakeDriverSource struct {
	races      map[string][]models.RaceResult
	sprints    map[string][]models.SprintResult
	qualifying map[string][]models.QualifyingResult
	err        error
}

func (f *fakeDriverSource) GetDriverRaces(ctx context.Context, season, driverID string) ([]models.RaceResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.races[driverID], nil
}

func (f *fakeDriverSource) GetDriverSprints(ctx context.Context, season, driverID string) ([]models.SprintResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sprints[driverID], nil
}

func (f *fakeDriverSource) GetDriverQualifying(ctx context.Context, season, driverID string) ([]models.QualifyingResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.qualifying[driverID], nil
}

func comparisonFixture() *fakeDriverSource {
	return &fakeDriverSource{
		races: map[string][]models.RaceResult{
			"piastri": {
				{Round: 1, DriverID: "piastri", Position: intPtr(4), Grid: 5, Points: decimal.NewFromInt(12), Status: "Finished"},
				{Round: 2, DriverID: "piastri", Position: intPtr(1), Grid: 2, Points: decimal.NewFromInt(25), Status: "Finished"},
			},
			"norris": {
				{Round: 1, DriverID: "norris", Position: intPtr(2), Grid: 1, Points: decimal.NewFromInt(18), Status: "Finished"},
				{Round: 2, DriverID: "norris", Grid: 1, Points: decimal.Zero, Status: "Accident"},
			},
		},
		qualifying: map[string][]models.QualifyingResult{
			"norris": {{Round: 1, DriverID: "norris", Position: 1}, {Round: 2, DriverID: "norris", Position: 1}},
		},
	}
}

func TestCompareDrivers(t *testing.T) {
	svc := NewComparisonService(comparisonFixture(), nil)

	cmp, err := svc.CompareDrivers(context.Background(), "2024", "piastri", "norris")
	require.NoError(t, err)

	assert.Equal(t, "piastri", cmp.A.DriverID)
	assert.Equal(t, 1, cmp.A.Wins)
	assert.Equal(t, 2, cmp.A.BestGrid)
	assert.Equal(t, 0, cmp.A.Poles)

	assert.Equal(t, 2, cmp.B.BestFinish)
	assert.Equal(t, 2, cmp.B.Poles)
	assert.Equal(t, 2, cmp.B.QualifyingWins)
	assert.Equal(t, 1, cmp.B.DNFs)
}

func TestCompareDriversSymmetric(t *testing.T) {
	svc := NewComparisonService(comparisonFixture(), nil)
	ctx := context.Background()

	ab, err := svc.CompareDrivers(ctx, "2024", "piastri", "norris")
	require.NoError(t, err)
	ba, err := svc.CompareDrivers(ctx, "2024", "norris", "piastri")
	require.NoError(t, err)

	assert.Equal(t, *ab, ba.Swap())
}

func TestCompareDriversWithoutResults(t *testing.T) {
	svc := NewComparisonService(comparisonFixture(), nil)

	cmp, err := svc.CompareDrivers(context.Background(), "2024", "piastri", "colapinto")
	require.NoError(t, err)
	assert.True(t, cmp.A.Found)
	assert.False(t, cmp.B.Found)
	assert.Equal(t, analytics.NoPosition, cmp.B.BestFinish)
}

func TestCompareDriversNotFoundIsEmpty(t *testing.T) {
	source := &fakeDriverSource{err: &datasource.TransportError{Source: "ergast", Code: datasource.ErrCodeNotFound, StatusCode: 404}}
	svc := NewComparisonService(source, nil)

	cmp, err := svc.CompareDrivers(context.Background(), "1949", "fangio", "farina")
	require.NoError(t, err)
	assert.False(t, cmp.A.Found)
	assert.False(t, cmp.B.Found)
}

func TestCompareDriversTransportError(t *testing.T) {
	source := &fakeDriverSource{err: &datasource.TransportError{Source: "ergast", Code: datasource.ErrCodeServerError, StatusCode: 502}}
	svc := NewComparisonService(source, nil)

	_, err := svc.CompareDrivers(context.Background(), "2024", "piastri", "norris")
	require.Error(t, err)
	assert.True(t, datasource.IsTransportError(err))
}

func TestCompareDriversRequiresTwoIDs(t *testing.T) {
	svc := NewComparisonService(comparisonFixture(), nil)
	_, err := svc.CompareDrivers(context.Background(), "2024", "piastri", "")
	assert.Error(t, err)
}
