package analytics

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/yourusername/paddock/internal/models"
)

// PointsFinishPolicy decides which results count as a points finish
type PointsFinishPolicy string

const (
	// PointsFinishByPoints counts any result that scored (points > 0)
	PointsFinishByPoints PointsFinishPolicy = "points"
	// PointsFinishTop10 counts any classified result in the top ten
	PointsFinishTop10 PointsFinishPolicy = "top10"
)

// DefaultDistributionEdges are the lower bounds of the season points buckets
var DefaultDistributionEdges = []decimal.Decimal{
	decimal.NewFromInt(0),
	decimal.NewFromInt(1),
	decimal.NewFromInt(25),
	decimal.NewFromInt(50),
	decimal.NewFromInt(100),
	decimal.NewFromInt(200),
}

// Options tunes AggregateSeason
type Options struct {
	PointsFinish      PointsFinishPolicy
	DistributionEdges []decimal.Decimal
}

// DefaultOptions returns the points policy and default bucket edges
func DefaultOptions() Options {
	return Options{
		PointsFinish:      PointsFinishByPoints,
		DistributionEdges: DefaultDistributionEdges,
	}
}

// Counters are the season tallies for one entity. Sprint results only feed
// the Sprint* fields and the points totals.
//
// Constructor counters are per car: every classified or retired entry adds
// a start, so a two-car team starts twice per race and a 1-2 finish counts
// as two podiums and one win.
type Counters struct {
	Starts         int             `json:"starts"`
	Wins           int             `json:"wins"`
	Podiums        int             `json:"podiums"`
	PointsFinishes int             `json:"points_finishes"`
	DNFs           int             `json:"dnfs"`
	DSQs           int             `json:"dsqs"`
	SprintWins     int             `json:"sprint_wins"`
	SprintPodiums  int             `json:"sprint_podiums"`
	RacePoints     decimal.Decimal `json:"race_points"`
	SprintPoints   decimal.Decimal `json:"sprint_points"`
}

// Points returns race plus sprint points
func (c Counters) Points() decimal.Decimal {
	return c.RacePoints.Add(c.SprintPoints)
}

// EntityStats is one entity's season aggregate. Name, ConstructorID and
// FirstRound are captured the first time the entity appears.
type EntityStats struct {
	Entity        models.EntityRef `json:"entity"`
	Name          string           `json:"name,omitempty"`
	ConstructorID string           `json:"constructor_id,omitempty"`
	FirstRound    int              `json:"first_round"`
	Counters
}

// Bucket counts entities whose season points fall in [Lower, Upper).
// The last bucket has no upper bound.
type Bucket struct {
	Lower    decimal.Decimal  `json:"lower"`
	Upper    *decimal.Decimal `json:"upper,omitempty"`
	Entities []string         `json:"entities"`
}

// Count returns the number of entities in the bucket
func (b Bucket) Count() int {
	return len(b.Entities)
}

// Label renders the bucket range, e.g. "25-50" or "200+"
func (b Bucket) Label() string {
	if b.Upper == nil {
		return b.Lower.String() + "+"
	}
	return b.Lower.String() + "-" + b.Upper.String()
}

// SeasonSummary is the aggregate of a season's race and sprint results
type SeasonSummary struct {
	Season                  string        `json:"season"`
	Rounds                  []int         `json:"rounds"`
	SprintRounds            []int         `json:"sprint_rounds"`
	Drivers                 []EntityStats `json:"drivers"`
	Constructors            []EntityStats `json:"constructors"`
	DriverMatrix            *PointsMatrix `json:"driver_matrix"`
	ConstructorMatrix       *PointsMatrix `json:"constructor_matrix"`
	DriverDistribution      []Bucket      `json:"driver_distribution"`
	ConstructorDistribution []Bucket      `json:"constructor_distribution"`
}

// Driver looks up a driver's stats
func (s *SeasonSummary) Driver(id string) (EntityStats, bool) {
	return findStats(s.Drivers, models.Driver(id))
}

// Constructor looks up a constructor's stats
func (s *SeasonSummary) Constructor(id string) (EntityStats, bool) {
	return findStats(s.Constructors, models.Constructor(id))
}

func findStats(stats []EntityStats, e models.EntityRef) (EntityStats, bool) {
	for _, st := range stats {
		if st.Entity == e {
			return st, true
		}
	}
	return EntityStats{}, false
}

// aggregator folds results for one entity kind
type aggregator struct {
	policy PointsFinishPolicy
	order  []models.EntityRef
	stats  map[models.EntityRef]*EntityStats
	matrix *matrixBuilder
}

func newAggregator(policy PointsFinishPolicy, rounds []int) *aggregator {
	return &aggregator{
		policy: policy,
		stats:  make(map[models.EntityRef]*EntityStats),
		matrix: newMatrixBuilder(rounds),
	}
}

func (a *aggregator) entity(e models.EntityRef, name, constructorID string, round int) *EntityStats {
	st, ok := a.stats[e]
	if !ok {
		st = &EntityStats{
			Entity:        e,
			Name:          name,
			ConstructorID: constructorID,
			FirstRound:    round,
		}
		a.stats[e] = st
		a.order = append(a.order, e)
	}
	return st
}

func (a *aggregator) addRace(e models.EntityRef, name, constructorID string, r *models.RaceResult) {
	st := a.entity(e, name, constructorID, r.Round)
	st.Starts++
	st.RacePoints = st.RacePoints.Add(r.Points)

	if r.Position != nil {
		if *r.Position == 1 {
			st.Wins++
		}
		if *r.Position <= 3 {
			st.Podiums++
		}
	}
	if a.isPointsFinish(r) {
		st.PointsFinishes++
	}
	switch models.ClassifyStatus(r.Status) {
	case models.StatusDisqualified:
		st.DSQs++
	case models.StatusRetired, models.StatusNotStarted:
		st.DNFs++
	}
	a.matrix.add(r.Round, e, r.Points)
}

func (a *aggregator) addSprint(e models.EntityRef, name, constructorID string, r *models.SprintResult) {
	st := a.entity(e, name, constructorID, r.Round)
	st.SprintPoints = st.SprintPoints.Add(r.Points)
	if r.Position != nil {
		if *r.Position == 1 {
			st.SprintWins++
		}
		if *r.Position <= 3 {
			st.SprintPodiums++
		}
	}
	a.matrix.add(r.Round, e, r.Points)
}

func (a *aggregator) isPointsFinish(r *models.RaceResult) bool {
	if a.policy == PointsFinishTop10 {
		return r.Position != nil && *r.Position <= 10
	}
	return r.Points.IsPositive()
}

// ranked returns stats ordered by points, then wins, then first appearance
func (a *aggregator) ranked() []EntityStats {
	out := make([]EntityStats, 0, len(a.order))
	for _, e := range a.order {
		out = append(out, *a.stats[e])
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Points(), out[j].Points()
		if !pi.Equal(pj) {
			return pi.GreaterThan(pj)
		}
		return out[i].Wins > out[j].Wins
	})
	return out
}

// AggregateSeason folds every race result, then every sprint result, into
// season counters and per-round points matrices for drivers and
// constructors. Results may arrive in any order.
func AggregateSeason(season string, races []models.RaceResult, sprints []models.SprintResult, opts Options) (*SeasonSummary, error) {
	if opts.PointsFinish == "" {
		opts.PointsFinish = PointsFinishByPoints
	}
	if opts.PointsFinish != PointsFinishByPoints && opts.PointsFinish != PointsFinishTop10 {
		return nil, fmt.Errorf("unknown points finish policy %q", opts.PointsFinish)
	}
	if opts.DistributionEdges == nil {
		opts.DistributionEdges = DefaultDistributionEdges
	}

	if err := validateRaces(races); err != nil {
		return nil, err
	}
	if err := validateSprints(sprints); err != nil {
		return nil, err
	}

	raceRounds := distinctRounds(len(races), func(i int) int { return races[i].Round })
	sprintRounds := distinctRounds(len(sprints), func(i int) int { return sprints[i].Round })
	rounds := mergeRounds(raceRounds, sprintRounds)

	drivers := newAggregator(opts.PointsFinish, rounds)
	constructors := newAggregator(opts.PointsFinish, rounds)

	sortedRaces := make([]models.RaceResult, len(races))
	copy(sortedRaces, races)
	sort.SliceStable(sortedRaces, func(i, j int) bool { return sortedRaces[i].Round < sortedRaces[j].Round })
	for i := range sortedRaces {
		r := &sortedRaces[i]
		drivers.addRace(models.Driver(r.DriverID), r.DriverName, r.ConstructorID, r)
		if r.ConstructorID != "" {
			constructors.addRace(models.Constructor(r.ConstructorID), r.Constructor, "", r)
		}
	}

	sortedSprints := make([]models.SprintResult, len(sprints))
	copy(sortedSprints, sprints)
	sort.SliceStable(sortedSprints, func(i, j int) bool { return sortedSprints[i].Round < sortedSprints[j].Round })
	for i := range sortedSprints {
		r := &sortedSprints[i]
		drivers.addSprint(models.Driver(r.DriverID), "", r.ConstructorID, r)
		if r.ConstructorID != "" {
			constructors.addSprint(models.Constructor(r.ConstructorID), "", "", r)
		}
	}

	summary := &SeasonSummary{
		Season:            season,
		Rounds:            rounds,
		SprintRounds:      sprintRounds,
		Drivers:           drivers.ranked(),
		Constructors:      constructors.ranked(),
		DriverMatrix:      drivers.matrix.build(drivers.order),
		ConstructorMatrix: constructors.matrix.build(constructors.order),
	}
	summary.DriverDistribution = Distribution(summary.Drivers, opts.DistributionEdges)
	summary.ConstructorDistribution = Distribution(summary.Constructors, opts.DistributionEdges)
	return summary, nil
}

// Distribution buckets entities by season points. Edges are ascending lower
// bounds; points below the first edge land in the first bucket.
func Distribution(stats []EntityStats, edges []decimal.Decimal) []Bucket {
	if len(edges) == 0 {
		return nil
	}
	buckets := make([]Bucket, len(edges))
	for i, lower := range edges {
		buckets[i] = Bucket{Lower: lower, Entities: []string{}}
		if i+1 < len(edges) {
			upper := edges[i+1]
			buckets[i].Upper = &upper
		}
	}
	for _, st := range stats {
		pts := st.Points()
		idx := 0
		for i := len(edges) - 1; i >= 0; i-- {
			if pts.GreaterThanOrEqual(edges[i]) {
				idx = i
				break
			}
		}
		buckets[idx].Entities = append(buckets[idx].Entities, st.Entity.ID)
	}
	return buckets
}

func validateRaces(races []models.RaceResult) error {
	for _, r := range races {
		if r.Round <= 0 {
			return models.NewSchemaError("round", strconv.Itoa(r.Round), models.ErrInvalidRound)
		}
		if r.DriverID == "" {
			return models.NewSchemaError("driverId", "", fmt.Errorf("missing driver in round %d", r.Round))
		}
		if r.Points.IsNegative() {
			return models.NewSchemaError("points", r.Points.String(), models.ErrNegativePoints)
		}
	}
	return nil
}

func validateSprints(sprints []models.SprintResult) error {
	for _, r := range sprints {
		if r.Round <= 0 {
			return models.NewSchemaError("round", strconv.Itoa(r.Round), models.ErrInvalidRound)
		}
		if r.DriverID == "" {
			return models.NewSchemaError("driverId", "", fmt.Errorf("missing driver in sprint %d", r.Round))
		}
		if r.Points.IsNegative() {
			return models.NewSchemaError("points", r.Points.String(), models.ErrNegativePoints)
		}
	}
	return nil
}

func distinctRounds(n int, round func(int) int) []int {
	seen := make(map[int]bool)
	rounds := make([]int, 0)
	for i := 0; i < n; i++ {
		r := round(i)
		if !seen[r] {
			seen[r] = true
			rounds = append(rounds, r)
		}
	}
	sort.Ints(rounds)
	return rounds
}

func mergeRounds(a, b []int) []int {
	return distinctRounds(len(a)+len(b), func(i int) int {
		if i < len(a) {
			return a[i]
		}
		return b[i-len(a)]
	})
}
