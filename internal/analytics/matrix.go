package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/yourusername/paddock/internal/models"
)

// PointsMatrix is a dense rounds × entities grid of points scored per round.
// Cells[i][j] is the race plus sprint points of Entities[j] in Rounds[i].
type PointsMatrix struct {
	Rounds   []int               `json:"rounds"`
	Entities []models.EntityRef  `json:"entities"`
	Cells    [][]decimal.Decimal `json:"cells"`
}

type matrixBuilder struct {
	rounds   []int
	roundIdx map[int]int
	cells    map[models.EntityRef][]decimal.Decimal
}

func newMatrixBuilder(rounds []int) *matrixBuilder {
	idx := make(map[int]int, len(rounds))
	for i, r := range rounds {
		idx[r] = i
	}
	return &matrixBuilder{
		rounds:   rounds,
		roundIdx: idx,
		cells:    make(map[models.EntityRef][]decimal.Decimal),
	}
}

func (b *matrixBuilder) add(round int, e models.EntityRef, points decimal.Decimal) {
	col, ok := b.cells[e]
	if !ok {
		col = make([]decimal.Decimal, len(b.rounds))
		for i := range col {
			col[i] = decimal.Zero
		}
		b.cells[e] = col
	}
	i := b.roundIdx[round]
	col[i] = col[i].Add(points)
}

func (b *matrixBuilder) build(order []models.EntityRef) *PointsMatrix {
	m := &PointsMatrix{
		Rounds:   append([]int(nil), b.rounds...),
		Entities: append([]models.EntityRef(nil), order...),
		Cells:    make([][]decimal.Decimal, len(b.rounds)),
	}
	for i := range b.rounds {
		row := make([]decimal.Decimal, len(order))
		for j, e := range order {
			row[j] = b.cells[e][i]
		}
		m.Cells[i] = row
	}
	return m
}

func (m *PointsMatrix) roundIndex(round int) int {
	for i, r := range m.Rounds {
		if r == round {
			return i
		}
	}
	return -1
}

func (m *PointsMatrix) entityIndex(e models.EntityRef) int {
	for j, x := range m.Entities {
		if x == e {
			return j
		}
	}
	return -1
}

// Cell returns the points of an entity in a round, zero when either is unknown
func (m *PointsMatrix) Cell(round int, e models.EntityRef) decimal.Decimal {
	i, j := m.roundIndex(round), m.entityIndex(e)
	if i < 0 || j < 0 {
		return decimal.Zero
	}
	return m.Cells[i][j]
}

// EntityTotal sums an entity's column
func (m *PointsMatrix) EntityTotal(e models.EntityRef) decimal.Decimal {
	j := m.entityIndex(e)
	total := decimal.Zero
	if j < 0 {
		return total
	}
	for i := range m.Cells {
		total = total.Add(m.Cells[i][j])
	}
	return total
}

// RollingEntry is an entity's cumulative points and championship rank after a round
type RollingEntry struct {
	Entity     models.EntityRef `json:"entity"`
	Cumulative decimal.Decimal  `json:"cumulative"`
	Rank       int              `json:"rank"`
}

// RollingRound is the rolling table after one round
type RollingRound struct {
	Round   int            `json:"round"`
	Entries []RollingEntry `json:"entries"`
}

// Rolling returns the cumulative table after every round. Entries are
// ordered by rank; equal totals share a rank and the next rank is skipped.
func (m *PointsMatrix) Rolling() []RollingRound {
	totals := make([]decimal.Decimal, len(m.Entities))
	for j := range totals {
		totals[j] = decimal.Zero
	}

	out := make([]RollingRound, 0, len(m.Rounds))
	for i, round := range m.Rounds {
		entries := make([]RollingEntry, len(m.Entities))
		for j, e := range m.Entities {
			totals[j] = totals[j].Add(m.Cells[i][j])
			entries[j] = RollingEntry{Entity: e, Cumulative: totals[j]}
		}
		sort.SliceStable(entries, func(a, b int) bool {
			return entries[a].Cumulative.GreaterThan(entries[b].Cumulative)
		})
		for k := range entries {
			if k > 0 && entries[k].Cumulative.Equal(entries[k-1].Cumulative) {
				entries[k].Rank = entries[k-1].Rank
				continue
			}
			entries[k].Rank = k + 1
		}
		out = append(out, RollingRound{Round: round, Entries: entries})
	}
	return out
}
