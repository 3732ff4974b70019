package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// RoundInfo describes one scheduled event within a season
type RoundInfo struct {
	Round     int       `json:"round"`
	RaceName  string    `json:"race_name"`
	CircuitID string    `json:"circuit_id"`
	Locality  string    `json:"locality"`
	Country   string    `json:"country"`
	Date      time.Time `json:"date"`
	Sprint    bool      `json:"sprint"`
}

// Schedule is a season calendar as reported by the results source
type Schedule struct {
	Season string      `json:"season"`
	Rounds []RoundInfo `json:"rounds"`
}

// TotalRounds returns the number of scheduled rounds
func (s *Schedule) TotalRounds() int {
	return len(s.Rounds)
}

// SprintRounds returns the round numbers flagged as sprint weekends
func (s *Schedule) SprintRounds() []int {
	rounds := make([]int, 0)
	for _, r := range s.Rounds {
		if r.Sprint {
			rounds = append(rounds, r.Round)
		}
	}
	return rounds
}

// IsSprint reports whether the given round is a sprint weekend
func (s *Schedule) IsSprint(round int) bool {
	for _, r := range s.Rounds {
		if r.Round == round {
			return r.Sprint
		}
	}
	return false
}

// CompletedRounds returns the highest round whose race date is before now.
// Rounds without a date are assumed to have run.
func (s *Schedule) CompletedRounds(now time.Time) int {
	completed := 0
	for _, r := range s.Rounds {
		if !r.Date.IsZero() && !r.Date.Before(now) {
			continue
		}
		if r.Round > completed {
			completed = r.Round
		}
	}
	return completed
}

// Round looks up a round by number
func (s *Schedule) Round(round int) (RoundInfo, bool) {
	for _, r := range s.Rounds {
		if r.Round == round {
			return r, true
		}
	}
	return RoundInfo{}, false
}

// Labels returns a short presentation label per round: the first three
// letters of the locality, upper-cased. Colliding labels fall back to R<n>.
func (s *Schedule) Labels() map[int]string {
	seen := make(map[string]int, len(s.Rounds))
	for _, r := range s.Rounds {
		seen[abbreviate(r.Locality)]++
	}

	labels := make(map[int]string, len(s.Rounds))
	for _, r := range s.Rounds {
		abbr := abbreviate(r.Locality)
		if abbr == "" || seen[abbr] > 1 {
			labels[r.Round] = fmt.Sprintf("R%d", r.Round)
			continue
		}
		labels[r.Round] = abbr
	}
	return labels
}

func abbreviate(locality string) string {
	var b strings.Builder
	n := 0
	for _, r := range locality {
		if !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		n++
		if n == 3 {
			break
		}
	}
	return b.String()
}
