// Package scoring holds the pure score, streak and ranking rules.
package scoring

import (
	"math"
	"sort"

	"live-quiz-service/internal/domain"
)

// MinShare is the fraction of the point budget a correct answer keeps at the time limit.
const MinShare = 0.5

// Delta returns the points for a correct answer given after responseMs of a durationMs question.
// It falls linearly from points (instant) to points*MinShare (at or after the limit).
func Delta(points int, responseMs, durationMs int64) int {
	if points <= 0 {
		return 0
	}
	if durationMs <= 0 {
		return points
	}
	ratio := float64(max(responseMs, 0)) / float64(durationMs)
	if ratio > 1 {
		ratio = 1
	}
	return int(math.Round(float64(points) * (1 - (1-MinShare)*ratio)))
}

// Outcome is one participant's result for a single question.
type Outcome struct {
	Answered   bool
	Correct    bool
	ResponseMs int64
}

// Apply folds an outcome into a standing and returns the new standing with the score delta.
func Apply(prev domain.Standing, o Outcome, points int, durationMs int64) (domain.Standing, int) {
	next := prev
	delta := 0
	if o.Answered {
		next.CumulativeResponseMs += max(o.ResponseMs, 0)
		next.ResponseCount++
	}
	if o.Answered && o.Correct {
		delta = Delta(points, o.ResponseMs, durationMs)
		next.Score += delta
		next.Streak++
	} else {
		next.Streak = 0
	}
	return next, delta
}

// Ranked is the ranking input for one player.
type Ranked struct {
	ID                   string
	Score                int
	CumulativeResponseMs int64
	ResponseCount        int
	JoinOrder            int
}

// Rank returns 1-based positions keyed by id.
// Order: higher score first, then lower average response time (players without responses last),
// then earlier join order.
func Rank(players []Ranked) map[string]int {
	sorted := make([]Ranked, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	positions := make(map[string]int, len(sorted))
	for i, p := range sorted {
		positions[p.ID] = i + 1
	}
	return positions
}

func less(a, b Ranked) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	switch {
	case a.ResponseCount > 0 && b.ResponseCount == 0:
		return true
	case a.ResponseCount == 0 && b.ResponseCount > 0:
		return false
	case a.ResponseCount > 0 && b.ResponseCount > 0:
		// a.avg < b.avg without division
		lhs := a.CumulativeResponseMs * int64(b.ResponseCount)
		rhs := b.CumulativeResponseMs * int64(a.ResponseCount)
		if lhs != rhs {
			return lhs < rhs
		}
	}
	return a.JoinOrder < b.JoinOrder
}
