// Package rating computes Elo movements for team matches. It is pure
// arithmetic: no I/O, no state, and identical inputs always produce
// identical outputs.
package rating

import (
	"math"

	"github.com/kapu/league-tracker-go/internal/domain"
)

// Winner names the side that took the match.
type Winner string

const (
	TeamA Winner = "A"
	TeamB Winner = "B"
)

const (
	// Players below this many recorded matches move at the provisional K.
	provisionalMatches = 20

	kProvisional = 32.0
	kEstablished = 16.0
)

// ComputeRatings returns the new absolute rating for every player on both
// teams after the given outcome. The expected score is derived from the
// arithmetic mean of each team's ratings, then applied per player with that
// player's own K-factor based on matches played before this match. Callers
// must pass non-empty, disjoint teams; neither is re-validated here.
func ComputeRatings(teamA, teamB []domain.Player, winner Winner) map[string]int {
	ratingA := teamMean(teamA)
	ratingB := teamMean(teamB)

	expectedA := expectedScore(ratingA, ratingB)
	expectedB := expectedScore(ratingB, ratingA)

	scoreA, scoreB := 1.0, 0.0
	if winner == TeamB {
		scoreA, scoreB = 0.0, 1.0
	}

	out := make(map[string]int, len(teamA)+len(teamB))
	for _, p := range teamA {
		out[p.ID] = newRating(p, scoreA, expectedA)
	}
	for _, p := range teamB {
		out[p.ID] = newRating(p, scoreB, expectedB)
	}
	return out
}

func teamMean(team []domain.Player) float64 {
	sum := 0.0
	for _, p := range team {
		sum += float64(p.Elo)
	}
	return sum / float64(len(team))
}

// expectedScore is the logistic win probability for a team rated self
// against a team rated opponent.
func expectedScore(self, opponent float64) float64 {
	return 1 / (1 + math.Pow(10, (opponent-self)/400))
}

func newRating(p domain.Player, score, expected float64) int {
	k := kEstablished
	if p.MatchesPlayed < provisionalMatches {
		k = kProvisional
	}
	return int(math.Round(float64(p.Elo) + k*(score-expected)))
}
