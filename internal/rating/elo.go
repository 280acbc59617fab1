// internal/rating/elo.go
//
// Pairwise Elo rating update applied after decisive two-player games.

package rating

import "math"

// KFactor scales how many points change hands per game.
const KFactor = 32

// Expected is the predicted score of the first player against the second
// under the logistic Elo model.
func Expected(rating, opponent float64) float64 {
	return 1 / (1 + math.Pow(10, (opponent-rating)/400))
}

// Update returns the post-game ratings for a decisive result. The transfer
// is zero-sum: the winner gains round(K*(1-E)) points and the loser drops
// the same amount. A favored winner therefore gains less than an upset one.
func Update(winner, loser float64) (newWinner, newLoser float64) {
	delta := math.Round(KFactor * (1 - Expected(winner, loser)))
	return winner + delta, loser - delta
}
