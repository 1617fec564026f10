package services

import "math"

// eloK is the exchange factor of the standard pairwise rating formula.
const eloK = 32

// EloExchange returns both players' updated ratings. score1 is player 1's
// result: 1 for a win, 0.5 for a draw, 0 for a loss; the exchange is
// symmetric, so player 2 scores 1-score1.
func EloExchange(r1, r2 int64, score1 float64) (int64, int64) {
	expected1 := 1 / (1 + math.Pow(10, float64(r2-r1)/400))
	expected2 := 1 - expected1
	new1 := int64(math.Round(float64(r1) + eloK*(score1-expected1)))
	new2 := int64(math.Round(float64(r2) + eloK*((1-score1)-expected2)))
	return new1, new2
}
