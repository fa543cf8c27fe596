package game

import "math"

// roundScore rounds to one decimal place, halves away from zero.
func roundScore(x float64) float64 {
	return math.Round(x*10) / 10
}

// guesserPoints is the award for a guesser's first correct guess of the round.
// It scales linearly with the fraction of round time left when the guess
// landed.
func guesserPoints(base float64, remaining, duration int) float64 {
	if duration <= 0 {
		return 0
	}
	return roundScore(base * float64(remaining) / float64(duration))
}

// drawerPoints is the drawer's share for one correct-guess event: a fixed
// time-scaled pool split evenly across the non-drawer human participants.
func drawerPoints(base float64, remaining, duration, nonDrawerCount int) float64 {
	if duration <= 0 || nonDrawerCount <= 0 {
		return 0
	}
	return roundScore(base * float64(remaining) / float64(duration) / float64(nonDrawerCount))
}
