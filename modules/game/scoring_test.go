package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuesserPoints(t *testing.T) {
	tests := []struct {
		name      string
		base      float64
		remaining int
		duration  int
		want      float64
	}{
		{"full time left", 10, 60, 60, 10},
		{"half time left", 10, 30, 60, 5},
		{"one second left", 10, 1, 60, 0.2},
		{"rounds half up", 10, 19, 60, 3.2}, // 3.1666... -> 3.2
		{"zero remaining", 10, 0, 60, 0},
		{"zero duration", 10, 30, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, guesserPoints(tt.base, tt.remaining, tt.duration), 1e-9)
		})
	}
}

func TestDrawerPoints(t *testing.T) {
	tests := []struct {
		name           string
		base           float64
		remaining      int
		duration       int
		nonDrawerCount int
		want           float64
	}{
		{"half time two guessers", 5, 30, 60, 2, 1.3}, // 1.25 rounds away from zero
		{"full time one guesser", 5, 60, 60, 1, 5},
		{"full time three guessers", 5, 60, 60, 3, 1.7}, // 1.666... -> 1.7
		{"no guessers", 5, 30, 60, 0, 0},
		{"zero duration", 5, 30, 0, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, drawerPoints(tt.base, tt.remaining, tt.duration, tt.nonDrawerCount), 1e-9)
		})
	}
}

func TestRoundScore(t *testing.T) {
	assert.InDelta(t, 1.3, roundScore(1.25), 1e-9)
	assert.InDelta(t, 1.2, roundScore(1.24), 1e-9)
	assert.InDelta(t, -1.3, roundScore(-1.25), 1e-9)
	assert.InDelta(t, 0, roundScore(0), 1e-9)
}
