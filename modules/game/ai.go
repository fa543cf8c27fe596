package game

import (
	"strings"
	"time"

	domain "github.com/example/draw-guess-demo/domain/game"
)

// AI guess odds per drawing update, once off cooldown.
const (
	aiCorrectChance = 0.10
	aiWrongChance   = 0.20
)

// maybeAIGuess gives the simulated player one guess attempt, gated by the
// configured cooldown. Runs inside the room's serialization window; the
// drawing-update commit and the AI guess commit together.
func (s *Service) maybeAIGuess(d *domain.RoomData, out *outbox) *roundOutcome {
	now := s.nowFn()
	cooldown := time.Duration(d.Settings.AIGuessCooldownMS) * time.Millisecond
	if !d.LastAIGuess.IsZero() && now.Sub(d.LastAIGuess) < cooldown {
		return nil
	}
	if d.HasCorrectGuess(domain.AIPlayerName) {
		return nil
	}

	roll := s.randFloat()
	switch {
	case roll < aiCorrectChance:
		d.LastAIGuess = now
		return s.applyGuess(d, out, domain.AIPlayerName, d.TargetWord)
	case roll < aiCorrectChance+aiWrongChance:
		word := s.words.RandomExcluding(s.aiExclusions(d), s.randIntn)
		if word == "" {
			return nil
		}
		d.LastAIGuess = now
		return s.applyGuess(d, out, domain.AIPlayerName, word)
	default:
		// The AI studies the drawing and stays quiet. The cooldown is not
		// consumed by a pass.
		return nil
	}
}

// aiExclusions is the set of words the AI must not offer as a wrong guess:
// the target itself and everything it already tried this round.
func (s *Service) aiExclusions(d *domain.RoomData) map[string]bool {
	exclude := map[string]bool{
		strings.ToLower(d.TargetWord): true,
	}
	for _, g := range d.Guesses {
		if g.Player == domain.AIPlayerName {
			exclude[strings.ToLower(g.Text)] = true
		}
	}
	return exclude
}
