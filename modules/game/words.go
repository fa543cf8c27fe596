package game

import (
	"bufio"
	"errors"
	"os"
	"strings"
)

// defaultWords is the built-in drawing vocabulary, used when no word file is
// configured.
var defaultWords = []string{
	"airplane", "anchor", "apple", "banana", "bicycle", "bridge", "broom",
	"butterfly", "cactus", "camera", "candle", "castle", "caterpillar",
	"compass", "crayon", "dolphin", "dragon", "elephant", "envelope",
	"feather", "firetruck", "flamingo", "giraffe", "guitar", "hammer",
	"helicopter", "igloo", "jellyfish", "kangaroo", "keyboard", "ladder",
	"lighthouse", "mermaid", "microscope", "mountain", "mushroom", "octopus",
	"owl", "penguin", "piano", "pineapple", "pirate", "pyramid", "rainbow",
	"robot", "rocket", "sailboat", "scissors", "snowman", "spider",
	"submarine", "sunflower", "telescope", "tornado", "tractor", "trumpet",
	"umbrella", "unicorn", "volcano", "waterfall", "whale", "windmill",
	"wizard", "zebra",
}

// WordList is an immutable pool of target words.
type WordList struct {
	words []string
}

// DefaultWordList returns the built-in vocabulary.
func DefaultWordList() *WordList {
	return &WordList{words: defaultWords}
}

// NewWordList builds a list from the given words, dropping blanks.
func NewWordList(words []string) (*WordList, error) {
	cleaned := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			cleaned = append(cleaned, w)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.New("word list is empty")
	}
	return &WordList{words: cleaned}, nil
}

// LoadWordList reads a newline-separated word file.
func LoadWordList(path string) (*WordList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewWordList(words)
}

// Len returns the vocabulary size.
func (w *WordList) Len() int {
	return len(w.words)
}

// Random picks a uniformly random word using the supplied intn source.
func (w *WordList) Random(intn func(int) int) string {
	return w.words[intn(len(w.words))]
}

// RandomExcluding picks a random word not present in exclude, or "" when the
// exclusions exhaust the vocabulary.
func (w *WordList) RandomExcluding(exclude map[string]bool, intn func(int) int) string {
	candidates := make([]string, 0, len(w.words))
	for _, word := range w.words {
		if !exclude[word] {
			candidates = append(candidates, word)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[intn(len(candidates))]
}
