package auth

import (
	"fmt"
	"strings"

	"github.com/sethvargo/go-diceware/diceware"
)

const (
	// DefaultSuggestWords gives roughly 77 bits of entropy from the EFF long list.
	DefaultSuggestWords = 6
	minSuggestWords     = 4
)

// SuggestPassphrase returns a random Diceware passphrase of n words joined by "-".
func SuggestPassphrase(n int) (string, error) {
	if n < minSuggestWords {
		return "", fmt.Errorf("passphrase needs at least %d words, got %d", minSuggestWords, n)
	}
	words, err := diceware.Generate(n)
	if err != nil {
		return "", fmt.Errorf("generate passphrase: %w", err)
	}
	return strings.Join(words, "-"), nil
}
