package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var adjectives = []string{
	"Swift", "Brave", "Clever", "Bold", "Mighty",
	"Silent", "Wild", "Golden", "Iron", "Silver",
	"Storm", "Shadow", "Ember", "Frost", "Thunder",
}

var nouns = []string{
	"Falcon", "Tiger", "Dragon", "Wolf", "Eagle",
	"Bear", "Lion", "Hawk", "Phoenix", "Panther",
	"Fox", "Raven", "Viper", "Lynx", "Orca",
}

// GenerateNickname creates a random nickname in the format "AdjectiveNoun-XXXX"
// where XXXX is a random 4-digit number
func GenerateNickname() (string, error) {
	adjIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(adjectives))))
	if err != nil {
		return "", fmt.Errorf("failed to pick adjective: %w", err)
	}

	nounIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(nouns))))
	if err != nil {
		return "", fmt.Errorf("failed to pick noun: %w", err)
	}

	suffix, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to pick suffix: %w", err)
	}

	return fmt.Sprintf("%s%s-%04d", adjectives[adjIdx.Int64()], nouns[nounIdx.Int64()], suffix.Int64()), nil
}
