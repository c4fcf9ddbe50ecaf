package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PrefixLength is how many leading characters of a key are stored in clear
// to narrow lookups.
const PrefixLength = 8

// GenerateAPIKey returns a new random 32 character key.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// KeyPrefix returns the indexed prefix of key.
func KeyPrefix(key string) string {
	if len(key) < PrefixLength {
		return key
	}
	return key[:PrefixLength]
}

// Hasher hashes and compares API keys with bcrypt at a fixed cost.
type Hasher struct {
	Cost int
}

func (h Hasher) Hash(key string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	return string(hash), nil
}

func (h Hasher) Matches(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
