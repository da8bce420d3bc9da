package license

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const (
	keyAlphabet    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	keyGroups      = 4
	keyGroupLength = 8
)

// KeyPattern matches every key produced by GenerateKey.
var KeyPattern = regexp.MustCompile(`^[0-9A-Z]{8}(-[0-9A-Z]{8}){3}$`)

var alphabetSize = big.NewInt(int64(len(keyAlphabet)))

// GenerateKey returns a new license key of four 8-character base-36 groups,
// e.g. 7K2M9QXA-0PLD4R8T-ZC1N6VWB-H3YE5S0U. Uniqueness rests on the 36^32
// key space; the licenses table enforces it as well.
func GenerateKey() (string, error) {
	var b strings.Builder
	b.Grow(keyGroups*keyGroupLength + keyGroups - 1)

	for g := 0; g < keyGroups; g++ {
		if g > 0 {
			b.WriteByte('-')
		}
		for i := 0; i < keyGroupLength; i++ {
			n, err := rand.Int(rand.Reader, alphabetSize)
			if err != nil {
				return "", fmt.Errorf("failed to read random source: %w", err)
			}
			b.WriteByte(keyAlphabet[n.Int64()])
		}
	}

	return b.String(), nil
}

// NormalizeKey upper-cases and trims user-typed keys before lookup.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

func IsValidKey(key string) bool {
	return KeyPattern.MatchString(key)
}
