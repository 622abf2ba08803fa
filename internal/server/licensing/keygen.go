package licensing

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const (
	KeySegments      = 4
	KeySegmentLength = 5
	KeySeparator     = "-"

	keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// KeyLength is the length of a generated key, separators included.
const KeyLength = KeySegments*KeySegmentLength + KeySegments - 1

var keyPattern = regexp.MustCompile(`^[A-Z0-9]{5}-[A-Z0-9]{5}-[A-Z0-9]{5}-[A-Z0-9]{5}$`)

// GenerateKey returns a key of the form XXXXX-XXXXX-XXXXX-XXXXX.
// It does not check the key against issued ones; the store's unique
// constraint does that and GenerateUniqueKey re-rolls on a collision.
func GenerateKey() (string, error) {
	alphabetSize := big.NewInt(int64(len(keyAlphabet)))

	segments := make([]string, 0, KeySegments)
	for i := 0; i < KeySegments; i++ {
		var segment strings.Builder
		for j := 0; j < KeySegmentLength; j++ {
			n, err := rand.Int(rand.Reader, alphabetSize)
			if err != nil {
				return "", fmt.Errorf("failed to read random source: %w", err)
			}
			segment.WriteByte(keyAlphabet[n.Int64()])
		}
		segments = append(segments, segment.String())
	}

	return strings.Join(segments, KeySeparator), nil
}

// IsWellFormedKey reports whether key has the generated key shape.
// Keys issued by other systems (and the demo key) may not.
func IsWellFormedKey(key string) bool {
	return keyPattern.MatchString(key)
}

// GenerateUniqueKey generates keys and hands them to insert until insert
// accepts one. insert must return an error wrapping ErrDuplicateKey on a
// collision; any other error stops the loop.
func GenerateUniqueKey(attempts int, insert func(key string) error) (string, error) {
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		key, err := GenerateKey()
		if err != nil {
			return "", err
		}

		err = insert(key)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, ErrDuplicateKey) {
			return "", err
		}
	}

	return "", fmt.Errorf("%w after %d attempts", ErrKeyGeneration, attempts)
}
