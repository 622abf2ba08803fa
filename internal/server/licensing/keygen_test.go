package licensing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKey_Format(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		key, err := GenerateKey()
		require.NoError(t, err)
		require.Len(t, key, KeyLength)
		require.True(t, IsWellFormedKey(key), "unexpected key shape %q", key)

		_, dup := seen[key]
		require.False(t, dup, "duplicate key %q after %d generations", key, i)
		seen[key] = struct{}{}
	}
}

func TestIsWellFormedKey(t *testing.T) {
	assert.True(t, IsWellFormedKey("AB12C-DE34F-GH56I-JK78L"))
	assert.False(t, IsWellFormedKey("ab12c-DE34F-GH56I-JK78L"))
	assert.False(t, IsWellFormedKey("AB12C-DE34F-GH56I"))
	assert.False(t, IsWellFormedKey("AB12CDE34FGH56IJK78L"))
	// The demo key uses 4-character segments and is not generator output.
	assert.False(t, IsWellFormedKey(DemoLicenseKey))
}

func TestGenerateUniqueKey_RetriesOnDuplicate(t *testing.T) {
	calls := 0
	key, err := GenerateUniqueKey(5, func(key string) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("insert: %w", ErrDuplicateKey)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, IsWellFormedKey(key))
}

func TestGenerateUniqueKey_StopsOnOtherErrors(t *testing.T) {
	boom := errors.New("connection refused")
	calls := 0
	_, err := GenerateUniqueKey(5, func(string) error {
		calls++
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestGenerateUniqueKey_GivesUp(t *testing.T) {
	calls := 0
	_, err := GenerateUniqueKey(4, func(string) error {
		calls++
		return ErrDuplicateKey
	})

	require.ErrorIs(t, err, ErrKeyGeneration)
	assert.Equal(t, 4, calls)
}
