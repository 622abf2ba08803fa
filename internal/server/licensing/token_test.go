package licensing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestTokenFragment(t *testing.T) {
	assert.Equal(t, "ABSTsk", TokenFragment("ABCDE-FGHIJ-KLMNO-PQRST", "sk_live_123"))
	assert.Equal(t, "DE90te", TokenFragment(DemoLicenseKey, "test-key"))
	// Short inputs contribute what they have.
	assert.Equal(t, "AA", TokenFragment("A", ""))
}

func TestTokenFragment_CountsCharactersNotBytes(t *testing.T) {
	assert.Equal(t, "ABSTña", TokenFragment("ABCDE-FGHIJ-KLMNO-PQRST", "ñandú-key"))
	assert.Equal(t, "ÄBWÜab", TokenFragment("ÄBC-XYZ-WÜ", "abcd"))
	assert.Equal(t, "éaüösk", TokenFragment("éa-123-üö", "sk"))

	// Astral characters take two units, matching JavaScript substring.
	assert.Equal(t, "AB🔑ke", TokenFragment("AB-🔑", "key"))
	assert.Equal(t, "ABSTa\uFFFD", TokenFragment("ABCDE-FGHIJ-KLMNO-PQRST", "a🔑"))
}

func TestEncodeToken_MultibyteAPIKey(t *testing.T) {
	token := EncodeToken("ABCDE-FGHIJ-KLMNO-PQRST", "ñandú-key", tokenEpoch)
	assert.Equal(t, "QUJTVMOxYQ=="+"694201337"+"17672256", token)

	decoded, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ABSTña", decoded.Fragment)
	assert.NoError(t, VerifyToken(token, "ABCDE-FGHIJ-KLMNO-PQRST", "ñandú-key", tokenEpoch))
}

func TestEncodeToken_KnownValue(t *testing.T) {
	token := EncodeToken("ABCDE-FGHIJ-KLMNO-PQRST", "sk_live_123", tokenEpoch)
	assert.Equal(t, "QUJTVHNr"+"694201337"+"17672256", token)
}

func TestShortEpoch_DropsLastTwoDigits(t *testing.T) {
	assert.Equal(t, int64(17672256), ShortEpoch(tokenEpoch))
	assert.Equal(t, int64(17672256), ShortEpoch(tokenEpoch.Add(99*time.Second)))
	assert.Equal(t, int64(17672257), ShortEpoch(tokenEpoch.Add(100*time.Second)))
}

func TestDecodeToken_RoundTrip(t *testing.T) {
	keys := []string{"ABCDE-FGHIJ-KLMNO-PQRST", DemoLicenseKey, "Z9Z9Z-00000-11111-X7X7X"}
	apiKeys := []string{"sk_live_123", "69", "4a"}

	for _, key := range keys {
		for _, apiKey := range apiKeys {
			now := tokenEpoch.Add(42 * time.Second)
			decoded, err := DecodeToken(EncodeToken(key, apiKey, now))
			require.NoError(t, err)

			assert.Equal(t, TokenFragment(key, apiKey), decoded.Fragment)
			assert.InDelta(t, now.Unix(), decoded.Timestamp*100, 100)
		}
	}
}

func TestDecodeToken_Malformed(t *testing.T) {
	for _, token := range []string{
		"",
		"QUJTVHNr",
		"QUJTVHNr694201337",
		"!!!!694201337123",
		"QUJTVHNr694201337abc",
	} {
		_, err := DecodeToken(token)
		assert.ErrorIs(t, err, ErrMalformedToken, "token %q", token)
	}
}

func TestVerifyToken(t *testing.T) {
	key := "ABCDE-FGHIJ-KLMNO-PQRST"
	apiKey := "Bearer-less-key"
	token := EncodeToken(key, apiKey, tokenEpoch)

	require.NoError(t, VerifyToken(token, key, apiKey, tokenEpoch))
	require.NoError(t, VerifyToken(token, key, apiKey, tokenEpoch.Add(150*time.Second)))

	err := VerifyToken(token, key, apiKey, tokenEpoch.Add(10*time.Minute))
	assert.ErrorIs(t, err, ErrTokenOutOfWindow)

	err = VerifyToken(token, "XXCDE-FGHIJ-KLMNO-PQRST", apiKey, tokenEpoch)
	assert.ErrorIs(t, err, ErrTokenMismatch)

	err = VerifyToken(token, key, "other", tokenEpoch)
	assert.ErrorIs(t, err, ErrTokenMismatch)
}
