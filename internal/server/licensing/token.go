package licensing

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
)

// Validation tokens (status_id) are a reversible encoding, NOT a signature:
//
//	base64(key[:2] + key[-2:] + apiKey[:2]) + "694201337" + unix/100
//
// Anyone holding the license key and the API key prefix can forge one.
// Integrators decode it to check that the response belongs to their own
// request and was produced within ~100s of their clock. Replacing it with
// an HMAC or JWT must keep the status_id field name.

const TokenSeparator = "694201337"

// TokenClockSkew is the tolerated distance, in 100s ticks, between the
// embedded timestamp and the verifier's clock.
const TokenClockSkew = 1

var (
	ErrMalformedToken   = errors.New("malformed validation token")
	ErrTokenMismatch    = errors.New("validation token does not match license")
	ErrTokenOutOfWindow = errors.New("validation token timestamp out of window")
)

type Token struct {
	Fragment  string
	Timestamp int64
}

// TokenFragment is the plaintext embedded in a token. Slices count UTF-16
// code units, so non-ASCII keys produce the same fragment a JavaScript
// integrator computes with substring. A surrogate pair cut in half becomes
// U+FFFD.
func TokenFragment(licenseKey, apiKey string) string {
	return head(licenseKey, 2) + tail(licenseKey, 2) + head(apiKey, 2)
}

// ShortEpoch is the Unix time in seconds with the last two digits dropped.
func ShortEpoch(t time.Time) int64 {
	return t.Unix() / 100
}

func EncodeToken(licenseKey, apiKey string, now time.Time) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(TokenFragment(licenseKey, apiKey)))
	return encoded + TokenSeparator + strconv.FormatInt(ShortEpoch(now), 10)
}

// DecodeToken splits a token back into its fragment and timestamp.
func DecodeToken(token string) (Token, error) {
	offset := 0
	for {
		idx := strings.Index(token[offset:], TokenSeparator)
		if idx < 0 {
			return Token{}, ErrMalformedToken
		}
		idx += offset

		prefix, suffix := token[:idx], token[idx+len(TokenSeparator):]
		if decoded, ts, ok := splitToken(prefix, suffix); ok {
			return Token{Fragment: decoded, Timestamp: ts}, nil
		}
		offset = idx + 1
	}
}

// VerifyToken performs the check integrators run on a received token.
func VerifyToken(token, licenseKey, apiKey string, now time.Time) error {
	decoded, err := DecodeToken(token)
	if err != nil {
		return err
	}
	if decoded.Fragment != TokenFragment(licenseKey, apiKey) {
		return ErrTokenMismatch
	}

	drift := ShortEpoch(now) - decoded.Timestamp
	if drift < 0 {
		drift = -drift
	}
	if drift > TokenClockSkew {
		return fmt.Errorf("%w: drift of %d", ErrTokenOutOfWindow, drift)
	}
	return nil
}

func splitToken(prefix, suffix string) (string, int64, bool) {
	if prefix == "" || suffix == "" {
		return "", 0, false
	}
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return "", 0, false
		}
	}

	raw, err := base64.StdEncoding.DecodeString(prefix)
	if err != nil {
		return "", 0, false
	}
	ts, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return string(raw), ts, true
}

func head(s string, n int) string {
	units := utf16.Encode([]rune(s))
	if len(units) < n {
		return s
	}
	return string(utf16.Decode(units[:n]))
}

func tail(s string, n int) string {
	units := utf16.Encode([]rune(s))
	if len(units) < n {
		return s
	}
	return string(utf16.Decode(units[len(units)-n:]))
}
