package usecase

import (
	"strings"
	"unicode"
)

// Trip code limits
const (
	MaxTripCodeLength       = 24
	ManualMinTripCodeLength = 4
	LiveMinTripCodeLength   = 6
)

// NormalizeTripCode uppercases raw, strips everything that is not an ASCII
// letter or digit and truncates the result. ok is false when fewer than
// minLength characters remain.
func NormalizeTripCode(raw string, minLength int) (code string, ok bool) {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			continue
		}
		b.WriteRune(r)
		if b.Len() == MaxTripCodeLength {
			break
		}
	}
	code = b.String()
	return code, len(code) >= minLength
}

// TripPath is the remote path of a trip document
func TripPath(code string) string {
	return "trips/" + code
}
