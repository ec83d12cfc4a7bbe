// Package phone normalizes Kenyan phone numbers to the 12-digit MSISDN
// format required by the M-Pesa APIs.
package phone

import (
	"errors"
	"strings"
)

var ErrInvalidNumber = errors.New("phone number does not normalize to a valid Kenyan MSISDN")

// Normalize converts a Kenyan phone number to 254XXXXXXXXX form.
// Accepted inputs: "07XXXXXXXX" / "01XXXXXXXX" (leading 0 replaced with
// 254), "2547XXXXXXXX" (returned as-is), "+2547XXXXXXXX" (plus stripped),
// and bare "7XXXXXXXX" (country code prepended).
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimPrefix(s, "+")

	if s == "" || !digitsOnly(s) {
		return "", ErrInvalidNumber
	}

	switch {
	case strings.HasPrefix(s, "254"):
		// already in MSISDN form
	case strings.HasPrefix(s, "0"):
		s = "254" + s[1:]
	default:
		s = "254" + s
	}

	if len(s) != 12 {
		return "", ErrInvalidNumber
	}
	return s, nil
}

// IsValid reports whether the input normalizes to a 12-digit MSISDN.
func IsValid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
