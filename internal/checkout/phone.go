package checkout

import (
	"errors"
	"regexp"
	"strings"
)

const DefaultCountryCode = "+20"

var ErrInvalidPhone = errors.New("invalid phone number")

var localPhonePattern = regexp.MustCompile(`^\d{10}$`)

// NormalizePhone accepts a 10-digit local number, with any separators, or the
// same number already prefixed with the country code, and returns the
// international form.
func NormalizePhone(raw string, countryCode string) (string, error) {
	if strings.TrimSpace(countryCode) == "" {
		countryCode = DefaultCountryCode
	}
	ccDigits := digitsOnly(countryCode)

	digits := digitsOnly(raw)
	if ccDigits != "" && len(digits) == 10+len(ccDigits) && strings.HasPrefix(digits, ccDigits) {
		digits = digits[len(ccDigits):]
	}
	if !localPhonePattern.MatchString(digits) {
		return "", ErrInvalidPhone
	}
	return "+" + ccDigits + digits, nil
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
