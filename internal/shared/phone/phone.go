package phone

import "strings"

// countryPrefix maps ISO country codes to dial prefixes for the markets
// the store ships to. Unknown countries cannot be normalized.
var countryPrefix = map[string]string{
	"IT": "+39", "FR": "+33", "DE": "+49", "ES": "+34", "AT": "+43",
	"BE": "+32", "NL": "+31", "CH": "+41", "PT": "+351",
	"UK": "+44", "GB": "+44", "US": "+1", "CA": "+1",
}

// trunkZero lists countries whose national format carries a leading zero
// that must be dropped before prefixing.
var trunkZero = map[string]bool{
	"IT": true, "FR": true, "ES": true, "DE": true,
	"AT": true, "BE": true, "NL": true, "PT": true,
}

// Normalize converts a free-form phone number into E.164-like form using
// the country's dial prefix. It returns "" when the number cannot be
// normalized; callers treat that as "no phone" rather than an error.
func Normalize(raw, countryCode string) string {
	if raw == "" {
		return ""
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, raw)

	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}

	cc := strings.ToUpper(countryCode)
	prefix, ok := countryPrefix[cc]
	if !ok {
		return ""
	}

	if trunkZero[cc] && strings.HasPrefix(cleaned, "0") {
		cleaned = cleaned[1:]
	}

	// Number already written with the dial code but without "+".
	if strings.HasPrefix(cleaned, prefix[1:]) {
		cleaned = cleaned[len(prefix)-1:]
	}

	if len(cleaned) < 8 {
		return ""
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return ""
		}
	}

	return prefix + cleaned
}
