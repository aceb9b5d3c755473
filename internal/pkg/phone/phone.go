package phone

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const DefaultRegion = "US"

var (
	rawPattern        = regexp.MustCompile(`^\+?[\d\s().-]+$`)
	normalizedPattern = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)
	stripPattern      = regexp.MustCompile(`[^\d+]`)
)

// Normalize keeps only digits and '+'.
func Normalize(raw string) string {
	return stripPattern.ReplaceAllString(strings.TrimSpace(raw), "")
}

// Resembles reports whether raw looks like a phone number: digits with optional
// separators and a single optional leading '+', 7 to 15 digits once normalized.
func Resembles(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || !rawPattern.MatchString(raw) {
		return false
	}
	return normalizedPattern.MatchString(Normalize(raw))
}

// Display renders a stored number in international format for humans. Numbers
// that cannot be parsed are returned unchanged.
func Display(stored, region string) string {
	if region == "" {
		region = DefaultRegion
	}
	parsed, err := phonenumbers.Parse(stored, region)
	if err != nil {
		return stored
	}
	if !phonenumbers.IsPossibleNumber(parsed) {
		return stored
	}
	return phonenumbers.Format(parsed, phonenumbers.INTERNATIONAL)
}
