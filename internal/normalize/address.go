package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/propmerge/internal/debug"
)

// Spacing variants around commas collapse to a bare comma
var reCommaSpace = regexp.MustCompile(`\s*,\s*`)

// Comma runs left behind by token removal
var reCommaRun = regexp.MustCompile(`,{2,}`)

// Leading occupancy descriptor with its own number, e.g. "UNIT 5/", "SHOP 2,", "SUITE 301 "
var reOccupancy = regexp.MustCompile(`^(?:GROUND FLOOR|UNIT|FLOOR|SUITE|SHOP)\s*\d+[A-Z]?[ /,]\s*`)

// Bare ground floor prefix with no occupancy number, long and short form
var reGroundFloor = regexp.MustCompile(`^(?:GROUND FLOOR|GF)\s*/\s*`)

// State token wherever it appears
var reStateNSW = regexp.MustCompile(`\bNSW\b`)

// Trailing four digit postcode with its separator
var rePostcodeTail = regexp.MustCompile(`[,\s]*\b\d{4}$`)

// Number tokens, with an optional letter suffix as in "12B"
var reNumberToken = regexp.MustCompile(`^\d+[A-Z]?$`)

// Occupancy words and connectives that carry no street identity
var skipTokens = map[string]bool{
	"UNIT": true, "SUITE": true, "SHOP": true, "FLOOR": true, "LEVEL": true,
	"GROUND": true, "LOT": true, "THE": true, "AND": true, "OF": true, "AT": true,
}

// Key reduces a raw address to its matching form. The result is only a join
// key for zoning lookups and duplicate grouping, never displayed, and two
// different addresses may reduce to the same key.
func Key(raw string) string {
	return KeyDebug(false, raw)
}

// KeyDebug reduces an address with optional step tracing
func KeyDebug(localDebug bool, raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	s := collapseSeparators(strings.ToUpper(raw))
	debug.Output(localDebug, "normalize input: %q", s)

	// One pass can expose a new leading prefix or trailing postcode, so
	// reduce until stable. A pass never grows the string.
	for {
		next := reducePass(localDebug, s)
		if next == s {
			break
		}
		s = next
	}

	debug.Output(localDebug, "normalize key: %q", s)
	return s
}

func reducePass(localDebug bool, s string) string {
	// Occupancy prefixes stack, as in "UNIT 5/SHOP 2/88 PITT STREET"
	for {
		next := reGroundFloor.ReplaceAllString(reOccupancy.ReplaceAllString(s, ""), "")
		if next == s {
			break
		}
		s = next
	}
	debug.Output(localDebug, "after occupancy strip: %q", s)

	s = collapseSeparators(reStateNSW.ReplaceAllString(s, ""))
	debug.Output(localDebug, "after state strip: %q", s)

	for {
		next := strings.Trim(rePostcodeTail.ReplaceAllString(s, ""), ", ")
		if next == s {
			break
		}
		s = next
	}
	debug.Output(localDebug, "after postcode strip: %q", s)

	return s
}

// collapseSeparators squeezes whitespace runs to single spaces and comma
// variants to a single bare comma, then trims both from the ends.
func collapseSeparators(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = reCommaSpace.ReplaceAllString(s, ",")
	s = reCommaRun.ReplaceAllString(s, ",")
	return strings.Trim(s, ", ")
}

// StreetComponent returns the portion of a key before the first comma,
// which is the street address when the key came from a full address.
func StreetComponent(key string) string {
	if i := strings.Index(key, ","); i >= 0 {
		return key[:i]
	}
	return key
}

// TokenizeStreet extracts the name-bearing tokens of a street component,
// dropping numbers, occupancy words and very short fragments.
func TokenizeStreet(text string) []string {
	fields := strings.FieldsFunc(strings.ToUpper(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var tokens []string
	for _, tok := range fields {
		if reNumberToken.MatchString(tok) {
			continue
		}
		if skipTokens[tok] {
			continue
		}
		if len(tok) < 2 {
			continue
		}
		tokens = append(tokens, tok)
	}

	return tokens
}

// IsBlank reports whether an address reduces to an empty matching key.
func IsBlank(addr string) bool {
	return Key(addr) == ""
}
