package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// Australian postcodes are exactly four digits
var rePostcode = regexp.MustCompile(`^\d{4}$`)

// Recognised state and territory tokens
var stateTokens = map[string]bool{
	"NSW": true, "QLD": true, "VIC": true, "SA": true,
	"WA": true, "TAS": true, "NT": true, "ACT": true,
}

// Validator applies component-level checks to extracted addresses.
type Validator struct{}

// NewValidator creates a validator with the standard rules.
func NewValidator() *Validator {
	return &Validator{}
}

// CheckStreet requires a non-blank street and notes one without any number.
func (v *Validator) CheckStreet(street string) Result {
	trimmed := strings.TrimSpace(street)
	if trimmed == "" {
		return Result{Valid: false, Reason: "street is blank"}
	}
	if !containsDigit(trimmed) {
		return Result{Valid: true, Reason: "street has no number"}
	}
	return Result{Valid: true}
}

// CheckSuburb requires a non-blank suburb.
func (v *Validator) CheckSuburb(suburb string) Result {
	if strings.TrimSpace(suburb) == "" {
		return Result{Valid: false, Reason: "suburb is blank"}
	}
	return Result{Valid: true}
}

// CheckState requires a non-blank state and notes unrecognised tokens.
func (v *Validator) CheckState(state string) Result {
	trimmed := strings.ToUpper(strings.TrimSpace(state))
	if trimmed == "" {
		return Result{Valid: false, Reason: "state is blank"}
	}
	if !stateTokens[trimmed] {
		return Result{Valid: true, Reason: fmt.Sprintf("unrecognised state token: %s", trimmed)}
	}
	return Result{Valid: true}
}

// CheckPostcode accepts a blank postcode, otherwise requires four digits.
func (v *Validator) CheckPostcode(postcode string) Result {
	trimmed := strings.TrimSpace(postcode)
	if trimmed == "" {
		return Result{Valid: true}
	}
	if !rePostcode.MatchString(trimmed) {
		return Result{Valid: false, Reason: fmt.Sprintf("postcode is not four digits: %s", trimmed)}
	}
	return Result{Valid: true}
}

// ValidateRow runs every component check. A row is indexable when street,
// suburb and state are all present; postcode problems are advisory only.
func (v *Validator) ValidateRow(c Components) RowValidation {
	rv := RowValidation{Components: c}

	street := v.CheckStreet(c.Street)
	suburb := v.CheckSuburb(c.Suburb)
	state := v.CheckState(c.State)
	postcode := v.CheckPostcode(c.Postcode)

	for _, r := range []Result{street, suburb, state, postcode} {
		if r.Reason != "" {
			rv.Issues = append(rv.Issues, r.Reason)
		}
	}

	rv.Indexable = street.Valid && suburb.Valid && state.Valid
	rv.Quality = v.Quality(c)
	return rv
}

// Quality assesses how much matching signal an address carries.
func (v *Validator) Quality(c Components) string {
	street := strings.TrimSpace(c.Street)
	upper := strings.ToUpper(street)
	if len(street) <= 3 || upper == "N/A" || upper == "N A" {
		return "POOR"
	}

	score := 0

	if len(street) >= 15 {
		score += 2
	} else if len(street) >= 8 {
		score += 1
	}

	if rePostcode.MatchString(strings.TrimSpace(c.Postcode)) {
		score += 2
	}

	if stateTokens[strings.ToUpper(strings.TrimSpace(c.State))] {
		score += 2
	}

	if containsDigit(street) {
		score += 1
	}

	if score >= 6 {
		return "GOOD"
	} else if score >= 3 {
		return "FAIR"
	}
	return "POOR"
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
