package app

import (
	"game_shop/internal/apperr"
	"game_shop/internal/models"
	"regexp"
	"time"
)

// Age bounds for registration, checked against calendar cutoff dates rather
// than elapsed time.
const (
	minAge = 16
	maxAge = 122
)

var (
	// emailPattern accepts a simple local@domain.tld shape, case-insensitively.
	emailPattern = regexp.MustCompile(`^(?i)[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}$`)
	// usernamePattern allows letters and digits only, no spaces or punctuation.
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	// namePattern allows letters, accented letters and spaces.
	namePattern = regexp.MustCompile(`^[a-zA-ZáéíóúÁÉÍÓÚñÑ\s]+$`)
)

// registrationRule is one predicate+message pair of the ordered validation
// chain. valid reports whether the candidate passes; now is the reference
// date for age checks.
type registrationRule struct {
	field  string
	reason string
	valid  func(req *models.RegisterRequest, now time.Time) bool
}

// registrationRules is evaluated in order and stops at the first violation;
// later rules are not reached.
var registrationRules = []registrationRule{
	{
		field:  "email",
		reason: "email must have the form local@domain.tld",
		valid: func(req *models.RegisterRequest, _ time.Time) bool {
			return req.Email != "" && emailPattern.MatchString(req.Email)
		},
	},
	{
		field:  "username",
		reason: "username may only contain letters and digits, without spaces or special characters",
		valid: func(req *models.RegisterRequest, _ time.Time) bool {
			return usernamePattern.MatchString(req.Username)
		},
	},
	{
		field:  "name",
		reason: "name may only contain letters and spaces",
		valid: func(req *models.RegisterRequest, _ time.Time) bool {
			return namePattern.MatchString(req.Name)
		},
	},
	{
		field:  "surname",
		reason: "surname may only contain letters and spaces",
		valid: func(req *models.RegisterRequest, _ time.Time) bool {
			return namePattern.MatchString(req.Surname)
		},
	},
	{
		field:  "birthDate",
		reason: "birth date must be a valid date in YYYY-MM-DD format",
		valid: func(req *models.RegisterRequest, _ time.Time) bool {
			_, ok := parseBirthDate(req.BirthDate)
			return ok
		},
	},
	{
		field:  "birthDate",
		reason: "birth date cannot be in the future",
		valid: func(req *models.RegisterRequest, now time.Time) bool {
			birthDate, ok := parseBirthDate(req.BirthDate)
			return ok && birthDate.Before(dateOf(now))
		},
	},
	{
		field:  "birthDate",
		reason: "you must be at least 16 years old to register",
		valid: func(req *models.RegisterRequest, now time.Time) bool {
			// Born on or before the cutoff date exactly minAge years back.
			birthDate, ok := parseBirthDate(req.BirthDate)
			return ok && !birthDate.After(dateOf(now).AddDate(-minAge, 0, 0))
		},
	},
	{
		field:  "birthDate",
		reason: "age cannot exceed 122 years",
		valid: func(req *models.RegisterRequest, now time.Time) bool {
			birthDate, ok := parseBirthDate(req.BirthDate)
			return ok && !birthDate.Before(dateOf(now).AddDate(-maxAge, 0, 0))
		},
	},
}

func parseBirthDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	birthDate, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, false
	}
	return birthDate, true
}

// dateOf truncates an instant to its calendar date in UTC, so comparisons
// against parsed birth dates are date-to-date.
func dateOf(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// validateRegistration evaluates the ordered rule list against the candidate
// and returns a ValidationError for the first violated rule, or nil.
func validateRegistration(req *models.RegisterRequest, now time.Time) error {
	for _, rule := range registrationRules {
		if !rule.valid(req, now) {
			return &apperr.ValidationError{Field: rule.field, Reason: rule.reason}
		}
	}
	return nil
}
