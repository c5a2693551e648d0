package domain

import (
	"unicode"
)

// minPasswordLength is the minimum password length required by the policy.
const minPasswordLength = 8

// Password policy rule messages, returned verbatim to clients so they can
// show which requirements failed.
const (
	RulePasswordLength  = "password must be at least 8 characters long"
	RulePasswordUpper   = "password must contain at least one uppercase letter"
	RulePasswordLower   = "password must contain at least one lowercase letter"
	RulePasswordDigit   = "password must contain at least one number"
	RulePasswordSpecial = "password must contain at least one special character"
)

// ValidatePasswordStrength checks the password against the policy and returns
// the list of failed rules. An empty slice means the password is acceptable.
func ValidatePasswordStrength(password string) []string {
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	var failed []string
	if len(password) < minPasswordLength {
		failed = append(failed, RulePasswordLength)
	}
	if !hasUpper {
		failed = append(failed, RulePasswordUpper)
	}
	if !hasLower {
		failed = append(failed, RulePasswordLower)
	}
	if !hasDigit {
		failed = append(failed, RulePasswordDigit)
	}
	if !hasSpecial {
		failed = append(failed, RulePasswordSpecial)
	}

	return failed
}
