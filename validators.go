package accounts

import (
	"errors"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
)

const passwordMinLength = 8

// FormatValidationErrorToMap flattens an ozzo validation error into a
// field-to-message map suitable for a JSON response.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verr validation.Errors
	if errors.As(err, &verr) {
		for field, ferr := range verr {
			out[field] = ferr.Error()
		}
		return out
	}

	out["error"] = err.Error()
	return out
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// ValidatePasswordComplexity enforces the signup password policy: minimum
// length plus at least one lowercase, uppercase, digit, and special
// character.
func ValidatePasswordComplexity() validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)

		if len(s) < passwordMinLength {
			return errors.New("must be at least 8 characters")
		}

		var hasLower, hasUpper, hasDigit, hasSpecial bool
		for _, r := range s {
			switch {
			case unicode.IsLower(r):
				hasLower = true
			case unicode.IsUpper(r):
				hasUpper = true
			case unicode.IsDigit(r):
				hasDigit = true
			default:
				hasSpecial = true
			}
		}

		missing := []string{}
		if !hasLower {
			missing = append(missing, "a lowercase letter")
		}
		if !hasUpper {
			missing = append(missing, "an uppercase letter")
		}
		if !hasDigit {
			missing = append(missing, "a number")
		}
		if !hasSpecial {
			missing = append(missing, "a special character")
		}

		if len(missing) > 0 {
			return errors.New("must contain " + strings.Join(missing, ", "))
		}

		return nil
	}
}
