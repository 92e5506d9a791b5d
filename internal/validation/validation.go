package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"clinichistory/internal/apperr"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	timeRegex  = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is lets callers match any ValidationError against apperr.ErrValidation.
func (e ValidationError) Is(target error) bool {
	return target == apperr.ErrValidation
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < MinPasswordLength {
		return ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)}
	}
	return nil
}

// ValidateName checks if a name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "full_name", Message: "name is required"}
	}
	if len(name) < 2 {
		return ValidationError{Field: "full_name", Message: "name must be at least 2 characters"}
	}
	return nil
}

// ValidateRequired rejects blank values
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	return nil
}

// ValidateDate checks a YYYY-MM-DD calendar date
func ValidateDate(field, value string) error {
	if err := ValidateRequired(field, value); err != nil {
		return err
	}
	if _, err := time.Parse(time.DateOnly, value); err != nil {
		return ValidationError{Field: field, Message: "expected YYYY-MM-DD"}
	}
	return nil
}

// ValidateClock checks an HH:MM time of day
func ValidateClock(field, value string) error {
	if err := ValidateRequired(field, value); err != nil {
		return err
	}
	if !timeRegex.MatchString(value) {
		return ValidationError{Field: field, Message: "expected HH:MM"}
	}
	return nil
}

// ValidateRecoveryCode checks the shape of a 6 digit recovery code
func ValidateRecoveryCode(code string) error {
	if len(code) != 6 {
		return ValidationError{Field: "code", Message: "code must have 6 digits"}
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return ValidationError{Field: "code", Message: "code must have 6 digits"}
		}
	}
	return nil
}
