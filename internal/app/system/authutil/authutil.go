// internal/app/system/authutil/authutil.go
package authutil

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the shortest password accepted at signup and reset.
	MinPasswordLength = 6
	// BcryptCost for hashing passwords.
	BcryptCost = 10
)

var (
	// ErrInvalidEmail is returned for malformed email addresses.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrPasswordTooShort is returned when a password is under MinPasswordLength.
	ErrPasswordTooShort = errors.New("password too short")
)

// User-facing messages for the validation errors above.
const (
	MsgInvalidEmail     = "Please provide a valid email address."
	MsgPasswordTooShort = "Password must be at least 6 characters long."
)

// Message returns the user-facing text for a validation error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrInvalidEmail):
		return MsgInvalidEmail
	case errors.Is(err, ErrPasswordTooShort):
		return MsgPasswordTooShort
	default:
		return "Invalid input."
	}
}

// ValidateCredentials checks the signup/reset shape of an email and password.
func ValidateCredentials(email, password string) error {
	if !isValidEmail(strings.TrimSpace(email)) {
		return ErrInvalidEmail
	}
	return ValidatePassword(password)
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// isValidEmail is a light structural check: one @, a non-empty local part,
// and a dotted domain that neither starts nor ends with a dot.
func isValidEmail(email string) bool {
	if strings.Count(email, "@") != 1 {
		return false
	}
	local, domain, _ := strings.Cut(email, "@")
	if local == "" || domain == "" {
		return false
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	if !strings.Contains(domain, ".") {
		return false
	}
	return !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
