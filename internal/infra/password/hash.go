// Package password hashes the credentials of users bootstrapped from the command line.
package password

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinLength is the shortest password accepted for a new user
const MinLength = 8

// ErrTooShort rejects passwords below MinLength
var ErrTooShort = fmt.Errorf("password must be at least %d characters", MinLength)

// Hash returns the bcrypt hash of plain. A cost outside bcrypt's range falls back to the default.
func Hash(plain string, cost int) (string, error) {
	if utf8.RuneCountInString(plain) < MinLength {
		return "", ErrTooShort
	}
	// bcrypt ignores everything past 72 bytes
	if len(plain) > 72 {
		return "", errors.New("password must not exceed 72 bytes")
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Matches reports whether plain is the password behind hash
func Matches(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
