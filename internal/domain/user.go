package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an account holder with an organizational role
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser creates a user with an already hashed password
func NewUser(username, passwordHash string, role Role) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, NewValidationError("username", "username is required")
	}
	if passwordHash == "" {
		return nil, NewValidationError("password", "password is required")
	}
	if !role.Valid() {
		return nil, NewValidationError("role", "unknown role: "+string(role))
	}
	return &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Actor returns the user as the performer of an operation
func (u *User) Actor() Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}
