package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/itfintrack/itfintrack/internal/domain"
)

// UserRepository implements ports.UserRepository
type UserRepository struct {
	q querier
}

// Create saves a new user. A taken username returns domain.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1, $2, $3, $4, $5)`

	_, err := r.q.ExecContext(ctx, query, user.ID, user.Username, user.PasswordHash, string(user.Role), user.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflict("username already exists", err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByID retrieves a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findBy(ctx, "id", id)
}

// FindByUsername retrieves a user by username
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findBy(ctx, "username", username)
}

func (r *UserRepository) findBy(ctx context.Context, column, value string) (*domain.User, error) {
	query := `SELECT id, username, password_hash, role, created_at FROM users WHERE ` + column + ` = $1`

	var user domain.User
	err := r.q.QueryRowContext(ctx, query, value).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("user", value)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}
