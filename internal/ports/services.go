package ports

import (
	"context"
	"io"
	"time"

	"github.com/itfintrack/itfintrack/internal/domain"
)

// Clock supplies the current wall-clock time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real clock in UTC
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant
func (c FixedClock) Now() time.Time {
	return c.At
}

// TokenClaims is what an access token asserts about its holder
type TokenClaims struct {
	UserID   string      `json:"user_id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

// TokenService issues and validates access tokens
type TokenService interface {
	GenerateAccessToken(claims TokenClaims) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
}

// RateLimiter counts requests per key inside a fixed window
type RateLimiter interface {
	// Allow records one hit for key and reports whether it is within the limit
	Allow(ctx context.Context, key string) (bool, error)
}

// ChartRenderer draws report breakdowns as images
type ChartRenderer interface {
	// RenderBreakdown writes a PNG pie chart of lines to w
	RenderBreakdown(w io.Writer, title string, lines []domain.BreakdownLine) error
}
