package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/itfintrack/itfintrack/internal/adapter/persistence"
	"github.com/itfintrack/itfintrack/internal/config"
	"github.com/itfintrack/itfintrack/internal/domain"
	"github.com/itfintrack/itfintrack/internal/infra/password"
	"github.com/itfintrack/itfintrack/internal/infra/token"
	"github.com/itfintrack/itfintrack/internal/ports"
)

func main() {
	username := flag.String("username", "admin", "login name")
	userPassword := flag.String("password", "", "plain text password")
	role := flag.String("role", string(domain.RoleAdmin), "admin, executive, accountant, manager or viewer")
	flag.Parse()

	if *userPassword == "" {
		log.Fatal("-password is required")
	}

	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	parsedRole, err := domain.ParseRole(*role)
	if err != nil {
		log.Fatalf("Invalid role: %v", err)
	}

	dialect, err := persistence.ParseDialect(cfg.Database.Driver)
	if err != nil {
		log.Fatalf("Invalid database driver: %v", err)
	}
	store, err := persistence.Open(ctx, dialect, cfg.GetDatabaseURL(), persistence.Options{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	hashed, err := password.Hash(*userPassword, cfg.Security.BcryptCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user, err := domain.NewUser(*username, hashed, parsedRole)
	if err != nil {
		log.Fatalf("Invalid user: %v", err)
	}
	if err := store.Repos().Users.Create(ctx, user); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	tokens, err := token.NewJWTService(token.Config{
		Secret: cfg.Security.JWTSecret,
		TTL:    cfg.Security.JWTExpiration,
		Issuer: cfg.Security.JWTIssuer,
	})
	if err != nil {
		log.Fatalf("Failed to initialize JWT service: %v", err)
	}
	accessToken, err := tokens.GenerateAccessToken(ports.TokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Printf("User created successfully\n")
	fmt.Printf("ID:       %s\n", user.ID)
	fmt.Printf("Username: %s\n", user.Username)
	fmt.Printf("Role:     %s\n", user.Role)
	fmt.Printf("Token:    %s\n", accessToken)
}
