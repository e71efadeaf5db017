package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/eventparser/internal/domain/user"
	"github.com/geocoder89/eventparser/internal/security"
)

// AdminStore is the slice of the users repository the seeder needs.
type AdminStore interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
	Create(ctx context.Context, username, passwordHash, role string) (user.User, error)
}

// EnsureAdminUser creates the admin account once. It is a no-op when the
// password is empty or the username already exists.
func EnsureAdminUser(ctx context.Context, store AdminStore, log *slog.Logger, username, password string) error {
	if username == "" || password == "" {
		log.Info("admin seed skipped: ADMIN_PASSWORD not set")
		return nil
	}

	_, err := store.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = store.Create(ctx, username, hash, user.RoleAdmin)
	if errors.Is(err, user.ErrUsernameTaken) {
		// another instance seeded it first
		return nil
	}
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	log.Info("admin user created", "username", username)
	return nil
}
