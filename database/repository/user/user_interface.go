package userRepo

import (
	"context"

	"consultline/models"
)

// UserRepository defines methods for credential data access.
type UserRepository interface {
	// Create inserts a new user. A taken email yields repository.ErrDuplicate.
	Create(ctx context.Context, user *models.User) error
	// GetByID retrieves a user by its unique ID.
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByEmail retrieves a user by its email address.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
