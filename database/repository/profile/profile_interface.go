package profileRepo

import (
	"context"

	"consultline/models"
)

// ProfileRepository defines methods for profile data access.
type ProfileRepository interface {
	// Create inserts a new profile.
	Create(ctx context.Context, profile *models.Profile) error
	// GetByID retrieves a profile by user ID.
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	// GetByIDs retrieves the profiles that exist among ids, keyed by ID.
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.Profile, error)
	// Update replaces the mutable fields of an existing profile.
	Update(ctx context.Context, profile *models.Profile) error
}
