package practitionerRepo

import (
	"context"
	"time"

	"consultline/models"
)

// PractitionerRepository defines methods for practitioner presence and rating data.
type PractitionerRepository interface {
	// Create inserts a new practitioner record.
	Create(ctx context.Context, p *models.Practitioner) error
	// GetByID retrieves a practitioner by user ID.
	GetByID(ctx context.Context, userID string) (*models.Practitioner, error)
	// List returns practitioners, only online ones when onlineOnly is set.
	List(ctx context.Context, onlineOnly bool) ([]models.Practitioner, error)
	// SetOnline changes the online flag. Going offline while in service fails
	// with repository.ErrConflict.
	SetOnline(ctx context.Context, userID string, isOnline bool, now time.Time) (*models.Practitioner, error)
	// Release clears inService if it is held by sessionID. It reports whether
	// anything changed.
	Release(ctx context.Context, userID, sessionID string, now time.Time) (bool, error)
	// UpdateRating stores the recomputed aggregate rating.
	UpdateRating(ctx context.Context, userID string, rating float64, count int, now time.Time) error
}
