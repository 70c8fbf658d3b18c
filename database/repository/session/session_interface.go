package sessionRepo

import (
	"context"
	"time"

	"consultline/models"
)

// MutateFunc edits a session in place. Returning repository.ErrSkip leaves the
// stored record untouched; any other error aborts the update.
type MutateFunc func(s *models.Session) error

// SessionRepository defines methods for session data access.
type SessionRepository interface {
	// CreateReserving atomically marks the practitioner in service for s and
	// inserts s. It fails with repository.ErrConflict when the practitioner is
	// offline or already in service, and inserts nothing in that case.
	CreateReserving(ctx context.Context, s *models.Session, now time.Time) error
	// GetByID retrieves a session by ID.
	GetByID(ctx context.Context, id string) (*models.Session, error)
	// GetByChannel retrieves a session by its media channel.
	GetByChannel(ctx context.Context, channel string) (*models.Session, error)
	// ListByPractitioner returns a practitioner's sessions, newest first.
	ListByPractitioner(ctx context.Context, practitionerID string) ([]models.Session, error)
	// ListDue returns sessions that are not ended and whose expiry has passed.
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Session, error)
	// Update applies mutate under an optimistic version check, retrying on
	// concurrent writes. It returns the stored session after the update.
	Update(ctx context.Context, id string, mutate MutateFunc) (*models.Session, error)
}
