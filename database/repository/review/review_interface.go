package reviewRepo

import (
	"context"

	"consultline/models"
)

// ReviewRepository defines methods for review data access.
type ReviewRepository interface {
	// Create inserts a review. A second review for the same session yields
	// repository.ErrDuplicate.
	Create(ctx context.Context, review *models.Review) error
	// GetBySession retrieves the review of a session.
	GetBySession(ctx context.Context, sessionID string) (*models.Review, error)
	// ListByPractitioner returns every review of a practitioner.
	ListByPractitioner(ctx context.Context, practitionerID string) ([]models.Review, error)
}
