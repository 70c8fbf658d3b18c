package presence

import (
	"context"
	"errors"
	"time"

	"consultline/database/repository"
	practitionerRepo "consultline/database/repository/practitioner"
	profileRepo "consultline/database/repository/profile"
	"consultline/models"
	"consultline/utils"

	"go.uber.org/zap"
)

// PresenceService exposes practitioner availability. inService is owned by
// the session engine and cannot be set here.
type PresenceService interface {
	GetStatus(ctx context.Context, practitionerID string) (*models.PresenceStatus, error)
	SetOnline(ctx context.Context, caller models.Identity, isOnline bool) (*models.PresenceStatus, error)
	// List returns practitioners joined with their profiles, best rated first.
	List(ctx context.Context, onlineOnly bool) ([]models.PractitionerListing, error)
	// Get returns one practitioner joined with its profile.
	Get(ctx context.Context, practitionerID string) (*models.PractitionerListing, error)
}

// DefaultPresenceService is the production implementation.
type DefaultPresenceService struct {
	Practitioners practitionerRepo.PractitionerRepository
	Profiles      profileRepo.ProfileRepository
	Now           func() time.Time
}

func (s *DefaultPresenceService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *DefaultPresenceService) GetStatus(ctx context.Context, practitionerID string) (*models.PresenceStatus, error) {
	p, err := s.Practitioners.GetByID(ctx, practitionerID)
	if err != nil {
		return nil, storeErr(err)
	}
	return &models.PresenceStatus{IsOnline: p.IsOnline, InService: p.InService}, nil
}

func (s *DefaultPresenceService) SetOnline(ctx context.Context, caller models.Identity, isOnline bool) (*models.PresenceStatus, error) {
	if caller.Role != models.RolePractitioner {
		return nil, utils.Forbidden("only practitioners have presence")
	}
	p, err := s.Practitioners.SetOnline(ctx, caller.UserID, isOnline, s.now())
	if errors.Is(err, repository.ErrConflict) {
		return nil, utils.InvalidState("cannot go offline during a session")
	}
	if err != nil {
		return nil, storeErr(err)
	}
	utils.GetLogger().Info("presence changed", zap.String("practitionerId", caller.UserID), zap.Bool("isOnline", p.IsOnline))
	return &models.PresenceStatus{IsOnline: p.IsOnline, InService: p.InService}, nil
}

func (s *DefaultPresenceService) List(ctx context.Context, onlineOnly bool) ([]models.PractitionerListing, error) {
	practitioners, err := s.Practitioners.List(ctx, onlineOnly)
	if err != nil {
		return nil, storeErr(err)
	}
	ids := make([]string, 0, len(practitioners))
	for _, p := range practitioners {
		ids = append(ids, p.UserID)
	}
	profiles, err := s.Profiles.GetByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err)
	}

	out := make([]models.PractitionerListing, 0, len(practitioners))
	for _, p := range practitioners {
		profile, ok := profiles[p.UserID]
		if !ok {
			continue
		}
		out = append(out, listing(p, profile))
	}
	return out, nil
}

func (s *DefaultPresenceService) Get(ctx context.Context, practitionerID string) (*models.PractitionerListing, error) {
	p, err := s.Practitioners.GetByID(ctx, practitionerID)
	if err != nil {
		return nil, storeErr(err)
	}
	profile, err := s.Profiles.GetByID(ctx, practitionerID)
	if err != nil {
		return nil, storeErr(err)
	}
	l := listing(*p, profile)
	return &l, nil
}

func listing(p models.Practitioner, profile *models.Profile) models.PractitionerListing {
	return models.PractitionerListing{
		Profile:     *profile,
		IsOnline:    p.IsOnline,
		InService:   p.InService,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
	}
}

func storeErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return utils.NotFound("practitioner not found")
	}
	return utils.Upstream(err, "record store unavailable")
}
