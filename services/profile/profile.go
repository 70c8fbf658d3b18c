package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"consultline/database/repository"
	profileRepo "consultline/database/repository/profile"
	"consultline/models"
	"consultline/utils"
)

// ProfileService reads and edits the caller's own profile.
type ProfileService interface {
	Get(ctx context.Context, caller models.Identity) (*models.Profile, error)
	Update(ctx context.Context, caller models.Identity, update models.ProfileUpdate) (*models.Profile, error)
}

// DefaultProfileService is the production implementation.
type DefaultProfileService struct {
	Profiles profileRepo.ProfileRepository
	Now      func() time.Time
}

func (s *DefaultProfileService) Get(ctx context.Context, caller models.Identity) (*models.Profile, error) {
	p, err := s.Profiles.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, storeErr(err)
	}
	return p, nil
}

func (s *DefaultProfileService) Update(ctx context.Context, caller models.Identity, update models.ProfileUpdate) (*models.Profile, error) {
	p, err := s.Profiles.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, storeErr(err)
	}

	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		if name == "" {
			return nil, utils.ValidationFields(map[string]string{"displayName": "is required"})
		}
		p.DisplayName = name
	}
	if update.Country != nil {
		p.Country = strings.TrimSpace(*update.Country)
	}
	if update.Bio != nil {
		p.Bio = strings.TrimSpace(*update.Bio)
	}
	if update.AvatarURL != nil {
		p.AvatarURL = *update.AvatarURL
	}
	if update.GalleryURLs != nil {
		p.GalleryURLs = append([]string{}, (*update.GalleryURLs)...)
	}
	if update.VideoURL != nil {
		p.VideoURL = *update.VideoURL
	}
	if update.Specialties != nil {
		p.Specialties = dedupe(*update.Specialties)
	}

	p.UpdatedAt = time.Now().UTC()
	if s.Now != nil {
		p.UpdatedAt = s.Now()
	}
	if err := s.Profiles.Update(ctx, p); err != nil {
		return nil, storeErr(err)
	}
	return p, nil
}

// dedupe keeps the first occurrence of each specialty, ignoring case.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func storeErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return utils.NotFound("profile not found")
	}
	return utils.Upstream(err, "record store unavailable")
}
