package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"consultline/database/repository"
	practitionerRepo "consultline/database/repository/practitioner"
	profileRepo "consultline/database/repository/profile"
	"consultline/models"
	"consultline/utils"

	"go.uber.org/zap"
)

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Email       string      `json:"email" binding:"required,email"`
	Password    string      `json:"password" binding:"required,min=8,max=128"`
	DisplayName string      `json:"displayName" binding:"required,min=1,max=80"`
	Role        models.Role `json:"role" binding:"required,oneof=guest practitioner"`
	Country     string      `json:"country" binding:"omitempty,max=56"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthService handles account lifecycle on top of a Gateway.
type AuthService interface {
	Signup(ctx context.Context, req SignupRequest) (*models.AuthResult, error)
	Login(ctx context.Context, req LoginRequest) (*models.AuthResult, error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, caller models.Identity) (*models.AuthResult, error)
}

type DefaultAuthService struct {
	Gateway       Gateway
	Profiles      profileRepo.ProfileRepository
	Practitioners practitionerRepo.PractitionerRepository
	Now           func() time.Time
	Logger        *zap.Logger
}

func (s *DefaultAuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *DefaultAuthService) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return utils.GetLogger()
}

// Signup registers the credential, then creates the profile and, for
// practitioners, an offline presence record. When the gateway can issue
// tokens the new user is signed in directly.
func (s *DefaultAuthService) Signup(ctx context.Context, req SignupRequest) (*models.AuthResult, error) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, utils.ValidationFields(map[string]string{"displayName": "is required"})
	}
	if !req.Role.Valid() {
		return nil, utils.ValidationFields(map[string]string{"role": "must be guest or practitioner"})
	}

	userID, err := s.Gateway.Register(ctx, req.Email, req.Password, name, req.Role)
	if err != nil {
		return nil, gatewayErr(err)
	}

	now := s.now().UTC()
	profile := &models.Profile{
		ID:          userID,
		Role:        req.Role,
		DisplayName: name,
		Country:     strings.TrimSpace(req.Country),
		GalleryURLs: []string{},
		Specialties: []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Profiles.Create(ctx, profile); err != nil {
		s.logger().Error("Signup: profile creation failed after registration",
			zap.String("userID", userID), zap.Error(err))
		return nil, utils.Internal(err, "failed to create profile")
	}
	if req.Role == models.RolePractitioner {
		p := &models.Practitioner{UserID: userID, CreatedAt: now, UpdatedAt: now}
		if err := s.Practitioners.Create(ctx, p); err != nil {
			s.logger().Error("Signup: practitioner record creation failed",
				zap.String("userID", userID), zap.Error(err))
			return nil, utils.Internal(err, "failed to create practitioner")
		}
	}
	s.logger().Info("Signup: account created", zap.String("userID", userID), zap.String("role", string(req.Role)))

	result := &models.AuthResult{
		User:    models.Identity{UserID: userID, Role: req.Role, Email: strings.ToLower(strings.TrimSpace(req.Email))},
		Profile: profile,
	}
	token, err := s.Gateway.Authenticate(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, ErrUnsupported):
	case err != nil:
		return nil, gatewayErr(err)
	default:
		result.Token = token.Value
		result.ExpiresAt = token.ExpiresAt.Unix()
	}
	return result, nil
}

func (s *DefaultAuthService) Login(ctx context.Context, req LoginRequest) (*models.AuthResult, error) {
	token, err := s.Gateway.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, gatewayErr(err)
	}
	profile, err := s.Profiles.GetByID(ctx, token.Identity.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, utils.Internal(err, "failed to load profile")
	}
	return &models.AuthResult{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt.Unix(),
		User:      token.Identity,
		Profile:   profile,
	}, nil
}

func (s *DefaultAuthService) Logout(ctx context.Context, token string) error {
	if err := s.Gateway.Revoke(ctx, token); err != nil {
		return gatewayErr(err)
	}
	return nil
}

func (s *DefaultAuthService) CurrentUser(ctx context.Context, caller models.Identity) (*models.AuthResult, error) {
	profile, err := s.Profiles.GetByID(ctx, caller.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.NotFound("profile not found")
	}
	if err != nil {
		return nil, utils.Internal(err, "failed to load profile")
	}
	return &models.AuthResult{User: caller, Profile: profile}, nil
}

func gatewayErr(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return utils.Unauthorized("%s", err.Error())
	case errors.Is(err, ErrInvalidToken):
		return utils.Unauthorized("%s", err.Error())
	case errors.Is(err, ErrEmailTaken):
		return utils.ValidationFields(map[string]string{"email": "is already registered"})
	case errors.Is(err, ErrUnsupported):
		return utils.Validation("%s", err.Error())
	}
	return utils.Upstream(err, "identity provider failed")
}
