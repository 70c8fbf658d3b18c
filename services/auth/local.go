package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"consultline/database/repository"
	userRepo "consultline/database/repository/user"
	"consultline/models"
	"consultline/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// LocalGateway keeps bcrypt credentials in the record store and issues
// HS256 tokens.
type LocalGateway struct {
	Users       userRepo.UserRepository
	Secret      []byte
	TTL         time.Duration
	Revocations RevocationStore
	Now         func() time.Time
}

func (g *LocalGateway) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *LocalGateway) Register(ctx context.Context, email, password, displayName string, role models.Role) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	now := g.now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := g.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", ErrEmailTaken
		}
		return "", err
	}
	return user.ID, nil
}

func (g *LocalGateway) Authenticate(ctx context.Context, email, password string) (*Token, error) {
	user, err := g.Users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	now := g.now()
	value, err := utils.GenerateToken(g.Secret, user.ID, map[string]interface{}{
		"role":  string(user.Role),
		"email": user.Email,
	}, now, g.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Token{
		Value:     value,
		ExpiresAt: now.Add(g.TTL),
		Identity:  models.Identity{UserID: user.ID, Role: user.Role, Email: user.Email},
	}, nil
}

func (g *LocalGateway) Verify(ctx context.Context, token string) (*models.Identity, error) {
	claims, err := utils.ValidateToken(g.Secret, token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	sub := utils.ClaimString(claims, "sub")
	role := models.Role(utils.ClaimString(claims, "role"))
	if sub == "" || !role.Valid() {
		return nil, ErrInvalidToken
	}
	if g.Revocations != nil {
		revoked, err := g.Revocations.IsRevoked(ctx, utils.HashToken(token))
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return nil, ErrInvalidToken
		}
	}
	return &models.Identity{UserID: sub, Role: role, Email: utils.ClaimString(claims, "email")}, nil
}

// Revoke remembers the token until its own expiry.
func (g *LocalGateway) Revoke(ctx context.Context, token string) error {
	claims, err := utils.ValidateToken(g.Secret, token)
	if err != nil {
		return ErrInvalidToken
	}
	if g.Revocations == nil {
		return nil
	}
	ttl := g.TTL
	if exp, ok := claims["exp"].(float64); ok {
		ttl = time.Until(time.Unix(int64(exp), 0))
	}
	return g.Revocations.Revoke(ctx, utils.HashToken(token), ttl)
}
