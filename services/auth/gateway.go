package auth

import (
	"context"
	"errors"
	"time"

	"consultline/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnsupported        = errors.New("operation not supported by this identity provider")
)

// Token is a bearer credential issued by a gateway.
type Token struct {
	Value     string
	ExpiresAt time.Time
	Identity  models.Identity
}

// Gateway is the identity provider: it registers credentials, signs users in
// and turns bearer tokens into identities.
type Gateway interface {
	// Register creates a credential and returns the new user ID.
	Register(ctx context.Context, email, password, displayName string, role models.Role) (string, error)
	// Authenticate exchanges email and password for a token.
	Authenticate(ctx context.Context, email, password string) (*Token, error)
	// Verify validates a bearer token and returns its identity.
	Verify(ctx context.Context, token string) (*models.Identity, error)
	// Revoke invalidates a bearer token.
	Revoke(ctx context.Context, token string) error
}
