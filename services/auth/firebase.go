package auth

import (
	"context"
	"fmt"
	"strings"

	"consultline/models"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseGateway delegates credentials to Firebase Authentication. Clients
// sign in with the Firebase SDK and present the resulting ID token.
type FirebaseGateway struct {
	client *fbauth.Client
}

// NewFirebaseGateway initializes the Firebase app from a service account file.
func NewFirebaseGateway(ctx context.Context, credentialsFile string) (*FirebaseGateway, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Auth client: %w", err)
	}
	return &FirebaseGateway{client: client}, nil
}

func (g *FirebaseGateway) Register(ctx context.Context, email, password, displayName string, role models.Role) (string, error) {
	params := (&fbauth.UserToCreate{}).
		Email(strings.ToLower(strings.TrimSpace(email))).
		Password(password).
		DisplayName(displayName)
	record, err := g.client.CreateUser(ctx, params)
	if err != nil {
		if fbauth.IsEmailAlreadyExists(err) {
			return "", ErrEmailTaken
		}
		return "", fmt.Errorf("firebase: create user: %w", err)
	}
	if err := g.client.SetCustomUserClaims(ctx, record.UID, map[string]interface{}{"role": string(role)}); err != nil {
		return "", fmt.Errorf("firebase: set role claim: %w", err)
	}
	return record.UID, nil
}

func (g *FirebaseGateway) Authenticate(context.Context, string, string) (*Token, error) {
	return nil, ErrUnsupported
}

func (g *FirebaseGateway) Verify(ctx context.Context, token string) (*models.Identity, error) {
	t, err := g.client.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	role, _ := t.Claims["role"].(string)
	if !models.Role(role).Valid() {
		return nil, ErrInvalidToken
	}
	email, _ := t.Claims["email"].(string)
	return &models.Identity{UserID: t.UID, Role: models.Role(role), Email: email}, nil
}

// Revoke invalidates every refresh token of the token's user.
func (g *FirebaseGateway) Revoke(ctx context.Context, token string) error {
	t, err := g.client.VerifyIDToken(ctx, token)
	if err != nil {
		return ErrInvalidToken
	}
	if err := g.client.RevokeRefreshTokens(ctx, t.UID); err != nil {
		return fmt.Errorf("firebase: revoke tokens: %w", err)
	}
	return nil
}
