package media

import (
	"errors"
	"fmt"
	"time"

	"consultline/models"

	"github.com/golang-jwt/jwt"
)

// Privileges granted to every participant of a live session.
var defaultPrivileges = []string{"publish", "subscribe"}

// Minter issues media credentials scoped to one channel and one identity.
type Minter interface {
	Mint(channel, uid string, now time.Time) (*models.MediaGrant, error)
}

// JWTMinter signs grants with the media app certificate.
type JWTMinter struct {
	appID       string
	certificate []byte
	ttl         time.Duration
}

// NewJWTMinter returns a minter for the given media app.
func NewJWTMinter(appID, certificate string, ttl time.Duration) (*JWTMinter, error) {
	if appID == "" || certificate == "" {
		return nil, errors.New("media app id and certificate are required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWTMinter{appID: appID, certificate: []byte(certificate), ttl: ttl}, nil
}

func (m *JWTMinter) Mint(channel, uid string, now time.Time) (*models.MediaGrant, error) {
	if channel == "" || uid == "" {
		return nil, errors.New("channel and uid are required")
	}
	expiresAt := now.Add(m.ttl)
	claims := jwt.MapClaims{
		"iss":        m.appID,
		"sub":        uid,
		"channel":    channel,
		"privileges": defaultPrivileges,
		"iat":        now.Unix(),
		"exp":        expiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.certificate)
	if err != nil {
		return nil, fmt.Errorf("failed to sign media token: %w", err)
	}
	return &models.MediaGrant{
		Token:     token,
		AppID:     m.appID,
		UID:       uid,
		Channel:   channel,
		ExpiresAt: expiresAt,
	}, nil
}
