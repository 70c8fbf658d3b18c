package media

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
)

// decodeGrant checks a grant's signature against certificate and returns its channel and uid.
func decodeGrant(token, certificate string) (channel, uid string, err error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(certificate), nil
	})
	if err != nil {
		return "", "", err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", "", errors.New("invalid media token")
	}
	channel, _ = claims["channel"].(string)
	uid, _ = claims["sub"].(string)
	return channel, uid, nil
}

func TestMintSignsChannelGrant(t *testing.T) {
	m, err := NewJWTMinter("app-1", "cert", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTMinter: %v", err)
	}
	now := time.Now()
	grant, err := m.Mint("s0123456789abcdef", "guest-u1", now)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if grant.AppID != "app-1" || grant.UID != "guest-u1" {
		t.Errorf("grant = %+v", grant)
	}
	if !grant.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", grant.ExpiresAt, now.Add(time.Hour))
	}

	channel, uid, err := decodeGrant(grant.Token, "cert")
	if err != nil {
		t.Fatalf("decodeGrant: %v", err)
	}
	if channel != "s0123456789abcdef" || uid != "guest-u1" {
		t.Errorf("decodeGrant = %q, %q", channel, uid)
	}
}

func TestMintRejectsEmptyInput(t *testing.T) {
	if _, err := NewJWTMinter("", "cert", time.Hour); err == nil {
		t.Error("empty app id accepted")
	}
	m, _ := NewJWTMinter("app", "cert", 0)
	if _, err := m.Mint("", "guest-u1", time.Now()); err == nil {
		t.Error("empty channel accepted")
	}
}

func TestGrantBoundToCertificate(t *testing.T) {
	a, _ := NewJWTMinter("app", "cert-a", time.Hour)
	grant, err := a.Mint("chan", "practitioner-p1", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := decodeGrant(grant.Token, "cert-b"); err == nil {
		t.Fatal("token verified with another certificate")
	}
}
