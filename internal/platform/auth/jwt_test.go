package auth

import (
	"testing"
	"time"

	"muralhub/internal/platform/config"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})

	token, err := svc.GenerateAccessToken("usr_1", "jane@paintcollective.org", []string{"admin"})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "usr_1" || claims.Email != "jane@paintcollective.org" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if !claims.HasRole("admin") {
		t.Error("expected admin role")
	}

	refresh, err := svc.GenerateRefreshToken("usr_1")
	if err != nil {
		t.Fatal(err)
	}
	rc, err := svc.ValidateToken(refresh)
	if err != nil {
		t.Fatal(err)
	}
	if rc.Subject != "usr_1" {
		t.Errorf("expected subject usr_1, got %s", rc.Subject)
	}
}

func TestTokenService_Rejects(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "secret", AccessTokenTTL: -time.Minute})
	other := NewTokenService(config.JWTConfig{Secret: "other", AccessTokenTTL: time.Minute})

	expired, _ := svc.GenerateAccessToken("usr_1", "a@b.org", nil)
	if _, err := svc.ValidateToken(expired); err == nil {
		t.Error("expected expired token to be rejected")
	}

	foreign, _ := other.GenerateAccessToken("usr_1", "a@b.org", nil)
	if _, err := svc.ValidateToken(foreign); err == nil {
		t.Error("expected token signed with another secret to be rejected")
	}
}
