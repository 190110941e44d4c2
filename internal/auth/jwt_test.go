package auth

import (
	"testing"
	"time"

	"github.com/voicebank/server/domain/entities"
)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer([]byte("test-secret"), time.Hour, time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}
	return issuer
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer(nil, time.Hour, time.Minute); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)
	user := &entities.User{ID: "user-1", Email: "admin@example.com", Role: entities.RoleAdmin, IsActive: true}

	token, expiresAt, err := issuer.GenerateSessionToken(user)
	if err != nil {
		t.Fatalf("GenerateSessionToken() error = %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Error("expiry should be in the future")
	}

	claims, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", claims.UserID)
	}
	if claims.Role != entities.RoleAdmin {
		t.Errorf("Role = %q, want admin", claims.Role)
	}
	if claims.Kind != TokenKindSession {
		t.Errorf("Kind = %q, want session", claims.Kind)
	}
}

func TestEphemeralTokenRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	token, _, err := issuer.GenerateEphemeralToken("sess-42")
	if err != nil {
		t.Fatalf("GenerateEphemeralToken() error = %v", err)
	}

	claims, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Kind != TokenKindEphemeral {
		t.Errorf("Kind = %q, want ephemeral", claims.Kind)
	}
	if claims.SessionID != "sess-42" {
		t.Errorf("SessionID = %q, want sess-42", claims.SessionID)
	}
	if claims.UserID != "" {
		t.Errorf("ephemeral token must not carry a user id, got %q", claims.UserID)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := newTestIssuer(t)
	other, _ := NewTokenIssuer([]byte("different-secret"), time.Hour, time.Minute)

	token, _, err := issuer.GenerateSessionToken(&entities.User{ID: "user-1", Role: entities.RoleAdmin})
	if err != nil {
		t.Fatalf("GenerateSessionToken() error = %v", err)
	}

	if _, err := other.ValidateToken(token); err == nil {
		t.Error("expected validation failure with a different secret")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	issuer := newTestIssuer(t)
	if _, err := issuer.ValidateToken("not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}
