package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/voicebank/server/domain/entities"
)

// TokenKind distinguishes dashboard sessions from ephemeral realtime
// credentials.
type TokenKind string

const (
	TokenKindSession   TokenKind = "session"
	TokenKindEphemeral TokenKind = "ephemeral"
)

// Claims represents the claims in a voicebank JWT
type Claims struct {
	UserID    string        `json:"user_id,omitempty"`
	Role      entities.Role `json:"role,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	Kind      TokenKind     `json:"kind"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates tokens with an injected secret and
// fixed expiries.
type TokenIssuer struct {
	secret       []byte
	sessionTTL   time.Duration
	ephemeralTTL time.Duration
}

// NewTokenIssuer creates a token issuer
func NewTokenIssuer(secret []byte, sessionTTL, ephemeralTTL time.Duration) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	if ephemeralTTL <= 0 {
		ephemeralTTL = 5 * time.Minute
	}
	return &TokenIssuer{
		secret:       secret,
		sessionTTL:   sessionTTL,
		ephemeralTTL: ephemeralTTL,
	}, nil
}

// GenerateSessionToken issues a dashboard session token with the fixed
// session expiry.
func (i *TokenIssuer) GenerateSessionToken(user *entities.User) (string, time.Time, error) {
	if user == nil {
		return "", time.Time{}, errors.New("user is required")
	}

	expiresAt := time.Now().Add(i.sessionTTL)
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		Kind:   TokenKindSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// GenerateEphemeralToken mints a short-lived credential for one
// realtime session.
func (i *TokenIssuer) GenerateEphemeralToken(sessionID string) (string, time.Time, error) {
	if sessionID == "" {
		return "", time.Time{}, errors.New("session id is required")
	}

	expiresAt := time.Now().Add(i.ephemeralTTL)
	claims := &Claims{
		SessionID: sessionID,
		Kind:      TokenKindEphemeral,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a token and returns its claims
func (i *TokenIssuer) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrInvalidKey
}
