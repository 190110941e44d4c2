package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/voicebank/server/domain/entities"
	"github.com/voicebank/server/domain/repositories"
)

// LoginResult carries the outcome of a credential check. Reason is a
// stable machine-readable code, never the underlying error.
type LoginResult struct {
	OK        bool
	Token     string
	ExpiresAt time.Time
	User      *entities.User
	Reason    string
}

const (
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonAccountDisabled    = "account_disabled"
	ReasonServerError        = "server_error"
)

// Guard resolves bearer tokens into user snapshots and answers
// permission checks against them.
type Guard struct {
	issuer *TokenIssuer
	users  repositories.UserRepository
	logger *zap.Logger

	current *entities.User
}

// NewGuard creates an admin guard
func NewGuard(issuer *TokenIssuer, users repositories.UserRepository, logger *zap.Logger) *Guard {
	return &Guard{
		issuer: issuer,
		users:  users,
		logger: logger,
	}
}

// Login verifies email and password and issues a session token on
// success. A bcrypt mismatch and an unknown email produce the same
// reason code.
func (g *Guard) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return &LoginResult{Reason: ReasonInvalidCredentials}, nil
	}

	user, err := g.users.GetByEmail(ctx, email)
	if err != nil {
		g.logger.Error("login lookup failed", zap.Error(err))
		return &LoginResult{Reason: ReasonServerError}, err
	}
	if user == nil {
		return &LoginResult{Reason: ReasonInvalidCredentials}, nil
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return &LoginResult{Reason: ReasonInvalidCredentials}, nil
	}
	if !user.IsActive {
		return &LoginResult{Reason: ReasonAccountDisabled}, nil
	}

	token, expiresAt, err := g.issuer.GenerateSessionToken(user)
	if err != nil {
		g.logger.Error("session token generation failed", zap.Error(err))
		return &LoginResult{Reason: ReasonServerError}, err
	}

	g.current = user
	return &LoginResult{
		OK:        true,
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// Load validates a session token and caches the user it names. Any
// failure clears the cached snapshot.
func (g *Guard) Load(ctx context.Context, token string) (*entities.User, error) {
	claims, err := g.issuer.ValidateToken(token)
	if err != nil {
		g.current = nil
		return nil, err
	}
	if claims.Kind != TokenKindSession || claims.UserID == "" {
		g.current = nil
		return nil, errors.New("not a session token")
	}

	user, err := g.users.GetByID(ctx, claims.UserID)
	if err != nil {
		g.current = nil
		return nil, err
	}
	if user == nil {
		g.current = nil
		return nil, errors.New("user not found")
	}

	g.current = user
	return user, nil
}

// Current returns the cached user snapshot, nil when no session is
// loaded.
func (g *Guard) Current() *entities.User {
	return g.current
}

// HasPermission reports whether the loaded session satisfies the
// required role. No session, a disabled account, or an unknown role
// all answer false.
func (g *Guard) HasPermission(required entities.Role) bool {
	if g.current == nil || !g.current.IsActive {
		return false
	}
	return g.current.Role.Allows(required)
}

// Clear drops the cached session snapshot.
func (g *Guard) Clear() {
	g.current = nil
}

// HashPassword produces the bcrypt hash stored on a user credential.
func HashPassword(password string) ([]byte, error) {
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}
