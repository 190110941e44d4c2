package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voicebank/server/domain/entities"
	"github.com/voicebank/server/internal/auth"
)

// adminLogin checks credentials and issues a session token
func (s *Server) adminLogin(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Error("Failed to bind login request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Email and password are required",
		})
	}

	guard := auth.NewGuard(s.issuer, s.users, s.logger)
	result, err := guard.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return s.internalError(c, "login failed", err)
	}
	if !result.OK {
		status := http.StatusUnauthorized
		if result.Reason == auth.ReasonAccountDisabled {
			status = http.StatusForbidden
		}
		return c.JSON(status, ErrorResponse{
			Error:   result.Reason,
			Message: "Authentication failed",
		})
	}

	s.logger.Info("Admin authenticated",
		zap.String("userID", result.User.ID),
		zap.String("role", string(result.User.Role)))

	return c.JSON(http.StatusOK, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.User,
	})
}

// adminSession validates the bearer token and returns the user snapshot
func (s *Server) adminSession(c echo.Context) error {
	token := bearerToken(c)
	if token == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "A session token is required",
		})
	}

	guard := auth.NewGuard(s.issuer, s.users, s.logger)
	user, err := guard.Load(c.Request().Context(), token)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired session token",
		})
	}
	if !user.IsActive {
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "account_disabled",
			Message: "This account has been disabled",
		})
	}

	return c.JSON(http.StatusOK, SessionResponse{User: user})
}

// adminSetup creates the first admin account. It refuses once any user
// exists, and removes the created credential again if a later step
// fails, so a half-finished setup can be retried.
func (s *Server) adminSetup(c echo.Context) error {
	ctx := c.Request().Context()

	var req SetupRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Error("Failed to bind setup request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Email and password are required",
		})
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return s.internalError(c, "setup existence check failed", err)
	}
	if count > 0 {
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "already_configured",
			Message: "Setup has already been completed",
		})
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "weak_password",
			Message: err.Error(),
		})
	}

	user := &entities.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         entities.RoleAdmin,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return s.internalError(c, "setup user creation failed", err)
	}

	guard := auth.NewGuard(s.issuer, s.users, s.logger)
	result, err := guard.Login(ctx, req.Email, req.Password)
	if err != nil || !result.OK {
		// Roll the credential back so setup stays retryable.
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.logger.Error("setup rollback failed",
				zap.String("userID", user.ID),
				zap.Error(delErr))
		}
		return s.internalError(c, "setup login failed", err)
	}

	s.logger.Info("Initial admin created", zap.String("userID", user.ID))

	return c.JSON(http.StatusCreated, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.User,
	})
}
