package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voicebank/server/domain/entities"
	"github.com/voicebank/server/domain/repositories"
	"github.com/voicebank/server/internal/auth"
	"github.com/voicebank/server/internal/phrase"
	"github.com/voicebank/server/internal/websocket"
)

// TTSProvider is the text-to-speech backend plus the media type it
// produces.
type TTSProvider interface {
	repositories.TextToSpeech
	ContentType() string
}

// Server bundles the dependencies the HTTP handlers need.
type Server struct {
	issuer     *auth.TokenIssuer
	users      repositories.UserRepository
	consents   repositories.ConsentRepository
	recordings repositories.RecordingRepository
	stt        repositories.SpeechToText
	tts        TTSProvider
	phrases    *phrase.Service
	hub        *websocket.Hub
	logger     *zap.Logger
}

// NewServer creates the HTTP handler set. tts may be nil when no
// text-to-speech backend is configured.
func NewServer(
	issuer *auth.TokenIssuer,
	users repositories.UserRepository,
	consents repositories.ConsentRepository,
	recordings repositories.RecordingRepository,
	stt repositories.SpeechToText,
	tts TTSProvider,
	phrases *phrase.Service,
	hub *websocket.Hub,
	logger *zap.Logger,
) *Server {
	return &Server{
		issuer:     issuer,
		users:      users,
		consents:   consents,
		recordings: recordings,
		stt:        stt,
		tts:        tts,
		phrases:    phrases,
		hub:        hub,
		logger:     logger,
	}
}

// InitRoutes initializes all API routes
func (s *Server) InitRoutes(e *echo.Echo) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "voicebank-server",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	// Admin dashboard APIs
	v1.POST("/admin/login", s.adminLogin)
	v1.GET("/admin/session", s.adminSession)
	v1.POST("/admin/setup", s.adminSetup)

	// Consent APIs
	v1.POST("/consent", s.recordConsent)

	// Speech APIs
	v1.POST("/transcribe", s.transcribe)
	v1.GET("/transcribe/health", s.transcribeHealth)
	v1.POST("/tts", s.textToSpeech)
	v1.POST("/realtime/token", s.realtimeToken)

	// Recording APIs
	v1.POST("/recordings", s.uploadRecording)
	v1.GET("/recordings/:id/download", s.downloadRecording)

	// Phrase APIs
	v1.GET("/phrases", s.listPhrases)
	v1.GET("/phrases/random", s.randomPhrase)
	v1.GET("/progress", s.getProgress)
	v1.POST("/progress/complete", s.completePhrase)

	// WebSocket endpoint gated by the ephemeral realtime token
	e.GET("/ws", s.websocketWithAuth)
}

// websocketWithAuth validates the ephemeral token before handing the
// connection to the hub.
func (s *Server) websocketWithAuth(c echo.Context) error {
	// Browsers cannot set headers on a websocket dial, so the token is
	// also accepted as a query parameter.
	token := bearerToken(c)
	if token == "" {
		token = c.QueryParam("token")
	}

	if token == "" {
		s.logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "An ephemeral token is required",
		})
	}

	claims, err := s.issuer.ValidateToken(token)
	if err != nil {
		s.logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired token",
		})
	}

	if claims.Kind != auth.TokenKindEphemeral || claims.SessionID == "" {
		s.logger.Warn("WebSocket connection rejected: wrong token kind",
			zap.String("kind", string(claims.Kind)))
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_token_kind",
			Message: "Only ephemeral realtime tokens may open this connection",
		})
	}

	s.logger.Info("WebSocket connection authenticated",
		zap.String("sessionID", claims.SessionID))

	return websocket.HandleWebSocket(s.hub, c, claims.SessionID, s.logger)
}

// requireAdmin resolves the bearer token into an admin user. It writes
// the error response itself and returns nil when the caller must stop.
func (s *Server) requireAdmin(c echo.Context) *entities.User {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "A session token is required",
		})
		return nil
	}

	guard := auth.NewGuard(s.issuer, s.users, s.logger)
	user, err := guard.Load(c.Request().Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired session token",
		})
		return nil
	}
	if !guard.HasPermission(entities.RoleAdmin) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: "Admin access is required",
		})
		return nil
	}
	return user
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}

// internalError logs the failure under a correlation id and returns a
// generic 500 that never leaks internals.
func (s *Server) internalError(c echo.Context, message string, err error) error {
	correlationID := uuid.New().String()
	s.logger.Error(message,
		zap.String("correlationID", correlationID),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "Something went wrong. Reference: " + correlationID,
	})
}
