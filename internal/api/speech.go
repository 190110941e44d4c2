package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voicebank/server/adapters/stt"
	"github.com/voicebank/server/domain/repositories"
)

// transcribe proxies one uploaded audio file to the configured
// speech-to-text provider.
func (s *Server) transcribe(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   string(stt.ErrCodeNoFile),
			Message: "No audio file provided",
		})
	}
	if fileHeader.Size > stt.MaxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   string(stt.ErrCodeFileTooLarge),
			Message: "Audio file exceeds the upload limit",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return s.internalError(c, "failed to open uploaded file", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, stt.MaxUploadBytes+1))
	if err != nil {
		return s.internalError(c, "failed to read uploaded file", err)
	}
	if len(data) > stt.MaxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   string(stt.ErrCodeFileTooLarge),
			Message: "Audio file exceeds the upload limit",
		})
	}

	audio := repositories.Audio{
		Name:     fileHeader.Filename,
		MIMEType: fileHeader.Header.Get("Content-Type"),
		Data:     data,
	}

	transcript, err := s.stt.Transcribe(c.Request().Context(), audio)
	if err != nil {
		return s.transcribeError(c, err)
	}

	return c.JSON(http.StatusOK, transcript)
}

// transcribeError maps provider error codes to HTTP statuses, keeping
// the code in the body so clients can branch on it.
func (s *Server) transcribeError(c echo.Context, err error) error {
	code := stt.CodeOf(err)

	var status int
	switch code {
	case stt.ErrCodeNoFile:
		status = http.StatusBadRequest
	case stt.ErrCodeInvalidFormat:
		status = http.StatusUnsupportedMediaType
	case stt.ErrCodeFileTooLarge:
		status = http.StatusRequestEntityTooLarge
	case stt.ErrCodeNotConfigured:
		status = http.StatusServiceUnavailable
	case stt.ErrCodeTimeout:
		status = http.StatusGatewayTimeout
	case stt.ErrCodeServer, stt.ErrCodeNetwork, stt.ErrCodeInvalidResponse:
		status = http.StatusBadGateway
	default:
		return s.internalError(c, "transcription failed", err)
	}

	s.logger.Warn("Transcription rejected",
		zap.String("code", string(code)),
		zap.Error(err))

	return c.JSON(status, ErrorResponse{
		Error:   string(code),
		Message: "Transcription failed",
	})
}

// transcribeHealth probes the provider and always answers 200
func (s *Server) transcribeHealth(c echo.Context) error {
	status := s.stt.Ping(c.Request().Context())
	return c.JSON(http.StatusOK, status)
}

// textToSpeech proxies text to the TTS backend and streams the audio
// back as one binary response.
func (s *Server) textToSpeech(c echo.Context) error {
	if s.tts == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "not_configured",
			Message: "Text-to-speech is not configured",
		})
	}

	var req TTSRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Error("Failed to bind TTS request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_text",
			Message: "Text is required",
		})
	}

	chunks, err := s.tts.ConvertTextToSpeech(c.Request().Context(), req.Text)
	if err != nil {
		return s.internalError(c, "text-to-speech failed", err)
	}

	c.Response().Header().Set(echo.HeaderContentType, s.tts.ContentType())
	c.Response().WriteHeader(http.StatusOK)
	for chunk := range chunks {
		if _, err := c.Response().Write(chunk); err != nil {
			s.logger.Warn("TTS response write failed", zap.Error(err))
			return nil
		}
		c.Response().Flush()
	}
	return nil
}

// realtimeToken mints a short-lived credential for one realtime
// transcription session.
func (s *Server) realtimeToken(c echo.Context) error {
	var req RealtimeTokenRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Error("Failed to bind realtime token request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	token, expiresAt, err := s.issuer.GenerateEphemeralToken(sessionID)
	if err != nil {
		return s.internalError(c, "ephemeral token generation failed", err)
	}

	return c.JSON(http.StatusOK, RealtimeTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
