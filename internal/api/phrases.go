package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// listPhrases returns the full training phrase set
func (s *Server) listPhrases(c echo.Context) error {
	return c.JSON(http.StatusOK, s.phrases.Phrases())
}

// randomPhrase returns one phrase to record
func (s *Server) randomPhrase(c echo.Context) error {
	return c.JSON(http.StatusOK, s.phrases.RandomPhrase())
}

// getProgress returns the training progress for a user
func (s *Server) getProgress(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "user_id is required",
		})
	}

	progress, err := s.phrases.Progress(c.Request().Context(), userID)
	if err != nil {
		return s.internalError(c, "progress lookup failed", err)
	}
	return c.JSON(http.StatusOK, progress)
}

// completePhrase marks one phrase finished and returns the updated
// progress, including any phase promotion.
func (s *Server) completePhrase(c echo.Context) error {
	var req CompleteRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Error("Failed to bind complete request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.UserID == "" || req.PhraseID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "user_id and phrase_id are required",
		})
	}

	progress, err := s.phrases.MarkCompleted(c.Request().Context(), req.UserID, req.PhraseID)
	if err != nil {
		return s.internalError(c, "progress update failed", err)
	}
	return c.JSON(http.StatusOK, progress)
}
