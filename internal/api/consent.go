package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voicebank/server/domain/entities"
)

// recordConsent validates a consent decision, signs it, and writes the
// audit entry.
func (s *Server) recordConsent(c echo.Context) error {
	var req ConsentRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Error("Failed to bind consent request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	evidence := &entities.ConsentEvidence{
		SessionID:       req.SessionID,
		ParticipantName: req.ParticipantName,
		ConsentToTrain:  req.ConsentToTrain,
		ConsentToStore:  req.ConsentToStore,
		ConsentAt:       time.Now().UTC(),
	}
	if err := evidence.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_consent",
			Message: err.Error(),
		})
	}
	evidence.Sign()

	if err := s.consents.Record(c.Request().Context(), evidence); err != nil {
		return s.internalError(c, "consent audit write failed", err)
	}

	s.logger.Info("Consent recorded",
		zap.String("sessionID", evidence.SessionID),
		zap.String("evidenceID", evidence.ID))

	return c.JSON(http.StatusCreated, ConsentResponse{
		ID:         evidence.ID,
		Signature:  evidence.Signature,
		RecordedAt: evidence.RecordedAt,
	})
}
