package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voicebank/server/adapters/stt"
	"github.com/voicebank/server/domain/entities"
	"github.com/voicebank/server/internal/recordingcrypto"
)

// uploadRecording seals one recorded phrase and stores it with its key
// record.
func (s *Server) uploadRecording(c echo.Context) error {
	sessionID := c.FormValue("session_id")
	phraseID := c.FormValue("phrase_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "session_id is required",
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_file",
			Message: "No audio file provided",
		})
	}
	if fileHeader.Size > stt.MaxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "file_too_large",
			Message: "Audio file exceeds the upload limit",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return s.internalError(c, "failed to open uploaded recording", err)
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, stt.MaxUploadBytes+1))
	if err != nil {
		return s.internalError(c, "failed to read uploaded recording", err)
	}
	if len(audio) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_file",
			Message: "Audio file is empty",
		})
	}
	if len(audio) > stt.MaxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "file_too_large",
			Message: "Audio file exceeds the upload limit",
		})
	}

	material, salt, err := recordingcrypto.NewMaterial()
	if err != nil {
		return s.internalError(c, "key material generation failed", err)
	}
	key, err := recordingcrypto.DeriveKey(material, salt)
	if err != nil {
		return s.internalError(c, "key derivation failed", err)
	}
	ciphertext, err := recordingcrypto.Seal(key, audio)
	if err != nil {
		return s.internalError(c, "recording seal failed", err)
	}

	recording := &entities.EncryptedRecording{
		SessionID:   sessionID,
		PhraseID:    phraseID,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Ciphertext:  ciphertext,
		SizeBytes:   len(audio),
	}
	keyRecord := &entities.RecordingKey{
		Material: material,
		Salt:     salt,
	}

	if err := s.recordings.Store(c.Request().Context(), recording, keyRecord); err != nil {
		return s.internalError(c, "recording store failed", err)
	}

	s.logger.Info("Recording stored",
		zap.String("recordingID", recording.ID),
		zap.String("sessionID", sessionID),
		zap.Int("sizeBytes", recording.SizeBytes))

	return c.JSON(http.StatusCreated, UploadRecordingResponse{
		ID:        recording.ID,
		SizeBytes: recording.SizeBytes,
	})
}

// downloadRecording decrypts one stored recording for an admin
func (s *Server) downloadRecording(c echo.Context) error {
	if s.requireAdmin(c) == nil {
		return nil
	}

	recordingID := c.Param("id")
	ctx := c.Request().Context()

	recording, err := s.recordings.Get(ctx, recordingID)
	if err != nil {
		return s.internalError(c, "recording lookup failed", err)
	}
	if recording == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Recording not found",
		})
	}

	keyRecord, err := s.recordings.GetKey(ctx, recordingID)
	if err != nil {
		return s.internalError(c, "key record lookup failed", err)
	}
	if keyRecord == nil {
		return s.internalError(c, "recording has no key record", nil)
	}

	key, err := recordingcrypto.DeriveKey(keyRecord.Material, keyRecord.Salt)
	if err != nil {
		return s.internalError(c, "key derivation failed", err)
	}
	audio, err := recordingcrypto.Open(key, recording.Ciphertext)
	if err != nil {
		return s.internalError(c, "recording decryption failed", err)
	}

	contentType := recording.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	s.logger.Info("Recording downloaded",
		zap.String("recordingID", recordingID))

	return c.Blob(http.StatusOK, contentType, audio)
}
