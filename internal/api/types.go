package api

import (
	"time"

	"github.com/voicebank/server/domain/entities"
)

// ErrorResponse is the standard error body for all endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// LoginRequest is the admin login payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued session token
type LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *entities.User `json:"user"`
}

// SetupRequest creates the first admin account
type SetupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// SessionResponse is the validated session snapshot
type SessionResponse struct {
	User *entities.User `json:"user"`
}

// ConsentRequest records one participant's consent decision
type ConsentRequest struct {
	SessionID       string `json:"session_id"`
	ParticipantName string `json:"participant_name"`
	ConsentToTrain  bool   `json:"consent_to_train"`
	ConsentToStore  bool   `json:"consent_to_store"`
}

// ConsentResponse confirms a recorded consent entry
type ConsentResponse struct {
	ID         string    `json:"id"`
	Signature  string    `json:"signature"`
	RecordedAt time.Time `json:"recorded_at"`
}

// TTSRequest is the text-to-speech payload
type TTSRequest struct {
	Text string `json:"text"`
}

// RealtimeTokenRequest asks for an ephemeral realtime credential
type RealtimeTokenRequest struct {
	SessionID string `json:"session_id"`
}

// RealtimeTokenResponse carries the minted ephemeral token
type RealtimeTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UploadRecordingResponse confirms a stored recording
type UploadRecordingResponse struct {
	ID        string `json:"id"`
	SizeBytes int    `json:"size_bytes"`
}

// CompleteRequest marks one phrase finished for a user
type CompleteRequest struct {
	UserID   string `json:"user_id"`
	PhraseID string `json:"phrase_id"`
}
