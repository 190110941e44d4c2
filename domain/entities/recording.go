package entities

import (
	"errors"
	"time"
)

// EncryptedRecording is a stored voice recording, sealed at rest.
type EncryptedRecording struct {
	ID          string    `json:"id" bson:"_id"`
	SessionID   string    `json:"session_id" bson:"session_id"`
	PhraseID    string    `json:"phrase_id" bson:"phrase_id"`
	ContentType string    `json:"content_type" bson:"content_type"`
	Ciphertext  []byte    `json:"-" bson:"ciphertext"`
	SizeBytes   int       `json:"size_bytes" bson:"size_bytes"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// RecordingKey holds the key material and salt used to seal one
// recording. The AEAD key is derived from these, never stored directly.
type RecordingKey struct {
	RecordingID string    `json:"recording_id" bson:"_id"`
	Material    []byte    `json:"-" bson:"material"`
	Salt        []byte    `json:"-" bson:"salt"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// Validate validates the recording data
func (r *EncryptedRecording) Validate() error {
	if r.SessionID == "" {
		return errors.New("session_id is required")
	}
	if len(r.Ciphertext) == 0 {
		return errors.New("ciphertext is required")
	}
	return nil
}
