package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ConsentEvidence is a recorded, hashed snapshot of a participant's
// consent decision, kept for audit purposes.
type ConsentEvidence struct {
	ID              string    `json:"id" bson:"_id"`
	SessionID       string    `json:"session_id" bson:"session_id"`
	ParticipantName string    `json:"participant_name" bson:"participant_name"`
	ConsentToTrain  bool      `json:"consent_to_train" bson:"consent_to_train"`
	ConsentToStore  bool      `json:"consent_to_store" bson:"consent_to_store"`
	ConsentAt       time.Time `json:"consent_at" bson:"consent_at"`
	Signature       string    `json:"signature" bson:"signature"`
	RecordedAt      time.Time `json:"recorded_at" bson:"recorded_at"`
}

// ComputeSignature hashes the consent fields into a tamper-evident
// signature. The canonical string pins field order and formats the
// timestamp in RFC 3339 UTC so the hash is reproducible.
func (e *ConsentEvidence) ComputeSignature() string {
	canonical := strings.Join([]string{
		e.SessionID,
		e.ParticipantName,
		fmt.Sprintf("train=%t", e.ConsentToTrain),
		fmt.Sprintf("store=%t", e.ConsentToStore),
		e.ConsentAt.UTC().Format(time.RFC3339),
	}, "|")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// Sign stamps the evidence with its content signature.
func (e *ConsentEvidence) Sign() {
	e.Signature = e.ComputeSignature()
}

// VerifySignature reports whether the stored signature still matches the
// consent fields.
func (e *ConsentEvidence) VerifySignature() bool {
	return e.Signature != "" && e.Signature == e.ComputeSignature()
}

// Validate validates the evidence data
func (e *ConsentEvidence) Validate() error {
	if e.SessionID == "" {
		return errors.New("session_id is required")
	}
	if strings.TrimSpace(e.ParticipantName) == "" {
		return errors.New("participant name is required")
	}
	if !e.ConsentToTrain || !e.ConsentToStore {
		return errors.New("both consent flags must be granted")
	}
	if e.ConsentAt.IsZero() {
		return errors.New("consent timestamp is required")
	}
	return nil
}
