package entities

import (
	"errors"
	"strings"
	"time"
)

// GuestSession represents an unauthenticated participant's persisted
// identifier and consent state.
type GuestSession struct {
	ID              string     `json:"id" bson:"_id"`
	ParticipantName string     `json:"participant_name" bson:"participant_name"`
	ConsentToTrain  bool       `json:"consent_to_train" bson:"consent_to_train"`
	ConsentToStore  bool       `json:"consent_to_store" bson:"consent_to_store"`
	ConsentAt       *time.Time `json:"consent_at,omitempty" bson:"consent_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at" bson:"created_at"`
}

// HasValidConsent reports whether the session carries a complete consent
// record. Consent counts only when the participant name, both flags, and
// the timestamp are all present.
func (s *GuestSession) HasValidConsent() bool {
	if s == nil {
		return false
	}
	return strings.TrimSpace(s.ParticipantName) != "" &&
		s.ConsentToTrain &&
		s.ConsentToStore &&
		s.ConsentAt != nil
}

// Validate validates the session data
func (s *GuestSession) Validate() error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	return nil
}
