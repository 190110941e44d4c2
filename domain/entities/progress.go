package entities

import (
	"errors"
	"time"
)

// TrainingPhase represents the current stage of the phrase-recording flow.
type TrainingPhase string

const (
	PhasePriority TrainingPhase = "priority"
	PhaseExtended TrainingPhase = "extended"
)

// TrainingProgress tracks where a user is in the phrase-recording flow.
// The phase moves from priority to extended exactly once and never back.
type TrainingProgress struct {
	UserID      string          `json:"user_id" bson:"_id"`
	Phase       TrainingPhase   `json:"phase" bson:"phase"`
	PhraseIndex int             `json:"phrase_index" bson:"phrase_index"`
	Completed   map[string]bool `json:"completed" bson:"completed"`
	UpdatedAt   time.Time       `json:"updated_at" bson:"updated_at"`
}

// NewTrainingProgress creates fresh progress for a user, starting in the
// priority phase.
func NewTrainingProgress(userID string) *TrainingProgress {
	return &TrainingProgress{
		UserID:    userID,
		Phase:     PhasePriority,
		Completed: make(map[string]bool),
		UpdatedAt: time.Now(),
	}
}

// MarkCompleted records a finished phrase and advances the index.
func (p *TrainingProgress) MarkCompleted(phraseID string) {
	if p.Completed == nil {
		p.Completed = make(map[string]bool)
	}
	if p.Completed[phraseID] {
		return
	}
	p.Completed[phraseID] = true
	p.PhraseIndex++
	p.UpdatedAt = time.Now()
}

// Promote moves the progress into the extended phase. Calling it while
// already in the extended phase is a no-op; the phase never reverses.
func (p *TrainingProgress) Promote() {
	if p.Phase == PhaseExtended {
		return
	}
	p.Phase = PhaseExtended
	p.UpdatedAt = time.Now()
}

// CompletedCount returns how many phrases have been recorded.
func (p *TrainingProgress) CompletedCount() int {
	return len(p.Completed)
}

// Validate validates the progress data
func (p *TrainingProgress) Validate() error {
	if p.UserID == "" {
		return errors.New("user_id is required")
	}
	if p.Phase != PhasePriority && p.Phase != PhaseExtended {
		return errors.New("invalid training phase")
	}
	if p.PhraseIndex < 0 {
		return errors.New("phrase index cannot be negative")
	}
	return nil
}
