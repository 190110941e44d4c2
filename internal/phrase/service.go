package phrase

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/voicebank/server/domain/entities"
	"github.com/voicebank/server/domain/repositories"
)

// fallbackPhrase is returned whenever no phrase list is available.
var fallbackPhrase = entities.Phrase{
	ID:       "fallback-001",
	Text:     "El rápido zorro marrón salta sobre el perro perezoso",
	Category: "general",
	Priority: true,
}

// builtinPhrases backs the service when the phrase file cannot be
// loaded. Initialization never fails the caller.
var builtinPhrases = []entities.Phrase{
	fallbackPhrase,
	{ID: "builtin-002", Text: "Hoy hace un día soleado y agradable", Category: "general", Priority: true},
	{ID: "builtin-003", Text: "Me gustaría reservar una mesa para dos personas", Category: "daily", Priority: true},
	{ID: "builtin-004", Text: "¿Podría repetir eso más despacio, por favor?", Category: "daily", Priority: true},
	{ID: "builtin-005", Text: "La reunión empieza a las nueve de la mañana", Category: "work", Priority: false},
}

// Service loads the prompt phrase list and drives the training flow.
// Construct one per application context and inject its dependencies.
type Service struct {
	path     string
	progress repositories.ProgressRepository
	logger   *zap.Logger

	once sync.Once

	mu      sync.RWMutex
	phrases []entities.Phrase

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService creates a phrase service reading its list from path.
// progress may be nil when no backing store is configured; progress
// calls then report an error instead of panicking.
func NewService(path string, progress repositories.ProgressRepository, logger *zap.Logger) *Service {
	return &Service{
		path:     path,
		progress: progress,
		logger:   logger,
		rng:      rand.New(rand.NewSource(rand.Int63())),
	}
}

// Initialize loads the phrase list once. It is idempotent and never
// fails: on any load error the built-in list is used instead.
func (s *Service) Initialize() {
	s.once.Do(func() {
		phrases, err := loadPhrases(s.path)
		if err != nil {
			s.logger.Warn("Falling back to built-in phrase list",
				zap.String("path", s.path),
				zap.Error(err))
			phrases = builtinPhrases
		}

		s.mu.Lock()
		s.phrases = phrases
		s.mu.Unlock()

		s.logger.Info("Phrase list initialized", zap.Int("count", len(phrases)))
	})
}

// RandomPhrase returns a uniformly random phrase from the loaded list,
// or the fixed fallback phrase when the list is empty or the service
// has not been initialized.
func (s *Service) RandomPhrase() entities.Phrase {
	s.mu.RLock()
	phrases := s.phrases
	s.mu.RUnlock()

	if len(phrases) == 0 {
		return fallbackPhrase
	}

	s.rngMu.Lock()
	idx := s.rng.Intn(len(phrases))
	s.rngMu.Unlock()
	return phrases[idx]
}

// Phrases returns the loaded list
func (s *Service) Phrases() []entities.Phrase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phrases
}

// PriorityCount returns how many phrases belong to the priority set
func (s *Service) PriorityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.phrases {
		if p.Priority {
			count++
		}
	}
	return count
}

// Progress returns the stored training progress for a user, creating
// fresh priority-phase progress when none exists yet.
func (s *Service) Progress(ctx context.Context, userID string) (*entities.TrainingProgress, error) {
	if s.progress == nil {
		return nil, fmt.Errorf("no progress store configured")
	}

	progress, err := s.progress.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if progress == nil {
		progress = entities.NewTrainingProgress(userID)
	}
	return progress, nil
}

// MarkCompleted records a finished phrase for the user and persists the
// updated progress. Once every priority phrase is completed the phase
// is promoted to extended; it never moves back.
func (s *Service) MarkCompleted(ctx context.Context, userID, phraseID string) (*entities.TrainingProgress, error) {
	progress, err := s.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}

	progress.MarkCompleted(phraseID)

	if progress.Phase == entities.PhasePriority && s.priorityDone(progress) {
		progress.Promote()
		s.logger.Info("Training phase promoted to extended",
			zap.String("userID", userID),
			zap.Int("completed", progress.CompletedCount()))
	}

	if err := s.progress.Save(ctx, progress); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	return progress, nil
}

func (s *Service) priorityDone(progress *entities.TrainingProgress) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.phrases) == 0 {
		return false
	}
	for _, p := range s.phrases {
		if p.Priority && !progress.Completed[p.ID] {
			return false
		}
	}
	return true
}

func loadPhrases(path string) ([]entities.Phrase, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read phrase file: %w", err)
	}

	var phrases []entities.Phrase
	if err := json.Unmarshal(raw, &phrases); err != nil {
		return nil, fmt.Errorf("failed to parse phrase file: %w", err)
	}
	if len(phrases) == 0 {
		return nil, fmt.Errorf("phrase file is empty")
	}
	return phrases, nil
}
