package phrase

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/voicebank/server/domain/entities"
)

func writePhraseFile(t *testing.T, phrases []entities.Phrase) string {
	t.Helper()
	raw, err := json.Marshal(phrases)
	if err != nil {
		t.Fatalf("failed to marshal phrases: %v", err)
	}
	path := filepath.Join(t.TempDir(), "phrases.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("failed to write phrase file: %v", err)
	}
	return path
}

func threePhrases() []entities.Phrase {
	return []entities.Phrase{
		{ID: "p-1", Text: "uno", Priority: true},
		{ID: "p-2", Text: "dos", Priority: true},
		{ID: "p-3", Text: "tres", Priority: false},
	}
}

func TestRandomPhraseBeforeInitializeReturnsFallback(t *testing.T) {
	s := NewService("does-not-matter.json", nil, zap.NewNop())

	got := s.RandomPhrase()
	if got.ID != fallbackPhrase.ID {
		t.Errorf("expected fallback phrase, got %+v", got)
	}
}

func TestRandomPhraseFromKnownFixture(t *testing.T) {
	path := writePhraseFile(t, threePhrases())
	s := NewService(path, nil, zap.NewNop())
	s.Initialize()

	allowed := map[string]bool{"p-1": true, "p-2": true, "p-3": true}
	for i := 0; i < 50; i++ {
		got := s.RandomPhrase()
		if !allowed[got.ID] {
			t.Fatalf("RandomPhrase returned %+v, not in fixture", got)
		}
	}
}

func TestInitializeFallsBackOnMissingFile(t *testing.T) {
	s := NewService(filepath.Join(t.TempDir(), "missing.json"), nil, zap.NewNop())
	s.Initialize()

	if len(s.Phrases()) != len(builtinPhrases) {
		t.Errorf("expected built-in list of %d phrases, got %d",
			len(builtinPhrases), len(s.Phrases()))
	}
}

func TestInitializeFallsBackOnMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewService(path, nil, zap.NewNop())
	s.Initialize()

	if len(s.Phrases()) == 0 {
		t.Error("expected fallback phrases after malformed file")
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	path := writePhraseFile(t, threePhrases())
	s := NewService(path, nil, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Initialize()
		}()
	}
	wg.Wait()

	if len(s.Phrases()) != 3 {
		t.Errorf("expected 3 phrases, got %d", len(s.Phrases()))
	}
}

// memoryProgress is an in-memory ProgressRepository for tests.
type memoryProgress struct {
	mu   sync.Mutex
	data map[string]*entities.TrainingProgress
}

func newMemoryProgress() *memoryProgress {
	return &memoryProgress{data: make(map[string]*entities.TrainingProgress)}
}

func (m *memoryProgress) Get(ctx context.Context, userID string) (*entities.TrainingProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.data[userID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (m *memoryProgress) Save(ctx context.Context, progress *entities.TrainingProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *progress
	m.data[progress.UserID] = &copied
	return nil
}

func TestMarkCompletedPromotesAfterPrioritySet(t *testing.T) {
	ctx := context.Background()
	path := writePhraseFile(t, threePhrases())
	repo := newMemoryProgress()
	s := NewService(path, repo, zap.NewNop())
	s.Initialize()

	progress, err := s.MarkCompleted(ctx, "user-1", "p-1")
	if err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	if progress.Phase != entities.PhasePriority {
		t.Errorf("expected priority phase after 1 of 2 priority phrases, got %s", progress.Phase)
	}

	progress, err = s.MarkCompleted(ctx, "user-1", "p-2")
	if err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	if progress.Phase != entities.PhaseExtended {
		t.Errorf("expected extended phase after full priority set, got %s", progress.Phase)
	}

	// Completing more phrases never reverses the phase.
	progress, err = s.MarkCompleted(ctx, "user-1", "p-3")
	if err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	if progress.Phase != entities.PhaseExtended {
		t.Errorf("phase reversed to %s", progress.Phase)
	}

	// Progress round-trips through the repository.
	stored, err := s.Progress(ctx, "user-1")
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if stored.CompletedCount() != 3 {
		t.Errorf("expected 3 completed phrases, got %d", stored.CompletedCount())
	}
}

func TestProgressWithoutStore(t *testing.T) {
	s := NewService("x.json", nil, zap.NewNop())
	if _, err := s.Progress(context.Background(), "user-1"); err == nil {
		t.Error("expected error when no progress store is configured")
	}
}
