package stt

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/voicebank/server/domain/repositories"
)

// MockSpeechToText is a placeholder provider used in tests and local
// development without provider credentials.
type MockSpeechToText struct {
	logger *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{logger: logger}
}

var (
	_ repositories.SpeechToText          = (*MockSpeechToText)(nil)
	_ repositories.StreamingSpeechToText = (*MockSpeechToText)(nil)
)

// Transcribe returns a canned transcript sized to the input
func (s *MockSpeechToText) Transcribe(ctx context.Context, audio repositories.Audio) (*repositories.Transcript, error) {
	if len(audio.Data) == 0 {
		return nil, newError(ErrCodeNoFile, "no audio file provided")
	}

	s.logger.Debug("Mock transcription", zap.Int("audioSize", len(audio.Data)))

	text := "hola"
	if len(audio.Data) > 1000 {
		text = "hola, esta es una grabación de prueba"
	}
	return &repositories.Transcript{Text: text, Language: "es"}, nil
}

// Ping always reports online
func (s *MockSpeechToText) Ping(ctx context.Context) repositories.ProviderStatus {
	return repositories.ProviderStatus{Online: true, Message: "mock provider"}
}

// InitStreaming creates a mock streaming session
func (s *MockSpeechToText) InitStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	return &mockStream{
		events: make(chan repositories.StreamEvent, 16),
	}, nil
}

type mockStream struct {
	mu        sync.Mutex
	events    chan repositories.StreamEvent
	audioSeen bool
	endOnce   sync.Once
	closeOnce sync.Once
}

func (m *mockStream) Stream(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(data) > 0 && !m.audioSeen {
		m.audioSeen = true
		m.events <- repositories.StreamEvent{Kind: repositories.StreamEventSpeechStarted}
		m.events <- repositories.StreamEvent{Kind: repositories.StreamEventDelta, Text: "hola"}
	}
	return nil
}

func (m *mockStream) End() error {
	m.endOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.audioSeen {
			m.events <- repositories.StreamEvent{Kind: repositories.StreamEventFinal, Text: "hola"}
		}
	})
	return nil
}

func (m *mockStream) Events() <-chan repositories.StreamEvent {
	return m.events
}

func (m *mockStream) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.events <- repositories.StreamEvent{Kind: repositories.StreamEventClosed}
		close(m.events)
	})
	return nil
}
