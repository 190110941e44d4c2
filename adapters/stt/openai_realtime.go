package stt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voicebank/server/domain/repositories"
)

const defaultRealtimeURL = "wss://api.openai.com/v1/realtime"

// RealtimeConfig holds configuration for the OpenAI realtime
// transcription provider.
type RealtimeConfig struct {
	APIKey   string
	URL      string
	Model    string
	Language string
}

// RealtimeProvider opens streaming transcription sessions against the
// OpenAI realtime API.
type RealtimeProvider struct {
	cfg    RealtimeConfig
	logger *zap.Logger
}

var _ repositories.StreamingSpeechToText = (*RealtimeProvider)(nil)

// NewRealtimeProvider creates a new realtime transcription provider
func NewRealtimeProvider(cfg RealtimeConfig, logger *zap.Logger) *RealtimeProvider {
	if cfg.URL == "" {
		cfg.URL = defaultRealtimeURL
	}
	return &RealtimeProvider{cfg: cfg, logger: logger}
}

// InitStreaming dials the provider and starts a live session
func (p *RealtimeProvider) InitStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is not configured")
	}

	url := p.cfg.URL
	if p.cfg.Model != "" {
		url = fmt.Sprintf("%s?intent=transcription&model=%s", url, p.cfg.Model)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+p.cfg.APIKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to realtime endpoint: %w", err)
	}

	session := &realtimeSession{
		conn:   conn,
		events: make(chan repositories.StreamEvent, 64),
		audio:  make(chan []byte, 32),
		done:   make(chan struct{}),
		logger: p.logger,
	}

	// ctx bounds the dial only. The session outlives it and is torn
	// down through Close.
	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		close(session.events)
		close(session.done)
		_ = conn.Close()
	}()

	return session, nil
}

type realtimeSession struct {
	conn *websocket.Conn

	events chan repositories.StreamEvent
	audio  chan []byte
	done   chan struct{}

	wg sync.WaitGroup

	closeSendOnce sync.Once
	closeOnce     sync.Once
	sendMu        sync.RWMutex
	sendClosed    bool

	logger *zap.Logger
}

func (s *realtimeSession) Stream(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	copied := append([]byte(nil), data...)

	// Held across the send so End cannot close the channel mid-send.
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.sendClosed {
		return errors.New("audio stream is already closed")
	}
	select {
	case s.audio <- copied:
		return nil
	case <-s.done:
		return errors.New("session closed")
	}
}

func (s *realtimeSession) End() error {
	s.closeSendOnce.Do(func() {
		s.sendMu.Lock()
		s.sendClosed = true
		close(s.audio)
		s.sendMu.Unlock()
	})
	return nil
}

func (s *realtimeSession) Events() <-chan repositories.StreamEvent {
	return s.events
}

func (s *realtimeSession) Close() error {
	s.closeOnce.Do(func() {
		_ = s.End()
		_ = s.conn.Close()
	})
	<-s.done
	return nil
}

func (s *realtimeSession) writeLoop() {
	defer s.wg.Done()

	for chunk := range s.audio {
		msg := map[string]string{
			"type":  "input_audio_buffer.append",
			"audio": base64.StdEncoding.EncodeToString(chunk),
		}
		if err := s.conn.WriteJSON(msg); err != nil {
			s.logger.Error("Failed to send audio chunk", zap.Error(err))
			return
		}
	}

	if err := s.conn.WriteJSON(map[string]string{"type": "input_audio_buffer.commit"}); err != nil {
		s.logger.Error("Failed to commit audio buffer", zap.Error(err))
	}
}

// providerEvent is the subset of the realtime wire format this session
// consumes.
type providerEvent struct {
	Type       string `json:"type"`
	Delta      string `json:"delta,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Error      struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (s *realtimeSession) readLoop() {
	defer s.wg.Done()

	// Provider deltas are incremental fragments; downstream expects each
	// delta event to carry the full text so far.
	var partial strings.Builder

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				s.emit(repositories.StreamEvent{Kind: repositories.StreamEventError, Err: err.Error()})
			}
			s.emit(repositories.StreamEvent{Kind: repositories.StreamEventClosed})
			return
		}

		var event providerEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			s.logger.Warn("Discarding undecodable realtime event", zap.Error(err))
			continue
		}

		switch event.Type {
		case "input_audio_buffer.speech_started":
			s.emit(repositories.StreamEvent{Kind: repositories.StreamEventSpeechStarted})
		case "conversation.item.input_audio_transcription.delta":
			partial.WriteString(event.Delta)
			s.emit(repositories.StreamEvent{Kind: repositories.StreamEventDelta, Text: partial.String()})
		case "conversation.item.input_audio_transcription.completed":
			partial.Reset()
			s.emit(repositories.StreamEvent{Kind: repositories.StreamEventFinal, Text: event.Transcript})
		case "error":
			s.emit(repositories.StreamEvent{Kind: repositories.StreamEventError, Err: event.Error.Message})
		default:
			// Session bookkeeping events the relay does not care about.
		}
	}
}

func (s *realtimeSession) emit(event repositories.StreamEvent) {
	select {
	case s.events <- event:
	case <-s.done:
	}
}
