package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"github.com/voicebank/server/domain/repositories"
)

var realtimeTestUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// newRealtimeTestServer emulates the provider: it waits for the first
// audio append, plays back the scripted events, then closes after the
// commit arrives.
func newRealtimeTestServer(t *testing.T, script []map[string]interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer key", got)
		}

		conn, err := realtimeTestUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		for {
			var msg map[string]interface{}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg["type"] {
			case "input_audio_buffer.append":
				for _, event := range script {
					if err := conn.WriteJSON(event); err != nil {
						return
					}
				}
				script = nil
			case "input_audio_buffer.commit":
				conn.WriteJSON(map[string]interface{}{
					"type":       "conversation.item.input_audio_transcription.completed",
					"transcript": "hola mundo",
				})
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func collectEvents(t *testing.T, session repositories.SpeechToTextStreaming) []repositories.StreamEvent {
	t.Helper()
	var events []repositories.StreamEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case event, ok := <-session.Events():
			if !ok {
				return events
			}
			events = append(events, event)
		case <-timeout:
			t.Fatalf("timed out, collected %d events", len(events))
		}
	}
}

func TestRealtimeSessionAccumulatesDeltas(t *testing.T) {
	server := newRealtimeTestServer(t, []map[string]interface{}{
		{"type": "input_audio_buffer.speech_started"},
		{"type": "conversation.item.input_audio_transcription.delta", "delta": "hola"},
		{"type": "conversation.item.input_audio_transcription.delta", "delta": " mundo"},
	})

	provider := NewRealtimeProvider(RealtimeConfig{
		APIKey: "test-key",
		URL:    "ws" + strings.TrimPrefix(server.URL, "http"),
	}, zaptest.NewLogger(t))

	session, err := provider.InitStreaming(context.Background(), repositories.AudioConfig{
		SampleRate: 24000,
		Encoding:   "LINEAR16",
		Language:   "es-ES",
	})
	if err != nil {
		t.Fatalf("InitStreaming() error = %v", err)
	}

	if err := session.Stream([]byte{0x01, 0x02}); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if err := session.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	events := collectEvents(t, session)

	var deltas []string
	var finals []string
	sawStarted := false
	for _, event := range events {
		switch event.Kind {
		case repositories.StreamEventSpeechStarted:
			sawStarted = true
		case repositories.StreamEventDelta:
			deltas = append(deltas, event.Text)
		case repositories.StreamEventFinal:
			finals = append(finals, event.Text)
		}
	}

	if !sawStarted {
		t.Error("expected a speech_started event")
	}
	if len(deltas) != 2 || deltas[0] != "hola" || deltas[1] != "hola mundo" {
		t.Errorf("deltas = %v, want accumulated [hola, hola mundo]", deltas)
	}
	if len(finals) != 1 || finals[0] != "hola mundo" {
		t.Errorf("finals = %v, want [hola mundo]", finals)
	}
	if events[len(events)-1].Kind != repositories.StreamEventClosed {
		t.Errorf("last event = %q, want closed", events[len(events)-1].Kind)
	}
}

// Audio flows long after the init context is gone; the context bounds
// dialing only.
func TestRealtimeSessionOutlivesInitContext(t *testing.T) {
	server := newRealtimeTestServer(t, []map[string]interface{}{
		{"type": "conversation.item.input_audio_transcription.delta", "delta": "hola"},
	})

	provider := NewRealtimeProvider(RealtimeConfig{
		APIKey: "test-key",
		URL:    "ws" + strings.TrimPrefix(server.URL, "http"),
	}, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	session, err := provider.InitStreaming(ctx, repositories.AudioConfig{})
	if err != nil {
		t.Fatalf("InitStreaming() error = %v", err)
	}
	cancel()

	if err := session.Stream([]byte{0x01, 0x02}); err != nil {
		t.Fatalf("Stream() after init context ended error = %v", err)
	}
	if err := session.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	events := collectEvents(t, session)

	var finals []string
	for _, event := range events {
		if event.Kind == repositories.StreamEventFinal {
			finals = append(finals, event.Text)
		}
	}
	if len(finals) != 1 || finals[0] != "hola mundo" {
		t.Errorf("finals = %v, want [hola mundo] from a session that survived init", finals)
	}
}

// Stream and End race from different goroutines in production; closing
// the audio channel must never panic a concurrent send.
func TestRealtimeSessionStreamDuringEnd(t *testing.T) {
	server := newRealtimeTestServer(t, nil)

	provider := NewRealtimeProvider(RealtimeConfig{
		APIKey: "test-key",
		URL:    "ws" + strings.TrimPrefix(server.URL, "http"),
	}, zaptest.NewLogger(t))

	session, err := provider.InitStreaming(context.Background(), repositories.AudioConfig{})
	if err != nil {
		t.Fatalf("InitStreaming() error = %v", err)
	}

	streaming := make(chan struct{})
	go func() {
		defer close(streaming)
		for i := 0; i < 256; i++ {
			if err := session.Stream([]byte{0x01}); err != nil {
				return
			}
		}
	}()

	if err := session.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	<-streaming

	events := collectEvents(t, session)
	if len(events) == 0 || events[len(events)-1].Kind != repositories.StreamEventClosed {
		t.Errorf("events = %v, want a trailing closed event", events)
	}
}

func TestRealtimeSessionRequiresAPIKey(t *testing.T) {
	provider := NewRealtimeProvider(RealtimeConfig{}, zaptest.NewLogger(t))
	if _, err := provider.InitStreaming(context.Background(), repositories.AudioConfig{}); err == nil {
		t.Error("expected error without an API key")
	}
}

func TestRealtimeSessionCloseIdempotent(t *testing.T) {
	server := newRealtimeTestServer(t, nil)

	provider := NewRealtimeProvider(RealtimeConfig{
		APIKey: "test-key",
		URL:    "ws" + strings.TrimPrefix(server.URL, "http"),
	}, zaptest.NewLogger(t))

	session, err := provider.InitStreaming(context.Background(), repositories.AudioConfig{})
	if err != nil {
		t.Fatalf("InitStreaming() error = %v", err)
	}

	if err := session.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if err := session.Stream([]byte{0x01}); err == nil {
		t.Error("Stream() after Close should fail")
	}
}

func TestRealtimeSessionModelQuery(t *testing.T) {
	var gotURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		conn, err := realtimeTestUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer server.Close()

	provider := NewRealtimeProvider(RealtimeConfig{
		APIKey: "test-key",
		URL:    "ws" + strings.TrimPrefix(server.URL, "http"),
		Model:  "gpt-4o-transcribe",
	}, zaptest.NewLogger(t))

	session, err := provider.InitStreaming(context.Background(), repositories.AudioConfig{})
	if err != nil {
		t.Fatalf("InitStreaming() error = %v", err)
	}
	defer session.Close()

	if !strings.Contains(gotURL, "intent=transcription") || !strings.Contains(gotURL, "model=gpt-4o-transcribe") {
		t.Errorf("dial URL = %q, want transcription intent and model", gotURL)
	}
}
