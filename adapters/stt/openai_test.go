package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/voicebank/server/domain/repositories"
)

func newTestClient(t *testing.T, handler http.Handler, timeout time.Duration) (*OpenAIClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewOpenAIClient(OpenAIConfig{
		APIKey:         "test-key",
		APIBaseURL:     server.URL,
		RequestTimeout: timeout,
		PingTimeout:    timeout,
	}, zap.NewNop())
	return client, server
}

func wavAudio(size int) repositories.Audio {
	return repositories.Audio{
		Name:     "clip.wav",
		MIMEType: "audio/wav",
		Data:     make([]byte, size),
	}
}

func TestTranscribeRequiresAPIKey(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{}, zap.NewNop())

	_, err := client.Transcribe(context.Background(), wavAudio(100))
	if CodeOf(err) != ErrCodeNotConfigured {
		t.Errorf("expected %s, got %v", ErrCodeNotConfigured, err)
	}
}

func TestTranscribeRejectsBeforeNetwork(t *testing.T) {
	var hit bool
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}), time.Second)

	tests := []struct {
		name  string
		audio repositories.Audio
		code  ErrorCode
	}{
		{"empty file", repositories.Audio{MIMEType: "audio/wav"}, ErrCodeNoFile},
		{"disallowed mime", repositories.Audio{MIMEType: "video/avi", Data: []byte{1}}, ErrCodeInvalidFormat},
		{"oversize", wavAudio(MaxUploadBytes + 1), ErrCodeFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Transcribe(context.Background(), tt.audio)
			if CodeOf(err) != tt.code {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}

	if hit {
		t.Error("locally rejected uploads must not reach the network")
	}
}

func TestTranscribeAcceptsMIMEWithCodecParams(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"hola"}`))
	}), time.Second)

	audio := repositories.Audio{
		Name:     "clip.webm",
		MIMEType: "audio/webm;codecs=opus",
		Data:     []byte{1, 2, 3},
	}
	transcript, err := client.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if transcript.Text != "hola" {
		t.Errorf("expected text hola, got %q", transcript.Text)
	}
}

func TestTranscribeTimeout(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}), 50*time.Millisecond)

	_, err := client.Transcribe(context.Background(), wavAudio(100))
	if CodeOf(err) != ErrCodeTimeout {
		t.Errorf("expected %s, got %v", ErrCodeTimeout, err)
	}
}

func TestTranscribeClassifiesServerResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   ErrorCode
	}{
		{"payload too large", http.StatusRequestEntityTooLarge, ErrCodeFileTooLarge},
		{"unsupported media", http.StatusUnsupportedMediaType, ErrCodeInvalidFormat},
		{"unauthorized", http.StatusUnauthorized, ErrCodeNotConfigured},
		{"server error", http.StatusInternalServerError, ErrCodeServer},
		{"teapot", http.StatusTeapot, ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}), time.Second)

			_, err := client.Transcribe(context.Background(), wavAudio(100))
			if CodeOf(err) != tt.code {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestTranscribeInvalidResponse(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}), time.Second)

	_, err := client.Transcribe(context.Background(), wavAudio(100))
	if CodeOf(err) != ErrCodeInvalidResponse {
		t.Errorf("expected %s, got %v", ErrCodeInvalidResponse, err)
	}
}

func TestTranscribeSendsModelAndLanguage(t *testing.T) {
	var gotModel, gotLanguage string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
		}
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")
		w.Write([]byte(`{"text":"hola","language":"es","duration":1.5}`))
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewOpenAIClient(OpenAIConfig{
		APIKey:     "test-key",
		APIBaseURL: server.URL,
		Model:      "whisper-1",
		Language:   "es-ES",
	}, zap.NewNop())

	transcript, err := client.Transcribe(context.Background(), wavAudio(100))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if gotModel != "whisper-1" {
		t.Errorf("expected model whisper-1, got %q", gotModel)
	}
	if gotLanguage != "es" {
		t.Errorf("expected ISO-639-1 language es, got %q", gotLanguage)
	}
	if transcript.DurationSec != 1.5 {
		t.Errorf("expected duration 1.5, got %f", transcript.DurationSec)
	}
}

func TestPingNeverErrors(t *testing.T) {
	t.Run("online", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":[]}`))
		}), time.Second)

		status := client.Ping(context.Background())
		if !status.Online {
			t.Errorf("expected online, got %+v", status)
		}
	})

	t.Run("server failure", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}), time.Second)

		status := client.Ping(context.Background())
		if status.Online {
			t.Error("expected offline on 5xx")
		}
		if status.Message == "" {
			t.Error("expected diagnostic message")
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		client := NewOpenAIClient(OpenAIConfig{
			APIKey:      "test-key",
			APIBaseURL:  "http://127.0.0.1:1",
			PingTimeout: 100 * time.Millisecond,
		}, zap.NewNop())

		status := client.Ping(context.Background())
		if status.Online {
			t.Error("expected offline for unreachable provider")
		}
	})

	t.Run("not configured", func(t *testing.T) {
		client := NewOpenAIClient(OpenAIConfig{}, zap.NewNop())
		status := client.Ping(context.Background())
		if status.Online {
			t.Error("expected offline without API key")
		}
	})
}
