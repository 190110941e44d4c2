package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voicebank/server/domain/repositories"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM" // Rachel voice
	defaultChunkSize    = 1024
	defaultOutputFormat = "mp3_44100_128"
	defaultModelID      = "eleven_multilingual_v2"
	defaultStability    = 0.5
	defaultClarity      = 0.75

	// MaxTextLength bounds synthesis requests the same way the consumer
	// UI bounds them.
	MaxTextLength = 5000
)

// ElevenLabsConfig holds configuration for the ElevenLabs TTS adapter.
// APIKey is required; every other field falls back to a default.
type ElevenLabsConfig struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string
	ModelID      string
	OutputFormat string
	ChunkSize    int
	Stability    float64
	Clarity      float64
}

// Validate checks the configuration ranges
func (c ElevenLabsConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}
	if c.Stability != 0 && (c.Stability < 0 || c.Stability > 1) {
		return fmt.Errorf("stability must be between 0 and 1, got %f", c.Stability)
	}
	if c.Clarity != 0 && (c.Clarity < 0 || c.Clarity > 1) {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", c.Clarity)
	}
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	return nil
}

// ElevenLabsTTS implements TextToSpeech using the ElevenLabs API
type ElevenLabsTTS struct {
	cfg    ElevenLabsConfig
	client *http.Client
	logger *zap.Logger
}

var _ repositories.TextToSpeech = (*ElevenLabsTTS)(nil)

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

type synthesisRequest struct {
	Text                   string        `json:"text"`
	ModelID                string        `json:"model_id"`
	VoiceSettings          voiceSettings `json:"voice_settings"`
	ApplyTextNormalization string        `json:"apply_text_normalization,omitempty"`
}

// NewElevenLabsTTS creates a new ElevenLabs TTS instance
func NewElevenLabsTTS(cfg ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = defaultVoiceID
	}
	if cfg.ModelID == "" {
		cfg.ModelID = defaultModelID
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = defaultOutputFormat
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.Stability == 0 {
		cfg.Stability = defaultStability
	}
	if cfg.Clarity == 0 {
		cfg.Clarity = defaultClarity
	}

	return &ElevenLabsTTS{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}, nil
}

// ConvertTextToSpeech converts text to speech, streaming audio chunks
// over the returned channel until synthesis completes or ctx is done.
func (e *ElevenLabsTTS) ConvertTextToSpeech(ctx context.Context, text string) (<-chan []byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	if len(text) > MaxTextLength {
		return nil, fmt.Errorf("text exceeds %d character limit", MaxTextLength)
	}

	payload, err := json.Marshal(synthesisRequest{
		Text:                   text,
		ModelID:                e.cfg.ModelID,
		ApplyTextNormalization: "auto",
		VoiceSettings: voiceSettings{
			Stability:       e.cfg.Stability,
			SimilarityBoost: e.cfg.Clarity,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s/stream?output_format=%s&enable_logging=false",
		e.cfg.APIBaseURL, e.cfg.VoiceID, e.cfg.OutputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	accept := "audio/mpeg"
	if strings.HasPrefix(e.cfg.OutputFormat, "pcm") {
		accept = "audio/pcm"
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.cfg.APIKey)

	audioChan := make(chan []byte, 10)

	go func() {
		defer close(audioChan)

		resp, err := e.client.Do(req)
		if err != nil {
			e.logger.Error("TTS request failed", zap.Error(err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			e.logger.Error("TTS provider returned error",
				zap.Int("statusCode", resp.StatusCode),
				zap.String("response", string(errorBody)))
			return
		}

		buffer := make([]byte, e.cfg.ChunkSize)
		for {
			n, err := resp.Body.Read(buffer)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buffer[:n])
				select {
				case audioChan <- chunk:
				case <-ctx.Done():
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				e.logger.Error("Error reading TTS response body", zap.Error(err))
				return
			}
		}
	}()

	return audioChan, nil
}

// ContentType returns the MIME type of the configured output format
func (e *ElevenLabsTTS) ContentType() string {
	if strings.HasPrefix(e.cfg.OutputFormat, "pcm") {
		return "audio/pcm"
	}
	return "audio/mpeg"
}
