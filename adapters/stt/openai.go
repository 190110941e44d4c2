package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voicebank/server/domain/repositories"
)

const (
	// MaxUploadBytes is the upload size ceiling enforced before any
	// network I/O. Matches the provider's own 25 MB limit.
	MaxUploadBytes = 25 * 1024 * 1024

	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultModel         = "whisper-1"
)

// allowedMIMETypes is the upload allow-list checked before any request
// is issued.
var allowedMIMETypes = map[string]bool{
	"audio/wav":   true,
	"audio/wave":  true,
	"audio/x-wav": true,
	"audio/mpeg":  true,
	"audio/mp3":   true,
	"audio/mp4":   true,
	"audio/m4a":   true,
	"audio/x-m4a": true,
	"audio/webm":  true,
	"audio/ogg":   true,
	"audio/flac":  true,
}

// OpenAIConfig holds configuration for the OpenAI transcription client
type OpenAIConfig struct {
	APIKey         string
	APIBaseURL     string
	Model          string
	Language       string
	RequestTimeout time.Duration
	PingTimeout    time.Duration
}

// OpenAIClient implements SpeechToText against the OpenAI audio
// transcription endpoint.
type OpenAIClient struct {
	cfg    OpenAIConfig
	client *http.Client
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*OpenAIClient)(nil)

// NewOpenAIClient creates a new OpenAI transcription client
func NewOpenAIClient(cfg OpenAIConfig, logger *zap.Logger) *OpenAIClient {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 5 * time.Second
	}
	return &OpenAIClient{
		cfg:    cfg,
		client: &http.Client{},
		logger: logger,
	}
}

// Transcribe converts one uploaded audio file to text. Input validation
// runs before any network call; failures carry a TranscribeError code.
func (c *OpenAIClient) Transcribe(ctx context.Context, audio repositories.Audio) (*repositories.Transcript, error) {
	if c.cfg.APIKey == "" {
		return nil, newError(ErrCodeNotConfigured, "transcription API key is not configured")
	}
	if len(audio.Data) == 0 {
		return nil, newError(ErrCodeNoFile, "no audio file provided")
	}
	mimeType := normalizeMIME(audio.MIMEType)
	if !allowedMIMETypes[mimeType] {
		return nil, newErrorWithDetail(ErrCodeInvalidFormat, "unsupported audio format", audio.MIMEType)
	}
	if len(audio.Data) > MaxUploadBytes {
		return nil, newErrorWithDetail(ErrCodeFileTooLarge, "audio file exceeds the upload limit",
			fmt.Sprintf("%d bytes", len(audio.Data)))
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	body, contentType, err := c.buildMultipart(audio)
	if err != nil {
		return nil, newErrorWithDetail(ErrCodeUnknown, "failed to build request", err.Error())
	}

	url := c.cfg.APIBaseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, newErrorWithDetail(ErrCodeUnknown, "failed to create request", err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	c.logger.Debug("Sending transcription request",
		zap.String("model", c.cfg.Model),
		zap.Int("bytes", len(audio.Data)))

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, newError(ErrCodeTimeout, "transcription request timed out")
		}
		return nil, newErrorWithDetail(ErrCodeNetwork, "transcription request failed", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.classifyHTTPError(resp)
	}

	var result struct {
		Text     string  `json:"text"`
		Language string  `json:"language"`
		Duration float64 `json:"duration"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, newErrorWithDetail(ErrCodeInvalidResponse, "failed to decode transcription response", err.Error())
	}
	if result.Text == "" {
		return nil, newError(ErrCodeInvalidResponse, "transcription response contained no text")
	}

	return &repositories.Transcript{
		Text:        result.Text,
		Language:    result.Language,
		DurationSec: result.Duration,
	}, nil
}

// Ping probes the provider with a short timeout. It never returns an
// error; failures are reported through the status.
func (c *OpenAIClient) Ping(ctx context.Context) repositories.ProviderStatus {
	if c.cfg.APIKey == "" {
		return repositories.ProviderStatus{Online: false, Message: "API key is not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.PingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIBaseURL+"/models", nil)
	if err != nil {
		return repositories.ProviderStatus{Online: false, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return repositories.ProviderStatus{Online: false, Message: "provider unreachable"}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusInternalServerError {
		return repositories.ProviderStatus{
			Online:  false,
			Message: fmt.Sprintf("provider returned status %d", resp.StatusCode),
		}
	}
	return repositories.ProviderStatus{Online: true}
}

func (c *OpenAIClient) buildMultipart(audio repositories.Audio) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	name := audio.Name
	if name == "" {
		name = "audio"
	}
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio.Data); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("model", c.cfg.Model); err != nil {
		return nil, "", err
	}
	if c.cfg.Language != "" {
		// OpenAI expects an ISO-639-1 code, not a BCP 47 tag.
		lang := c.cfg.Language
		if idx := strings.IndexByte(lang, '-'); idx > 0 {
			lang = lang[:idx]
		}
		if err := writer.WriteField("language", lang); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func (c *OpenAIClient) classifyHTTPError(resp *http.Response) *TranscribeError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	detail := strings.TrimSpace(string(raw))

	c.logger.Warn("Transcription provider returned error",
		zap.Int("status", resp.StatusCode),
		zap.String("body", detail))

	switch {
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return newErrorWithDetail(ErrCodeFileTooLarge, "provider rejected the file as too large", detail)
	case resp.StatusCode == http.StatusUnsupportedMediaType:
		return newErrorWithDetail(ErrCodeInvalidFormat, "provider rejected the audio format", detail)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return newError(ErrCodeNotConfigured, "transcription API key was rejected")
	case resp.StatusCode >= http.StatusInternalServerError:
		return newErrorWithDetail(ErrCodeServer, "transcription provider failed", detail)
	default:
		return newErrorWithDetail(ErrCodeUnknown,
			fmt.Sprintf("unexpected provider status %d", resp.StatusCode), detail)
	}
}

func normalizeMIME(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	// Strip codec parameters such as "audio/webm;codecs=opus".
	if idx := strings.IndexByte(mimeType, ';'); idx > 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	return mimeType
}
