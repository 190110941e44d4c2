package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration for the voicebank server.
type Config struct {
	Server     ServerConfig
	Mongo      MongoConfig
	Auth       AuthConfig
	OpenAI     OpenAIConfig
	ElevenLabs ElevenLabsConfig
	Speech     SpeechConfig
	Phrases    PhraseConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type MongoConfig struct {
	URI      string
	Database string
}

type AuthConfig struct {
	JWTSecret    string
	SessionTTL   time.Duration
	EphemeralTTL time.Duration
}

type OpenAIConfig struct {
	APIKey         string
	APIBaseURL     string
	Model          string
	RealtimeURL    string
	RealtimeModel  string
	RequestTimeout time.Duration
	PingTimeout    time.Duration
}

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

type SpeechConfig struct {
	// Provider selects the batch transcription backend: "openai" or "google".
	Provider string
	// StreamingProvider selects the realtime backend: "openai" or "google".
	StreamingProvider string
	Language          string
	SampleRate        int
	Encoding          string
}

type PhraseConfig struct {
	Path string
}

// Load resolves configuration from environment variables and defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Port:            envOrDefault("PORT", "8080"),
			ShutdownTimeout: time.Duration(envOrDefaultInt("SHUTDOWN_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Mongo: MongoConfig{
			URI:      envOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
			Database: envOrDefault("MONGODB_DATABASE", "voicebank"),
		},
		Auth: AuthConfig{
			JWTSecret:    strings.TrimSpace(os.Getenv("JWT_SECRET")),
			SessionTTL:   time.Duration(envOrDefaultInt("SESSION_TTL_HOURS", 24)) * time.Hour,
			EphemeralTTL: time.Duration(envOrDefaultInt("EPHEMERAL_TOKEN_TTL_MINUTES", 5)) * time.Minute,
		},
		OpenAI: OpenAIConfig{
			APIKey:         strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			APIBaseURL:     envOrDefault("OPENAI_API_BASE_URL", "https://api.openai.com/v1"),
			Model:          envOrDefault("OPENAI_TRANSCRIBE_MODEL", "whisper-1"),
			RealtimeURL:    envOrDefault("OPENAI_REALTIME_URL", "wss://api.openai.com/v1/realtime"),
			RealtimeModel:  envOrDefault("OPENAI_REALTIME_MODEL", "gpt-4o-transcribe"),
			RequestTimeout: time.Duration(envOrDefaultInt("TRANSCRIBE_TIMEOUT_SECONDS", 60)) * time.Second,
			PingTimeout:    time.Duration(envOrDefaultInt("TRANSCRIBE_PING_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		ElevenLabs: ElevenLabsConfig{
			APIKey:       strings.TrimSpace(os.Getenv("ELEVEN_LABS_API_KEY")),
			APIBaseURL:   envOrDefault("ELEVEN_LABS_API_BASE_URL", "https://api.elevenlabs.io/v1"),
			VoiceID:      os.Getenv("ELEVEN_LABS_VOICE_ID"),
			ModelID:      os.Getenv("ELEVEN_LABS_MODEL_ID"),
			OutputFormat: os.Getenv("ELEVEN_LABS_OUTPUT_FORMAT"),
			ChunkSize:    envOrDefaultInt("ELEVEN_LABS_CHUNK_SIZE", 0),
			Stability:    envOrDefaultFloat("ELEVEN_LABS_STABILITY", 0),
			Clarity:      envOrDefaultFloat("ELEVEN_LABS_CLARITY", 0),
		},
		Speech: SpeechConfig{
			Provider:          envOrDefault("STT_PROVIDER", "openai"),
			StreamingProvider: envOrDefault("STT_STREAMING_PROVIDER", "openai"),
			Language:          envOrDefault("SPEECH_LANGUAGE", "es-ES"),
			SampleRate:        envOrDefaultInt("SPEECH_SAMPLE_RATE", 24000),
			Encoding:          envOrDefault("SPEECH_ENCODING", "LINEAR16"),
		},
		Phrases: PhraseConfig{
			Path: envOrDefault("PHRASES_PATH", "data/phrases.json"),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	switch cfg.Speech.Provider {
	case "openai", "google":
	default:
		return Config{}, errors.New("STT_PROVIDER must be one of: openai, google")
	}
	switch cfg.Speech.StreamingProvider {
	case "openai", "google":
	default:
		return Config{}, errors.New("STT_STREAMING_PROVIDER must be one of: openai, google")
	}
	if cfg.Speech.SampleRate <= 0 {
		cfg.Speech.SampleRate = 24000
	}

	return cfg, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
