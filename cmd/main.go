package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/voicebank/server/adapters/mongo"
	"github.com/voicebank/server/adapters/stt"
	"github.com/voicebank/server/adapters/tts"
	"github.com/voicebank/server/domain/repositories"
	"github.com/voicebank/server/internal/api"
	"github.com/voicebank/server/internal/auth"
	"github.com/voicebank/server/internal/config"
	"github.com/voicebank/server/internal/phrase"
	"github.com/voicebank/server/internal/websocket"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Storage
	client, err := mongo.NewClient(cfg.Mongo.URI, cfg.Mongo.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Error("Failed to close MongoDB client", zap.Error(err))
		}
	}()

	users := mongo.NewUserRepository(client.Database)
	consents := mongo.NewConsentRepository(client.Database)
	progress := mongo.NewProgressRepository(client.Database)
	recordings := mongo.NewRecordingRepository(client.Database)

	// Token issuer
	issuer, err := auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.SessionTTL, cfg.Auth.EphemeralTTL)
	if err != nil {
		logger.Fatal("Failed to create token issuer", zap.Error(err))
	}

	// Speech providers
	audioConfig := repositories.AudioConfig{
		SampleRate: cfg.Speech.SampleRate,
		Encoding:   cfg.Speech.Encoding,
		Language:   cfg.Speech.Language,
	}

	var batchSTT repositories.SpeechToText
	switch cfg.Speech.Provider {
	case "google":
		batchSTT = stt.NewGoogleSpeechToText(audioConfig)
	default:
		batchSTT = stt.NewOpenAIClient(stt.OpenAIConfig{
			APIKey:         cfg.OpenAI.APIKey,
			APIBaseURL:     cfg.OpenAI.APIBaseURL,
			Model:          cfg.OpenAI.Model,
			Language:       cfg.Speech.Language,
			RequestTimeout: cfg.OpenAI.RequestTimeout,
			PingTimeout:    cfg.OpenAI.PingTimeout,
		}, logger)
	}

	var streamingSTT repositories.StreamingSpeechToText
	switch cfg.Speech.StreamingProvider {
	case "google":
		streamingSTT = stt.NewGoogleSpeechToText(audioConfig)
	default:
		streamingSTT = stt.NewRealtimeProvider(stt.RealtimeConfig{
			APIKey:   cfg.OpenAI.APIKey,
			URL:      cfg.OpenAI.RealtimeURL,
			Model:    cfg.OpenAI.RealtimeModel,
			Language: cfg.Speech.Language,
		}, logger)
	}

	// Text to speech is optional; the endpoint answers 503 without it.
	var textToSpeech api.TTSProvider
	if cfg.ElevenLabs.APIKey != "" {
		elevenLabs, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
			APIKey:       cfg.ElevenLabs.APIKey,
			APIBaseURL:   cfg.ElevenLabs.APIBaseURL,
			VoiceID:      cfg.ElevenLabs.VoiceID,
			ModelID:      cfg.ElevenLabs.ModelID,
			OutputFormat: cfg.ElevenLabs.OutputFormat,
			ChunkSize:    cfg.ElevenLabs.ChunkSize,
			Stability:    cfg.ElevenLabs.Stability,
			Clarity:      cfg.ElevenLabs.Clarity,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create ElevenLabs client", zap.Error(err))
		}
		textToSpeech = elevenLabs
	}

	// Phrase service
	phrases := phrase.NewService(cfg.Phrases.Path, progress, logger)
	phrases.Initialize()

	// WebSocket hub
	hub := websocket.NewHub(streamingSTT, audioConfig, logger)
	go hub.Run()

	reaper := websocket.NewIdleReaper(hub, cfg.Auth.EphemeralTTL, logger)
	reaper.Start()
	defer reaper.Stop()

	// HTTP surface
	server := api.NewServer(issuer, users, consents, recordings, batchSTT, textToSpeech, phrases, hub, logger)
	server.InitRoutes(e)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Server.Port),
		zap.String("sttProvider", cfg.Speech.Provider),
		zap.String("streamingProvider", cfg.Speech.StreamingProvider))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
