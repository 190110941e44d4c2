package stt

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/voicebank/server/domain/repositories"
)

// GoogleSpeechToText implements SpeechToText and StreamingSpeechToText
// for Google Cloud Speech-to-Text.
type GoogleSpeechToText struct {
	defaults repositories.AudioConfig
}

var (
	_ repositories.SpeechToText          = (*GoogleSpeechToText)(nil)
	_ repositories.StreamingSpeechToText = (*GoogleSpeechToText)(nil)
)

// NewGoogleSpeechToText creates a Google STT adapter with default audio
// settings used for batch uploads.
func NewGoogleSpeechToText(defaults repositories.AudioConfig) *GoogleSpeechToText {
	if defaults.SampleRate <= 0 {
		defaults.SampleRate = 24000
	}
	if defaults.Encoding == "" {
		defaults.Encoding = "LINEAR16"
	}
	if defaults.Language == "" {
		defaults.Language = "es-ES"
	}
	return &GoogleSpeechToText{defaults: defaults}
}

// Transcribe converts one uploaded audio file to text using the
// synchronous recognize call.
func (g *GoogleSpeechToText) Transcribe(ctx context.Context, audio repositories.Audio) (*repositories.Transcript, error) {
	if len(audio.Data) == 0 {
		return nil, newError(ErrCodeNoFile, "no audio file provided")
	}
	if len(audio.Data) > MaxUploadBytes {
		return nil, newErrorWithDetail(ErrCodeFileTooLarge, "audio file exceeds the upload limit",
			fmt.Sprintf("%d bytes", len(audio.Data)))
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, newErrorWithDetail(ErrCodeNotConfigured, "failed to create speech client", err.Error())
	}
	defer client.Close()

	encoding, err := getAudioEncoding(g.defaults.Encoding)
	if err != nil {
		return nil, newErrorWithDetail(ErrCodeInvalidFormat, "unsupported audio encoding", g.defaults.Encoding)
	}

	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encoding,
			SampleRateHertz: int32(g.defaults.SampleRate),
			LanguageCode:    g.defaults.Language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio.Data},
		},
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, newError(ErrCodeTimeout, "transcription request timed out")
		}
		return nil, newErrorWithDetail(ErrCodeServer, "recognition failed", err.Error())
	}

	var text string
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			if text != "" {
				text += " "
			}
			text += result.Alternatives[0].Transcript
		}
	}
	if text == "" {
		return nil, newError(ErrCodeInvalidResponse, "no speech detected in audio")
	}

	return &repositories.Transcript{Text: text, Language: g.defaults.Language}, nil
}

// Ping reports whether credentials are present and a client can be
// constructed. It never returns an error.
func (g *GoogleSpeechToText) Ping(ctx context.Context) repositories.ProviderStatus {
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		return repositories.ProviderStatus{Online: false, Message: "GOOGLE_APPLICATION_CREDENTIALS is not set"}
	}
	client, err := speech.NewClient(ctx)
	if err != nil {
		return repositories.ProviderStatus{Online: false, Message: err.Error()}
	}
	client.Close()
	return repositories.ProviderStatus{Online: true}
}

// InitStreaming initializes a streaming transcription session. ctx
// bounds session setup only; the gRPC stream is detached from it so a
// live session is not torn down when the caller's init context ends.
func (g *GoogleSpeechToText) InitStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	stream, err := client.StreamingRecognize(context.WithoutCancel(ctx))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create streaming recognize: %w", err)
	}

	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		stream.CloseSend()
		client.Close()
		return nil, fmt.Errorf("unsupported audio encoding: %s", config.Encoding)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        encoding,
					SampleRateHertz: int32(config.SampleRate),
					LanguageCode:    config.Language,
				},
				InterimResults: true,
			},
		},
	}); err != nil {
		stream.CloseSend()
		client.Close()
		return nil, fmt.Errorf("failed to send streaming config: %w", err)
	}

	session := &googleStream{
		client: client,
		stream: stream,
		events: make(chan repositories.StreamEvent, 64),
		done:   make(chan struct{}),
	}
	go session.receiveResults()

	return session, nil
}

type googleStream struct {
	client *speech.Client
	stream speechpb.Speech_StreamingRecognizeClient

	events chan repositories.StreamEvent
	done   chan struct{}

	speechSeen    bool
	closeSendOnce sync.Once
	closeOnce     sync.Once
}

func (g *googleStream) Stream(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := g.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: data,
		},
	}); err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}
	return nil
}

func (g *googleStream) End() error {
	var err error
	g.closeSendOnce.Do(func() {
		err = g.stream.CloseSend()
	})
	if err != nil {
		return fmt.Errorf("failed to close send stream: %w", err)
	}
	return nil
}

func (g *googleStream) Events() <-chan repositories.StreamEvent {
	return g.events
}

func (g *googleStream) Close() error {
	g.closeOnce.Do(func() {
		_ = g.End()
		g.client.Close()
	})
	return nil
}

func (g *googleStream) receiveResults() {
	defer close(g.events)
	defer close(g.done)

	for {
		resp, err := g.stream.Recv()
		if err == io.EOF {
			g.events <- repositories.StreamEvent{Kind: repositories.StreamEventClosed}
			return
		}
		if err != nil {
			g.events <- repositories.StreamEvent{Kind: repositories.StreamEventError, Err: err.Error()}
			g.events <- repositories.StreamEvent{Kind: repositories.StreamEventClosed}
			return
		}

		for _, result := range resp.Results {
			if len(result.Alternatives) == 0 {
				continue
			}
			// Google has no discrete speech-started event; the first
			// interim result stands in for one.
			if !g.speechSeen {
				g.speechSeen = true
				g.events <- repositories.StreamEvent{Kind: repositories.StreamEventSpeechStarted}
			}
			transcript := result.Alternatives[0].Transcript
			if result.IsFinal {
				g.events <- repositories.StreamEvent{Kind: repositories.StreamEventFinal, Text: transcript}
			} else {
				g.events <- repositories.StreamEvent{Kind: repositories.StreamEventDelta, Text: transcript}
			}
		}
	}
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
