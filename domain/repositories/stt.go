package repositories

import "context"

// SpeechToText abstracts batch speech recognition services
type SpeechToText interface {
	// Transcribe converts one uploaded audio file to text
	Transcribe(ctx context.Context, audio Audio) (*Transcript, error)
	// Ping probes the provider. It never returns an error; failures are
	// reported through the status.
	Ping(ctx context.Context) ProviderStatus
}

// StreamingSpeechToText abstracts providers that support live streaming
// transcription sessions
type StreamingSpeechToText interface {
	InitStreaming(ctx context.Context, config AudioConfig) (SpeechToTextStreaming, error)
}

// SpeechToTextStreaming is one live transcription session
type SpeechToTextStreaming interface {
	// Stream forwards an audio chunk to the provider
	Stream(data []byte) error
	// End signals that no more audio will be sent
	End() error
	// Events delivers typed transcription events until the session closes
	Events() <-chan StreamEvent
	// Close tears the session down; safe to call more than once
	Close() error
}

// Audio is one uploaded audio file
type Audio struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Transcript is the result of a batch transcription
type Transcript struct {
	Text        string  `json:"text"`
	Language    string  `json:"language,omitempty"`
	DurationSec float64 `json:"duration_sec,omitempty"`
}

// ProviderStatus reports the outcome of a health probe
type ProviderStatus struct {
	Online  bool   `json:"online"`
	Message string `json:"message,omitempty"`
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// StreamEventKind identifies a streaming transcription event
type StreamEventKind string

const (
	StreamEventSpeechStarted StreamEventKind = "speech_started"
	StreamEventDelta         StreamEventKind = "delta"
	StreamEventFinal         StreamEventKind = "final"
	StreamEventError         StreamEventKind = "error"
	StreamEventClosed        StreamEventKind = "closed"
)

// StreamEvent is incremental transcription output from a provider
type StreamEvent struct {
	Kind StreamEventKind
	Text string
	Err  string
}
