// Package realtime implements the live transcription channel: the wire
// events exchanged over the websocket, a pure state reducer, and a
// client channel that owns the connection.
package realtime

// EventType identifies a server-to-client event on the realtime channel
type EventType string

const (
	EventConnectionEstablished EventType = "connection_established"
	EventSessionReady          EventType = "session_ready"
	EventSpeechStarted         EventType = "speech_started"
	EventTranscriptionDelta    EventType = "transcription_delta"
	EventTranscriptionComplete EventType = "transcription_complete"
	EventResponseComplete      EventType = "response_complete"
	EventError                 EventType = "error"
	EventConnectionClosed      EventType = "connection_closed"
)

// Event is one server-to-client message
type Event struct {
	Type  EventType `json:"type"`
	Text  string    `json:"text,omitempty"`
	Delta string    `json:"delta,omitempty"`
	Error string    `json:"error,omitempty"`
}

// CommandType identifies a client-to-server command
type CommandType string

const (
	CommandAudioData CommandType = "audio_data"
	CommandEndAudio  CommandType = "end_audio"
	CommandReset     CommandType = "reset"
)

// Command is one client-to-server message. Audio carries base64-encoded
// PCM for audio_data and is empty otherwise.
type Command struct {
	Type  CommandType `json:"type"`
	Audio string      `json:"audio,omitempty"`
}
