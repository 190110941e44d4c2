package realtime

// Status is the connection lifecycle of the channel
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// State is everything a caller needs to render the channel. It is a
// plain value; Reduce never mutates its input.
type State struct {
	Status       Status
	Transcribing bool
	Transcript   string
	LastError    string
}

// NewState returns the initial disconnected state
func NewState() State {
	return State{Status: StatusDisconnected}
}

// Reduce applies one event to a state and returns the next state. It
// has no transport dependency, so the transition table can be tested
// without a connection.
func Reduce(s State, e Event) State {
	switch e.Type {
	case EventConnectionEstablished, EventSessionReady:
		s.Status = StatusConnected
		s.LastError = ""
	case EventSpeechStarted:
		s.Transcribing = true
	case EventTranscriptionDelta:
		// Deltas carry the full text so far; display replaces, never appends.
		s.Transcript = e.Delta
	case EventTranscriptionComplete:
		s.Transcript = e.Text
		s.Transcribing = false
	case EventResponseComplete:
		s.Transcribing = false
	case EventError:
		s.LastError = e.Error
	case EventConnectionClosed:
		s.Status = StatusDisconnected
		s.Transcribing = false
	}
	return s
}
