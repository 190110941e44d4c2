package realtime

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// testServer upgrades one connection, records received commands, and
// plays back the scripted events.
type testServer struct {
	*httptest.Server

	mu       sync.Mutex
	authz    string
	commands []Command
}

func newTestServer(t *testing.T, script []Event) *testServer {
	t.Helper()
	ts := &testServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		ts.authz = r.Header.Get("Authorization")
		ts.mu.Unlock()

		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		for _, event := range script {
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}

		for {
			var cmd Command
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			ts.mu.Lock()
			ts.commands = append(ts.commands, cmd)
			ts.mu.Unlock()
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func (ts *testServer) receivedCommands() []Command {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	out := make([]Command, len(ts.commands))
	copy(out, ts.commands)
	return out
}

// stateRecorder collects every state the channel publishes.
type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) record(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) waitFor(t *testing.T, pred func(State) bool) State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		for _, s := range r.states {
			if pred(s) {
				r.mu.Unlock()
				return s
			}
		}
		r.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for state")
	return State{}
}

func TestChannelAppliesServerEvents(t *testing.T) {
	server := newTestServer(t, []Event{
		{Type: EventConnectionEstablished},
		{Type: EventSessionReady},
		{Type: EventSpeechStarted},
		{Type: EventTranscriptionDelta, Delta: "ho"},
		{Type: EventTranscriptionDelta, Delta: "hola"},
		{Type: EventTranscriptionComplete, Text: "hola"},
	})

	recorder := &stateRecorder{}
	channel := NewChannel(server.wsURL(), "test-token", recorder.record, zaptest.NewLogger(t))
	if err := channel.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer channel.Disconnect()

	recorder.waitFor(t, func(s State) bool { return s.Transcribing })

	final := recorder.waitFor(t, func(s State) bool {
		return s.Transcript == "hola" && !s.Transcribing
	})
	if final.Status != StatusConnected {
		t.Errorf("Status = %q, want connected", final.Status)
	}

	server.mu.Lock()
	authz := server.authz
	server.mu.Unlock()
	if authz != "Bearer test-token" {
		t.Errorf("Authorization = %q, want bearer token", authz)
	}
}

func TestChannelSendsCommands(t *testing.T) {
	server := newTestServer(t, []Event{{Type: EventConnectionEstablished}})

	channel := NewChannel(server.wsURL(), "", nil, zaptest.NewLogger(t))
	if err := channel.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer channel.Disconnect()

	audio := []byte{0x01, 0x02, 0x03}
	if err := channel.SendAudio(audio); err != nil {
		t.Fatalf("SendAudio() error = %v", err)
	}
	if err := channel.EndAudio(); err != nil {
		t.Fatalf("EndAudio() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var cmds []Command
	for time.Now().Before(deadline) {
		cmds = server.receivedCommands()
		if len(cmds) >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if len(cmds) < 2 {
		t.Fatalf("server received %d commands, want 2", len(cmds))
	}
	if cmds[0].Type != CommandAudioData {
		t.Errorf("first command = %q, want audio_data", cmds[0].Type)
	}
	decoded, err := base64.StdEncoding.DecodeString(cmds[0].Audio)
	if err != nil || string(decoded) != string(audio) {
		t.Errorf("audio payload mismatch: %q, %v", cmds[0].Audio, err)
	}
	if cmds[1].Type != CommandEndAudio {
		t.Errorf("second command = %q, want end_audio", cmds[1].Type)
	}
}

func TestChannelCommandsAreNoOpsWhenDisconnected(t *testing.T) {
	channel := NewChannel("ws://127.0.0.1:1/ws", "", nil, zaptest.NewLogger(t))

	if err := channel.SendAudio([]byte{0x01}); err != nil {
		t.Errorf("SendAudio() while disconnected = %v, want nil", err)
	}
	if err := channel.EndAudio(); err != nil {
		t.Errorf("EndAudio() while disconnected = %v, want nil", err)
	}
	if err := channel.Reset(); err != nil {
		t.Errorf("Reset() while disconnected = %v, want nil", err)
	}
}

func TestChannelDisconnectIdempotent(t *testing.T) {
	server := newTestServer(t, []Event{{Type: EventConnectionEstablished}})

	channel := NewChannel(server.wsURL(), "", nil, zaptest.NewLogger(t))
	if err := channel.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	channel.Disconnect()
	channel.Disconnect()
	channel.Disconnect()

	state := channel.State()
	if state.Status != StatusDisconnected {
		t.Errorf("Status = %q, want disconnected", state.Status)
	}
	if state.Transcribing {
		t.Error("Disconnect must clear transcribing")
	}
}

func TestChannelConnectFailure(t *testing.T) {
	channel := NewChannel("ws://127.0.0.1:1/ws", "", nil, zaptest.NewLogger(t))
	if err := channel.Connect(); err == nil {
		t.Fatal("expected dial failure")
	}
	if got := channel.State().Status; got != StatusDisconnected {
		t.Errorf("Status = %q, want disconnected after failed dial", got)
	}
}

func TestChannelRejectsDoubleConnect(t *testing.T) {
	server := newTestServer(t, []Event{{Type: EventConnectionEstablished}})

	channel := NewChannel(server.wsURL(), "", nil, zaptest.NewLogger(t))
	if err := channel.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer channel.Disconnect()

	if err := channel.Connect(); err == nil {
		t.Error("second Connect must fail while connected")
	}
}

func TestChannelServerClose(t *testing.T) {
	script := []Event{{Type: EventConnectionEstablished}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for _, event := range script {
			payload, _ := json.Marshal(event)
			conn.WriteMessage(websocket.TextMessage, payload)
		}
		conn.Close()
	}))
	defer server.Close()

	recorder := &stateRecorder{}
	channel := NewChannel("ws"+strings.TrimPrefix(server.URL, "http"), "", recorder.record, zaptest.NewLogger(t))
	if err := channel.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	recorder.waitFor(t, func(s State) bool { return s.Status == StatusDisconnected })
}
