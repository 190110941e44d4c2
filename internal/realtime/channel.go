package realtime

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
)

// Subscriber receives every state change the channel produces. It is
// invoked with the channel lock held and must not call back into the
// channel.
type Subscriber func(State)

// Channel is a client for the realtime transcription endpoint. One
// Channel owns at most one connection; there is no auto-reconnect, a
// dropped connection stays disconnected until Connect is called again.
type Channel struct {
	url        string
	token      string
	subscriber Subscriber
	logger     *zap.Logger

	mu    sync.Mutex
	conn  *websocket.Conn
	state State
}

// NewChannel creates a channel for the given websocket URL. The
// ephemeral token is sent as a bearer header on dial. subscriber may be
// nil.
func NewChannel(url, token string, subscriber Subscriber, logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		url:        url,
		token:      token,
		subscriber: subscriber,
		logger:     logger,
		state:      NewState(),
	}
}

// State returns a snapshot of the current channel state
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect dials the endpoint and starts the reader. It is an error to
// call Connect while a connection is already open.
func (c *Channel) Connect() error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return errors.New("already connected")
	}
	c.state = State{Status: StatusConnecting}
	c.notifyLocked()
	c.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := dialer.Dial(c.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.mu.Lock()
		c.state = State{Status: StatusDisconnected, LastError: err.Error()}
		c.notifyLocked()
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.state.Status = StatusConnected
	c.notifyLocked()
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// SendAudio forwards one chunk of PCM audio. A no-op when not connected.
func (c *Channel) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	return c.send(Command{
		Type:  CommandAudioData,
		Audio: base64.StdEncoding.EncodeToString(chunk),
	})
}

// EndAudio tells the server no more audio is coming for this utterance.
// A no-op when not connected.
func (c *Channel) EndAudio() error {
	return c.send(Command{Type: CommandEndAudio})
}

// Reset asks the server to discard the in-flight transcription. A no-op
// when not connected.
func (c *Channel) Reset() error {
	err := c.send(Command{Type: CommandReset})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.state.Transcript = ""
	c.state.Transcribing = false
	c.notifyLocked()
	c.mu.Unlock()
	return nil
}

// Disconnect closes the connection and resets the state. Safe to call
// at any time, in any state, repeatedly.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = NewState()
	c.notifyLocked()
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
		conn.Close()
	}
}

func (c *Channel) send(cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.state.Status != StatusConnected {
		return nil
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			// Ignore reads from a connection Disconnect already replaced.
			if c.conn == conn {
				c.conn = nil
				c.state.Status = StatusDisconnected
				c.state.Transcribing = false
				c.notifyLocked()
			}
			c.mu.Unlock()
			conn.Close()
			return
		}

		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			c.logger.Warn("dropping malformed event", zap.Error(err))
			continue
		}

		c.mu.Lock()
		if c.conn == conn {
			c.state = Reduce(c.state, event)
			c.notifyLocked()
		}
		c.mu.Unlock()
	}
}

// notifyLocked calls the subscriber with the current state. Caller must
// hold mu.
func (c *Channel) notifyLocked() {
	if c.subscriber != nil {
		c.subscriber(c.state)
	}
}
