package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voicebank/server/domain/repositories"
	"github.com/voicebank/server/internal/realtime"
)

// Client is a middleman between one websocket connection and the
// transcription provider.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Guest session this connection transcribes for
	sessionID string

	logger *zap.Logger

	mutex    sync.Mutex
	stream   repositories.SpeechToTextStreaming
	lastSeen time.Time
}

// readPump pumps messages from the websocket connection to the provider.
func (c *Client) readPump() {
	defer func() {
		c.closeStream()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		c.touch()

		switch messageType {
		case websocket.TextMessage:
			c.processCommand(message)
		case websocket.BinaryMessage:
			// Raw PCM without the base64 envelope.
			c.streamAudio(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps outbound frames to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processCommand dispatches one client command
func (c *Client) processCommand(message []byte) {
	var cmd realtime.Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.logger.Error("Failed to parse command", zap.Error(err))
		c.sendEvent(eventError("malformed command"))
		return
	}

	switch cmd.Type {
	case realtime.CommandAudioData:
		audio, err := base64.StdEncoding.DecodeString(cmd.Audio)
		if err != nil {
			c.logger.Error("Failed to decode audio payload", zap.Error(err))
			c.sendEvent(eventError("invalid audio encoding"))
			return
		}
		c.streamAudio(audio)
	case realtime.CommandEndAudio:
		c.handleEndAudio()
	case realtime.CommandReset:
		c.handleReset()
	default:
		c.logger.Warn("Unknown command type", zap.String("type", string(cmd.Type)))
	}
}

// startStream opens a provider session and announces readiness. Called
// once on connect and again after reset.
func (c *Client) startStream() {
	// The timeout bounds provider dialing only. Providers detach the
	// live session from this context; its lifetime ends at closeStream.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.stream != nil {
		return
	}

	stream, err := c.hub.stt.InitStreaming(ctx, c.hub.audioConfig)
	if err != nil {
		c.logger.Error("Failed to initialize streaming transcription",
			zap.String("sessionID", c.sessionID),
			zap.Error(err))
		c.sendEvent(eventError("failed to initialize transcription"))
		return
	}
	c.stream = stream

	go c.relayEvents(stream)

	c.logger.Info("Transcription session started",
		zap.String("sessionID", c.sessionID))

	c.sendEvent(eventSessionReady())
}

// streamAudio forwards one audio chunk to the provider session
func (c *Client) streamAudio(data []byte) {
	c.mutex.Lock()
	stream := c.stream
	c.mutex.Unlock()

	if stream == nil {
		c.logger.Warn("Received audio but no active transcription session",
			zap.String("sessionID", c.sessionID))
		return
	}

	if err := stream.Stream(data); err != nil {
		c.logger.Error("Failed to stream audio data",
			zap.String("sessionID", c.sessionID),
			zap.Error(err))
		c.sendEvent(eventError("failed to stream audio"))
	}
}

func (c *Client) handleEndAudio() {
	c.mutex.Lock()
	stream := c.stream
	c.mutex.Unlock()

	if stream == nil {
		return
	}
	if err := stream.End(); err != nil {
		c.logger.Error("Failed to end transcription stream",
			zap.String("sessionID", c.sessionID),
			zap.Error(err))
		c.sendEvent(eventError("failed to end transcription"))
	}
}

// handleReset tears the provider session down and opens a fresh one,
// discarding any in-flight transcription.
func (c *Client) handleReset() {
	c.closeStream()
	c.startStream()
}

func (c *Client) closeStream() {
	c.mutex.Lock()
	stream := c.stream
	c.stream = nil
	c.mutex.Unlock()

	if stream != nil {
		if err := stream.Close(); err != nil {
			c.logger.Warn("Failed to close transcription stream", zap.Error(err))
		}
	}
}

// relayEvents consumes provider events for one stream and forwards them
// as wire events. Exits when the provider closes the stream.
func (c *Client) relayEvents(stream repositories.SpeechToTextStreaming) {
	for event := range stream.Events() {
		switch event.Kind {
		case repositories.StreamEventSpeechStarted:
			c.sendEvent(realtime.Event{Type: realtime.EventSpeechStarted})
		case repositories.StreamEventDelta:
			c.sendEvent(realtime.Event{Type: realtime.EventTranscriptionDelta, Delta: event.Text})
		case repositories.StreamEventFinal:
			c.sendEvent(realtime.Event{Type: realtime.EventTranscriptionComplete, Text: event.Text})
			c.sendEvent(realtime.Event{Type: realtime.EventResponseComplete})
		case repositories.StreamEventError:
			c.logger.Error("Provider stream error",
				zap.String("sessionID", c.sessionID),
				zap.String("error", event.Err))
			c.sendEvent(eventError("transcription provider error"))
		case repositories.StreamEventClosed:
			c.sendEvent(realtime.Event{Type: realtime.EventConnectionClosed})
			return
		}
	}
}

// sendEvent queues one typed event without ever blocking the caller.
// A full send buffer drops the event.
func (c *Client) sendEvent(event realtime.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		c.logger.Error("Failed to marshal event", zap.Error(err))
		return
	}

	defer func() {
		// Sending on a closed channel after unregister.
		if r := recover(); r != nil {
			c.logger.Debug("Dropped event for closed client",
				zap.String("sessionID", c.sessionID))
		}
	}()

	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Send buffer full, dropping event",
			zap.String("sessionID", c.sessionID),
			zap.String("type", string(event.Type)))
	}
}

func (c *Client) touch() {
	c.mutex.Lock()
	c.lastSeen = time.Now()
	c.mutex.Unlock()
}

func (c *Client) idleSince() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.lastSeen
}

func eventConnectionEstablished() realtime.Event {
	return realtime.Event{Type: realtime.EventConnectionEstablished}
}

func eventSessionReady() realtime.Event {
	return realtime.Event{Type: realtime.EventSessionReady}
}

func eventError(message string) realtime.Event {
	return realtime.Event{Type: realtime.EventError, Error: message}
}
