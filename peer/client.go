// Package peer is the endpoint side of the relay connection: one logical
// websocket that survives network trouble by reconnecting with backoff.
package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"parley/wire"
)

// Status is what the application sees of the connection lifecycle.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Client maintains one logical connection to the relay. Callbacks run on
// the client's read goroutine; they should not block for long.
type Client struct {
	URL string

	OnJSON   func(msg wire.Message)
	OnAudio  func(frame wire.AudioFrame)
	OnStatus func(status Status)

	logger *log.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	fsm    *FSM
	closed bool
}

func NewClient(url string, logger *log.Logger) *Client {
	return &Client{
		URL:    url,
		logger: logger,
		fsm:    NewFSM(),
	}
}

// Run connects and keeps the connection alive until Close is called or the
// context ends. Unexpected closes trigger reconnection with exponential
// backoff; Close does not.
func (c *Client) Run(ctx context.Context) error {
	for {
		if c.isClosed() {
			return nil
		}

		c.step(EventDial)
		c.notify(StatusConnecting)

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("connect failed", "url", c.URL, "error", err)
			if !c.waitBackoff(ctx) {
				return ctx.Err()
			}
			continue
		}

		c.setConn(conn)
		c.step(EventOpen)
		c.notify(StatusConnected)
		c.logger.Info("connected", "url", c.URL)

		err = c.readLoop(conn)
		c.setConn(nil)
		c.notify(StatusDisconnected)

		if c.isClosed() || ctx.Err() != nil {
			c.step(EventCloseIntentional)
			return nil
		}

		c.logger.Warn("connection lost", "error", err)
		if !c.waitBackoff(ctx) {
			return ctx.Err()
		}
	}
}

// waitBackoff parks in the Backoff state for the current delay. Returns
// false when the context ended or the client was closed meanwhile.
func (c *Client) waitBackoff(ctx context.Context) bool {
	c.mu.Lock()
	c.fsm.Step(EventCloseUnexpected)
	delay := c.fsm.Delay()
	c.mu.Unlock()

	c.logger.Info("reconnecting", "delay", delay)

	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
	}

	c.mu.Lock()
	c.fsm.Step(EventTimerFired)
	closed := c.closed
	c.mu.Unlock()

	return !closed
}

// readLoop demultiplexes inbound frames into the JSON and audio callbacks
// until the connection drops.
func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		switch msgType {
		case websocket.TextMessage:
			var msg wire.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				c.logger.Error("malformed message from relay", "error", err)
				continue
			}
			if c.OnJSON != nil {
				c.OnJSON(msg)
			}
		case websocket.BinaryMessage:
			frame, err := wire.DecodeAudioFrame(data)
			if err != nil {
				c.logger.Error("malformed audio frame from relay", "error", err)
				continue
			}
			if c.OnAudio != nil {
				c.OnAudio(frame)
			}
		}
	}
}

// SendJSON sends a control message on the current connection.
func (c *Client) SendJSON(msg wire.Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}
	return conn.WriteJSON(msg)
}

// SendAudio sends one mic frame for the given speaker.
func (c *Client) SendAudio(speakerID string, pcm []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	frame, err := wire.EncodeAudioFrame(wire.KindMic, speakerID, pcm)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, frame)
}

// Close disconnects for good. Run returns without reconnecting.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.fsm.Step(EventCloseIntentional)
	c.mu.Unlock()

	if conn != nil {
		conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return conn.Close()
	}
	return nil
}

// State exposes the FSM state, mainly for tests and status displays.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fsm.State()
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) step(ev Event) {
	c.mu.Lock()
	c.fsm.Step(ev)
	c.mu.Unlock()
}

func (c *Client) notify(status Status) {
	if c.OnStatus != nil {
		c.OnStatus(status)
	}
}
