package wshub

import (
	"context"
	"errors"

	"github.com/coder/websocket"
	"golang.org/x/time/rate"
)

const (
	// MaxMessageBytes bounds a single inbound frame.
	MaxMessageBytes = 16 << 10

	DefaultRate  = 20
	DefaultBurst = 40
)

// Client is one WebSocket connection. Outbound messages are queued on Send
// by the broadcaster and written by WritePump; inbound frames are read by
// ReadPump.
type Client struct {
	ConnID  string
	Conn    *websocket.Conn
	Send    chan []byte
	Limiter *rate.Limiter
}

func NewClient(connID string, conn *websocket.Conn, send chan []byte, perSecond float64, burst int) *Client {
	if perSecond <= 0 {
		perSecond = DefaultRate
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	conn.SetReadLimit(MaxMessageBytes)
	return &Client{
		ConnID:  connID,
		Conn:    conn,
		Send:    send,
		Limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
// It returns when Send is closed, ctx is done or a write fails.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// ReadPump passes every text frame to handle until the connection closes or
// ctx is done. Frames over the rate limit are passed to limited instead and
// otherwise dropped. A normal close returns nil.
func (c *Client) ReadPump(ctx context.Context, handle func([]byte), limited func()) error {
	for {
		typ, data, err := c.Conn.Read(ctx)
		if err != nil {
			if closedNormally(err) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		if !c.Limiter.Allow() {
			if limited != nil {
				limited()
			}
			continue
		}
		handle(data)
	}
}

func closedNormally(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, context.Canceled)
}
