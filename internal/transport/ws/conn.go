// Package ws is the client side of the websocket event channel.
package ws

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatty/internal/proto"
)

// readLimit bounds one inbound event. A delivery carries a request's text and the
// sender's nickname, each of which the server caps at proto.MaxFrameSize.
const readLimit = 4 * proto.MaxFrameSize

// Conn carries JSON envelopes over a single websocket connection.
type Conn struct {
	conn *websocket.Conn
	log  *zerolog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Dial connects to url. The context bounds the handshake only.
func Dial(ctx context.Context, url string, logger *zerolog.Logger) (*Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(readLimit)
	logger.Debug().Str("url", url).Msg("websocket connected")
	return &Conn{conn: conn, log: logger}, nil
}

// Write sends one envelope.
func (c *Conn) Write(ctx context.Context, env proto.Envelope) error {
	if err := wsjson.Write(ctx, c.conn, env); err != nil {
		return fmt.Errorf("write %s: %w", env.Event, err)
	}
	return nil
}

// Read blocks for the next envelope.
func (c *Conn) Read(ctx context.Context) (proto.Envelope, error) {
	var env proto.Envelope
	if err := wsjson.Read(ctx, c.conn, &env); err != nil {
		return proto.Envelope{}, err
	}
	return env, nil
}

// Close performs the close handshake once. Later calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		err := c.conn.Close(websocket.StatusNormalClosure, "bye")
		if err != nil && !isClosed(err) {
			c.closeErr = err
			c.log.Debug().Err(err).Msg("websocket close")
		}
	})
	return c.closeErr
}

// IsNormalClosure reports whether err is a peer or local shutdown rather than a failure.
func IsNormalClosure(err error) bool {
	return isClosed(err)
}

func isClosed(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}
