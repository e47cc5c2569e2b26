// Package client is the protocol client: it stamps and sends outbound events and
// dispatches inbound events to one handler per event name.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatty/internal/command"
	"github.com/vovakirdan/chatty/internal/proto"
)

var (
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("client closed")
	// ErrNoEvent is returned by Execute for commands handled locally.
	ErrNoEvent = errors.New("command has no protocol event")
)

// Transport is the bidirectional event channel.
type Transport interface {
	Write(ctx context.Context, env proto.Envelope) error
	Read(ctx context.Context) (proto.Envelope, error)
	Close() error
}

// HandlerFunc handles one inbound event.
type HandlerFunc func(event string, resp proto.Response)

// Client is safe for concurrent use.
type Client struct {
	uid string
	tr  Transport
	log *zerolog.Logger

	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New builds a client that stamps every outbound payload with uid.
func New(uid string, tr Transport, logger *zerolog.Logger) *Client {
	return &Client{
		uid:      uid,
		tr:       tr,
		log:      logger,
		handlers: make(map[string]HandlerFunc),
	}
}

// UID returns the session identifier stamped on outbound events.
func (c *Client) UID() string {
	return c.uid
}

// On registers the handler for event. A later registration for the same name replaces it.
func (c *Client) On(event string, h HandlerFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = h
}

func (c *Client) handler(event string) HandlerFunc {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handlers[event]
}

// Send stamps payload with the session uid and writes it as event. There is no retry.
func (c *Client) Send(ctx context.Context, event string, payload proto.Stamper) error {
	if c.closed.Load() {
		return fmt.Errorf("send %s: %w", event, ErrClosed)
	}
	payload.Stamp(c.uid)

	env, err := proto.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	if err := c.tr.Write(ctx, env); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	c.log.Debug().Str("event", event).Msg("sent")
	return nil
}

// Request maps a command to its outbound event name and payload.
func Request(cmd command.Command) (string, proto.Stamper, error) {
	switch cmd.Kind {
	case command.KindCreateRoom:
		return proto.EventNewRoom, &proto.NewRoomRequest{Password: cmd.Password}, nil
	case command.KindJoinRoom:
		return proto.EventJoinRoom, &proto.JoinRoomRequest{Room: cmd.Room, Password: cmd.Password}, nil
	case command.KindLeaveRoom:
		return proto.EventLeaveRoom, &proto.LeaveRoomRequest{}, nil
	case command.KindSetNickname:
		return proto.EventNickname, &proto.NicknameRequest{Nickname: cmd.Nickname}, nil
	case command.KindQueryStatus:
		return proto.EventStatus, &proto.StatusRequest{}, nil
	case command.KindMessage, command.KindUnknown:
		return proto.EventMessage, &proto.MessageRequest{Message: cmd.Text}, nil
	}
	return "", nil, fmt.Errorf("%w: %s", ErrNoEvent, cmd.Kind)
}

// Execute encodes cmd as its outbound event and sends it.
func (c *Client) Execute(ctx context.Context, cmd command.Command) error {
	event, payload, err := Request(cmd)
	if err != nil {
		return err
	}
	return c.Send(ctx, event, payload)
}

// Run reads inbound events and dispatches them until the transport closes or ctx ends.
// Handlers run on the calling goroutine, one at a time, in arrival order.
// A shutdown initiated by Close or ctx returns nil.
func (c *Client) Run(ctx context.Context) error {
	for {
		env, err := c.tr.Read(ctx)
		if err != nil {
			if c.closed.Load() || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env proto.Envelope) {
	h := c.handler(env.Event)
	if h == nil {
		c.log.Debug().Str("event", env.Event).Msg("no handler for event")
		return
	}

	var resp proto.Response
	if err := env.Decode(&resp); err != nil {
		c.log.Warn().Err(err).Str("event", env.Event).Msg("drop undecodable event")
		return
	}
	h(env.Event, resp)
}

// Close closes the transport once. It is safe to call from several goroutines.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.tr.Close()
	})
	return c.closeErr
}
