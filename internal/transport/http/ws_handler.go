package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/chatty/internal/core"
	"github.com/vovakirdan/chatty/internal/proto"
	"github.com/vovakirdan/chatty/internal/utils"
)

const (
	outboxSize     = 64
	msgRateLimited = "Too many requests, slow down"
	msgTooLarge    = "Request too large"

	// drainLimit is the largest frame that is skipped and answered. Bigger frames close the connection.
	drainLimit = 16 * proto.MaxFrameSize
)

var errFrameTooLarge = errors.New("frame too large")

// WSHandler upgrades HTTP connections and bridges them to the hub.
type WSHandler struct {
	hub       *core.Hub
	rateLimit int
	log       *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, rateLimit int, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, rateLimit: rateLimit, log: logger}
}

// connSink queues hub events for one connection. Send never blocks the hub.
type connSink struct {
	id  string
	out chan proto.Envelope
	log *zerolog.Logger

	doneOnce sync.Once
	done     chan struct{}
}

func newConnSink(id string, logger *zerolog.Logger) *connSink {
	return &connSink{
		id:   id,
		out:  make(chan proto.Envelope, outboxSize),
		log:  logger,
		done: make(chan struct{}),
	}
}

func (s *connSink) Send(event string, resp proto.Response) {
	env, err := proto.NewEnvelope(event, resp)
	if err != nil {
		s.log.Error().Err(err).Str("conn_id", s.id).Str("event", event).Msg("encode outbound")
		return
	}
	select {
	case <-s.done:
	case s.out <- env:
	default:
		s.log.Warn().Str("conn_id", s.id).Str("event", event).Msg("outbox full, dropping event")
	}
}

func (s *connSink) close() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	conn.SetReadLimit(drainLimit)

	sink := newConnSink(utils.NewID(), h.log)
	defer h.hub.Disconnect(sink)
	defer sink.close()
	h.log.Debug().Str("conn_id", sink.id).Str("remote", r.RemoteAddr).Msg("ws connected")

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error { return h.readLoop(ctx, conn, sink) })
	g.Go(func() error { return h.writeLoop(ctx, conn, sink) })
	err = g.Wait()

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", sink.id).Msg("ws connection closed with error")
		}
	}
	h.log.Debug().Str("conn_id", sink.id).Msg("ws disconnected")

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sink *connSink) error {
	limiter := newRateLimiter(h.rateLimit)
	for {
		data, err := readFrame(ctx, conn, proto.MaxFrameSize)
		if errors.Is(err, errFrameTooLarge) {
			h.log.Warn().Str("conn_id", sink.id).Int("limit", proto.MaxFrameSize).Msg("reject oversized frame")
			sink.Send(peekEvent(data), proto.Failure(msgTooLarge))
			continue
		}
		if err != nil {
			return err
		}

		var env proto.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.log.Warn().Err(err).Str("conn_id", sink.id).Msg("decode ws inbound")
			sink.Send(peekEvent(data), proto.Failure(core.MsgMalformed))
			continue
		}
		if !limiter.allow() {
			sink.Send(env.Event, proto.Failure(msgRateLimited))
			continue
		}
		h.hub.Handle(sink, env)
	}
}

// readFrame reads one message of at most limit bytes. A longer message is drained from the
// connection and reported as errFrameTooLarge together with its first limit bytes.
func readFrame(ctx context.Context, conn *websocket.Conn, limit int) ([]byte, error) {
	_, r, err := conn.Reader(ctx)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	if len(data) <= limit {
		return data, nil
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, err
	}
	return data[:limit], errFrameTooLarge
}

// peekEvent recovers the event name from a possibly truncated envelope so a rejection
// reaches the right handler. It falls back to message, the only event with unbounded text.
func peekEvent(data []byte) string {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return proto.EventMessage
	}
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			break
		}
		if key == "event" {
			if name, err := dec.Token(); err == nil {
				if s, ok := name.(string); ok && s != "" {
					return s
				}
			}
			break
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			break
		}
	}
	return proto.EventMessage
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sink *connSink) error {
	for {
		select {
		case env := <-sink.out:
			if err := wsjson.Write(ctx, conn, env); err != nil {
				h.log.Error().Err(err).Str("conn_id", sink.id).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
