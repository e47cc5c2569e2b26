// Package clienttest provides an in-memory Transport for tests.
package clienttest

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/chatty/internal/proto"
)

// Transport records outbound envelopes and replays pushed inbound ones.
type Transport struct {
	mu       sync.Mutex
	sent     []proto.Envelope
	writeErr error
	closes   int

	inbound   chan proto.Envelope
	closed    chan struct{}
	closeOnce sync.Once
}

// New returns an open transport.
func New() *Transport {
	return &Transport{
		inbound: make(chan proto.Envelope, 64),
		closed:  make(chan struct{}),
	}
}

// Write records env unless the transport is closed or a write error is set.
func (t *Transport) Write(_ context.Context, env proto.Envelope) error {
	select {
	case <-t.closed:
		return io.ErrClosedPipe
	default:
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErr != nil {
		return t.writeErr
	}
	t.sent = append(t.sent, env)
	return nil
}

// Read returns the next pushed envelope, io.EOF after Close, or the context error.
func (t *Transport) Read(ctx context.Context) (proto.Envelope, error) {
	select {
	case env := <-t.inbound:
		return env, nil
	case <-t.closed:
		return proto.Envelope{}, io.EOF
	case <-ctx.Done():
		return proto.Envelope{}, ctx.Err()
	}
}

// Close counts calls and closes the channel the first time.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closes++
	t.mu.Unlock()
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

// Push queues an inbound event.
func (t *Transport) Push(tb testing.TB, event string, resp proto.Response) {
	tb.Helper()
	env, err := proto.NewEnvelope(event, resp)
	if err != nil {
		tb.Fatalf("push %s: %v", event, err)
	}
	t.inbound <- env
}

// PushRaw queues an inbound envelope with raw JSON data.
func (t *Transport) PushRaw(event, data string) {
	t.inbound <- proto.Envelope{Event: event, Data: json.RawMessage(data)}
}

// SetWriteErr makes subsequent writes fail with err (nil restores success).
func (t *Transport) SetWriteErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

// Sent returns a copy of the recorded outbound envelopes.
func (t *Transport) Sent() []proto.Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]proto.Envelope, len(t.sent))
	copy(out, t.sent)
	return out
}

// SentEvents returns the names of the recorded outbound envelopes.
func (t *Transport) SentEvents() []string {
	sent := t.Sent()
	names := make([]string, 0, len(sent))
	for _, env := range sent {
		names = append(names, env.Event)
	}
	return names
}

// Closes returns how many times Close was called.
func (t *Transport) Closes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closes
}

// WaitSent polls until an envelope named event has been written and returns the first one.
func (t *Transport) WaitSent(tb testing.TB, event string) proto.Envelope {
	tb.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, env := range t.Sent() {
			if env.Event == event {
				return env
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	tb.Fatalf("expected outbound event %q not sent; sent %v", event, t.SentEvents())
	return proto.Envelope{}
}

// Fields decodes an outbound envelope into a flat string map.
func Fields(tb testing.TB, env proto.Envelope) map[string]string {
	tb.Helper()
	var fields map[string]string
	if err := json.Unmarshal(env.Data, &fields); err != nil {
		tb.Fatalf("decode %s fields: %v", env.Event, err)
	}
	return fields
}
