package core

import (
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/vovakirdan/chatty/internal/auth"
	chatlog "github.com/vovakirdan/chatty/internal/log"
	"github.com/vovakirdan/chatty/internal/proto"
)

type sent struct {
	event string
	resp  proto.Response
}

// recorder is a Sink that keeps everything it was sent.
type recorder struct {
	mu     sync.Mutex
	events []sent
}

func (r *recorder) Send(event string, resp proto.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{event: event, resp: resp})
}

// take returns and clears the recorded events.
func (r *recorder) take() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

// last returns the single event recorded since the previous take.
func (r *recorder) last(t *testing.T) sent {
	t.Helper()
	got := r.take()
	if len(got) != 1 {
		t.Fatalf("expected one event, got %+v", got)
	}
	return got[0]
}

func newTestHub(t *testing.T, ids ...string) *Hub {
	t.Helper()
	opts := Options{Hasher: auth.NewHasher(bcrypt.MinCost)}
	if len(ids) > 0 {
		var mu sync.Mutex
		next := 0
		opts.NewRoomID = func(int) string {
			mu.Lock()
			defer mu.Unlock()
			id := ids[next%len(ids)]
			next++
			return id
		}
	}
	return NewHub(opts, chatlog.Nop())
}

func send(t *testing.T, h *Hub, sink Sink, event string, req proto.Stamper, uid string) {
	t.Helper()
	req.Stamp(uid)
	env, err := proto.NewEnvelope(event, req)
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	h.Handle(sink, env)
}

func mustFail(t *testing.T, got sent, event, msg string) {
	t.Helper()
	if got.event != event || got.resp.OK() || got.resp.Message != msg {
		t.Fatalf("expected %s failure %q, got %+v", event, msg, got)
	}
}

func mustSucceed(t *testing.T, got sent, event string) proto.Response {
	t.Helper()
	if got.event != event || !got.resp.OK() {
		t.Fatalf("expected %s success, got %+v", event, got)
	}
	return got.resp
}
