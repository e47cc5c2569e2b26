package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/crypto/bcrypt"

	"github.com/vovakirdan/chatty/internal/auth"
	"github.com/vovakirdan/chatty/internal/config"
	"github.com/vovakirdan/chatty/internal/core"
	chatlog "github.com/vovakirdan/chatty/internal/log"
	"github.com/vovakirdan/chatty/internal/proto"
	"github.com/vovakirdan/chatty/internal/transport/ws"
)

func startTestServer(t *testing.T, rateLimit int) (*httptest.Server, *core.Hub) {
	t.Helper()

	logger := chatlog.Nop()
	hub := core.NewHub(core.Options{Hasher: auth.NewHasher(bcrypt.MinCost)}, logger)

	cfg := config.DefaultServer()
	cfg.RateLimit = rateLimit
	server := NewServer(hub, cfg, logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts, hub
}

func dialTest(t *testing.T, ctx context.Context, ts *httptest.Server) *ws.Conn {
	t.Helper()
	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, err := ws.Dial(ctx, wsURL, chatlog.Nop())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func write(t *testing.T, ctx context.Context, conn *ws.Conn, event string, req proto.Stamper, uid string) {
	t.Helper()
	req.Stamp(uid)
	env, err := proto.NewEnvelope(event, req)
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if err := conn.Write(ctx, env); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

func read(t *testing.T, ctx context.Context, conn *ws.Conn, event string) proto.Response {
	t.Helper()
	env, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read %s: %v", event, err)
	}
	if env.Event != event {
		t.Fatalf("expected %s, got %s", event, env.Event)
	}
	var resp proto.Response
	if err := env.Decode(&resp); err != nil {
		t.Fatalf("decode %s: %v", event, err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := startTestServer(t, 0)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketRoomConversation(t *testing.T) {
	ts, hub := startTestServer(t, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := dialTest(t, ctx, ts)
	bob := dialTest(t, ctx, ts)

	write(t, ctx, alice, proto.EventRegister, &proto.RegisterRequest{Nickname: "alice"}, "a")
	read(t, ctx, alice, proto.EventRegister)
	write(t, ctx, bob, proto.EventRegister, &proto.RegisterRequest{Nickname: "bob"}, "b")
	read(t, ctx, bob, proto.EventRegister)

	write(t, ctx, alice, proto.EventNewRoom, &proto.NewRoomRequest{Password: "pw"}, "a")
	room := read(t, ctx, alice, proto.EventNewRoom).Room
	if room == "" {
		t.Fatal("new_room carried no room id")
	}
	if joined := read(t, ctx, alice, proto.EventJoinRoom).Room; joined != room {
		t.Fatalf("join_room room = %q, want %q", joined, room)
	}

	write(t, ctx, bob, proto.EventJoinRoom, &proto.JoinRoomRequest{Room: room, Password: "pw"}, "b")
	if resp := read(t, ctx, bob, proto.EventJoinRoom); !resp.OK() {
		t.Fatalf("join failed: %+v", resp)
	}

	write(t, ctx, alice, proto.EventMessage, &proto.MessageRequest{Message: "hi there"}, "a")
	if ack := read(t, ctx, alice, proto.EventMessage); !ack.OK() || ack.Received != nil {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	got := read(t, ctx, bob, proto.EventMessage)
	if got.From != "alice" || got.Received == nil || *got.Received != "hi there" {
		t.Fatalf("unexpected delivery: %+v", got)
	}

	write(t, ctx, bob, proto.EventStatus, &proto.StatusRequest{}, "b")
	status := read(t, ctx, bob, proto.EventStatus)
	if status.Detail == nil || status.Detail.Nickname != "bob" || status.Detail.Joined != room {
		t.Fatalf("unexpected status: %+v", status.Detail)
	}

	if err := bob.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if n, _ := hub.RoomSize(room); n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("closed connection was not dropped from the room")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	ts, _ := startTestServer(t, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTest(t, ctx, ts)
	write(t, ctx, conn, proto.EventRegister, &proto.RegisterRequest{}, "a")
	read(t, ctx, conn, proto.EventRegister)
	write(t, ctx, conn, proto.EventStatus, &proto.StatusRequest{}, "a")
	read(t, ctx, conn, proto.EventStatus)

	write(t, ctx, conn, proto.EventStatus, &proto.StatusRequest{}, "a")
	resp := read(t, ctx, conn, proto.EventStatus)
	if resp.OK() || resp.Message != msgRateLimited {
		t.Fatalf("expected rate limit failure, got %+v", resp)
	}
}

func TestConnSinkDoesNotBlock(t *testing.T) {
	sink := newConnSink("c1", chatlog.Nop())
	for i := 0; i < outboxSize+10; i++ {
		sink.Send(proto.EventMessage, proto.Success())
	}
	if len(sink.out) != outboxSize {
		t.Fatalf("outbox len = %d, want %d", len(sink.out), outboxSize)
	}

	sink.close()
	sink.close()
	sink.Send(proto.EventMessage, proto.Success())
}

func TestWebSocketOversizedFrameIsRejected(t *testing.T) {
	ts, hub := startTestServer(t, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn := dialTest(t, ctx, ts)
	write(t, ctx, conn, proto.EventRegister, &proto.RegisterRequest{}, "a")
	read(t, ctx, conn, proto.EventRegister)

	big := strings.Repeat("z", proto.MaxFrameSize+1)
	write(t, ctx, conn, proto.EventMessage, &proto.MessageRequest{Message: big}, "a")
	resp := read(t, ctx, conn, proto.EventMessage)
	if resp.OK() || resp.Message != msgTooLarge {
		t.Fatalf("expected size rejection, got %+v", resp)
	}

	write(t, ctx, conn, proto.EventStatus, &proto.StatusRequest{}, "a")
	if resp := read(t, ctx, conn, proto.EventStatus); !resp.OK() {
		t.Fatalf("connection unusable after rejection: %+v", resp)
	}
	// 64 KiB is above the websocket library's default read limit.
	write(t, ctx, conn, proto.EventMessage, &proto.MessageRequest{Message: strings.Repeat("y", 64*1024)}, "a")
	if resp := read(t, ctx, conn, proto.EventMessage); resp.Message != core.MsgNotInRoom {
		t.Fatalf("64 KiB message not processed: %+v", resp)
	}
	if _, ok := hub.Member("a"); !ok {
		t.Fatal("session dropped by a large frame")
	}
}

func TestWebSocketMalformedFrameKeepsConnection(t *testing.T) {
	ts, _ := startTestServer(t, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	raw, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer raw.Close(websocket.StatusNormalClosure, "done")

	if err := raw.Write(ctx, websocket.MessageText, []byte(`{"event":"status","data":`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var env proto.Envelope
	if err := wsjson.Read(ctx, raw, &env); err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp proto.Response
	if err := env.Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Event != proto.EventStatus || resp.Message != core.MsgMalformed {
		t.Fatalf("unexpected reply: %s %+v", env.Event, resp)
	}

	if err := wsjson.Write(ctx, raw, proto.Envelope{Event: proto.EventStatus, Data: []byte(`{}`)}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := wsjson.Read(ctx, raw, &env); err != nil {
		t.Fatalf("connection closed after malformed frame: %v", err)
	}
}

func TestUnknownRouteIsServedByRouter(t *testing.T) {
	ts, _ := startTestServer(t, 0)

	resp, err := ts.Client().Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestPeekEvent(t *testing.T) {
	cases := []struct {
		data string
		want string
	}{
		{`{"event":"nickname","data":{"nickname":"aaaa`, proto.EventNickname},
		{`{"data":{"x":1},"event":"status"}`, proto.EventStatus},
		{`{"data":{"message":"trunc`, proto.EventMessage},
		{`{"event":`, proto.EventMessage},
		{`not json`, proto.EventMessage},
		{``, proto.EventMessage},
	}
	for _, c := range cases {
		if got := peekEvent([]byte(c.data)); got != c.want {
			t.Fatalf("peekEvent(%q) = %q, want %q", c.data, got, c.want)
		}
	}
}
