package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	chatlog "github.com/vovakirdan/chatty/internal/log"
	"github.com/vovakirdan/chatty/internal/proto"
	"github.com/vovakirdan/chatty/internal/transport/ws"
	"github.com/vovakirdan/chatty/internal/utils"
)

// step is one request of the smoke run and the events it must produce.
type step struct {
	event  string
	req    proto.Stamper
	expect []string
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:5000/ws", "WebSocket address")
	nick := flag.String("nick", "tester", "nickname to register with")
	password := flag.String("password", "smoke", "password for the throwaway room")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := ws.Dial(ctx, *addr, chatlog.Nop())
	if err != nil {
		return err
	}
	defer conn.Close()

	uid := utils.NewID()
	steps := []step{
		{proto.EventRegister, &proto.RegisterRequest{Nickname: *nick}, []string{proto.EventRegister}},
		{proto.EventNewRoom, &proto.NewRoomRequest{Password: *password}, []string{proto.EventNewRoom, proto.EventJoinRoom}},
		{proto.EventMessage, &proto.MessageRequest{Message: *text}, []string{proto.EventMessage}},
		{proto.EventStatus, &proto.StatusRequest{}, []string{proto.EventStatus}},
		{proto.EventLeaveRoom, &proto.LeaveRoomRequest{}, []string{proto.EventLeaveRoom}},
		{proto.EventUnregister, &proto.UnregisterRequest{}, []string{proto.EventUnregister}},
	}

	for _, s := range steps {
		s.req.Stamp(uid)
		env, err := proto.NewEnvelope(s.event, s.req)
		if err != nil {
			return fmt.Errorf("encode %s: %w", s.event, err)
		}
		if err := conn.Write(ctx, env); err != nil {
			return err
		}

		for _, want := range s.expect {
			got, err := conn.Read(ctx)
			if err != nil {
				return fmt.Errorf("read %s: %w", want, err)
			}
			var resp proto.Response
			if err := got.Decode(&resp); err != nil {
				return fmt.Errorf("decode %s: %w", got.Event, err)
			}
			fmt.Printf("Received event=%s status=%d data=%s\n", got.Event, resp.Status, got.Data)
			if got.Event != want {
				return fmt.Errorf("expected %s, got %s", want, got.Event)
			}
			if !resp.OK() {
				return fmt.Errorf("%s failed: %s", got.Event, resp.Message)
			}
		}
	}

	fmt.Println("smoke test passed")
	return nil
}
