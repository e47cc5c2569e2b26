package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatty/internal/auth"
	"github.com/vovakirdan/chatty/internal/config"
	"github.com/vovakirdan/chatty/internal/core"
	transporthttp "github.com/vovakirdan/chatty/internal/transport/http"
)

// Server wires the room hub to the HTTP transport.
type Server struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	log             *zerolog.Logger
}

// NewServer constructs the companion room server.
func NewServer(cfg config.Server, logger *zerolog.Logger) *Server {
	hub := core.NewHub(core.Options{
		RoomIDLength: cfg.RoomIDLength,
		Hasher:       auth.NewHasher(cfg.BcryptCost),
	}, logger)

	return &Server{
		server:          transporthttp.NewServer(hub, cfg, logger),
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		log:             logger,
	}
}

// Hub exposes the room registry.
func (s *Server) Hub() *core.Hub {
	return s.hub
}

// Run listens on the configured address and serves until ctx is cancelled or a fatal error.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled. Open websocket sessions are cancelled with ctx.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	connCtx, cancelConns := context.WithCancel(context.Background())
	defer cancelConns()
	s.server.BaseContext = func(net.Listener) context.Context { return connCtx }

	serverErr := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		s.log.Info().Msg("shutting down http server")
		// Hijacked websocket connections are not tracked by Shutdown.
		cancelConns()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
