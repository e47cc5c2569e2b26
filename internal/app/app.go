package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatty/internal/client"
	"github.com/vovakirdan/chatty/internal/command"
	"github.com/vovakirdan/chatty/internal/config"
	"github.com/vovakirdan/chatty/internal/proto"
	"github.com/vovakirdan/chatty/internal/render"
	"github.com/vovakirdan/chatty/internal/session"
	"github.com/vovakirdan/chatty/internal/utils"
)

// DialFunc opens the event channel to url.
type DialFunc func(ctx context.Context, url string) (client.Transport, error)

// handledEvents are the inbound events the client renders.
var handledEvents = []string{
	proto.EventStatus,
	proto.EventNewRoom,
	proto.EventJoinRoom,
	proto.EventLeaveRoom,
	proto.EventNickname,
	proto.EventRegister,
	proto.EventUnregister,
	proto.EventMessage,
}

// App drives one client session: connect, register, read loop, unregister.
type App struct {
	cfg     config.Client
	dial    DialFunc
	log     *zerolog.Logger
	out     *render.Printer
	session *session.State

	// mu guards client and stopping. Shutdown may run on another goroutine at any point of Run.
	mu       sync.Mutex
	client   *client.Client
	stopping bool

	phase        atomic.Int32
	shutdownOnce sync.Once
	closed       chan struct{}
}

// New constructs the application. Output for the user goes to out.
func New(cfg config.Client, dial DialFunc, out io.Writer, logger *zerolog.Logger) *App {
	return &App{
		cfg:     cfg,
		dial:    dial,
		log:     logger,
		out:     render.NewPrinter(out),
		session: session.New(utils.NewID(), cfg.Nickname),
		closed:  make(chan struct{}),
	}
}

// Phase returns the current lifecycle phase.
func (a *App) Phase() Phase {
	return Phase(a.phase.Load())
}

func (a *App) setPhase(p Phase) {
	old := Phase(a.phase.Swap(int32(p)))
	a.log.Debug().Stringer("from", old).Stringer("to", p).Msg("phase")
}

// Session returns the current session projection.
func (a *App) Session() session.Snapshot {
	return a.session.Snapshot()
}

// Run connects, registers and processes input lines until quit, end of input or ctx cancellation.
// Every exit path after a successful connect goes through Shutdown.
func (a *App) Run(ctx context.Context, in io.Reader) error {
	if a.isStopping() {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, a.cfg.DialTimeout)
	tr, err := a.dial(dialCtx, a.cfg.ServerURL)
	cancel()
	if err != nil {
		if ctx.Err() != nil || a.isStopping() {
			a.log.Info().Err(err).Msg("interrupted while connecting")
			return nil
		}
		return fmt.Errorf("connect: %w", err)
	}

	a.mu.Lock()
	if a.stopping {
		// Shutdown ran during the dial: nothing was registered, so only the transport needs closing.
		a.mu.Unlock()
		if err := tr.Close(); err != nil {
			a.log.Debug().Err(err).Msg("close transport")
		}
		return nil
	}
	a.client = client.New(a.session.UID(), tr, a.log)
	a.mu.Unlock()
	a.setPhase(PhaseConnected)

	for _, event := range handledEvents {
		a.client.On(event, a.handleEvent)
	}

	// The dispatch loop outlives ctx so the unregister exchange can still use the transport.
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		if err := a.client.Run(dispatchCtx); err != nil {
			a.log.Warn().Err(err).Msg("event channel closed")
			a.out.Print(render.Error("connection lost"))
		}
	}()
	defer func() { <-dispatchDone }()
	defer stopDispatch()
	defer a.Shutdown()

	register := &proto.RegisterRequest{Nickname: a.session.Snapshot().Nickname}
	if err := a.client.Send(ctx, proto.EventRegister, register); err != nil {
		a.log.Warn().Err(err).Msg("register")
		a.out.Print(render.SendFailed(err))
	}
	a.setPhase(PhaseRegistered)
	a.log.Info().Str("uid", a.session.UID()).Str("url", a.cfg.ServerURL).Msg("registered")

	a.out.Print(render.Welcome)
	a.setPhase(PhaseActive)

	stop := make(chan struct{})
	defer close(stop)
	lines := readLines(in, maxLineSize, stop)

	for {
		select {
		case <-ctx.Done():
			a.log.Info().Msg("interrupted")
			return nil
		case <-a.closed:
			return nil
		case line, ok := <-lines:
			if !ok {
				a.log.Info().Msg("end of input")
				return nil
			}
			if errors.Is(line.err, errLineTooLong) {
				a.log.Warn().Int("limit", maxLineSize).Msg("discard long input line")
				a.out.Print(render.Error(fmt.Sprintf("Line longer than %d bytes was not sent", maxLineSize)))
				continue
			}
			if line.err != nil {
				a.log.Error().Err(line.err).Msg("read input")
				a.out.Print(render.Error("read input: " + line.err.Error()))
				return fmt.Errorf("read input: %w", line.err)
			}
			if quit := a.handleLine(ctx, line.text); quit {
				return nil
			}
		}
	}
}

// Shutdown sends unregister, closes the transport and prints the confirmation.
// It runs at most once; later calls return immediately.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.mu.Lock()
		a.stopping = true
		c := a.client
		a.mu.Unlock()

		a.setPhase(PhaseUnregistering)
		if c != nil {
			ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			if err := c.Send(ctx, proto.EventUnregister, &proto.UnregisterRequest{}); err != nil {
				a.log.Debug().Err(err).Msg("unregister")
			}
			cancel()
			if err := c.Close(); err != nil {
				a.log.Debug().Err(err).Msg("close transport")
			}
		}
		a.session.Reset()
		a.setPhase(PhaseClosed)
		a.out.Print(render.ShutDown())
		close(a.closed)
	})
}

// handleLine runs one input line through the interpreter and reports whether it asked to quit.
func (a *App) handleLine(ctx context.Context, line string) bool {
	cmd, err := command.Interpret(line)
	if err != nil {
		a.out.Print(render.Error(err.Error()))
		return false
	}
	if cmd == nil {
		return false
	}

	switch cmd.Kind {
	case command.KindQuit:
		return true
	case command.KindHelp:
		a.out.Print(render.Help)
		return false
	case command.KindUnknown:
		a.out.Print(render.ReservedPrefix())
	case command.KindSetNickname:
		a.session.RequestNickname(cmd.Nickname)
	}

	if err := a.client.Execute(ctx, *cmd); err != nil {
		if cmd.Kind == command.KindSetNickname {
			a.session.CancelNickname(cmd.Nickname)
		}
		a.log.Warn().Err(err).Stringer("command", cmd.Kind).Msg("send failed")
		a.out.Print(render.SendFailed(err))
	}
	return false
}

// handleEvent applies an inbound event to the session and renders it.
func (a *App) handleEvent(event string, resp proto.Response) {
	if change := a.session.Apply(event, resp); change != nil {
		a.log.Debug().
			Str("event", event).
			Str("nickname", change.After.Nickname).
			Str("room", change.After.Room).
			Msg("session updated")
	}
	a.out.Print(render.Event(event, resp, a.session.Snapshot())...)
}

// readLines scans in on its own goroutine. The channel closes at end of input.
func (a *App) isStopping() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopping
}

// maxLineSize matches the largest request the server accepts.
const maxLineSize = proto.MaxFrameSize

var errLineTooLong = errors.New("input line too long")

// inputLine is one line of user input, or the error that interrupted reading.
type inputLine struct {
	text string
	err  error
}

// readLines streams lines from in until end of input or stop. Lines longer than limit are
// consumed and delivered as errLineTooLong so reading can continue past them.
func readLines(in io.Reader, limit int, stop <-chan struct{}) <-chan inputLine {
	lines := make(chan inputLine)
	go func() {
		defer close(lines)
		r := bufio.NewReader(in)
		for {
			text, err := readLine(r, limit)
			if errors.Is(err, io.EOF) {
				return
			}
			select {
			case lines <- inputLine{text: text, err: err}:
			case <-stop:
				return
			}
			if err != nil && !errors.Is(err, errLineTooLong) {
				return
			}
		}
	}()
	return lines
}

// readLine returns the next line without its terminator.
func readLine(r *bufio.Reader, limit int) (string, error) {
	var (
		buf     []byte
		tooLong bool
	)
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if tooLong {
				return "", errLineTooLong
			}
			if len(buf) > 0 {
				return string(buf), nil
			}
			return "", err
		}
		if !tooLong {
			if len(buf)+len(chunk) > limit {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			break
		}
	}
	if tooLong {
		return "", errLineTooLong
	}
	return string(buf), nil
}
