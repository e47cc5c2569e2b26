package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/chatty/internal/client"
	"github.com/vovakirdan/chatty/internal/client/clienttest"
	"github.com/vovakirdan/chatty/internal/config"
	chatlog "github.com/vovakirdan/chatty/internal/log"
)

// syncBuffer is a bytes.Buffer safe for the printer and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	app    *App
	tr     *clienttest.Transport
	out    *syncBuffer
	input  *io.PipeWriter
	cancel context.CancelFunc
	done   chan error
}

func startApp(t *testing.T) *harness {
	t.Helper()

	tr := clienttest.New()
	out := &syncBuffer{}
	cfg := config.DefaultClient()
	cfg.ShutdownTimeout = time.Second

	dial := func(context.Context, string) (client.Transport, error) { return tr, nil }
	a := New(cfg, dial, out, chatlog.Nop())

	inR, inW := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{app: a, tr: tr, out: out, input: inW, cancel: cancel, done: make(chan error, 1)}

	go func() { h.done <- a.Run(ctx, inR) }()
	t.Cleanup(func() {
		cancel()
		_ = inW.Close()
		h.wait(t)
	})

	tr.WaitSent(t, "register")
	h.waitOutput(t, "Welcome to Chatty")
	return h
}

func (h *harness) send(t *testing.T, line string) {
	t.Helper()
	if _, err := io.WriteString(h.input, line+"\n"); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("write input %q: %v", line, err)
	}
}

func (h *harness) waitOutput(t *testing.T, substr string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(h.out.String(), substr) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("output never contained %q; got:\n%s", substr, h.out.String())
}

func (h *harness) waitPhase(t *testing.T, want Phase) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.app.Phase() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("phase = %s, want %s", h.app.Phase(), want)
}

// wait blocks until Run returned. Safe to call more than once.
func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err, ok := <-h.done:
		if ok {
			close(h.done)
		}
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

// barrier sends $help and waits for its output, so earlier lines have been processed.
func (h *harness) barrier(t *testing.T) {
	t.Helper()
	before := strings.Count(h.out.String(), "Commands:")
	h.send(t, "$help")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Count(h.out.String(), "Commands:") > before {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("help barrier not reached")
}

func count(events []string, name string) int {
	n := 0
	for _, ev := range events {
		if ev == name {
			n++
		}
	}
	return n
}
