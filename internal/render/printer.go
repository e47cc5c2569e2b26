package render

import (
	"fmt"
	"io"
	"sync"
)

// Printer writes lines to an io.Writer. The input loop and the event dispatcher share one.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter wraps w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Print writes each line followed by a newline. Write errors are ignored.
func (p *Printer) Print(lines ...string) {
	if len(lines) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, line := range lines {
		_, _ = fmt.Fprintln(p.w, line)
	}
}
