package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const barWidth = 30

// Progress draws a one-line progress bar for commands that stream a known
// number of items, such as evidence export. The line is only redrawn when
// the whole percentage changes.
type Progress struct {
	mu      sync.Mutex
	w       io.Writer
	unit    string
	total   int64
	current int64
	drawn   int
	started time.Time
}

// NewProgress creates a progress bar counting unit on w. A nil w means
// stderr, keeping progress out of command output.
func NewProgress(w io.Writer, unit string) *Progress {
	if w == nil {
		w = os.Stderr
	}
	return &Progress{w: w, unit: unit, drawn: -1}
}

// Start resets the bar to zero of total.
func (p *Progress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	p.current = 0
	p.drawn = -1
	p.started = time.Now()
	p.draw()
}

// Add advances the bar by n items.
func (p *Progress) Add(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += n
	p.draw()
}

// Done prints the final count and ends the line.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total == 0 {
		return
	}
	fmt.Fprintf(p.w, "\r%s %d %s in %s\n", p.bar(1), p.current, p.unit, time.Since(p.started).Round(time.Millisecond))
}

// Fail ends the line with err.
func (p *Progress) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "\n✗ %d/%d %s: %v\n", p.current, p.total, p.unit, err)
}

// Current returns the number of items counted so far.
func (p *Progress) Current() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Progress) draw() {
	if p.total <= 0 {
		return
	}
	pct := int(min(p.current*100/p.total, 100))
	if pct == p.drawn {
		return
	}
	p.drawn = pct
	fmt.Fprintf(p.w, "\r%s %3d%% (%d/%d %s)", p.bar(float64(pct)/100), pct, p.current, p.total, p.unit)
}

func (p *Progress) bar(frac float64) string {
	filled := int(frac * barWidth)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled) + "]"
}
