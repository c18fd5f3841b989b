package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker prints a single carriage-return status line while the
// seeder upserts node vectors. It is safe for concurrent use.
type ProgressTracker struct {
	mu sync.Mutex

	out      io.Writer
	nodes    int // nodes in the batch being seeded
	seeded   int
	every    int
	nextLine int // seeded count at which the next line is printed
	began    time.Time
	running  bool
}

// NewProgressTracker returns a tracker for a batch of nodes that prints a
// status line each time another every nodes have been upserted. Output goes
// nowhere when out is nil.
func NewProgressTracker(out io.Writer, nodes, every int) *ProgressTracker {
	if out == nil {
		out = io.Discard
	}
	if every < 1 {
		every = 1
	}
	return &ProgressTracker{out: out, nodes: nodes, every: every}
}

// Start resets the counter and the clock. Increment and Finish do nothing
// before it is called.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.running = true
	p.began = time.Now()
	p.seeded = 0
	p.nextLine = p.every
}

// Increment records n more upserted vectors. The count never passes the
// batch size.
func (p *ProgressTracker) Increment(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.seeded = min(p.seeded+n, p.nodes)
	if p.seeded >= p.nextLine {
		fmt.Fprint(p.out, p.line())
		p.nextLine = p.seeded + p.every
	}
}

// Finish prints the closing status line and ends it.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.seeded = p.nodes
	fmt.Fprintln(p.out, p.line())
}

// Current returns how many nodes have been seeded.
func (p *ProgressTracker) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seeded
}

// Elapsed is zero until Start.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return 0
	}
	return time.Since(p.began)
}

// line renders the status line. p.mu must be held.
func (p *ProgressTracker) line() string {
	var pct, perSec float64
	if p.nodes > 0 {
		pct = 100 * float64(p.seeded) / float64(p.nodes)
	}
	if secs := time.Since(p.began).Seconds(); secs > 0 {
		perSec = float64(p.seeded) / secs
	}
	return fmt.Sprintf("\rSeeded: %d/%d nodes (%.1f%%) - %.1f nodes/s", p.seeded, p.nodes, pct, perSec)
}
