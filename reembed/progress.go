package reembed

import (
	"fmt"
	"io"
	"time"
)

// progress renders a run as one status line that is rewritten in place.
// It is driven from the iterator callback and is not safe for concurrent use.
type progress struct {
	w       io.Writer
	total   int
	every   int
	done    int
	shown   int
	started time.Time
}

func newProgress(w io.Writer, total, every int) *progress {
	return &progress{
		w:       w,
		total:   total,
		every:   max(every, 1),
		started: time.Now(),
	}
}

// advance records n more reembedded chunks and redraws the line once at
// least every chunks have accumulated since the last draw.
func (p *progress) advance(n int) {
	p.done = min(p.done+n, p.total)
	if p.done-p.shown >= p.every {
		p.draw()
	}
}

// finish draws the final state and terminates the line.
func (p *progress) finish() time.Duration {
	if p.shown != p.done || p.done == 0 {
		p.draw()
	}
	fmt.Fprintln(p.w)
	return time.Since(p.started)
}

func (p *progress) draw() {
	p.shown = p.done
	pct := 100.0
	if p.total > 0 {
		pct = float64(p.done) * 100 / float64(p.total)
	}
	fmt.Fprintf(p.w, "\r%d/%d chunks (%.1f%%) %s",
		p.done, p.total, pct, rate(p.done, time.Since(p.started)))
}

// rate formats a throughput for the status and summary lines.
func rate(chunks int, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "-- chunks/s"
	}
	return fmt.Sprintf("%.1f chunks/s", float64(chunks)/elapsed.Seconds())
}
