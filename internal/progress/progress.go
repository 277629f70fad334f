// Package progress reports how far a generation run has come.
//
// On a terminal it redraws a single status line; otherwise it logs a
// progress record at the report interval.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/xtxerr/telemetrygen/config"
	"github.com/xtxerr/telemetrygen/internal/logging"
)

var log = logging.Component("progress")

const (
	defaultWidth = 80
	minBarWidth  = 10
)

// Reporter prints progress of a run with a known total.
type Reporter struct {
	mu sync.Mutex

	w        io.Writer
	tty      bool
	width    int
	total    int64
	interval time.Duration
	now      func() time.Time

	start   time.Time
	last    time.Time
	done    int64
	stopped bool
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithInterval sets the minimum time between reports.
func WithInterval(d time.Duration) Option {
	return func(r *Reporter) { r.interval = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// WithTerminal forces terminal or plain output.
func WithTerminal(tty bool, width int) Option {
	return func(r *Reporter) {
		r.tty = tty
		r.width = width
	}
}

// New creates a reporter writing to w. Terminal output is used when w is a
// terminal.
func New(w io.Writer, total int64, opts ...Option) *Reporter {
	r := &Reporter{
		w:        w,
		width:    defaultWidth,
		total:    total,
		interval: config.DefaultProgressInterval,
		now:      time.Now,
	}

	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.tty = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			r.width = width
		}
	}

	for _, opt := range opts {
		opt(r)
	}
	r.start = r.now()
	r.last = r.start
	return r
}

// Update records that done records have been processed. Output is
// throttled to the report interval.
func (r *Reporter) Update(done int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	r.done = done

	now := r.now()
	if now.Sub(r.last) < r.interval {
		return
	}
	r.last = now
	r.report(now)
}

// Finish prints the final state and ends the status line.
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	r.stopped = true
	r.report(r.now())
	if r.tty {
		fmt.Fprintln(r.w)
	}
}

func (r *Reporter) report(now time.Time) {
	elapsed := now.Sub(r.start)
	rate := 0.0
	if s := elapsed.Seconds(); s > 0 {
		rate = float64(r.done) / s
	}

	if !r.tty {
		log.Info("progress",
			"records", r.done,
			"total", r.total,
			"percent", fmt.Sprintf("%.1f", r.fraction()*100),
			"records_per_sec", int64(rate))
		return
	}

	status := fmt.Sprintf(" %5.1f%% %d/%d records %s/s", r.fraction()*100, r.done, r.total, human(rate))
	barWidth := r.width - len(status) - 3
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}
	filled := int(r.fraction() * float64(barWidth))

	fmt.Fprintf(r.w, "\r[%s%s]%s", strings.Repeat("#", filled), strings.Repeat(" ", barWidth-filled), status)
}

func (r *Reporter) fraction() float64 {
	if r.total <= 0 {
		return 0
	}
	f := float64(r.done) / float64(r.total)
	if f > 1 {
		return 1
	}
	return f
}

func human(v float64) string {
	switch {
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fk", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
