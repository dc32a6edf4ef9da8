package app

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

const spinnerInterval = 100 * time.Millisecond

// TerminalSurface prints display updates to a writer and animates a spinner
// while a classification is in flight.
type TerminalSurface struct {
	w io.Writer

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewTerminalSurface returns a surface writing to w.
func NewTerminalSurface(w io.Writer) *TerminalSurface {
	return &TerminalSurface{w: w}
}

// Show implements Surface.
func (t *TerminalSurface) Show(d Display) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopSpinner()

	switch d.State {
	case StateInFlight:
		t.startSpinner(d)
	case StateCompleted, StateFailed:
		fmt.Fprintln(t.w, d.Text)
	}
}

// Close stops any running spinner.
func (t *TerminalSurface) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopSpinner()
}

// startSpinner is called with t.mu held.
func (t *TerminalSurface) startSpinner(d Display) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(t.w),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription(firstLine(d.Text)),
		progressbar.OptionThrottle(spinnerInterval),
		progressbar.OptionClearOnFinish(),
	)

	stop := make(chan struct{})
	t.stop = stop
	t.wg.Add(1)

	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				bar.Finish()
				return
			case <-ticker.C:
				bar.Add(1)
			}
		}
	}()
}

// stopSpinner is called with t.mu held.
func (t *TerminalSurface) stopSpinner() {
	if t.stop == nil {
		return
	}
	close(t.stop)
	t.stop = nil
	t.wg.Wait()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
