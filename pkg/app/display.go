package app

import (
	"time"

	"github.com/teslashibe/go-snaplabel/pkg/labels"
)

// State is the lifecycle stage shown on the result surface.
type State string

const (
	StateIdle      State = "idle"
	StateInFlight  State = "in_flight"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Terminal reports whether no further update is expected for the request.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Display is what the result surface shows. Text is always the full
// rendered message; Labels carries the displayed labels for richer surfaces.
type Display struct {
	RequestID string         `json:"request_id,omitempty"`
	State     State          `json:"state"`
	Text      string         `json:"text"`
	Labels    []labels.Label `json:"labels,omitempty"`
	Error     string         `json:"error,omitempty"`
	ImagePath string         `json:"image_path,omitempty"`
	LatencyMS int64          `json:"latency_ms,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Surface receives every display update, in order, from the controller's
// loop goroutine. Show must not block for long.
type Surface interface {
	Show(Display)
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(Display)

// Show calls f.
func (f SurfaceFunc) Show(d Display) {
	f(d)
}
