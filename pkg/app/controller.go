// Package app ties capture, classification and presentation together.
//
// A Controller runs a single event loop that owns the display. Captures and
// classifications run on their own goroutines and post their results back to
// the loop, so the display is only ever written from one place.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-snaplabel/pkg/capture"
	"github.com/teslashibe/go-snaplabel/pkg/labels"
	"github.com/teslashibe/go-snaplabel/pkg/vision"
)

var (
	// ErrBusy is returned when a capture or classification is already in flight.
	ErrBusy = errors.New("app: capture or classification in progress")

	// ErrStopped is returned once the controller loop has exited.
	ErrStopped = errors.New("app: controller stopped")
)

// Capturer produces a photo. *capture.Session implements it.
type Capturer interface {
	Capture(ctx context.Context) (*capture.Image, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithSurface adds a surface that receives display updates.
func WithSurface(s Surface) Option {
	return func(c *Controller) { c.surfaces = append(c.surfaces, s) }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithIDGenerator overrides request id generation.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

// WithClock overrides the clock used for display timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

type captureRequest struct {
	ctx   context.Context
	reply chan error
}

type captureDone struct {
	req captureRequest
	img *capture.Image
	err error
}

type classifyDone struct {
	id     string
	path   string
	result vision.Result
}

// Controller sequences capture -> classify -> display.
type Controller struct {
	capturer   Capturer
	classifier vision.Classifier
	surfaces   []Surface
	logger     *slog.Logger
	newID      func() string
	now        func() time.Time

	requests chan captureRequest
	captured chan captureDone
	results  chan classifyDone
	done     chan struct{}
	runOnce  sync.Once

	mu      sync.RWMutex
	display Display
}

// New returns a controller. Call Run to start its loop.
func New(capturer Capturer, classifier vision.Classifier, opts ...Option) *Controller {
	c := &Controller{
		capturer:   capturer,
		classifier: classifier,
		logger:     slog.Default(),
		newID:      func() string { return uuid.New().String() },
		now:        time.Now,
		requests:   make(chan captureRequest),
		captured:   make(chan captureDone, 1),
		results:    make(chan classifyDone, 1),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "app")
	c.display = Display{State: StateIdle, UpdatedAt: c.now()}
	return c
}

// Snapshot returns the current display.
func (c *Controller) Snapshot() Display {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d := c.display
	d.Labels = append([]labels.Label(nil), c.display.Labels...)
	return d
}

// Done is closed when Run returns.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// RequestCapture asks the loop for a new capture and waits until the capture
// step resolves. A nil return means classification has started; its result
// arrives later through the surfaces. A cancelled capture returns
// capture.ErrCaptureCancelled and leaves the display unchanged.
func (c *Controller) RequestCapture(ctx context.Context) error {
	req := captureRequest{ctx: ctx, reply: make(chan error, 1)}

	select {
	case c.requests <- req:
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", capture.ErrCaptureCancelled, ctx.Err())
	}

	select {
	case err := <-req.reply:
		return err
	case <-c.done:
		return ErrStopped
	}
}

// Run owns the display until ctx is cancelled. It may be called once.
func (c *Controller) Run(ctx context.Context) error {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("app: controller already running")
	}
	defer close(c.done)

	busy := false
	c.logger.Debug("controller started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("controller stopped")
			return ctx.Err()

		case req := <-c.requests:
			if busy {
				req.reply <- ErrBusy
				continue
			}
			busy = true
			go c.capture(req)

		case done := <-c.captured:
			if done.err != nil {
				busy = false
				c.captureFailed(done.err)
				done.req.reply <- done.err
				continue
			}

			id := c.newID()
			c.publish(Display{
				RequestID: id,
				State:     StateInFlight,
				Text:      labels.PendingMessage,
				ImagePath: done.img.Path,
			})
			done.req.reply <- nil
			c.classify(ctx, id, done.img)

		case done := <-c.results:
			busy = false
			c.finish(done)
		}
	}
}

func (c *Controller) capture(req captureRequest) {
	img, err := c.capturer.Capture(req.ctx)
	select {
	case c.captured <- captureDone{req: req, img: img, err: err}:
	case <-c.done:
		req.reply <- ErrStopped
	}
}

// captureFailed runs on the loop goroutine.
func (c *Controller) captureFailed(err error) {
	if errors.Is(err, capture.ErrCaptureCancelled) {
		c.logger.Info("capture cancelled")
		return
	}

	c.logger.Warn("capture failed", "error", err)
	c.publish(Display{
		State: StateFailed,
		Text:  "Capture failed: " + err.Error(),
		Error: err.Error(),
	})
}

// classify encodes and submits the image off the loop goroutine. The
// submitted call is never cancelled; only the HTTP client timeout bounds it.
func (c *Controller) classify(ctx context.Context, id string, img *capture.Image) {
	callCtx := context.WithoutCancel(ctx)

	go func() {
		var res vision.Result
		data, err := img.Encode(capture.UploadQuality)
		if err != nil {
			res = vision.Result{Err: err}
		} else {
			res = <-vision.ClassifyAsync(callCtx, c.classifier, data)
		}

		select {
		case c.results <- classifyDone{id: id, path: img.Path, result: res}:
		case <-c.done:
		}
	}()
}

// finish runs on the loop goroutine and overwrites the display with the
// request's terminal state.
func (c *Controller) finish(done classifyDone) {
	res := done.result
	d := Display{
		RequestID: done.id,
		Text:      res.Text(),
		ImagePath: done.path,
		LatencyMS: res.Latency.Milliseconds(),
	}

	if res.Failed() {
		d.State = StateFailed
		d.Error = res.Err.Error()
		c.logger.Warn("classification failed",
			"request_id", done.id,
			"latency", res.Latency,
			"error", res.Err,
		)
	} else {
		d.State = StateCompleted
		d.Labels = res.Outcome.Displayed()
		c.logger.Info("classification completed",
			"request_id", done.id,
			"latency", res.Latency,
			"labels", res.Outcome.Len(),
		)
	}

	c.publish(d)
}

func (c *Controller) publish(d Display) {
	d.UpdatedAt = c.now()

	c.mu.Lock()
	c.display = d
	c.mu.Unlock()

	for _, s := range c.surfaces {
		s.Show(d)
	}
}
