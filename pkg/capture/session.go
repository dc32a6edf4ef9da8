package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Session owns the capture directory and the single current capture.
// A new capture replaces (and deletes) the previous one; Close deletes the
// last one.
type Session struct {
	dir    string
	camera Camera
	now    func() time.Time
	logger *slog.Logger

	mu      sync.Mutex
	current *Image
	pending bool
	closed  bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock overrides the clock used to name capture files.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// NewSession creates dir if needed and returns a session capturing with camera.
func NewSession(dir string, camera Camera, opts ...SessionOption) (*Session, error) {
	if camera == nil {
		return nil, fmt.Errorf("%w: no camera configured", ErrCameraUnavailable)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("capture: create dir: %w", err)
	}

	s := &Session{
		dir:    dir,
		camera: camera,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "capture.session")
	return s, nil
}

// Dir returns the capture directory.
func (s *Session) Dir() string {
	return s.dir
}

// Pending reports whether a capture is in progress.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Current returns the current capture, or nil.
func (s *Session) Current() *Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Capture asks the camera for a photo at a fresh path and loads it.
// On any failure the current capture is left untouched.
func (s *Session) Capture(ctx context.Context) (*Image, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if s.pending {
		s.mu.Unlock()
		return nil, ErrCapturePending
	}
	s.pending = true
	at := s.now()
	path := s.nextPath(at)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pending = false
		s.mu.Unlock()
	}()

	if err := s.camera.Capture(ctx, path); err != nil {
		s.removeQuietly(path)
		if ctx.Err() != nil && !errors.Is(err, ErrCaptureCancelled) {
			err = fmt.Errorf("%w: %v", ErrCaptureCancelled, err)
		}
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoImage, filepath.Base(path))
	}
	if err != nil {
		s.removeQuietly(path)
		return nil, fmt.Errorf("capture: read %s: %w", filepath.Base(path), err)
	}

	img, err := Decode(data)
	if err != nil {
		s.removeQuietly(path)
		return nil, err
	}
	img.Path = path
	img.CapturedAt = at

	s.mu.Lock()
	prev := s.current
	s.current = img
	s.mu.Unlock()

	if prev != nil {
		s.removeQuietly(prev.Path)
	}

	s.logger.Debug("captured",
		"path", path,
		"format", img.Format,
		"width", img.Width,
		"height", img.Height,
		"bytes", len(img.Data),
	)
	return img, nil
}

// Close deletes the current capture file. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	cur := s.current
	s.current = nil
	s.closed = true
	s.mu.Unlock()

	if cur == nil {
		return nil
	}
	if err := os.Remove(cur.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("capture: remove %s: %w", cur.Path, err)
	}
	return nil
}

// nextPath returns IMG_<yyyyMMdd_HHmmss>.jpg, suffixed when that name is
// taken. Called with s.mu held.
func (s *Session) nextPath(at time.Time) string {
	base := "IMG_" + at.Format("20060102_150405")
	path := filepath.Join(s.dir, base+".jpg")
	for i := 1; fileExists(path) || (s.current != nil && s.current.Path == path); i++ {
		path = filepath.Join(s.dir, fmt.Sprintf("%s_%d.jpg", base, i))
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (s *Session) removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("remove scratch file", "path", path, "error", err)
	}
}
