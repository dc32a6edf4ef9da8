// Package capture obtains photos from an external camera capability and
// tracks the single current capture of a session.
package capture

import (
	"context"
	"errors"
)

// Sentinel errors, one per capture failure class.
var (
	// ErrCameraUnavailable means the capture capability cannot be used
	// (missing device, missing program, no permission).
	ErrCameraUnavailable = errors.New("capture: camera unavailable")

	// ErrCaptureCancelled means the user or caller abandoned the capture.
	ErrCaptureCancelled = errors.New("capture: cancelled")

	// ErrNoImage means the camera reported success but produced no file.
	ErrNoImage = errors.New("capture: no image produced")

	// ErrDecode means a file was produced but it is not a valid image.
	ErrDecode = errors.New("capture: not a valid image")

	// ErrCapturePending is returned when a capture is already in progress.
	ErrCapturePending = errors.New("capture: capture already pending")

	// ErrSessionClosed is returned after Close.
	ErrSessionClosed = errors.New("capture: session closed")
)

// Camera is an external image-capture capability. Capture writes a photo to
// dest and returns nil on success. It returns ErrCaptureCancelled (possibly
// wrapped) when the capture is abandoned.
type Camera interface {
	Capture(ctx context.Context, dest string) error
}

// CameraFunc adapts a function to the Camera interface.
type CameraFunc func(ctx context.Context, dest string) error

// Capture calls f.
func (f CameraFunc) Capture(ctx context.Context, dest string) error {
	return f(ctx, dest)
}
