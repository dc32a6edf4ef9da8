// Package webcam captures stills from a local video device through OpenCV.
// It needs cgo and an OpenCV install, so it lives apart from package capture.
// Builds without cgo get a Camera that always reports
// capture.ErrCameraUnavailable.
package webcam

import "github.com/teslashibe/go-snaplabel/pkg/capture"

// Config holds webcam settings.
type Config struct {
	Device  int // video device index, 0 is the default camera
	Width   int // requested frame width, 0 keeps the driver default
	Height  int // requested frame height, 0 keeps the driver default
	Quality int // JPEG quality 1-100

	// WarmupFrames are read and discarded before the still so auto exposure
	// can settle.
	WarmupFrames int
}

// DefaultConfig returns settings for the default camera at 1280x720.
func DefaultConfig() Config {
	return Config{
		Device:       0,
		Width:        1280,
		Height:       720,
		Quality:      capture.UploadQuality,
		WarmupFrames: 5,
	}
}

func (c Config) normalized() Config {
	if c.Quality <= 0 || c.Quality > 100 {
		c.Quality = capture.UploadQuality
	}
	if c.WarmupFrames < 0 {
		c.WarmupFrames = 0
	}
	return c
}
