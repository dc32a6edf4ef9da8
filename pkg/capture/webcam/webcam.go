//go:build cgo

package webcam

import (
	"context"
	"fmt"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-snaplabel/pkg/capture"
)

// Camera implements capture.Camera for a webcam.
type Camera struct {
	config Config
	logger *slog.Logger
}

// New returns a webcam camera.
func New(cfg Config, logger *slog.Logger) *Camera {
	if logger == nil {
		logger = slog.Default()
	}
	return &Camera{config: cfg.normalized(), logger: logger.With("component", "webcam")}
}

// Capture opens the device, grabs one frame and writes it to dest as JPEG.
// The device is released after every capture.
func (c *Camera) Capture(ctx context.Context, dest string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", capture.ErrCaptureCancelled, err)
	}

	vc, err := gocv.OpenVideoCapture(c.config.Device)
	if err != nil {
		return fmt.Errorf("%w: open device %d: %v", capture.ErrCameraUnavailable, c.config.Device, err)
	}
	defer vc.Close()

	if !vc.IsOpened() {
		return fmt.Errorf("%w: device %d not opened", capture.ErrCameraUnavailable, c.config.Device)
	}
	if c.config.Width > 0 && c.config.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	}

	frame := gocv.NewMat()
	defer frame.Close()

	for i := 0; i <= c.config.WarmupFrames; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", capture.ErrCaptureCancelled, err)
		}
		if ok := vc.Read(&frame); !ok || frame.Empty() {
			return fmt.Errorf("webcam: read frame %d from device %d", i, c.config.Device)
		}
	}

	params := []int{int(gocv.IMWriteJpegQuality), c.config.Quality}
	if !gocv.IMWriteWithParams(dest, frame, params) {
		return fmt.Errorf("webcam: write %s", dest)
	}

	c.logger.Debug("frame captured",
		"device", c.config.Device,
		"width", frame.Cols(),
		"height", frame.Rows(),
	)
	return nil
}
