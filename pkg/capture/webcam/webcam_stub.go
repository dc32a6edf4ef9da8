//go:build !cgo

package webcam

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-snaplabel/pkg/capture"
)

// Camera reports capture.ErrCameraUnavailable when built without cgo.
type Camera struct {
	config Config
}

// New returns a webcam camera that cannot capture.
func New(cfg Config, logger *slog.Logger) *Camera {
	return &Camera{config: cfg.normalized()}
}

// Capture always fails without cgo.
func (c *Camera) Capture(ctx context.Context, dest string) error {
	return fmt.Errorf("%w: device %d: built without cgo/OpenCV", capture.ErrCameraUnavailable, c.config.Device)
}
