package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-snaplabel/pkg/app"
	"github.com/teslashibe/go-snaplabel/pkg/capture"
	"github.com/teslashibe/go-snaplabel/pkg/hub"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"clients": s.displayHub.ClientCount(),
	})
}

// handleDisplay returns the current display
func (s *Server) handleDisplay(c *fiber.Ctx) error {
	return c.JSON(s.controller.Snapshot())
}

// handleCapture takes a photo and starts classification. It answers once
// the capture step is done; the result follows on /ws/display.
func (s *Server) handleCapture(c *fiber.Ctx) error {
	ctx, p := s.beginCapture()
	defer s.endCapture(p)

	err := s.controller.RequestCapture(ctx)

	switch {
	case err == nil:
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"accepted": true,
			"display":  s.controller.Snapshot(),
		})

	case errors.Is(err, capture.ErrCaptureCancelled):
		return c.JSON(fiber.Map{"cancelled": true})

	case errors.Is(err, app.ErrBusy):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})

	case errors.Is(err, app.ErrStopped):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})

	default:
		s.logger.Warn("capture request failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

// handleCancelCapture abandons the capture in progress. The pending
// POST /api/capture then answers {"cancelled": true}.
func (s *Server) handleCancelCapture(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"cancelled": s.cancelCapture()})
}

// handleImage returns the current capture's bytes
func (s *Server) handleImage(c *fiber.Ctx) error {
	img := s.images()
	if img == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}

	c.Set(fiber.HeaderContentType, "image/"+img.Format)
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(img.Data)
}

// handleDisplayWS sends the current display, then every update.
func (s *Server) handleDisplayWS(conn *websocket.Conn) {
	first, err := s.displayMessage()
	if err != nil {
		s.logger.Error("encode display", "error", err)
		return
	}

	client, err := hub.NewClient(s.displayHub, conn, first)
	if err != nil {
		return
	}
	client.Run()
}
