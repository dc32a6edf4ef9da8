// Package web serves the snaplabel dashboard: a capture button, the photo
// preview and the live classification result.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-snaplabel/pkg/app"
	"github.com/teslashibe/go-snaplabel/pkg/capture"
	"github.com/teslashibe/go-snaplabel/pkg/hub"
)

//go:embed static
var staticFS embed.FS

const shutdownTimeout = 5 * time.Second

// Controller is the part of app.Controller the dashboard drives.
type Controller interface {
	RequestCapture(ctx context.Context) error
	Snapshot() app.Display
}

// ImageSource returns the current capture, or nil.
type ImageSource func() *capture.Image

// Server is the web dashboard server. It implements app.Surface.
type Server struct {
	app        *fiber.App
	controller Controller
	images     ImageSource
	displayHub *hub.Hub
	logger     *slog.Logger

	mu sync.Mutex
	// runCtx bounds captures started from the dashboard; nil until Run
	runCtx context.Context
	// pending is the capture started by the current POST /api/capture
	pending *pendingCapture
}

type pendingCapture struct {
	cancel context.CancelFunc
}

// NewServer builds the dashboard. images may be nil.
func NewServer(controller Controller, images ImageSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if images == nil {
		images = func() *capture.Image { return nil }
	}

	s := &Server{
		controller: controller,
		images:     images,
		displayHub: hub.New("display", logger),
		logger:     logger.With("component", "web"),
	}

	a := fiber.New(fiber.Config{
		AppName:               "snaplabel",
		DisableStartupMessage: true,
	})

	a.Use(recover.New())
	a.Use(cors.New())

	a.Get("/health", s.handleHealth)

	api := a.Group("/api")
	api.Get("/display", s.handleDisplay)
	api.Post("/capture", s.handleCapture)
	api.Post("/capture/cancel", s.handleCancelCapture)
	api.Get("/image", s.handleImage)

	// WebSocket upgrade middleware
	a.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	a.Get("/ws/display", websocket.New(s.handleDisplayWS))

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	a.Use("/", filesystem.New(filesystem.Config{
		Root:  http.FS(static),
		Index: "index.html",
	}))

	s.app = a
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the display broadcast hub.
func (s *Server) Hub() *hub.Hub {
	return s.displayHub
}

// Show implements app.Surface by pushing the display to every websocket
// client.
func (s *Server) Show(d app.Display) {
	if err := s.displayHub.BroadcastJSON(d); err != nil {
		s.logger.Error("encode display", "error", err)
	}
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	go s.displayHub.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", addr)
		errc <- s.app.Listen(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) displayMessage() (hub.Message, error) {
	data, err := json.Marshal(s.controller.Snapshot())
	if err != nil {
		return hub.Message{}, err
	}
	return hub.NewJSONMessage(data), nil
}

// beginCapture returns the context for a dashboard capture. fasthttp does
// not report client disconnects, so a capture ends when the camera returns,
// when /api/capture/cancel is called, or when the server shuts down.
func (s *Server) beginCapture() (context.Context, *pendingCapture) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.runCtx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)
	p := &pendingCapture{cancel: cancel}
	// a second request while one is pending is rejected as busy
	if s.pending == nil {
		s.pending = p
	}
	return ctx, p
}

func (s *Server) endCapture(p *pendingCapture) {
	s.mu.Lock()
	if s.pending == p {
		s.pending = nil
	}
	s.mu.Unlock()
	p.cancel()
}

// cancelCapture cancels the pending dashboard capture, if any.
func (s *Server) cancelCapture() bool {
	s.mu.Lock()
	p := s.pending
	s.pending = nil
	s.mu.Unlock()

	if p == nil {
		return false
	}
	p.cancel()
	return true
}
