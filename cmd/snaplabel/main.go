// snaplabel - take a photo and show its top 3 Cloud Vision labels
//
// One-shot mode captures once, prints the result and exits 0 on success.
// With -web it serves a dashboard with a capture button instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-snaplabel/internal/config"
	"github.com/teslashibe/go-snaplabel/internal/httpc"
	"github.com/teslashibe/go-snaplabel/internal/log"
	"github.com/teslashibe/go-snaplabel/pkg/app"
	"github.com/teslashibe/go-snaplabel/pkg/capture"
	"github.com/teslashibe/go-snaplabel/pkg/capture/webcam"
	"github.com/teslashibe/go-snaplabel/pkg/vision"
)

type options struct {
	image     string
	cameraCmd string
	device    int
	web       bool
	envFile   string
	debug     bool
}

func main() {
	opts := parseFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, opts)
	cancel()
	os.Exit(code)
}

// parseFlags parses command line flags.
func parseFlags() options {
	var o options
	flag.StringVar(&o.image, "image", "", "Classify an existing photo instead of using a camera")
	flag.StringVar(&o.cameraCmd, "camera-cmd", "", `Capture program, e.g. "fswebcam -r 1280x720 {output}" (overrides CAMERA_COMMAND)`)
	flag.IntVar(&o.device, "device", -1, "Webcam device index (overrides CAMERA_DEVICE)")
	flag.BoolVar(&o.web, "web", false, "Serve the dashboard on WEB_PORT instead of capturing once")
	flag.StringVar(&o.envFile, "env", ".env", "Optional dotenv file")
	flag.BoolVar(&o.debug, "debug", false, "Enable verbose debug logging")
	flag.Parse()
	return o
}

func run(ctx context.Context, opts options) int {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		return 1
	}

	level := cfg.LogLevel
	if opts.debug {
		level = "debug"
	}
	log.Init(level)
	logger := log.L()

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	cam, source := selectCamera(opts, cfg, logger)
	session, err := capture.NewSession(cfg.CaptureDir, cam, capture.WithLogger(logger))
	if err != nil {
		logger.Error("capture setup failed", "error", err)
		return 1
	}
	defer session.Close()

	client, err := vision.NewClient(ctx,
		vision.WithAPIKey(cfg.APIKey),
		vision.WithCredentialsFile(cfg.CredentialsFile),
		vision.WithEndpoint(cfg.Endpoint),
		vision.WithHTTPClient(httpc.NewClient(httpc.DefaultTimeout, log.Component("http"))),
		vision.WithLogger(logger),
	)
	if err != nil {
		logger.Error("vision client setup failed", "error", err)
		return 1
	}

	logger.Info("snaplabel starting", "camera", source, "capture_dir", session.Dir(), "web", opts.web)

	if opts.web {
		return serve(ctx, cfg, session, client, logger)
	}
	return captureOnce(ctx, session, client, logger)
}

// selectCamera picks the capture source: -image, then a capture program,
// then the webcam.
func selectCamera(opts options, cfg *config.Config, logger *slog.Logger) (capture.Camera, string) {
	if opts.image != "" {
		return &capture.FileCamera{Source: opts.image}, "file:" + opts.image
	}

	line := cfg.CameraCommand
	if opts.cameraCmd != "" {
		line = opts.cameraCmd
	}
	if line != "" {
		cam, err := capture.ParseCommand(line)
		if err == nil {
			cam.Stderr = os.Stderr
			return cam, "command:" + cam.Name
		}
		logger.Warn("ignoring camera command", "error", err)
	}

	wc := webcam.DefaultConfig()
	wc.Device = cfg.CameraDevice
	if opts.device >= 0 {
		wc.Device = opts.device
	}
	return webcam.New(wc, logger), fmt.Sprintf("webcam:%d", wc.Device)
}

// captureOnce takes one photo, prints the result and returns the exit code.
func captureOnce(ctx context.Context, session *capture.Session, client vision.Classifier, logger *slog.Logger) int {
	term := app.NewTerminalSurface(os.Stdout)
	defer term.Close()

	final := make(chan app.Display, 1)
	ctrl := app.New(session, client,
		app.WithSurface(term),
		app.WithSurface(app.SurfaceFunc(func(d app.Display) {
			if d.State.Terminal() {
				select {
				case final <- d:
				default:
				}
			}
		})),
		app.WithLogger(logger),
	)

	loopCtx, stop := context.WithCancel(ctx)
	defer stop()
	go ctrl.Run(loopCtx)

	if err := ctrl.RequestCapture(ctx); err != nil {
		if errors.Is(err, capture.ErrCaptureCancelled) {
			fmt.Fprintln(os.Stderr, "Capture cancelled.")
		}
		return 1
	}

	select {
	case d := <-final:
		if d.State == app.StateFailed {
			return 1
		}
		return 0
	case <-ctx.Done():
		return 1
	}
}
