package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-snaplabel/internal/config"
	"github.com/teslashibe/go-snaplabel/pkg/app"
	"github.com/teslashibe/go-snaplabel/pkg/capture"
	"github.com/teslashibe/go-snaplabel/pkg/vision"
	"github.com/teslashibe/go-snaplabel/pkg/web"
)

// serve runs the controller and the dashboard until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, session *capture.Session, client vision.Classifier, logger *slog.Logger) int {
	surfaces := &fanout{}
	ctrl := app.New(session, client,
		app.WithSurface(surfaces),
		app.WithLogger(logger),
	)

	server := web.NewServer(ctrl, session.Current, logger)
	term := app.NewTerminalSurface(os.Stdout)
	defer term.Close()
	surfaces.add(server, term)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCancel(ctrl.Run(gctx))
	})
	g.Go(func() error {
		return server.Run(gctx, ":"+cfg.WebPort)
	})

	if err := g.Wait(); err != nil {
		logger.Error("dashboard stopped", "error", err)
		return 1
	}
	return 0
}

// fanout forwards each display to several surfaces. The server needs the
// controller and the controller needs the server, so surfaces are attached
// after construction, before Run starts.
type fanout struct {
	surfaces []app.Surface
}

func (f *fanout) add(s ...app.Surface) {
	f.surfaces = append(f.surfaces, s...)
}

func (f *fanout) Show(d app.Display) {
	for _, s := range f.surfaces {
		s.Show(d)
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
