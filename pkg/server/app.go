package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"CommuteTrends/pkg/config"
	xhttp "CommuteTrends/pkg/http"
	applogger "CommuteTrends/pkg/logger"
)

// Closer releases one infrastructure resource on shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	closers    []Closer
}

// New creates a new App. Closers run in order after the HTTP server stops.
func New(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, closers ...Closer) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	return &App{cfg: cfg, l: l, httpServer: srv, closers: closers}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the HTTP server and shuts down when ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("application started",
		applogger.String("addr", a.httpServer.Addr()),
		applogger.String("config_source", a.cfg.ConfigSource),
	)

	<-ctx.Done()

	a.l.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()

	var firstErr error
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		firstErr = err
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.l.Warn(c.Name+" close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return firstErr
}
