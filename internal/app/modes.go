package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skintools/empirescan/internal/domain"
	"github.com/skintools/empirescan/internal/scanner"
	"github.com/skintools/empirescan/internal/server"
	"github.com/skintools/empirescan/internal/server/handler"
)

const shutdownTimeout = 10 * time.Second

// ScanMode runs the full pipeline: marketplace session, scanner workers, and
// the operational HTTP server.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.Server.Enabled {
		srv := a.newServer(deps.Session.CurrentState, deps.Scanner.Status)
		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := deps.Session.Start(ctx); err != nil {
		return err
	}
	g.Go(func() error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return deps.Session.Stop(stopCtx)
	})

	g.Go(func() error {
		return deps.Scanner.Run(ctx)
	})

	a.logger.InfoContext(ctx, "scan mode running")
	err := g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

// HealthMode serves only the liveness endpoint, for probing deployments
// without marketplace credentials.
func (a *App) HealthMode(ctx context.Context, _ *Dependencies) error {
	srv := a.newServer(nil, nil)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	a.logger.InfoContext(ctx, "health mode running", slog.Int("port", a.cfg.Server.Port))
	err := g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

func (a *App) newServer(state func() domain.ConnectionState, status func() scanner.Status) *server.Server {
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(state),
	}
	if status != nil {
		handlers.Status = handler.NewStatusHandler(status)
	}
	return server.NewServer(server.Config{Port: a.cfg.Server.Port}, handlers, a.logger)
}
