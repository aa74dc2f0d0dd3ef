package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"listingfilter/internal/app"
	"listingfilter/internal/config"
	"listingfilter/internal/handler"
	"listingfilter/internal/logging"
	"listingfilter/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)
	logger.Info("listing filter starting", "version", Version, "build_time", BuildTime, "git_commit", GitCommit)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.Server.GinMode)

	services, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Session dispatches outlive individual requests but not the server
	dispatchCtx, cancelDispatches := context.WithCancel(context.Background())
	defer cancelDispatches()
	store := service.NewSessionStore(dispatchCtx, services.Dispatcher, services.Extractor, services.Dataset, cfg.Session.DispatchTimeout, logger)

	router := handler.NewRouter(
		cfg.Server,
		handler.BuildInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit},
		handler.NewSearchHandler(services.Search, logger),
		handler.NewSessionHandler(store),
		logger,
	)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", srv.Addr, "api", "http://"+srv.Addr+"/api/v1")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server", "grace", cfg.Server.ShutdownGrace)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		cancelDispatches()
		store.Wait()
		return err
	})

	return g.Wait()
}
