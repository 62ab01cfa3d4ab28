package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/in-c0/langtern/internal/catalog"
	"github.com/in-c0/langtern/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matching and translation API over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, config := bootstrap()
	defer logger.Sync()

	logger.Info("starting the langtern server", zap.String("version", version))

	svc, err := newServices(ctx, config, logger)
	if err != nil {
		logger.Fatal("initializing services", zap.Error(err))
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("closing services", zap.Error(err))
		}
	}()

	deps := server.Deps{
		Matcher:     svc.orchestrator,
		Translator:  svc.translator,
		Reference:   svc.store,
		Translation: config.translationSettings(),
		Logger:      logger.Named("http"),
		Version:     version,
	}

	if svc.cached != nil {
		deps.Invalidator = svc.cached

		refresher := catalog.NewRefresher(svc.cached, config.Cache.RefreshSchedule, logger.Named("refresher"))
		if err := refresher.Start(ctx); err != nil {
			logger.Fatal("starting catalog refresher", zap.Error(err))
		}
		defer refresher.Stop()
	}

	srv := &http.Server{
		Addr:         config.Server.Addr,
		Handler:      server.NewHandler(deps).Routes(),
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	logger.Info("stopped")
}
